package ros

import (
	"net"
	"testing"
	"time"
)

func TestBoolHeaderValue(t *testing.T) {
	if boolHeaderValue(true) != "1" {
		t.Error("boolHeaderValue(true) should be \"1\"")
	}
	if boolHeaderValue(false) != "0" {
		t.Error("boolHeaderValue(false) should be \"0\"")
	}
}

func TestIsServiceHeader(t *testing.T) {
	if !isServiceHeader(map[string]string{"service": "/echo"}) {
		t.Error("a header with a service key should be recognized as service-shaped")
	}
	if isServiceHeader(map[string]string{"topic": "/chatter"}) {
		t.Error("a header without a service key should not be service-shaped")
	}
}

func newTestPublisher(msgType MessageType, latched bool) *defaultPublisher {
	pub := &defaultPublisher{
		logger:       NewDefaultLogger(),
		master:       newMasterClient("http://127.0.0.1:0", "/tester"),
		nodeAPIURI:   "http://127.0.0.1:0",
		topic:        "/chatter",
		msgType:      msgType,
		latched:      latched,
		conns:        make(map[net.Conn]struct{}),
		shutdownChan: make(chan struct{}),
		queueSize:    defaultPublisherQueueSize,
	}
	pub.msgChan = make(chan []byte, pub.queueSize)
	return pub
}

func TestPublisherHandleConnectionAddsSubscriber(t *testing.T) {
	mt := NewDynamicMessageType("std_msgs/String", "992ce8a1687cec8cc8d0b3a073b1e4d1", "string data")
	pub := newTestPublisher(mt, false)

	clientConn, serverConn := net.Pipe()
	defer clientConn.Close()

	go pub.handleConnection(serverConn)

	clientConn.SetDeadline(time.Now().Add(5 * time.Second))
	if err := writeConnectionHeader([]header{{"callerid", "/listener"}, {"md5sum", mt.MD5Sum()}}, clientConn); err != nil {
		t.Fatalf("writeConnectionHeader: %v", err)
	}

	fields, err := readConnectionHeader(clientConn)
	if err != nil {
		t.Fatalf("readConnectionHeader: %v", err)
	}
	m := headerMap(fields)
	if m["topic"] != "/chatter" {
		t.Errorf("response topic = %q, want /chatter", m["topic"])
	}

	deadline := time.Now().Add(time.Second)
	for pub.GetNumSubscribers() == 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	if pub.GetNumSubscribers() != 1 {
		t.Errorf("GetNumSubscribers() = %d, want 1", pub.GetNumSubscribers())
	}
}

func TestPublisherHandleConnectionRejectsMD5Mismatch(t *testing.T) {
	mt := NewDynamicMessageType("std_msgs/String", "992ce8a1687cec8cc8d0b3a073b1e4d1", "string data")
	pub := newTestPublisher(mt, false)

	clientConn, serverConn := net.Pipe()
	defer clientConn.Close()
	go pub.handleConnection(serverConn)

	clientConn.SetDeadline(time.Now().Add(5 * time.Second))
	if err := writeConnectionHeader([]header{{"callerid", "/listener"}, {"md5sum", "wrongwrongwrongwrongwrongwrongwr"}}, clientConn); err != nil {
		t.Fatalf("writeConnectionHeader: %v", err)
	}
	fields, err := readConnectionHeader(clientConn)
	if err != nil {
		t.Fatalf("readConnectionHeader: %v", err)
	}
	if _, ok := headerMap(fields)["error"]; !ok {
		t.Error("expected an error header on md5 mismatch")
	}
}

func TestPublisherFanOutDropsDeadConnections(t *testing.T) {
	mt := NewDynamicMessageType("std_msgs/String", "992ce8a1687cec8cc8d0b3a073b1e4d1", "string data")
	pub := newTestPublisher(mt, true)

	clientConn, serverConn := net.Pipe()
	pub.conns[serverConn] = struct{}{}

	go func() {
		buf := make([]byte, 64)
		clientConn.Read(buf)
		clientConn.Close()
	}()

	pub.fanOut([]byte("hello"))
	time.Sleep(50 * time.Millisecond)
	pub.fanOut([]byte("again"))

	if pub.GetNumSubscribers() != 0 {
		t.Errorf("GetNumSubscribers() = %d, want 0 after the peer closed", pub.GetNumSubscribers())
	}

	pub.lastMessageMu.RLock()
	last := pub.lastMessage
	pub.lastMessageMu.RUnlock()
	if string(last) != "again" {
		t.Errorf("lastMessage = %q, want %q", last, "again")
	}
}

func TestPublisherHandleConnectionReplaysLatchedMessage(t *testing.T) {
	mt := NewDynamicMessageType("std_msgs/String", "992ce8a1687cec8cc8d0b3a073b1e4d1", "string data")
	pub := newTestPublisher(mt, true)
	pub.fanOut([]byte("latched-payload"))

	clientConn, serverConn := net.Pipe()
	defer clientConn.Close()

	go pub.handleConnection(serverConn)

	clientConn.SetDeadline(time.Now().Add(5 * time.Second))
	if err := writeConnectionHeader([]header{{"callerid", "/listener"}, {"md5sum", mt.MD5Sum()}}, clientConn); err != nil {
		t.Fatalf("writeConnectionHeader: %v", err)
	}
	if _, err := readConnectionHeader(clientConn); err != nil {
		t.Fatalf("readConnectionHeader: %v", err)
	}

	payload, err := readRawMessage(clientConn)
	if err != nil {
		t.Fatalf("readRawMessage: %v", err)
	}
	if string(payload) != "latched-payload" {
		t.Errorf("replayed payload = %q, want %q", payload, "latched-payload")
	}

	deadline := time.Now().Add(time.Second)
	for pub.GetNumSubscribers() == 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}

	go pub.fanOut([]byte("fresh-payload"))

	payload, err = readRawMessage(clientConn)
	if err != nil {
		t.Fatalf("readRawMessage (fresh): %v", err)
	}
	if string(payload) != "fresh-payload" {
		t.Errorf("second payload = %q, want %q (the replay must come first)", payload, "fresh-payload")
	}
}
