package ros

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"net"
	"sync"
	"sync/atomic"
)

// defaultPublisher owns one topic's TCPROS listener, its fan-out set of
// connected subscriber sockets, the optional latched last message, and
// the bounded publish queue. Exactly one defaultPublisher exists per
// (node, topic) pair; every call to NewPublisher for the same topic
// returns a new ref-counted handle onto the same instance.
type defaultPublisher struct {
	logger     Logger
	master     *masterClient
	nodeAPIURI string
	topic      string
	msgType    MessageType

	listener net.Listener

	latched       bool
	tcpNoDelay    bool
	lastMessage   []byte
	lastMessageMu sync.RWMutex

	conns   map[net.Conn]struct{}
	connsMu sync.Mutex

	msgChan      chan []byte
	shutdownChan chan struct{}

	connectCallback    func(SingleSubscriberPublisher)
	disconnectCallback func(SingleSubscriberPublisher)

	queueSize int
	refCount  int32
}

const defaultPublisherQueueSize = 100

func newDefaultPublisher(logger Logger, master *masterClient, nodeAPIURI, listenIP, topic string, msgType MessageType, connectCB, disconnectCB func(SingleSubscriberPublisher), opts ...PublisherOption) (*defaultPublisher, error) {
	listener, err := net.Listen("tcp", fmt.Sprintf("%s:0", listenIP))
	if err != nil {
		return nil, IoErrorf(err, "listen for publisher "+topic)
	}
	pub := &defaultPublisher{
		logger:             logger.WithField("topic", topic),
		master:             master,
		nodeAPIURI:         nodeAPIURI,
		topic:              topic,
		msgType:            msgType,
		listener:           listener,
		conns:              make(map[net.Conn]struct{}),
		shutdownChan:       make(chan struct{}),
		connectCallback:    connectCB,
		disconnectCallback: disconnectCB,
		queueSize:          defaultPublisherQueueSize,
	}
	for _, opt := range opts {
		opt(pub)
	}
	pub.msgChan = make(chan []byte, pub.queueSize)
	return pub, nil
}

func (pub *defaultPublisher) hostAndPort() (string, string) {
	host, port, _ := net.SplitHostPort(pub.listener.Addr().String())
	return host, port
}

// start runs the publication's two long-lived tasks:
// acceptor (accepts subscriber connections, performs the header
// handshake) and this goroutine itself, which is the fan-out loop.
func (pub *defaultPublisher) start(wg *sync.WaitGroup) {
	wg.Add(1)
	defer wg.Done()

	go pub.acceptLoop()

	for {
		select {
		case msg := <-pub.msgChan:
			pub.fanOut(msg)
		case <-pub.shutdownChan:
			pub.listener.Close()
			pub.connsMu.Lock()
			for c := range pub.conns {
				c.Close()
			}
			pub.conns = make(map[net.Conn]struct{})
			pub.connsMu.Unlock()
			// Dispatched to a detached goroutine: teardown must not cancel
			// the future doing it.
			go pub.unregister()
			return
		}
	}
}

func (pub *defaultPublisher) unregister() {
	if err := pub.master.unregisterPublisher(pub.topic, pub.nodeAPIURI); err != nil {
		pub.logger.Warnf("unregisterPublisher failed: %v", err)
	}
}

// fanOut writes msg to every connected subscriber socket in order, then
// drops any socket whose write failed, and finally stores msg as the
// latched last message.
func (pub *defaultPublisher) fanOut(msg []byte) {
	pub.connsMu.Lock()
	defer pub.connsMu.Unlock()

	var dead []net.Conn
	for conn := range pub.conns {
		if err := writeMessageFrame(conn, msg); err != nil {
			pub.logger.Debugf("write to subscriber failed, dropping: %v", err)
			dead = append(dead, conn)
		}
	}
	for _, conn := range dead {
		conn.Close()
		delete(pub.conns, conn)
	}

	pub.lastMessageMu.Lock()
	pub.lastMessage = msg
	pub.lastMessageMu.Unlock()
}

// acceptLoop accepts subscriber connections, performs the TCPROS header
// handshake, and (if compatible) adds the socket to the fan-out set,
// replaying the latched message first if one exists.
func (pub *defaultPublisher) acceptLoop() {
	for {
		conn, err := pub.listener.Accept()
		if err != nil {
			return
		}
		go pub.handleConnection(conn)
	}
}

func (pub *defaultPublisher) handleConnection(conn net.Conn) {
	fields, err := readConnectionHeader(conn)
	if err != nil {
		pub.logger.Debugf("failed to read subscriber header: %v", err)
		conn.Close()
		return
	}
	peer := headerMap(fields)

	if isServiceHeader(peer) {
		pub.logger.Debugf("rejecting service-shaped connection on topic listener")
		writeErrorHeader(conn, "not a service")
		conn.Close()
		return
	}

	if !md5Matches(pub.msgType.MD5Sum(), peer["md5sum"]) {
		writeErrorHeader(conn, fmt.Sprintf("md5sum mismatch: publisher has %s", pub.msgType.MD5Sum()))
		conn.Close()
		return
	}

	respHeader := []header{
		{"callerid", pub.master.callerID},
		{"type", pub.msgType.Name()},
		{"md5sum", pub.msgType.MD5Sum()},
		{"message_definition", pub.msgType.Text()},
		{"topic", pub.topic},
		{"latching", boolHeaderValue(pub.latched)},
		{"tcp_nodelay", boolHeaderValue(pub.tcpNoDelay)},
	}
	if err := writeConnectionHeader(respHeader, conn); err != nil {
		conn.Close()
		return
	}

	if pub.tcpNoDelay || peer["tcp_nodelay"] == "1" {
		if tcpConn, ok := conn.(*net.TCPConn); ok {
			if err := tcpConn.SetNoDelay(true); err != nil {
				pub.logger.Debugf("failed to set TCP_NODELAY: %v", err)
			}
		}
	}

	if pub.latched {
		pub.lastMessageMu.RLock()
		last := pub.lastMessage
		pub.lastMessageMu.RUnlock()
		if last != nil {
			if err := writeMessageFrame(conn, last); err != nil {
				conn.Close()
				return
			}
		}
	}

	pub.connsMu.Lock()
	pub.conns[conn] = struct{}{}
	pub.connsMu.Unlock()

	if pub.connectCallback != nil {
		go pub.connectCallback(&singleSubscriberPublisher{pub: pub, conn: conn, subscriberName: peer["callerid"]})
	}
}

func isServiceHeader(h map[string]string) bool {
	_, ok := h["service"]
	return ok
}

func boolHeaderValue(b bool) string {
	if b {
		return "1"
	}
	return "0"
}

func writeMessageFrame(w io.Writer, payload []byte) error {
	var lenBuf [4]byte
	binary.LittleEndian.PutUint32(lenBuf[:], uint32(len(payload)))
	if _, err := w.Write(lenBuf[:]); err != nil {
		return err
	}
	_, err := w.Write(payload)
	return err
}

// Publish serializes msg and enqueues it for fan-out, blocking the
// caller only until the queue accepts it.
func (pub *defaultPublisher) Publish(msg Message) {
	var buf bytes.Buffer
	if err := msg.Serialize(&buf); err != nil {
		pub.logger.Errorf("failed to serialize message for %s: %v", pub.topic, err)
		return
	}
	pub.msgChan <- buf.Bytes()
}

func (pub *defaultPublisher) GetNumSubscribers() int {
	pub.connsMu.Lock()
	defer pub.connsMu.Unlock()
	return len(pub.conns)
}

func (pub *defaultPublisher) shutdownNow() {
	select {
	case <-pub.shutdownChan:
	default:
		close(pub.shutdownChan)
	}
}

// singleSubscriberPublisher lets a connect/disconnect callback address
// the one subscriber socket that just (dis)connected.
type singleSubscriberPublisher struct {
	pub            *defaultPublisher
	conn           net.Conn
	subscriberName string
}

func (s *singleSubscriberPublisher) Publish(msg Message) {
	var buf bytes.Buffer
	if err := msg.Serialize(&buf); err != nil {
		s.pub.logger.Errorf("failed to serialize single-subscriber message: %v", err)
		return
	}
	writeMessageFrame(s.conn, buf.Bytes())
}

func (s *singleSubscriberPublisher) GetSubscriberName() string { return s.subscriberName }
func (s *singleSubscriberPublisher) GetTopic() string          { return s.pub.topic }

// pubHandle is the user-visible Publisher returned from NewPublisher;
// multiple handles may share one defaultPublisher (one per topic), and
// the underlying Publication is torn down only when the last handle's
// Shutdown is called.
type pubHandle struct {
	node *defaultNode
	name string
	pub  *defaultPublisher
}

func (h *pubHandle) Publish(msg Message)    { h.pub.Publish(msg) }
func (h *pubHandle) GetNumSubscribers() int { return h.pub.GetNumSubscribers() }

func (h *pubHandle) Shutdown() {
	if atomic.AddInt32(&h.pub.refCount, -1) > 0 {
		return
	}
	h.node.publishersMutex.Lock()
	if current, ok := h.node.publishers[h.name]; ok && current == h.pub {
		delete(h.node.publishers, h.name)
	}
	h.node.publishersMutex.Unlock()
	h.pub.shutdownNow()
}
