package ros

import (
	"bytes"
	"net"
	"reflect"
	"testing"
	"time"
)

type echoServiceType struct {
	reqType, resType MessageType
}

func (t *echoServiceType) Name() string         { return "test_srv/Echo" }
func (t *echoServiceType) MD5Sum() string       { return "deadbeefdeadbeefdeadbeefdeadbeef" }
func (t *echoServiceType) ReqType() MessageType { return t.reqType }
func (t *echoServiceType) ResType() MessageType { return t.resType }
func (t *echoServiceType) NewService() Service  { return nil }

func TestServiceServerHandleConnectionEchoesRequest(t *testing.T) {
	handler := func(req *DynamicMessage) (*DynamicMessage, bool) {
		res := &DynamicMessage{}
		res.SetBytes(req.Bytes())
		return res, true
	}
	srvType := &echoServiceType{
		reqType: NewDynamicMessageType("test_srv/Req", "deadbeefdeadbeefdeadbeefdeadbeef", ""),
		resType: NewDynamicMessageType("test_srv/Res", "deadbeefdeadbeefdeadbeefdeadbeef", ""),
	}
	srv := &defaultServiceServer{
		logger:  NewDefaultLogger(),
		master:  newMasterClient("http://localhost:0", "/tester"),
		service: "/echo",
		srvType: srvType,
		handler: reflect.ValueOf(handler),
	}

	clientConn, serverConn := net.Pipe()
	go srv.handleConnection(serverConn)

	clientConn.SetDeadline(time.Now().Add(5 * time.Second))

	outHeader := []header{
		{"callerid", "/client"},
		{"md5sum", srvType.MD5Sum()},
	}
	if err := writeConnectionHeader(outHeader, clientConn); err != nil {
		t.Fatalf("writeConnectionHeader: %v", err)
	}

	respFields, err := readConnectionHeader(clientConn)
	if err != nil {
		t.Fatalf("readConnectionHeader: %v", err)
	}
	respMap := headerMap(respFields)
	if respMap["md5sum"] != srvType.MD5Sum() {
		t.Fatalf("response md5sum = %q", respMap["md5sum"])
	}

	if err := writeMessageFrame(clientConn, []byte("ping")); err != nil {
		t.Fatalf("writeMessageFrame: %v", err)
	}

	var okByte [1]byte
	if _, err := clientConn.Read(okByte[:]); err != nil {
		t.Fatalf("read ok byte: %v", err)
	}
	if okByte[0] != 1 {
		t.Fatalf("ok byte = %d, want 1", okByte[0])
	}

	payload, err := readRawMessage(clientConn)
	if err != nil {
		t.Fatalf("readRawMessage: %v", err)
	}
	if !bytes.Equal(payload, []byte("ping")) {
		t.Errorf("response payload = %q, want %q", payload, "ping")
	}

	clientConn.Close()
}

func TestServiceServerHandleConnectionRejectsMD5Mismatch(t *testing.T) {
	handler := func(req *DynamicMessage) (*DynamicMessage, bool) {
		return &DynamicMessage{}, true
	}
	srvType := &echoServiceType{
		reqType: NewDynamicMessageType("test_srv/Req", "deadbeefdeadbeefdeadbeefdeadbeef", ""),
		resType: NewDynamicMessageType("test_srv/Res", "deadbeefdeadbeefdeadbeefdeadbeef", ""),
	}
	srv := &defaultServiceServer{
		logger:  NewDefaultLogger(),
		master:  newMasterClient("http://localhost:0", "/tester"),
		service: "/echo",
		srvType: srvType,
		handler: reflect.ValueOf(handler),
	}

	clientConn, serverConn := net.Pipe()
	go srv.handleConnection(serverConn)
	clientConn.SetDeadline(time.Now().Add(5 * time.Second))

	outHeader := []header{{"callerid", "/client"}, {"md5sum", "wrongwrongwrongwrongwrongwrongwr"}}
	if err := writeConnectionHeader(outHeader, clientConn); err != nil {
		t.Fatalf("writeConnectionHeader: %v", err)
	}

	fields, err := readConnectionHeader(clientConn)
	if err != nil {
		t.Fatalf("readConnectionHeader: %v", err)
	}
	m := headerMap(fields)
	if _, ok := m["error"]; !ok {
		t.Errorf("expected an error header on md5 mismatch, got %v", m)
	}
}
