package ros

import (
	"bytes"
	"net"
	"reflect"
	"sync"
)

// defaultServiceServer advertises one service with the master and
// serves every incoming TCPROS connection by running the user's
// callback, which has the shape func(*ReqType) (*ResType, bool).
type defaultServiceServer struct {
	logger     Logger
	master     *masterClient
	service    string
	serviceAPI string
	srvType    ServiceType
	handler    reflect.Value
	listener   net.Listener

	shutdownMu sync.Mutex
	shutdown   bool
}

func newDefaultServiceServer(node *defaultNode, service string, srvType ServiceType, handler interface{}) (*defaultServiceServer, error) {
	listener, err := net.Listen("tcp", node.listenIP+":0")
	if err != nil {
		return nil, IoErrorf(err, "listen for service "+service)
	}

	srv := &defaultServiceServer{
		logger:   node.logger.WithField("service", service),
		master:   node.master,
		service:  service,
		srvType:  srvType,
		handler:  reflect.ValueOf(handler),
		listener: listener,
	}

	_, port, err := net.SplitHostPort(listener.Addr().String())
	if err != nil {
		listener.Close()
		return nil, err
	}
	srv.serviceAPI = "rosrpc://" + node.hostname + ":" + port

	if err := node.master.registerService(service, srv.serviceAPI, node.xmlrpcURI); err != nil {
		listener.Close()
		return nil, err
	}

	go srv.acceptLoop()
	return srv, nil
}

func (srv *defaultServiceServer) acceptLoop() {
	for {
		conn, err := srv.listener.Accept()
		if err != nil {
			return
		}
		go srv.handleConnection(conn)
	}
}

func (srv *defaultServiceServer) handleConnection(conn net.Conn) {
	defer conn.Close()

	fields, err := readConnectionHeader(conn)
	if err != nil {
		srv.logger.Debugf("failed to read client header: %v", err)
		return
	}
	peer := headerMap(fields)

	if !md5Matches(srv.srvType.MD5Sum(), peer["md5sum"]) {
		writeErrorHeader(conn, "md5sum mismatch")
		return
	}

	respHeader := []header{
		{"callerid", srv.master.callerID},
		{"md5sum", srv.srvType.MD5Sum()},
		{"type", srv.srvType.Name()},
	}
	if err := writeConnectionHeader(respHeader, conn); err != nil {
		return
	}

	if peer["probe"] == "1" {
		return
	}

	for {
		payload, err := readRawMessage(conn)
		if err != nil {
			return
		}

		req := srv.srvType.ReqType().NewMessage()
		if err := req.Deserialize(bytes.NewReader(payload)); err != nil {
			srv.logger.Errorf("failed to deserialize request: %v", err)
			return
		}

		results := srv.handler.Call([]reflect.Value{reflect.ValueOf(req)})
		res := results[0].Interface().(Message)
		ok := results[1].Bool()

		if !ok {
			var okByte [1]byte
			okByte[0] = 0
			conn.Write(okByte[:])
			writeMessageFrame(conn, []byte("service callback returned failure"))
			return
		}

		var buf bytes.Buffer
		if err := res.Serialize(&buf); err != nil {
			srv.logger.Errorf("failed to serialize response: %v", err)
			return
		}

		var okByte [1]byte
		okByte[0] = 1
		if _, err := conn.Write(okByte[:]); err != nil {
			return
		}
		if err := writeMessageFrame(conn, buf.Bytes()); err != nil {
			return
		}

		if peer["persistent"] != "1" {
			return
		}
	}
}

func (srv *defaultServiceServer) Shutdown() {
	srv.shutdownMu.Lock()
	defer srv.shutdownMu.Unlock()
	if srv.shutdown {
		return
	}
	srv.shutdown = true
	srv.listener.Close()
	// Detached: teardown must not cancel the future doing it.
	go func() {
		if err := srv.master.unregisterService(srv.service, srv.serviceAPI); err != nil {
			srv.logger.Warnf("unregisterService failed: %v", err)
		}
	}()
}
