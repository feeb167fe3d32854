package ros

import (
	"bytes"
	"io"
	"net"
	"sync"
	"time"
)

// defaultServiceClient calls a single named service, looking its
// provider up through the master on every Call unless configured
// persistent, in which case one TCP connection is kept open and reused.
type defaultServiceClient struct {
	logger  Logger
	master  *masterClient
	service string
	srvType ServiceType
	cfg     serviceClientConfig

	mu   sync.Mutex
	conn net.Conn
}

func newDefaultServiceClient(logger Logger, callerID, masterURI, service string, srvType ServiceType, opts ...ServiceClientOption) *defaultServiceClient {
	var cfg serviceClientConfig
	for _, opt := range opts {
		opt(&cfg)
	}
	return &defaultServiceClient{
		logger:  logger.WithField("service", service),
		master:  newMasterClient(masterURI, callerID),
		service: service,
		srvType: srvType,
		cfg:     cfg,
	}
}

// Call performs the full TCPROS service handshake: look up the
// provider, dial (or reuse a persistent connection), exchange headers,
// write the serialized request, and read back the one-byte success
// flag plus the serialized response or error string.
func (c *defaultServiceClient) Call(srv Service) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	conn, err := c.getConn()
	if err != nil {
		return err
	}

	if c.cfg.probe {
		// A probe only exchanges headers; no request is sent.
		conn.Close()
		c.conn = nil
		return nil
	}

	if err := c.doServiceRequest(conn, srv); err != nil {
		conn.Close()
		if conn == c.conn {
			c.conn = nil
		}
		return err
	}

	if !c.cfg.persistent {
		conn.Close()
		c.conn = nil
	}
	return nil
}

func (c *defaultServiceClient) getConn() (net.Conn, error) {
	if c.cfg.persistent && c.conn != nil {
		return c.conn, nil
	}

	providerURI, err := c.master.lookupService(c.service)
	if err != nil {
		return nil, wrapErr(KindDisconnected, "lookupService("+c.service+")", err)
	}

	addr := trimTCPPrefix(providerURI)
	conn, err := net.DialTimeout("tcp", addr, 10*time.Second)
	if err != nil {
		return nil, classifyIOErr(err, "dial service provider "+addr)
	}

	outHeader := []header{
		{"callerid", c.master.callerID},
		{"service", c.service},
		{"md5sum", c.srvType.MD5Sum()},
		{"type", c.srvType.Name()},
	}
	if c.cfg.persistent {
		outHeader = append(outHeader, header{"persistent", "1"})
	}
	if c.cfg.probe {
		outHeader = append(outHeader, header{"probe", "1"})
	}
	if err := writeConnectionHeader(outHeader, conn); err != nil {
		conn.Close()
		return nil, err
	}

	fields, err := readConnectionHeader(conn)
	if err != nil {
		conn.Close()
		return nil, err
	}
	peer := headerMap(fields)
	if errMsg, ok := peer["error"]; ok {
		conn.Close()
		return nil, ServerErrorf("service provider rejected connection: %s", errMsg)
	}
	if !md5Matches(c.srvType.MD5Sum(), peer["md5sum"]) {
		conn.Close()
		return nil, SerializationErrorf("md5sum mismatch calling %s", c.service)
	}

	if c.cfg.persistent {
		c.conn = conn
	}
	return conn, nil
}

func (c *defaultServiceClient) doServiceRequest(conn net.Conn, srv Service) error {
	var buf bytes.Buffer
	if err := srv.ReqMessage().Serialize(&buf); err != nil {
		return wrapErr(KindSerialization, "serialize service request", err)
	}
	if err := writeMessageFrame(conn, buf.Bytes()); err != nil {
		return IoErrorf(err, "write service request")
	}

	var okFlag [1]byte
	if _, err := io.ReadFull(conn, okFlag[:]); err != nil {
		return IoErrorf(err, "read service response flag")
	}

	if okFlag[0] == 0 {
		payload, err := readRawMessage(conn)
		if err != nil {
			return IoErrorf(err, "read service error message")
		}
		return ServerErrorf("service call failed: %s", string(payload))
	}

	payload, err := readRawMessage(conn)
	if err != nil {
		return IoErrorf(err, "read service response body")
	}
	if err := srv.ResMessage().Deserialize(bytes.NewReader(payload)); err != nil {
		return wrapErr(KindSerialization, "deserialize service response", err)
	}
	return nil
}

func (c *defaultServiceClient) Shutdown() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}
}

func trimTCPPrefix(uri string) string {
	const prefix = "rosrpc://"
	if len(uri) > len(prefix) && uri[:len(prefix)] == prefix {
		return uri[len(prefix):]
	}
	return uri
}
