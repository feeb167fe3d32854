package ros

import (
	"context"
	"encoding/binary"
	"io"
	"net"
	"time"
)

// defaultSubscription owns the TCPROS socket to exactly one publisher.
// It performs the connection-header handshake, then reads
// length-prefixed message frames in a loop until ctx is canceled or the
// socket fails, reconnecting on failure with a short backoff.
type defaultSubscription struct {
	remoteURI  string
	topic      string
	msgType    MessageType
	callerID   string
	tcpNoDelay bool

	msgChan          chan messageEvent
	disconnectedChan chan<- string
}

func newDefaultSubscription(remoteURI, topic string, msgType MessageType, callerID string, msgChan chan messageEvent, disconnectedChan chan<- string, tcpNoDelay bool) *defaultSubscription {
	return &defaultSubscription{
		remoteURI:        remoteURI,
		topic:            topic,
		msgType:          msgType,
		callerID:         callerID,
		tcpNoDelay:       tcpNoDelay,
		msgChan:          msgChan,
		disconnectedChan: disconnectedChan,
	}
}

// start runs the subscription's connect/read/reconnect loop in its own
// goroutine, returning immediately. The loop exits when ctx is
// canceled.
func (s *defaultSubscription) start(ctx context.Context, logger Logger) {
	go s.run(ctx, logger.WithField("publisher", s.remoteURI))
}

const subscriptionReconnectDelay = 1 * time.Second

func (s *defaultSubscription) run(ctx context.Context, log Logger) {
	defer func() {
		select {
		case s.disconnectedChan <- s.remoteURI:
		default:
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		conn, header, err := s.connect(ctx)
		if err != nil {
			log.Debugf("connect failed: %v", err)
			if !sleepOrDone(ctx, subscriptionReconnectDelay) {
				return
			}
			continue
		}

		err = s.readLoop(ctx, conn, header, log)
		conn.Close()
		if err != nil {
			log.Debugf("connection ended: %v", err)
		}

		select {
		case <-ctx.Done():
			return
		default:
		}
		if !sleepOrDone(ctx, subscriptionReconnectDelay) {
			return
		}
	}
}

func sleepOrDone(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

// connect dials remoteURI, exchanges connection headers and checks MD5
// compatibility, returning the open socket plus the publisher's side of
// the header for building MessageEvent metadata.
func (s *defaultSubscription) connect(ctx context.Context) (net.Conn, map[string]string, error) {
	dialer := net.Dialer{Timeout: 10 * time.Second}
	conn, err := dialer.DialContext(ctx, "tcp", s.remoteURI)
	if err != nil {
		return nil, nil, classifyIOErr(err, "dial "+s.remoteURI)
	}

	outHeader := []header{
		{"callerid", s.callerID},
		{"topic", s.topic},
		{"type", s.msgType.Name()},
		{"md5sum", s.msgType.MD5Sum()},
		{"tcp_nodelay", boolHeaderValue(s.tcpNoDelay)},
	}
	if err := writeConnectionHeader(outHeader, conn); err != nil {
		conn.Close()
		return nil, nil, err
	}

	fields, err := readConnectionHeader(conn)
	if err != nil {
		conn.Close()
		return nil, nil, err
	}
	peer := headerMap(fields)

	if errMsg, ok := peer["error"]; ok {
		conn.Close()
		return nil, nil, ServerErrorf("publisher rejected connection: %s", errMsg)
	}
	if !md5Matches(s.msgType.MD5Sum(), peer["md5sum"]) {
		conn.Close()
		return nil, nil, SerializationErrorf("md5sum mismatch: expected %s, got %s", s.msgType.MD5Sum(), peer["md5sum"])
	}

	if s.tcpNoDelay || peer["tcp_nodelay"] == "1" {
		if tcpConn, ok := conn.(*net.TCPConn); ok {
			tcpConn.SetNoDelay(true)
		}
	}

	return conn, peer, nil
}

// readLoop reads one length-prefixed message frame at a time and
// forwards each to msgChan tagged with MessageEvent metadata built from
// header, until ctx is canceled or a read fails.
func (s *defaultSubscription) readLoop(ctx context.Context, conn net.Conn, header map[string]string, log Logger) error {
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	for {
		payload, err := readRawMessage(conn)
		if err != nil {
			return err
		}

		evt := messageEvent{
			bytes: payload,
			event: MessageEvent{
				PublisherName:    header["callerid"],
				ReceiptTime:      time.Now(),
				ConnectionHeader: header,
			},
		}
		select {
		case s.msgChan <- evt:
		case <-ctx.Done():
			return nil
		default:
			// Queue full: drop the oldest buffered event to make room,
			// matching ROS1's best-effort subscription delivery.
			select {
			case <-s.msgChan:
			default:
			}
			select {
			case s.msgChan <- evt:
			default:
			}
		}
	}
}

// readRawMessage reads one TCPROS length-prefixed frame: a 4-byte
// little-endian size followed by that many bytes of serialized message.
func readRawMessage(r io.Reader) ([]byte, error) {
	size, err := readFrameSize(r)
	if err != nil {
		return nil, err
	}
	buf := make([]byte, size)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, IoErrorf(err, "read message body")
	}
	return buf, nil
}

func readFrameSize(r io.Reader) (uint32, error) {
	var lenBuf [4]byte
	if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
		return 0, IoErrorf(err, "read message length prefix")
	}
	return binary.LittleEndian.Uint32(lenBuf[:]), nil
}
