package ros

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"strings"
)

// header is one KEY=VALUE pair of a TCPROS connection header. Order is
// preserved because the wire format is a sequence, not a map, even
// though duplicate keys are rejected on parse.
type header struct {
	key   string
	value string
}

// maxHeaderBlockSize bounds the outer length prefix so a corrupt or
// malicious peer cannot make us allocate unbounded memory while reading
// a handshake header.
const maxHeaderBlockSize = 8 << 20 // 8 MiB, generous for any real header

// writeConnectionHeader serializes fields as the TCPROS connection
// header wire format: a 32-bit little-endian byte count, followed by
// that many bytes of repeated (length-prefixed "KEY=VALUE") entries.
func writeConnectionHeader(fields []header, w io.Writer) error {
	var body bytes.Buffer
	for _, f := range fields {
		entry := f.key + "=" + f.value
		if err := binary.Write(&body, binary.LittleEndian, uint32(len(entry))); err != nil {
			return err
		}
		if _, err := body.WriteString(entry); err != nil {
			return err
		}
	}
	if err := binary.Write(w, binary.LittleEndian, uint32(body.Len())); err != nil {
		return err
	}
	_, err := w.Write(body.Bytes())
	return err
}

// writeErrorHeader writes a single-field header containing the "error"
// key; the caller is expected to close the socket immediately after.
func writeErrorHeader(w io.Writer, message string) error {
	return writeConnectionHeader([]header{{"error", message}}, w)
}

// readConnectionHeader reads the outer length, then greedily parses
// inner length-prefixed "KEY=VALUE" pairs. Unknown keys are preserved;
// a duplicate key is an error.
func readConnectionHeader(r io.Reader) ([]header, error) {
	var blockLen uint32
	if err := binary.Read(r, binary.LittleEndian, &blockLen); err != nil {
		return nil, err
	}
	if blockLen > maxHeaderBlockSize {
		return nil, SerializationErrorf("connection header block too large: %d bytes", blockLen)
	}
	block := make([]byte, blockLen)
	if _, err := io.ReadFull(r, block); err != nil {
		return nil, err
	}

	var fields []header
	seen := make(map[string]bool)
	buf := bytes.NewReader(block)
	for buf.Len() > 0 {
		if buf.Len() < 4 {
			return nil, SerializationErrorf("truncated connection header entry")
		}
		var entryLen uint32
		if err := binary.Read(buf, binary.LittleEndian, &entryLen); err != nil {
			return nil, err
		}
		if int(entryLen) > buf.Len() {
			return nil, SerializationErrorf("truncated connection header entry")
		}
		entry := make([]byte, entryLen)
		if _, err := io.ReadFull(buf, entry); err != nil {
			return nil, err
		}
		kv := strings.SplitN(string(entry), "=", 2)
		if len(kv) != 2 {
			return nil, SerializationErrorf("malformed connection header entry %q", entry)
		}
		key, value := kv[0], kv[1]
		if seen[key] {
			return nil, SerializationErrorf("duplicate connection header key %q", key)
		}
		seen[key] = true
		fields = append(fields, header{key: key, value: value})
	}
	return fields, nil
}

// headerMap is a convenience view over a parsed header for lookups; it
// exists only at call sites, never on the wire (the wire form must stay
// an ordered sequence so header parse/emit symmetry holds irrespective
// of key order).
func headerMap(fields []header) map[string]string {
	m := make(map[string]string, len(fields))
	for _, f := range fields {
		m[f.key] = f.value
	}
	return m
}

func headerFromMap(m map[string]string) []header {
	fields := make([]header, 0, len(m))
	for k, v := range m {
		fields = append(fields, header{key: k, value: v})
	}
	return fields
}

// md5Matches implements the "*" wildcard relaxation used on both sides
// of a TCPROS handshake; relaxation is honored in both directions.
func md5Matches(local, remote string) bool {
	return local == remote || local == "*" || remote == "*"
}

func (h header) String() string {
	return fmt.Sprintf("%s=%s", h.key, h.value)
}
