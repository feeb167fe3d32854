package ros

import (
	"bytes"
	"io"
)

// DynamicMessageType is a MessageType reified from data rather than
// generated code: a recorded bag, or a node that only knows a topic's
// name/md5sum/definition at runtime, can still publish or subscribe to
// it without a gengo-emitted Go type.
type DynamicMessageType struct {
	name string
	md5  string
	text string
}

// NewDynamicMessageType builds a MessageType from a type's reified
// descriptor, as carried in a TCPROS connection header.
func NewDynamicMessageType(name, md5sum, text string) *DynamicMessageType {
	return &DynamicMessageType{name: name, md5: md5sum, text: text}
}

func (t *DynamicMessageType) Text() string   { return t.text }
func (t *DynamicMessageType) MD5Sum() string { return t.md5 }
func (t *DynamicMessageType) Name() string   { return t.name }

func (t *DynamicMessageType) NewMessage() Message {
	return &DynamicMessage{dynamicType: t}
}

// DynamicMessage holds a message's wire bytes verbatim instead of
// decoding them into named fields. Serialize/Deserialize are therefore
// copies, not codecs: the bytes a subscriber receives are exactly the
// bytes a republishing DynamicMessage would send.
type DynamicMessage struct {
	dynamicType *DynamicMessageType
	bytes       []byte
}

func (m *DynamicMessage) Type() MessageType { return m.dynamicType }

// Bytes returns the raw serialized message body, valid after a
// subscriber callback has deserialized into m or after SetBytes.
func (m *DynamicMessage) Bytes() []byte { return m.bytes }

// SetBytes replaces the raw serialized message body a publisher will
// send, letting a bag replayer forward a recorded frame unmodified.
func (m *DynamicMessage) SetBytes(b []byte) { m.bytes = b }

func (m *DynamicMessage) Serialize(buf *bytes.Buffer) error {
	_, err := buf.Write(m.bytes)
	return err
}

func (m *DynamicMessage) Deserialize(buf *bytes.Reader) error {
	data, err := io.ReadAll(buf)
	if err != nil {
		return err
	}
	m.bytes = data
	return nil
}
