package ros

import "bytes"

// MessageType is the per-type descriptor every generated message package
// exposes as a package-level value (e.g. std_msgs.MsgString).
type MessageType interface {
	Text() string
	MD5Sum() string
	Name() string
	NewMessage() Message
}

// Message is implemented by every generated record type, and by
// DynamicMessage for the untyped bag-replay path.
type Message interface {
	Type() MessageType
	Serialize(buf *bytes.Buffer) error
	Deserialize(buf *bytes.Reader) error
}

// ServiceType is the per-type descriptor every generated service package
// exposes, analogous to MessageType but for request/response pairs.
type ServiceType interface {
	Name() string
	MD5Sum() string
	ReqType() MessageType
	ResType() MessageType
	NewService() Service
}

// Service is implemented by every generated service record, pairing a
// request and response message so ServiceClient.Call and a service
// handler can exchange both without type assertions outside this
// package.
type Service interface {
	ReqMessage() Message
	ResMessage() Message
}
