package ros

import (
	"bytes"
	"testing"
)

func TestDynamicMessageTypeAccessors(t *testing.T) {
	mt := NewDynamicMessageType("std_msgs/String", "992ce8a1687cec8cc8d0b3a073b1e4d1", "string data")
	if mt.Name() != "std_msgs/String" {
		t.Errorf("Name() = %q", mt.Name())
	}
	if mt.MD5Sum() != "992ce8a1687cec8cc8d0b3a073b1e4d1" {
		t.Errorf("MD5Sum() = %q", mt.MD5Sum())
	}
	if mt.Text() != "string data" {
		t.Errorf("Text() = %q", mt.Text())
	}
}

func TestDynamicMessageNewMessageHasType(t *testing.T) {
	mt := NewDynamicMessageType("std_msgs/String", "992ce8a1687cec8cc8d0b3a073b1e4d1", "string data")
	msg := mt.NewMessage()
	if msg.Type() != mt {
		t.Error("NewMessage's Type() should return the originating MessageType")
	}
}

func TestDynamicMessageSerializeRoundTrip(t *testing.T) {
	mt := NewDynamicMessageType("std_msgs/String", "992ce8a1687cec8cc8d0b3a073b1e4d1", "string data")
	dm := mt.NewMessage().(*DynamicMessage)

	payload := []byte{0x05, 0x00, 0x00, 0x00, 'h', 'e', 'l', 'l', 'o'}
	dm.SetBytes(payload)

	var buf bytes.Buffer
	if err := dm.Serialize(&buf); err != nil {
		t.Fatalf("Serialize: %v", err)
	}
	if !bytes.Equal(buf.Bytes(), payload) {
		t.Errorf("Serialize wrote %v, want %v", buf.Bytes(), payload)
	}

	other := mt.NewMessage().(*DynamicMessage)
	if err := other.Deserialize(bytes.NewReader(buf.Bytes())); err != nil {
		t.Fatalf("Deserialize: %v", err)
	}
	if !bytes.Equal(other.Bytes(), payload) {
		t.Errorf("Deserialize captured %v, want %v", other.Bytes(), payload)
	}
}

func TestDynamicMessageDeserializeEmpty(t *testing.T) {
	mt := NewDynamicMessageType("std_msgs/Empty", "d41d8cd98f00b204e9800998ecf8427e", "")
	dm := mt.NewMessage().(*DynamicMessage)
	if err := dm.Deserialize(bytes.NewReader(nil)); err != nil {
		t.Fatalf("Deserialize of empty body: %v", err)
	}
	if len(dm.Bytes()) != 0 {
		t.Errorf("Bytes() = %v, want empty", dm.Bytes())
	}
}
