package ros

import (
	"bytes"
	"encoding/binary"
	"io"
	"reflect"
)

// wireTimeValue is implemented by both Time and Duration.
type wireTimeValue interface {
	Serialize(w io.Writer) error
}

// wireTimePtr is implemented by *Time and *Duration.
type wireTimePtr interface {
	Deserialize(r io.Reader) error
}

// SerializeField writes one generated struct field to buf in TCPROS
// wire order. It is called from gengo-emitted Serialize methods, so it
// must handle every Go type goFieldType can produce: the ROS1
// primitives, string, fixed and variable arrays of any of those, and
// nested message/Time/Duration values.
func SerializeField(buf *bytes.Buffer, v interface{}) error {
	switch t := v.(type) {
	case bool:
		return binary.Write(buf, binary.LittleEndian, t)
	case int8, uint8, int16, uint16, int32, uint32, int64, uint64, float32, float64:
		return binary.Write(buf, binary.LittleEndian, t)
	case string:
		if err := binary.Write(buf, binary.LittleEndian, uint32(len(t))); err != nil {
			return err
		}
		_, err := buf.WriteString(t)
		return err
	case Message:
		return t.Serialize(buf)
	case wireTimeValue:
		return t.Serialize(buf)
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Array:
		return serializeArrayElems(buf, rv)
	case reflect.Slice:
		if err := binary.Write(buf, binary.LittleEndian, uint32(rv.Len())); err != nil {
			return err
		}
		return serializeArrayElems(buf, rv)
	}

	return SerializationErrorf("cannot serialize field of type %T", v)
}

func serializeArrayElems(buf *bytes.Buffer, rv reflect.Value) error {
	for i := 0; i < rv.Len(); i++ {
		elem := rv.Index(i)
		// Slice elements are always addressable; fixed array elements
		// are addressable only when the array itself came from an
		// addressable field, which a boxed interface{} value is not.
		// Generated sub-message elements need the pointer form to satisfy
		// their pointer-receiver Serialize method; Time and Duration
		// serialize through either form.
		if elem.Kind() == reflect.Struct && elem.CanAddr() {
			if err := SerializeField(buf, elem.Addr().Interface()); err != nil {
				return err
			}
			continue
		}
		if err := SerializeField(buf, elem.Interface()); err != nil {
			return err
		}
	}
	return nil
}

// DeserializeField reads one field back from buf into the value
// pointed to by v, the inverse of SerializeField.
func DeserializeField(buf *bytes.Reader, v interface{}) error {
	switch t := v.(type) {
	case *bool, *int8, *uint8, *int16, *uint16, *int32, *uint32, *int64, *uint64, *float32, *float64:
		return binary.Read(buf, binary.LittleEndian, t)
	case *string:
		var n uint32
		if err := binary.Read(buf, binary.LittleEndian, &n); err != nil {
			return err
		}
		data := make([]byte, n)
		if _, err := io.ReadFull(buf, data); err != nil {
			return err
		}
		*t = string(data)
		return nil
	case Message:
		return t.Deserialize(buf)
	case wireTimePtr:
		return t.Deserialize(buf)
	}

	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Ptr {
		return SerializationErrorf("DeserializeField requires a pointer, got %T", v)
	}
	elem := rv.Elem()

	switch elem.Kind() {
	case reflect.Array:
		return deserializeArrayElems(buf, elem, elem.Len())
	case reflect.Slice:
		var n uint32
		if err := binary.Read(buf, binary.LittleEndian, &n); err != nil {
			return err
		}
		elem.Set(reflect.MakeSlice(elem.Type(), int(n), int(n)))
		return deserializeArrayElems(buf, elem, int(n))
	}

	return SerializationErrorf("cannot deserialize field of type %T", v)
}

func deserializeArrayElems(buf *bytes.Reader, rv reflect.Value, n int) error {
	for i := 0; i < n; i++ {
		if err := DeserializeField(buf, rv.Index(i).Addr().Interface()); err != nil {
			return err
		}
	}
	return nil
}
