package ros

import (
	"bytes"
	"testing"
)

func TestSerializeDeserializePrimitives(t *testing.T) {
	var buf bytes.Buffer
	if err := SerializeField(&buf, int32(-7)); err != nil {
		t.Fatalf("SerializeField int32: %v", err)
	}
	if err := SerializeField(&buf, "hello"); err != nil {
		t.Fatalf("SerializeField string: %v", err)
	}

	r := bytes.NewReader(buf.Bytes())
	var n int32
	if err := DeserializeField(r, &n); err != nil {
		t.Fatalf("DeserializeField int32: %v", err)
	}
	if n != -7 {
		t.Errorf("int32 round trip = %d, want -7", n)
	}
	var s string
	if err := DeserializeField(r, &s); err != nil {
		t.Fatalf("DeserializeField string: %v", err)
	}
	if s != "hello" {
		t.Errorf("string round trip = %q, want %q", s, "hello")
	}
}

func TestSerializeDeserializeVariableSlice(t *testing.T) {
	in := []int32{1, 2, 3, -4}
	var buf bytes.Buffer
	if err := SerializeField(&buf, in); err != nil {
		t.Fatalf("SerializeField slice: %v", err)
	}

	var out []int32
	if err := DeserializeField(bytes.NewReader(buf.Bytes()), &out); err != nil {
		t.Fatalf("DeserializeField slice: %v", err)
	}
	if len(out) != len(in) {
		t.Fatalf("len(out) = %d, want %d", len(out), len(in))
	}
	for i := range in {
		if out[i] != in[i] {
			t.Errorf("out[%d] = %d, want %d", i, out[i], in[i])
		}
	}
}

func TestSerializeDeserializeFixedArray(t *testing.T) {
	in := [3]float64{1.5, -2.25, 3.0}
	var buf bytes.Buffer
	if err := SerializeField(&buf, in); err != nil {
		t.Fatalf("SerializeField array: %v", err)
	}

	var out [3]float64
	if err := DeserializeField(bytes.NewReader(buf.Bytes()), &out); err != nil {
		t.Fatalf("DeserializeField array: %v", err)
	}
	if out != in {
		t.Errorf("out = %v, want %v", out, in)
	}
}

func TestSerializeTimeAndDuration(t *testing.T) {
	ti := Time{Sec: 100, NSec: 200}
	var buf bytes.Buffer
	if err := SerializeField(&buf, &ti); err != nil {
		t.Fatalf("SerializeField Time: %v", err)
	}
	var outTi Time
	if err := DeserializeField(bytes.NewReader(buf.Bytes()), &outTi); err != nil {
		t.Fatalf("DeserializeField Time: %v", err)
	}
	if outTi != ti {
		t.Errorf("Time round trip = %+v, want %+v", outTi, ti)
	}

	du := Duration{Sec: -3, NSec: 50}
	buf.Reset()
	if err := SerializeField(&buf, &du); err != nil {
		t.Fatalf("SerializeField Duration: %v", err)
	}
	var outDu Duration
	if err := DeserializeField(bytes.NewReader(buf.Bytes()), &outDu); err != nil {
		t.Fatalf("DeserializeField Duration: %v", err)
	}
	if outDu != du {
		t.Errorf("Duration round trip = %+v, want %+v", outDu, du)
	}
}

func TestSerializeFieldUnknownTypeFails(t *testing.T) {
	var buf bytes.Buffer
	if err := SerializeField(&buf, make(chan int)); err == nil {
		t.Fatal("expected SerializeField to reject an unsupported type")
	}
}

func TestDeserializeFieldRequiresPointer(t *testing.T) {
	if err := DeserializeField(bytes.NewReader(nil), int32(0)); err == nil {
		t.Fatal("expected DeserializeField to reject a non-pointer destination")
	}
}
