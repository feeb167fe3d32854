package ros

import (
	"errors"
	"net"
	"testing"
)

type fakeTimeoutErr struct{}

func (fakeTimeoutErr) Error() string   { return "i/o timeout" }
func (fakeTimeoutErr) Timeout() bool   { return true }
func (fakeTimeoutErr) Temporary() bool { return false }

var _ net.Error = fakeTimeoutErr{}

func TestIsKind(t *testing.T) {
	err := SerializationErrorf("bad md5sum")
	if !IsKind(err, KindSerialization) {
		t.Error("IsKind should match the constructed Kind")
	}
	if IsKind(err, KindIO) {
		t.Error("IsKind should not match an unrelated Kind")
	}
	if IsKind(errors.New("plain"), KindIO) {
		t.Error("IsKind should not match a non-*Error")
	}
}

func TestErrorUnwrap(t *testing.T) {
	cause := errors.New("dial refused")
	err := IoErrorf(cause, "dial provider")
	if errors.Unwrap(err) == nil {
		t.Fatal("IoErrorf should wrap its cause so errors.Unwrap succeeds")
	}
	if !errors.Is(err, cause) {
		t.Error("errors.Is should see through the wrapped cause")
	}
}

func TestClassifyIOErrTimeout(t *testing.T) {
	err := classifyIOErr(fakeTimeoutErr{}, "dial peer")
	if !IsKind(err, KindTimeout) {
		t.Errorf("classifyIOErr of a timed-out net.Error should be KindTimeout, got %v", err)
	}
}

func TestClassifyIOErrGenericIO(t *testing.T) {
	err := classifyIOErr(errors.New("connection reset"), "dial peer")
	if !IsKind(err, KindIO) {
		t.Errorf("classifyIOErr of a plain error should be KindIO, got %v", err)
	}
}

func TestInvalidNamef(t *testing.T) {
	err := InvalidNamef("bad name")
	if !IsKind(err, KindInvalidName) {
		t.Error("InvalidNamef should produce a KindInvalidName error")
	}
}
