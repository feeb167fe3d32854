package ros

import (
	"encoding/binary"
	"io"
	"time"
)

// Time is the ROS1 wire representation of a point in time: two uint32
// fields, seconds and nanoseconds since the epoch.
type Time struct {
	Sec  uint32
	NSec uint32
}

// Duration is the ROS1 wire representation of a span of time: two int32
// fields, seconds and nanoseconds, signed because durations may be
// negative.
type Duration struct {
	Sec  int32
	NSec int32
}

// Now returns the current wall-clock time as a ros.Time.
func Now() Time {
	t := time.Now()
	return Time{Sec: uint32(t.Unix()), NSec: uint32(t.Nanosecond())}
}

// NewDuration builds a Duration from separate seconds and nanoseconds
// components.
func NewDuration(sec int32, nsec int32) Duration {
	return Duration{Sec: sec, NSec: nsec}
}

// ToTime converts a ros.Time to the standard library representation.
func (t Time) ToTime() time.Time {
	return time.Unix(int64(t.Sec), int64(t.NSec))
}

// ToDuration converts a ros.Duration to the standard library representation.
func (d Duration) ToDuration() time.Duration {
	return time.Duration(d.Sec)*time.Second + time.Duration(d.NSec)*time.Nanosecond
}

// Serialize writes t in wire order: two little-endian uint32s.
func (t Time) Serialize(w io.Writer) error {
	if err := binary.Write(w, binary.LittleEndian, t.Sec); err != nil {
		return err
	}
	return binary.Write(w, binary.LittleEndian, t.NSec)
}

// Deserialize reads a Time from its wire representation.
func (t *Time) Deserialize(r io.Reader) error {
	if err := binary.Read(r, binary.LittleEndian, &t.Sec); err != nil {
		return err
	}
	return binary.Read(r, binary.LittleEndian, &t.NSec)
}

// Serialize writes d in wire order: two little-endian int32s.
func (d Duration) Serialize(w io.Writer) error {
	if err := binary.Write(w, binary.LittleEndian, d.Sec); err != nil {
		return err
	}
	return binary.Write(w, binary.LittleEndian, d.NSec)
}

// Deserialize reads a Duration from its wire representation.
func (d *Duration) Deserialize(r io.Reader) error {
	if err := binary.Read(r, binary.LittleEndian, &d.Sec); err != nil {
		return err
	}
	return binary.Read(r, binary.LittleEndian, &d.NSec)
}
