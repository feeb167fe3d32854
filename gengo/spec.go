// Package gengo parses ROS message, service and action definitions and
// compiles them into resolved specifications: an expanded textual
// definition, an MD5 digest, and a fixed-length predicate, matching the
// canonical ROS1 gendeps/genmsg algorithms closely enough to
// interoperate with real ROS1 nodes over TCPROS.
package gengo

import (
	"fmt"
	"strings"
)

// builtins is the ROS1 primitive type set, plus char and byte, which are
// accepted as written (the emitter maps them to uint8 and int8). The
// parser does not rename type tokens or field names, so no ROS2 alias
// (such as sec/nanosec) is translated.
var builtins = map[string]bool{
	"bool": true, "int8": true, "uint8": true, "int16": true, "uint16": true,
	"int32": true, "uint32": true, "int64": true, "uint64": true,
	"float32": true, "float64": true, "string": true, "time": true, "duration": true,
	// Deprecated ROS1 aliases, accepted on read.
	"char": true, "byte": true,
}

func isBuiltin(t string) bool { return builtins[t] }

// ArraySpec captures a field's array-ness: Scalar for a plain field,
// Variable for `[]`, Fixed(N) for `[N]`.
type ArraySpec struct {
	IsArray   bool
	IsFixed   bool
	FixedSize int
}

func (a ArraySpec) String() string {
	switch {
	case !a.IsArray:
		return ""
	case a.IsFixed:
		return fmt.Sprintf("[%d]", a.FixedSize)
	default:
		return "[]"
	}
}

// Field is one line of a message body: a package qualifier (the named
// package for a "pkg/Type" reference, std_msgs for a bare Header, the
// enclosing message's package for any other non-primitive type, and
// empty for a primitive), the bare type token, an array specifier, and
// the field's name.
type Field struct {
	Package string
	Type    string
	Array   ArraySpec
	Name    string

	// Default is the field's default literal, as written after the
	// field name. ROS1 has no such syntax; it's only ever non-empty
	// when the owning MsgSpec's RosVersion is 2.
	Default string
}

func (f Field) IsBuiltin() bool { return f.Package == "" && isBuiltin(f.Type) }

// FullType returns the dependency-graph key for a non-primitive field:
// "pkg/Type".
func (f Field) FullType() string {
	if f.Package == "" {
		return f.Type
	}
	return f.Package + "/" + f.Type
}

// String renders the field the way it appears in a canonical MD5 text
// line for a builtin field: "TYPE[ARRAY] NAME".
func (f Field) String() string {
	return fmt.Sprintf("%s%s %s", f.Type, f.Array.String(), f.Name)
}

// Constant is one "TYPE NAME=VALUE" line.
type Constant struct {
	Type      string
	Name      string
	ValueText string
}

// MsgSpec is a parsed (and, once MD5Sum is set, resolved) message
// definition.
type MsgSpec struct {
	Package   string
	ShortName string
	FullName  string
	Text      string
	Fields    []Field
	Constants []Constant

	MD5Sum         string
	ExpandedText   string
	IsFixedLength  bool
	fixedLengthSet bool

	// RosVersion is 1 unless set by OptionRosVersion. It only changes
	// how the body is parsed (ROS2 permits a default literal after a
	// field's name); the wire format, MD5 algorithm and expanded-text
	// format this package produces are always the ROS1 ones.
	RosVersion int
}

// MsgSpecOption customizes NewMsgSpec.
type MsgSpecOption func(*MsgSpec)

func OptionPackageName(pkg string) MsgSpecOption {
	return func(s *MsgSpec) { s.Package = pkg }
}

func OptionShortName(name string) MsgSpecOption {
	return func(s *MsgSpec) { s.ShortName = name }
}

// OptionRosVersion sets the dialect a message body is parsed as. Only
// version 2 changes parsing (it permits a default literal after a
// field's name); version 1 is the default.
func OptionRosVersion(v int) MsgSpecOption {
	return func(s *MsgSpec) { s.RosVersion = v }
}

// NewMsgSpec builds a MsgSpec from already-parsed fields/constants.
func NewMsgSpec(fields []Field, constants []Constant, text string, fullname string, opts ...MsgSpecOption) (*MsgSpec, error) {
	spec := &MsgSpec{
		Fields:     fields,
		Constants:  constants,
		Text:       text,
		FullName:   fullname,
		RosVersion: 1,
	}
	for _, opt := range opts {
		opt(spec)
	}
	return spec, nil
}

// HasHeader reports whether this message's first field is a Header,
// the convention TCPROS timestamps/frame_ids rely on.
func (s *MsgSpec) HasHeader() bool {
	return len(s.Fields) > 0 && s.Fields[0].Type == "Header" && s.Fields[0].Name == "header"
}

// SrvSpec pairs a request and response MsgSpec under one service name.
type SrvSpec struct {
	Package   string
	ShortName string
	FullName  string
	Text      string
	MD5Sum    string
	Request   *MsgSpec
	Response  *MsgSpec
}

// ActionSpec holds the three user-facing action messages (Goal, Result,
// Feedback) plus the three wire-level wrapper messages ROS synthesizes
// around them (ActionGoal, ActionResult, ActionFeedback).
type ActionSpec struct {
	Package   string
	ShortName string
	FullName  string
	Text      string
	MD5Sum    string

	Goal     *MsgSpec
	Result   *MsgSpec
	Feedback *MsgSpec

	ActionGoal     *MsgSpec
	ActionResult   *MsgSpec
	ActionFeedback *MsgSpec
}

// packageResourceName splits "pkg/Name" into its two parts. A bare
// "Name" with no package is an error everywhere except the synthesized
// Header default, handled by the caller.
func packageResourceName(fullname string) (pkg string, name string, err error) {
	parts := strings.SplitN(fullname, "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("gengo: %q is not a valid pkg/Name resource name", fullname)
	}
	return parts[0], parts[1], nil
}

// SyntaxError reports a parse failure at a specific file and line.
type SyntaxError struct {
	FullName string
	Line     int
	Message  string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("%s:%d: %s", e.FullName, e.Line, e.Message)
}

func NewSyntaxError(fullname string, line int, message string) error {
	return &SyntaxError{FullName: fullname, Line: line, Message: message}
}
