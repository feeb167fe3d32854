package gengo

import (
	"bytes"
	"fmt"
	"go/format"
	"strings"
	"text/template"
)

// goFieldType maps a Field to the Go type its generated struct member
// uses.
func goFieldType(f Field) string {
	base := goPrimitiveType(f)
	switch {
	case f.Array.IsArray && f.Array.IsFixed:
		return fmt.Sprintf("[%d]%s", f.Array.FixedSize, base)
	case f.Array.IsArray:
		return "[]" + base
	default:
		return base
	}
}

func goPrimitiveType(f Field) string {
	if !f.IsBuiltin() {
		pkg := f.Package
		return exportedPackageAlias(pkg) + "." + exportName(f.Type)
	}
	switch f.Type {
	case "bool":
		return "bool"
	case "int8", "byte":
		return "int8"
	case "uint8", "char":
		return "uint8"
	case "int16":
		return "int16"
	case "uint16":
		return "uint16"
	case "int32":
		return "int32"
	case "uint32":
		return "uint32"
	case "int64":
		return "int64"
	case "uint64":
		return "uint64"
	case "float32":
		return "float32"
	case "float64":
		return "float64"
	case "string":
		return "string"
	case "time":
		return "ros.Time"
	case "duration":
		return "ros.Duration"
	default:
		return "interface{}"
	}
}

func exportedPackageAlias(pkg string) string { return pkg }

func exportName(name string) string {
	if name == "" {
		return name
	}
	return strings.ToUpper(name[:1]) + name[1:]
}

// MsgTemplateData is the view MsgSpec is rendered through by the
// message struct/type template.
type MsgTemplateData struct {
	Package  string
	Name     string
	GoName   string
	MD5Sum   string
	Text     string
	Fields   []emitField
	Imports  []string
}

type emitField struct {
	Name      string
	GoType    string
	IsArray   bool
	IsMessage bool
}

// BuildMsgTemplateData projects spec into the shape msgTemplate needs,
// gathering the set of other packages its fields reference so the
// generated file's import block is non-empty only when needed.
func BuildMsgTemplateData(spec *MsgSpec) MsgTemplateData {
	data := MsgTemplateData{
		Package: spec.Package,
		Name:    spec.ShortName,
		GoName:  exportName(spec.ShortName),
		MD5Sum:  spec.MD5Sum,
		Text:    spec.ExpandedText,
	}
	seenImport := map[string]bool{}
	for _, f := range spec.Fields {
		// Sub-message fields are addressed (&m.Field) when passed to
		// SerializeField/DeserializeField, since the generated message
		// types implement ros.Message with pointer receivers.
		isMessage := !f.IsBuiltin() || f.Type == "time" || f.Type == "duration"
		data.Fields = append(data.Fields, emitField{
			Name:      exportName(f.Name),
			GoType:    goFieldType(f),
			IsArray:   f.Array.IsArray,
			IsMessage: isMessage && !f.Array.IsArray,
		})
		if !f.IsBuiltin() && !seenImport[f.Package] {
			seenImport[f.Package] = true
			data.Imports = append(data.Imports, f.Package)
		}
	}
	return data
}

const msgTemplateSource = `// Code generated by cmd/gengo. DO NOT EDIT.

package {{.Package}}

import (
	"bytes"

	"github.com/ros-go/rosgo/ros"
{{- range .Imports}}
	"{{.}}"
{{- end}}
)

type {{.GoName}} struct {
{{- range .Fields}}
	{{.Name}} {{.GoType}}
{{- end}}
}

const (
	{{.GoName}}Name = "{{.Package}}/{{.Name}}"
	{{.GoName}}MD5Sum = "{{.MD5Sum}}"
)

type _{{.GoName}}Type struct{}

func (_{{.GoName}}Type) Text() string { return ` + "`{{.Text}}`" + ` }
func (_{{.GoName}}Type) MD5Sum() string { return {{.GoName}}MD5Sum }
func (_{{.GoName}}Type) Name() string { return {{.GoName}}Name }
func (_{{.GoName}}Type) NewMessage() ros.Message { return new({{.GoName}}) }

var Msg{{.GoName}} ros.MessageType = _{{.GoName}}Type{}

func (m *{{.GoName}}) Type() ros.MessageType { return Msg{{.GoName}} }

func (m *{{.GoName}}) Serialize(buf *bytes.Buffer) error {
{{- range .Fields}}
	if err := ros.SerializeField(buf, {{if .IsMessage}}&{{end}}m.{{.Name}}); err != nil {
		return err
	}
{{- end}}
	return nil
}

func (m *{{.GoName}}) Deserialize(buf *bytes.Reader) error {
{{- range .Fields}}
	if err := ros.DeserializeField(buf, &m.{{.Name}}); err != nil {
		return err
	}
{{- end}}
	return nil
}
`

var msgTemplate = template.Must(template.New("msg").Parse(msgTemplateSource))

// EmitMsg renders spec's generated Go source, gofmt'd.
func EmitMsg(spec *MsgSpec) ([]byte, error) {
	var buf bytes.Buffer
	if err := msgTemplate.Execute(&buf, BuildMsgTemplateData(spec)); err != nil {
		return nil, err
	}
	formatted, err := format.Source(buf.Bytes())
	if err != nil {
		return buf.Bytes(), fmt.Errorf("gengo: generated source for %s did not gofmt: %w", spec.FullName, err)
	}
	return formatted, nil
}

const srvTemplateSource = `// Code generated by cmd/gengo. DO NOT EDIT.

package {{.Package}}

import "github.com/ros-go/rosgo/ros"

const (
	{{.GoName}}Name = "{{.Package}}/{{.Name}}"
	{{.GoName}}MD5Sum = "{{.MD5Sum}}"
)

type _{{.GoName}}Type struct{}

func (_{{.GoName}}Type) Name() string { return {{.GoName}}Name }
func (_{{.GoName}}Type) MD5Sum() string { return {{.GoName}}MD5Sum }
func (_{{.GoName}}Type) ReqType() ros.MessageType { return Msg{{.GoName}}Request }
func (_{{.GoName}}Type) ResType() ros.MessageType { return Msg{{.GoName}}Response }
func (_{{.GoName}}Type) NewService() ros.Service {
	return &{{.GoName}}{Request: new({{.GoName}}Request), Response: new({{.GoName}}Response)}
}

var Srv{{.GoName}} ros.ServiceType = _{{.GoName}}Type{}

type {{.GoName}} struct {
	Request  *{{.GoName}}Request
	Response *{{.GoName}}Response
}

func (s *{{.GoName}}) ReqMessage() ros.Message { return s.Request }
func (s *{{.GoName}}) ResMessage() ros.Message { return s.Response }
`

var srvTemplate = template.Must(template.New("srv").Parse(srvTemplateSource))

// EmitSrv renders the service marker type that wraps spec's already
// separately emitted Request/Response message types.
func EmitSrv(spec *SrvSpec) ([]byte, error) {
	var buf bytes.Buffer
	data := struct {
		Package string
		Name    string
		GoName  string
		MD5Sum  string
	}{spec.Package, spec.ShortName, exportName(spec.ShortName), spec.MD5Sum}
	if err := srvTemplate.Execute(&buf, data); err != nil {
		return nil, err
	}
	formatted, err := format.Source(buf.Bytes())
	if err != nil {
		return buf.Bytes(), fmt.Errorf("gengo: generated source for %s did not gofmt: %w", spec.FullName, err)
	}
	return formatted, nil
}
