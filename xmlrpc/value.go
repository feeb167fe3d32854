// Package xmlrpc implements just enough of XML-RPC to speak the ROS1
// Master/Slave API: a Client for outbound calls and a Handler for the
// inbound slave server. Values cross the Go/XML-RPC boundary as plain
// interface{}: string, int32, bool, float64, []interface{}, and
// map[string]interface{}.
package xmlrpc

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// marshalValue writes v as a <value>...</value> element.
func marshalValue(buf *bytes.Buffer, v interface{}) error {
	buf.WriteString("<value>")
	if err := marshalInner(buf, v); err != nil {
		return err
	}
	buf.WriteString("</value>")
	return nil
}

func marshalInner(buf *bytes.Buffer, v interface{}) error {
	switch t := v.(type) {
	case nil:
		buf.WriteString("<nil/>")
	case string:
		buf.WriteString("<string>")
		xml.EscapeText(buf, []byte(t))
		buf.WriteString("</string>")
	case bool:
		if t {
			buf.WriteString("<boolean>1</boolean>")
		} else {
			buf.WriteString("<boolean>0</boolean>")
		}
	case int:
		fmt.Fprintf(buf, "<i4>%d</i4>", t)
	case int32:
		fmt.Fprintf(buf, "<i4>%d</i4>", t)
	case int64:
		fmt.Fprintf(buf, "<i4>%d</i4>", t)
	case float64:
		fmt.Fprintf(buf, "<double>%v</double>", t)
	case float32:
		fmt.Fprintf(buf, "<double>%v</double>", t)
	case []interface{}:
		buf.WriteString("<array><data>")
		for _, item := range t {
			if err := marshalValue(buf, item); err != nil {
				return err
			}
		}
		buf.WriteString("</data></array>")
	case []string:
		buf.WriteString("<array><data>")
		for _, item := range t {
			if err := marshalValue(buf, item); err != nil {
				return err
			}
		}
		buf.WriteString("</data></array>")
	case map[string]interface{}:
		buf.WriteString("<struct>")
		for k, mv := range t {
			buf.WriteString("<member><name>")
			xml.EscapeText(buf, []byte(k))
			buf.WriteString("</name>")
			if err := marshalValue(buf, mv); err != nil {
				return err
			}
			buf.WriteString("</member>")
		}
		buf.WriteString("</struct>")
	default:
		return fmt.Errorf("xmlrpc: cannot marshal value of type %T", v)
	}
	return nil
}

// node is a minimal generic tree used while parsing a <value> element,
// since array/struct members nest arbitrarily deep.
type node struct {
	tag      string
	text     string
	children []*node
}

// parseValue decodes a single <value>...</value> element starting at
// the current decoder position (the <value> start element must already
// be consumed by the caller, matching how Go's xml.Decoder streams
// tokens one at a time).
func parseValue(dec *xml.Decoder) (interface{}, error) {
	n, err := parseNode(dec, "value")
	if err != nil {
		return nil, err
	}
	return nodeToValue(n)
}

// parseNode recursively reads the children of the element whose start
// tag (named name) has just been consumed, returning a tree of child
// elements with their text content.
func parseNode(dec *xml.Decoder, name string) (*node, error) {
	root := &node{tag: name}
	var textBuf strings.Builder
	for {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			child, err := parseNode(dec, t.Name.Local)
			if err != nil {
				return nil, err
			}
			root.children = append(root.children, child)
		case xml.CharData:
			textBuf.Write(t)
		case xml.EndElement:
			root.text = textBuf.String()
			return root, nil
		}
	}
}

// nodeToValue converts a parsed <value> node tree into a Go value,
// defaulting to string when no type tag is present (the XML-RPC spec's
// "implicit string" rule).
func nodeToValue(n *node) (interface{}, error) {
	if len(n.children) == 0 {
		return strings.TrimSpace(n.text), nil
	}
	typeNode := n.children[0]
	switch typeNode.tag {
	case "string":
		return typeNode.text, nil
	case "int", "i4", "i8":
		v, err := strconv.ParseInt(strings.TrimSpace(typeNode.text), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("xmlrpc: bad integer %q: %w", typeNode.text, err)
		}
		return int32(v), nil
	case "boolean":
		return strings.TrimSpace(typeNode.text) == "1", nil
	case "double":
		v, err := strconv.ParseFloat(strings.TrimSpace(typeNode.text), 64)
		if err != nil {
			return nil, fmt.Errorf("xmlrpc: bad double %q: %w", typeNode.text, err)
		}
		return v, nil
	case "nil":
		return nil, nil
	case "array":
		var items []interface{}
		if len(typeNode.children) == 1 && typeNode.children[0].tag == "data" {
			for _, valueNode := range typeNode.children[0].children {
				item, err := nodeToValue(valueNode)
				if err != nil {
					return nil, err
				}
				items = append(items, item)
			}
		}
		return items, nil
	case "struct":
		m := make(map[string]interface{})
		for _, member := range typeNode.children {
			if member.tag != "member" {
				continue
			}
			var key string
			var val interface{}
			var err error
			for _, c := range member.children {
				switch c.tag {
				case "name":
					key = c.text
				case "value":
					val, err = nodeToValue(c)
					if err != nil {
						return nil, err
					}
				}
			}
			m[key] = val
		}
		return m, nil
	case "base64":
		return typeNode.text, nil
	default:
		return typeNode.text, nil
	}
}

// writeCall renders a full XML-RPC methodCall document.
func writeCall(methodName string, params []interface{}) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	buf.WriteString("<methodCall><methodName>")
	xml.EscapeText(&buf, []byte(methodName))
	buf.WriteString("</methodName><params>")
	for _, p := range params {
		buf.WriteString("<param>")
		if err := marshalValue(&buf, p); err != nil {
			return nil, err
		}
		buf.WriteString("</param>")
	}
	buf.WriteString("</params></methodCall>")
	return buf.Bytes(), nil
}

// writeResponse renders a successful XML-RPC methodResponse document.
func writeResponse(w io.Writer, result interface{}) error {
	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	buf.WriteString("<methodResponse><params><param>")
	if err := marshalValue(&buf, result); err != nil {
		return err
	}
	buf.WriteString("</param></params></methodResponse>")
	_, err := w.Write(buf.Bytes())
	return err
}

// writeFault renders an XML-RPC <fault> methodResponse.
func writeFault(w io.Writer, code int, message string) error {
	fault := map[string]interface{}{
		"faultCode":   int32(code),
		"faultString": message,
	}
	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	buf.WriteString("<methodResponse><fault>")
	if err := marshalValue(&buf, fault); err != nil {
		return err
	}
	buf.WriteString("</fault></methodResponse>")
	_, err := w.Write(buf.Bytes())
	return err
}
