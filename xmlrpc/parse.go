package xmlrpc

import (
	"encoding/xml"
	"fmt"
	"io"
)

// parseCall reads a full <methodCall> document, returning the method
// name and its decoded parameters.
func parseCall(r io.Reader) (string, []interface{}, error) {
	dec := xml.NewDecoder(r)
	var methodName string
	var params []interface{}

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", nil, err
		}
		start, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}
		switch start.Name.Local {
		case "methodName":
			n, err := parseNode(dec, "methodName")
			if err != nil {
				return "", nil, err
			}
			methodName = n.text
		case "value":
			v, err := parseValue(dec)
			if err != nil {
				return "", nil, err
			}
			params = append(params, v)
		}
	}
	if methodName == "" {
		return "", nil, fmt.Errorf("xmlrpc: methodCall missing methodName")
	}
	return methodName, params, nil
}

// parseResponse reads a full <methodResponse> document, returning the
// single result value, or an error built from a <fault> block.
func parseResponse(r io.Reader) (interface{}, error) {
	dec := xml.NewDecoder(r)
	var result interface{}
	var haveResult bool
	var inFault bool

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		switch start := tok.(type) {
		case xml.StartElement:
			switch start.Name.Local {
			case "fault":
				inFault = true
			case "value":
				v, err := parseValue(dec)
				if err != nil {
					return nil, err
				}
				if inFault {
					if m, ok := v.(map[string]interface{}); ok {
						return nil, fmt.Errorf("xmlrpc fault %v: %v", m["faultCode"], m["faultString"])
					}
					return nil, fmt.Errorf("xmlrpc: malformed fault")
				}
				result, haveResult = v, true
			}
		}
	}
	if !haveResult {
		return nil, fmt.Errorf("xmlrpc: methodResponse missing result")
	}
	return result, nil
}
