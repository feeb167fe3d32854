package xmlrpc

import (
	"bytes"
	"fmt"
	"net/http"
	"time"
)

// Client issues XML-RPC calls against a single endpoint (a ROS master
// or a peer node's slave URI).
type Client struct {
	URI        string
	HTTPClient *http.Client
}

// NewClient builds a Client with the given request timeout. A timeout
// of 0 means no deadline, matching http.Client's own default.
func NewClient(uri string, timeout time.Duration) *Client {
	return &Client{
		URI:        uri,
		HTTPClient: &http.Client{Timeout: timeout},
	}
}

// Call invokes method against the client's endpoint with params, and
// decodes the single result value. A <fault> response or any transport
// failure is returned as an error.
func (c *Client) Call(method string, params ...interface{}) (interface{}, error) {
	body, err := writeCall(method, params)
	if err != nil {
		return nil, fmt.Errorf("xmlrpc: encoding call %s: %w", method, err)
	}

	resp, err := c.HTTPClient.Post(c.URI, "text/xml", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("xmlrpc: calling %s at %s: %w", method, c.URI, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("xmlrpc: %s at %s returned HTTP %d", method, c.URI, resp.StatusCode)
	}

	result, err := parseResponse(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("xmlrpc: decoding response from %s at %s: %w", method, c.URI, err)
	}
	return result, nil
}
