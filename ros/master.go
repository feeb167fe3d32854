package ros

import (
	"errors"
	"net"
	"time"

	"github.com/ros-go/rosgo/xmlrpc"
)

// masterCallTimeout is the deadline callRosAPI applies to every call,
// including every masterClient call. It is a fixed constant: only a
// direct caller of callRosAPITimeout can use a different deadline.
const masterCallTimeout = 30 * time.Second

// callRosAPI issues a single XML-RPC call against uri (a master or
// slave endpoint) and unwraps the ROS convention response shape
// [statusCode, statusMessage, value] into (value, error).
func callRosAPI(uri string, method string, args ...interface{}) (interface{}, error) {
	return callRosAPITimeout(uri, masterCallTimeout, method, args...)
}

func callRosAPITimeout(uri string, timeout time.Duration, method string, args ...interface{}) (interface{}, error) {
	client := xmlrpc.NewClient(uri, timeout)
	result, err := client.Call(method, args...)
	if err != nil {
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			return nil, Timeoutf("xmlrpc call " + method + " to " + uri)
		}
		return nil, IoErrorf(err, "xmlrpc call "+method+" to "+uri)
	}
	return unwrapRosAPIResult(method, result)
}

func unwrapRosAPIResult(method string, result interface{}) (interface{}, error) {
	triple, ok := result.([]interface{})
	if !ok || len(triple) != 3 {
		return nil, ServerErrorf("%s: malformed response shape %#v", method, result)
	}
	code, _ := triple[0].(int32)
	message, _ := triple[1].(string)
	if code != successStatus {
		return nil, ServerErrorf("%s: %s (code %d)", method, message, code)
	}
	return triple[2], nil
}

// buildRosAPIResult constructs the (statusCode, statusMessage, value)
// triple the Slave API returns for every method.
func buildRosAPIResult(code int32, message string, value interface{}) []interface{} {
	return []interface{}{code, message, value}
}

// masterClient groups the Master API calls a node issues, each of which
// carries the node's caller_id as the first argument.
type masterClient struct {
	uri      string
	callerID string
}

func newMasterClient(uri string, callerID string) *masterClient {
	return &masterClient{uri: uri, callerID: callerID}
}

func (m *masterClient) registerPublisher(topic, msgType, callerAPI string) ([]string, error) {
	result, err := callRosAPI(m.uri, "registerPublisher", m.callerID, topic, msgType, callerAPI)
	if err != nil {
		return nil, err
	}
	return toStringSlice(result), nil
}

func (m *masterClient) unregisterPublisher(topic, callerAPI string) error {
	_, err := callRosAPI(m.uri, "unregisterPublisher", m.callerID, topic, callerAPI)
	return err
}

func (m *masterClient) registerSubscriber(topic, msgType, callerAPI string) ([]string, error) {
	result, err := callRosAPI(m.uri, "registerSubscriber", m.callerID, topic, msgType, callerAPI)
	if err != nil {
		return nil, err
	}
	return toStringSlice(result), nil
}

func (m *masterClient) unregisterSubscriber(topic, callerAPI string) error {
	_, err := callRosAPI(m.uri, "unregisterSubscriber", m.callerID, topic, callerAPI)
	return err
}

func (m *masterClient) registerService(service, serviceAPI, callerAPI string) error {
	_, err := callRosAPI(m.uri, "registerService", m.callerID, service, serviceAPI, callerAPI)
	return err
}

func (m *masterClient) unregisterService(service, serviceAPI string) error {
	_, err := callRosAPI(m.uri, "unregisterService", m.callerID, service, serviceAPI)
	return err
}

func (m *masterClient) lookupService(service string) (string, error) {
	result, err := callRosAPI(m.uri, "lookupService", m.callerID, service)
	if err != nil {
		return "", err
	}
	uri, ok := result.(string)
	if !ok {
		return "", ServerErrorf("lookupService: result is not a string")
	}
	return uri, nil
}

func (m *masterClient) lookupNode(nodeName string) (string, error) {
	result, err := callRosAPI(m.uri, "lookupNode", m.callerID, nodeName)
	if err != nil {
		return "", err
	}
	uri, _ := result.(string)
	return uri, nil
}

func (m *masterClient) getPublishedTopics(subgraph string) ([][2]string, error) {
	result, err := callRosAPI(m.uri, "getPublishedTopics", m.callerID, subgraph)
	if err != nil {
		return nil, err
	}
	list, _ := result.([]interface{})
	pairs := make([][2]string, 0, len(list))
	for _, item := range list {
		pair, _ := item.([]interface{})
		if len(pair) != 2 {
			continue
		}
		name, _ := pair[0].(string)
		msgType, _ := pair[1].(string)
		pairs = append(pairs, [2]string{name, msgType})
	}
	return pairs, nil
}

func (m *masterClient) getTopicTypes() ([][2]string, error) {
	result, err := callRosAPI(m.uri, "getTopicTypes", m.callerID)
	if err != nil {
		return nil, err
	}
	list, _ := result.([]interface{})
	pairs := make([][2]string, 0, len(list))
	for _, item := range list {
		pair, _ := item.([]interface{})
		if len(pair) != 2 {
			continue
		}
		name, _ := pair[0].(string)
		msgType, _ := pair[1].(string)
		pairs = append(pairs, [2]string{name, msgType})
	}
	return pairs, nil
}

func toStringSlice(v interface{}) []string {
	list, ok := v.([]interface{})
	if !ok {
		return nil
	}
	out := make([]string, 0, len(list))
	for _, item := range list {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
