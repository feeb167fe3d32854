package xmlrpc

import (
	"fmt"
	"net/http/httptest"
	"testing"
)

func TestCallRoundTrip(t *testing.T) {
	methods := map[string]Method{
		"echo": func(callerID string, topic string, publishers []interface{}) (interface{}, error) {
			return []interface{}{int32(1), "Success", []interface{}{callerID, topic, publishers}}, nil
		},
	}
	srv := httptest.NewServer(NewHandler(methods))
	defer srv.Close()

	client := NewClient(srv.URL, 0)
	result, err := client.Call("echo", "/talker", "/chatter", []interface{}{"http://a:1", "http://b:2"})
	if err != nil {
		t.Fatalf("Call failed: %v", err)
	}

	arr, ok := result.([]interface{})
	if !ok || len(arr) != 3 {
		t.Fatalf("unexpected result shape: %#v", result)
	}
	if arr[0].(int32) != 1 {
		t.Fatalf("status code not round-tripped: %#v", arr[0])
	}
	echoed := arr[2].([]interface{})
	if echoed[0].(string) != "/talker" || echoed[1].(string) != "/chatter" {
		t.Fatalf("args not round-tripped: %#v", echoed)
	}
	pubs := echoed[2].([]interface{})
	if len(pubs) != 2 || pubs[0].(string) != "http://a:1" {
		t.Fatalf("array arg not round-tripped: %#v", pubs)
	}
}

func TestUnknownMethodFaults(t *testing.T) {
	srv := httptest.NewServer(NewHandler(map[string]Method{}))
	defer srv.Close()

	client := NewClient(srv.URL, 0)
	_, err := client.Call("missing")
	if err == nil {
		t.Fatal("expected a fault for an unknown method")
	}
}

func TestMethodErrorBecomesFault(t *testing.T) {
	methods := map[string]Method{
		"boom": func(callerID string) (interface{}, error) {
			return nil, fmt.Errorf("boom: %s", callerID)
		},
	}
	srv := httptest.NewServer(NewHandler(methods))
	defer srv.Close()

	client := NewClient(srv.URL, 0)
	_, err := client.Call("boom", "/node")
	if err == nil {
		t.Fatal("expected error from faulting method")
	}
}

func TestStructAndDoubleRoundTrip(t *testing.T) {
	methods := map[string]Method{
		"params": func(callerID string, value float64, info map[string]interface{}) (interface{}, error) {
			return []interface{}{value, info["k"]}, nil
		},
	}
	srv := httptest.NewServer(NewHandler(methods))
	defer srv.Close()

	client := NewClient(srv.URL, 0)
	result, err := client.Call("params", "/node", 3.5, map[string]interface{}{"k": "v"})
	if err != nil {
		t.Fatalf("Call failed: %v", err)
	}
	arr := result.([]interface{})
	if arr[0].(float64) != 3.5 {
		t.Fatalf("double not round-tripped: %#v", arr[0])
	}
	if arr[1].(string) != "v" {
		t.Fatalf("struct member not round-tripped: %#v", arr[1])
	}
}
