package xmlrpc

import (
	"fmt"
	"net/http"
	"reflect"
	"sync"
	"sync/atomic"
)

// Method is a handler function registered under a method name. It may
// take any combination of string/int32/bool/float64/[]interface{}
// leading parameters (the ROS Slave/Master APIs only ever use these),
// and always returns (interface{}, error); the error becomes a fault.
type Method interface{}

// Handler dispatches incoming XML-RPC POSTs to a registered method
// table: a map[string]xmlrpc.Method passed to xmlrpc.NewHandler.
type Handler struct {
	methods map[string]Method
	inFlag  sync.WaitGroup
	closed  int32
}

// NewHandler builds a Handler dispatching to methods.
func NewHandler(methods map[string]Method) *Handler {
	return &Handler{methods: methods}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if atomic.LoadInt32(&h.closed) != 0 {
		http.Error(w, "server shutting down", http.StatusServiceUnavailable)
		return
	}
	h.inFlag.Add(1)
	defer h.inFlag.Done()

	methodName, params, err := parseCall(r.Body)
	if err != nil {
		w.Header().Set("Content-Type", "text/xml")
		writeFault(w, -1, fmt.Sprintf("malformed request: %v", err))
		return
	}

	result, err := h.dispatch(methodName, params)
	w.Header().Set("Content-Type", "text/xml")
	if err != nil {
		writeFault(w, -1, err.Error())
		return
	}
	writeResponse(w, result)
}

func (h *Handler) dispatch(methodName string, params []interface{}) (interface{}, error) {
	method, ok := h.methods[methodName]
	if !ok {
		return nil, fmt.Errorf("xmlrpc: unknown method %q", methodName)
	}

	fn := reflect.ValueOf(method)
	fnType := fn.Type()
	if fnType.Kind() != reflect.Func {
		return nil, fmt.Errorf("xmlrpc: method %q is not callable", methodName)
	}
	numIn := fnType.NumIn()
	if len(params) < numIn {
		return nil, fmt.Errorf("xmlrpc: method %q expects %d args, got %d", methodName, numIn, len(params))
	}

	args := make([]reflect.Value, numIn)
	for i := 0; i < numIn; i++ {
		converted, err := convertArg(params[i], fnType.In(i))
		if err != nil {
			return nil, fmt.Errorf("xmlrpc: method %q arg %d: %w", methodName, i, err)
		}
		args[i] = converted
	}

	out := fn.Call(args)
	if len(out) != 2 {
		return nil, fmt.Errorf("xmlrpc: method %q must return (interface{}, error)", methodName)
	}
	var retErr error
	if errVal := out[1]; !errVal.IsNil() {
		retErr = errVal.Interface().(error)
	}
	if retErr != nil {
		return nil, retErr
	}
	return out[0].Interface(), nil
}

// convertArg coerces a decoded XML-RPC value (string/int32/bool/float64/
// []interface{}/map[string]interface{}) to the static type a registered
// Method declares for that position.
func convertArg(value interface{}, want reflect.Type) (reflect.Value, error) {
	if value == nil {
		return reflect.Zero(want), nil
	}
	v := reflect.ValueOf(value)
	if v.Type().AssignableTo(want) {
		return v, nil
	}
	if v.Type().ConvertibleTo(want) && want.Kind() != reflect.Interface {
		return v.Convert(want), nil
	}
	if want.Kind() == reflect.Interface {
		return v, nil
	}
	return reflect.Value{}, fmt.Errorf("cannot use %T as %s", value, want)
}

// WaitForShutdown marks the handler closed, so later requests get HTTP
// 503, and blocks until all in-flight requests have finished.
func (h *Handler) WaitForShutdown() {
	atomic.StoreInt32(&h.closed, 1)
	h.inFlag.Wait()
}
