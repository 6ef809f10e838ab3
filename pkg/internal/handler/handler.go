// Package handler provides reflection-based handler execution for the
// triggers package.
package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"reflect"
)

// Handler holds metadata about a registered trigger handler.
type Handler struct {
	Fn          reflect.Value
	PayloadType reflect.Type
	HasContext  bool
}

// NewHandler creates a Handler from a function. The function must have
// signature func(ctx context.Context, payload T) error; both the
// context and payload parameters are optional.
func NewHandler(fn any) (*Handler, error) {
	if fn == nil {
		return nil, fmt.Errorf("handler cannot be nil")
	}

	fnVal := reflect.ValueOf(fn)

	// Check for typed nil (e.g., var fn func() = nil)
	if !fnVal.IsValid() || (fnVal.Kind() == reflect.Func && fnVal.IsNil()) {
		return nil, fmt.Errorf("handler function cannot be nil")
	}

	fnType := fnVal.Type()

	if fnType.Kind() != reflect.Func {
		return nil, fmt.Errorf("handler must be a function")
	}

	h := &Handler{Fn: fnVal}

	numIn := fnType.NumIn()
	if numIn > 2 {
		return nil, fmt.Errorf("handler must have at most 2 arguments")
	}

	payloadIdx := 0
	if numIn > 0 && fnType.In(0).Implements(reflect.TypeOf((*context.Context)(nil)).Elem()) {
		h.HasContext = true
		payloadIdx = 1
	}

	if payloadIdx < numIn {
		h.PayloadType = fnType.In(payloadIdx)
	}

	if fnType.NumOut() != 1 || !fnType.Out(0).Implements(reflect.TypeOf((*error)(nil)).Elem()) {
		return nil, fmt.Errorf("handler must return error")
	}

	return h, nil
}

// Execute runs the handler, decoding payloadJSON into the handler's
// payload type when one is declared.
func (h *Handler) Execute(ctx context.Context, payloadJSON []byte) error {
	if !h.Fn.IsValid() || h.Fn.IsNil() {
		return fmt.Errorf("handler function is nil or invalid")
	}

	var args []reflect.Value

	if h.HasContext {
		args = append(args, reflect.ValueOf(ctx))
	}

	if h.PayloadType != nil {
		payloadVal := reflect.New(h.PayloadType)
		if len(payloadJSON) > 0 {
			if err := json.Unmarshal(payloadJSON, payloadVal.Interface()); err != nil {
				return fmt.Errorf("failed to unmarshal payload: %w", err)
			}
		}
		args = append(args, payloadVal.Elem())
	}

	results := h.Fn.Call(args)
	if !results[0].IsNil() {
		return results[0].Interface().(error)
	}
	return nil
}
