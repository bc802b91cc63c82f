package rpc

import (
	"context"
	"encoding/json"
	"testing"
)

func TestHandleRequestParseError(t *testing.T) {
	d := NewDispatcher()
	resp := d.HandleRequest(context.Background(), []byte("{not json"))
	if resp == nil || resp.Error == nil || resp.Error.Code != CodeParseError {
		t.Fatalf("expected parse error, got %+v", resp)
	}
	if resp.ID != nil {
		t.Fatalf("expected id=null on parse error, got %v", resp.ID)
	}
}

func TestHandleRequestInvalidRequest(t *testing.T) {
	d := NewDispatcher()
	resp := d.HandleRequest(context.Background(), []byte(`{"jsonrpc":"1.0","method":"ping","id":1}`))
	if resp == nil || resp.Error == nil || resp.Error.Code != CodeInvalidRequest {
		t.Fatalf("expected invalid request error, got %+v", resp)
	}
}

func TestHandleRequestMethodNotFound(t *testing.T) {
	d := NewDispatcher()
	resp := d.HandleRequest(context.Background(), []byte(`{"jsonrpc":"2.0","method":"nope","id":1}`))
	if resp == nil || resp.Error == nil || resp.Error.Code != CodeMethodNotFound {
		t.Fatalf("expected method not found error, got %+v", resp)
	}
}

func TestHandleRequestNotificationYieldsNoResponse(t *testing.T) {
	d := NewDispatcher()
	called := false
	d.Register("notify_me", func(ctx context.Context, params json.RawMessage) (any, error) {
		called = true
		return nil, nil
	})
	resp := d.HandleRequest(context.Background(), []byte(`{"jsonrpc":"2.0","method":"notify_me"}`))
	if resp != nil {
		t.Fatalf("expected nil response for notification, got %+v", resp)
	}
	if !called {
		t.Fatal("expected handler to still run for a notification")
	}
}

func TestHandleRequestUnknownMethodNotificationYieldsNoResponse(t *testing.T) {
	d := NewDispatcher()
	resp := d.HandleRequest(context.Background(), []byte(`{"jsonrpc":"2.0","method":"nope"}`))
	if resp != nil {
		t.Fatalf("expected nil response for unknown-method notification, got %+v", resp)
	}
}

func TestHandleRequestHandlerErrorWrapsAsInternalError(t *testing.T) {
	d := NewDispatcher()
	d.Register("boom", func(ctx context.Context, params json.RawMessage) (any, error) {
		return nil, errBoom{}
	})
	resp := d.HandleRequest(context.Background(), []byte(`{"jsonrpc":"2.0","method":"boom","id":1}`))
	if resp == nil || resp.Error == nil || resp.Error.Code != CodeInternalError {
		t.Fatalf("expected internal error, got %+v", resp)
	}
}

func TestHandleRequestHandlerRPCErrorPassesThrough(t *testing.T) {
	d := NewDispatcher()
	d.Register("bad_params", func(ctx context.Context, params json.RawMessage) (any, error) {
		return nil, NewError(CodeInvalidParams, "invalid params", "query required")
	})
	resp := d.HandleRequest(context.Background(), []byte(`{"jsonrpc":"2.0","method":"bad_params","id":1}`))
	if resp == nil || resp.Error == nil || resp.Error.Code != CodeInvalidParams {
		t.Fatalf("expected invalid params error to pass through, got %+v", resp)
	}
}

func TestToolsListIsStable(t *testing.T) {
	a := Tools()
	b := Tools()
	if len(a) != len(b) || len(a) != 11 {
		t.Fatalf("expected 11 tools, got %d and %d", len(a), len(b))
	}
	for i := range a {
		if a[i].Name != b[i].Name {
			t.Fatalf("tool order not stable at index %d: %q vs %q", i, a[i].Name, b[i].Name)
		}
	}
}

type errBoom struct{}

func (errBoom) Error() string { return "boom" }
