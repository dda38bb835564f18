package jsonrpc

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestRequestDecode(t *testing.T) {
	t.Run("request with params", func(t *testing.T) {
		var req Request
		body := `{"id": 7, "method": "calc.add", "params": {"a": 1, "b": "2"}}`
		if err := json.Unmarshal([]byte(body), &req); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		if req.Method != "calc.add" {
			t.Errorf("method: want %q got %q", "calc.add", req.Method)
		}
		if req.ID.IsNil() {
			t.Fatal("expected non-nil id")
		}
		if want, got := "7", req.ID.String(); want != got {
			t.Errorf("id: want %q got %q", want, got)
		}
		if len(req.Params) != 2 {
			t.Errorf("params: want 2 entries, got %d", len(req.Params))
		}
		if string(req.Params["b"]) != `"2"` {
			t.Errorf("raw param b: got %s", req.Params["b"])
		}
	})

	t.Run("notification has nil id", func(t *testing.T) {
		var req Request
		if err := json.Unmarshal([]byte(`{"method": "log.write"}`), &req); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		if !req.IsNotification() {
			t.Error("expected notification")
		}
	})

	t.Run("explicit null id is a notification", func(t *testing.T) {
		var req Request
		if err := json.Unmarshal([]byte(`{"id": null, "method": "x"}`), &req); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		if !req.IsNotification() {
			t.Error("expected notification for null id")
		}
	})

	t.Run("unknown extra fields are ignored", func(t *testing.T) {
		var req Request
		body := `{"id": "a", "method": "m", "jsonrpc": "2.0", "extra": true}`
		if err := json.Unmarshal([]byte(body), &req); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		if req.Method != "m" {
			t.Errorf("method: got %q", req.Method)
		}
	})

	t.Run("positional params fail decoding", func(t *testing.T) {
		var req Request
		if err := json.Unmarshal([]byte(`{"id": 1, "method": "m", "params": [1, 2]}`), &req); err == nil {
			t.Fatal("expected error for array params")
		}
	})
}

func TestRequestID(t *testing.T) {
	cases := []struct {
		name string
		in   string
		str  string
	}{
		{name: "string", in: `"abc-1"`, str: "abc-1"},
		{name: "integer", in: `42`, str: "42"},
		{name: "float", in: `1.5`, str: "1.5"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var id RequestID
			if err := json.Unmarshal([]byte(tc.in), &id); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			if got := id.String(); got != tc.str {
				t.Errorf("String: want %q got %q", tc.str, got)
			}
			out, err := json.Marshal(&id)
			if err != nil {
				t.Fatalf("marshal: %v", err)
			}
			if string(out) != tc.in {
				t.Errorf("round trip: want %s got %s", tc.in, out)
			}
		})
	}

	t.Run("boolean rejected", func(t *testing.T) {
		var id RequestID
		if err := json.Unmarshal([]byte(`true`), &id); err == nil {
			t.Fatal("expected error for boolean id")
		}
	})

	t.Run("nil marshals to null", func(t *testing.T) {
		out, err := json.Marshal(&RequestID{})
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		if string(out) != "null" {
			t.Errorf("want null got %s", out)
		}
	})
}

func TestResponseRoundTrip(t *testing.T) {
	resp, err := NewResultResponse(NewRequestID(int64(9)), map[string]any{"sum": 3})
	if err != nil {
		t.Fatalf("NewResultResponse: %v", err)
	}
	b, err := json.MarshalIndent(resp, "", "  ")
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var decoded Response
	if err := json.Unmarshal(b, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if want, got := resp.ID.String(), decoded.ID.String(); want != got {
		t.Errorf("id: want %q got %q", want, got)
	}
	var result map[string]any
	if err := json.Unmarshal(decoded.Result, &result); err != nil {
		t.Fatalf("unmarshal result: %v", err)
	}
	if result["sum"] != float64(3) {
		t.Errorf("result: want sum=3 got %v", result["sum"])
	}
}

func TestResponseFieldPresence(t *testing.T) {
	t.Run("unrecoverable id serializes as null", func(t *testing.T) {
		resp := NewErrorResponse(nil, ErrorCodeParseError, "Parse error", nil)
		b, err := json.Marshal(resp)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		var m map[string]any
		if err := json.Unmarshal(b, &m); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		id, present := m["id"]
		if !present {
			t.Errorf("id member must be present, body: %s", b)
		}
		if id != nil {
			t.Errorf("id: want null got %v", id)
		}
		if _, present := m["result"]; present {
			t.Errorf("result should be omitted, body: %s", b)
		}
		if m["jsonrpc"] != ProtocolVersion {
			t.Errorf("jsonrpc: want %q got %v", ProtocolVersion, m["jsonrpc"])
		}
	})

	t.Run("error data omitted when nil", func(t *testing.T) {
		resp := NewErrorResponse(NewRequestID("x"), ErrorCodeMethodNotFound, "Method not found", nil)
		b, err := json.Marshal(resp)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		if strings.Contains(string(b), `"data"`) {
			t.Errorf("data should be omitted, body: %s", b)
		}
	})

	t.Run("error envelope has no result member", func(t *testing.T) {
		resp := NewErrorResponse(NewRequestID(int64(3)), ErrorCodeExecutionError, "Execution error", "boom")
		b, err := json.Marshal(resp)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		var m map[string]any
		if err := json.Unmarshal(b, &m); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		if _, present := m["result"]; present {
			t.Errorf("result should be omitted on faults, body: %s", b)
		}
		if _, present := m["error"]; !present {
			t.Errorf("error member missing, body: %s", b)
		}
	})
}
