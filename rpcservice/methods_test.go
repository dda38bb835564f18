package rpcservice

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
)

type addArgs struct {
	A int `json:"a"`
	B int `json:"b"`
}

func rawParams(t *testing.T, src string) map[string]json.RawMessage {
	t.Helper()
	var out map[string]json.RawMessage
	if err := json.Unmarshal([]byte(src), &out); err != nil {
		t.Fatalf("bad params fixture %q: %v", src, err)
	}
	return out
}

func TestMethodInvokeBindsNamedParams(t *testing.T) {
	m := NewMethod("Add", func(ctx context.Context, args addArgs) (any, error) {
		return args.A + args.B, nil
	})

	got, err := m.Invoke(context.Background(), rawParams(t, `{"a": 2, "b": 3}`))
	if err != nil {
		t.Fatalf("Invoke: %v", err)
	}
	if got != 5 {
		t.Fatalf("result = %v; want 5", got)
	}
}

func TestMethodInvokeAbsentParamsKeepZero(t *testing.T) {
	m := NewMethod("Add", func(ctx context.Context, args addArgs) (any, error) {
		return args.A + args.B, nil
	})

	got, err := m.Invoke(context.Background(), rawParams(t, `{"a": 7}`))
	if err != nil {
		t.Fatalf("Invoke: %v", err)
	}
	if got != 7 {
		t.Fatalf("result = %v; want 7", got)
	}

	got, err = m.Invoke(context.Background(), nil)
	if err != nil {
		t.Fatalf("Invoke with nil params: %v", err)
	}
	if got != 0 {
		t.Fatalf("result = %v; want 0", got)
	}
}

func TestMethodInvokeIgnoredParamNeverBinds(t *testing.T) {
	type args struct {
		Visible int `json:"v"`
		Hidden  int `json:"-"`
	}
	m := NewMethod("Peek", func(ctx context.Context, a args) (any, error) {
		return a, nil
	})

	got, err := m.Invoke(context.Background(), rawParams(t, `{"v": 1, "Hidden": 42, "hidden": 43}`))
	if err != nil {
		t.Fatalf("Invoke: %v", err)
	}
	a, ok := got.(args)
	if !ok {
		t.Fatalf("result type = %T; want args", got)
	}
	if a.Visible != 1 {
		t.Fatalf("Visible = %d; want 1", a.Visible)
	}
	if a.Hidden != 0 {
		t.Fatalf("Hidden = %d; want 0 (ignored parameters keep their default)", a.Hidden)
	}
}

func TestMethodInvokeCoercesStringLiterals(t *testing.T) {
	type args struct {
		N    int     `json:"n"`
		F    float64 `json:"f"`
		Flag bool    `json:"flag"`
	}
	m := NewMethod("Coerce", func(ctx context.Context, a args) (any, error) {
		return a, nil
	})

	got, err := m.Invoke(context.Background(), rawParams(t, `{"n": "42", "f": "2.5", "flag": "true"}`))
	if err != nil {
		t.Fatalf("Invoke: %v", err)
	}
	a := got.(args)
	if a.N != 42 || a.F != 2.5 || !a.Flag {
		t.Fatalf("args = %+v; want {N:42 F:2.5 Flag:true}", a)
	}
}

func TestMethodInvokeConversionFailure(t *testing.T) {
	called := false
	m := NewMethod("Add", func(ctx context.Context, args addArgs) (any, error) {
		called = true
		return nil, nil
	})

	_, err := m.Invoke(context.Background(), rawParams(t, `{"a": "not-a-number"}`))
	if err == nil {
		t.Fatalf("expected a bind error")
	}
	var bindErr *BindError
	if !errors.As(err, &bindErr) {
		t.Fatalf("error = %T (%v); want *BindError", err, err)
	}
	if bindErr.Param != "a" {
		t.Fatalf("BindError.Param = %q; want %q", bindErr.Param, "a")
	}
	if called {
		t.Fatalf("handler must not run after a bind failure")
	}
}

func TestMethodParamsReflection(t *testing.T) {
	type args struct {
		Count    int      `json:"count"`
		Ratio    float64  `json:"ratio"`
		Label    string   `json:"label"`
		Enabled  bool     `json:"enabled"`
		Tags     []string `json:"tags"`
		Internal string   `json:"-"`
		Untagged int
	}
	m := NewMethod("Describe", func(ctx context.Context, a args) (any, error) {
		return nil, nil
	})

	want := []Param{
		{Name: "count", TypeName: "integer"},
		{Name: "ratio", TypeName: "number"},
		{Name: "label", TypeName: "string"},
		{Name: "enabled", TypeName: "boolean"},
		{Name: "tags", TypeName: "array"},
		{Name: "Internal", TypeName: "string", Ignored: true},
		{Name: "Untagged", TypeName: "integer"},
	}
	got := m.Params()
	if len(got) != len(want) {
		t.Fatalf("Params() returned %d entries; want %d: %+v", len(got), len(want), got)
	}
	for i := range want {
		if got[i].Name != want[i].Name || got[i].TypeName != want[i].TypeName || got[i].Ignored != want[i].Ignored {
			t.Fatalf("Params()[%d] = %+v; want %+v", i, got[i], want[i])
		}
	}
}
