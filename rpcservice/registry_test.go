package rpcservice

import (
	"context"
	"errors"
	"testing"
)

type noArgs struct{}

func nopMethod(member string, opts ...MethodOption) *Method {
	return NewMethod(member, func(ctx context.Context, args noArgs) (any, error) {
		return nil, nil
	}, opts...)
}

func TestRegistryNameDerivation(t *testing.T) {
	cases := []struct {
		name    string
		unit    string
		method  *Method
		want    string
		notWant string
	}{
		{
			name:   "unit qualified and lowercased",
			unit:   "Calculator",
			method: nopMethod("Add"),
			want:   "calculator.add",
		},
		{
			name:   "trailing async suffix stripped",
			unit:   "Calculator",
			method: nopMethod("SubtractAsync"),
			want:   "calculator.subtract",
		},
		{
			name:    "async kept when not trailing",
			unit:    "Jobs",
			method:  nopMethod("AsyncBatch"),
			want:    "jobs.asyncbatch",
			notWant: "jobs.batch",
		},
		{
			name:    "explicit name replaces unit qualification",
			unit:    "Calculator",
			method:  nopMethod("Add", WithName("Sum")),
			want:    "sum",
			notWant: "calculator.sum",
		},
		{
			name:   "explicit name also stripped",
			unit:   "Jobs",
			method: nopMethod("Run", WithName("ProcessAsync")),
			want:   "process",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			reg := NewRegistry()
			if err := reg.Register(NewMethodSet(tc.unit, tc.method)); err != nil {
				t.Fatalf("Register: %v", err)
			}
			if _, ok := reg.Resolve(tc.want); !ok {
				t.Fatalf("Resolve(%q) missed; registered names: %+v", tc.want, reg.All())
			}
			if tc.notWant != "" {
				if _, ok := reg.Resolve(tc.notWant); ok {
					t.Fatalf("Resolve(%q) unexpectedly hit", tc.notWant)
				}
			}
		})
	}
}

func TestRegistryResolveIsCaseInsensitive(t *testing.T) {
	reg := NewRegistry()
	if err := reg.Register(NewMethodSet("Service", nopMethod("Echo"))); err != nil {
		t.Fatalf("Register: %v", err)
	}

	lower, ok := reg.Resolve("service.echo")
	if !ok {
		t.Fatalf("Resolve(service.echo) missed")
	}
	upper, ok := reg.Resolve("SERVICE.ECHO")
	if !ok {
		t.Fatalf("Resolve(SERVICE.ECHO) missed")
	}
	if lower != upper {
		t.Fatalf("case variants resolved to different descriptors")
	}
}

func TestRegistryRejectsDuplicates(t *testing.T) {
	t.Run("within one set", func(t *testing.T) {
		reg := NewRegistry()
		err := reg.Register(NewMethodSet("Service", nopMethod("Echo"), nopMethod("echo")))
		if !errors.Is(err, ErrDuplicateMethod) {
			t.Fatalf("Register error = %v; want ErrDuplicateMethod", err)
		}
	})

	t.Run("across sets", func(t *testing.T) {
		reg := NewRegistry()
		if err := reg.Register(NewMethodSet("Service", nopMethod("Echo"))); err != nil {
			t.Fatalf("first Register: %v", err)
		}
		err := reg.Register(NewMethodSet("Other", nopMethod("x", WithName("Service.Echo"))))
		if !errors.Is(err, ErrDuplicateMethod) {
			t.Fatalf("second Register error = %v; want ErrDuplicateMethod", err)
		}
	})

	t.Run("suffix stripping collides", func(t *testing.T) {
		reg := NewRegistry()
		err := reg.Register(NewMethodSet("Service", nopMethod("Run"), nopMethod("RunAsync")))
		if !errors.Is(err, ErrDuplicateMethod) {
			t.Fatalf("Register error = %v; want ErrDuplicateMethod", err)
		}
	})
}

func TestRegistryAllPreservesRegistrationOrder(t *testing.T) {
	reg := NewRegistry()
	if err := reg.Register(
		NewMethodSet("Calc", nopMethod("Add"), nopMethod("Subtract")),
		NewMethodSet("Info", nopMethod("Version")),
	); err != nil {
		t.Fatalf("Register: %v", err)
	}

	want := []string{"calc.add", "calc.subtract", "info.version"}
	all := reg.All()
	if len(all) != len(want) {
		t.Fatalf("All() returned %d descriptors; want %d", len(all), len(want))
	}
	for i, w := range want {
		if all[i].Name != w {
			t.Fatalf("All()[%d].Name = %q; want %q", i, all[i].Name, w)
		}
	}
}

func TestRegistryAllOmitsIgnoredParameters(t *testing.T) {
	type args struct {
		X      float64 `json:"x"`
		Y      float64 `json:"y"`
		Secret string  `json:"-"`
	}
	m := NewMethod("Scale", func(ctx context.Context, a args) (any, error) {
		return nil, nil
	})

	reg := NewRegistry()
	if err := reg.Register(NewMethodSet("Geo", m)); err != nil {
		t.Fatalf("Register: %v", err)
	}

	all := reg.All()
	if len(all) != 1 {
		t.Fatalf("All() returned %d descriptors; want 1", len(all))
	}
	params := all[0].Parameters
	if len(params) != 2 {
		t.Fatalf("parameters = %+v; want exactly x and y", params)
	}
	if params[0].Name != "x" || params[0].Type != "number" {
		t.Fatalf("parameters[0] = %+v; want {x number}", params[0])
	}
	if params[1].Name != "y" || params[1].Type != "number" {
		t.Fatalf("parameters[1] = %+v; want {y number}", params[1])
	}
}

func TestRegistryAllEmptyParameterList(t *testing.T) {
	reg := NewRegistry()
	if err := reg.Register(NewMethodSet("Info", nopMethod("Ping"))); err != nil {
		t.Fatalf("Register: %v", err)
	}

	all := reg.All()
	if all[0].Parameters == nil {
		t.Fatalf("Parameters must be an empty list, not nil, so introspection renders []")
	}
	if len(all[0].Parameters) != 0 {
		t.Fatalf("Parameters = %+v; want empty", all[0].Parameters)
	}
}
