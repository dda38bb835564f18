package rpcservice

import (
	"context"
	"encoding/json"
	"fmt"
	"reflect"
	"strconv"
	"strings"
)

// asyncSuffix is the conventional trailing marker for asynchronous handler
// members. Derived wire names drop it so callers never see host-side naming
// conventions. Only a true suffix is stripped; names like "AsyncBatch" keep
// their prefix.
const asyncSuffix = "Async"

// HandlerFunc is the typed invocation signature for a method. The argument
// struct A is populated from the request's named parameters before the call;
// the returned value becomes the response result.
type HandlerFunc[A any] func(ctx context.Context, args A) (any, error)

// Param describes one formal parameter of a method in declaration order.
type Param struct {
	Name     string
	TypeName string
	Ignored  bool
}

// Method is an immutable procedure descriptor: a member name, the ordered
// formal parameter list, and a bind-and-invoke closure. Descriptors are
// built once and owned by the Registry after registration.
type Method struct {
	member   string
	explicit string
	params   []Param
	invoke   func(ctx context.Context, params map[string]json.RawMessage) (any, error)
}

// MethodOption configures NewMethod.
type MethodOption func(*methodConfig)

type methodConfig struct {
	name string
}

// WithName overrides the derived wire name for the method. The override
// replaces the whole unit-qualified name, not just the member part, and is
// still subject to suffix stripping and lowercasing.
func WithName(name string) MethodOption {
	return func(c *methodConfig) { c.name = name }
}

// NewMethod builds a descriptor for member from a typed handler. Parameter
// metadata is reflected from A's exported fields in declaration order.
func NewMethod[A any](member string, fn HandlerFunc[A], opts ...MethodOption) *Method {
	cfg := methodConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}

	specs := reflectParams[A]()
	params := make([]Param, len(specs))
	for i, s := range specs {
		params[i] = Param{Name: s.bindName, TypeName: s.typeName, Ignored: s.ignored}
	}

	invoke := func(ctx context.Context, wire map[string]json.RawMessage) (any, error) {
		var args A
		if len(specs) > 0 {
			v := reflect.ValueOf(&args).Elem()
			for _, s := range specs {
				if s.ignored {
					continue
				}
				raw, ok := wire[s.bindName]
				if !ok {
					continue
				}
				if err := bindField(v.Field(s.fieldIndex), raw); err != nil {
					return nil, &BindError{Param: s.bindName, Err: err}
				}
			}
		}
		return fn(ctx, args)
	}

	return &Method{member: member, explicit: cfg.name, params: params, invoke: invoke}
}

// Params returns a copy of the method's formal parameter list.
func (m *Method) Params() []Param {
	out := make([]Param, len(m.params))
	copy(out, m.params)
	return out
}

// Invoke binds the request's named parameters to the handler's argument
// struct and runs the handler. Ignored parameters and parameters absent from
// the wire keep their zero values. A conversion failure is reported as a
// *BindError without invoking the handler.
func (m *Method) Invoke(ctx context.Context, params map[string]json.RawMessage) (any, error) {
	return m.invoke(ctx, params)
}

// wireName derives the public name before normalization: the explicit
// override when present, otherwise the unit-qualified member name.
func (m *Method) wireName(unit string) string {
	if m.explicit != "" {
		return m.explicit
	}
	return unit + "." + m.member
}

// BindError reports a wire value that could not be converted to its
// parameter's declared type.
type BindError struct {
	Param string
	Err   error
}

func (e *BindError) Error() string {
	return fmt.Sprintf("parameter %q: %v", e.Param, e.Err)
}

func (e *BindError) Unwrap() error { return e.Err }

type paramSpec struct {
	fieldIndex int
	bindName   string
	typeName   string
	ignored    bool
}

// reflectParams walks A's exported fields in declaration order, pairing each
// with its protocol type name from the reflected schema.
func reflectParams[A any]() []paramSpec {
	t := reflect.TypeOf((*A)(nil)).Elem()
	if t.Kind() != reflect.Struct {
		return nil
	}
	types := typeNames[A]()
	var specs []paramSpec
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}
		name, ignored := fieldBindName(f)
		tn, ok := types[name]
		if !ok {
			tn = typeNameFor(f.Type)
		}
		specs = append(specs, paramSpec{fieldIndex: i, bindName: name, typeName: tn, ignored: ignored})
	}
	return specs
}

// fieldBindName resolves a field's wire name from its json tag. A bare "-"
// tag marks the parameter ignored.
func fieldBindName(f reflect.StructField) (name string, ignored bool) {
	tag := f.Tag.Get("json")
	if tag == "-" {
		return f.Name, true
	}
	name, _, _ = strings.Cut(tag, ",")
	if name == "" {
		name = f.Name
	}
	return name, false
}

// bindField decodes one wire value into a struct field. When plain decoding
// fails and the wire value is a string literal, the quoted text is re-parsed
// against numeric and boolean targets so callers may send "42" where 42 is
// declared.
func bindField(field reflect.Value, raw json.RawMessage) error {
	err := json.Unmarshal(raw, field.Addr().Interface())
	if err == nil {
		return nil
	}
	var lit string
	if json.Unmarshal(raw, &lit) != nil {
		return err
	}
	if coerceLiteral(field, lit) {
		return nil
	}
	return err
}

func coerceLiteral(field reflect.Value, lit string) bool {
	switch field.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, err := strconv.ParseInt(lit, 10, 64)
		if err != nil || field.OverflowInt(n) {
			return false
		}
		field.SetInt(n)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		n, err := strconv.ParseUint(lit, 10, 64)
		if err != nil || field.OverflowUint(n) {
			return false
		}
		field.SetUint(n)
	case reflect.Float32, reflect.Float64:
		f, err := strconv.ParseFloat(lit, 64)
		if err != nil || field.OverflowFloat(f) {
			return false
		}
		field.SetFloat(f)
	case reflect.Bool:
		b, err := strconv.ParseBool(lit)
		if err != nil {
			return false
		}
		field.SetBool(b)
	default:
		return false
	}
	return true
}
