package rpcservice

import (
	"reflect"

	"github.com/invopop/jsonschema"
)

// typeNames reflects A's JSON schema and returns the protocol-level type
// name for each property, keyed by bind name.
func typeNames[A any]() map[string]string {
	r := &jsonschema.Reflector{
		DoNotReference: true, // inline defs
		ExpandedStruct: true, // put struct at root
	}
	s := r.Reflect(new(A))

	out := make(map[string]string)
	if s == nil || s.Properties == nil {
		return out
	}
	for el := s.Properties.Oldest(); el != nil; el = el.Next() {
		tn := el.Value.Type
		if tn == "" {
			tn = "object"
		}
		out[el.Key] = tn
	}
	return out
}

// typeNameFor maps a host type to its protocol-level name when schema
// reflection has no entry for it.
func typeNameFor(t reflect.Type) string {
	switch t.Kind() {
	case reflect.Pointer:
		return typeNameFor(t.Elem())
	case reflect.Bool:
		return "boolean"
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return "integer"
	case reflect.Float32, reflect.Float64:
		return "number"
	case reflect.String:
		return "string"
	case reflect.Slice, reflect.Array:
		return "array"
	default:
		return "object"
	}
}
