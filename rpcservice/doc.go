// Package rpcservice declares the method surface a dispatch engine serves.
//
// A Method pairs a wire name fragment with a typed handler. NewMethod
// reflects the handler's argument struct once, at construction, to learn the
// ordered parameter list: json tags supply bind names, a `json:"-"` tag
// marks a parameter that never binds from the wire, and the protocol-level
// type name for each parameter comes from the reflected JSON schema.
//
// Methods are grouped into a MethodSet under a unit name and registered with
// a Registry before serving starts. The registry derives each public name as
// the explicit override when one is given, otherwise "<unit>.<member>",
// strips a trailing "Async" suffix, and lowercases the result. Lookup is
// case-insensitive and duplicate normalized names abort registration.
//
//	calc := rpcservice.NewMethodSet("Calculator",
//	    rpcservice.NewMethod("AddAsync", func(ctx context.Context, args AddArgs) (any, error) {
//	        return args.A + args.B, nil
//	    }),
//	)
//	reg := rpcservice.NewRegistry()
//	if err := reg.Register(calc); err != nil {
//	    log.Fatal(err)
//	}
package rpcservice
