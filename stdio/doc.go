// Package stdio implements a single-connection transport over stdin/stdout.
// It is intended for embedding the dispatcher as a subprocess, local
// development, and environments where piping JSON lines is simpler than
// running an HTTP server.
//
// Characteristics
//
//	Connection model : 1 process <-> 1 client
//	Identity         : OS user (lightweight implicit principal)
//	Framing          : newline-delimited JSON-RPC, one envelope per line
//
// Every decodable request yields exactly one response line except
// notifications, whose responses are suppressed. Malformed lines yield a
// parse-error envelope with a null id, since a reply may still be expected.
//
// Example:
//
//	reg := rpcservice.NewRegistry()
//	// reg.Register(...)
//	h := stdio.NewHandler(reg)
//	if err := h.Serve(context.Background()); err != nil {
//	    log.Fatal(err)
//	}
//
// For multi-client deployments prefer the HTTP transport, which adds content
// negotiation, introspection, and bearer authentication.
package stdio
