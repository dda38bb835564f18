// Package httprpc serves the dispatch endpoint over HTTP. It mounts as a
// standard net/http handler and performs content negotiation around a single
// path; the engine does the rest.
//
// Negotiation
//
//   - No Content-Type header: the self-describing introspection listing is
//     returned as a success envelope with a null id. No procedure runs.
//   - application/json (parameters after ";" ignored): the body is one
//     request envelope.
//   - multipart/form-data: the envelope JSON rides the form field named
//     "request"; other parts are ignored.
//   - Any other media type: 415 Unsupported Media Type with an empty body.
//
// Only GET and POST are accepted; other verbs yield 404 Not Found.
//
// # Error Handling
//
// Dispatch faults never surface as HTTP statuses. Every decodable failure is
// serialized as a JSON-RPC error envelope on a 200 response, identifier
// echoed when it could be recovered and null otherwise. Responses are
// pretty-printed.
//
// Bearer credentials are extracted from the Authorization header and carried
// to the authentication interceptor; the transport itself never rejects a
// request for auth reasons.
//
// Construction:
//
//	h := httprpc.NewHandler(reg)
//	srv := httprpc.NewServer(h)
//	if err := srv.Start("127.0.0.1:8080"); err != nil {
//	    log.Fatal(err)
//	}
//	defer srv.Stop(context.Background())
package httprpc
