package httprpc_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/jsonrpcd/jsonrpcd-go/auth"
	"github.com/jsonrpcd/jsonrpcd-go/auth/authtest"
	"github.com/jsonrpcd/jsonrpcd-go/httprpc"
	"github.com/jsonrpcd/jsonrpcd-go/rpcservice"
)

type addArgs struct {
	A int `json:"a"`
	B int `json:"b"`
}

func newTestRegistry(t *testing.T) *rpcservice.Registry {
	t.Helper()
	reg := rpcservice.NewRegistry()
	calc := rpcservice.NewMethodSet("Calculator",
		rpcservice.NewMethod("AddAsync", func(ctx context.Context, args addArgs) (any, error) {
			return args.A + args.B, nil
		}),
		rpcservice.NewMethod("Fail", func(ctx context.Context, args struct{}) (any, error) {
			return nil, errors.New("division by zero")
		}),
		rpcservice.NewMethod("WhoAmI", func(ctx context.Context, args struct{}) (any, error) {
			user, err := auth.RequireUser(ctx)
			if err != nil {
				return nil, err
			}
			return user.UserID(), nil
		}),
	)
	if err := reg.Register(calc); err != nil {
		t.Fatalf("failed to register methods: %v", err)
	}
	return reg
}

func newTestServer(t *testing.T, opts ...httprpc.HandlerOption) *httptest.Server {
	t.Helper()
	ts := httptest.NewServer(httprpc.NewHandler(newTestRegistry(t), opts...))
	t.Cleanup(ts.Close)
	return ts
}

type wireError struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type wireResponse struct {
	ID      json.RawMessage `json:"id"`
	JSONRPC string          `json:"jsonrpc"`
	Result  json.RawMessage `json:"result"`
	Error   *wireError      `json:"error"`
}

func readBody(t *testing.T, resp *http.Response) []byte {
	t.Helper()
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("failed to read response body: %v", err)
	}
	return body
}

func decodeEnvelope(t *testing.T, body []byte) wireResponse {
	t.Helper()
	var env wireResponse
	if err := json.Unmarshal(body, &env); err != nil {
		t.Fatalf("failed to decode envelope %q: %v", body, err)
	}
	return env
}

func postJSON(t *testing.T, url, body string) *http.Response {
	t.Helper()
	resp, err := http.Post(url, "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	return resp
}

func TestIntrospectionWithoutContentType(t *testing.T) {
	ts := newTestServer(t)

	resp, err := http.Get(ts.URL + "/rpc")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("want status 200, got %d", resp.StatusCode)
	}

	env := decodeEnvelope(t, readBody(t, resp))
	if env.Error != nil {
		t.Fatalf("want success envelope, got error %+v", env.Error)
	}
	if string(env.ID) != "null" {
		t.Fatalf("want null id, got %s", env.ID)
	}

	var listing []struct {
		Name       string `json:"name"`
		Parameters []struct {
			Name string `json:"name"`
			Type string `json:"type"`
		} `json:"parameters"`
	}
	if err := json.Unmarshal(env.Result, &listing); err != nil {
		t.Fatalf("failed to decode listing: %v", err)
	}

	wantNames := []string{"calculator.add", "calculator.fail", "calculator.whoami"}
	if len(listing) != len(wantNames) {
		t.Fatalf("want %d methods, got %d", len(wantNames), len(listing))
	}
	for i, want := range wantNames {
		if listing[i].Name != want {
			t.Fatalf("method %d: want %q, got %q", i, want, listing[i].Name)
		}
	}
	if len(listing[0].Parameters) != 2 {
		t.Fatalf("want 2 parameters on %q, got %d", listing[0].Name, len(listing[0].Parameters))
	}
	if got := listing[0].Parameters[0]; got.Name != "a" || got.Type != "integer" {
		t.Fatalf("want parameter a:integer, got %s:%s", got.Name, got.Type)
	}
}

func TestPostJSONDispatch(t *testing.T) {
	ts := newTestServer(t)

	resp := postJSON(t, ts.URL+"/rpc", `{"id":"1","method":"calculator.add","params":{"a":2,"b":3}}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("want status 200, got %d", resp.StatusCode)
	}
	if got := resp.Header.Get("Content-Type"); got != "application/json" {
		t.Fatalf("want application/json response, got %q", got)
	}

	env := decodeEnvelope(t, readBody(t, resp))
	if env.Error != nil {
		t.Fatalf("want success envelope, got error %+v", env.Error)
	}
	if env.JSONRPC != "2.0" {
		t.Fatalf("want protocol version 2.0, got %q", env.JSONRPC)
	}
	if string(env.ID) != `"1"` {
		t.Fatalf("want id %q echoed, got %s", "1", env.ID)
	}
	if string(env.Result) != "5" {
		t.Fatalf("want result 5, got %s", env.Result)
	}
}

func TestResponsesArePrettyPrinted(t *testing.T) {
	ts := newTestServer(t)

	resp := postJSON(t, ts.URL+"/rpc", `{"id":"1","method":"calculator.add","params":{"a":2,"b":3}}`)
	body := string(readBody(t, resp))

	if !strings.HasPrefix(body, "{\n  \"id\"") {
		t.Fatalf("want indented envelope, got %q", body)
	}
	if !strings.HasSuffix(body, "}\n") {
		t.Fatalf("want trailing newline, got %q", body)
	}
}

func TestMalformedJSONYieldsParseError(t *testing.T) {
	ts := newTestServer(t)

	resp := postJSON(t, ts.URL+"/rpc", `{"id": "1", "method":`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("want status 200 despite parse failure, got %d", resp.StatusCode)
	}

	env := decodeEnvelope(t, readBody(t, resp))
	if env.Error == nil {
		t.Fatal("want error envelope")
	}
	if env.Error.Code != -32700 {
		t.Fatalf("want code -32700, got %d", env.Error.Code)
	}
	if env.Error.Message != "Parse error" {
		t.Fatalf("want message %q, got %q", "Parse error", env.Error.Message)
	}
	if string(env.ID) != "null" {
		t.Fatalf("want null id for undecodable input, got %s", env.ID)
	}
}

func TestUnsupportedMediaType(t *testing.T) {
	ts := newTestServer(t)

	resp, err := http.Post(ts.URL+"/rpc", "text/plain", strings.NewReader("calculator.add"))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != http.StatusUnsupportedMediaType {
		t.Fatalf("want status 415, got %d", resp.StatusCode)
	}
	if body := readBody(t, resp); len(body) != 0 {
		t.Fatalf("want empty body, got %q", body)
	}
}

func TestMediaTypeParametersIgnored(t *testing.T) {
	ts := newTestServer(t)

	resp, err := http.Post(ts.URL+"/rpc", "application/json; charset=utf-8",
		strings.NewReader(`{"id":"1","method":"calculator.add","params":{"a":2,"b":3}}`))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}

	env := decodeEnvelope(t, readBody(t, resp))
	if env.Error != nil {
		t.Fatalf("want success envelope, got error %+v", env.Error)
	}
	if string(env.Result) != "5" {
		t.Fatalf("want result 5, got %s", env.Result)
	}
}

func TestUnsupportedVerbNotFound(t *testing.T) {
	ts := newTestServer(t)

	for _, verb := range []string{http.MethodDelete, http.MethodPut, http.MethodPatch} {
		req, err := http.NewRequest(verb, ts.URL+"/rpc", nil)
		if err != nil {
			t.Fatalf("failed to build request: %v", err)
		}
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			t.Fatalf("request failed: %v", err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusNotFound {
			t.Fatalf("%s: want status 404, got %d", verb, resp.StatusCode)
		}
	}
}

func TestUnknownPathNotFound(t *testing.T) {
	ts := newTestServer(t)

	resp, err := http.Get(ts.URL + "/other")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("want status 404, got %d", resp.StatusCode)
	}
}

func TestWithPathMountsElsewhere(t *testing.T) {
	ts := httptest.NewServer(httprpc.NewHandler(newTestRegistry(t), httprpc.WithPath("/api/rpc")))
	t.Cleanup(ts.Close)

	resp := postJSON(t, ts.URL+"/api/rpc", `{"id":"1","method":"calculator.add","params":{"a":1,"b":1}}`)
	env := decodeEnvelope(t, readBody(t, resp))
	if string(env.Result) != "2" {
		t.Fatalf("want result 2, got %s", env.Result)
	}

	other, err := http.Get(ts.URL + "/rpc")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	other.Body.Close()
	if other.StatusCode != http.StatusNotFound {
		t.Fatalf("want status 404 on unmounted path, got %d", other.StatusCode)
	}
}

func TestGetWithJSONBodyDispatches(t *testing.T) {
	ts := newTestServer(t)

	req, err := http.NewRequest(http.MethodGet, ts.URL+"/rpc",
		strings.NewReader(`{"id":"3","method":"calculator.add","params":{"a":7,"b":8}}`))
	if err != nil {
		t.Fatalf("failed to build request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	env := decodeEnvelope(t, readBody(t, resp))
	if string(env.Result) != "15" {
		t.Fatalf("want result 15, got %s", env.Result)
	}
	if string(env.ID) != `"3"` {
		t.Fatalf("want id %q echoed, got %s", "3", env.ID)
	}
}

func TestNotificationGetsEnvelope(t *testing.T) {
	ts := newTestServer(t)

	resp := postJSON(t, ts.URL+"/rpc", `{"method":"calculator.add","params":{"a":2,"b":3}}`)
	env := decodeEnvelope(t, readBody(t, resp))
	if env.Error != nil {
		t.Fatalf("want success envelope, got error %+v", env.Error)
	}
	if string(env.ID) != "null" {
		t.Fatalf("want null id for notification, got %s", env.ID)
	}
	if string(env.Result) != "5" {
		t.Fatalf("want result 5, got %s", env.Result)
	}
}

func TestExecutionErrorCarriesDetail(t *testing.T) {
	ts := newTestServer(t)

	resp := postJSON(t, ts.URL+"/rpc", `{"id":"4","method":"calculator.fail"}`)
	env := decodeEnvelope(t, readBody(t, resp))
	if env.Error == nil {
		t.Fatal("want error envelope")
	}
	if env.Error.Code != -32000 {
		t.Fatalf("want code -32000, got %d", env.Error.Code)
	}
	if string(env.ID) != `"4"` {
		t.Fatalf("want id %q echoed, got %s", "4", env.ID)
	}
	if !strings.Contains(string(env.Error.Data), "division by zero") {
		t.Fatalf("want fault detail in data, got %s", env.Error.Data)
	}
}

func TestMultipartRequestField(t *testing.T) {
	ts := newTestServer(t)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if err := mw.WriteField("noise", "ignored"); err != nil {
		t.Fatalf("failed to write field: %v", err)
	}
	if err := mw.WriteField("request", `{"id":"9","method":"calculator.add","params":{"a":4,"b":6}}`); err != nil {
		t.Fatalf("failed to write field: %v", err)
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("failed to finish form: %v", err)
	}

	resp, err := http.Post(ts.URL+"/rpc", mw.FormDataContentType(), &buf)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	env := decodeEnvelope(t, readBody(t, resp))
	if env.Error != nil {
		t.Fatalf("want success envelope, got error %+v", env.Error)
	}
	if string(env.ID) != `"9"` {
		t.Fatalf("want id %q echoed, got %s", "9", env.ID)
	}
	if string(env.Result) != "10" {
		t.Fatalf("want result 10, got %s", env.Result)
	}
}

func TestMultipartMissingRequestField(t *testing.T) {
	ts := newTestServer(t)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if err := mw.WriteField("other", "data"); err != nil {
		t.Fatalf("failed to write field: %v", err)
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("failed to finish form: %v", err)
	}

	resp, err := http.Post(ts.URL+"/rpc", mw.FormDataContentType(), &buf)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("want status 200, got %d", resp.StatusCode)
	}

	env := decodeEnvelope(t, readBody(t, resp))
	if env.Error == nil {
		t.Fatal("want error envelope")
	}
	if env.Error.Code != -32700 {
		t.Fatalf("want code -32700, got %d", env.Error.Code)
	}
	if !strings.Contains(string(env.Error.Data), "request") {
		t.Fatalf("want missing field named in data, got %s", env.Error.Data)
	}
}

func TestBearerTokenEstablishesUser(t *testing.T) {
	authn := authtest.NewStatic()
	authn.Add("good-token", "user-7", nil)
	ts := newTestServer(t, httprpc.WithInterceptors(auth.NewBearerInterceptor(authn)))

	req, err := http.NewRequest(http.MethodPost, ts.URL+"/rpc",
		strings.NewReader(`{"id":"1","method":"calculator.whoami"}`))
	if err != nil {
		t.Fatalf("failed to build request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer good-token")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	env := decodeEnvelope(t, readBody(t, resp))
	if env.Error != nil {
		t.Fatalf("want success envelope, got error %+v", env.Error)
	}
	if string(env.Result) != `"user-7"` {
		t.Fatalf("want authenticated subject, got %s", env.Result)
	}
}

func TestMissingBearerYieldsUnauthorized(t *testing.T) {
	authn := authtest.NewStatic()
	authn.Add("good-token", "user-7", nil)
	ts := newTestServer(t, httprpc.WithInterceptors(auth.NewBearerInterceptor(authn)))

	resp := postJSON(t, ts.URL+"/rpc", `{"id":"1","method":"calculator.whoami"}`)
	env := decodeEnvelope(t, readBody(t, resp))
	if env.Error == nil {
		t.Fatal("want error envelope")
	}
	if env.Error.Code != -32001 {
		t.Fatalf("want code -32001, got %d", env.Error.Code)
	}
	if env.Error.Message != "Unauthorized" {
		t.Fatalf("want message %q, got %q", "Unauthorized", env.Error.Message)
	}
}

func TestWithMiddlewareWrapsEndpoint(t *testing.T) {
	var order []string
	tag := func(name string) httprpc.Middleware {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				w.Header().Set("X-Seen-"+name, "1")
				next.ServeHTTP(w, r)
			})
		}
	}
	ts := newTestServer(t, httprpc.WithMiddleware(tag("outer"), tag("inner")))

	resp := postJSON(t, ts.URL+"/rpc", `{"id":"1","method":"calculator.add","params":{"a":2,"b":3}}`)
	env := decodeEnvelope(t, readBody(t, resp))
	if env.Error != nil {
		t.Fatalf("want success envelope, got error %+v", env.Error)
	}
	if resp.Header.Get("X-Seen-outer") != "1" || resp.Header.Get("X-Seen-inner") != "1" {
		t.Fatal("middleware did not see the request")
	}
	if len(order) != 2 || order[0] != "outer" || order[1] != "inner" {
		t.Fatalf("middleware order = %v, want [outer inner]", order)
	}
}
