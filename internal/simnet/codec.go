package simnet

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"unicode"
	"unicode/utf8"

	gorilla "github.com/gorilla/rpc/v2"
)

type request struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Method  string          `json:"method"`
	Params  Params          `json:"params"`
}

type response struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Result  any             `json:"result,omitempty"`
	Error   *rpcError       `json:"error,omitempty"`
}

// Params are the positional arguments of a Solana JSON-RPC call.
type Params []json.RawMessage

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

func (e *rpcError) Error() string { return e.Message }

func invalidParams(format string, args ...any) *rpcError {
	return &rpcError{Code: codeInvalidParams, Message: "Invalid params: " + fmt.Sprintf(format, args...)}
}

// codec speaks the validator dialect of JSON-RPC 2.0 on top of gorilla/rpc:
// bare camelCase method names ("getAccountInfo") are routed to the exported
// methods of one service ("solana.GetAccountInfo"), params stay positional,
// and every answer, errors included, goes out as HTTP 200.
type codec struct {
	service string
	server  *gorilla.Server
}

func (c *codec) NewRequest(r *http.Request) gorilla.CodecRequest {
	req := new(request)
	cr := &codecRequest{codec: c, req: req}
	switch err := json.NewDecoder(r.Body).Decode(req); {
	case err != nil:
		cr.err = &rpcError{Code: codeParseError, Message: "Parse error: " + err.Error()}
	case req.JSONRPC != "2.0":
		cr.err = &rpcError{Code: codeInvalidRequest, Message: "Invalid request: jsonrpc must be 2.0"}
	}
	return cr
}

type codecRequest struct {
	codec *codec
	req   *request
	err   *rpcError
}

func (c *codecRequest) Method() (string, error) {
	if c.err != nil {
		return "", c.err
	}
	method := qualify(c.codec.service, c.req.Method)
	if method == "" || !c.codec.server.HasMethod(method) {
		return "", &rpcError{Code: codeMethodNotFound, Message: "Method not found"}
	}
	return method, nil
}

func (c *codecRequest) ReadRequest(args any) error {
	params, ok := args.(*Params)
	if !ok {
		return fmt.Errorf("simnet: service method takes %T, want *Params", args)
	}
	*params = c.req.Params
	return nil
}

func (c *codecRequest) WriteResponse(w http.ResponseWriter, reply any) {
	resp := response{JSONRPC: "2.0", ID: c.id()}
	if v, ok := reply.(*any); ok {
		resp.Result = *v
	}
	writeJSON(w, resp)
}

func (c *codecRequest) WriteError(w http.ResponseWriter, _ int, err error) {
	var rerr *rpcError
	if !errors.As(err, &rerr) {
		rerr = &rpcError{Code: codeInternalError, Message: "Internal error: " + err.Error()}
	}
	writeJSON(w, response{JSONRPC: "2.0", ID: c.id(), Error: rerr})
}

func (c *codecRequest) id() json.RawMessage {
	if len(c.req.ID) == 0 {
		return json.RawMessage("null")
	}
	return c.req.ID
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

// qualify maps "getAccountInfo" to "solana.GetAccountInfo"; dotted names are refused.
func qualify(service, method string) string {
	if method == "" || strings.Contains(method, ".") {
		return ""
	}
	r, size := utf8.DecodeRuneInString(method)
	return service + "." + string(unicode.ToUpper(r)) + method[size:]
}

// bare reverses qualify for metric labels.
func bare(method string) string {
	_, name, ok := strings.Cut(method, ".")
	if !ok || name == "" {
		return method
	}
	r, size := utf8.DecodeRuneInString(name)
	return string(unicode.ToLower(r)) + name[size:]
}
