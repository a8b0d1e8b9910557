package server

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"testing"

	"connectrpc.com/connect"
)

func TestServer_CBORClient(t *testing.T) {
	_, ts := newTestHTTPServer(t)

	create := connect.NewClient[CreateSessionRequest, CreateSessionResponse](
		http.DefaultClient, ts.URL+CreateSessionProcedure, connect.WithCodec(cborCodec{}))
	eval := connect.NewClient[EvalRequest, EvalResponse](
		http.DefaultClient, ts.URL+EvalProcedure, connect.WithCodec(cborCodec{}))

	session, err := create.CallUnary(bg(), connectReq(&CreateSessionRequest{Name: "cbor"}))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	id := session.Msg.SessionID

	if _, err := eval.CallUnary(bg(), connectReq(&EvalRequest{SessionID: id, Source: "set $n to 20"})); err != nil {
		t.Fatalf("Eval: %v", err)
	}
	resp, err := eval.CallUnary(bg(), connectReq(&EvalRequest{SessionID: id, Source: "print 'x'\n$n + 22"}))
	if err != nil {
		t.Fatalf("Eval: %v", err)
	}
	if resp.Msg.Result != "42" || resp.Msg.Output != "x\n" {
		t.Errorf("Eval = %+v, want result 42 with output x", resp.Msg)
	}
}

func TestServer_JSONClientAndErrors(t *testing.T) {
	_, ts := newTestHTTPServer(t)

	check := connect.NewClient[CheckSyntaxRequest, CheckSyntaxResponse](
		http.DefaultClient, ts.URL+CheckSyntaxProcedure, connect.WithCodec(jsonCodec{}))
	resp, err := check.CallUnary(bg(), connectReq(&CheckSyntaxRequest{Source: "when 1:"}))
	if err != nil {
		t.Fatalf("CheckSyntax: %v", err)
	}
	if resp.Msg.Valid || len(resp.Msg.Diagnostics) != 1 {
		t.Fatalf("CheckSyntax = %+v, want one diagnostic", resp.Msg)
	}
	if resp.Msg.Diagnostics[0].Kind != KindMissingBody {
		t.Errorf("kind = %q, want %q", resp.Msg.Diagnostics[0].Kind, KindMissingBody)
	}

	destroy := connect.NewClient[DestroySessionRequest, DestroySessionResponse](
		http.DefaultClient, ts.URL+DestroySessionProcedure, connect.WithCodec(jsonCodec{}))
	_, err = destroy.CallUnary(bg(), connectReq(&DestroySessionRequest{SessionID: "missing"}))
	if connect.CodeOf(err) != connect.CodeNotFound {
		t.Errorf("Destroy(missing) code = %v, want NotFound", connect.CodeOf(err))
	}
}

func TestServer_PlainHTTPJSON(t *testing.T) {
	_, ts := newTestHTTPServer(t)

	body := strings.NewReader(`{"source": "length of 'hello'"}`)
	res, err := http.Post(ts.URL+EvalProcedure, "application/json", body)
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(res.Body)
		t.Fatalf("status = %d: %s", res.StatusCode, data)
	}

	var out map[string]any
	if err := json.NewDecoder(res.Body).Decode(&out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out["result"] != "5" || out["done"] != true {
		t.Errorf("response = %v", out)
	}
}
