package transport

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"go.lsp.dev/jsonrpc2"
	"go.lsp.dev/protocol"

	"github.com/Zack-911/forgelsp/internal/dsl"
)

// newTestServer builds a Server whose metadata trie is populated from
// fns via a forgeconfig.json pointing at a local httptest server, so
// tests exercise the same config-discovery and fetch path production
// code uses instead of reaching into the metadata manager directly.
func newTestServer(t *testing.T, fns []*dsl.Function) *Server {
	t.Helper()

	body, err := json.Marshal(fns)
	if err != nil {
		t.Fatal(err)
	}
	remote := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(body)
	}))
	t.Cleanup(remote.Close)

	wsDir := t.TempDir()
	cfgBody := `{"urls": ["` + remote.URL + `"]}`
	if err := os.WriteFile(filepath.Join(wsDir, "forgeconfig.json"), []byte(cfgBody), 0644); err != nil {
		t.Fatal(err)
	}

	s, err := New(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	s.docs.Initialize(context.Background(), []string{wsDir})
	return s
}

func callRequest(t *testing.T, method string, params interface{}) jsonrpc2.Request {
	t.Helper()
	call, err := jsonrpc2.NewCall(jsonrpc2.NewID(1), method, params)
	if err != nil {
		t.Fatal(err)
	}
	return call
}

type replyCapture struct {
	result interface{}
	err    error
	called bool
}

func (c *replyCapture) replier(ctx context.Context, result interface{}, err error) error {
	c.result = result
	c.err = err
	c.called = true
	return nil
}

func TestHandleInitializeAdvertisesDistinctAlternateFunctionLegend(t *testing.T) {
	s := newTestServer(t, nil)
	req := callRequest(t, protocol.MethodInitialize, &protocol.InitializeParams{})
	capture := &replyCapture{}

	if err := s.handle(context.Background(), capture.replier, req); err != nil {
		t.Fatal(err)
	}
	if !capture.called {
		t.Fatal("expected reply to be called")
	}
	result, ok := capture.result.(*protocol.InitializeResult)
	if !ok {
		t.Fatalf("expected *protocol.InitializeResult, got %T", capture.result)
	}

	semTok, ok := result.Capabilities.SemanticTokensProvider.(*protocol.SemanticTokensOptions)
	if !ok {
		t.Fatalf("expected *protocol.SemanticTokensOptions, got %T", result.Capabilities.SemanticTokensProvider)
	}
	legend := semTok.Legend.TokenTypes
	if len(legend) < 4 {
		t.Fatalf("expected at least 4 legend entries, got %v", legend)
	}
	if legend[0] == legend[3] {
		t.Errorf("expected distinct legend names for function (0) and alternate-function (3), got both %q", legend[0])
	}
}

func TestHandleHoverReturnsFormattedSignature(t *testing.T) {
	s := newTestServer(t, []*dsl.Function{
		{
			Name:        "ping",
			Description: "pings a host",
			Brackets:    dsl.BracketsRequired,
			Args:        []dsl.Arg{{Name: "url", Required: true}},
		},
	})

	uri := "file:///doc.txt"
	s.docs.Open(uri, "code:`$ping[example.com]`")

	params := &protocol.HoverParams{
		TextDocumentPositionParams: protocol.TextDocumentPositionParams{
			TextDocument: protocol.TextDocumentIdentifier{URI: protocol.DocumentURI(uri)},
			Position:     protocol.Position{Line: 0, Character: 7},
		},
	}
	req := callRequest(t, protocol.MethodTextDocumentHover, params)
	capture := &replyCapture{}

	if err := s.handle(context.Background(), capture.replier, req); err != nil {
		t.Fatal(err)
	}
	result, ok := capture.result.(*protocol.Hover)
	if !ok || result == nil {
		t.Fatalf("expected a non-nil *protocol.Hover, got %T (%v)", capture.result, capture.result)
	}
	if result.Contents.Value == "" {
		t.Error("expected hover content to be populated")
	}
}

func TestHandleSemanticTokensFullAlternatesLegendIndices(t *testing.T) {
	s := newTestServer(t, []*dsl.Function{
		{Name: "ping", Brackets: dsl.BracketsRequired},
	})

	uri := "file:///doc2.txt"
	s.docs.Open(uri, "code:`$ping[a] $ping[b]`")

	params := &protocol.SemanticTokensParams{
		TextDocument: protocol.TextDocumentIdentifier{URI: protocol.DocumentURI(uri)},
	}
	req := callRequest(t, protocol.MethodTextDocumentSemanticTokensFull, params)
	capture := &replyCapture{}

	if err := s.handle(context.Background(), capture.replier, req); err != nil {
		t.Fatal(err)
	}
	result, ok := capture.result.(*protocol.SemanticTokens)
	if !ok || result == nil {
		t.Fatalf("expected a non-nil *protocol.SemanticTokens, got %T", capture.result)
	}
	if len(result.Data)%5 != 0 || len(result.Data) == 0 {
		t.Fatalf("expected a non-empty multiple-of-5 data array, got %v", result.Data)
	}

	var typeIndices []uint32
	for i := 3; i < len(result.Data); i += 5 {
		typeIndices = append(typeIndices, result.Data[i])
	}
	if len(typeIndices) < 2 {
		t.Fatalf("expected at least two resolved function tokens, got %d", len(typeIndices))
	}
	if typeIndices[0] == typeIndices[1] {
		t.Errorf("expected alternating legend type indices across resolved calls, got %v", typeIndices)
	}
}
