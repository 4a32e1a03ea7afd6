// Package transport binds the document and feature services to the
// Language Server Protocol over stdio JSON-RPC2. It is intentionally
// thin: type conversion and dispatch only, no independent business
// logic. The core's hover/completion/signature-help handlers are
// protocol-agnostic; this package is the one place that knows about
// go.lsp.dev/protocol wire types.
package transport

import (
	"context"
	"encoding/json"
	"io"
	"os"

	"go.lsp.dev/jsonrpc2"
	"go.lsp.dev/protocol"
	"go.lsp.dev/uri"

	"github.com/Zack-911/forgelsp/internal/document"
	"github.com/Zack-911/forgelsp/internal/dsl"
	"github.com/Zack-911/forgelsp/internal/errors"
	"github.com/Zack-911/forgelsp/internal/features"
	"github.com/Zack-911/forgelsp/internal/logging"
	"github.com/Zack-911/forgelsp/internal/semtok"
)

// Server adapts a document.Service to LSP over stdio.
type Server struct {
	docs *document.Service
	conn jsonrpc2.Conn
}

// New constructs a Server backed by a Document Service rooted at
// cacheDir for the metadata manager's disk cache.
func New(cacheDir string) (*Server, error) {
	s := &Server{}
	docs, err := document.New(cacheDir, s.publishDiagnostics)
	if err != nil {
		return nil, err
	}
	s.docs = docs
	return s, nil
}

// Run starts the stdio JSON-RPC2 connection and blocks until it closes.
func (s *Server) Run(ctx context.Context) error {
	logging.StdioMode = true

	stream := jsonrpc2.NewStream(struct {
		io.Reader
		io.WriteCloser
	}{os.Stdin, os.Stdout})

	conn := jsonrpc2.NewConn(stream)
	s.conn = conn
	conn.Go(ctx, s.handle)

	<-conn.Done()
	return conn.Err()
}

func (s *Server) publishDiagnostics(docURI string, diags []dsl.Diagnostic) {
	if s.conn == nil {
		return
	}
	lspDiags := make([]protocol.Diagnostic, 0, len(diags))
	src, ok := s.docs.Source(docURI)
	if !ok {
		src = ""
	}
	for _, d := range diags {
		lspDiags = append(lspDiags, protocol.Diagnostic{
			Range:    byteSpanToRange(src, d.Span),
			Severity: protocol.DiagnosticSeverity(d.Severity),
			Message:  d.Message,
		})
	}
	params := &protocol.PublishDiagnosticsParams{
		URI:         protocol.DocumentURI(docURI),
		Diagnostics: lspDiags,
	}
	_ = s.conn.Notify(context.Background(), protocol.MethodTextDocumentPublishDiagnostics, params)
}

func (s *Server) handle(ctx context.Context, reply jsonrpc2.Replier, req jsonrpc2.Request) error {
	defer func() {
		if r := recover(); r != nil {
			herr := errors.NewHandlerError(req.Method(), r)
			logging.Warn("transport", "%v", herr)
			_ = reply(ctx, nil, nil)
		}
	}()

	switch req.Method() {
	case protocol.MethodInitialize:
		var params protocol.InitializeParams
		if err := json.Unmarshal(req.Params(), &params); err != nil {
			return reply(ctx, nil, err)
		}
		result := s.initialize(ctx, &params)
		return reply(ctx, result, nil)

	case protocol.MethodInitialized:
		return reply(ctx, nil, nil)

	case protocol.MethodTextDocumentDidOpen:
		var params protocol.DidOpenTextDocumentParams
		if err := json.Unmarshal(req.Params(), &params); err != nil {
			return reply(ctx, nil, err)
		}
		s.docs.Open(string(params.TextDocument.URI), params.TextDocument.Text)
		return reply(ctx, nil, nil)

	case protocol.MethodTextDocumentDidChange:
		var params protocol.DidChangeTextDocumentParams
		if err := json.Unmarshal(req.Params(), &params); err != nil {
			return reply(ctx, nil, err)
		}
		if len(params.ContentChanges) > 0 {
			s.docs.Change(string(params.TextDocument.URI), params.ContentChanges[len(params.ContentChanges)-1].Text)
		}
		return reply(ctx, nil, nil)

	case protocol.MethodTextDocumentDidClose:
		var params protocol.DidCloseTextDocumentParams
		if err := json.Unmarshal(req.Params(), &params); err != nil {
			return reply(ctx, nil, err)
		}
		s.docs.Close(string(params.TextDocument.URI))
		return reply(ctx, nil, nil)

	case protocol.MethodTextDocumentHover:
		var params protocol.HoverParams
		if err := json.Unmarshal(req.Params(), &params); err != nil {
			return reply(ctx, nil, err)
		}
		result := s.hover(&params)
		return reply(ctx, result, nil)

	case protocol.MethodTextDocumentCompletion:
		var params protocol.CompletionParams
		if err := json.Unmarshal(req.Params(), &params); err != nil {
			return reply(ctx, nil, err)
		}
		result := s.completion(&params)
		return reply(ctx, result, nil)

	case protocol.MethodTextDocumentSignatureHelp:
		var params protocol.SignatureHelpParams
		if err := json.Unmarshal(req.Params(), &params); err != nil {
			return reply(ctx, nil, err)
		}
		result := s.signatureHelp(&params)
		return reply(ctx, result, nil)

	case protocol.MethodTextDocumentSemanticTokensFull:
		var params protocol.SemanticTokensParams
		if err := json.Unmarshal(req.Params(), &params); err != nil {
			return reply(ctx, nil, err)
		}
		result := s.semanticTokens(&params)
		return reply(ctx, result, nil)

	case protocol.MethodShutdown:
		s.docs.Shutdown()
		return reply(ctx, nil, nil)

	case protocol.MethodExit:
		return nil

	default:
		return reply(ctx, nil, jsonrpc2.ErrMethodNotFound)
	}
}

func (s *Server) initialize(ctx context.Context, params *protocol.InitializeParams) *protocol.InitializeResult {
	var folders []string
	for _, f := range params.WorkspaceFolders {
		folders = append(folders, uriToPath(f.URI))
	}
	if len(folders) == 0 && params.RootURI != "" {
		folders = append(folders, uriToPath(string(params.RootURI)))
	}
	s.docs.Initialize(ctx, folders)

	return &protocol.InitializeResult{
		Capabilities: protocol.ServerCapabilities{
			TextDocumentSync: protocol.TextDocumentSyncKindFull,
			HoverProvider:    true,
			CompletionProvider: &protocol.CompletionOptions{
				TriggerCharacters: []string{"$", "."},
			},
			SignatureHelpProvider: &protocol.SignatureHelpOptions{
				TriggerCharacters:   []string{"$", "[", ";", ",", " "},
				RetriggerCharacters: []string{",", " "},
			},
			SemanticTokensProvider: &protocol.SemanticTokensOptions{
				Legend: protocol.SemanticTokensLegend{
					// Index 3 must carry a legend name distinct from index 0
					// ("function") or clients have no way to color
					// alternating function tokens differently; see
					// semtok.TypeAlternateFunction.
					TokenTypes: []string{"function", "keyword", "number", "functionAlternate", "string", "comment"},
				},
				Full: true,
			},
			Workspace: &protocol.ServerCapabilitiesWorkspace{
				WorkspaceFolders: &protocol.ServerCapabilitiesWorkspaceFolders{
					Supported: true,
				},
			},
		},
	}
}

func (s *Server) hover(params *protocol.HoverParams) *protocol.Hover {
	docURI := string(params.TextDocument.URI)
	src, ok := s.docs.Source(docURI)
	if !ok {
		return nil
	}
	offset := positionToByteOffset(src, params.Position)
	h := features.ComputeHover(src, offset, s.docs.Snapshot().Trie)
	if !h.Found {
		return nil
	}
	return &protocol.Hover{
		Contents: protocol.MarkupContent{Kind: protocol.Markdown, Value: h.Content},
	}
}

func (s *Server) completion(params *protocol.CompletionParams) *protocol.CompletionList {
	docURI := string(params.TextDocument.URI)
	src, ok := s.docs.Source(docURI)
	if !ok {
		return nil
	}
	line := currentLine(src, params.Position)
	items := features.Completion(line, s.docs.Snapshot().Trie)

	out := make([]protocol.CompletionItem, len(items))
	for i, it := range items {
		out[i] = protocol.CompletionItem{
			Label:         it.Label,
			InsertText:    it.InsertText,
			FilterText:    it.FilterText,
			Detail:        it.Detail,
			Documentation: it.Documentation,
			Kind:          protocol.CompletionItemKindFunction,
		}
	}
	return &protocol.CompletionList{Items: out}
}

func (s *Server) signatureHelp(params *protocol.SignatureHelpParams) *protocol.SignatureHelp {
	docURI := string(params.TextDocument.URI)
	src, ok := s.docs.Source(docURI)
	if !ok {
		return nil
	}
	offset := positionToByteOffset(src, params.Position)
	sig := features.SignatureHelpAt(src, offset, s.docs.Snapshot().Trie, true)
	if !sig.Found {
		return nil
	}

	params_ := make([]protocol.ParameterInformation, len(sig.ParameterLabel))
	for i, p := range sig.ParameterLabel {
		params_[i] = protocol.ParameterInformation{Label: p}
	}

	return &protocol.SignatureHelp{
		Signatures: []protocol.SignatureInformation{{
			Label:      sig.Label,
			Parameters: params_,
		}},
		ActiveParameter: uint32(sig.ActiveParam),
	}
}

func (s *Server) semanticTokens(params *protocol.SemanticTokensParams) *protocol.SemanticTokens {
	docURI := string(params.TextDocument.URI)
	src, ok := s.docs.Source(docURI)
	if !ok {
		return nil
	}
	spans := semtok.Extract(src, s.docs.Snapshot().Trie, s.docs.MultiColor())
	deltas := semtok.Encode(src, spans)

	data := make([]uint32, 0, len(deltas)*5)
	for _, d := range deltas {
		data = append(data, uint32(d.DeltaLine), uint32(d.DeltaStart), uint32(d.Length), uint32(d.TokenType), uint32(d.TokenModifiers))
	}
	return &protocol.SemanticTokens{Data: data}
}

// uriToPath decodes a file:// URI to a filesystem path, handling the
// percent-escaping an editor may apply to spaces and other reserved
// characters in the path component.
func uriToPath(raw string) string {
	path, err := uri.Parse(raw)
	if err != nil {
		return raw
	}
	return path.Filename()
}
