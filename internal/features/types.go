// Package features implements the derived-view feature handlers
// (hover, completion, and signature help) as protocol-agnostic
// functions over a document's source text and the active metadata
// snapshot. The LSP transport adapter converts their output to
// go.lsp.dev/protocol wire types.
package features

// Hover is the protocol-agnostic result of a hover request: a
// markdown-formatted documentation payload, or Found=false if the
// cursor is not over a resolvable function name.
type Hover struct {
	Found   bool
	Content string
}

// CompletionItem is one protocol-agnostic completion candidate.
type CompletionItem struct {
	Label         string
	InsertText    string
	FilterText    string
	Detail        string
	Documentation string
}

// SignatureHelp is the protocol-agnostic result of a signature-help
// request.
type SignatureHelp struct {
	Found          bool
	Label          string
	ActiveParam    int
	ParameterLabel []string
}
