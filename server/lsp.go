package server

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"unicode"

	"github.com/tliron/commonlog"
	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"
	glspserver "github.com/tliron/glsp/server"

	"github.com/chazu/backtalker/compiler"
	"github.com/chazu/backtalker/lib"
	"github.com/chazu/backtalker/vm"

	_ "github.com/tliron/commonlog/simple"
)

const lspName = "backtalker-lsp"

// document is an open editor buffer and what analysis found in it.
type document struct {
	text     string
	analysis *analysis
}

// LspServer provides diagnostics, completion, hover and navigation for
// BackTalker source. Documents are checked against the standard library
// plus the functions each document defines.
type LspServer struct {
	worker *Worker
	base   *vm.Scope

	mu   sync.Mutex
	docs map[string]*document // URI → document

	handler protocol.Handler
	server  *glspserver.Server
	version string
}

// NewLSP creates a new LSP server.
func NewLSP() (*LspServer, error) {
	base := vm.NewScope(nil)
	if err := lib.Install(base, lib.Options{Out: io.Discard}); err != nil {
		return nil, err
	}

	s := &LspServer{
		worker:  NewWorker(),
		base:    base,
		docs:    make(map[string]*document),
		version: "0.1.0",
	}

	s.handler = protocol.Handler{
		Initialize:  s.initialize,
		Initialized: s.initialized,
		Shutdown:    s.shutdown,
		SetTrace:    s.setTrace,

		TextDocumentDidOpen:   s.textDocumentDidOpen,
		TextDocumentDidChange: s.textDocumentDidChange,
		TextDocumentDidClose:  s.textDocumentDidClose,

		TextDocumentCompletion: s.textDocumentCompletion,
		TextDocumentHover:      s.textDocumentHover,
		TextDocumentDefinition: s.textDocumentDefinition,
		TextDocumentReferences: s.textDocumentReferences,
	}

	s.server = glspserver.NewServer(&s.handler, lspName, false)

	return s, nil
}

// Run starts the LSP server on stdio. Blocks until the client disconnects.
func (s *LspServer) Run() error {
	return s.server.RunStdio()
}

func lspLog() commonlog.Logger {
	return commonlog.GetLogger("backtalker.lsp")
}

// --- LSP lifecycle handlers ---

func (s *LspServer) initialize(ctx *glsp.Context, params *protocol.InitializeParams) (any, error) {
	lspLog().Info("BackTalker LSP initializing")

	capabilities := s.handler.CreateServerCapabilities()

	syncKind := protocol.TextDocumentSyncKindFull
	capabilities.TextDocumentSync = &protocol.TextDocumentSyncOptions{
		OpenClose: boolPtr(true),
		Change:    &syncKind,
	}

	capabilities.CompletionProvider = &protocol.CompletionOptions{
		TriggerCharacters: []string{" "},
	}

	capabilities.HoverProvider = true
	capabilities.DefinitionProvider = true
	capabilities.ReferencesProvider = true

	return protocol.InitializeResult{
		Capabilities: capabilities,
		ServerInfo: &protocol.InitializeResultServerInfo{
			Name:    lspName,
			Version: &s.version,
		},
	}, nil
}

func (s *LspServer) initialized(ctx *glsp.Context, params *protocol.InitializedParams) error {
	return nil
}

func (s *LspServer) shutdown(ctx *glsp.Context) error {
	s.worker.Stop()
	return nil
}

func (s *LspServer) setTrace(ctx *glsp.Context, params *protocol.SetTraceParams) error {
	return nil
}

// --- Document synchronization ---

func (s *LspServer) textDocumentDidOpen(ctx *glsp.Context, params *protocol.DidOpenTextDocumentParams) error {
	diagnostics := s.update(params.TextDocument.URI, params.TextDocument.Text)
	s.publish(ctx, params.TextDocument.URI, diagnostics)
	return nil
}

func (s *LspServer) textDocumentDidChange(ctx *glsp.Context, params *protocol.DidChangeTextDocumentParams) error {
	// With Full sync, the last change event contains the full text
	if len(params.ContentChanges) == 0 {
		return nil
	}
	last := params.ContentChanges[len(params.ContentChanges)-1]
	whole, ok := last.(protocol.TextDocumentContentChangeEventWhole)
	if !ok {
		return nil
	}
	diagnostics := s.update(params.TextDocument.URI, whole.Text)
	s.publish(ctx, params.TextDocument.URI, diagnostics)
	return nil
}

func (s *LspServer) textDocumentDidClose(ctx *glsp.Context, params *protocol.DidCloseTextDocumentParams) error {
	uri := params.TextDocument.URI

	s.mu.Lock()
	delete(s.docs, string(uri))
	s.mu.Unlock()

	// Clear diagnostics for the closed document
	s.publish(ctx, uri, []protocol.Diagnostic{})
	return nil
}

// update re-analyzes a document and returns its diagnostics.
func (s *LspServer) update(uri protocol.DocumentUri, text string) []protocol.Diagnostic {
	result, err := s.worker.Do(func() (any, error) {
		return analyze(s.base, text, string(uri)), nil
	})
	if err != nil {
		lspLog().Errorf("analyze %s: %s", uri, err)
		return nil
	}
	a := result.(*analysis)

	s.mu.Lock()
	s.docs[string(uri)] = &document{text: text, analysis: a}
	s.mu.Unlock()

	return diagnostics(text, a)
}

func (s *LspServer) publish(ctx *glsp.Context, uri protocol.DocumentUri, diagnostics []protocol.Diagnostic) {
	if diagnostics == nil {
		diagnostics = []protocol.Diagnostic{}
	}
	go ctx.Notify(protocol.ServerTextDocumentPublishDiagnostics, protocol.PublishDiagnosticsParams{
		URI:         uri,
		Diagnostics: diagnostics,
	})
}

func (s *LspServer) document(uri protocol.DocumentUri) (*document, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.docs[string(uri)]
	return doc, ok
}

// --- Language features ---

func (s *LspServer) textDocumentCompletion(ctx *glsp.Context, params *protocol.CompletionParams) (any, error) {
	doc, ok := s.document(params.TextDocument.URI)
	if !ok {
		return nil, nil
	}
	typed := linePrefix(doc.text, params.Position)
	result, err := s.worker.Do(func() (any, error) {
		return complete(doc.analysis.scope, typed), nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *LspServer) textDocumentHover(ctx *glsp.Context, params *protocol.HoverParams) (*protocol.Hover, error) {
	doc, ok := s.document(params.TextDocument.URI)
	if !ok {
		return nil, nil
	}
	word := extractWord(doc.text, params.Position)
	if word == "" {
		return nil, nil
	}

	result, err := s.worker.Do(func() (any, error) {
		return hover(doc.analysis, int(params.Position.Line)+1, word), nil
	})
	if err != nil || result == nil {
		return nil, nil
	}
	h, _ := result.(*protocol.Hover)
	return h, nil
}

func (s *LspServer) textDocumentDefinition(ctx *glsp.Context, params *protocol.DefinitionParams) (any, error) {
	uri := params.TextDocument.URI
	doc, ok := s.document(uri)
	if !ok {
		return nil, nil
	}
	word := extractWord(doc.text, params.Position)
	call, ok := doc.analysis.callFor(int(params.Position.Line)+1, word)
	if !ok {
		return nil, nil
	}
	line, ok := doc.analysis.defined[call.Name]
	if !ok {
		return nil, nil
	}
	return []protocol.Location{lineLocation(uri, doc.text, line)}, nil
}

func (s *LspServer) textDocumentReferences(ctx *glsp.Context, params *protocol.ReferenceParams) ([]protocol.Location, error) {
	uri := params.TextDocument.URI
	doc, ok := s.document(uri)
	if !ok {
		return nil, nil
	}
	word := extractWord(doc.text, params.Position)
	call, ok := doc.analysis.callFor(int(params.Position.Line)+1, word)
	if !ok {
		return nil, nil
	}

	var locations []protocol.Location
	for _, c := range doc.analysis.calls {
		if c.Name == call.Name {
			locations = append(locations, lineLocation(uri, doc.text, c.Line))
		}
	}
	return locations, nil
}

// --- Scope-backed logic (called on worker goroutine) ---

func complete(scope *vm.Scope, typed string) []protocol.CompletionItem {
	prefix, ok := compiler.SignaturePrefix(typed)
	if !ok {
		return nil
	}
	done := len(strings.Fields(prefix))
	if !strings.HasSuffix(prefix, " ") && done > 0 {
		done--
	}

	var items []protocol.CompletionItem
	for _, h := range scope.Complete(prefix) {
		rest := strings.Fields(h.Signature)[done:]
		insert := compiler.InsertWords(rest)
		if insert == "" {
			continue
		}
		kind := protocol.CompletionItemKindFunction
		detail := h.Meta.Library
		items = append(items, protocol.CompletionItem{
			Label:         h.Signature,
			Kind:          &kind,
			Detail:        &detail,
			Documentation: h.Meta.Help,
			InsertText:    &insert,
			FilterText:    &insert,
		})
	}

	// Limit results
	const maxItems = 100
	if len(items) > maxItems {
		items = items[:maxItems]
	}
	return items
}

func hover(a *analysis, line int, word string) *protocol.Hover {
	var h *vm.FuncHandle
	if call, ok := a.callFor(line, word); ok {
		h = a.scope.FindFunc(call.Name)
	}
	if h == nil {
		return nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "**%s**", h.Signature)
	if h.Meta.Library != "" {
		fmt.Fprintf(&b, " (%s)", h.Meta.Library)
	}
	if h.Meta.Help != "" {
		b.WriteString("\n\n---\n\n")
		b.WriteString(h.Meta.Help)
	}
	if h.Meta.Pattern != "" && h.Meta.Pattern != h.Signature {
		fmt.Fprintf(&b, "\n\nPattern: `%s`", h.Meta.Pattern)
	}

	return &protocol.Hover{
		Contents: protocol.MarkupContent{
			Kind:  protocol.MarkupKindMarkdown,
			Value: b.String(),
		},
	}
}

// --- Diagnostics ---

func diagnostics(text string, a *analysis) []protocol.Diagnostic {
	out := []protocol.Diagnostic{}
	add := func(d *Diagnostic, severity protocol.DiagnosticSeverity) {
		source := lspName
		code := protocol.IntegerOrString{Value: d.Kind}
		out = append(out, protocol.Diagnostic{
			Range:    lineRange(text, d.Line),
			Severity: &severity,
			Code:     &code,
			Source:   &source,
			Message:  d.Message,
		})
	}
	for _, d := range a.problems {
		add(d, protocol.DiagnosticSeverityError)
	}
	for _, d := range a.warnings {
		add(d, protocol.DiagnosticSeverityWarning)
	}
	return out
}

// --- Text extraction helpers ---

// lineRange covers a whole 1-based line; line 0 maps to the first line.
func lineRange(text string, line int) protocol.Range {
	if line < 1 {
		line = 1
	}
	lines := strings.Split(text, "\n")
	width := 0
	if line <= len(lines) {
		width = len(lines[line-1])
	}
	return protocol.Range{
		Start: protocol.Position{Line: protocol.UInteger(line - 1), Character: 0},
		End:   protocol.Position{Line: protocol.UInteger(line - 1), Character: protocol.UInteger(width)},
	}
}

func lineLocation(uri protocol.DocumentUri, text string, line int) protocol.Location {
	return protocol.Location{URI: uri, Range: lineRange(text, line)}
}

// linePrefix returns the text of the cursor's line up to the cursor.
func linePrefix(text string, pos protocol.Position) string {
	lines := strings.Split(text, "\n")
	if int(pos.Line) >= len(lines) {
		return ""
	}
	line := lines[pos.Line]
	col := int(pos.Character)
	if col > len(line) {
		col = len(line)
	}
	return line[:col]
}

// extractWord returns the full bare word under the cursor.
func extractWord(text string, pos protocol.Position) string {
	lines := strings.Split(text, "\n")
	if int(pos.Line) >= len(lines) {
		return ""
	}
	line := lines[pos.Line]
	col := int(pos.Character)
	if col > len(line) {
		col = len(line)
	}

	isWordChar := func(ch rune) bool {
		return unicode.IsLetter(ch) || unicode.IsDigit(ch) || ch == '_' || ch == '\''
	}

	// Find start
	start := col
	for start > 0 && isWordChar(rune(line[start-1])) {
		start--
	}

	// Find end
	end := col
	for end < len(line) && isWordChar(rune(line[end])) {
		end++
	}

	if start == end {
		return ""
	}

	return line[start:end]
}

func boolPtr(b bool) *bool {
	return &b
}
