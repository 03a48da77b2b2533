package lsp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"sync"
	"sync/atomic"

	"lintpad/internal/analysis"
	"lintpad/internal/editor"
	"lintpad/internal/schema"
	"lintpad/internal/session"
	"lintpad/internal/trace"
)

var (
	// ErrExit signals a graceful shutdown after receiving "exit".
	ErrExit = errors.New("lsp exit")
	// ErrExitWithoutShutdown signals an "exit" without a preceding "shutdown".
	ErrExitWithoutShutdown = errors.New("lsp exit without shutdown")
)

const (
	methodShareToken = "lintpad/shareToken"
	diagnosticSource = "lintpad"
)

// ServerOptions configures LSP server behavior.
type ServerOptions struct {
	Runner     *analysis.Runner
	Catalog    *schema.Catalog
	Tracer     trace.Tracer
	LanguageID string
	Version    string
}

// Server handles stdio JSON-RPC for the lintpad LSP. The first document the
// client opens becomes the session document; Server is the editor.Bridge of
// that session.
type Server struct {
	conn *conn
	mu   sync.Mutex

	opts    ServerOptions
	baseCtx context.Context
	store   *session.Store

	shutdownRequested bool
	initialToken      string
	docURI            string
	docText           string
	docVersion        int

	textHandlers   []func(string)
	configHandlers []func(group, field, value string)
	provider       editor.FixProvider
	providerSeq    int
	lastShownError string
	requestSeq     atomic.Int64
}

var (
	_ editor.Bridge       = (*Server)(nil)
	_ editor.ConfigSource = (*Server)(nil)
)

// NewServer constructs a new LSP server.
func NewServer(in io.Reader, out io.Writer, opts ServerOptions) *Server {
	if opts.Catalog == nil {
		opts.Catalog = schema.Builtin()
	}
	if opts.Tracer == nil {
		opts.Tracer = trace.Nop
	}
	return &Server{
		conn:    newConn(in, out, opts.Tracer),
		opts:    opts,
		baseCtx: context.Background(),
	}
}

// Run serves LSP requests until shutdown.
func (s *Server) Run(ctx context.Context) error {
	s.baseCtx = ctx
	defer s.closeStore()
	for {
		payload, err := s.conn.read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			var fe *FrameError
			if errors.As(err, &fe) && fe.Skipped {
				s.logf("%v", err)
				continue
			}
			return err
		}
		var msg rpcMessage
		if err := json.Unmarshal(payload, &msg); err != nil {
			s.logf("failed to parse message: %v", err)
			continue
		}
		if msg.Method == "" {
			continue
		}
		if err := s.handleMessage(&msg); err != nil {
			return err
		}
	}
}

func (s *Server) handleMessage(msg *rpcMessage) error {
	span := trace.Begin(s.opts.Tracer, trace.ScopeBridge, msg.Method, 0)
	defer span.End("")
	switch msg.Method {
	case "initialize":
		return s.handleInitialize(msg)
	case "initialized":
		return nil
	case "shutdown":
		return s.handleShutdown(msg)
	case "exit":
		if s.shutdownRequested {
			return ErrExit
		}
		return ErrExitWithoutShutdown
	case "workspace/didChangeConfiguration":
		return s.handleDidChangeConfiguration(msg)
	case "textDocument/didOpen":
		return s.handleDidOpen(msg)
	case "textDocument/didChange":
		return s.handleDidChange(msg)
	case "textDocument/didClose":
		return s.handleDidClose(msg)
	case "textDocument/codeAction":
		return s.handleCodeAction(msg)
	case methodShareToken:
		return s.handleShareTokenRequest(msg)
	default:
		if len(msg.ID) > 0 {
			return s.sendError(msg.ID, -32601, "method not found")
		}
		return nil
	}
}

func (s *Server) handleInitialize(msg *rpcMessage) error {
	var params initializeParams
	if len(msg.Params) > 0 {
		if err := json.Unmarshal(msg.Params, &params); err != nil {
			return s.sendError(msg.ID, -32602, "invalid params")
		}
	}
	if params.InitializationOptions != nil {
		s.mu.Lock()
		s.initialToken = params.InitializationOptions.Token
		s.mu.Unlock()
	}

	result := initializeResult{
		Capabilities: serverCapabilities{
			TextDocumentSync: textDocumentSyncOptions{
				OpenClose: true,
				Change:    2,
			},
			CodeActionProvider: &codeActionOptions{
				CodeActionKinds: []string{"quickfix"},
			},
		},
		ServerInfo: &serverInfo{Name: "lintpad", Version: s.opts.Version},
	}
	return s.sendResponse(msg.ID, result)
}

func (s *Server) handleShutdown(msg *rpcMessage) error {
	s.mu.Lock()
	s.shutdownRequested = true
	uri := s.docURI
	s.mu.Unlock()
	s.closeStore()
	if uri != "" {
		if err := s.sendPublish(uri, nil); err != nil {
			s.logf("failed to clear diagnostics: %v", err)
		}
	}
	return s.sendResponse(msg.ID, nil)
}

func (s *Server) handleDidOpen(msg *rpcMessage) error {
	var params didOpenTextDocumentParams
	if err := json.Unmarshal(msg.Params, &params); err != nil {
		return err
	}
	uri := canonicalURI(params.TextDocument.URI)
	if uri == "" {
		return nil
	}
	s.mu.Lock()
	if s.docURI != "" && s.docURI != uri {
		s.mu.Unlock()
		return nil
	}
	s.docURI = uri
	s.docText = params.TextDocument.Text
	s.docVersion = params.TextDocument.Version
	existing := s.store
	token := s.initialToken
	s.mu.Unlock()

	if existing != nil {
		s.emitText(params.TextDocument.Text)
		return nil
	}
	return s.startSession(params.TextDocument, token)
}

// startSession builds the Store for the session document. A seeded token
// wins over an empty document; otherwise the document text wins.
func (s *Server) startSession(doc textDocumentItem, token string) error {
	languageID := s.opts.LanguageID
	if languageID == "" {
		languageID = doc.LanguageID
	}
	store, err := session.New(session.Options{
		Catalog:       s.opts.Catalog,
		Runner:        s.opts.Runner,
		Bridge:        s,
		Channel:       &clientChannel{server: s, token: token},
		Tracer:        s.opts.Tracer,
		DefaultSource: doc.Text,
		LanguageID:    languageID,
	})
	if err != nil {
		return err
	}
	store.Observe(s.surfaceErrors)

	s.mu.Lock()
	s.store = store
	s.mu.Unlock()

	if err := store.Start(s.baseCtx); err != nil {
		return err
	}
	st := store.State()
	switch {
	case st.Source == doc.Text:
	case token != "" && doc.Text == "":
		// the client echoes the edit back as didChange
		return s.sendApplyEdit(doc.URI, "Load shared session", wholeDocument(doc.Text), st.Source)
	default:
		return store.SetSource(s.baseCtx, doc.Text)
	}
	return nil
}

func (s *Server) handleDidChange(msg *rpcMessage) error {
	var params didChangeTextDocumentParams
	if err := json.Unmarshal(msg.Params, &params); err != nil {
		return err
	}
	uri := canonicalURI(params.TextDocument.URI)
	s.mu.Lock()
	if uri == "" || uri != s.docURI {
		s.mu.Unlock()
		return nil
	}
	text := applyChanges(s.docText, params.ContentChanges)
	s.docText = text
	s.docVersion = params.TextDocument.Version
	s.mu.Unlock()
	s.emitText(text)
	return nil
}

func (s *Server) handleDidClose(msg *rpcMessage) error {
	var params didCloseTextDocumentParams
	if err := json.Unmarshal(msg.Params, &params); err != nil {
		return err
	}
	uri := canonicalURI(params.TextDocument.URI)
	s.mu.Lock()
	isSession := uri != "" && uri == s.docURI
	s.mu.Unlock()
	if !isSession {
		return nil
	}
	if err := s.sendPublish(uri, nil); err != nil {
		s.logf("failed to clear diagnostics: %v", err)
	}
	return nil
}

func (s *Server) handleShareTokenRequest(msg *rpcMessage) error {
	s.mu.Lock()
	store := s.store
	s.mu.Unlock()
	token := ""
	if store != nil {
		token = store.State().Token
	}
	if len(msg.ID) == 0 {
		return nil
	}
	return s.sendResponse(msg.ID, shareTokenParams{Token: token})
}

func (s *Server) emitText(text string) {
	s.mu.Lock()
	handlers := slices.Clone(s.textHandlers)
	s.mu.Unlock()
	for _, fn := range handlers {
		fn(text)
	}
}

// surfaceErrors shows each distinct analysis error once.
func (s *Server) surfaceErrors(st session.State) {
	s.mu.Lock()
	msg := ""
	if st.LastError != nil {
		msg = st.LastError.Message
	}
	show := msg != "" && msg != s.lastShownError
	s.lastShownError = msg
	s.mu.Unlock()
	if !show {
		return
	}
	if err := s.sendNotification("window/showMessage", showMessageParams{
		Type:    messageTypeError,
		Message: "lintpad: " + msg,
	}); err != nil {
		s.logf("failed to show message: %v", err)
	}
}

func (s *Server) closeStore() {
	s.mu.Lock()
	store := s.store
	s.store = nil
	s.mu.Unlock()
	if store != nil {
		store.Close()
	}
}

// SetMarkers publishes markers as diagnostics of the session document.
func (s *Server) SetMarkers(markers []editor.Marker) {
	s.mu.Lock()
	uri, text := s.docURI, s.docText
	s.mu.Unlock()
	if uri == "" {
		return
	}
	list := make([]lspDiagnostic, 0, len(markers))
	for _, m := range markers {
		list = append(list, lspDiagnostic{
			Range:    toLSPRange(text, m.Range),
			Severity: lspSeverity(m.Severity),
			Code:     m.Code,
			Source:   diagnosticSource,
			Message:  m.Message,
		})
	}
	if err := s.sendPublish(uri, list); err != nil {
		s.logf("failed to publish diagnostics: %v", err)
	}
}

func (s *Server) OnTextChanged(fn func(text string)) {
	s.mu.Lock()
	s.textHandlers = append(s.textHandlers, fn)
	s.mu.Unlock()
}

func (s *Server) OnConfigChanged(fn func(group, field, value string)) {
	s.mu.Lock()
	s.configHandlers = append(s.configHandlers, fn)
	s.mu.Unlock()
}

// RegisterFixProvider stores p as the source of code actions. The language
// id is implied by the session document.
func (s *Server) RegisterFixProvider(_ string, p editor.FixProvider) editor.Disposable {
	s.mu.Lock()
	s.providerSeq++
	seq := s.providerSeq
	s.provider = p
	s.mu.Unlock()
	var once sync.Once
	return editor.DisposeFunc(func() {
		once.Do(func() {
			s.mu.Lock()
			if s.providerSeq == seq {
				s.provider = nil
			}
			s.mu.Unlock()
		})
	})
}

// clientChannel reads the token from initializationOptions and writes it
// back as a notification.
type clientChannel struct {
	server *Server
	token  string
}

func (c *clientChannel) Read(context.Context) (string, error) {
	return c.token, nil
}

func (c *clientChannel) Write(_ context.Context, token string) error {
	c.token = token
	return c.server.sendNotification(methodShareToken, shareTokenParams{Token: token})
}

func (s *Server) sendResponse(id json.RawMessage, result any) error {
	msg := map[string]any{
		"jsonrpc": "2.0",
		"id":      json.RawMessage(id),
		"result":  result,
	}
	return s.send(msg)
}

func (s *Server) sendError(id json.RawMessage, code int, message string) error {
	msg := map[string]any{
		"jsonrpc": "2.0",
		"id":      json.RawMessage(id),
		"error": rpcError{
			Code:    code,
			Message: message,
		},
	}
	return s.send(msg)
}

func (s *Server) sendNotification(method string, params any) error {
	msg := map[string]any{
		"jsonrpc": "2.0",
		"method":  method,
		"params":  params,
	}
	return s.send(msg)
}

func (s *Server) sendPublish(uri string, list []lspDiagnostic) error {
	if list == nil {
		list = []lspDiagnostic{}
	}
	return s.sendNotification("textDocument/publishDiagnostics", publishDiagnosticsParams{
		URI:         uri,
		Diagnostics: list,
	})
}

// sendApplyEdit asks the client to replace rng with text. The response is
// not awaited.
func (s *Server) sendApplyEdit(uri, label string, rng lspRange, text string) error {
	id := s.requestSeq.Add(1)
	msg := map[string]any{
		"jsonrpc": "2.0",
		"id":      fmt.Sprintf("lintpad-%d", id),
		"method":  "workspace/applyEdit",
		"params": applyWorkspaceEditParams{
			Label: label,
			Edit: workspaceEdit{Changes: map[string][]textEdit{
				uri: {{Range: rng, NewText: text}},
			}},
		},
	}
	return s.send(msg)
}

func (s *Server) send(msg any) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	return s.conn.write(payload)
}

func (s *Server) logf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "lsp: "+format+"\n", args...)
}
