package web

import (
	"context"
	"net/http"
	"slices"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"lintpad/internal/editor"
	"lintpad/internal/session"
)

var upgrader = websocket.Upgrader{
	CheckOrigin:     func(r *http.Request) bool { return true },
	ReadBufferSize:  64 * 1024,
	WriteBufferSize: 64 * 1024,
}

// Client message types.
const (
	msgOpen   = "open"
	msgSource = "source"
	msgConfig = "config"
	msgFixes  = "fixes"
)

// Server message types.
const (
	msgSession = "session"
	msgMarkers = "markers"
	msgToken   = "token"
	msgError   = "error"
)

type clientMessage struct {
	Type  string `json:"type"`
	Token string `json:"token,omitempty"`
	Text  string `json:"text,omitempty"`
	Group string `json:"group,omitempty"`
	Field string `json:"field,omitempty"`
	Value string `json:"value,omitempty"`
	Row   int    `json:"row,omitempty"`
}

type serverMessage struct {
	Type    string             `json:"type"`
	ID      string             `json:"id,omitempty"`
	Token   string             `json:"token,omitempty"`
	Message string             `json:"message,omitempty"`
	Row     int                `json:"row,omitempty"`
	Markers []editor.Marker    `json:"markers,omitempty"`
	Fixes   []editor.FixAction `json:"fixes,omitempty"`
	// Revision tags messages produced by a session update.
	Revision uint64 `json:"revision,omitempty"`
}

// socketSession is the editor widget on the far side of one websocket.
type socketSession struct {
	id   string
	conn *websocket.Conn

	writeMu sync.Mutex

	mu             sync.Mutex
	token          string
	textHandlers   []func(string)
	configHandlers []func(group, field, value string)
	provider       editor.FixProvider
	providerSeq    int

	closeOnce sync.Once
}

var (
	_ editor.Bridge       = (*socketSession)(nil)
	_ editor.ConfigSource = (*socketSession)(nil)
	_ session.TokenChannel = (*socketSession)(nil)
)

func (ss *socketSession) send(msg serverMessage) error {
	ss.writeMu.Lock()
	defer ss.writeMu.Unlock()
	return ss.conn.WriteJSON(msg)
}

func (ss *socketSession) SetMarkers(markers []editor.Marker) {
	if markers == nil {
		markers = []editor.Marker{}
	}
	_ = ss.send(serverMessage{Type: msgMarkers, Markers: markers})
}

func (ss *socketSession) OnTextChanged(fn func(text string)) {
	ss.mu.Lock()
	ss.textHandlers = append(ss.textHandlers, fn)
	ss.mu.Unlock()
}

func (ss *socketSession) OnConfigChanged(fn func(group, field, value string)) {
	ss.mu.Lock()
	ss.configHandlers = append(ss.configHandlers, fn)
	ss.mu.Unlock()
}

func (ss *socketSession) RegisterFixProvider(_ string, p editor.FixProvider) editor.Disposable {
	ss.mu.Lock()
	ss.providerSeq++
	seq := ss.providerSeq
	ss.provider = p
	ss.mu.Unlock()
	return editor.DisposeFunc(func() {
		ss.mu.Lock()
		if ss.providerSeq == seq {
			ss.provider = nil
		}
		ss.mu.Unlock()
	})
}

// Read returns the token the client sent with its open message.
func (ss *socketSession) Read(context.Context) (string, error) {
	ss.mu.Lock()
	defer ss.mu.Unlock()
	return ss.token, nil
}

// Write pushes the new token to the client.
func (ss *socketSession) Write(_ context.Context, token string) error {
	return ss.send(serverMessage{Type: msgToken, Token: token})
}

func (ss *socketSession) typed(text string) {
	ss.mu.Lock()
	handlers := slices.Clone(ss.textHandlers)
	ss.mu.Unlock()
	for _, fn := range handlers {
		fn(text)
	}
}

func (ss *socketSession) configured(group, field, value string) {
	ss.mu.Lock()
	handlers := slices.Clone(ss.configHandlers)
	ss.mu.Unlock()
	for _, fn := range handlers {
		fn(group, field, value)
	}
}

func (ss *socketSession) fixesAt(row int) []editor.FixAction {
	ss.mu.Lock()
	p := ss.provider
	ss.mu.Unlock()
	if p == nil {
		return nil
	}
	return p.FixesAt(row)
}

func (ss *socketSession) close() {
	ss.closeOnce.Do(func() {
		_ = ss.conn.Close()
	})
}

func (s *Server) handleSocket(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.log.Error("failed to upgrade the websocket", "error", err)
		return
	}
	ss := &socketSession{id: uuid.New().String(), conn: conn}
	defer ss.close()
	log := s.log.With("session", ss.id)

	if err := ss.send(serverMessage{Type: msgSession, ID: ss.id}); err != nil {
		return
	}

	// The first message may carry the shared token; anything else is
	// replayed after the session starts.
	var first clientMessage
	if err := conn.ReadJSON(&first); err != nil {
		log.Info("websocket closed before open", "error", err)
		return
	}
	pending := &first
	if first.Type == msgOpen {
		ss.token = first.Token
		pending = nil
	}

	store, err := session.New(session.Options{
		Catalog:       s.opts.Catalog,
		Runner:        s.runner,
		Bridge:        ss,
		Channel:       ss,
		Tracer:        s.opts.Tracer,
		DefaultSource: s.opts.DefaultSource,
	})
	if err != nil {
		log.Error("create session", "error", err)
		return
	}
	defer store.Close()

	unobserve := store.Observe(func(st session.State) {
		if st.LastError != nil {
			_ = ss.send(serverMessage{Type: msgError, Message: st.LastError.Message, Revision: st.Revision})
		}
	})
	defer unobserve()

	ctx := context.WithoutCancel(c.Request.Context())
	if err := store.Start(ctx); err != nil {
		log.Error("start session", "error", err)
		return
	}
	// The initial token is not published by the store; hand it over once.
	if err := ss.Write(ctx, store.State().Token); err != nil {
		return
	}

	s.addSession(ss)
	defer s.removeSession(ss.id)
	log.Info("websocket session started")

	if pending != nil {
		s.dispatch(ss, *pending)
	}
	for {
		var msg clientMessage
		if err := conn.ReadJSON(&msg); err != nil {
			log.Info("websocket client disconnected", "error", err.Error())
			return
		}
		s.dispatch(ss, msg)
	}
}

func (s *Server) dispatch(ss *socketSession, msg clientMessage) {
	switch msg.Type {
	case msgSource:
		ss.typed(msg.Text)
	case msgConfig:
		if _, ok := s.opts.Catalog.Lookup(msg.Group, msg.Field); !ok {
			_ = ss.send(serverMessage{Type: msgError, Message: "unknown option " + msg.Group + "." + msg.Field})
			return
		}
		ss.configured(msg.Group, msg.Field, msg.Value)
	case msgFixes:
		fixes := ss.fixesAt(msg.Row)
		if fixes == nil {
			fixes = []editor.FixAction{}
		}
		_ = ss.send(serverMessage{Type: msgFixes, Row: msg.Row, Fixes: fixes})
	case msgOpen:
		_ = ss.send(serverMessage{Type: msgError, Message: "session already open"})
	default:
		_ = ss.send(serverMessage{Type: msgError, Message: "unknown message type " + msg.Type})
	}
}
