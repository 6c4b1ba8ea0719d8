package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/park285/cheese-solo-chess/internal/archive"
	"github.com/park285/cheese-solo-chess/internal/msgcat"
	"github.com/park285/cheese-solo-chess/internal/render"
	"github.com/park285/cheese-solo-chess/internal/session"
	"github.com/park285/cheese-solo-chess/pkg/solodto"
	"go.uber.org/zap"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"
)

const (
	maxJSONBodyBytes int64 = 1 << 16
	apiCSP                 = "default-src 'none'; frame-ancestors 'none'; base-uri 'none'"
	defaultGamesLimit      = 20
)

type Deps struct {
	Session  *session.Session
	Hub      *Hub
	Renderer *render.PNGRenderer
	Games    archive.Lister
	Catalog  *msgcat.Catalog
	Logger   *zap.Logger
	// GamesLimit caps /api/games.
	GamesLimit int
}

// Server exposes one session over JSON and websocket.
type Server struct {
	sess     *session.Session
	hub      *Hub
	renderer *render.PNGRenderer
	games    archive.Lister
	cat      *msgcat.Catalog
	logger   *zap.Logger
	limit    int

	srvMu sync.Mutex
	srv   *http.Server
}

func NewServer(d Deps) *Server {
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	if d.Hub == nil {
		d.Hub = NewHub(d.Logger)
	}
	if d.Renderer == nil {
		d.Renderer = render.NewPNGRenderer(render.DefaultSquarePx)
	}
	if d.GamesLimit <= 0 {
		d.GamesLimit = defaultGamesLimit
	}
	s := &Server{
		sess:     d.Session,
		hub:      d.Hub,
		renderer: d.Renderer,
		games:    d.Games,
		cat:      d.Catalog,
		logger:   d.Logger,
		limit:    d.GamesLimit,
	}
	s.sess.Subscribe(s.hub)
	s.hub.Start(s.view)
	return s
}

// Listen serves until Close is called.
func (s *Server) Listen(addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    1 << 16,
	}

	s.srvMu.Lock()
	s.srv = srv
	s.srvMu.Unlock()
	defer func() {
		s.srvMu.Lock()
		s.srv = nil
		s.srvMu.Unlock()
	}()

	s.logger.Info("http_listening", zap.String("addr", addr))
	err := srv.ListenAndServe()
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Close shuts the HTTP server down and disconnects websocket clients.
func (s *Server) Close(ctx context.Context) error {
	s.hub.Close()
	s.srvMu.Lock()
	srv := s.srv
	s.srvMu.Unlock()
	if srv == nil {
		return nil
	}
	return srv.Shutdown(ctx)
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/state", s.withJSON(s.handleState))
	mux.HandleFunc("/api/move", s.withJSON(s.handleMove))
	mux.HandleFunc("/api/reset", s.withJSON(s.handleReset))
	mux.HandleFunc("/api/resign", s.withJSON(s.handleResign))
	mux.HandleFunc("/api/undo", s.withJSON(s.handleUndo))
	mux.HandleFunc("/api/games", s.withJSON(s.handleGames))
	mux.HandleFunc("/api/board.png", s.handleBoard)
	mux.HandleFunc("/ws", s.handleWS)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	return mux
}

func (s *Server) view() solodto.SessionView {
	return sessionView(s.sess.Snapshot(), s.cat)
}

// ---- JSON helpers ----

func (s *Server) withJSON(h func(http.ResponseWriter, *http.Request)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Security-Policy", apiCSP)
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		if r.Body != nil && r.Body != http.NoBody {
			r.Body = http.MaxBytesReader(w, r.Body, maxJSONBodyBytes)
		}
		h(w, r)
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(v)
}

func writeError(w http.ResponseWriter, status int, e solodto.DomainError) {
	w.WriteHeader(status)
	writeJSON(w, map[string]any{"error": e})
}

func methodNotAllowed(w http.ResponseWriter) {
	writeError(w, http.StatusMethodNotAllowed, solodto.DomainError{Code: "method_not_allowed", Message: "method not allowed"})
}

// ---- API ----

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	writeJSON(w, map[string]any{"state": s.view()})
}

func (s *Server) handleMove(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	defer r.Body.Close()
	var body solodto.MoveRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			writeError(w, http.StatusRequestEntityTooLarge, solodto.DomainError{Code: "too_large", Message: "request too large"})
			return
		}
		writeError(w, http.StatusBadRequest, solodto.DomainError{Code: "bad_json", Message: "invalid json"})
		return
	}
	from := strings.ToLower(strings.TrimSpace(body.From))
	to := strings.ToLower(strings.TrimSpace(body.To))

	res, err := s.sess.OnDrop(r.Context(), from, to)
	if err != nil {
		status, de := errorFor(err, s.cat, from, to)
		writeError(w, status, de)
		return
	}
	writeJSON(w, map[string]any{"state": s.view(), "move": moveView(res.Move)})
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	if err := s.sess.Reset(r.Context()); err != nil {
		status, de := errorFor(err, s.cat, "", "")
		writeError(w, status, de)
		return
	}
	v := s.view()
	v.Message = s.cat.Text(msgcat.ResetDone, map[string]any{"Human": v.Human})
	writeJSON(w, map[string]any{"state": v})
}

func (s *Server) handleResign(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	reply, err := s.sess.Resign(r.Context())
	if err != nil {
		status, de := errorFor(err, s.cat, "", "")
		writeError(w, status, de)
		return
	}
	v := s.view()
	v.Message = s.cat.Text(msgcat.ResignDone, nil)
	writeJSON(w, map[string]any{"state": v, "move": moveView(reply.Move)})
}

func (s *Server) handleUndo(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	if err := s.sess.Undo(r.Context()); err != nil {
		status, de := errorFor(err, s.cat, "", "")
		writeError(w, status, de)
		return
	}
	v := s.view()
	v.Message = s.cat.Text(msgcat.UndoDone, nil)
	writeJSON(w, map[string]any{"state": v})
}

func (s *Server) handleGames(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	n := s.limit
	if q := strings.TrimSpace(r.URL.Query().Get("limit")); q != "" {
		if v, err := strconv.Atoi(q); err == nil && v > 0 && v < n {
			n = v
		}
	}
	out := []solodto.GameSummary{}
	if s.games != nil {
		games, err := s.games.Recent(r.Context(), n)
		if err != nil {
			s.logger.Warn("games_list_failed", zap.Error(err))
			status, de := errorFor(err, s.cat, "", "")
			writeError(w, status, de)
			return
		}
		for _, g := range games {
			out = append(out, gameSummary(g))
		}
	}
	writeJSON(w, map[string]any{"games": out})
}

func (s *Server) handleBoard(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	snap := s.sess.Snapshot()
	img, err := s.renderer.RenderFEN(r.Context(), snap.Position, render.Options{
		LastMove:    snap.State.LastMove,
		Orientation: snap.State.Human,
	})
	if err != nil {
		s.logger.Error("board_render_failed", zap.String("game_id", snap.GameID), zap.Error(err))
		http.Error(w, "render failed", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	_, _ = w.Write(img)
}

// ---- websocket ----

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		CompressionMode: websocket.CompressionNoContextTakeover,
	})
	if err != nil {
		s.logger.Debug("ws_accept_failed", zap.Error(err))
		return
	}
	c, ok := s.hub.add(conn)
	if !ok {
		_ = conn.Close(websocket.StatusGoingAway, "shutdown")
		return
	}
	defer s.hub.remove(c)
	s.logger.Info("ws_connected", zap.Int("clients", s.hub.Clients()))

	v := s.view()
	s.hub.reply(c, solodto.ServerMessage{Type: solodto.TypeState, State: &v})

	ctx := r.Context()
	for {
		var msg solodto.ClientMessage
		if err := wsjson.Read(ctx, conn, &msg); err != nil {
			s.logger.Debug("ws_closed", zap.Error(err))
			return
		}
		s.hub.reply(c, s.dispatch(ctx, msg))
	}
}

// dispatch runs one client message against the session and builds the
// direct answer. State broadcasts follow from the session's own events.
func (s *Server) dispatch(ctx context.Context, msg solodto.ClientMessage) solodto.ServerMessage {
	switch msg.Type {
	case solodto.TypeDragStart:
		allowed := s.sess.OnDragStart(msg.Source, msg.Piece)
		return solodto.ServerMessage{Type: solodto.TypeDrag, Allowed: &allowed}
	case solodto.TypeDrop:
		from := strings.ToLower(strings.TrimSpace(msg.Source))
		to := strings.ToLower(strings.TrimSpace(msg.Target))
		res, err := s.sess.OnDrop(ctx, from, to)
		snapback := res.Snapback
		out := solodto.ServerMessage{Type: solodto.TypeDrop, Snapback: &snapback, Move: moveView(res.Move)}
		if err != nil {
			_, de := errorFor(err, s.cat, from, to)
			out.Error = &de
		}
		return out
	case solodto.TypeSnapEnd:
		s.sess.OnSnapEnd()
		return s.stateMessage("")
	case solodto.TypeReset:
		if err := s.sess.Reset(ctx); err != nil {
			return s.errorMessage(err)
		}
		return s.stateMessage(s.cat.Text(msgcat.ResetDone, map[string]any{"Human": string(s.sess.Snapshot().State.Human)}))
	case solodto.TypeResign:
		if _, err := s.sess.Resign(ctx); err != nil {
			return s.errorMessage(err)
		}
		return s.stateMessage(s.cat.Text(msgcat.ResignDone, nil))
	case solodto.TypeUndo:
		if err := s.sess.Undo(ctx); err != nil {
			return s.errorMessage(err)
		}
		return s.stateMessage(s.cat.Text(msgcat.UndoDone, nil))
	default:
		return solodto.ServerMessage{Type: solodto.TypeError, Error: &solodto.DomainError{Code: "unknown_type", Message: "unknown message type " + strconv.Quote(msg.Type)}}
	}
}

func (s *Server) stateMessage(message string) solodto.ServerMessage {
	v := s.view()
	if message != "" {
		v.Message = message
	}
	return solodto.ServerMessage{Type: solodto.TypeState, State: &v}
}

func (s *Server) errorMessage(err error) solodto.ServerMessage {
	_, de := errorFor(err, s.cat, "", "")
	return solodto.ServerMessage{Type: solodto.TypeError, Error: &de}
}
