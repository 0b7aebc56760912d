// Package httpapi exposes the engine over a small fasthttp JSON API.
// Identity arrives in the X-User-Id header (the auth collaborator is
// out of scope); every authenticated request refreshes the caller's
// global presence.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/kapu/balda-server/internal/board"
	"github.com/kapu/balda-server/internal/matchqueue"
	"github.com/kapu/balda-server/internal/msgcat"
	"github.com/kapu/balda-server/internal/obslog"
	"github.com/kapu/balda-server/internal/presence"
	"github.com/kapu/balda-server/internal/session"
	"github.com/kapu/balda-server/pkg/baldadto"
)

type Server struct {
	queue    *matchqueue.Queue
	sessions *session.Manager
	tracker  *presence.Tracker
	msgs     *msgcat.Catalog
}

func NewServer(queue *matchqueue.Queue, sessions *session.Manager, tracker *presence.Tracker, msgs *msgcat.Catalog) *Server {
	return &Server{queue: queue, sessions: sessions, tracker: tracker, msgs: msgs}
}

// Handler returns the root request handler.
func (s *Server) Handler() fasthttp.RequestHandler {
	return func(rctx *fasthttp.RequestCtx) {
		path := string(rctx.Path())
		method := string(rctx.Method())

		if path == "/health" && method == fasthttp.MethodGet {
			writeJSON(rctx, fasthttp.StatusOK, baldadto.StatusResponse{Status: "ok"})
			return
		}

		userID := strings.TrimSpace(string(rctx.Request.Header.Peek("X-User-Id")))
		if userID == "" {
			writeJSON(rctx, fasthttp.StatusUnauthorized, baldadto.ErrorResponse{Error: "X-User-Id header required"})
			return
		}
		userName := strings.TrimSpace(string(rctx.Request.Header.Peek("X-User-Name")))
		// RequestCtx is itself a context; request-scope cancellation
		// reaches the Redis and repository calls.
		var ctx context.Context = rctx

		// Any authenticated interaction counts as global activity.
		if err := s.tracker.TouchOnline(ctx, userID); err != nil {
			obslog.L().Warn("presence_touch_error", zap.String("user_id", userID), zap.Error(err))
		}

		switch {
		case path == "/wait" && method == fasthttp.MethodPost:
			s.handleEnterWait(rctx, ctx, userID, userName)
		case path == "/wait/cancel" && method == fasthttp.MethodPost:
			s.handleCancelWait(rctx, ctx, userID)
		case path == "/wait/poll" && method == fasthttp.MethodGet:
			s.handlePoll(rctx, ctx, userID)
		case path == "/bot" && method == fasthttp.MethodPost:
			s.handlePlayWithBot(rctx, ctx, userID, userName)
		case strings.HasPrefix(path, "/games/"):
			s.routeGame(rctx, ctx, userID, strings.TrimPrefix(path, "/games/"), method)
		case strings.HasPrefix(path, "/players/") && strings.HasSuffix(path, "/online") && method == fasthttp.MethodGet:
			target := strings.TrimSuffix(strings.TrimPrefix(path, "/players/"), "/online")
			s.handleOnline(rctx, ctx, target)
		default:
			writeJSON(rctx, fasthttp.StatusNotFound, baldadto.ErrorResponse{Error: "unknown route"})
		}
	}
}

func (s *Server) routeGame(rctx *fasthttp.RequestCtx, ctx context.Context, userID, rest, method string) {
	parts := strings.Split(rest, "/")
	switch {
	case len(parts) == 1 && method == fasthttp.MethodGet:
		s.handleGetSession(rctx, ctx, userID, parts[0])
	case len(parts) == 2 && parts[1] == "move" && method == fasthttp.MethodPost:
		s.handleSubmitMove(rctx, ctx, userID, parts[0])
	case len(parts) == 2 && parts[1] == "forfeit" && method == fasthttp.MethodPost:
		s.handleForfeit(rctx, ctx, userID, parts[0])
	default:
		writeJSON(rctx, fasthttp.StatusNotFound, baldadto.ErrorResponse{Error: "unknown route"})
	}
}

func (s *Server) handleEnterWait(rctx *fasthttp.RequestCtx, ctx context.Context, userID, userName string) {
	if err := s.queue.Enqueue(ctx, userID, userName); err != nil {
		writeError(rctx, err)
		return
	}
	writeJSON(rctx, fasthttp.StatusOK, baldadto.StatusResponse{Status: "waiting"})
}

func (s *Server) handleCancelWait(rctx *fasthttp.RequestCtx, ctx context.Context, userID string) {
	if err := s.queue.Cancel(ctx, userID); err != nil {
		writeError(rctx, err)
		return
	}
	writeJSON(rctx, fasthttp.StatusOK, baldadto.StatusResponse{
		Status:  "cancelled",
		Message: s.msgs.Get("match.cancelled"),
	})
}

func (s *Server) handlePoll(rctx *fasthttp.RequestCtx, ctx context.Context, userID string) {
	sid, err := s.queue.Poll(ctx, userID)
	if err != nil {
		writeError(rctx, err)
		return
	}
	if sid == "" {
		writeJSON(rctx, fasthttp.StatusOK, baldadto.PollResponse{Message: s.msgs.Get("match.none")})
		return
	}
	writeJSON(rctx, fasthttp.StatusOK, baldadto.PollResponse{Game: sid, Message: s.msgs.Get("match.paired")})
}

func (s *Server) handlePlayWithBot(rctx *fasthttp.RequestCtx, ctx context.Context, userID, userName string) {
	sess, err := s.queue.PlayWithBot(ctx, userID, userName)
	if err != nil {
		writeError(rctx, err)
		return
	}
	writeJSON(rctx, fasthttp.StatusOK, baldadto.PollResponse{Game: sess.ID, Message: s.msgs.Get("match.paired")})
}

func (s *Server) handleGetSession(rctx *fasthttp.RequestCtx, ctx context.Context, userID, sessionID string) {
	sess, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		writeError(rctx, err)
		return
	}
	if sess.Status == session.StatusActive && sess.IsParticipant(userID) {
		_ = s.tracker.TouchInGame(ctx, sess.ID, userID)
	}
	view, err := toView(sess)
	if err != nil {
		writeError(rctx, err)
		return
	}
	writeJSON(rctx, fasthttp.StatusOK, view)
}

func (s *Server) handleSubmitMove(rctx *fasthttp.RequestCtx, ctx context.Context, userID, sessionID string) {
	var req baldadto.MoveRequest
	if err := json.Unmarshal(rctx.PostBody(), &req); err != nil {
		writeJSON(rctx, fasthttp.StatusBadRequest, baldadto.ErrorResponse{Error: "invalid json body"})
		return
	}
	sess, err := s.sessions.SubmitMove(ctx, sessionID, userID, toMove(req))
	if err != nil {
		writeError(rctx, err)
		return
	}
	view, verr := toView(sess)
	if verr != nil {
		writeError(rctx, verr)
		return
	}
	writeJSON(rctx, fasthttp.StatusOK, view)
}

func (s *Server) handleForfeit(rctx *fasthttp.RequestCtx, ctx context.Context, userID, sessionID string) {
	sess, err := s.sessions.Forfeit(ctx, sessionID, userID)
	if err != nil {
		writeError(rctx, err)
		return
	}
	view, verr := toView(sess)
	if verr != nil {
		writeError(rctx, verr)
		return
	}
	writeJSON(rctx, fasthttp.StatusOK, view)
}

func (s *Server) handleOnline(rctx *fasthttp.RequestCtx, ctx context.Context, target string) {
	online, err := s.tracker.IsOnline(ctx, target)
	if err != nil {
		writeError(rctx, err)
		return
	}
	writeJSON(rctx, fasthttp.StatusOK, baldadto.OnlineResponse{UserID: target, Online: online})
}

func toMove(req baldadto.MoveRequest) board.Move {
	mv := board.Move{
		Added: board.CellLetter{Row: req.Added.Row, Col: req.Added.Col, Char: req.Added.Char},
	}
	for _, c := range req.Path {
		mv.Path = append(mv.Path, board.CellLetter{Row: c.Row, Col: c.Col, Char: c.Char})
	}
	return mv
}

func toView(sess *session.Session) (*baldadto.SessionView, error) {
	b, err := sess.Board()
	if err != nil {
		return nil, err
	}
	grid := make([][]string, b.Size())
	for r := 0; r < b.Size(); r++ {
		grid[r] = make([]string, b.Size())
		for c := 0; c < b.Size(); c++ {
			ch, _ := b.At(r, c)
			grid[r][c] = ch
		}
	}
	words := make([]string, 0, len(sess.Moves))
	for _, mv := range sess.Moves {
		words = append(words, mv.Word())
	}
	players := make([]baldadto.PlayerView, 0, 2)
	for i, p := range sess.Players {
		players = append(players, baldadto.PlayerView{
			ID: p.ID, Name: p.Name, Bot: p.Bot, Score: sess.Scores[i],
		})
	}
	return &baldadto.SessionView{
		ID:        sess.ID,
		Players:   players,
		FieldSize: sess.FieldSize,
		FirstWord: sess.FirstWord,
		Status:    string(sess.Status),
		Turn:      sess.Players[sess.Turn].ID,
		Board:     grid,
		Words:     words,
		Winner:    sess.Winner,
		EndReason: sess.EndReason,
		CreatedAt: sess.CreatedAt,
		UpdatedAt: sess.UpdatedAt,
	}, nil
}

func writeError(rctx *fasthttp.RequestCtx, err error) {
	code := fasthttp.StatusInternalServerError
	switch {
	case errors.Is(err, session.ErrNotFound), errors.Is(err, session.ErrNotParticipant):
		code = fasthttp.StatusNotFound
	case errors.Is(err, board.ErrIllegalMove):
		code = fasthttp.StatusBadRequest
	case errors.Is(err, session.ErrOutOfTurn), errors.Is(err, session.ErrNotActive), errors.Is(err, session.ErrConflict):
		code = fasthttp.StatusConflict
	case errors.Is(err, board.ErrFieldTooSmall):
		code = fasthttp.StatusBadRequest
	}
	if code == fasthttp.StatusInternalServerError {
		obslog.L().Error("api_error", zap.Error(err))
	}
	writeJSON(rctx, code, baldadto.ErrorResponse{Error: err.Error()})
}

func writeJSON(rctx *fasthttp.RequestCtx, code int, v any) {
	rctx.SetStatusCode(code)
	rctx.SetContentType("application/json; charset=utf-8")
	raw, err := json.Marshal(v)
	if err != nil {
		rctx.SetStatusCode(fasthttp.StatusInternalServerError)
		rctx.SetBodyString(`{"error":"encode response"}`)
		return
	}
	rctx.SetBody(raw)
}
