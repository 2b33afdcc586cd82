// Package httpapi serves the leaderboard REST surface over fasthttp.
package httpapi

import (
	"encoding/json"
	"strings"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/kapu/gridblink/internal/leaderboard"
	"github.com/kapu/gridblink/internal/obslog"
	"github.com/kapu/gridblink/internal/scales"
)

// UserResolver maps a request to a stable username. Empty means
// unauthenticated; the host platform is expected to inject the identity.
type UserResolver interface {
	Resolve(ctx *fasthttp.RequestCtx) string
}

// HeaderUserResolver reads the username from a request header.
type HeaderUserResolver struct {
	Header string
}

func (r HeaderUserResolver) Resolve(ctx *fasthttp.RequestCtx) string {
	h := r.Header
	if h == "" {
		h = "X-User-Id"
	}
	u := strings.TrimSpace(string(ctx.Request.Header.Peek(h)))
	if strings.EqualFold(u, "anonymous") {
		return ""
	}
	return u
}

type Server struct {
	lb     *leaderboard.Manager
	scales *scales.Catalog
	users  UserResolver

	srv *fasthttp.Server
}

func NewServer(lb *leaderboard.Manager, catalog *scales.Catalog, users UserResolver) *Server {
	if users == nil {
		users = HeaderUserResolver{}
	}
	return &Server{lb: lb, scales: catalog, users: users}
}

func (s *Server) ListenAndServe(addr string) error {
	s.srv = &fasthttp.Server{
		Handler: s.Handler,
		Name:    "gridblink",
	}
	return s.srv.ListenAndServe(addr)
}

func (s *Server) Shutdown() error {
	if s.srv == nil {
		return nil
	}
	return s.srv.Shutdown()
}

// Handler routes the API. Store failures never propagate: reads degrade to
// empty boards and writes to {success:false}.
func (s *Server) Handler(ctx *fasthttp.RequestCtx) {
	path := string(ctx.Path())
	method := string(ctx.Method())

	switch {
	case method == fasthttp.MethodGet && path == "/healthz":
		writeJSON(ctx, fasthttp.StatusOK, map[string]string{"status": "ok"})
	case method == fasthttp.MethodGet && path == "/api/init":
		s.handleInit(ctx)
	case method == fasthttp.MethodPost && path == "/api/leaderboard/submit":
		s.handleSubmit(ctx)
	case method == fasthttp.MethodGet && path == "/api/leaderboard/daily":
		s.handleBoard(ctx, leaderboard.WindowDaily)
	case method == fasthttp.MethodGet && path == "/api/leaderboard/weekly":
		s.handleBoard(ctx, leaderboard.WindowWeekly)
	case method == fasthttp.MethodGet && path == "/api/leaderboard/alltime":
		s.handleBoard(ctx, leaderboard.WindowAllTime)
	default:
		writeJSON(ctx, fasthttp.StatusNotFound, errorResponse{Status: "error", Message: "not found"})
	}
}

func (s *Server) handleInit(ctx *fasthttp.RequestCtx) {
	username := s.users.Resolve(ctx)
	if username == "" {
		username = "anonymous"
	}

	players, err := s.lb.PlayerCount(ctx)
	if err != nil {
		obslog.L().Warn("api_init_players", zap.Error(err))
		players = 0
	}
	subs, err := s.lb.SubmissionCount(ctx)
	if err != nil {
		obslog.L().Warn("api_init_submissions", zap.Error(err))
		subs = 0
	}

	resp := InitResponse{
		Username:    username,
		GameDay:     s.lb.Day(),
		DayOfYear:   s.lb.DayOfYear(),
		Players:     players,
		Submissions: subs,
	}
	if s.scales != nil {
		resp.Frequencies = s.scales.ForDay(resp.DayOfYear)
	}
	writeJSON(ctx, fasthttp.StatusOK, resp)
}

func (s *Server) handleSubmit(ctx *fasthttp.RequestCtx) {
	username := s.users.Resolve(ctx)
	if username == "" {
		writeJSON(ctx, fasthttp.StatusUnauthorized, SubmitScoreResponse{Success: false})
		return
	}

	var req SubmitScoreRequest
	if err := json.Unmarshal(ctx.PostBody(), &req); err != nil || req.Score == nil {
		writeJSON(ctx, fasthttp.StatusBadRequest, SubmitScoreResponse{Success: false})
		return
	}

	switch err := s.lb.Submit(ctx, username, *req.Score); err {
	case nil:
		writeJSON(ctx, fasthttp.StatusOK, SubmitScoreResponse{Success: true})
	case leaderboard.ErrInvalidScore:
		writeJSON(ctx, fasthttp.StatusBadRequest, SubmitScoreResponse{Success: false})
	case leaderboard.ErrInvalidUser:
		writeJSON(ctx, fasthttp.StatusUnauthorized, SubmitScoreResponse{Success: false})
	default:
		obslog.L().Error("api_submit", zap.String("username", username), zap.Error(err))
		writeJSON(ctx, fasthttp.StatusInternalServerError, SubmitScoreResponse{Success: false})
	}
}

func (s *Server) handleBoard(ctx *fasthttp.RequestCtx, w leaderboard.Window) {
	entries, err := s.lb.Top(ctx, w)
	if err != nil {
		obslog.L().Warn("api_board", zap.String("window", string(w)), zap.Error(err))
		entries = nil
	}
	if entries == nil {
		entries = []leaderboard.Entry{}
	}
	writeJSON(ctx, fasthttp.StatusOK, LeaderboardResponse{Entries: entries})
}

func writeJSON(ctx *fasthttp.RequestCtx, status int, v any) {
	payload, err := json.Marshal(v)
	if err != nil {
		ctx.SetStatusCode(fasthttp.StatusInternalServerError)
		return
	}
	ctx.SetStatusCode(status)
	ctx.SetContentType("application/json")
	ctx.SetBody(payload)
}
