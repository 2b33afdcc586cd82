// Package gateway hosts server-side game sessions over websocket: start and
// click frames come in, flash and phase frames go out. Finished games with a
// positive score are submitted to the leaderboard as a fire-and-forget task.
package gateway

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/kapu/gridblink/internal/leaderboard"
	"github.com/kapu/gridblink/internal/obslog"
	"github.com/kapu/gridblink/internal/session"
)

const submitTimeout = 5 * time.Second

type Gateway struct {
	lb       *leaderboard.Manager
	registry *Registry
	base     session.Config

	srv *http.Server
}

type Option func(*Gateway)

// WithSessionConfig overrides the session timing rules (tests use this to
// shrink delays).
func WithSessionConfig(cfg session.Config) Option {
	return func(g *Gateway) { g.base = cfg }
}

func New(lb *leaderboard.Manager, opts ...Option) *Gateway {
	g := &Gateway{
		lb:       lb,
		registry: NewRegistry(),
		base:     session.DefaultConfig(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

func (g *Gateway) Registry() *Registry { return g.registry }

func (g *Gateway) ListenAndServe(addr string) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws/play", g.HandlePlay)
	g.srv = &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	if err := g.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (g *Gateway) Shutdown(ctx context.Context) error {
	if g.srv == nil {
		return nil
	}
	return g.srv.Shutdown(ctx)
}

// HandlePlay upgrades the connection and runs one play session loop.
func (g *Gateway) HandlePlay(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		CompressionMode: websocket.CompressionNoContextTakeover,
		OriginPatterns:  []string{"*"},
	})
	if err != nil {
		obslog.L().Warn("ws_accept", zap.Error(err))
		return
	}

	pc := &playConn{
		g:        g,
		conn:     conn,
		username: resolveUser(r),
		out:      make(chan ServerMessage, 64),
	}
	pc.run(r.Context())
}

func resolveUser(r *http.Request) string {
	u := strings.TrimSpace(r.Header.Get("X-User-Id"))
	if strings.EqualFold(u, "anonymous") {
		return ""
	}
	return u
}

type playConn struct {
	g        *Gateway
	conn     *websocket.Conn
	username string
	out      chan ServerMessage

	sessionID string
	machine   *session.Machine

	cancel context.CancelFunc
}

func (pc *playConn) run(parent context.Context) {
	ctx, cancel := context.WithCancel(parent)
	pc.cancel = cancel
	defer func() {
		cancel()
		if pc.sessionID != "" {
			pc.g.registry.Remove(pc.sessionID)
		}
		_ = pc.conn.Close(websocket.StatusNormalClosure, "bye")
	}()

	go pc.writeLoop(ctx)

	for {
		var msg ClientMessage
		if err := wsjson.Read(ctx, pc.conn, &msg); err != nil {
			return
		}
		switch msg.Type {
		case MsgStart:
			pc.start(msg.Speed)
		case MsgClick:
			if pc.machine != nil && msg.Slot != nil {
				pc.machine.Click(*msg.Slot)
			}
		default:
			pc.send(ServerMessage{Type: MsgError, Message: "unknown message type"})
		}
	}
}

// start tears down any previous session on this connection and begins a
// fresh one with the requested speed.
func (pc *playConn) start(speed float64) {
	if pc.sessionID != "" {
		pc.g.registry.Remove(pc.sessionID)
		pc.sessionID = ""
		pc.machine = nil
	}

	cfg := pc.g.base
	if speed != 0 {
		cfg.Speed = speed
	}
	m := session.New(cfg, session.WithListener(&wsListener{pc: pc}))
	pc.machine = m
	pc.sessionID = pc.g.registry.Add(m)

	if err := m.Start(); err != nil {
		pc.send(ServerMessage{Type: MsgError, Message: err.Error()})
		return
	}
	snap := m.Snapshot()
	pc.send(ServerMessage{Type: MsgSession, SessionID: pc.sessionID, Speed: snap.Speed})
	obslog.L().Info("session_start",
		zap.String("session_id", pc.sessionID),
		zap.String("username", pc.username),
		zap.Float64("speed", snap.Speed),
	)
}

func (pc *playConn) writeLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-pc.out:
			wctx, cancel := context.WithTimeout(ctx, 5*time.Second)
			err := wsjson.Write(wctx, pc.conn, msg)
			cancel()
			if err != nil {
				pc.cancel()
				return
			}
		}
	}
}

// send enqueues a frame without blocking; the machine lock is held by most
// callers, so a slow client drops frames instead of stalling the session.
func (pc *playConn) send(msg ServerMessage) {
	select {
	case pc.out <- msg:
	default:
		obslog.L().Warn("ws_send_drop", zap.String("type", msg.Type), zap.String("session_id", pc.sessionID))
	}
}

// wsListener bridges session events onto the connection's outbound queue.
type wsListener struct{ pc *playConn }

func (l *wsListener) FlashStarted(slot int, d time.Duration) {
	l.pc.send(ServerMessage{Type: MsgFlashOn, Slot: &slot, DurationMs: d.Milliseconds()})
}

func (l *wsListener) FlashEnded(slot int) {
	l.pc.send(ServerMessage{Type: MsgFlashOff, Slot: &slot})
}

func (l *wsListener) ComputerTurnStarted(sequenceLength int) {
	l.pc.send(ServerMessage{Type: MsgComputerTurn, SequenceLength: sequenceLength})
}

func (l *wsListener) PlayerTurnStarted() {
	l.pc.send(ServerMessage{Type: MsgPlayerTurn})
}

func (l *wsListener) RoundCompleted(score int) {
	l.pc.send(ServerMessage{Type: MsgRound, Score: score})
}

func (l *wsListener) GameEnded(score int, reason session.EndReason) {
	l.pc.send(ServerMessage{Type: MsgGameOver, Score: score, Reason: string(reason)})
	if reason == session.EndAborted || score <= 0 || l.pc.username == "" {
		return
	}
	// Fire-and-forget: a failed submission is logged and dropped, never
	// retried, and never affects the session.
	username, g := l.pc.username, l.pc.g
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), submitTimeout)
		defer cancel()
		if err := g.lb.Submit(ctx, username, score); err != nil {
			obslog.L().Warn("session_submit", zap.String("username", username), zap.Int("score", score), zap.Error(err))
		}
	}()
}
