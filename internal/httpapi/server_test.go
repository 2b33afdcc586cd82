package httpapi

import (
	"encoding/json"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/valyala/fasthttp"

	"github.com/kapu/gridblink/internal/leaderboard"
	"github.com/kapu/gridblink/internal/scales"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	t.Cleanup(func() { mr.Close() })

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	now := time.Date(2025, 1, 15, 12, 0, 0, 0, time.UTC)
	lb := leaderboard.NewManager(rdb, time.UTC, 5, leaderboard.WithClock(func() time.Time { return now }))

	catalog, err := scales.New("")
	if err != nil {
		t.Fatalf("scales: %v", err)
	}
	return NewServer(lb, catalog, nil)
}

func doRequest(t *testing.T, s *Server, method, path, body string, headers map[string]string) *fasthttp.RequestCtx {
	t.Helper()
	var req fasthttp.Request
	req.Header.SetMethod(method)
	req.SetRequestURI(path)
	if body != "" {
		req.Header.SetContentType("application/json")
		req.SetBodyString(body)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	ctx := &fasthttp.RequestCtx{}
	ctx.Init(&req, nil, nil)
	s.Handler(ctx)
	return ctx
}

func asUser(name string) map[string]string { return map[string]string{"X-User-Id": name} }

func TestSubmitRequiresIdentity(t *testing.T) {
	s := newTestServer(t)

	ctx := doRequest(t, s, "POST", "/api/leaderboard/submit", `{"score":3}`, nil)
	if ctx.Response.StatusCode() != fasthttp.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", ctx.Response.StatusCode())
	}

	ctx = doRequest(t, s, "POST", "/api/leaderboard/submit", `{"score":3}`, asUser("anonymous"))
	if ctx.Response.StatusCode() != fasthttp.StatusUnauthorized {
		t.Fatalf("anonymous status = %d, want 401", ctx.Response.StatusCode())
	}
}

func TestSubmitRejectsMalformedPayload(t *testing.T) {
	s := newTestServer(t)

	for _, body := range []string{``, `{}`, `{"score":"three"}`, `not json`} {
		ctx := doRequest(t, s, "POST", "/api/leaderboard/submit", body, asUser("alice"))
		if ctx.Response.StatusCode() != fasthttp.StatusBadRequest {
			t.Fatalf("body %q: status = %d, want 400", body, ctx.Response.StatusCode())
		}
	}

	ctx := doRequest(t, s, "POST", "/api/leaderboard/submit", `{"score":0}`, asUser("alice"))
	if ctx.Response.StatusCode() != fasthttp.StatusBadRequest {
		t.Fatalf("zero score: status = %d, want 400", ctx.Response.StatusCode())
	}
}

func TestSubmitThenReadDaily(t *testing.T) {
	s := newTestServer(t)

	ctx := doRequest(t, s, "POST", "/api/leaderboard/submit", `{"score":3}`, asUser("alice"))
	if ctx.Response.StatusCode() != fasthttp.StatusOK {
		t.Fatalf("submit status = %d, want 200", ctx.Response.StatusCode())
	}
	var sub SubmitScoreResponse
	if err := json.Unmarshal(ctx.Response.Body(), &sub); err != nil || !sub.Success {
		t.Fatalf("submit response = %s (%v)", ctx.Response.Body(), err)
	}

	// A lower resubmission must not add a second alice entry.
	doRequest(t, s, "POST", "/api/leaderboard/submit", `{"score":2}`, asUser("alice"))

	ctx = doRequest(t, s, "GET", "/api/leaderboard/daily", "", nil)
	if ctx.Response.StatusCode() != fasthttp.StatusOK {
		t.Fatalf("read status = %d, want 200", ctx.Response.StatusCode())
	}
	var board LeaderboardResponse
	if err := json.Unmarshal(ctx.Response.Body(), &board); err != nil {
		t.Fatalf("decode board: %v", err)
	}
	if len(board.Entries) != 1 {
		t.Fatalf("entries = %+v, want exactly one alice row", board.Entries)
	}
	e := board.Entries[0]
	if e.Username != "alice" || e.Score != 3 || e.Timestamp == 0 {
		t.Fatalf("unexpected entry %+v", e)
	}
}

func TestBoardsAreSeparateWindows(t *testing.T) {
	s := newTestServer(t)
	doRequest(t, s, "POST", "/api/leaderboard/submit", `{"score":7}`, asUser("bob"))

	for _, path := range []string{"/api/leaderboard/daily", "/api/leaderboard/weekly", "/api/leaderboard/alltime"} {
		ctx := doRequest(t, s, "GET", path, "", nil)
		var board LeaderboardResponse
		if err := json.Unmarshal(ctx.Response.Body(), &board); err != nil {
			t.Fatalf("%s: decode: %v", path, err)
		}
		if len(board.Entries) != 1 || board.Entries[0].Score != 7 {
			t.Fatalf("%s: entries = %+v", path, board.Entries)
		}
	}
}

func TestInit(t *testing.T) {
	s := newTestServer(t)

	ctx := doRequest(t, s, "GET", "/api/init", "", nil)
	var resp InitResponse
	if err := json.Unmarshal(ctx.Response.Body(), &resp); err != nil {
		t.Fatalf("decode init: %v", err)
	}
	if resp.Username != "anonymous" {
		t.Fatalf("username = %q, want anonymous", resp.Username)
	}
	if resp.GameDay != "2025-01-15" || resp.DayOfYear != 15 {
		t.Fatalf("game day = %q/%d, want 2025-01-15/15", resp.GameDay, resp.DayOfYear)
	}
	if len(resp.Frequencies) != scales.Slots {
		t.Fatalf("frequencies = %d, want %d", len(resp.Frequencies), scales.Slots)
	}

	ctx = doRequest(t, s, "GET", "/api/init", "", asUser("carol"))
	if err := json.Unmarshal(ctx.Response.Body(), &resp); err != nil {
		t.Fatalf("decode init: %v", err)
	}
	if resp.Username != "carol" {
		t.Fatalf("username = %q, want carol", resp.Username)
	}
}

func TestUnknownRoute(t *testing.T) {
	s := newTestServer(t)
	ctx := doRequest(t, s, "GET", "/api/nope", "", nil)
	if ctx.Response.StatusCode() != fasthttp.StatusNotFound {
		t.Fatalf("status = %d, want 404", ctx.Response.StatusCode())
	}
}
