// Package leaderboard maintains per-player best scores across daily, weekly
// and all-time windows backed by Redis sorted sets. Each window keeps at most
// one entry per username; a submission only mutates a window when it beats
// the stored best (replace-on-improvement, never append).
package leaderboard

import (
	"context"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/kapu/gridblink/internal/gameday"
	"github.com/kapu/gridblink/internal/obslog"
)

const (
	weekSpan     = 7 * 24 * time.Hour
	weeklyKeyTTL = 8 * 24 * time.Hour
)

type Manager struct {
	store     *Store
	loc       *time.Location
	resetHour int

	maxEntries int
	dailyTTL   time.Duration
	maxScore   int

	repo *Repository
	now  func() time.Time
}

type ManagerOption func(*Manager)

// WithMaxEntries bounds every window read and the all-time retention cap.
func WithMaxEntries(n int) ManagerOption {
	return func(m *Manager) {
		if n > 0 {
			m.maxEntries = n
		}
	}
}

// WithDailyTTL sets the expiry of daily aggregates (minimum 48h).
func WithDailyTTL(d time.Duration) ManagerOption {
	return func(m *Manager) {
		if d >= 48*time.Hour {
			m.dailyTTL = d
		}
	}
}

// WithMaxScore sets the basic range check for submissions.
func WithMaxScore(n int) ManagerOption {
	return func(m *Manager) {
		if n > 0 {
			m.maxScore = n
		}
	}
}

// WithClock injects the time source for tests.
func WithClock(now func() time.Time) ManagerOption {
	return func(m *Manager) {
		if now != nil {
			m.now = now
		}
	}
}

func NewManager(rdb *redis.Client, loc *time.Location, resetHour int, opts ...ManagerOption) *Manager {
	m := &Manager{
		store:      NewStore(rdb),
		loc:        loc,
		resetHour:  resetHour,
		maxEntries: 100,
		dailyTTL:   48 * time.Hour,
		maxScore:   200,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// AttachRepository wires an optional database archive for accepted
// submissions. Archive failures never fail a submission.
func (m *Manager) AttachRepository(r *Repository) {
	if m != nil {
		m.repo = r
	}
}

// Day returns the current game day string.
func (m *Manager) Day() string {
	return gameday.DayString(m.loc, m.resetHour, m.now())
}

// DayOfYear returns the current game day's ordinal within its year.
func (m *Manager) DayOfYear() int {
	return gameday.DayOfYear(m.loc, m.resetHour, m.now())
}

// Submit records a finished game's score against all three windows. Each
// window is its own small transaction; one window failing does not stop the
// others.
func (m *Manager) Submit(ctx context.Context, username string, score int) error {
	username = strings.TrimSpace(username)
	if username == "" || strings.EqualFold(username, "anonymous") {
		return ErrInvalidUser
	}
	if score <= 0 || score > m.maxScore {
		return ErrInvalidScore
	}

	now := m.now()
	ts := now.UnixMilli()
	day := gameday.DayString(m.loc, m.resetHour, now)

	if err := m.store.MarkPlayerSeen(ctx, username, ts); err != nil {
		obslog.L().Warn("lb_mark_player", zap.String("username", username), zap.Error(err))
	}

	var firstErr error
	keep := func(err error, window Window) {
		if err != nil {
			obslog.L().Warn("lb_window_update", zap.String("window", string(window)), zap.String("username", username), zap.Error(err))
			if firstErr == nil {
				firstErr = err
			}
		}
	}

	_, err := m.store.UpsertIfImproved(ctx,
		m.store.keyDaily(day), m.store.keyBest(WindowDaily, day, username),
		username, score, ts, 0, m.dailyTTL, m.dailyTTL)
	keep(err, WindowDaily)

	_, err = m.store.UpsertIfImproved(ctx,
		m.store.keyWeekly(), m.store.keyBest(WindowWeekly, "", username),
		username, score, ts, ts-weekSpan.Milliseconds(), 0, weeklyKeyTTL)
	keep(err, WindowWeekly)

	improved, err := m.store.UpsertIfImproved(ctx,
		m.store.keyAllTime(), m.store.keyBest(WindowAllTime, "", username),
		username, score, ts, 0, 0, 0)
	keep(err, WindowAllTime)
	if err == nil && improved {
		if trimErr := m.store.TrimToTop(ctx, m.store.keyAllTime(), m.maxEntries); trimErr != nil {
			keep(trimErr, WindowAllTime)
		}
	}

	if _, cErr := m.store.CountSubmission(ctx); cErr != nil {
		obslog.L().Warn("lb_count_submission", zap.Error(cErr))
	}

	if m.repo != nil {
		if aErr := m.repo.InsertScore(ctx, username, score, day, now); aErr != nil {
			obslog.L().Warn("lb_archive", zap.String("username", username), zap.Error(aErr))
		}
	}

	obslog.L().Info("lb_submit",
		zap.String("username", username),
		zap.Int("score", score),
		zap.String("game_day", day),
	)
	return firstErr
}

// Top returns up to the configured maximum entries for a window, ordered by
// score descending. The weekly window lazily prunes entries older than seven
// days before ranking.
func (m *Manager) Top(ctx context.Context, w Window) ([]Entry, error) {
	switch w {
	case WindowDaily:
		return m.store.TopN(ctx, m.store.keyDaily(m.Day()), m.maxEntries)
	case WindowWeekly:
		cutoff := m.now().UnixMilli() - weekSpan.Milliseconds()
		if err := m.store.PruneOlder(ctx, m.store.keyWeekly(), cutoff); err != nil {
			return nil, err
		}
		return m.store.TopN(ctx, m.store.keyWeekly(), m.maxEntries)
	case WindowAllTime:
		return m.store.TopN(ctx, m.store.keyAllTime(), m.maxEntries)
	default:
		return []Entry{}, nil
	}
}

// PlayerCount reports how many distinct players have ever submitted.
func (m *Manager) PlayerCount(ctx context.Context) (int64, error) {
	return m.store.PlayerCount(ctx)
}

// SubmissionCount reports the total number of accepted submissions.
func (m *Manager) SubmissionCount(ctx context.Context) (int64, error) {
	return m.store.SubmissionCount(ctx)
}
