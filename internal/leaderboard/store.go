package leaderboard

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// Store owns the Redis key layout for the leaderboard aggregates. Members of
// the ranking sorted sets are encoded as "username:timestampMillis" so the
// submission instant survives without a side lookup; the per-user best lives
// in a separate string key and is the sole arbiter of replace-on-improvement.
type Store struct{ rdb *redis.Client }

func NewStore(rdb *redis.Client) *Store { return &Store{rdb: rdb} }

func (s *Store) keyDaily(day string) string { return "lb:daily:" + day }
func (s *Store) keyWeekly() string          { return "lb:weekly" }
func (s *Store) keyAllTime() string         { return "lb:alltime" }
func (s *Store) keyPlayers() string         { return "lb:players" }
func (s *Store) keySubmissions() string     { return "lb:submissions" }

func (s *Store) keyBest(w Window, day, username string) string {
	if w == WindowDaily {
		return "lb:best:daily:" + day + ":" + username
	}
	return "lb:best:" + string(w) + ":" + username
}

func member(username string, ts int64) string {
	return fmt.Sprintf("%s:%d", username, ts)
}

// parseMember splits on the last colon so usernames containing colons survive.
func parseMember(m string) (username string, ts int64) {
	i := strings.LastIndex(m, ":")
	if i < 0 {
		return m, 0
	}
	ts, _ = strconv.ParseInt(m[i+1:], 10, 64)
	return m[:i], ts
}

func encodeBest(score int, ts int64) string {
	return fmt.Sprintf("%d:%d", score, ts)
}

func parseBest(raw string) (score int, ts int64) {
	i := strings.LastIndex(raw, ":")
	if i < 0 {
		score, _ = strconv.Atoi(strings.TrimSpace(raw))
		return score, 0
	}
	score, _ = strconv.Atoi(raw[:i])
	ts, _ = strconv.ParseInt(raw[i+1:], 10, 64)
	return score, ts
}

// UpsertIfImproved performs the per-(window, username) check-then-act: read
// the stored best, bail out unless the new score beats it, otherwise remove
// the old ranking entry and insert the new one. The read-modify-write is
// guarded with WATCH on the best key so concurrent submissions for the same
// username cannot lose the higher score. Returns whether the entry changed.
func (s *Store) UpsertIfImproved(ctx context.Context, setKey, bestKey, username string, score int, ts int64, staleBefore int64, setTTL, bestTTL time.Duration) (bool, error) {
	improved := false
	err := s.rdb.Watch(ctx, func(tx *redis.Tx) error {
		improved = false
		prevRaw, err := tx.Get(ctx, bestKey).Result()
		if err != nil && err != redis.Nil {
			return err
		}
		prevScore, prevTS := 0, int64(0)
		if err != redis.Nil {
			prevScore, prevTS = parseBest(prevRaw)
		}
		// A best outside the window's validity period counts as absent.
		if staleBefore > 0 && prevTS > 0 && prevTS < staleBefore {
			prevScore = 0
		}
		if score <= prevScore {
			return nil
		}

		pipe := tx.TxPipeline()
		if prevTS > 0 {
			pipe.ZRem(ctx, setKey, member(username, prevTS))
		}
		pipe.ZAdd(ctx, setKey, redis.Z{Score: float64(score), Member: member(username, ts)})
		pipe.Set(ctx, bestKey, encodeBest(score, ts), bestTTL)
		if setTTL > 0 {
			pipe.Expire(ctx, setKey, setTTL)
		}
		if _, pErr := pipe.Exec(ctx); pErr != nil {
			return pErr
		}
		improved = true
		return nil
	}, bestKey)
	return improved, err
}

// TopN returns up to n entries ordered by score descending.
func (s *Store) TopN(ctx context.Context, setKey string, n int) ([]Entry, error) {
	zs, err := s.rdb.ZRevRangeWithScores(ctx, setKey, 0, int64(n-1)).Result()
	if err != nil {
		return nil, err
	}
	entries := make([]Entry, 0, len(zs))
	for _, z := range zs {
		m, _ := z.Member.(string)
		username, ts := parseMember(m)
		entries = append(entries, Entry{Username: username, Score: int(z.Score), Timestamp: ts})
	}
	return entries, nil
}

// PruneOlder drops ranking members whose encoded timestamp predates cutoff.
func (s *Store) PruneOlder(ctx context.Context, setKey string, cutoff int64) error {
	members, err := s.rdb.ZRange(ctx, setKey, 0, -1).Result()
	if err != nil {
		return err
	}
	var stale []interface{}
	for _, m := range members {
		if _, ts := parseMember(m); ts < cutoff {
			stale = append(stale, m)
		}
	}
	if len(stale) == 0 {
		return nil
	}
	return s.rdb.ZRem(ctx, setKey, stale...).Err()
}

// TrimToTop evicts the lowest-scoring members beyond the top max.
func (s *Store) TrimToTop(ctx context.Context, setKey string, max int) error {
	card, err := s.rdb.ZCard(ctx, setKey).Result()
	if err != nil {
		return err
	}
	if card <= int64(max) {
		return nil
	}
	return s.rdb.ZRemRangeByRank(ctx, setKey, 0, card-int64(max)-1).Err()
}

// MarkPlayerSeen records the first-ever submission instant per username.
// ZAddNX keeps the write idempotent.
func (s *Store) MarkPlayerSeen(ctx context.Context, username string, ts int64) error {
	return s.rdb.ZAddNX(ctx, s.keyPlayers(), redis.Z{Score: float64(ts), Member: username}).Err()
}

// PlayerCount returns the number of distinct players ever seen.
func (s *Store) PlayerCount(ctx context.Context) (int64, error) {
	return s.rdb.ZCard(ctx, s.keyPlayers()).Result()
}

// CountSubmission bumps the accepted-submission counter.
func (s *Store) CountSubmission(ctx context.Context) (int64, error) {
	return s.rdb.IncrBy(ctx, s.keySubmissions(), 1).Result()
}

// SubmissionCount reads the accepted-submission counter.
func (s *Store) SubmissionCount(ctx context.Context) (int64, error) {
	n, err := s.rdb.Get(ctx, s.keySubmissions()).Int64()
	if err == redis.Nil {
		return 0, nil
	}
	return n, err
}
