package leaderboard

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq"
)

// Repository archives accepted score submissions to Postgres. The archive is
// an audit trail, not a ranking source; the Redis aggregates stay
// authoritative for reads.
type Repository struct {
	db *sql.DB
}

func NewRepository(databaseURL string) (*Repository, error) {
	if strings.TrimSpace(databaseURL) == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(16)
	db.SetMaxIdleConns(8)
	db.SetConnMaxLifetime(30 * time.Minute)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		return nil, err
	}
	return &Repository{db: db}, nil
}

func (r *Repository) Close() error {
	if r == nil || r.db == nil {
		return nil
	}
	return r.db.Close()
}

// InsertScore appends one accepted submission to the archive.
func (r *Repository) InsertScore(ctx context.Context, username string, score int, gameDay string, submittedAt time.Time) error {
	if r == nil || r.db == nil {
		return nil
	}
	const q = `INSERT INTO gridblink_scores (username, score, game_day, submitted_at)
		VALUES ($1, $2, $3, $4)`
	_, err := r.db.ExecContext(ctx, q, username, score, gameDay, submittedAt)
	if err != nil {
		return fmt.Errorf("insert score: %w", err)
	}
	return nil
}
