package httpapi

import "github.com/kapu/gridblink/internal/leaderboard"

// SubmitScoreRequest is the body of POST /api/leaderboard/submit. Score is a
// pointer so a missing field is distinguishable from zero.
type SubmitScoreRequest struct {
	Score *int `json:"score"`
}

type SubmitScoreResponse struct {
	Success bool `json:"success"`
}

type LeaderboardResponse struct {
	Entries []leaderboard.Entry `json:"entries"`
}

// InitResponse bootstraps a client: identity, the current game day and the
// tone scale the grid should play today.
type InitResponse struct {
	Username    string    `json:"username"`
	GameDay     string    `json:"gameDay"`
	DayOfYear   int       `json:"dayOfYear"`
	Frequencies []float64 `json:"frequencies"`
	Players     int64     `json:"players"`
	Submissions int64     `json:"submissions"`
}

type errorResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}
