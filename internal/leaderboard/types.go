package leaderboard

// Window is a leaderboard aggregation scope.
type Window string

const (
	WindowDaily   Window = "daily"
	WindowWeekly  Window = "weekly"
	WindowAllTime Window = "alltime"
)

// Entry is one ranked row. Timestamp is epoch milliseconds of submission.
type Entry struct {
	Username  string `json:"username"`
	Score     int    `json:"score"`
	Timestamp int64  `json:"timestamp"`
}

var (
	ErrInvalidUser  = errf("username required")
	ErrInvalidScore = errf("score out of range")
)

type staticErr string

func (e staticErr) Error() string { return string(e) }
func errf(s string) error         { return staticErr(s) }
