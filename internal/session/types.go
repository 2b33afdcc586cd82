package session

import "time"

// State is the lifecycle phase of a game session.
type State string

const (
	StateIdle         State = "IDLE"
	StateComputerTurn State = "COMPUTER_TURN"
	StatePlayerTurn   State = "PLAYER_TURN"
	StateGameOver     State = "GAME_OVER"
)

// EndReason explains how a session reached StateGameOver.
type EndReason string

const (
	EndWrongSlot EndReason = "WRONG_SLOT"
	EndTimeout   EndReason = "TIMEOUT"
	EndComplete  EndReason = "COMPLETE"
	EndAborted   EndReason = "ABORTED"
)

// Config carries the timing and difficulty parameters of a session.
type Config struct {
	Slots             int
	MaxSequenceLength int

	FlashDuration time.Duration
	FlashGap      time.Duration
	SettleDelay   time.Duration

	// PlayerTimeout is a fixed fairness floor: it is deliberately not
	// scaled by Speed even though playback timing is.
	PlayerTimeout time.Duration

	SpeedUpScore  int
	SpeedUpFactor float64

	// Speed is the player-selected multiplier, one of 1, 1.5 or 2.
	Speed float64
}

// DefaultConfig returns the standard Gridblink rules.
func DefaultConfig() Config {
	return Config{
		Slots:             9,
		MaxSequenceLength: 200,
		FlashDuration:     600 * time.Millisecond,
		FlashGap:          400 * time.Millisecond,
		SettleDelay:       100 * time.Millisecond,
		PlayerTimeout:     5 * time.Second,
		SpeedUpScore:      5,
		SpeedUpFactor:     0.75,
		Speed:             1,
	}
}

func (c Config) normalized() Config {
	d := DefaultConfig()
	if c.Slots <= 0 {
		c.Slots = d.Slots
	}
	if c.MaxSequenceLength <= 0 {
		c.MaxSequenceLength = d.MaxSequenceLength
	}
	if c.FlashDuration <= 0 {
		c.FlashDuration = d.FlashDuration
	}
	if c.FlashGap <= 0 {
		c.FlashGap = d.FlashGap
	}
	if c.SettleDelay <= 0 {
		c.SettleDelay = d.SettleDelay
	}
	if c.PlayerTimeout <= 0 {
		c.PlayerTimeout = d.PlayerTimeout
	}
	if c.SpeedUpScore <= 0 {
		c.SpeedUpScore = d.SpeedUpScore
	}
	if c.SpeedUpFactor <= 0 || c.SpeedUpFactor > 1 {
		c.SpeedUpFactor = d.SpeedUpFactor
	}
	switch c.Speed {
	case 1, 1.5, 2:
	default:
		c.Speed = 1
	}
	return c
}

// stepTiming returns the flash and gap durations for the current score,
// applying the round speed-up and the player speed multiplier.
func (c Config) stepTiming(score int) (flash, gap time.Duration) {
	flash, gap = c.FlashDuration, c.FlashGap
	if score >= c.SpeedUpScore {
		flash = time.Duration(float64(flash) * c.SpeedUpFactor)
		gap = time.Duration(float64(gap) * c.SpeedUpFactor)
	}
	flash = time.Duration(float64(flash) / c.Speed)
	gap = time.Duration(float64(gap) / c.Speed)
	return flash, gap
}

// Snapshot is a point-in-time copy of session state for transports.
type Snapshot struct {
	State          State
	Score          int
	SequenceLength int
	InputLength    int
	Speed          float64
}

// Listener receives session events. Callbacks run with the machine lock
// held and must not call back into the Machine.
type Listener interface {
	FlashStarted(slot int, duration time.Duration)
	FlashEnded(slot int)
	ComputerTurnStarted(sequenceLength int)
	PlayerTurnStarted()
	RoundCompleted(score int)
	GameEnded(score int, reason EndReason)
}

// NopListener discards all events.
type NopListener struct{}

func (NopListener) FlashStarted(int, time.Duration) {}
func (NopListener) FlashEnded(int)                  {}
func (NopListener) ComputerTurnStarted(int)         {}
func (NopListener) PlayerTurnStarted()              {}
func (NopListener) RoundCompleted(int)              {}
func (NopListener) GameEnded(int, EndReason)        {}
