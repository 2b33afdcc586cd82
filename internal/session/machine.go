// Package session implements the Gridblink round state machine: the computer
// plays back a growing slot sequence, the player reproduces it, and a wrong
// slot, an inactivity timeout or the maximum sequence length ends the game.
package session

import (
	"errors"
	"sync"
)

var ErrInProgress = errors.New("session already in progress")

// Machine drives a single player's session. All timer callbacks are guarded
// by a generation counter so a timer scheduled for a superseded phase can
// never mutate a newer phase's state.
type Machine struct {
	mu  sync.Mutex
	cfg Config

	state State
	seq   []int
	input []int
	score int

	gen         uint64
	cancelTimer func()

	pick     func() int
	sched    Scheduler
	listener Listener
}

type Option func(*Machine)

// WithScheduler replaces the production timer scheduler.
func WithScheduler(s Scheduler) Option {
	return func(m *Machine) {
		if s != nil {
			m.sched = s
		}
	}
}

// WithSlotPicker replaces the sequence generator.
func WithSlotPicker(pick func() int) Option {
	return func(m *Machine) {
		if pick != nil {
			m.pick = pick
		}
	}
}

// WithListener attaches an event listener.
func WithListener(l Listener) Option {
	return func(m *Machine) {
		if l != nil {
			m.listener = l
		}
	}
}

func New(cfg Config, opts ...Option) *Machine {
	cfg = cfg.normalized()
	m := &Machine{
		cfg:      cfg,
		state:    StateIdle,
		sched:    NewTimerScheduler(),
		listener: NopListener{},
	}
	m.pick = NewGenerator(cfg.Slots).Next
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Start begins a new game. Only valid from Idle or GameOver.
func (m *Machine) Start() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state == StateComputerTurn || m.state == StatePlayerTurn {
		return ErrInProgress
	}

	m.score = 0
	m.seq = []int{m.pick()}
	m.input = nil
	m.beginComputerTurn()
	return nil
}

// Click records a player slot press. Outside PlayerTurn it is a no-op by
// contract, never an error.
func (m *Machine) Click(slot int) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state != StatePlayerTurn {
		return
	}
	if slot < 0 || slot >= m.cfg.Slots {
		return
	}

	// Invalidate the pending timeout even if it has already fired and is
	// waiting on the lock.
	m.stopTimer()
	m.gen++
	m.input = append(m.input, slot)

	if slot != m.seq[len(m.input)-1] {
		m.endGame(EndWrongSlot)
		return
	}

	if len(m.input) == len(m.seq) {
		m.score++
		m.listener.RoundCompleted(m.score)
		if m.score >= m.cfg.MaxSequenceLength {
			m.endGame(EndComplete)
			return
		}
		m.seq = append(m.seq, m.pick())
		m.beginComputerTurn()
		return
	}

	// Round still in progress: refresh the inactivity timeout.
	m.armTimeout()
}

// Destroy tears the session down. Idempotent.
func (m *Machine) Destroy() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.stopTimer()
	m.gen++
	if m.state == StateComputerTurn || m.state == StatePlayerTurn {
		m.state = StateGameOver
		m.listener.GameEnded(m.score, EndAborted)
	}
}

// Snapshot returns a copy of the observable session state.
func (m *Machine) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return Snapshot{
		State:          m.state,
		Score:          m.score,
		SequenceLength: len(m.seq),
		InputLength:    len(m.input),
		Speed:          m.cfg.Speed,
	}
}

// beginComputerTurn enters playback. Caller holds the lock.
func (m *Machine) beginComputerTurn() {
	m.stopTimer()
	m.gen++
	m.state = StateComputerTurn
	m.input = nil
	m.listener.ComputerTurnStarted(len(m.seq))
	m.schedulePlaybackStep(m.gen, 0)
}

// schedulePlaybackStep queues the gap delay before flashing seq[idx].
// Caller holds the lock.
func (m *Machine) schedulePlaybackStep(gen uint64, idx int) {
	_, gap := m.cfg.stepTiming(m.score)
	m.cancelTimer = m.sched.After(gap, func() { m.flashOn(gen, idx) })
}

func (m *Machine) flashOn(gen uint64, idx int) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if gen != m.gen || m.state != StateComputerTurn || idx >= len(m.seq) {
		return
	}
	flash, _ := m.cfg.stepTiming(m.score)
	m.listener.FlashStarted(m.seq[idx], flash)
	m.cancelTimer = m.sched.After(flash, func() { m.flashOff(gen, idx) })
}

func (m *Machine) flashOff(gen uint64, idx int) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if gen != m.gen || m.state != StateComputerTurn || idx >= len(m.seq) {
		return
	}
	m.listener.FlashEnded(m.seq[idx])

	if idx+1 < len(m.seq) {
		m.schedulePlaybackStep(gen, idx+1)
		return
	}
	// Short settle delay so player input cannot race the final flash.
	m.cancelTimer = m.sched.After(m.cfg.SettleDelay, func() { m.beginPlayerTurn(gen) })
}

func (m *Machine) beginPlayerTurn(gen uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if gen != m.gen || m.state != StateComputerTurn {
		return
	}
	m.gen++
	m.state = StatePlayerTurn
	m.input = nil
	m.listener.PlayerTurnStarted()
	m.armTimeout()
}

// armTimeout schedules the inactivity forfeit. Caller holds the lock.
func (m *Machine) armTimeout() {
	gen := m.gen
	m.cancelTimer = m.sched.After(m.cfg.PlayerTimeout, func() { m.onTimeout(gen) })
}

func (m *Machine) onTimeout(gen uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if gen != m.gen || m.state != StatePlayerTurn {
		return
	}
	m.endGame(EndTimeout)
}

// endGame transitions to GameOver. Caller holds the lock.
func (m *Machine) endGame(reason EndReason) {
	m.stopTimer()
	m.gen++
	m.state = StateGameOver
	m.listener.GameEnded(m.score, reason)
}

// stopTimer cancels the outstanding scheduled task, if any. Caller holds
// the lock.
func (m *Machine) stopTimer() {
	if m.cancelTimer != nil {
		m.cancelTimer()
		m.cancelTimer = nil
	}
}
