package session

import (
	"sync"
	"testing"
	"time"
)

// manualScheduler runs scheduled tasks only when the test asks it to.
type manualScheduler struct {
	mu    sync.Mutex
	tasks []*manualTask
}

type manualTask struct {
	d         time.Duration
	fn        func()
	cancelled bool
	done      bool
}

func (s *manualScheduler) After(d time.Duration, fn func()) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := &manualTask{d: d, fn: fn}
	s.tasks = append(s.tasks, t)
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		t.cancelled = true
	}
}

// runNext executes the oldest pending task, returning its scheduled delay.
func (s *manualScheduler) runNext() (time.Duration, bool) {
	s.mu.Lock()
	var next *manualTask
	for _, t := range s.tasks {
		if !t.cancelled && !t.done {
			next = t
			break
		}
	}
	if next == nil {
		s.mu.Unlock()
		return 0, false
	}
	next.done = true
	s.mu.Unlock()
	next.fn()
	return next.d, true
}

// lastPending returns the most recently scheduled live task without running it.
func (s *manualScheduler) lastPending() *manualTask {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := len(s.tasks) - 1; i >= 0; i-- {
		if !s.tasks[i].cancelled && !s.tasks[i].done {
			return s.tasks[i]
		}
	}
	return nil
}

type recordingListener struct {
	flashes   []int
	rounds    []int
	turns     int
	endScore  int
	endReason EndReason
	ended     bool
}

func (r *recordingListener) FlashStarted(slot int, _ time.Duration) { r.flashes = append(r.flashes, slot) }
func (r *recordingListener) FlashEnded(int)                         {}
func (r *recordingListener) ComputerTurnStarted(int)                {}
func (r *recordingListener) PlayerTurnStarted()                     { r.turns++ }
func (r *recordingListener) RoundCompleted(score int)               { r.rounds = append(r.rounds, score) }
func (r *recordingListener) GameEnded(score int, reason EndReason) {
	r.ended = true
	r.endScore = score
	r.endReason = reason
}

func newTestMachine(t *testing.T, pick func() int) (*Machine, *manualScheduler, *recordingListener) {
	t.Helper()
	sched := &manualScheduler{}
	lis := &recordingListener{}
	m := New(DefaultConfig(), WithScheduler(sched), WithSlotPicker(pick), WithListener(lis))
	return m, sched, lis
}

// runToPlayerTurn drains the playback timers until the machine hands the
// turn to the player.
func runToPlayerTurn(t *testing.T, m *Machine, sched *manualScheduler) {
	t.Helper()
	for i := 0; i < 2000; i++ {
		if m.Snapshot().State == StatePlayerTurn {
			return
		}
		if _, ok := sched.runNext(); !ok {
			t.Fatalf("scheduler drained before player turn (state=%s)", m.Snapshot().State)
		}
	}
	t.Fatalf("player turn never reached")
}

func constPicker(slot int) func() int { return func() int { return slot } }

func TestStartCreatesSequenceOfOne(t *testing.T) {
	m, _, _ := newTestMachine(t, constPicker(3))
	if err := m.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	snap := m.Snapshot()
	if snap.State != StateComputerTurn {
		t.Fatalf("state = %s, want %s", snap.State, StateComputerTurn)
	}
	if snap.SequenceLength != 1 || snap.Score != 0 {
		t.Fatalf("seq=%d score=%d, want 1/0", snap.SequenceLength, snap.Score)
	}
}

func TestStartWhileInProgress(t *testing.T) {
	m, _, _ := newTestMachine(t, constPicker(3))
	if err := m.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := m.Start(); err != ErrInProgress {
		t.Fatalf("expected ErrInProgress, got %v", err)
	}
}

func TestPlaybackFlashesWholeSequence(t *testing.T) {
	m, sched, lis := newTestMachine(t, constPicker(4))
	if err := m.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	runToPlayerTurn(t, m, sched)
	if len(lis.flashes) != 1 || lis.flashes[0] != 4 {
		t.Fatalf("flashes = %v, want [4]", lis.flashes)
	}
	if lis.turns != 1 {
		t.Fatalf("player turn events = %d, want 1", lis.turns)
	}
}

func TestCorrectRoundAdvances(t *testing.T) {
	m, sched, lis := newTestMachine(t, constPicker(2))
	if err := m.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	runToPlayerTurn(t, m, sched)

	m.Click(2)
	snap := m.Snapshot()
	if snap.Score != 1 {
		t.Fatalf("score = %d, want 1", snap.Score)
	}
	if snap.State != StateComputerTurn {
		t.Fatalf("state = %s, want %s", snap.State, StateComputerTurn)
	}
	if snap.SequenceLength != snap.Score+1 {
		t.Fatalf("sequence length %d != score+1 (%d)", snap.SequenceLength, snap.Score+1)
	}
	if len(lis.rounds) != 1 || lis.rounds[0] != 1 {
		t.Fatalf("round events = %v, want [1]", lis.rounds)
	}
}

func TestWrongFirstClickEndsWithZeroScore(t *testing.T) {
	m, sched, lis := newTestMachine(t, constPicker(2))
	if err := m.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	runToPlayerTurn(t, m, sched)

	m.Click(7)
	snap := m.Snapshot()
	if snap.State != StateGameOver {
		t.Fatalf("state = %s, want %s", snap.State, StateGameOver)
	}
	if !lis.ended || lis.endReason != EndWrongSlot || lis.endScore != 0 {
		t.Fatalf("end = %v/%s/%d, want true/%s/0", lis.ended, lis.endReason, lis.endScore, EndWrongSlot)
	}
}

func TestWrongClickMidRoundKeepsConfirmedScore(t *testing.T) {
	m, sched, lis := newTestMachine(t, constPicker(2))
	if err := m.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	runToPlayerTurn(t, m, sched)
	m.Click(2) // round 1 complete, sequence now [2 2]
	runToPlayerTurn(t, m, sched)

	m.Click(2) // correct, mid-round
	m.Click(5) // wrong at position 2
	snap := m.Snapshot()
	if snap.State != StateGameOver {
		t.Fatalf("state = %s, want %s", snap.State, StateGameOver)
	}
	if lis.endScore != 1 {
		t.Fatalf("end score = %d, want last confirmed round count 1", lis.endScore)
	}
}

func TestInactivityTimeout(t *testing.T) {
	m, sched, lis := newTestMachine(t, constPicker(0))
	if err := m.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	runToPlayerTurn(t, m, sched)

	d, ok := sched.runNext()
	if !ok {
		t.Fatalf("expected a pending timeout task")
	}
	if d != 5*time.Second {
		t.Fatalf("timeout delay = %v, want 5s", d)
	}
	if m.Snapshot().State != StateGameOver || lis.endReason != EndTimeout {
		t.Fatalf("state=%s reason=%s, want game over by timeout", m.Snapshot().State, lis.endReason)
	}
}

func TestClickDuringComputerTurnIgnored(t *testing.T) {
	m, _, _ := newTestMachine(t, constPicker(2))
	if err := m.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	m.Click(2)
	snap := m.Snapshot()
	if snap.State != StateComputerTurn || snap.InputLength != 0 || snap.Score != 0 {
		t.Fatalf("click during playback mutated state: %+v", snap)
	}
}

func TestStaleTimeoutCannotFireAfterClick(t *testing.T) {
	m, sched, _ := newTestMachine(t, constPicker(2))
	if err := m.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	runToPlayerTurn(t, m, sched)
	m.Click(2) // sequence grows to [2 2]
	runToPlayerTurn(t, m, sched)

	stale := sched.lastPending()
	if stale == nil {
		t.Fatalf("expected armed timeout task")
	}
	m.Click(2) // mid-round click refreshes the timeout

	// Simulate the superseded timer having already fired before cancel.
	stale.fn()
	if got := m.Snapshot().State; got != StatePlayerTurn {
		t.Fatalf("stale timer mutated state: %s", got)
	}
}

func TestMaxSequenceVictory(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxSequenceLength = 2
	sched := &manualScheduler{}
	lis := &recordingListener{}
	m := New(cfg, WithScheduler(sched), WithSlotPicker(constPicker(1)), WithListener(lis))
	if err := m.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}

	runToPlayerTurn(t, m, sched)
	m.Click(1)
	runToPlayerTurn(t, m, sched)
	m.Click(1)
	m.Click(1)

	if m.Snapshot().State != StateGameOver {
		t.Fatalf("state = %s, want %s", m.Snapshot().State, StateGameOver)
	}
	if lis.endReason != EndComplete || lis.endScore != 2 {
		t.Fatalf("end = %s/%d, want %s/2", lis.endReason, lis.endScore, EndComplete)
	}
}

func TestStepTimingSpeedCurve(t *testing.T) {
	cfg := DefaultConfig()

	flash, gap := cfg.stepTiming(0)
	if flash != 600*time.Millisecond || gap != 400*time.Millisecond {
		t.Fatalf("base timing = %v/%v, want 600ms/400ms", flash, gap)
	}

	flash, gap = cfg.stepTiming(5)
	if flash != 450*time.Millisecond || gap != 300*time.Millisecond {
		t.Fatalf("sped-up timing = %v/%v, want 450ms/300ms", flash, gap)
	}

	cfg.Speed = 2
	cfg = cfg.normalized()
	flash, gap = cfg.stepTiming(5)
	if flash != 225*time.Millisecond || gap != 150*time.Millisecond {
		t.Fatalf("2x timing = %v/%v, want 225ms/150ms", flash, gap)
	}
}

func TestInvalidSpeedNormalized(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Speed = 3.7
	if got := cfg.normalized().Speed; got != 1 {
		t.Fatalf("speed = %v, want 1", got)
	}
}

func TestGeneratorRange(t *testing.T) {
	g := NewSeededGenerator(9, 42)
	seen := make(map[int]bool)
	for i := 0; i < 1000; i++ {
		n := g.Next()
		if n < 0 || n >= 9 {
			t.Fatalf("slot out of range: %d", n)
		}
		seen[n] = true
	}
	if len(seen) != 9 {
		t.Fatalf("expected all 9 slots over 1000 draws, saw %d", len(seen))
	}
}

func TestRestartAfterGameOver(t *testing.T) {
	m, sched, _ := newTestMachine(t, constPicker(2))
	if err := m.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	runToPlayerTurn(t, m, sched)
	m.Click(8) // wrong, game over

	if err := m.Start(); err != nil {
		t.Fatalf("restart: %v", err)
	}
	snap := m.Snapshot()
	if snap.State != StateComputerTurn || snap.SequenceLength != 1 || snap.Score != 0 {
		t.Fatalf("restart state: %+v", snap)
	}
}
