package metrics

import (
	"sync"
	"time"
)

// testRecorder captures calls for assertions in this and dependent packages' tests.
type testRecorder struct {
	mu        sync.Mutex
	rollovers map[string]int
	durations int
	commands  map[string]map[ResultLabel]int
	freeze    int
}

var _ Recorder = (*testRecorder)(nil)
var _ Recorder = NoopRecorder{}
var _ Recorder = (*PrometheusRecorder)(nil)

func newTestRecorder() *testRecorder {
	return &testRecorder{rollovers: map[string]int{}, commands: map[string]map[ResultLabel]int{}}
}

func (t *testRecorder) ObserveRolloverDuration(time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.durations++
}

func (t *testRecorder) IncRolloverOutcome(kind string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.rollovers[kind]++
}

func (t *testRecorder) IncCommand(command string, result ResultLabel) {
	t.mu.Lock()
	defer t.mu.Unlock()
	m, ok := t.commands[command]
	if !ok {
		m = map[ResultLabel]int{}
		t.commands[command] = m
	}
	m[result]++
}

func (t *testRecorder) SetFreezeCredits(n int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.freeze = n
}

func (t *testRecorder) SetActivities(int, int) {}
