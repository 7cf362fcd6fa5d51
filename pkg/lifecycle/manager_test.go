package lifecycle

import (
	"sync"
	"testing"
	"time"

	"github.com/bft-labs/framegraph/pkg/log"
)

// mockEmitter tracks state change events for testing.
type mockEmitter struct {
	mu     sync.Mutex
	events []stateChangeEvent
}

type stateChangeEvent struct {
	previous State
	current  State
	reason   string
}

func (m *mockEmitter) OnStateChange(previous, current State, reason string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, stateChangeEvent{previous, current, reason})
}

func (m *mockEmitter) Events() []stateChangeEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]stateChangeEvent{}, m.events...)
}

func TestNewManager(t *testing.T) {
	l := NewManager(nil, nil)

	if l.State() != StateStopped {
		t.Errorf("initial state = %v, want StateStopped", l.State())
	}
	if l.WorkersDone() {
		t.Errorf("WorkersDone() = true before any worker was added")
	}
}

func TestState_String(t *testing.T) {
	tests := []struct {
		state State
		want  string
	}{
		{StateStopped, "Stopped"},
		{StateStarting, "Starting"},
		{StateRunning, "Running"},
		{StateStopping, "Stopping"},
		{StateCrashed, "Crashed"},
		{State(99), "Unknown"},
	}

	for _, tt := range tests {
		if got := tt.state.String(); got != tt.want {
			t.Errorf("State(%d).String() = %s, want %s", tt.state, got, tt.want)
		}
	}
}

func TestManager_TransitionTo(t *testing.T) {
	tests := []struct {
		name    string
		from    State
		to      State
		wantErr error
	}{
		{"stopped to starting", StateStopped, StateStarting, nil},
		{"starting to running", StateStarting, StateRunning, nil},
		{"starting to stopping", StateStarting, StateStopping, nil},
		{"starting to crashed", StateStarting, StateCrashed, nil},
		{"running to stopping", StateRunning, StateStopping, nil},
		{"running to crashed", StateRunning, StateCrashed, nil},
		{"stopping to stopped", StateStopping, StateStopped, nil},
		{"crashed to starting", StateCrashed, StateStarting, nil},
		{"stopped to running", StateStopped, StateRunning, ErrNotRunning},
		{"starting to stopped", StateStarting, StateStopped, ErrAlreadyRunning},
		{"running to starting", StateRunning, StateStarting, ErrAlreadyRunning},
		{"stopping to running", StateStopping, StateRunning, ErrAlreadyRunning},
		{"crashed to stopped", StateCrashed, StateStopped, ErrNotRunning},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := NewManager(log.NewNoopLogger(), nil)
			l.state = tt.from

			err := l.TransitionTo(tt.to, "test")
			if err != tt.wantErr {
				t.Fatalf("TransitionTo() error = %v, want %v", err, tt.wantErr)
			}
			want := tt.to
			if err != nil {
				want = tt.from
			}
			if l.State() != want {
				t.Errorf("state = %v, want %v", l.State(), want)
			}
		})
	}
}

func TestManager_EmitsEvents(t *testing.T) {
	emitter := &mockEmitter{}
	l := NewManager(nil, emitter)

	_ = l.TransitionTo(StateStarting, "negotiating")
	_ = l.TransitionTo(StateRunning, "roots started")

	events := emitter.Events()
	if len(events) != 2 {
		t.Fatalf("got %d events, want 2", len(events))
	}
	if events[1].previous != StateStarting || events[1].current != StateRunning {
		t.Errorf("event 1: got %v->%v, want Starting->Running", events[1].previous, events[1].current)
	}
	if events[0].reason != "negotiating" {
		t.Errorf("event 0 reason = %q", events[0].reason)
	}
}

func TestManager_Workers(t *testing.T) {
	l := NewManager(nil, nil)

	l.AddWorker()
	l.AddWorker()
	if got := l.ActiveWorkers(); got != 2 {
		t.Fatalf("ActiveWorkers() = %d, want 2", got)
	}

	release := make(chan struct{})
	for i := 0; i < 2; i++ {
		go func() {
			<-release
			l.WorkerDone()
		}()
	}

	if err := l.WaitWithTimeout(10 * time.Millisecond); err != ErrShutdownTimeout {
		t.Errorf("WaitWithTimeout() = %v, want ErrShutdownTimeout", err)
	}
	if l.WorkersDone() {
		t.Errorf("WorkersDone() = true while workers are blocked")
	}

	close(release)
	if err := l.WaitWithTimeout(time.Second); err != nil {
		t.Fatalf("WaitWithTimeout() = %v", err)
	}
	if !l.WorkersDone() {
		t.Errorf("WorkersDone() = false after all workers finished")
	}
}

func TestManager_Cancel(t *testing.T) {
	l := NewManager(nil, nil)
	l.Cancel() // no cancel set, must not panic

	called := false
	l.SetCancel(func() { called = true })
	l.Cancel()
	if !called {
		t.Error("Cancel() did not call the stored cancel func")
	}
}
