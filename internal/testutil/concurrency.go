package testutil

import (
	"context"
	"sync"
	"time"

	"github.com/vk/dosgrid/internal/actor"
	"github.com/vk/dosgrid/internal/port"
	"github.com/vk/dosgrid/internal/registry"
)

// ExecutionRecord holds the start of the first and the end of the last
// activation of one actor.
type ExecutionRecord struct {
	Start time.Time
	End   time.Time
}

// Overlaps reports whether both records share some instant.
func (r ExecutionRecord) Overlaps(o ExecutionRecord) bool {
	return !r.Start.After(o.End) && !o.Start.After(r.End)
}

// MockSleeperModule registers a "sleeper" float sink that sleeps on every
// activation and records when each actor was busy.
type MockSleeperModule struct {
	ExecutionTimes map[string]*ExecutionRecord
	mu             sync.Mutex
	sleepDuration  time.Duration
	completionChan chan<- string
}

// NewMockSleeperModule creates a new sleeper module for testing. The name of
// each sleeper is sent on completionChan, if set, when it is closed.
func NewMockSleeperModule(completionChan chan<- string, sleep time.Duration) *MockSleeperModule {
	return &MockSleeperModule{
		ExecutionTimes: make(map[string]*ExecutionRecord),
		sleepDuration:  sleep,
		completionChan: completionChan,
	}
}

// Record returns a copy of the record of the named sleeper.
func (m *MockSleeperModule) Record(name string) (ExecutionRecord, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.ExecutionTimes[name]
	if !ok {
		return ExecutionRecord{}, false
	}
	return *r, true
}

type sleeper struct {
	name   string
	module *MockSleeperModule
}

func (s *sleeper) Inputs() []port.Spec  { return []port.Spec{port.Of[float64]("in")} }
func (s *sleeper) Outputs() []port.Spec { return nil }

func (s *sleeper) Compute(context.Context, actor.Frame) (actor.Frame, error) {
	start := time.Now()
	time.Sleep(s.module.sleepDuration)
	end := time.Now()

	m := s.module
	m.mu.Lock()
	defer m.mu.Unlock()
	if r, ok := m.ExecutionTimes[s.name]; ok {
		r.End = end
	} else {
		m.ExecutionTimes[s.name] = &ExecutionRecord{Start: start, End: end}
	}
	return nil, nil
}

func (s *sleeper) Close() error {
	if s.module.completionChan != nil {
		s.module.completionChan <- s.name
	}
	return nil
}

// Register registers the "sleeper" client type.
func (m *MockSleeperModule) Register(r *registry.Registry) {
	registry.Register(r, "sleeper", "sleeps on every value", struct{}{}, func(env registry.Env, _ struct{}) (actor.Client, error) {
		return &sleeper{name: env.Name, module: m}, nil
	})
}
