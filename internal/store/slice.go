package store

import "sync"

// SliceState is a point-in-time view of one resource. Value is nil until the
// first successful fetch; Error holds the message of the most recent failure
// and is cleared when a new fetch starts.
type SliceState[T any] struct {
	Value   *T
	Loading bool
	Error   string
}

// Slice guards the state of one resource. A failed fetch keeps the previous
// value.
type Slice[T any] struct {
	mu     sync.Mutex
	state  SliceState[T]
	latest uint64
	clone  func(T) T
}

func newSlice[T any](initial *T, clone func(T) T) *Slice[T] {
	if clone == nil {
		clone = func(v T) T { return v }
	}
	return &Slice[T]{state: SliceState[T]{Value: initial, Loading: true}, clone: clone}
}

// Snapshot returns a copy of the current state.
func (s *Slice[T]) Snapshot() SliceState[T] {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.state
	if out.Value != nil {
		v := s.clone(*out.Value)
		out.Value = &v
	}
	return out
}

// begin marks a fetch as in flight and returns its request number.
func (s *Slice[T]) begin() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.latest++
	s.state.Loading = true
	s.state.Error = ""
	return s.latest
}

// finish applies the outcome of request seq. With guard set, an outcome
// older than the latest issued request is dropped and false is returned.
func (s *Slice[T]) finish(seq uint64, guard bool, value *T, errMsg string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if guard && seq != s.latest {
		return false
	}
	if errMsg != "" {
		s.state.Error = errMsg
	} else {
		s.state.Value = value
	}
	s.state.Loading = false
	return true
}

// set replaces the value without touching the loading or error fields.
func (s *Slice[T]) set(value T) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Value = &value
}

// mutate edits the cached value in place. It is a no-op when nothing is cached.
func (s *Slice[T]) mutate(fn func(*T)) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.Value == nil {
		return false
	}
	fn(s.state.Value)
	return true
}
