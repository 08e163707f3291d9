// Package jobs runs the text-to-speech job pipeline: a single-flight worker
// that drains queued requests and a shared state cell polled by the overlay
// client over HTTP.
package jobs

import "sync/atomic"

// Result is one finished synthesis, published for the overlay to fetch.
type Result struct {
	User  string
	Text  string
	Audio []byte
}

// State is the shared cell between the worker and the HTTP surface.
//
// busy is a single-flight latch: the worker acquires it with a
// compare-and-swap and the overlay client releases it when playback ends.
// The result is swapped as a whole record so readers never observe a
// partially written value.
type State struct {
	busy   atomic.Bool
	result atomic.Pointer[Result]
}

func NewState() *State { return &State{} }

// TryBegin attempts the false→true busy transition. Exactly one caller wins.
func (s *State) TryBegin() bool {
	return s.busy.CompareAndSwap(false, true)
}

// SetBusy stores the flag unconditionally. This is the overlay client's
// release path (and an operator override).
func (s *State) SetBusy(b bool) { s.busy.Store(b) }

func (s *State) Busy() bool { return s.busy.Load() }

// Publish replaces the current result. Busy is not touched.
func (s *State) Publish(r Result) { s.result.Store(&r) }

// Result returns the last published result, or nil if none (or reset).
func (s *State) Result() *Result { return s.result.Load() }

// ResetResult clears the result. Busy is not touched.
func (s *State) ResetResult() { s.result.Store(nil) }
