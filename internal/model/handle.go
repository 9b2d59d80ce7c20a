// Package model provides the classifier capabilities behind the decision
// layer: a lazily initialized handle with sticky failure, score classifiers
// (Hugging Face Inference API, local ONNX) and text generators (Anthropic,
// offline literal rules).
package model

import (
	"errors"
	"sync"
	"sync/atomic"
)

// ErrNotConfigured is returned by loaders whose backend has no usable
// configuration.
var ErrNotConfigured = errors.New("not configured")

// State is the initialization state of a Handle.
type State int32

const (
	Uninitialized State = iota
	Ready
	Failed
)

func (s State) String() string {
	switch s {
	case Ready:
		return "ready"
	case Failed:
		return "failed"
	default:
		return "uninitialized"
	}
}

// Handle loads a backend at most once. A failed load is sticky: later calls
// return the cached error without retrying an expensive load.
type Handle[T any] struct {
	name  string
	load  func() (T, error)
	once  sync.Once
	state atomic.Int32
	value T
	err   error
}

// NewHandle creates a Handle that runs load on first use.
func NewHandle[T any](name string, load func() (T, error)) *Handle[T] {
	return &Handle[T]{name: name, load: load}
}

// Get returns the loaded backend or the load error.
func (h *Handle[T]) Get() (T, error) {
	h.once.Do(h.init)
	return h.value, h.err
}

func (h *Handle[T]) init() {
	v, err := h.load()
	if err != nil {
		var zero T
		h.value, h.err = zero, err
		h.state.Store(int32(Failed))
		return
	}
	h.value = v
	h.state.Store(int32(Ready))
}

// State reports the current state without triggering a load.
func (h *Handle[T]) State() State { return State(h.state.Load()) }

// Status is State as a string.
func (h *Handle[T]) Status() string { return h.State().String() }

// Name returns the backend name given to NewHandle.
func (h *Handle[T]) Name() string { return h.name }
