// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package presenter

import (
	"fmt"

	"github.com/gogpu/gpucontext"
)

// Factory creates a presenter for a target.
type Factory func(t Target) (Presenter, error)

// BackendHAL is the name of the hal.Surface presenter.
const BackendHAL = "hal"

// backends holds the registered presenter factories. Backends listed in
// the priority order are preferred; anything else is picked after them.
var backends = gpucontext.NewRegistry[Factory](
	gpucontext.WithPriority(BackendHAL),
)

func init() {
	Register(BackendHAL, func(t Target) (Presenter, error) {
		return NewHAL(t)
	})
}

// Register adds a presenter backend. Registering an existing name
// replaces it.
func Register(name string, f Factory) {
	backends.Register(name, func() Factory { return f })
}

// Unregister removes a presenter backend.
func Unregister(name string) {
	backends.Unregister(name)
}

// Backends returns the names of all registered backends.
func Backends() []string {
	return backends.Available()
}

// New creates a presenter with the named backend. An empty name selects
// the highest-priority registered backend.
func New(name string, t Target) (Presenter, error) {
	var f Factory
	if name == "" {
		name = backends.BestName()
		f = backends.Best()
	} else {
		f = backends.Get(name)
	}
	if f == nil {
		return nil, fmt.Errorf("%w: %q", ErrBackendNotFound, name)
	}
	p, err := f(t)
	if err != nil {
		return nil, fmt.Errorf("presenter: create %q backend: %w", name, err)
	}
	slogger().Info("presenter: created", "backend", name)
	return p, nil
}
