// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package worker

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"
)

// Predictor answers inference requests. The bridge moves opaque bytes;
// the predictor owns the encoding of its requests and responses.
type Predictor interface {
	// Predict computes the response for one request.
	Predict(ctx context.Context, request []byte) ([]byte, error)

	// Close releases the predictor's resources.
	Close() error
}

// Factory builds a predictor from the worker configuration. It runs
// before readiness is signalled, so expensive setup (loading a model)
// belongs here: the host's Open blocks until it returns.
type Factory func(ctx context.Context, config Config, logger *slog.Logger) (Predictor, error)

var registry = struct {
	sync.RWMutex
	factories map[string]Factory
}{factories: make(map[string]Factory)}

// Register makes a predictor available under name. It panics if name
// is empty or already registered.
func Register(name string, factory Factory) {
	if name == "" || factory == nil {
		panic("worker: Register requires a name and a factory")
	}
	registry.Lock()
	defer registry.Unlock()
	if _, exists := registry.factories[name]; exists {
		panic(fmt.Sprintf("worker: predictor %q registered twice", name))
	}
	registry.factories[name] = factory
}

// Lookup returns the factory registered under name.
func Lookup(name string) (Factory, error) {
	registry.RLock()
	defer registry.RUnlock()
	factory, ok := registry.factories[name]
	if !ok {
		return nil, fmt.Errorf("unknown predictor %q (registered: %v)", name, namesLocked())
	}
	return factory, nil
}

// Names returns the registered predictor names in sorted order.
func Names() []string {
	registry.RLock()
	defer registry.RUnlock()
	return namesLocked()
}

func namesLocked() []string {
	names := make([]string, 0, len(registry.factories))
	for name := range registry.factories {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}
