// Package graphcycle detects cycles in reference graphs with a grey/black
// depth-first walk.
package graphcycle

import (
	"fmt"
	"slices"
)

type visitState uint8

const (
	stateVisiting visitState = iota + 1
	stateDone
)

// CycleError reports a cycle. Path starts and ends at Key.
type CycleError[K comparable] struct {
	Key  K
	Path []K
}

// Error returns the error string.
func (e CycleError[K]) Error() string {
	return fmt.Sprintf("cycle detected: %v", e.Path)
}

// Config configures a walk. Nodes for which Exists reports false are not
// entered; a nil Exists enters every node.
type Config[K comparable] struct {
	Exists func(K) bool
	Next   func(K) ([]K, error)
	Starts []K
}

// Detect walks directed edges from Starts in order and reports the first
// cycle or traversal error.
func Detect[K comparable](cfg Config[K]) error {
	if cfg.Next == nil {
		return fmt.Errorf("cycle detect: next function is nil")
	}
	states := make(map[K]visitState, len(cfg.Starts))
	var trail []K

	var visit func(key K) error
	visit = func(key K) error {
		switch states[key] {
		case stateVisiting:
			start := slices.Index(trail, key)
			path := append(slices.Clone(trail[start:]), key)
			return CycleError[K]{Key: key, Path: path}
		case stateDone:
			return nil
		}
		if cfg.Exists != nil && !cfg.Exists(key) {
			return nil
		}

		states[key] = stateVisiting
		trail = append(trail, key)
		neighbors, err := cfg.Next(key)
		if err != nil {
			return err
		}
		for _, next := range neighbors {
			if err := visit(next); err != nil {
				return err
			}
		}
		trail = trail[:len(trail)-1]
		states[key] = stateDone
		return nil
	}

	for _, start := range cfg.Starts {
		if err := visit(start); err != nil {
			return err
		}
	}
	return nil
}
