// Package state implements WorkflowState (C8): a typed, reducer-driven key
// space shared across a graph run, grounded on the teacher's
// workflow.ExecutionContext (mutex-guarded shared state map) but rebuilt
// around the five named reducers of §4.8.
package state

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"
)

// Reducer names how an incoming value combines with the current one.
type Reducer string

const (
	ReducerOverwrite Reducer = "overwrite"
	ReducerAppend    Reducer = "append"
	ReducerMax       Reducer = "max"
	ReducerMin       Reducer = "min"
	ReducerMerge     Reducer = "merge"
)

// State is the shared, typed key space one graph run mutates and reads.
// Safe for concurrent use: every method takes the internal mutex, so
// writes from peer nodes running concurrently (Set, Reduce) are applied
// one at a time, per §5's ordering guarantee on shared state mutation.
type State struct {
	mu     sync.Mutex
	values map[string]interface{}
}

// New creates an empty State.
func New() *State {
	return &State{values: make(map[string]interface{})}
}

// Set overwrites a key unconditionally (used for "input" seeding).
func (s *State) Set(key string, value interface{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = value
}

// Get returns a top-level key's value.
func (s *State) Get(key string) (interface{}, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.values[key]
	return v, ok
}

// GetPath walks a dotted path ("a.b.c"), starting at the top-level key and
// recursing through nested object keys. Returns ok=false if any segment is
// missing.
func (s *State) GetPath(path string) (interface{}, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return getPath(s.values, path)
}

func getPath(root map[string]interface{}, path string) (interface{}, bool) {
	segments := strings.Split(path, ".")
	var cur interface{} = root
	for _, seg := range segments {
		m, ok := asMap(cur)
		if !ok {
			return nil, false
		}
		v, present := m[seg]
		if !present {
			return nil, false
		}
		cur = v
	}
	return cur, true
}

func asMap(v interface{}) (map[string]interface{}, bool) {
	switch m := v.(type) {
	case map[string]interface{}:
		return m, true
	default:
		return nil, false
	}
}

// Snapshot returns a shallow copy of the top-level key space, suitable for
// passing to a pure condition evaluator.
func (s *State) Snapshot() map[string]interface{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]interface{}, len(s.values))
	for k, v := range s.values {
		out[k] = v
	}
	return out
}

// Reduce applies the named reducer to combine an incoming value with the
// key's current value, per the exact semantics of §4.8.
func (s *State) Reduce(key string, reducer Reducer, incoming interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	current := s.values[key]
	next, err := apply(reducer, current, incoming)
	if err != nil {
		return err
	}
	s.values[key] = next
	return nil
}

func apply(reducer Reducer, current, incoming interface{}) (interface{}, error) {
	switch reducer {
	case ReducerOverwrite, "":
		return incoming, nil
	case ReducerAppend:
		return reduceAppend(current, incoming)
	case ReducerMax:
		return reduceExtreme(current, incoming, true)
	case ReducerMin:
		return reduceExtreme(current, incoming, false)
	case ReducerMerge:
		return reduceMerge(current, incoming)
	default:
		return nil, fmt.Errorf("state: unknown reducer %q", reducer)
	}
}

func reduceAppend(current, incoming interface{}) (interface{}, error) {
	var base []interface{}
	if current != nil {
		arr, ok := current.([]interface{})
		if !ok {
			return nil, fmt.Errorf("state: append reducer requires current value to be an array")
		}
		base = arr
	}
	if arr, ok := incoming.([]interface{}); ok {
		return append(append([]interface{}{}, base...), arr...), nil
	}
	return append(append([]interface{}{}, base...), incoming), nil
}

func reduceExtreme(current, incoming interface{}, wantMax bool) (interface{}, error) {
	incomingNum, ok := toFloat(incoming)
	if !ok {
		return nil, fmt.Errorf("state: max/min reducer requires a numeric incoming value")
	}
	if current == nil {
		return incoming, nil
	}
	currentNum, ok := toFloat(current)
	if !ok {
		return nil, fmt.Errorf("state: max/min reducer requires a numeric current value")
	}
	if wantMax {
		if currentNum >= incomingNum {
			return current, nil
		}
		return incoming, nil
	}
	if currentNum <= incomingNum {
		return current, nil
	}
	return incoming, nil
}

func reduceMerge(current, incoming interface{}) (interface{}, error) {
	incomingMap, ok := asMap(incoming)
	if !ok {
		return nil, fmt.Errorf("state: merge reducer requires an object incoming value")
	}
	base := map[string]interface{}{}
	if current != nil {
		currentMap, ok := asMap(current)
		if !ok {
			return nil, fmt.Errorf("state: merge reducer requires current value to be an object")
		}
		for k, v := range currentMap {
			base[k] = v
		}
	}
	for k, v := range incomingMap {
		base[k] = v
	}
	return base, nil
}

func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}
