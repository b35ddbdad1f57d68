// Copyright 2025 Tom Barlow
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package execctx implements the journey execution context: the
// accumulating, typed key/value store a runner threads through a
// journey's steps, with shallow snapshot / deep-copy restore semantics
// for branch exploration.
package execctx

import (
	"encoding/json"
	"fmt"
	"maps"
)

// ErrKeyNotFound is returned by the non-"Or" typed accessors when the key
// is absent.
type ErrKeyNotFound struct {
	Key string
}

func (e *ErrKeyNotFound) Error() string {
	return fmt.Sprintf("execctx: key %q not found", e.Key)
}

// ErrTypeAssertion is returned by the typed accessors when the stored
// value is not of the requested type. Security: does not include the
// actual value, only its key and dynamic type, to avoid leaking
// potentially sensitive captured data into logs or error messages.
type ErrTypeAssertion struct {
	Key      string
	WantType string
	GotType  string
}

func (e *ErrTypeAssertion) Error() string {
	return fmt.Sprintf("execctx: key %q has type %s, want %s", e.Key, e.GotType, e.WantType)
}

// Context is the mutable key/value store threaded through a journey run.
// It is not safe for concurrent use by multiple goroutines; the runner
// exploring a branch's paths does so sequentially, never concurrently,
// per the state manager contract.
type Context struct {
	values map[string]any
}

// New returns an empty Context.
func New() *Context {
	return &Context{values: make(map[string]any)}
}

// Set stores a value under key, overwriting any existing value.
func (c *Context) Set(key string, value any) {
	c.values[key] = value
}

// Has reports whether key is present.
func (c *Context) Has(key string) bool {
	_, ok := c.values[key]
	return ok
}

// Delete removes key, if present.
func (c *Context) Delete(key string) {
	delete(c.values, key)
}

// Keys returns all stored keys, in no particular order.
func (c *Context) Keys() []string {
	keys := make([]string, 0, len(c.values))
	for k := range c.values {
		keys = append(keys, k)
	}
	return keys
}

// Get returns the raw value stored under key.
func (c *Context) Get(key string) (any, bool) {
	v, ok := c.values[key]
	return v, ok
}

// GetString returns the string stored under key.
func (c *Context) GetString(key string) (string, error) {
	v, ok := c.values[key]
	if !ok {
		return "", &ErrKeyNotFound{Key: key}
	}
	s, ok := v.(string)
	if !ok {
		return "", &ErrTypeAssertion{Key: key, WantType: "string", GotType: fmt.Sprintf("%T", v)}
	}
	return s, nil
}

// GetStringOr returns the string stored under key, or def if absent or
// of the wrong type.
func (c *Context) GetStringOr(key, def string) string {
	s, err := c.GetString(key)
	if err != nil {
		return def
	}
	return s
}

// GetInt64 returns the int64 stored under key. Values stored as int or
// float64 (e.g. decoded from JSON) are accepted and converted.
func (c *Context) GetInt64(key string) (int64, error) {
	v, ok := c.values[key]
	if !ok {
		return 0, &ErrKeyNotFound{Key: key}
	}
	switch n := v.(type) {
	case int64:
		return n, nil
	case int:
		return int64(n), nil
	case float64:
		return int64(n), nil
	default:
		return 0, &ErrTypeAssertion{Key: key, WantType: "int64", GotType: fmt.Sprintf("%T", v)}
	}
}

// GetInt64Or returns the int64 stored under key, or def if absent or of
// the wrong type.
func (c *Context) GetInt64Or(key string, def int64) int64 {
	n, err := c.GetInt64(key)
	if err != nil {
		return def
	}
	return n
}

// GetFloat64 returns the float64 stored under key.
func (c *Context) GetFloat64(key string) (float64, error) {
	v, ok := c.values[key]
	if !ok {
		return 0, &ErrKeyNotFound{Key: key}
	}
	switch n := v.(type) {
	case float64:
		return n, nil
	case int64:
		return float64(n), nil
	case int:
		return float64(n), nil
	default:
		return 0, &ErrTypeAssertion{Key: key, WantType: "float64", GotType: fmt.Sprintf("%T", v)}
	}
}

// GetFloat64Or returns the float64 stored under key, or def if absent or
// of the wrong type.
func (c *Context) GetFloat64Or(key string, def float64) float64 {
	f, err := c.GetFloat64(key)
	if err != nil {
		return def
	}
	return f
}

// GetBool returns the bool stored under key.
func (c *Context) GetBool(key string) (bool, error) {
	v, ok := c.values[key]
	if !ok {
		return false, &ErrKeyNotFound{Key: key}
	}
	b, ok := v.(bool)
	if !ok {
		return false, &ErrTypeAssertion{Key: key, WantType: "bool", GotType: fmt.Sprintf("%T", v)}
	}
	return b, nil
}

// GetBoolOr returns the bool stored under key, or def if absent or of
// the wrong type.
func (c *Context) GetBoolOr(key string, def bool) bool {
	b, err := c.GetBool(key)
	if err != nil {
		return def
	}
	return b
}

// GetSlice returns the []any stored under key.
func (c *Context) GetSlice(key string) ([]any, error) {
	v, ok := c.values[key]
	if !ok {
		return nil, &ErrKeyNotFound{Key: key}
	}
	s, ok := v.([]any)
	if !ok {
		return nil, &ErrTypeAssertion{Key: key, WantType: "[]any", GotType: fmt.Sprintf("%T", v)}
	}
	return s, nil
}

// GetMap returns the map[string]any stored under key.
func (c *Context) GetMap(key string) (map[string]any, error) {
	v, ok := c.values[key]
	if !ok {
		return nil, &ErrKeyNotFound{Key: key}
	}
	m, ok := v.(map[string]any)
	if !ok {
		return nil, &ErrTypeAssertion{Key: key, WantType: "map[string]any", GotType: fmt.Sprintf("%T", v)}
	}
	return m, nil
}

// Snapshot returns a shallow copy of the context: a new top-level map
// referencing the same values. Mutating a nested map/slice reached
// through a snapshot is visible in the original until Restore runs a
// deep copy back in.
func (c *Context) Snapshot() *Context {
	return &Context{values: maps.Clone(c.values)}
}

// Restore replaces this context's values with a deep copy of snap's,
// so that mutations a path made to nested structures after the
// snapshot was taken do not leak across a rollback.
func (c *Context) Restore(snap *Context) {
	c.values = deepCopyMap(snap.values)
}

// Copy returns an independent deep copy of the context.
func (c *Context) Copy() *Context {
	return &Context{values: deepCopyMap(c.values)}
}

// Merge copies other's values into c, overwriting on key collision.
func (c *Context) Merge(other *Context) {
	for k, v := range other.values {
		c.values[k] = v
	}
}

// ToMap returns a shallow copy of the context's values as a plain map,
// suitable for JSON serialization or logging.
func (c *Context) ToMap() map[string]any {
	return maps.Clone(c.values)
}

// FromMap builds a Context from a plain map, taking ownership of a deep
// copy of it.
func FromMap(values map[string]any) *Context {
	return &Context{values: deepCopyMap(values)}
}

func deepCopyMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = deepCopyValue(v)
	}
	return out
}

func deepCopyValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		return deepCopyMap(val)
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = deepCopyValue(item)
		}
		return out
	case json.RawMessage:
		out := make(json.RawMessage, len(val))
		copy(out, val)
		return out
	default:
		// Primitives (string, numeric, bool) and anything else we don't
		// recognize the internal structure of are copied by value or
		// left as a shared reference, matching the original's
		// copy.deepcopy semantics for opaque objects.
		return v
	}
}
