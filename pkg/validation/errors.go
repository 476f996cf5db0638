package validation

import (
	"slices"
	"sort"
	"strings"
)

// Errors maps a field key to its ordered messages.
type Errors map[string][]string

// Get returns a copy of the messages recorded for key.
func (e Errors) Get(key string) []string {
	return slices.Clone(e[key])
}

// First returns the first message for key, or "".
func (e Errors) First(key string) string {
	if msgs := e[key]; len(msgs) > 0 {
		return msgs[0]
	}
	return ""
}

// Join concatenates the messages for key. An empty result means the key
// passed.
func (e Errors) Join(key string) string {
	return strings.Join(e[key], "")
}

// Empty reports whether no key carries a message.
func (e Errors) Empty() bool {
	for _, msgs := range e {
		if len(msgs) > 0 {
			return false
		}
	}
	return true
}

// Clear resets the given buckets to empty slices.
func (e Errors) Clear(keys ...string) {
	for _, key := range keys {
		e[key] = []string{}
	}
}

// Merge copies every bucket of other into e, replacing existing buckets
// wholesale. Buckets missing from other are left untouched.
func (e Errors) Merge(other Errors) {
	for key, msgs := range other {
		e[key] = slices.Clone(msgs)
		if e[key] == nil {
			e[key] = []string{}
		}
	}
}

// Clone returns a deep copy.
func (e Errors) Clone() Errors {
	if e == nil {
		return nil
	}
	out := make(Errors, len(e))
	for key, msgs := range e {
		clone := slices.Clone(msgs)
		if clone == nil {
			clone = []string{}
		}
		out[key] = clone
	}
	return out
}

// Keys returns the keys with at least one message, sorted.
func (e Errors) Keys() []string {
	keys := make([]string, 0, len(e))
	for key, msgs := range e {
		if len(msgs) > 0 {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	return keys
}
