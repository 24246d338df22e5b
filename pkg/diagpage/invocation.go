package diagpage

import (
	"maps"
	"slices"
	"strings"
)

// Entry is one environment variable.
type Entry struct {
	Key   string
	Value string
}

// Invocation is the per-request snapshot the page is rendered from.
// Entries are rendered in slice order.
type Invocation struct {
	Env []Entry
}

// FromEnviron builds an Invocation from KEY=VALUE strings as returned by
// os.Environ. Strings are split at the first '='; a string without one
// becomes a key with an empty value.
func FromEnviron(environ []string) Invocation {
	env := make([]Entry, 0, len(environ))
	for _, kv := range environ {
		k, v, _ := strings.Cut(kv, "=")
		env = append(env, Entry{Key: k, Value: v})
	}
	return Invocation{Env: env}
}

// FromMap builds an Invocation with keys in sorted order.
func FromMap(m map[string]string) Invocation {
	keys := slices.Sorted(maps.Keys(m))
	env := make([]Entry, 0, len(keys))
	for _, k := range keys {
		env = append(env, Entry{Key: k, Value: m[k]})
	}
	return Invocation{Env: env}
}

// Lookup returns the value of the first entry named key.
func (inv Invocation) Lookup(key string) (string, bool) {
	for _, e := range inv.Env {
		if e.Key == key {
			return e.Value, true
		}
	}
	return "", false
}

// Get is Lookup without the presence flag.
func (inv Invocation) Get(key string) string {
	v, _ := inv.Lookup(key)
	return v
}

// With returns a copy where the first entry named key holds value, or with
// the entry appended if key is absent. inv itself is not modified.
func (inv Invocation) With(key, value string) Invocation {
	env := slices.Clone(inv.Env)
	for i := range env {
		if env[i].Key == key {
			env[i].Value = value
			return Invocation{Env: env}
		}
	}
	return Invocation{Env: append(env, Entry{Key: key, Value: value})}
}

// Len returns the number of entries.
func (inv Invocation) Len() int {
	return len(inv.Env)
}

// Environ returns the entries as KEY=VALUE strings.
func (inv Invocation) Environ() []string {
	out := make([]string, len(inv.Env))
	for i, e := range inv.Env {
		out[i] = e.Key + "=" + e.Value
	}
	return out
}
