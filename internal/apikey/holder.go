// Package apikey resolves the provider API key from an explicit value or the environment.
package apikey

import (
	"os"
	"sync"
)

// maskPrefix is the number of key characters left visible by Mask.
const maskPrefix = 5

// LookupFunc reads an environment variable.
type LookupFunc func(key string) (string, bool)

// Holder keeps the explicit key input and the environment variable used as fallback.
// The effective key is resolved on every call to Key.
type Holder struct {
	mu     sync.RWMutex
	input  string
	envVar string
	lookup LookupFunc
}

// New returns a holder reading envVar through os.LookupEnv.
func New(input, envVar string) *Holder {
	return &Holder{
		input:  input,
		envVar: envVar,
		lookup: os.LookupEnv,
	}
}

// WithLookup replaces the environment lookup and returns the holder.
func (h *Holder) WithLookup(lookup LookupFunc) *Holder {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.lookup = lookup
	return h
}

// Input returns the explicit key, possibly empty.
func (h *Holder) Input() string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.input
}

// SetInput replaces the explicit key.
func (h *Holder) SetInput(input string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.input = input
}

// EnvVar returns the name of the fallback variable.
func (h *Holder) EnvVar() string {
	return h.envVar
}

// Key returns the explicit key when set, the environment value otherwise.
func (h *Holder) Key() string {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if h.input != "" {
		return h.input
	}
	if h.envVar == "" || h.lookup == nil {
		return ""
	}
	v, _ := h.lookup(h.envVar)
	return v
}

// String returns the masked effective key.
func (h *Holder) String() string {
	return Mask(h.Key())
}

// Mask keeps the first five characters of key followed by "[...]".
func Mask(key string) string {
	if key == "" {
		return ""
	}
	if len(key) <= maskPrefix {
		return key + "[...]"
	}
	return key[:maskPrefix] + "[...]"
}
