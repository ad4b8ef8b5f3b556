// Package session defines the per-user session capability carried by a
// connection and the process-wide registry the transports use to find it.
package session

import (
	"reflect"

	"github.com/BolvicBolvicovic/feather/pkg/immut"
)

// Session is a persistent key/value store. Every update returns a new
// Session and leaves the receiver unchanged.
type Session interface {
	Get(key string) (any, bool)
	Put(key string, value any) Session
	Delete(key string) Session
	Reset() Session
	Clone() Session
	Range(fn func(key string, value any) bool)
	Len() int
}

// Opt tells the transport what to do with the working session once the
// pipeline is done.
type Opt int

const (
	// Write stores the working session back.
	Write Opt = iota
	// Renew stores it under a fresh id.
	Renew
	// Drop discards it and expires the id cookie.
	Drop
	// Ignore discards every change made during the request.
	Ignore
)

func (o Opt) String() string {
	switch o {
	case Write:
		return "write"
	case Renew:
		return "renew"
	case Drop:
		return "drop"
	case Ignore:
		return "ignore"
	}
	return "unknown"
}

// CookieSession is the default Session backed by a persistent map.
type CookieSession struct {
	data immut.Map[string, any]
}

// NewCookieSession returns a session seeded with entries.
func NewCookieSession(entries map[string]any) CookieSession {
	return CookieSession{data: immut.NewMap(entries)}
}

func (s CookieSession) Get(key string) (any, bool) { return s.data.Get(key) }

func (s CookieSession) Put(key string, value any) Session {
	return CookieSession{data: s.data.Set(key, value)}
}

func (s CookieSession) Delete(key string) Session {
	return CookieSession{data: s.data.Delete(key)}
}

func (s CookieSession) Reset() Session { return CookieSession{} }

// Clone shares structure with s; no copy is needed since s is persistent.
func (s CookieSession) Clone() Session { return s }

func (s CookieSession) Range(fn func(string, any) bool) { s.data.Range(fn) }

func (s CookieSession) Len() int { return s.data.Len() }

// Snapshot copies the entries of s into a plain map.
func Snapshot(s Session) map[string]any {
	out := make(map[string]any, s.Len())
	s.Range(func(k string, v any) bool {
		out[k] = v
		return true
	})
	return out
}

// Equal reports whether a and b hold the same keys with deeply equal values.
func Equal(a, b Session) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if a.Len() != b.Len() {
		return false
	}
	eq := true
	a.Range(func(k string, v any) bool {
		w, ok := b.Get(k)
		eq = ok && reflect.DeepEqual(v, w)
		return eq
	})
	return eq
}
