// Package session tracks who is signed in. A Registry is created once by the
// application and fed by the auth provider's state-change events; handlers
// see the caller's Session through the request context.
package session

import (
	"context"
	"errors"
	"sync"
)

type Session struct {
	UID   string `json:"uid"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// State is an immutable snapshot. Loading means the auth state for the uid has
// not been resolved yet and must not be read as signed out.
type State struct {
	Loading bool     `json:"loading"`
	Session *Session `json:"session,omitempty"`
}

func (s State) SignedIn() bool {
	return !s.Loading && s.Session != nil
}

var signedOut = State{}

// Event is delivered by the auth provider. A nil Session is a sign-out.
type Event struct {
	UID     string
	Session *Session
}

// Source is the auth provider's notification hook.
type Source interface {
	OnAuthStateChange(fn func(Event)) (unsubscribe func())
}

var ErrAlreadyStarted = errors.New("session registry already started")

type Registry struct {
	mu     sync.RWMutex
	states map[string]State
	subs   map[int]func(uid string, st State)
	nextID int
	stop   func()
}

func NewRegistry() *Registry {
	return &Registry{
		states: make(map[string]State),
		subs:   make(map[int]func(string, State)),
	}
}

// Start subscribes to src. It may be called once.
func (r *Registry) Start(src Source) error {
	r.mu.Lock()
	if r.stop != nil {
		r.mu.Unlock()
		return ErrAlreadyStarted
	}
	r.stop = func() {}
	r.mu.Unlock()

	unsubscribe := src.OnAuthStateChange(r.apply)

	r.mu.Lock()
	r.stop = unsubscribe
	r.mu.Unlock()
	return nil
}

func (r *Registry) Stop() {
	r.mu.Lock()
	stop := r.stop
	r.mu.Unlock()
	if stop != nil {
		stop()
	}
}

func (r *Registry) Get(uid string) State {
	r.mu.RLock()
	defer r.mu.RUnlock()

	st, ok := r.states[uid]
	if !ok {
		return State{Loading: true}
	}
	return st
}

// UpdateDisplayName replaces the cached name without waiting for the auth
// provider's own profile update. Returns false when uid is not signed in.
func (r *Registry) UpdateDisplayName(uid, name string) bool {
	r.mu.Lock()
	st, ok := r.states[uid]
	if !ok || st.Session == nil {
		r.mu.Unlock()
		return false
	}
	next := *st.Session
	next.Name = name
	st = State{Session: &next}
	r.states[uid] = st
	subs := r.snapshotSubs()
	r.mu.Unlock()

	notify(subs, uid, st)
	return true
}

// Subscribe registers fn for every update. The returned func removes it.
func (r *Registry) Subscribe(fn func(uid string, st State)) func() {
	r.mu.Lock()
	id := r.nextID
	r.nextID++
	r.subs[id] = fn
	r.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			r.mu.Lock()
			delete(r.subs, id)
			r.mu.Unlock()
		})
	}
}

func (r *Registry) apply(ev Event) {
	if ev.UID == "" {
		return
	}

	st := signedOut
	if ev.Session != nil {
		s := *ev.Session
		st = State{Session: &s}
	}

	r.mu.Lock()
	r.states[ev.UID] = st
	subs := r.snapshotSubs()
	r.mu.Unlock()

	notify(subs, ev.UID, st)
}

func (r *Registry) snapshotSubs() []func(string, State) {
	out := make([]func(string, State), 0, len(r.subs))
	for _, fn := range r.subs {
		out = append(out, fn)
	}
	return out
}

func notify(subs []func(string, State), uid string, st State) {
	for _, fn := range subs {
		fn(uid, st)
	}
}

type ctxKey struct{}

func WithContext(ctx context.Context, s Session) context.Context {
	return context.WithValue(ctx, ctxKey{}, s)
}

func FromContext(ctx context.Context) (Session, bool) {
	s, ok := ctx.Value(ctxKey{}).(Session)
	return s, ok && s.UID != ""
}
