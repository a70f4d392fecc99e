// Package session provides the store of live language server sessions. The
// registry is its only writer; one session is held per language key.
package session

import (
	"context"
	"sync"

	"github.com/gofrs/uuid"
	tally "github.com/uber-go/tally/v4"

	sessionctl "github.com/lspmux/lspmux/src/lspmux/controller/session"
	"github.com/lspmux/lspmux/src/lspmux/entity"
	"github.com/lspmux/lspmux/src/lspmux/internal/errors"
)

var errNilSession = errors.New("can't save nil session")

// Repository is an entity-scoped repository.
type Repository interface {
	// Get returns the session stored under the language key.
	Get(ctx context.Context, language entity.Language) (sessionctl.Session, bool)
	// Set stores the session under its language key, replacing any previous one.
	Set(ctx context.Context, sess sessionctl.Session) error
	// DeleteMatching removes the language's entry only while it still holds
	// the session with the given UUID. A failure report for an old session
	// must not evict its replacement.
	DeleteMatching(ctx context.Context, language entity.Language, id uuid.UUID) bool
	// Delete removes whatever session is stored under the language key.
	Delete(ctx context.Context, language entity.Language) error
	// All returns every stored session.
	All(ctx context.Context) []sessionctl.Session
	// SessionCount returns the total count of stored sessions.
	SessionCount(ctx context.Context) (int, error)
}

type repository struct {
	mu       sync.Mutex
	memstore map[entity.Language]sessionctl.Session
	stats    tally.Scope
}

// New returns a repository to a key-value session store.
func New(stats tally.Scope) Repository {
	return &repository{
		memstore: make(map[entity.Language]sessionctl.Session),
		stats:    stats,
	}
}

func (r *repository) Get(ctx context.Context, language entity.Language) (sessionctl.Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.memstore[language]
	return s, ok
}

func (r *repository) Set(ctx context.Context, sess sessionctl.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if sess == nil {
		return errNilSession
	}
	r.memstore[sess.Language()] = sess
	r.stats.Gauge("active_sessions").Update(float64(len(r.memstore)))
	return nil
}

func (r *repository) DeleteMatching(ctx context.Context, language entity.Language, id uuid.UUID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.memstore[language]
	if !ok || s.UUID() != id {
		return false
	}
	delete(r.memstore, language)
	r.stats.Gauge("active_sessions").Update(float64(len(r.memstore)))
	return true
}

func (r *repository) Delete(ctx context.Context, language entity.Language) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.memstore, language)
	r.stats.Gauge("active_sessions").Update(float64(len(r.memstore)))
	return nil
}

func (r *repository) All(ctx context.Context) []sessionctl.Session {
	r.mu.Lock()
	defer r.mu.Unlock()

	all := make([]sessionctl.Session, 0, len(r.memstore))
	for _, s := range r.memstore {
		all = append(all, s)
	}
	return all
}

func (r *repository) SessionCount(ctx context.Context) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	return len(r.memstore), nil
}
