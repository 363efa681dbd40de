package app

import (
	"sync"

	"github.com/dkeye/callrelay/internal/core"
	"github.com/dkeye/callrelay/internal/domain"
	"github.com/rs/zerolog/log"
)

// Registry maps identities to the session currently registered for them.
// At most one entry per identity; the latest registration wins.
type Registry struct {
	mu    sync.RWMutex
	users map[domain.UserID]*core.Session
}

func NewRegistry() *Registry {
	return &Registry{
		users: make(map[domain.UserID]*core.Session),
	}
}

// Register points id at sess and returns the session it replaced, if any.
func (r *Registry) Register(id domain.UserID, sess *core.Session) *core.Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	prev := r.users[id]
	r.users[id] = sess
	if prev != nil && prev != sess {
		log.Info().Str("module", "app.registry").Str("user", string(id)).
			Str("sid", string(sess.ID())).Str("prev_sid", string(prev.ID())).Msg("registration superseded")
		return prev
	}
	log.Info().Str("module", "app.registry").Str("user", string(id)).Str("sid", string(sess.ID())).Msg("registered")
	return nil
}

func (r *Registry) Lookup(id domain.UserID) (*core.Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	sess, ok := r.users[id]
	return sess, ok
}

// Unregister drops the entry for sess's identity only while it still points
// at sess. A delayed disconnect of an older session leaves a newer
// registration alone.
func (r *Registry) Unregister(sess *core.Session) bool {
	id, ok := sess.Identity()
	if !ok {
		return false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	cur, ok := r.users[id]
	if !ok {
		return false
	}
	if cur != sess {
		log.Debug().Err(core.ErrStaleRegistration).Str("module", "app.registry").Str("user", string(id)).
			Str("sid", string(sess.ID())).Str("current_sid", string(cur.ID())).Msg("unregister skipped")
		return false
	}
	delete(r.users, id)
	log.Info().Str("module", "app.registry").Str("user", string(id)).Str("sid", string(sess.ID())).Msg("unregistered")
	return true
}

// Restore undoes Register(id, sess) for a session that closed while
// registering. The entry goes back to prev while prev is still open and is
// removed otherwise. A newer registration for id is left alone.
func (r *Registry) Restore(id domain.UserID, sess, prev *core.Session) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if cur, ok := r.users[id]; ok && cur != sess {
		return false
	}
	if prev != nil && !prev.Closed() {
		r.users[id] = prev
		log.Info().Str("module", "app.registry").Str("user", string(id)).
			Str("sid", string(prev.ID())).Str("closed_sid", string(sess.ID())).Msg("registration restored")
		return true
	}
	delete(r.users, id)
	return true
}

func (r *Registry) Online(id domain.UserID) bool {
	_, ok := r.Lookup(id)
	return ok
}

func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.users)
}
