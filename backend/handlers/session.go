package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/PhilHem/go-dashboard-shell/backend/auth"
	"github.com/PhilHem/go-dashboard-shell/backend/config"
	"github.com/PhilHem/go-dashboard-shell/backend/notify"

	"github.com/google/uuid"
	"github.com/gorilla/sessions"
)

const minSecretLength = 32

var Store *sessions.CookieStore

// InitSession configures the cookie store with the secret and timeout from config.
func InitSession() error {
	secret := config.C.Session.Secret
	if secret == "" {
		return errors.New("session secret is not set (SESSION_SECRET)")
	}
	if len(secret) < minSecretLength {
		return errors.New("session secret must be at least 32 characters")
	}

	Store = sessions.NewCookieStore([]byte(secret))
	Store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   int(config.C.Session.Timeout.Seconds()),
		HttpOnly: true,
		Secure:   config.C.TLS.Enabled,
		SameSite: http.SameSiteLaxMode,
	}
	return nil
}

type entry struct {
	store *auth.Store
	seen  time.Time
}

// snapshotPruner is implemented by KV stores that can drop stale rows.
type snapshotPruner interface {
	PruneBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// Registry hands out one auth store per browser session. Stores persist
// their snapshot under "auth-storage:<sid>" and are dropped, snapshot
// included, once idle for longer than the session lifetime.
type Registry struct {
	mu      sync.Mutex
	entries map[string]*entry
	backend auth.Backend
	log     auth.Emitter
	kv      auth.KV
	idle    time.Duration
	now     func() time.Time
}

// NewRegistry builds a registry. A nil kv keeps snapshots in memory. An
// idle of zero disables eviction.
func NewRegistry(backend auth.Backend, log auth.Emitter, kv auth.KV, idle time.Duration) *Registry {
	return &Registry{
		entries: make(map[string]*entry),
		backend: backend,
		log:     log,
		kv:      kv,
		idle:    idle,
		now:     time.Now,
	}
}

func snapshotKey(sid string) string {
	return auth.SnapshotKey + ":" + sid
}

// Get returns the store for sid, restoring it from its snapshot on first use.
func (reg *Registry) Get(ctx context.Context, sid string) *auth.Store {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	if e, ok := reg.entries[sid]; ok {
		e.seen = reg.now()
		return e.store
	}

	var persist auth.Persister = &auth.MemoryPersister{}
	if reg.kv != nil {
		persist = auth.NewKVPersister(reg.kv, snapshotKey(sid))
	}
	s := auth.NewStore(ctx, auth.Options{Backend: reg.backend, Log: reg.log, Persist: persist})
	reg.entries[sid] = &entry{store: s, seen: reg.now()}
	return s
}

// Anonymous returns a detached anonymous store for requests that carry no
// session. It is not retained.
func (reg *Registry) Anonymous(ctx context.Context) *auth.Store {
	return auth.NewStore(ctx, auth.Options{Backend: reg.backend, Log: reg.log})
}

// Len reports how many sessions have a live store.
func (reg *Registry) Len() int {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	return len(reg.entries)
}

// Evict drops stores idle for longer than the session lifetime and deletes
// their snapshots. Snapshots left behind by earlier processes are pruned by
// age when the KV supports it.
func (reg *Registry) Evict(ctx context.Context) int {
	if reg.idle <= 0 {
		return 0
	}
	cutoff := reg.now().Add(-reg.idle)

	reg.mu.Lock()
	var stale []string
	for sid, e := range reg.entries {
		if e.seen.Before(cutoff) {
			stale = append(stale, sid)
			delete(reg.entries, sid)
		}
	}
	reg.mu.Unlock()

	if reg.kv == nil {
		return len(stale)
	}
	for _, sid := range stale {
		if err := reg.kv.Delete(ctx, snapshotKey(sid)); err != nil {
			slog.Warn("snapshot delete failed", "source", "session", "error", err.Error())
		}
	}
	if p, ok := reg.kv.(snapshotPruner); ok {
		if _, err := p.PruneBefore(ctx, cutoff); err != nil {
			slog.Warn("snapshot prune failed", "source", "session", "error", err.Error())
		}
	}
	return len(stale)
}

// Run evicts idle sessions periodically until ctx is cancelled.
func (reg *Registry) Run(ctx context.Context) error {
	if reg.idle <= 0 {
		<-ctx.Done()
		return nil
	}
	interval := reg.idle / 4
	if interval < time.Minute {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if n := reg.Evict(ctx); n > 0 {
				slog.Info("idle sessions evicted", "source", "session", "evicted", n, "live", reg.Len())
			}
		}
	}
}

var (
	Sessions      *Registry
	Notifications *notify.Store
)

// InitStores installs the stores the handlers operate on.
func InitStores(reg *Registry, n *notify.Store) {
	Sessions = reg
	Notifications = n
}

func session(r *http.Request) *sessions.Session {
	s, err := Store.Get(r, "session")
	if err != nil {
		// Undecodable cookie (e.g. rotated secret): start a fresh session.
		slog.Debug("session cookie rejected", "source", "session", "error", err.Error())
	}
	return s
}

// existingSID returns the browser's session id without issuing one.
func existingSID(r *http.Request) (string, bool) {
	sid, ok := session(r).Values["sid"].(string)
	return sid, ok && sid != ""
}

// issueSID returns the browser's session id, issuing one if needed.
func issueSID(w http.ResponseWriter, r *http.Request) string {
	if sid, ok := existingSID(r); ok {
		return sid
	}

	s := session(r)
	sid := uuid.NewString()
	s.Values["sid"] = sid
	if err := s.Save(r, w); err != nil {
		slog.Error("session save failed", "source", "session", "error", err.Error())
	}
	return sid
}

// CurrentAuth returns the auth store bound to the request's browser session,
// or a detached anonymous store when the request has none. It is a variable
// so tests can swap it.
var CurrentAuth = func(w http.ResponseWriter, r *http.Request) *auth.Store {
	if sid, ok := existingSID(r); ok {
		return Sessions.Get(r.Context(), sid)
	}
	return Sessions.Anonymous(r.Context())
}

// SessionAuth is CurrentAuth for sign-in: it binds a session to the browser
// first, so the result outlives the request.
func SessionAuth(w http.ResponseWriter, r *http.Request) *auth.Store {
	return Sessions.Get(r.Context(), issueSID(w, r))
}
