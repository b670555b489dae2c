package auth

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/PhilHem/go-dashboard-shell/backend/logger"
	"github.com/PhilHem/go-dashboard-shell/backend/state"
)

const source = "AuthStore"

// Store is one session's authentication state. Login, Register and Logout
// each start a new epoch; a collaborator answer that arrives after a newer
// epoch started is dropped, so the most recently started call decides the
// final state.
type Store struct {
	state   *state.Store[State]
	backend Backend
	log     Emitter
	persist Persister

	// saveMu orders snapshot writes; each write persists the state current
	// when it runs.
	saveMu sync.Mutex
}

type Options struct {
	Backend Backend
	Log     Emitter
	Persist Persister
}

// NewStore restores the persisted snapshot, if any, without checking it
// against the backend.
func NewStore(ctx context.Context, opts Options) *Store {
	if opts.Log == nil {
		opts.Log = logger.Nop{}
	}
	if opts.Persist == nil {
		opts.Persist = &MemoryPersister{}
	}

	s := &Store{
		backend: opts.Backend,
		log:     opts.Log,
		persist: opts.Persist,
	}
	s.state = state.New(s.restore(ctx))
	return s
}

func (s *Store) restore(ctx context.Context) State {
	anonymous := State{Status: StatusAnonymous}

	snap, ok, err := s.persist.Load(ctx)
	if err != nil {
		slog.Warn("auth snapshot load failed", "source", "auth", "error", err.Error())
		return anonymous
	}
	if !ok || !snap.IsAuthenticated {
		return anonymous
	}
	if snap.User == nil {
		slog.Warn("auth snapshot has no user, starting anonymous", "source", "auth")
		return anonymous
	}

	u := *snap.User
	return State{User: &u, Status: StatusAuthenticated}
}

func (s *Store) Get() State {
	return s.state.Get()
}

func (s *Store) Subscribe(fn func(State)) func() {
	return s.state.Subscribe(fn)
}

// begin opens a new epoch and applies update as its first state.
func (s *Store) begin(update func(State) State) uint64 {
	var epoch uint64
	s.state.Set(func(st State) State {
		next := update(st)
		next.epoch = st.epoch + 1
		epoch = next.epoch
		return next
	})
	return epoch
}

// settle applies update only if epoch is still current.
func (s *Store) settle(epoch uint64, update func(State) State) (State, bool) {
	return s.state.SetIf(func(st State) (State, bool) {
		if st.epoch != epoch {
			return st, false
		}
		next := update(st)
		next.epoch = epoch
		return next, true
	})
}

// finish is settle for sign-in results. It closes the epoch so a profile
// update captured under it can no longer land.
func (s *Store) finish(epoch uint64, update func(State) State) (State, bool) {
	return s.state.SetIf(func(st State) (State, bool) {
		if st.epoch != epoch {
			return st, false
		}
		next := update(st)
		next.epoch = epoch + 1
		return next, true
	})
}

func (s *Store) save(ctx context.Context) {
	s.saveMu.Lock()
	defer s.saveMu.Unlock()

	st := s.Get()
	snap := Snapshot{IsAuthenticated: st.IsAuthenticated()}
	if st.User != nil {
		u := *st.User
		snap.User = &u
	}
	if err := s.persist.Save(context.WithoutCancel(ctx), snap); err != nil {
		slog.Warn("auth snapshot save failed", "source", "auth", "error", err.Error())
	}
}

func (s *Store) signIn(ctx context.Context, action, email string, call func(context.Context) (User, error)) State {
	s.log.Emit(logger.LevelInfo, source, fmt.Sprintf("%s attempt for %s", action, email))
	epoch := s.begin(func(st State) State {
		st.Status = StatusAuthenticating
		st.Loading = true
		st.Error = ""
		return st
	})

	u, err := call(ctx)
	if err != nil {
		s.log.Emit(logger.LevelError, source, fmt.Sprintf("%s failed for %s: %s", action, email, err.Error()))
		st, ok := s.finish(epoch, func(State) State {
			return State{Status: StatusAnonymous, Error: err.Error()}
		})
		if !ok {
			s.log.Emit(logger.LevelDebug, source, fmt.Sprintf("Discarding stale %s result for %s", action, email))
			return st
		}
		s.save(ctx)
		return st
	}

	st, ok := s.finish(epoch, func(State) State {
		return State{User: &u, Status: StatusAuthenticated}
	})
	if !ok {
		s.log.Emit(logger.LevelDebug, source, fmt.Sprintf("Discarding stale %s result for %s", action, email))
		return st
	}
	s.log.Emit(logger.LevelInfo, source, fmt.Sprintf("%s successful for %s", action, email))
	s.save(ctx)
	return st
}

// Login checks the credentials and signs the user in. Failures end in the
// anonymous state with Error set; Login itself never fails.
func (s *Store) Login(ctx context.Context, email, password string) State {
	return s.signIn(ctx, "Login", email, func(ctx context.Context) (User, error) {
		return s.backend.CheckCredentials(ctx, email, password)
	})
}

// Register creates an account and signs it in, like Login.
func (s *Store) Register(ctx context.Context, d Draft) State {
	if d.Role == "" {
		d.Role = RoleUser
	}
	return s.signIn(ctx, "Registration", d.Email, func(ctx context.Context) (User, error) {
		return s.backend.CreateUser(ctx, d)
	})
}

func (s *Store) Logout(ctx context.Context) State {
	email := "unknown user"
	if u := s.Get().User; u != nil {
		email = u.Email
	}
	s.log.Emit(logger.LevelInfo, source, "Logout for "+email)

	s.begin(func(State) State {
		return State{Status: StatusAnonymous}
	})
	s.save(ctx)
	return s.Get()
}

// UpdateProfile merges p into the signed-in user once the backend accepts
// it. Unless the store is authenticated it does nothing. A backend failure
// sets Error and leaves the user as it was.
func (s *Store) UpdateProfile(ctx context.Context, p Patch) State {
	cur := s.Get()
	if cur.User == nil || cur.Status != StatusAuthenticated {
		return cur
	}
	email := cur.User.Email
	s.log.Emit(logger.LevelInfo, source, "Profile update for "+email)

	var epoch uint64
	var merged User
	started, ok := s.state.SetIf(func(st State) (State, bool) {
		if st.User == nil || st.Status != StatusAuthenticated {
			return st, false
		}
		epoch = st.epoch
		merged = p.Apply(*st.User)
		st.Loading = true
		st.Error = ""
		return st, true
	})
	if !ok {
		return started
	}

	u, err := s.backend.UpdateProfile(ctx, merged)
	if err != nil {
		s.log.Emit(logger.LevelError, source, fmt.Sprintf("Profile update failed for %s: %s", email, err.Error()))
		st, ok := s.settle(epoch, func(st State) State {
			st.Loading = false
			st.Error = err.Error()
			return st
		})
		if !ok {
			s.log.Emit(logger.LevelDebug, source, "Discarding stale profile update for "+email)
		}
		return st
	}

	st, ok := s.settle(epoch, func(st State) State {
		st.User = &u
		st.Loading = false
		return st
	})
	if !ok {
		s.log.Emit(logger.LevelDebug, source, "Discarding stale profile update for "+email)
		return st
	}
	s.log.Emit(logger.LevelInfo, source, "Profile update successful for "+email)
	s.save(ctx)
	return st
}

func (s *Store) ClearError() {
	s.state.Set(func(st State) State {
		st.Error = ""
		return st
	})
}
