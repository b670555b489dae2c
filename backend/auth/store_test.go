package auth

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/PhilHem/go-dashboard-shell/backend/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type emitted struct {
	level   logger.Level
	message string
}

type recorder struct {
	mu     sync.Mutex
	events []emitted
}

func (r *recorder) Emit(level logger.Level, source, message string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, emitted{level, message})
}

func (r *recorder) all() []emitted {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]emitted(nil), r.events...)
}

func instantMock() *MockBackend {
	m := NewMockBackend("demo@example.com", "password123")
	m.LoginDelay = 0
	m.RegisterDelay = 0
	m.UpdateDelay = 0
	return m
}

func newTestStore(t *testing.T, backend Backend) (*Store, *recorder, *MemoryPersister) {
	t.Helper()
	rec := &recorder{}
	p := &MemoryPersister{}
	s := NewStore(context.Background(), Options{Backend: backend, Log: rec, Persist: p})
	return s, rec, p
}

func strPtr(s string) *string { return &s }

func TestStore_StartsAnonymous(t *testing.T) {
	s, _, _ := newTestStore(t, instantMock())

	st := s.Get()
	assert.Equal(t, StatusAnonymous, st.Status)
	assert.False(t, st.IsAuthenticated())
	assert.Nil(t, st.User)
	assert.Empty(t, st.Error)
}

func TestStore_LoginWithDemoCredentials(t *testing.T) {
	s, rec, p := newTestStore(t, instantMock())

	st := s.Login(context.Background(), "demo@example.com", "password123")

	assert.True(t, st.IsAuthenticated())
	require.NotNil(t, st.User)
	assert.Equal(t, "1", st.User.ID)
	assert.Equal(t, "Demo User", st.User.Name)
	assert.Equal(t, "demo@example.com", st.User.Email)
	assert.Equal(t, RoleUser, st.User.Role)
	assert.Empty(t, st.Error)
	assert.False(t, st.Loading)

	assert.Equal(t, []emitted{
		{logger.LevelInfo, "Login attempt for demo@example.com"},
		{logger.LevelInfo, "Login successful for demo@example.com"},
	}, rec.all())

	snap, ok, err := p.Load(context.Background())
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, snap.IsAuthenticated)
	assert.Equal(t, st.User, snap.User)
}

func TestStore_LoginWithWrongCredentials(t *testing.T) {
	pairs := [][2]string{
		{"demo@example.com", "wrong"},
		{"other@example.com", "password123"},
		{"", ""},
	}

	for _, pair := range pairs {
		s, rec, _ := newTestStore(t, instantMock())

		st := s.Login(context.Background(), pair[0], pair[1])

		assert.False(t, st.IsAuthenticated(), pair)
		assert.Equal(t, StatusAnonymous, st.Status)
		assert.Nil(t, st.User)
		assert.Equal(t, "invalid credentials", st.Error)

		events := rec.all()
		require.Len(t, events, 2)
		assert.Equal(t, logger.LevelInfo, events[0].level)
		assert.Equal(t, logger.LevelError, events[1].level)
		assert.Contains(t, events[1].message, "Login failed for "+pair[0])
	}
}

func TestStore_LoginPassesThroughAuthenticating(t *testing.T) {
	s, rec, _ := newTestStore(t, instantMock())

	var statuses []Status
	var logsAtTransition []int
	s.Subscribe(func(st State) {
		statuses = append(statuses, st.Status)
		logsAtTransition = append(logsAtTransition, len(rec.all()))
	})

	s.Login(context.Background(), "demo@example.com", "nope")

	assert.Equal(t, []Status{StatusAuthenticating, StatusAnonymous}, statuses)
	// The attempt is logged before authenticating, the error before settling.
	assert.Equal(t, []int{1, 2}, logsAtTransition)
}

func TestStore_LoginClearsPreviousError(t *testing.T) {
	s, _, _ := newTestStore(t, instantMock())

	s.Login(context.Background(), "demo@example.com", "bad")
	require.NotEmpty(t, s.Get().Error)

	st := s.Login(context.Background(), "demo@example.com", "password123")
	assert.Empty(t, st.Error)
	assert.True(t, st.IsAuthenticated())
}

func TestStore_Logout(t *testing.T) {
	s, rec, p := newTestStore(t, instantMock())
	s.Login(context.Background(), "demo@example.com", "password123")

	st := s.Logout(context.Background())

	assert.Equal(t, StatusAnonymous, st.Status)
	assert.Nil(t, st.User)
	assert.Empty(t, st.Error)
	assert.Contains(t, rec.all(), emitted{logger.LevelInfo, "Logout for demo@example.com"})

	snap, _, _ := p.Load(context.Background())
	assert.False(t, snap.IsAuthenticated)
	assert.Nil(t, snap.User)
}

func TestStore_LogoutClearsErrorAndHandlesUnknownUser(t *testing.T) {
	s, rec, _ := newTestStore(t, instantMock())
	s.Login(context.Background(), "x@example.com", "bad")
	require.NotEmpty(t, s.Get().Error)

	st := s.Logout(context.Background())

	assert.Empty(t, st.Error)
	assert.False(t, st.IsAuthenticated())
	assert.Contains(t, rec.all(), emitted{logger.LevelInfo, "Logout for unknown user"})
}

func TestStore_Register(t *testing.T) {
	m := instantMock()
	m.NewID = func() string { return "generated-id" }
	s, rec, _ := newTestStore(t, m)

	st := s.Register(context.Background(), Draft{Name: "Ada", Email: "ada@example.com", Password: "secret123"})

	assert.True(t, st.IsAuthenticated())
	require.NotNil(t, st.User)
	assert.Equal(t, User{ID: "generated-id", Name: "Ada", Email: "ada@example.com", Role: RoleUser}, *st.User)
	assert.Equal(t, []emitted{
		{logger.LevelInfo, "Registration attempt for ada@example.com"},
		{logger.LevelInfo, "Registration successful for ada@example.com"},
	}, rec.all())
}

func TestStore_RegisterFailure(t *testing.T) {
	s, _, _ := newTestStore(t, instantMock())

	st := s.Register(context.Background(), Draft{Name: "Eve", Email: "eve@example.com", Role: "root"})

	assert.False(t, st.IsAuthenticated())
	assert.Contains(t, st.Error, "invalid role")
}

func TestStore_UpdateProfileChangesOnlyGivenFields(t *testing.T) {
	s, rec, p := newTestStore(t, instantMock())
	before := s.Login(context.Background(), "demo@example.com", "password123").User

	st := s.UpdateProfile(context.Background(), Patch{Name: strPtr("X")})

	require.NotNil(t, st.User)
	assert.Equal(t, "X", st.User.Name)
	assert.Equal(t, before.Email, st.User.Email)
	assert.Equal(t, before.Role, st.User.Role)
	assert.Equal(t, before.ID, st.User.ID)
	assert.Equal(t, before.AvatarURL, st.User.AvatarURL)
	assert.True(t, st.IsAuthenticated())
	assert.False(t, st.Loading)
	assert.Contains(t, rec.all(), emitted{logger.LevelInfo, "Profile update successful for demo@example.com"})

	snap, _, _ := p.Load(context.Background())
	assert.Equal(t, "X", snap.User.Name)
}

func TestStore_UpdateProfileWithoutSessionIsNoop(t *testing.T) {
	s, rec, _ := newTestStore(t, instantMock())

	calls := 0
	s.Subscribe(func(State) { calls++ })

	st := s.UpdateProfile(context.Background(), Patch{Name: strPtr("X")})

	assert.Nil(t, st.User)
	assert.Zero(t, calls)
	assert.Empty(t, rec.all())
}

type failingUpdater struct {
	*MockBackend
}

func (failingUpdater) UpdateProfile(context.Context, User) (User, error) {
	return User{}, errors.New("profile service unavailable")
}

func TestStore_UpdateProfileFailureKeepsUser(t *testing.T) {
	s, rec, _ := newTestStore(t, failingUpdater{instantMock()})
	before := *s.Login(context.Background(), "demo@example.com", "password123").User

	st := s.UpdateProfile(context.Background(), Patch{Name: strPtr("X")})

	require.NotNil(t, st.User)
	assert.Equal(t, before, *st.User)
	assert.Equal(t, "profile service unavailable", st.Error)
	assert.True(t, st.IsAuthenticated())
	assert.False(t, st.Loading)
	assert.Contains(t, rec.all(), emitted{logger.LevelError, "Profile update failed for demo@example.com: profile service unavailable"})
}

func TestStore_ClearError(t *testing.T) {
	s, _, _ := newTestStore(t, instantMock())
	s.Login(context.Background(), "demo@example.com", "bad")

	s.ClearError()

	assert.Empty(t, s.Get().Error)
	assert.Equal(t, StatusAnonymous, s.Get().Status)
}

func TestStore_RestoresAnonymousSnapshot(t *testing.T) {
	p := &MemoryPersister{}
	require.NoError(t, p.Save(context.Background(), Snapshot{User: nil, IsAuthenticated: false}))

	s := NewStore(context.Background(), Options{Backend: instantMock(), Persist: p})

	assert.Equal(t, StatusAnonymous, s.Get().Status)
	assert.Nil(t, s.Get().User)
}

type countingChecker struct {
	*MockBackend
	calls int
}

func (c *countingChecker) CheckCredentials(ctx context.Context, email, password string) (User, error) {
	c.calls++
	return c.MockBackend.CheckCredentials(ctx, email, password)
}

func TestStore_RestoresAuthenticatedSnapshotWithoutCheck(t *testing.T) {
	p := &MemoryPersister{}
	u := User{ID: "42", Name: "Kept", Email: "kept@example.com", Role: RoleAdmin}
	require.NoError(t, p.Save(context.Background(), Snapshot{User: &u, IsAuthenticated: true}))

	checker := &countingChecker{MockBackend: instantMock()}
	s := NewStore(context.Background(), Options{Backend: checker, Persist: p})

	st := s.Get()
	assert.Equal(t, StatusAuthenticated, st.Status)
	require.NotNil(t, st.User)
	assert.Equal(t, u, *st.User)
	assert.Zero(t, checker.calls)
}

func TestStore_RestoreIgnoresInconsistentSnapshot(t *testing.T) {
	p := &MemoryPersister{}
	require.NoError(t, p.Save(context.Background(), Snapshot{IsAuthenticated: true}))

	s := NewStore(context.Background(), Options{Backend: instantMock(), Persist: p})

	assert.Equal(t, StatusAnonymous, s.Get().Status)
}

// gatedBackend blocks CheckCredentials until released.
type gatedBackend struct {
	*MockBackend
	started chan struct{}
	release chan struct{}
}

func (g *gatedBackend) CheckCredentials(ctx context.Context, email, password string) (User, error) {
	g.started <- struct{}{}
	<-g.release
	return g.MockBackend.CheckCredentials(ctx, email, password)
}

func TestStore_LogoutDiscardsInFlightLogin(t *testing.T) {
	g := &gatedBackend{MockBackend: instantMock(), started: make(chan struct{}), release: make(chan struct{})}
	s, rec, p := newTestStore(t, g)

	done := make(chan State)
	go func() {
		done <- s.Login(context.Background(), "demo@example.com", "password123")
	}()
	<-g.started

	s.Logout(context.Background())
	close(g.release)
	<-done

	st := s.Get()
	assert.Equal(t, StatusAnonymous, st.Status)
	assert.Nil(t, st.User)
	assert.Contains(t, rec.all(), emitted{logger.LevelDebug, "Discarding stale Login result for demo@example.com"})

	snap, _, _ := p.Load(context.Background())
	assert.False(t, snap.IsAuthenticated)
}

func TestStore_NewerLoginWins(t *testing.T) {
	g := &gatedBackend{MockBackend: instantMock(), started: make(chan struct{}), release: make(chan struct{})}
	s, _, _ := newTestStore(t, g)

	first := make(chan State)
	go func() {
		first <- s.Login(context.Background(), "demo@example.com", "password123")
	}()
	<-g.started

	second := make(chan State)
	go func() {
		second <- s.Login(context.Background(), "demo@example.com", "wrong")
	}()
	<-g.started

	g.release <- struct{}{} // one of them finishes
	g.release <- struct{}{} // and the other
	<-first
	<-second

	st := s.Get()
	assert.Equal(t, StatusAnonymous, st.Status)
	assert.Equal(t, "invalid credentials", st.Error)
}

func TestStore_LoginHonorsCancellation(t *testing.T) {
	m := instantMock()
	m.LoginDelay = time.Hour
	s, _, _ := newTestStore(t, m)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	st := s.Login(ctx, "demo@example.com", "password123")

	assert.Equal(t, StatusAnonymous, st.Status)
	assert.Equal(t, context.Canceled.Error(), st.Error)
}

func TestState_JSON(t *testing.T) {
	st := State{User: &User{ID: "1", Name: "Demo", Email: "d@example.com", Role: RoleUser}, Status: StatusAuthenticated}

	b, err := st.MarshalJSON()
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"user": {"id":"1","name":"Demo","email":"d@example.com","role":"user"},
		"status": "authenticated",
		"isAuthenticated": true,
		"isLoading": false
	}`, string(b))
}

func restoredAs(u User) *MemoryPersister {
	p := &MemoryPersister{}
	p.Save(context.Background(), Snapshot{User: &u, IsAuthenticated: true})
	return p
}

func TestStore_UpdateProfileIgnoredWhileAuthenticating(t *testing.T) {
	m := instantMock()
	m.Email = "b@x.io"
	g := &gatedBackend{MockBackend: m, started: make(chan struct{}), release: make(chan struct{})}
	p := restoredAs(User{ID: "A", Name: "Alice", Email: "a@x.io", Role: RoleUser})
	s := NewStore(context.Background(), Options{Backend: g, Persist: p})

	done := make(chan State)
	go func() {
		done <- s.Login(context.Background(), "b@x.io", "password123")
	}()
	<-g.started

	st := s.UpdateProfile(context.Background(), Patch{Name: strPtr("Alice2")})
	assert.Equal(t, StatusAuthenticating, st.Status)

	close(g.release)
	<-done

	final := s.Get()
	require.NotNil(t, final.User)
	assert.Equal(t, "1", final.User.ID)
	assert.Equal(t, "Demo User", final.User.Name)

	snap, _, _ := p.Load(context.Background())
	require.NotNil(t, snap.User)
	assert.Equal(t, "b@x.io", snap.User.Email)
}

// gatedUpdater blocks UpdateProfile until released.
type gatedUpdater struct {
	*MockBackend
	started chan struct{}
	release chan struct{}
}

func (g *gatedUpdater) UpdateProfile(ctx context.Context, u User) (User, error) {
	g.started <- struct{}{}
	<-g.release
	return g.MockBackend.UpdateProfile(ctx, u)
}

func TestStore_LoginDropsInFlightProfileUpdate(t *testing.T) {
	m := instantMock()
	m.Email = "b@x.io"
	g := &gatedUpdater{MockBackend: m, started: make(chan struct{}), release: make(chan struct{})}
	p := restoredAs(User{ID: "A", Name: "Alice", Email: "a@x.io", Role: RoleUser})
	s := NewStore(context.Background(), Options{Backend: g, Persist: p})

	done := make(chan State)
	go func() {
		done <- s.UpdateProfile(context.Background(), Patch{Name: strPtr("Alice2")})
	}()
	<-g.started

	s.Login(context.Background(), "b@x.io", "password123")
	close(g.release)
	<-done

	final := s.Get()
	require.NotNil(t, final.User)
	assert.Equal(t, "1", final.User.ID)
	assert.Equal(t, "Demo User", final.User.Name)
	assert.False(t, final.Loading)

	snap, _, _ := p.Load(context.Background())
	require.NotNil(t, snap.User)
	assert.Equal(t, "1", snap.User.ID)
}

// blockingPersister holds its first Save until released.
type blockingPersister struct {
	MemoryPersister
	once    sync.Once
	started chan struct{}
	release chan struct{}
}

func (p *blockingPersister) Save(ctx context.Context, snap Snapshot) error {
	p.once.Do(func() {
		close(p.started)
		<-p.release
	})
	return p.MemoryPersister.Save(ctx, snap)
}

func TestStore_SnapshotWritesFollowStateOrder(t *testing.T) {
	p := &blockingPersister{started: make(chan struct{}), release: make(chan struct{})}
	s := NewStore(context.Background(), Options{Backend: instantMock(), Persist: p})

	loginDone := make(chan State)
	go func() {
		loginDone <- s.Login(context.Background(), "demo@example.com", "password123")
	}()
	<-p.started

	logoutDone := make(chan State)
	go func() {
		logoutDone <- s.Logout(context.Background())
	}()
	require.Eventually(t, func() bool {
		return s.Get().Status == StatusAnonymous
	}, time.Second, time.Millisecond)

	close(p.release)
	<-loginDone
	<-logoutDone

	assert.Equal(t, StatusAnonymous, s.Get().Status)

	restarted := NewStore(context.Background(), Options{Backend: instantMock(), Persist: p})
	assert.Equal(t, StatusAnonymous, restarted.Get().Status)
	assert.Nil(t, restarted.Get().User)
}
