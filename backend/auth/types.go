// Package auth holds the per-session authentication state machine and the
// collaborators it drives: credential checks, account creation, profile
// updates and snapshot persistence.
package auth

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/PhilHem/go-dashboard-shell/backend/logger"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrEmailTaken         = errors.New("email already registered")
	ErrUserNotFound       = errors.New("user not found")
	ErrInvalidRole        = errors.New("invalid role")
)

type Status string

const (
	StatusAnonymous      Status = "anonymous"
	StatusAuthenticating Status = "authenticating"
	StatusAuthenticated  Status = "authenticated"
)

type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAdmin
}

// User is the signed-in identity held by a Store.
type User struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	AvatarURL string `json:"avatar,omitempty"`
	Role      Role   `json:"role"`
}

// Draft is a registration request.
type Draft struct {
	Name      string `json:"name"`
	Email     string `json:"email"`
	AvatarURL string `json:"avatar,omitempty"`
	Role      Role   `json:"role"`
	Password  string `json:"password"`
}

// Patch lists profile fields to overwrite; nil fields keep their value.
type Patch struct {
	Name      *string `json:"name,omitempty"`
	Email     *string `json:"email,omitempty"`
	AvatarURL *string `json:"avatar,omitempty"`
	Role      *Role   `json:"role,omitempty"`
}

// Apply returns u with the patch's fields written over it.
func (p Patch) Apply(u User) User {
	if p.Name != nil {
		u.Name = *p.Name
	}
	if p.Email != nil {
		u.Email = *p.Email
	}
	if p.AvatarURL != nil {
		u.AvatarURL = *p.AvatarURL
	}
	if p.Role != nil {
		u.Role = *p.Role
	}
	return u
}

// State is what a Store exposes to its subscribers.
type State struct {
	User    *User
	Status  Status
	Error   string
	Loading bool

	// epoch identifies the login/register/logout that produced this state.
	epoch uint64
}

func (s State) IsAuthenticated() bool {
	return s.Status == StatusAuthenticated
}

func (s State) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		User            *User  `json:"user"`
		Status          Status `json:"status"`
		IsAuthenticated bool   `json:"isAuthenticated"`
		Error           string `json:"error,omitempty"`
		Loading         bool   `json:"isLoading"`
	}{s.User, s.Status, s.IsAuthenticated(), s.Error, s.Loading})
}

// Snapshot is the persisted subset of State.
type Snapshot struct {
	User            *User `json:"user"`
	IsAuthenticated bool  `json:"isAuthenticated"`
}

type CredentialChecker interface {
	CheckCredentials(ctx context.Context, email, password string) (User, error)
}

type UserCreator interface {
	CreateUser(ctx context.Context, d Draft) (User, error)
}

type ProfileUpdater interface {
	UpdateProfile(ctx context.Context, u User) (User, error)
}

// Backend bundles every collaborator a Store calls.
type Backend interface {
	CredentialChecker
	UserCreator
	ProfileUpdater
}

// Emitter receives the store's observability events. Implementations must
// not block and must not fail.
type Emitter interface {
	Emit(level logger.Level, source, message string)
}

type Persister interface {
	Load(ctx context.Context) (Snapshot, bool, error)
	Save(ctx context.Context, snap Snapshot) error
}
