package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

const demoAvatar = "https://images.unsplash.com/photo-1472099645785-5658abf4ff4e?w=100&h=100&fit=crop&crop=face"

// MockBackend accepts a single email/password pair and answers after a
// fixed delay.
type MockBackend struct {
	Email         string
	Password      string
	LoginDelay    time.Duration
	RegisterDelay time.Duration
	UpdateDelay   time.Duration
	NewID         func() string
}

func NewMockBackend(email, password string) *MockBackend {
	return &MockBackend{
		Email:         email,
		Password:      password,
		LoginDelay:    time.Second,
		RegisterDelay: time.Second,
		UpdateDelay:   500 * time.Millisecond,
		NewID:         uuid.NewString,
	}
}

func wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func (m *MockBackend) CheckCredentials(ctx context.Context, email, password string) (User, error) {
	if err := wait(ctx, m.LoginDelay); err != nil {
		return User{}, err
	}
	if email != m.Email || password != m.Password {
		return User{}, ErrInvalidCredentials
	}
	return User{
		ID:        "1",
		Name:      "Demo User",
		Email:     m.Email,
		AvatarURL: demoAvatar,
		Role:      RoleUser,
	}, nil
}

func (m *MockBackend) CreateUser(ctx context.Context, d Draft) (User, error) {
	if err := wait(ctx, m.RegisterDelay); err != nil {
		return User{}, err
	}
	if d.Role == "" {
		d.Role = RoleUser
	}
	if !d.Role.Valid() {
		return User{}, fmt.Errorf("%w: %q", ErrInvalidRole, d.Role)
	}
	newID := m.NewID
	if newID == nil {
		newID = uuid.NewString
	}
	return User{
		ID:    newID(),
		Name:  d.Name,
		Email: d.Email,
		Role:  d.Role,
	}, nil
}

func (m *MockBackend) UpdateProfile(ctx context.Context, u User) (User, error) {
	if err := wait(ctx, m.UpdateDelay); err != nil {
		return User{}, err
	}
	return u, nil
}
