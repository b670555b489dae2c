package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/PhilHem/go-dashboard-shell/backend/models"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// DBBackend checks and stores accounts in the database with bcrypt hashes.
type DBBackend struct {
	db *gorm.DB
}

func NewDBBackend(db *gorm.DB) *DBBackend {
	return &DBBackend{db: db}
}

func accountUser(a models.Account) User {
	return User{
		ID:        a.ID,
		Name:      a.Name,
		Email:     a.Email,
		AvatarURL: a.AvatarURL,
		Role:      Role(a.Role),
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (b *DBBackend) CheckCredentials(ctx context.Context, email, password string) (User, error) {
	email = normalizeEmail(email)

	var account models.Account
	if err := b.db.WithContext(ctx).Where("email = ?", email).First(&account).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			slog.Warn("login failed: user not found", "source", "auth", "email", email)
			return User{}, ErrInvalidCredentials
		}
		return User{}, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(account.Password), []byte(password)); err != nil {
		slog.Warn("login failed: invalid password", "source", "auth", "email", email)
		return User{}, ErrInvalidCredentials
	}

	return accountUser(account), nil
}

func (b *DBBackend) CreateUser(ctx context.Context, d Draft) (User, error) {
	if d.Role == "" {
		d.Role = RoleUser
	}
	if !d.Role.Valid() {
		return User{}, fmt.Errorf("%w: %q", ErrInvalidRole, d.Role)
	}
	email := normalizeEmail(d.Email)

	var existing models.Account
	err := b.db.WithContext(ctx).Where("email = ?", email).First(&existing).Error
	if err == nil {
		slog.Warn("registration failed: email exists", "source", "auth", "email", email)
		return User{}, ErrEmailTaken
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return User{}, err
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(d.Password), bcrypt.DefaultCost)
	if err != nil {
		slog.Error("registration failed: hash error", "source", "auth", "error", err.Error())
		return User{}, fmt.Errorf("hash password: %w", err)
	}

	account := models.Account{
		ID:        uuid.NewString(),
		Name:      d.Name,
		Email:     email,
		Password:  string(hashed),
		AvatarURL: d.AvatarURL,
		Role:      string(d.Role),
	}
	if err := b.db.WithContext(ctx).Create(&account).Error; err != nil {
		slog.Error("registration failed: db error", "source", "auth", "error", err.Error())
		return User{}, fmt.Errorf("create account: %w", err)
	}

	slog.Info("user registered", "source", "auth", "user_id", account.ID, "email", email)
	return accountUser(account), nil
}

func (b *DBBackend) UpdateProfile(ctx context.Context, u User) (User, error) {
	if !u.Role.Valid() {
		return User{}, fmt.Errorf("%w: %q", ErrInvalidRole, u.Role)
	}

	var account models.Account
	if err := b.db.WithContext(ctx).First(&account, "id = ?", u.ID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return User{}, ErrUserNotFound
		}
		return User{}, err
	}

	email := normalizeEmail(u.Email)
	if email != account.Email {
		var count int64
		if err := b.db.WithContext(ctx).Model(&models.Account{}).
			Where("email = ? AND id <> ?", email, account.ID).Count(&count).Error; err != nil {
			return User{}, err
		}
		if count > 0 {
			return User{}, ErrEmailTaken
		}
	}

	account.Name = u.Name
	account.Email = email
	account.AvatarURL = u.AvatarURL
	account.Role = string(u.Role)
	if err := b.db.WithContext(ctx).Save(&account).Error; err != nil {
		return User{}, fmt.Errorf("save account: %w", err)
	}

	slog.Info("profile updated", "source", "auth", "user_id", account.ID)
	return accountUser(account), nil
}

// EnsureAccount registers d unless an account with its email exists.
func (b *DBBackend) EnsureAccount(ctx context.Context, d Draft) error {
	_, err := b.CreateUser(ctx, d)
	if errors.Is(err, ErrEmailTaken) {
		return nil
	}
	return err
}
