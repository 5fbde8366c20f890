package users

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"gorm.io/gorm"

	"github.com/tasteboard/backend/internal/auth"
	"github.com/tasteboard/backend/internal/cache"
)

func newTestAccountService(t *testing.T) *Service {
	t.Helper()

	dsn := fmt.Sprintf("file:users_test_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&User{}); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}

	issuer := auth.NewTokenIssuer(auth.TokenIssuerConfig{
		SigningSecret:   []byte("test-secret"),
		Issuer:          "tasteboard-auth",
		Audience:        "tasteboard-api",
		AccessTokenTTL:  30 * time.Minute,
		RefreshTokenTTL: 24 * time.Hour,
	})

	service, err := NewService(ServiceConfig{
		Database: db,
		Tokens:   issuer,
		Sessions: cache.NewMemoryStore(),
	})
	if err != nil {
		t.Fatalf("failed to construct account service: %v", err)
	}
	return service
}

func TestSignupAndLogin(t *testing.T) {
	service := newTestAccountService(t)
	ctx := context.Background()

	account, err := service.Signup(ctx, "Taster@Example.com", "open sesame", "taster")
	if err != nil {
		t.Fatalf("unexpected signup error: %v", err)
	}
	if account.Email != "taster@example.com" {
		t.Fatalf("expected normalized email, got %q", account.Email)
	}
	if account.HashedPassword == "open sesame" {
		t.Fatalf("password must not be stored in plaintext")
	}

	session, err := service.Login(ctx, "taster@example.com", "open sesame")
	if err != nil {
		t.Fatalf("unexpected login error: %v", err)
	}
	if session.UserID != account.ID {
		t.Fatalf("unexpected session user %d", session.UserID)
	}
	if session.AccessToken == "" || session.RefreshToken == "" {
		t.Fatalf("expected both tokens to be issued")
	}
}

func TestSignupRejectsDuplicateEmail(t *testing.T) {
	service := newTestAccountService(t)
	ctx := context.Background()

	if _, err := service.Signup(ctx, "taster@example.com", "open sesame", "taster"); err != nil {
		t.Fatalf("unexpected signup error: %v", err)
	}
	_, err := service.Signup(ctx, "TASTER@example.com", "different", "other")
	if !errors.Is(err, ErrEmailTaken) {
		t.Fatalf("expected duplicate email rejection, got %v", err)
	}
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	service := newTestAccountService(t)
	ctx := context.Background()

	if _, err := service.Signup(ctx, "taster@example.com", "open sesame", "taster"); err != nil {
		t.Fatalf("unexpected signup error: %v", err)
	}

	if _, err := service.Login(ctx, "taster@example.com", "wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected credential rejection, got %v", err)
	}
	if _, err := service.Login(ctx, "nobody@example.com", "open sesame"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected unknown email rejection, got %v", err)
	}
}

func TestRefreshRotatesSession(t *testing.T) {
	service := newTestAccountService(t)
	ctx := context.Background()

	if _, err := service.Signup(ctx, "taster@example.com", "open sesame", "taster"); err != nil {
		t.Fatalf("unexpected signup error: %v", err)
	}
	session, err := service.Login(ctx, "taster@example.com", "open sesame")
	if err != nil {
		t.Fatalf("unexpected login error: %v", err)
	}

	refreshed, err := service.Refresh(ctx, session.RefreshToken)
	if err != nil {
		t.Fatalf("unexpected refresh error: %v", err)
	}
	if refreshed.UserID != session.UserID {
		t.Fatalf("refresh changed the user: %d", refreshed.UserID)
	}
	if refreshed.AccessToken == "" {
		t.Fatalf("expected a fresh access token")
	}
}

func TestLogoutRevokesRefreshToken(t *testing.T) {
	service := newTestAccountService(t)
	ctx := context.Background()

	if _, err := service.Signup(ctx, "taster@example.com", "open sesame", "taster"); err != nil {
		t.Fatalf("unexpected signup error: %v", err)
	}
	session, err := service.Login(ctx, "taster@example.com", "open sesame")
	if err != nil {
		t.Fatalf("unexpected login error: %v", err)
	}

	if err := service.Logout(ctx, session.UserID); err != nil {
		t.Fatalf("unexpected logout error: %v", err)
	}

	_, err = service.Refresh(ctx, session.RefreshToken)
	if !errors.Is(err, ErrSessionRevoked) {
		t.Fatalf("expected revoked session, got %v", err)
	}
}

func TestRefreshRejectsGarbageToken(t *testing.T) {
	service := newTestAccountService(t)

	_, err := service.Refresh(context.Background(), "not-a-token")
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected invalid credentials, got %v", err)
	}
}
