package users

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/tasteboard/backend/internal/auth"
	"github.com/tasteboard/backend/internal/cache"
)

var (
	// ErrEmailTaken indicates a signup against an already registered email.
	ErrEmailTaken = errors.New("users: email already registered")
	// ErrInvalidCredentials indicates a login with an unknown email or wrong password.
	ErrInvalidCredentials = errors.New("users: invalid credentials")
	// ErrSessionRevoked indicates a refresh attempt after logout.
	ErrSessionRevoked = errors.New("users: session revoked")
)

const refreshTokenKeyPrefix = "refresh_token:"

// TokenIssuer is the slice of the JWT issuer the account service needs.
type TokenIssuer interface {
	IssueAccessToken(userID int64) (string, int64, error)
	IssueRefreshToken(userID int64) (string, int64, error)
	ValidateRefreshToken(tokenString string) (int64, error)
}

// ServiceConfig describes the dependencies of the account service.
type ServiceConfig struct {
	Database *gorm.DB
	Tokens   TokenIssuer
	Sessions cache.Store
	Clock    func() time.Time
	Logger   *zap.Logger
}

// Service manages account registration and session lifecycle.
type Service struct {
	db       *gorm.DB
	tokens   TokenIssuer
	sessions cache.Store
	now      func() time.Time
	logger   *zap.Logger
}

// NewService constructs the account service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Database == nil {
		return nil, fmt.Errorf("users: database connection required")
	}
	if cfg.Tokens == nil {
		return nil, fmt.Errorf("users: token issuer required")
	}
	if cfg.Sessions == nil {
		return nil, fmt.Errorf("users: session store required")
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		db:       cfg.Database,
		tokens:   cfg.Tokens,
		sessions: cfg.Sessions,
		now:      clock,
		logger:   logger,
	}, nil
}

// Session carries the token pair handed to a logged-in client.
type Session struct {
	UserID           int64
	AccessToken      string
	AccessExpiresIn  int64
	RefreshToken     string
	RefreshExpiresIn int64
}

// Signup registers a new account. Emails are matched case-insensitively.
func (s *Service) Signup(ctx context.Context, email, password, userName string) (User, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return User{}, ErrInvalidCredentials
	}

	var existing User
	err := s.db.WithContext(ctx).Where("email = ?", email).Take(&existing).Error
	if err == nil {
		return User{}, ErrEmailTaken
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return User{}, err
	}

	hashed, err := auth.HashPassword(password)
	if err != nil {
		return User{}, err
	}

	account := User{
		Email:          email,
		HashedPassword: hashed,
		UserName:       userName,
		CreatedAt:      s.now().UTC(),
	}
	if err := s.db.WithContext(ctx).Create(&account).Error; err != nil {
		return User{}, err
	}
	s.logger.Info("account created", zap.Int64("user_id", account.ID))
	return account, nil
}

// Login verifies the credentials and opens a session. The refresh token is
// recorded server-side so logout can revoke it before it expires.
func (s *Service) Login(ctx context.Context, email, password string) (Session, error) {
	email = normalizeEmail(email)

	var account User
	err := s.db.WithContext(ctx).Where("email = ?", email).Take(&account).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Session{}, ErrInvalidCredentials
	}
	if err != nil {
		return Session{}, err
	}
	if !auth.VerifyPassword(account.HashedPassword, password) {
		return Session{}, ErrInvalidCredentials
	}

	return s.openSession(ctx, account.ID)
}

// Refresh trades a still-valid refresh token for a fresh token pair. A token
// that was revoked by logout, or superseded by a later login, is rejected.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (Session, error) {
	userID, err := s.tokens.ValidateRefreshToken(refreshToken)
	if err != nil {
		return Session{}, ErrInvalidCredentials
	}

	stored, ok, err := s.sessions.Get(ctx, refreshTokenKey(userID))
	if err != nil {
		return Session{}, err
	}
	if !ok || string(stored) != refreshToken {
		return Session{}, ErrSessionRevoked
	}

	return s.openSession(ctx, userID)
}

// Logout revokes the user's refresh token.
func (s *Service) Logout(ctx context.Context, userID int64) error {
	return s.sessions.Delete(ctx, refreshTokenKey(userID))
}

// ByID returns the account with the given identifier.
func (s *Service) ByID(ctx context.Context, userID int64) (User, error) {
	var account User
	err := s.db.WithContext(ctx).Where("id = ?", userID).Take(&account).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return User{}, ErrInvalidCredentials
	}
	if err != nil {
		return User{}, err
	}
	return account, nil
}

func (s *Service) openSession(ctx context.Context, userID int64) (Session, error) {
	accessToken, accessExpiry, err := s.tokens.IssueAccessToken(userID)
	if err != nil {
		return Session{}, err
	}
	refreshToken, refreshExpiry, err := s.tokens.IssueRefreshToken(userID)
	if err != nil {
		return Session{}, err
	}

	ttl := time.Duration(refreshExpiry) * time.Second
	if err := s.sessions.Set(ctx, refreshTokenKey(userID), []byte(refreshToken), ttl); err != nil {
		return Session{}, err
	}

	return Session{
		UserID:           userID,
		AccessToken:      accessToken,
		AccessExpiresIn:  accessExpiry,
		RefreshToken:     refreshToken,
		RefreshExpiresIn: refreshExpiry,
	}, nil
}

func refreshTokenKey(userID int64) string {
	return refreshTokenKeyPrefix + strconv.FormatInt(userID, 10)
}
