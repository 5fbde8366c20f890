package auth

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	defaultAccessTokenTTL  = 30 * time.Minute
	defaultRefreshTokenTTL = 14 * 24 * time.Hour
)

var (
	errMissingSigningSecret = errors.New("signing secret must be provided")
	errMissingSubjectClaim  = errors.New("subject claim must be provided")

	// ErrWrongTokenKind means an access token was presented where a refresh
	// token was expected, or the other way around.
	ErrWrongTokenKind = errors.New("wrong token kind")
)

const (
	kindAccess  = "access"
	kindRefresh = "refresh"
)

type tokenClaims struct {
	Kind string `json:"kind"`
	jwt.RegisteredClaims
}

// TokenIssuerConfig configures the backend JWT issuer.
type TokenIssuerConfig struct {
	SigningSecret   []byte
	Issuer          string
	Audience        string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration
	Clock           func() time.Time
}

// TokenIssuer issues and validates the backend's access and refresh JWTs.
type TokenIssuer struct {
	config TokenIssuerConfig
	clock  func() time.Time
}

// NewTokenIssuer constructs a TokenIssuer with sane defaults.
func NewTokenIssuer(cfg TokenIssuerConfig) *TokenIssuer {
	accessTTL := cfg.AccessTokenTTL
	if accessTTL <= 0 {
		accessTTL = defaultAccessTokenTTL
	}
	refreshTTL := cfg.RefreshTokenTTL
	if refreshTTL <= 0 {
		refreshTTL = defaultRefreshTokenTTL
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	return &TokenIssuer{
		config: TokenIssuerConfig{
			SigningSecret:   cfg.SigningSecret,
			Issuer:          cfg.Issuer,
			Audience:        cfg.Audience,
			AccessTokenTTL:  accessTTL,
			RefreshTokenTTL: refreshTTL,
			Clock:           clock,
		},
		clock: clock,
	}
}

// IssueAccessToken produces a signed access JWT and its expiry in seconds.
func (i *TokenIssuer) IssueAccessToken(userID int64) (string, int64, error) {
	return i.issue(userID, kindAccess, i.config.AccessTokenTTL)
}

// IssueRefreshToken produces a signed refresh JWT and its expiry in seconds.
func (i *TokenIssuer) IssueRefreshToken(userID int64) (string, int64, error) {
	return i.issue(userID, kindRefresh, i.config.RefreshTokenTTL)
}

func (i *TokenIssuer) issue(userID int64, kind string, ttl time.Duration) (string, int64, error) {
	if len(i.config.SigningSecret) == 0 {
		return "", 0, errMissingSigningSecret
	}
	if userID <= 0 {
		return "", 0, errMissingSubjectClaim
	}

	now := i.clock().UTC()
	expiresAt := now.Add(ttl).UTC()

	claims := tokenClaims{
		Kind: kind,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(userID, 10),
			Issuer:    i.config.Issuer,
			Audience:  []string{i.config.Audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(i.config.SigningSecret)
	if err != nil {
		return "", 0, err
	}

	return signed, int64(expiresAt.Sub(now).Seconds()), nil
}

// ValidateAccessToken ensures the access JWT is well formed and returns the user ID.
func (i *TokenIssuer) ValidateAccessToken(tokenString string) (int64, error) {
	return i.validate(tokenString, kindAccess)
}

// ValidateRefreshToken ensures the refresh JWT is well formed and returns the user ID.
func (i *TokenIssuer) ValidateRefreshToken(tokenString string) (int64, error) {
	return i.validate(tokenString, kindRefresh)
}

func (i *TokenIssuer) validate(tokenString, kind string) (int64, error) {
	if len(i.config.SigningSecret) == 0 {
		return 0, errMissingSigningSecret
	}

	claims := &tokenClaims{}
	_, err := jwt.ParseWithClaims(
		tokenString,
		claims,
		func(token *jwt.Token) (interface{}, error) {
			if token.Method.Alg() != jwt.SigningMethodHS256.Alg() {
				return nil, fmt.Errorf("unexpected signing algorithm: %s", token.Method.Alg())
			}
			return i.config.SigningSecret, nil
		},
		jwt.WithAudience(i.config.Audience),
		jwt.WithIssuer(i.config.Issuer),
		jwt.WithTimeFunc(i.clock),
	)
	if err != nil {
		return 0, err
	}
	if claims.Kind != kind {
		return 0, ErrWrongTokenKind
	}
	if claims.Subject == "" {
		return 0, errMissingSubjectClaim
	}
	userID, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil || userID <= 0 {
		return 0, errMissingSubjectClaim
	}
	return userID, nil
}
