package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func newTestIssuer() *TokenIssuer {
	return NewTokenIssuer(TokenIssuerConfig{
		SigningSecret:   []byte("super-secret"),
		Issuer:          "tasteboard-auth",
		Audience:        "tasteboard-api",
		AccessTokenTTL:  30 * time.Minute,
		RefreshTokenTTL: 24 * time.Hour,
	})
}

func TestTokenIssuerIssuesAccessTokens(t *testing.T) {
	issuer := newTestIssuer()

	tokenString, expiresIn, err := issuer.IssueAccessToken(123)
	if err != nil {
		t.Fatalf("expected successful issuance: %v", err)
	}
	if expiresIn <= 0 {
		t.Fatalf("expected positive expiry seconds, got %d", expiresIn)
	}

	parser := jwt.Parser{}
	claims := &jwt.RegisteredClaims{}
	_, err = parser.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return []byte("super-secret"), nil
	})
	if err != nil {
		t.Fatalf("failed to parse generated token: %v", err)
	}

	if claims.Subject != "123" {
		t.Fatalf("unexpected subject %s", claims.Subject)
	}
	if claims.Issuer != "tasteboard-auth" {
		t.Fatalf("unexpected issuer %s", claims.Issuer)
	}
	if len(claims.Audience) == 0 || claims.Audience[0] != "tasteboard-api" {
		t.Fatalf("unexpected audience %#v", claims.Audience)
	}
}

func TestTokenIssuerValidatesIssuedTokens(t *testing.T) {
	issuer := newTestIssuer()

	tokenString, _, err := issuer.IssueAccessToken(321)
	if err != nil {
		t.Fatalf("unexpected error issuing token: %v", err)
	}

	userID, err := issuer.ValidateAccessToken(tokenString)
	if err != nil {
		t.Fatalf("expected validation success: %v", err)
	}
	if userID != 321 {
		t.Fatalf("unexpected user id %d", userID)
	}

	if _, err := issuer.ValidateAccessToken("invalid.token"); err == nil {
		t.Fatalf("expected validation to fail for malformed token")
	}
}

func TestTokenIssuerRejectsWrongTokenKind(t *testing.T) {
	issuer := newTestIssuer()

	refreshToken, _, err := issuer.IssueRefreshToken(7)
	if err != nil {
		t.Fatalf("unexpected error issuing refresh token: %v", err)
	}

	if _, err := issuer.ValidateAccessToken(refreshToken); err == nil {
		t.Fatalf("expected refresh token to be rejected as access token")
	}

	userID, err := issuer.ValidateRefreshToken(refreshToken)
	if err != nil {
		t.Fatalf("expected refresh validation success: %v", err)
	}
	if userID != 7 {
		t.Fatalf("unexpected user id %d", userID)
	}
}

func TestTokenIssuerRejectsMissingSecret(t *testing.T) {
	issuer := NewTokenIssuer(TokenIssuerConfig{
		Issuer:   "tasteboard-auth",
		Audience: "tasteboard-api",
	})

	if _, _, err := issuer.IssueAccessToken(1); err == nil {
		t.Fatalf("expected issuance error for missing secret")
	}
	if _, err := issuer.ValidateAccessToken("whatever"); err == nil {
		t.Fatalf("expected validation error for missing secret")
	}
}

func TestTokenIssuerRejectsExpiredTokens(t *testing.T) {
	current := time.Now()
	issuer := NewTokenIssuer(TokenIssuerConfig{
		SigningSecret:  []byte("super-secret"),
		Issuer:         "tasteboard-auth",
		Audience:       "tasteboard-api",
		AccessTokenTTL: time.Minute,
		Clock:          func() time.Time { return current },
	})

	tokenString, _, err := issuer.IssueAccessToken(5)
	if err != nil {
		t.Fatalf("unexpected error issuing token: %v", err)
	}

	current = current.Add(2 * time.Minute)
	if _, err := issuer.ValidateAccessToken(tokenString); err == nil {
		t.Fatalf("expected expired token to be rejected")
	}
}

func TestPasswordHashRoundTrip(t *testing.T) {
	hashed, err := HashPassword("hunter2-secret")
	if err != nil {
		t.Fatalf("unexpected hashing error: %v", err)
	}
	if hashed == "hunter2-secret" {
		t.Fatalf("expected hash to differ from plaintext")
	}
	if !VerifyPassword(hashed, "hunter2-secret") {
		t.Fatalf("expected matching password to verify")
	}
	if VerifyPassword(hashed, "wrong-password") {
		t.Fatalf("expected wrong password to fail verification")
	}
}
