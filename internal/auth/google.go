package auth

import (
	"context"
	"errors"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

// youtubeReadonlyScope grants read access to the account's subscriptions.
const youtubeReadonlyScope = "https://www.googleapis.com/auth/youtube.readonly"

// GoogleOAuthConfig configures the Google authorization-code flow.
type GoogleOAuthConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
}

// GoogleOAuth drives the authorization-code exchange used to read a
// connected account's YouTube subscriptions.
type GoogleOAuth struct {
	config *oauth2.Config
}

// NewGoogleOAuth constructs the flow after validating its configuration.
func NewGoogleOAuth(cfg GoogleOAuthConfig) (*GoogleOAuth, error) {
	if cfg.ClientID == "" || cfg.ClientSecret == "" {
		return nil, errors.New("auth: google client credentials are required")
	}
	if cfg.RedirectURL == "" {
		return nil, errors.New("auth: google redirect url is required")
	}
	return &GoogleOAuth{
		config: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       []string{youtubeReadonlyScope},
			Endpoint:     google.Endpoint,
		},
	}, nil
}

// AuthURL returns the consent page URL for the given anti-forgery state.
func (g *GoogleOAuth) AuthURL(state string) string {
	return g.config.AuthCodeURL(state, oauth2.AccessTypeOffline)
}

// Exchange trades an authorization code for an access token.
func (g *GoogleOAuth) Exchange(ctx context.Context, code string) (string, error) {
	token, err := g.config.Exchange(ctx, code)
	if err != nil {
		return "", err
	}
	if token.AccessToken == "" {
		return "", errors.New("auth: empty access token in exchange response")
	}
	return token.AccessToken, nil
}
