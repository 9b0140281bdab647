package google

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/academictracker/api/internal/config"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

const userInfoURL = "https://www.googleapis.com/oauth2/v3/userinfo"

// Profile represents the minimal Google user info payload.
type Profile struct {
	Subject       string `json:"sub"`
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	Name          string `json:"name"`
	Picture       string `json:"picture"`
}

// Provider wraps Google OAuth operations.
type Provider struct {
	oauthConfig *oauth2.Config
	userInfoURL string
}

// New creates a Provider when Google sign-in is enabled. Returns nil if disabled.
func New(cfg config.GoogleProviderConfig) (*Provider, error) {
	if !cfg.Enabled {
		return nil, nil
	}
	if cfg.ClientID == "" || cfg.ClientSecret == "" || cfg.RedirectURL == "" {
		return nil, fmt.Errorf("google provider requires client id, secret, and redirect url")
	}

	return &Provider{
		oauthConfig: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       []string{"openid", "profile", "email"},
			Endpoint:     google.Endpoint,
		},
		userInfoURL: userInfoURL,
	}, nil
}

// AuthCodeURL constructs the Google authorization URL.
func (p *Provider) AuthCodeURL(state string) string {
	return p.oauthConfig.AuthCodeURL(state, oauth2.SetAuthURLParam("prompt", "select_account"))
}

// Authenticate exchanges the authorization code and fetches the user's profile.
func (p *Provider) Authenticate(ctx context.Context, code string) (*Profile, error) {
	token, err := p.oauthConfig.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("exchange google oauth code: %w", err)
	}

	client := p.oauthConfig.Client(ctx, token)
	resp, err := client.Get(p.userInfoURL)
	if err != nil {
		return nil, fmt.Errorf("fetch google profile: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("google profile request failed: status=%d", resp.StatusCode)
	}

	var profile Profile
	if err := json.NewDecoder(resp.Body).Decode(&profile); err != nil {
		return nil, fmt.Errorf("decode google profile: %w", err)
	}
	if profile.Subject == "" || profile.Email == "" {
		return nil, fmt.Errorf("google profile missing required fields")
	}
	return &profile, nil
}
