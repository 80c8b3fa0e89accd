// Package auth implements sign-in against the Google OAuth 2.0 code flow.
package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/askroom/go-askroom/internal/config"
)

const (
	defaultGoogleAuthURL     = "https://accounts.google.com/o/oauth2/auth"
	defaultGoogleTokenURL    = "https://oauth2.googleapis.com/token"
	defaultGoogleUserInfoURL = "https://www.googleapis.com/oauth2/v3/userinfo"
)

// ErrIncompleteProfile is returned when the provider profile is missing a
// display name or avatar. A sign-in without both is not valid.
var ErrIncompleteProfile = errors.New("missing information from Google account")

// Profile is the identity returned by a successful sign-in.
type Profile struct {
	Subject   string
	Name      string
	Email     string
	AvatarUrl string
}

type Provider interface {
	LoginURL(state string) string
	ExchangeCode(ctx context.Context, code string) (Profile, error)
}

type GoogleProvider struct {
	clientId     string
	clientSecret string
	redirectURL  string

	// overridable for tests
	authURL     string
	tokenURL    string
	userInfoURL string
}

func NewGoogleProvider(cfg config.GoogleOAuthConfig) *GoogleProvider {
	return &GoogleProvider{
		clientId:     cfg.ClientId,
		clientSecret: cfg.ClientSecret,
		redirectURL:  cfg.RedirectURL,
		authURL:      defaultGoogleAuthURL,
		tokenURL:     defaultGoogleTokenURL,
		userInfoURL:  defaultGoogleUserInfoURL,
	}
}

func (p *GoogleProvider) LoginURL(state string) string {
	params := url.Values{
		"client_id":     {p.clientId},
		"redirect_uri":  {p.redirectURL},
		"response_type": {"code"},
		"scope":         {"openid email profile"},
		"state":         {state},
	}
	return p.authURL + "?" + params.Encode()
}

type googleTokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

type googleUserInfo struct {
	Sub     string `json:"sub"`
	Email   string `json:"email"`
	Name    string `json:"name"`
	Picture string `json:"picture"`
}

// ExchangeCode trades the authorization code for an access token, fetches
// the user's profile, and maps it to a Profile. The mapping fails with
// ErrIncompleteProfile when the name or picture is absent.
func (p *GoogleProvider) ExchangeCode(ctx context.Context, code string) (Profile, error) {
	token, err := p.exchangeToken(ctx, code)
	if err != nil {
		return Profile{}, fmt.Errorf("exchange token: %w", err)
	}

	info, err := p.fetchUserInfo(ctx, token.AccessToken)
	if err != nil {
		return Profile{}, fmt.Errorf("fetch user info: %w", err)
	}

	if info.Name == "" || info.Picture == "" {
		return Profile{}, ErrIncompleteProfile
	}

	return Profile{
		Subject:   info.Sub,
		Name:      info.Name,
		Email:     info.Email,
		AvatarUrl: info.Picture,
	}, nil
}

func (p *GoogleProvider) exchangeToken(ctx context.Context, code string) (*googleTokenResponse, error) {
	data := url.Values{
		"code":          {code},
		"client_id":     {p.clientId},
		"client_secret": {p.clientSecret},
		"redirect_uri":  {p.redirectURL},
		"grant_type":    {"authorization_code"},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.tokenURL, strings.NewReader(data.Encode()))
	if err != nil {
		return nil, fmt.Errorf("create token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("token request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("token endpoint returned %d: %s", resp.StatusCode, body)
	}

	var token googleTokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&token); err != nil {
		return nil, fmt.Errorf("decode token response: %w", err)
	}

	return &token, nil
}

func (p *GoogleProvider) fetchUserInfo(ctx context.Context, accessToken string) (*googleUserInfo, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.userInfoURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create userinfo request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("userinfo request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("userinfo endpoint returned %d", resp.StatusCode)
	}

	var info googleUserInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, fmt.Errorf("decode userinfo response: %w", err)
	}

	return &info, nil
}
