package twitch

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"
)

const (
	authorizeURL = "https://id.twitch.tv/oauth2/authorize"
	tokenURL     = "https://id.twitch.tv/oauth2/token"
)

// RequiredScope is the only scope the bot needs: reading channel-point
// redemptions.
var RequiredScope = []string{"channel:read:redemptions"}

// expiryMargin refreshes a little before the access token actually dies.
const expiryMargin = time.Minute

// Authenticator holds the Twitch app credentials and the current tokens,
// refreshing the access token when it expires and persisting every rotation
// through the store.
type Authenticator struct {
	clientID     string
	clientSecret string
	store        *Store
	httpClient   *http.Client
	tokenURL     string

	mu     sync.Mutex
	tokens TokenData
}

func NewAuthenticator(clientID, clientSecret string, store *Store) *Authenticator {
	return &Authenticator{
		clientID:     clientID,
		clientSecret: clientSecret,
		store:        store,
		httpClient:   &http.Client{Timeout: 15 * time.Second},
		tokenURL:     tokenURL,
	}
}

// SetTokens installs previously stored token data.
func (a *Authenticator) SetTokens(t TokenData) {
	a.mu.Lock()
	a.tokens = t
	a.mu.Unlock()
}

// AuthorizeURL builds the Twitch login URL for the authorization-code flow.
func (a *Authenticator) AuthorizeURL(redirectURI string) string {
	q := url.Values{}
	q.Set("client_id", a.clientID)
	q.Set("redirect_uri", redirectURI)
	q.Set("response_type", "code")
	q.Set("scope", strings.Join(RequiredScope, " "))
	return authorizeURL + "?" + q.Encode()
}

// tokenResponse is the id.twitch.tv token endpoint payload.
type tokenResponse struct {
	AccessToken  string   `json:"access_token"`
	RefreshToken string   `json:"refresh_token"`
	ExpiresIn    int      `json:"expires_in"`
	Scope        []string `json:"scope"`
	TokenType    string   `json:"token_type"`
}

// ExchangeCode trades an authorization code for tokens and persists them.
func (a *Authenticator) ExchangeCode(ctx context.Context, code, redirectURI string) error {
	form := url.Values{}
	form.Set("client_id", a.clientID)
	form.Set("client_secret", a.clientSecret)
	form.Set("code", code)
	form.Set("grant_type", "authorization_code")
	form.Set("redirect_uri", redirectURI)

	resp, err := a.postToken(ctx, form)
	if err != nil {
		return err
	}

	t := TokenData{
		AccessToken:         resp.AccessToken,
		RefreshToken:        resp.RefreshToken,
		ExpiresIn:           resp.ExpiresIn,
		Scope:               resp.Scope,
		TokenType:           resp.TokenType,
		ObtainmentTimestamp: 0,
	}
	a.SetTokens(t)
	return a.store.Save(t)
}

// AccessToken returns a live access token, refreshing first if the current
// one is expired or of unknown age.
func (a *Authenticator) AccessToken(ctx context.Context) (string, error) {
	a.mu.Lock()
	t := a.tokens
	a.mu.Unlock()

	if t.AccessToken == "" {
		return "", fmt.Errorf("no access token: Twitch login has not completed")
	}

	if !tokenFresh(t, time.Now()) {
		if err := a.refresh(ctx); err != nil {
			return "", err
		}
		a.mu.Lock()
		t = a.tokens
		a.mu.Unlock()
	}
	return t.AccessToken, nil
}

// tokenFresh reports whether the access token is known to still be valid.
// An obtainment timestamp of zero means the age is unknown, so refresh.
func tokenFresh(t TokenData, now time.Time) bool {
	if t.ObtainmentTimestamp == 0 {
		return false
	}
	obtained := time.UnixMilli(t.ObtainmentTimestamp)
	expiry := obtained.Add(time.Duration(t.ExpiresIn) * time.Second)
	return now.Before(expiry.Add(-expiryMargin))
}

func (a *Authenticator) refresh(ctx context.Context) error {
	a.mu.Lock()
	refreshToken := a.tokens.RefreshToken
	a.mu.Unlock()

	if refreshToken == "" {
		return fmt.Errorf("no refresh token: Twitch login has not completed")
	}

	form := url.Values{}
	form.Set("client_id", a.clientID)
	form.Set("client_secret", a.clientSecret)
	form.Set("grant_type", "refresh_token")
	form.Set("refresh_token", refreshToken)

	resp, err := a.postToken(ctx, form)
	if err != nil {
		return fmt.Errorf("token refresh: %w", err)
	}

	t := TokenData{
		AccessToken:         resp.AccessToken,
		RefreshToken:        resp.RefreshToken,
		ExpiresIn:           resp.ExpiresIn,
		Scope:               resp.Scope,
		TokenType:           resp.TokenType,
		ObtainmentTimestamp: time.Now().UnixMilli(),
	}
	a.SetTokens(t)
	return a.store.Save(t)
}

func (a *Authenticator) postToken(ctx context.Context, form url.Values) (*tokenResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	res, err := a.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, err
	}
	if res.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("Twitch returned the following error: %s", strings.TrimSpace(string(body)))
	}

	var tr tokenResponse
	if err := json.Unmarshal(body, &tr); err != nil {
		return nil, err
	}
	return &tr, nil
}
