package twitch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const helixURL = "https://api.twitch.tv/helix"

// Helix is a minimal client for the two Helix calls the bot needs: resolving
// the token owner's user id and creating the EventSub subscription.
type Helix struct {
	auth       *Authenticator
	clientID   string
	httpClient *http.Client
	baseURL    string
}

func NewHelix(auth *Authenticator, clientID string) *Helix {
	return &Helix{
		auth:       auth,
		clientID:   clientID,
		httpClient: &http.Client{Timeout: 15 * time.Second},
		baseURL:    helixURL,
	}
}

// UserID returns the user id of the account the tokens belong to.
func (h *Helix) UserID(ctx context.Context) (string, error) {
	var out struct {
		Data []struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	if err := h.do(ctx, http.MethodGet, "/users", nil, &out); err != nil {
		return "", err
	}
	if len(out.Data) == 0 {
		return "", fmt.Errorf("helix /users returned no user")
	}
	return out.Data[0].ID, nil
}

// SubscribeRedemptions creates a websocket-transport EventSub subscription
// for channel-point redemptions on the broadcaster's channel.
func (h *Helix) SubscribeRedemptions(ctx context.Context, broadcasterID, sessionID string) error {
	body := map[string]interface{}{
		"type":    "channel.channel_points_custom_reward_redemption.add",
		"version": "1",
		"condition": map[string]string{
			"broadcaster_user_id": broadcasterID,
		},
		"transport": map[string]string{
			"method":     "websocket",
			"session_id": sessionID,
		},
	}
	return h.do(ctx, http.MethodPost, "/eventsub/subscriptions", body, nil)
}

func (h *Helix) do(ctx context.Context, method, path string, body, out interface{}) error {
	token, err := h.auth.AccessToken(ctx)
	if err != nil {
		return err
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, h.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Client-Id", h.clientID)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	res, err := h.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	raw, err := io.ReadAll(res.Body)
	if err != nil {
		return err
	}
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return fmt.Errorf("helix %s %s: %d %s", method, path, res.StatusCode, strings.TrimSpace(string(raw)))
	}
	if out != nil {
		return json.Unmarshal(raw, out)
	}
	return nil
}
