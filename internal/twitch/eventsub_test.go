package twitch

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

// eventSubScript is a fake EventSub edge that plays a fixed message sequence
// to every connection, then closes it.
func eventSubScript(t *testing.T, messages ...string) string {
	t.Helper()
	upgrader := websocket.Upgrader{}
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		for _, msg := range messages {
			if err := conn.WriteMessage(websocket.TextMessage, []byte(msg)); err != nil {
				return
			}
		}
		// Give the client a moment to drain before the close tears it down.
		time.Sleep(100 * time.Millisecond)
	}))
	t.Cleanup(ts.Close)
	return "ws" + strings.TrimPrefix(ts.URL, "http")
}

const welcomeMsg = `{
	"metadata": {"message_id": "m1", "message_type": "session_welcome"},
	"payload": {"session": {"id": "sess-1", "keepalive_timeout_seconds": 10}}
}`

const redemptionMsg = `{
	"metadata": {"message_id": "m2", "message_type": "notification"},
	"payload": {
		"subscription": {"type": "channel.channel_points_custom_reward_redemption.add"},
		"event": {
			"user_name": "viewer42",
			"reward": {"id": "reward-1", "title": "Air horn"}
		}
	}
}`

const keepaliveMsg = `{
	"metadata": {"message_id": "m3", "message_type": "session_keepalive"},
	"payload": {}
}`

func TestEventSubDeliversRedemptions(t *testing.T) {
	var subscribes atomic.Int64
	var gotSession atomic.Value
	helix := newTestHelix(t, func(w http.ResponseWriter, r *http.Request) {
		subscribes.Add(1)
		var body struct {
			Transport struct {
				SessionID string `json:"session_id"`
			} `json:"transport"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("bad subscribe body: %v", err)
		}
		gotSession.Store(body.Transport.SessionID)
		w.WriteHeader(http.StatusAccepted)
		w.Write([]byte(`{"data":[]}`))
	})

	redemptions := make(chan Redemption, 1)
	c := NewEventSubClient(helix, "12345", func(r Redemption) { redemptions <- r })
	c.url = eventSubScript(t, welcomeMsg, keepaliveMsg, redemptionMsg)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	go c.Run(ctx)

	select {
	case r := <-redemptions:
		if r.RewardID != "reward-1" || r.UserName != "viewer42" || r.RewardTitle != "Air horn" {
			t.Errorf("redemption = %+v", r)
		}
	case <-ctx.Done():
		t.Fatal("no redemption was delivered")
	}

	if subscribes.Load() != 1 {
		t.Errorf("subscribe calls = %d, want 1", subscribes.Load())
	}
	if got := gotSession.Load(); got != "sess-1" {
		t.Errorf("subscribe session id = %v, want sess-1", got)
	}
}

func TestEventSubFollowsReconnect(t *testing.T) {
	var subscribes atomic.Int64
	helix := newTestHelix(t, func(w http.ResponseWriter, r *http.Request) {
		subscribes.Add(1)
		w.WriteHeader(http.StatusAccepted)
		w.Write([]byte(`{"data":[]}`))
	})

	// The second edge greets the migrated session; no new subscription is
	// created there.
	second := eventSubScript(t, welcomeMsg, redemptionMsg)
	reconnectMsg := `{
		"metadata": {"message_id": "m9", "message_type": "session_reconnect"},
		"payload": {"session": {"id": "sess-1", "reconnect_url": "` + second + `"}}
	}`
	first := eventSubScript(t, welcomeMsg, reconnectMsg)

	redemptions := make(chan Redemption, 1)
	c := NewEventSubClient(helix, "12345", func(r Redemption) { redemptions <- r })
	c.url = first

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	go c.Run(ctx)

	select {
	case <-redemptions:
	case <-ctx.Done():
		t.Fatal("no redemption arrived over the migrated connection")
	}

	if subscribes.Load() != 1 {
		t.Errorf("subscribe calls = %d, want 1; a migrated session keeps its subscription", subscribes.Load())
	}
}

func TestEventSubRevocation(t *testing.T) {
	helix := newTestHelix(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusAccepted)
		w.Write([]byte(`{"data":[]}`))
	})

	revocationMsg := `{
		"metadata": {"message_id": "m4", "message_type": "revocation"},
		"payload": {"subscription": {"type": "channel.channel_points_custom_reward_redemption.add"}}
	}`
	c := NewEventSubClient(helix, "12345", func(Redemption) {})
	c.url = eventSubScript(t, welcomeMsg, revocationMsg)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := c.Run(ctx); err == nil {
		t.Error("a revoked subscription should surface as an error")
	}
}

func TestBotStartRejectsInvalidTokens(t *testing.T) {
	store := NewStore(filepath.Join(t.TempDir(), "tokens.json"))
	bot := NewBot("client-id", "secret", store, func(Redemption) {})

	err := bot.Start(context.Background())
	if err != ErrTokensInvalid {
		t.Errorf("Start with no tokens = %v, want ErrTokensInvalid", err)
	}
	if bot.Running() {
		t.Error("bot must not report running after a failed start")
	}
}
