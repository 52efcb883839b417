package twitch

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/gorilla/websocket"
)

const eventSubURL = "wss://eventsub.wss.twitch.tv/ws"

// Redemption is a channel-point redemption delivered to the bot's callback.
type Redemption struct {
	RewardID    string
	UserName    string
	RewardTitle string
}

// eventSubMessage is the EventSub websocket envelope.
type eventSubMessage struct {
	Metadata struct {
		MessageID   string `json:"message_id"`
		MessageType string `json:"message_type"`
	} `json:"metadata"`
	Payload json.RawMessage `json:"payload"`
}

type sessionPayload struct {
	Session struct {
		ID                      string `json:"id"`
		KeepaliveTimeoutSeconds int    `json:"keepalive_timeout_seconds"`
		ReconnectURL            string `json:"reconnect_url"`
	} `json:"session"`
}

type notificationPayload struct {
	Subscription struct {
		Type string `json:"type"`
	} `json:"subscription"`
	Event json.RawMessage `json:"event"`
}

type redemptionEvent struct {
	UserName string `json:"user_name"`
	Reward   struct {
		ID    string `json:"id"`
		Title string `json:"title"`
	} `json:"reward"`
}

// EventSubClient maintains the EventSub websocket session: on welcome it
// creates the redemption subscription, then forwards notifications until the
// connection dies or Twitch asks it to move to another edge.
type EventSubClient struct {
	helix         *Helix
	broadcasterID string
	onRedemption  func(Redemption)
	url           string
}

func NewEventSubClient(helix *Helix, broadcasterID string, onRedemption func(Redemption)) *EventSubClient {
	return &EventSubClient{
		helix:         helix,
		broadcasterID: broadcasterID,
		onRedemption:  onRedemption,
		url:           eventSubURL,
	}
}

// Run connects and processes messages until the context is cancelled or the
// connection fails. Reconnect requests from Twitch are followed in place;
// other failures are returned for the caller to retry.
func (c *EventSubClient) Run(ctx context.Context) error {
	dialURL := c.url
	for {
		redial, err := c.runConn(ctx, dialURL)
		if err != nil {
			return err
		}
		if redial == "" {
			return nil
		}
		dialURL = redial
	}
}

// runConn handles one websocket connection. It returns a non-empty URL when
// Twitch requested a session migration.
func (c *EventSubClient) runConn(ctx context.Context, dialURL string) (redial string, err error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, dialURL, nil)
	if err != nil {
		return "", fmt.Errorf("eventsub dial: %w", err)
	}
	defer conn.Close()

	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	// Until the welcome arrives the keepalive interval is unknown.
	keepalive := 30 * time.Second
	conn.SetReadDeadline(time.Now().Add(keepalive))

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return "", ctx.Err()
			}
			return "", fmt.Errorf("eventsub read: %w", err)
		}

		var msg eventSubMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			log.Printf("eventsub: bad message: %v", err)
			continue
		}

		switch msg.Metadata.MessageType {
		case "session_welcome":
			var p sessionPayload
			if err := json.Unmarshal(msg.Payload, &p); err != nil {
				return "", fmt.Errorf("eventsub welcome: %w", err)
			}
			if p.Session.KeepaliveTimeoutSeconds > 0 {
				keepalive = time.Duration(p.Session.KeepaliveTimeoutSeconds+5) * time.Second
			}
			// A migrated session keeps its subscriptions; only subscribe on
			// a fresh connection to the primary URL.
			if dialURL == c.url {
				if err := c.helix.SubscribeRedemptions(ctx, c.broadcasterID, p.Session.ID); err != nil {
					return "", fmt.Errorf("eventsub subscribe: %w", err)
				}
				log.Printf("Listening to channel point redemptions.")
			}

		case "session_keepalive":
			// Nothing to do; the deadline reset below is the point.

		case "notification":
			var p notificationPayload
			if err := json.Unmarshal(msg.Payload, &p); err != nil {
				log.Printf("eventsub: bad notification: %v", err)
				continue
			}
			if p.Subscription.Type != "channel.channel_points_custom_reward_redemption.add" {
				continue
			}
			var ev redemptionEvent
			if err := json.Unmarshal(p.Event, &ev); err != nil {
				log.Printf("eventsub: bad redemption event: %v", err)
				continue
			}
			c.onRedemption(Redemption{
				RewardID:    ev.Reward.ID,
				UserName:    ev.UserName,
				RewardTitle: ev.Reward.Title,
			})

		case "session_reconnect":
			var p sessionPayload
			if err := json.Unmarshal(msg.Payload, &p); err != nil {
				return "", fmt.Errorf("eventsub reconnect: %w", err)
			}
			log.Printf("EventSub session moving to a new edge.")
			return p.Session.ReconnectURL, nil

		case "revocation":
			return "", fmt.Errorf("eventsub subscription revoked")
		}

		conn.SetReadDeadline(time.Now().Add(keepalive))
	}
}
