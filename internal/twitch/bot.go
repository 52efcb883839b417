package twitch

import (
	"context"
	"errors"
	"log"
	"sync/atomic"
	"time"
)

// ErrTokensInvalid means the stored tokens are missing or carry the wrong
// scope; the user has to go through the browser login flow first. It is not
// a transient failure and must not trigger the startup retry.
var ErrTokensInvalid = errors.New("twitch tokens are invalid")

// eventSubRetryDelay spaces out reconnect attempts after the EventSub
// connection drops.
const eventSubRetryDelay = 5 * time.Second

// Bot owns the Twitch side of the bridge: refreshing credentials and the
// EventSub subscription feeding redemptions into the dispatcher.
type Bot struct {
	auth         *Authenticator
	helix        *Helix
	store        *Store
	onRedemption func(Redemption)
	running      atomic.Bool
}

func NewBot(clientID, clientSecret string, store *Store, onRedemption func(Redemption)) *Bot {
	auth := NewAuthenticator(clientID, clientSecret, store)
	return &Bot{
		auth:         auth,
		helix:        NewHelix(auth, clientID),
		store:        store,
		onRedemption: onRedemption,
	}
}

// Auth exposes the authenticator for the HTTP login flow.
func (b *Bot) Auth() *Authenticator {
	return b.auth
}

// Running reports whether the bot has completed its handshake.
func (b *Bot) Running() bool {
	return b.running.Load()
}

// Start validates the stored tokens, resolves the broadcaster and begins
// listening for redemptions in the background. Starting an already running
// bot is a no-op.
func (b *Bot) Start(ctx context.Context) error {
	if b.running.Load() {
		return nil
	}

	tokens := b.store.Load()
	if !tokens.Valid(RequiredScope) {
		return ErrTokensInvalid
	}
	b.auth.SetTokens(tokens)

	// Resolving the user id doubles as a handshake check: it refreshes the
	// access token and proves the credentials work.
	userID, err := b.helix.UserID(ctx)
	if err != nil {
		return err
	}

	es := NewEventSubClient(b.helix, userID, b.onRedemption)
	go func() {
		for {
			err := es.Run(ctx)
			if ctx.Err() != nil {
				return
			}
			log.Printf("EventSub connection lost: %v. Reconnecting in %v...", err, eventSubRetryDelay)
			select {
			case <-ctx.Done():
				return
			case <-time.After(eventSubRetryDelay):
			}
		}
	}()

	b.running.Store(true)
	log.Printf("Twitch bot started.")
	return nil
}
