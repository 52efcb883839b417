package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"soundboard/internal/config"
	"soundboard/internal/dispatch"
	"soundboard/internal/midi"
	"soundboard/internal/readiness"
	"soundboard/internal/twitch"
	"soundboard/internal/web"
	"soundboard/internal/ws"
)

// startupRetryDelay spaces out whole-startup retries after a transient init
// failure. Config errors never retry.
const startupRetryDelay = 100 * time.Second

func main() {
	configPath := flag.String("config", "config.yaml", "Path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Println("Shutting down...")
		cancel()
		os.Exit(0)
	}()

	for {
		err := run(ctx, cfg)
		if err == nil || ctx.Err() != nil {
			return
		}
		log.Printf("The server app failed to start: %v", err)
		log.Printf("Retrying in %v...", startupRetryDelay)
		select {
		case <-ctx.Done():
			return
		case <-time.After(startupRetryDelay):
		}
	}
}

func run(ctx context.Context, cfg *config.Config) error {
	state := readiness.NewState()
	cat := cfg.Catalog()
	log.Printf("Loaded %d sounds.", cat.Len())

	broadcaster := ws.NewBroadcaster(state, ws.FrontEndConfig{
		MIDIIn: cfg.MIDIIn,
		Sounds: cat.Cues(),
	})
	dispatcher := dispatch.New(cat, broadcaster)

	store := twitch.NewStore(cfg.Twitch.TokensFile)
	bot := twitch.NewBot(cfg.Twitch.ClientID, cfg.Twitch.ClientSecret, store, func(r twitch.Redemption) {
		dispatcher.HandleRedemption(dispatch.RedemptionEvent{
			RewardID:    r.RewardID,
			UserName:    r.UserName,
			RewardTitle: r.RewardTitle,
		})
	})

	switch err := bot.Start(ctx); err {
	case nil:
		state.MarkAuthenticated()
	case twitch.ErrTokensInvalid:
		log.Printf("Can't start Twitch bot, token data is invalid. Head to http://localhost:%d/ then proceed with Twitch login.", cfg.Server.HTTPPort)
	default:
		return err
	}

	if cfg.MIDIIn == "" {
		log.Println("midi_in not set in config, not using MIDI.")
		if inputs, err := midi.ListInputs(); err == nil {
			log.Println("Available MIDI ports:")
			for _, name := range inputs {
				log.Printf("\t%s", name)
			}
		}
	} else {
		listener, err := midi.Open(cfg.MIDIIn, func(note, channel int) {
			dispatcher.HandleNote(dispatch.NoteEvent{Note: note, Channel: channel})
		})
		if err != nil {
			// A missing or broken MIDI device should not take the
			// soundboard down; redemptions still work.
			log.Printf("MIDI failed to start port %s: %v", cfg.MIDIIn, err)
		} else {
			defer listener.Close()
		}
	}

	webServer := web.NewServer(bot.Auth(), store, cfg.Assets.Dir, func(*http.Request) error {
		// Runs after a successful code exchange. The bot goroutines must
		// outlive the HTTP request, so they get the app context.
		if err := bot.Start(ctx); err != nil {
			return err
		}
		state.MarkAuthenticated()
		broadcaster.BroadcastReady()
		return nil
	})

	// Both listeners live only as long as this run: when one fails, the
	// other must release its port before the retry loop re-enters.
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	errCh := make(chan error, 2)

	httpMux := http.NewServeMux()
	webServer.SetupRoutes(httpMux)
	go func() {
		errCh <- web.ListenAndServe(runCtx, cfg.Server.Host, cfg.Server.HTTPPort, httpMux)
	}()

	wsMux := http.NewServeMux()
	ws.NewServer(broadcaster).SetupRoutes(wsMux)
	go func() {
		errCh <- ws.ListenAndServe(runCtx, cfg.Server.Host, cfg.Server.WSPort, wsMux)
	}()

	select {
	case <-ctx.Done():
		return nil
	case err := <-errCh:
		return err
	}
}
