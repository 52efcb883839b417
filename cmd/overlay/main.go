package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"soundboard/internal/catalog"
	"soundboard/internal/client"
	"soundboard/internal/ws"
)

func main() {
	wsURL := flag.String("ws", "ws://127.0.0.1:8666/", "WebSocket URL of the soundboard server")
	httpBase := flag.String("http", "http://127.0.0.1:8667", "HTTP base URL of the soundboard server")
	loadTimeout := flag.Duration("load-timeout", client.DefaultLoadTimeout, "How long a play waits for an asset before skipping it")
	flag.Parse()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	p := tea.NewProgram(newModel(*httpBase), tea.WithAltScreen())

	preloader := client.NewPreloader(
		assetFetcher(*httpBase),
		func(path string, data []byte) (client.Player, error) {
			return &overlayPlayer{path: path, size: len(data), program: p}, nil
		},
		*loadTimeout,
	)

	c := client.New(*wsURL, client.Handlers{
		OnError: func(banner string) {
			p.Send(bannerMsg{text: banner, isError: true})
		},
		OnConfig: func(cfg ws.FrontEndConfig) {
			preloader.Preload(ctx, cfg.Sounds)
			p.Send(configMsg{cfg: cfg})
		},
		OnLogin: func() {
			p.Send(bannerMsg{
				text:    fmt.Sprintf("Go to %s/ with your browser to log into Twitch.", *httpBase),
				isError: true,
			})
		},
		OnReady: func() {
			p.Send(readyMsg{})
		},
		OnPlay: func(cue catalog.Cue) {
			go preloader.Play(ctx, cue)
		},
	})
	c.Start()
	defer c.Close()

	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// assetFetcher loads asset bytes from the server's /assets/ route.
func assetFetcher(httpBase string) client.Fetcher {
	httpClient := &http.Client{Timeout: 30 * time.Second}
	return func(ctx context.Context, path string) ([]byte, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, httpBase+"/assets/"+path, nil)
		if err != nil {
			return nil, err
		}
		res, err := httpClient.Do(req)
		if err != nil {
			return nil, err
		}
		defer res.Body.Close()
		if res.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("GET %s: %s", path, res.Status)
		}
		return io.ReadAll(res.Body)
	}
}

// overlayPlayer is the terminal stand-in for a browser audio/image element:
// playing means reporting the cue part to the UI.
type overlayPlayer struct {
	path    string
	size    int
	program *tea.Program
}

func (p *overlayPlayer) Play() error {
	p.program.Send(playedMsg{path: p.path, size: p.size, at: time.Now()})
	return nil
}

func (p *overlayPlayer) Stop() {}
