package client

import (
	"context"
	"log"
	"sync"
	"time"

	"soundboard/internal/catalog"
)

// DefaultLoadTimeout bounds how long Play waits for one catalog generation's
// assets before skipping the parts that never became ready.
const DefaultLoadTimeout = 10 * time.Second

// Player is a preloaded, playable handle for one asset.
type Player interface {
	Play() error
	Stop()
}

// PlayerFactory builds a playable handle from fetched asset bytes.
type PlayerFactory func(path string, data []byte) (Player, error)

// Fetcher retrieves the raw bytes of an asset by its catalog path.
type Fetcher func(ctx context.Context, path string) ([]byte, error)

// asset is one cache entry: a readiness future plus the handle it resolves
// to. ready is closed exactly once, after player and err are set.
type asset struct {
	path   string
	ready  chan struct{}
	player Player
	err    error
}

// Preloader is the playback readiness coordinator. Preload rebuilds the
// whole cache for a new catalog generation; Play waits for every part of a
// cue to be ready, then fires all parts back to back. A play raced by a
// newer Preload is a no-op: it captures the generation up front and checks
// it again after its waits resolve.
type Preloader struct {
	fetch       Fetcher
	factory     PlayerFactory
	loadTimeout time.Duration

	mu     sync.Mutex
	gen    uint64
	assets map[string]*asset
}

func NewPreloader(fetch Fetcher, factory PlayerFactory, loadTimeout time.Duration) *Preloader {
	if loadTimeout <= 0 {
		loadTimeout = DefaultLoadTimeout
	}
	return &Preloader{
		fetch:       fetch,
		factory:     factory,
		loadTimeout: loadTimeout,
		assets:      make(map[string]*asset),
	}
}

// Preload replaces the asset cache with handles for the given catalog.
// Previously loaded players are stopped; in-flight loads from the old
// generation are superseded, not cancelled — their results are simply
// never played.
func (p *Preloader) Preload(ctx context.Context, cues []catalog.Cue) {
	fresh := make(map[string]*asset)
	for _, cue := range cues {
		for _, path := range cue.AssetPaths() {
			if _, ok := fresh[path]; ok {
				continue
			}
			fresh[path] = &asset{path: path, ready: make(chan struct{})}
		}
	}

	p.mu.Lock()
	p.gen++
	old := p.assets
	p.assets = fresh
	p.mu.Unlock()

	for _, a := range old {
		select {
		case <-a.ready:
			if a.player != nil {
				a.player.Stop()
			}
		default:
			// Still loading; dereferenced, never played.
		}
	}

	for _, a := range fresh {
		go p.load(ctx, a)
	}
}

func (p *Preloader) load(ctx context.Context, a *asset) {
	defer close(a.ready)

	data, err := p.fetch(ctx, a.path)
	if err != nil {
		a.err = err
		return
	}
	player, err := p.factory(a.path, data)
	if err != nil {
		a.err = err
		return
	}
	a.player = player
}

// Play waits for every preloaded part of the cue to become ready, then
// invokes all their play functions in sequence. Parts with no cache entry
// are skipped silently; parts that fail to load or outlive the load timeout
// are logged and skipped. If the catalog generation advanced while waiting,
// the whole play is dropped.
func (p *Preloader) Play(ctx context.Context, cue catalog.Cue) {
	p.mu.Lock()
	gen := p.gen
	var parts []*asset
	for _, path := range cue.AssetPaths() {
		if a, ok := p.assets[path]; ok {
			parts = append(parts, a)
		}
	}
	p.mu.Unlock()

	if len(parts) == 0 {
		return
	}

	deadline := time.NewTimer(p.loadTimeout)
	defer deadline.Stop()

	// The deadline channel fires once and covers the whole cue: once it
	// expires, every still-loading part is skipped without blocking.
	expired := false
	var players []Player
	for _, a := range parts {
		if !expired {
			select {
			case <-a.ready:
			case <-deadline.C:
				expired = true
			case <-ctx.Done():
				return
			}
		}
		select {
		case <-a.ready:
			if a.err != nil {
				log.Printf("asset %s failed to load, skipping: %v", a.path, a.err)
				continue
			}
			players = append(players, a.player)
		default:
			log.Printf("asset %s not ready after %v, skipping.", a.path, p.loadTimeout)
		}
	}

	p.mu.Lock()
	stale := p.gen != gen
	p.mu.Unlock()
	if stale {
		return
	}

	for _, player := range players {
		if err := player.Play(); err != nil {
			log.Printf("play failed: %v", err)
		}
	}
}

// Generation returns the current catalog generation.
func (p *Preloader) Generation() uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.gen
}
