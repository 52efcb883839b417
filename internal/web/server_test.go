package web

import (
	"context"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"soundboard/internal/twitch"
)

func newTestServer(t *testing.T, tokens *twitch.TokenData) *http.ServeMux {
	t.Helper()
	dir := t.TempDir()

	store := twitch.NewStore(filepath.Join(dir, "tokens.json"))
	if tokens != nil {
		if err := store.Save(*tokens); err != nil {
			t.Fatal(err)
		}
	}
	auth := twitch.NewAuthenticator("client-id", "secret", store)

	assetsDir := filepath.Join(dir, "assets")
	if err := os.MkdirAll(assetsDir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(assetsDir, "a.mp3"), []byte("mp3bytes"), 0o644); err != nil {
		t.Fatal(err)
	}

	mux := http.NewServeMux()
	NewServer(auth, store, assetsDir, nil).SetupRoutes(mux)
	return mux
}

func validTokens() *twitch.TokenData {
	return &twitch.TokenData{
		AccessToken:  "acc",
		RefreshToken: "ref",
		Scope:        []string{"channel:read:redemptions"},
	}
}

func TestRootRedirectsToLoginWithoutTokens(t *testing.T) {
	mux := newTestServer(t, nil)

	r := httptest.NewRequest(http.MethodGet, "http://localhost:8667/", nil)
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, r)

	if w.Code != http.StatusFound {
		t.Fatalf("status = %d, want 302", w.Code)
	}
	loc, err := url.Parse(w.Header().Get("Location"))
	if err != nil {
		t.Fatalf("bad Location header: %v", err)
	}
	if loc.Host != "id.twitch.tv" {
		t.Errorf("redirect host = %q, want id.twitch.tv", loc.Host)
	}
	q := loc.Query()
	if q.Get("redirect_uri") != "http://localhost:8667/" {
		t.Errorf("redirect_uri = %q, want the request host back", q.Get("redirect_uri"))
	}
	if q.Get("scope") != "channel:read:redemptions" {
		t.Errorf("scope = %q", q.Get("scope"))
	}
}

func TestRootServesStatusPageWithTokens(t *testing.T) {
	mux := newTestServer(t, validTokens())

	r := httptest.NewRequest(http.MethodGet, "http://localhost:8667/", nil)
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, r)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Errorf("Content-Type = %q, want text/html", ct)
	}
	body, _ := io.ReadAll(w.Result().Body)
	if !strings.Contains(string(body), "<html") {
		t.Error("status page body does not look like HTML")
	}
	// The example overlay command must match the overlay's flag defaults:
	// push channel on 8666, HTTP on 8667.
	if !strings.Contains(string(body), "-ws ws://localhost:8666") {
		t.Error("status page example command points the overlay at the wrong ws port")
	}
	if !strings.Contains(string(body), "-http http://localhost:8667") {
		t.Error("status page example command points the overlay at the wrong http port")
	}
}

func TestRootRedirectsWhenScopeIsWrong(t *testing.T) {
	mux := newTestServer(t, &twitch.TokenData{
		AccessToken:  "acc",
		RefreshToken: "ref",
		Scope:        []string{"chat:read"},
	})

	r := httptest.NewRequest(http.MethodGet, "http://localhost:8667/", nil)
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, r)

	if w.Code != http.StatusFound {
		t.Errorf("status = %d, want 302; wrong-scope tokens must restart the login", w.Code)
	}
}

func TestUnknownPathIs404(t *testing.T) {
	mux := newTestServer(t, validTokens())

	r := httptest.NewRequest(http.MethodGet, "http://localhost:8667/nope", nil)
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, r)

	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", w.Code)
	}
	if !strings.Contains(w.Body.String(), "HTTP error 404") {
		t.Errorf("body = %q, want the 404 wording", w.Body.String())
	}
}

func TestAssetServing(t *testing.T) {
	mux := newTestServer(t, validTokens())

	r := httptest.NewRequest(http.MethodGet, "http://localhost:8667/assets/a.mp3", nil)
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, r)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if w.Body.String() != "mp3bytes" {
		t.Errorf("asset body = %q", w.Body.String())
	}
}

func TestListenAndServeReleasesPortOnCancel(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	port := ln.Addr().(*net.TCPAddr).Port
	addr := ln.Addr().String()
	ln.Close()

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		errCh <- ListenAndServe(ctx, "127.0.0.1", port, http.NewServeMux())
	}()

	// Wait until the port is bound before cancelling.
	deadline := time.Now().Add(2 * time.Second)
	for {
		conn, err := net.Dial("tcp", addr)
		if err == nil {
			conn.Close()
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("server never bound its port")
		}
		time.Sleep(10 * time.Millisecond)
	}

	cancel()
	select {
	case err := <-errCh:
		if err != http.ErrServerClosed {
			t.Errorf("ListenAndServe = %v, want ErrServerClosed", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("ListenAndServe did not stop after cancellation")
	}

	relisten, err := net.Listen("tcp", addr)
	if err != nil {
		t.Fatalf("port was not released: %v", err)
	}
	relisten.Close()
}

func TestMissingAssetIs404(t *testing.T) {
	mux := newTestServer(t, validTokens())

	r := httptest.NewRequest(http.MethodGet, "http://localhost:8667/assets/missing.mp3", nil)
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, r)

	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
}
