// Package web serves the HTTP side of the bridge: the root page that drives
// the Twitch login flow, the embedded status page, and the sound/image
// assets referenced by cues.
package web

import (
	"context"
	"embed"
	"fmt"
	"log"
	"net/http"

	"soundboard/internal/twitch"
)

//go:embed static/index.html
var staticFiles embed.FS

// Server handles the OAuth authorization-code flow on "/" and serves assets.
// onAuthenticated runs after a successful code exchange; it starts the bot
// and notifies connected push-channel clients.
type Server struct {
	auth            *twitch.Authenticator
	store           *twitch.Store
	assetsDir       string
	onAuthenticated func(r *http.Request) error
}

func NewServer(auth *twitch.Authenticator, store *twitch.Store, assetsDir string, onAuthenticated func(r *http.Request) error) *Server {
	return &Server{
		auth:            auth,
		store:           store,
		assetsDir:       assetsDir,
		onAuthenticated: onAuthenticated,
	}
}

func (s *Server) SetupRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/", s.handleRoot)
	mux.Handle("/assets/", http.StripPrefix("/assets/", http.FileServer(http.Dir(s.assetsDir))))
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" && r.URL.Path != "/index.html" {
		http.Error(w, "HTTP error 404 - Resource not found", http.StatusNotFound)
		return
	}

	tokens := s.store.Load()
	if !tokens.Valid(twitch.RequiredScope) {
		s.handleLogin(w, r)
		return
	}

	s.serveIndex(w)
}

// handleLogin runs the authorization-code flow: without parameters it
// redirects to the Twitch login page; with a code it exchanges it for
// tokens, starts the bot and redirects back to "/".
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	redirectURI := fmt.Sprintf("http://%s/", r.Host)
	q := r.URL.Query()

	if !q.Has("code") && !q.Has("scope") {
		loginURL := s.auth.AuthorizeURL(redirectURI)
		log.Printf("Twitch tokens not initialized: redirecting to login page. %s", loginURL)
		http.Redirect(w, r, loginURL, http.StatusFound)
		return
	}

	if err := s.auth.ExchangeCode(r.Context(), q.Get("code"), redirectURI); err != nil {
		// A rejected exchange is surfaced to the caller, not fatal to the
		// process.
		log.Printf("Twitch code exchange failed: %v", err)
		http.Error(w, fmt.Sprintf("HTTP error 500 - %v", err), http.StatusInternalServerError)
		return
	}

	if s.onAuthenticated != nil {
		if err := s.onAuthenticated(r); err != nil {
			log.Printf("Post-login startup failed: %v", err)
			http.Error(w, fmt.Sprintf("HTTP error 500 - %v", err), http.StatusInternalServerError)
			return
		}
	}

	log.Printf("New Twitch tokens received: redirecting.")
	http.Redirect(w, r, redirectURI, http.StatusFound)
}

func (s *Server) serveIndex(w http.ResponseWriter) {
	html, err := staticFiles.ReadFile("static/index.html")
	if err != nil {
		http.Error(w, fmt.Sprintf("HTTP error 500 - %v", err), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(html)
}

// ListenAndServe serves until the context is cancelled, then releases the
// port so a later startup attempt can rebind it.
func ListenAndServe(ctx context.Context, host string, port int, mux *http.ServeMux) error {
	addr := fmt.Sprintf("%s:%d", host, port)
	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		<-ctx.Done()
		srv.Shutdown(context.Background())
	}()
	log.Printf("HTTP server running at http://%s/.", addr)
	return srv.ListenAndServe()
}
