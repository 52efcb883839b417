package twitch

import (
	"encoding/json"
	"os"
	"sync"
)

// TokenData mirrors the tokens.json layout. The file is treated as opaque
// storage: whatever the refresh flow hands us is merged over the existing
// content and written back.
type TokenData struct {
	AccessToken         string   `json:"accessToken"`
	RefreshToken        string   `json:"refreshToken"`
	ExpiresIn           int      `json:"expiresIn"`
	Scope               []string `json:"scope"`
	TokenType           string   `json:"tokenType"`
	ObtainmentTimestamp int64    `json:"obtainmentTimestamp"`
}

// Valid reports whether the tokens can drive the bot: both tokens present
// and the granted scope matches the required one exactly (order ignored).
func (t TokenData) Valid(requiredScope []string) bool {
	return t.AccessToken != "" && t.RefreshToken != "" && sameScope(t.Scope, requiredScope)
}

func sameScope(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for _, s := range a {
		found := false
		for _, o := range b {
			if s == o {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// Store reads and writes the local tokens file.
type Store struct {
	mu   sync.Mutex
	path string
}

func NewStore(path string) *Store {
	return &Store{path: path}
}

// Load returns the stored tokens. A missing or unreadable file yields the
// zero value, not an error: it just means the login flow has to run.
func (s *Store) Load() TokenData {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load()
}

func (s *Store) load() TokenData {
	var t TokenData
	data, err := os.ReadFile(s.path)
	if err != nil {
		return TokenData{}
	}
	if err := json.Unmarshal(data, &t); err != nil {
		return TokenData{}
	}
	return t
}

// Save merges the new token data over the existing file content, key by key,
// so fields this version doesn't know about survive a rewrite.
func (s *Store) Save(t TokenData) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	merged := map[string]json.RawMessage{}
	if existing, err := os.ReadFile(s.path); err == nil {
		_ = json.Unmarshal(existing, &merged)
	}

	updated, err := json.Marshal(t)
	if err != nil {
		return err
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(updated, &fields); err != nil {
		return err
	}
	for k, v := range fields {
		merged[k] = v
	}

	out, err := json.MarshalIndent(merged, "", "    ")
	if err != nil {
		return err
	}
	return os.WriteFile(s.path, out, 0o600)
}
