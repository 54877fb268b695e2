package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Session is the persisted login state: the bearer token plus the server it
// was issued by, so a token is never sent to a different daemon.
type Session struct {
	Token     string    `json:"token"`
	TokenType string    `json:"token_type"`
	ExpiresAt time.Time `json:"expires_at"`
	Username  string    `json:"username"`
	ServerURL string    `json:"server_url"`
}

func (s *Session) expired() bool {
	return time.Now().After(s.ExpiresAt)
}

// SessionManager reads and writes the session file under ~/.recbridge.
type SessionManager struct {
	sessionPath string
}

func NewSessionManager() *SessionManager {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	dir := filepath.Join(home, ".recbridge")
	_ = os.MkdirAll(dir, 0o700)
	return &SessionManager{sessionPath: filepath.Join(dir, "session.json")}
}

// SaveSession writes the session file, readable by the owner only.
func (sm *SessionManager) SaveSession(session *Session) error {
	data, err := json.MarshalIndent(session, "", "  ")
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	return os.WriteFile(sm.sessionPath, data, 0o600)
}

// LoadSession returns the stored session, or nil when none exists. An
// expired session is removed and reported as absent.
func (sm *SessionManager) LoadSession() (*Session, error) {
	data, err := os.ReadFile(sm.sessionPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var session Session
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	if session.expired() {
		_ = sm.ClearSession()
		return nil, nil
	}
	return &session, nil
}

// ClearSession removes the session file. Missing file is not an error.
func (sm *SessionManager) ClearSession() error {
	if err := os.Remove(sm.sessionPath); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// IsLoggedIn reports whether a non-expired session is stored.
func (sm *SessionManager) IsLoggedIn() bool {
	session, err := sm.LoadSession()
	return err == nil && session != nil
}
