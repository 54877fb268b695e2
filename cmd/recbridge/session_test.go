package main

import (
	"path/filepath"
	"testing"
	"time"
)

func tempSessionManager(t *testing.T) *SessionManager {
	t.Helper()
	return &SessionManager{sessionPath: filepath.Join(t.TempDir(), "session.json")}
}

func TestSessionRoundTrip(t *testing.T) {
	sm := tempSessionManager(t)

	if sm.IsLoggedIn() {
		t.Fatal("fresh manager should not be logged in")
	}

	in := &Session{
		Token:     "tok-123",
		TokenType: "Bearer",
		ExpiresAt: time.Now().Add(time.Hour),
		Username:  "admin",
		ServerURL: "http://127.0.0.1:11111/api",
	}
	if err := sm.SaveSession(in); err != nil {
		t.Fatalf("save: %v", err)
	}

	out, err := sm.LoadSession()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if out == nil || out.Token != in.Token || out.Username != in.Username {
		t.Fatalf("unexpected session: %+v", out)
	}
	if !sm.IsLoggedIn() {
		t.Fatal("expected logged in after save")
	}

	if err := sm.ClearSession(); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if sm.IsLoggedIn() {
		t.Fatal("expected logged out after clear")
	}
	// Clearing twice is fine.
	if err := sm.ClearSession(); err != nil {
		t.Fatalf("second clear: %v", err)
	}
}

func TestLoadSessionPurgesExpired(t *testing.T) {
	sm := tempSessionManager(t)

	if err := sm.SaveSession(&Session{
		Token:     "stale",
		ExpiresAt: time.Now().Add(-time.Minute),
	}); err != nil {
		t.Fatalf("save: %v", err)
	}

	out, err := sm.LoadSession()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if out != nil {
		t.Fatalf("expired session returned: %+v", out)
	}

	// The file is gone, not just ignored.
	if sm.IsLoggedIn() {
		t.Fatal("expired session still counts as logged in")
	}
}
