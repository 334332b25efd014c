package store

import (
	"path/filepath"
	"testing"

	"financas/internal/models"
)

func openTestStore(t *testing.T) *SessionStore {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "state.db"))
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestSaveAndLoad(t *testing.T) {
	s := openTestStore(t)

	user := &models.User{ID: "u1", Name: "Maria", Email: "maria@example.com"}
	if err := s.Save("tok-123", user); err != nil {
		t.Fatalf("save: %v", err)
	}

	token, got, err := s.Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if token != "tok-123" {
		t.Errorf("token = %q, want tok-123", token)
	}
	if got == nil || *got != *user {
		t.Errorf("user = %+v, want %+v", got, user)
	}
}

func TestSaveOverwrites(t *testing.T) {
	s := openTestStore(t)

	if err := s.Save("old", &models.User{ID: "u1", Email: "a@x.com"}); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := s.Save("new", &models.User{ID: "u2", Email: "b@x.com"}); err != nil {
		t.Fatalf("second save: %v", err)
	}

	token, user, err := s.Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if token != "new" || user == nil || user.ID != "u2" {
		t.Errorf("got token=%q user=%+v, want the second pair", token, user)
	}
}

func TestLoadEmptyStore(t *testing.T) {
	s := openTestStore(t)

	token, user, err := s.Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if token != "" || user != nil {
		t.Errorf("expected no session, got token=%q user=%+v", token, user)
	}
}

func TestPartialPairIsNoSession(t *testing.T) {
	t.Run("token_without_user", func(t *testing.T) {
		s := openTestStore(t)
		if err := s.db.Create(&Entry{Key: keyToken, Value: "orphan"}).Error; err != nil {
			t.Fatalf("seed: %v", err)
		}

		token, user, err := s.Load()
		if err != nil {
			t.Fatalf("load: %v", err)
		}
		if token != "" || user != nil {
			t.Errorf("partial pair must mean no session, got token=%q user=%+v", token, user)
		}
	})

	t.Run("user_without_token", func(t *testing.T) {
		s := openTestStore(t)
		if err := s.db.Create(&Entry{Key: keyUser, Value: `{"id":"u1"}`}).Error; err != nil {
			t.Fatalf("seed: %v", err)
		}

		token, user, err := s.Load()
		if err != nil {
			t.Fatalf("load: %v", err)
		}
		if token != "" || user != nil {
			t.Errorf("partial pair must mean no session, got token=%q user=%+v", token, user)
		}
	})

	t.Run("corrupt_user_payload", func(t *testing.T) {
		s := openTestStore(t)
		entries := []Entry{
			{Key: keyToken, Value: "tok"},
			{Key: keyUser, Value: "not-json"},
		}
		if err := s.db.Create(&entries).Error; err != nil {
			t.Fatalf("seed: %v", err)
		}

		token, user, err := s.Load()
		if err != nil {
			t.Fatalf("load: %v", err)
		}
		if token != "" || user != nil {
			t.Errorf("corrupt user must mean no session, got token=%q user=%+v", token, user)
		}
	})
}

func TestClear(t *testing.T) {
	s := openTestStore(t)

	if err := s.Save("tok", &models.User{ID: "u1"}); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := s.Clear(); err != nil {
		t.Fatalf("clear: %v", err)
	}

	token, user, err := s.Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if token != "" || user != nil {
		t.Errorf("expected cleared store, got token=%q user=%+v", token, user)
	}

	// Clearing again is a no-op.
	if err := s.Clear(); err != nil {
		t.Fatalf("second clear: %v", err)
	}
}

func TestSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.db")

	s, err := Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := s.Save("tok", &models.User{ID: "u1", Email: "a@x.com"}); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	reopened, err := Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()

	token, user, err := reopened.Load()
	if err != nil {
		t.Fatalf("load after reopen: %v", err)
	}
	if token != "tok" || user == nil || user.ID != "u1" {
		t.Errorf("session did not survive reopen: token=%q user=%+v", token, user)
	}
}
