package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"github.com/arklim/learning-tracker-core/internal/core/domain"
)

func newSessionFixture(t *testing.T, users *memoryUserRepo, sessions *memorySessionRepo) (*SessionService, *capturingPublisher) {
	t.Helper()
	publisher := &capturingPublisher{}
	service := NewSessionService(sessions, users, time.Hour, publisher, nil, zaptest.NewLogger(t))
	return service, publisher
}

func TestLoginIssuesSession(t *testing.T) {
	users := newMemoryUserRepo(domain.User{ID: "u1", Username: "learner", PasswordHash: mustHash(t, "OldPass1!"), Status: domain.UserStatusActive})
	sessions := newMemorySessionRepo()
	service, _ := newSessionFixture(t, users, sessions)

	session, err := service.Login(context.Background(), "learner", "OldPass1!")
	if err != nil {
		t.Fatalf("Login returned error: %v", err)
	}
	if session.Token == "" {
		t.Fatal("issued session has empty token")
	}
	if session.UserID != "u1" {
		t.Fatalf("session user = %q, want u1", session.UserID)
	}
	if !session.Active {
		t.Fatal("issued session is not active")
	}
	if !session.ExpiresAt.After(session.CreatedAt) {
		t.Fatalf("expiry %s not after creation %s", session.ExpiresAt, session.CreatedAt)
	}

	stored, err := sessions.GetByToken(context.Background(), session.Token)
	if err != nil {
		t.Fatalf("GetByToken returned error: %v", err)
	}
	if stored.UserID != "u1" || !stored.Active {
		t.Fatalf("persisted session mismatch: %+v", stored)
	}
}

func TestLoginRejectsWrongSecret(t *testing.T) {
	users := newMemoryUserRepo(domain.User{ID: "u1", Username: "learner", PasswordHash: mustHash(t, "OldPass1!"), Status: domain.UserStatusActive})
	service, _ := newSessionFixture(t, users, newMemorySessionRepo())

	if _, err := service.Login(context.Background(), "learner", "WrongPass1!"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("got %v, want ErrInvalidCredentials", err)
	}
}

func TestLoginUnknownUser(t *testing.T) {
	service, _ := newSessionFixture(t, newMemoryUserRepo(), newMemorySessionRepo())

	if _, err := service.Login(context.Background(), "nobody", "OldPass1!"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("got %v, want ErrInvalidCredentials", err)
	}
}

func TestLoginPausedAccount(t *testing.T) {
	users := newMemoryUserRepo(domain.User{ID: "u1", Username: "learner", PasswordHash: mustHash(t, "OldPass1!"), Status: domain.UserStatusPaused})
	service, _ := newSessionFixture(t, users, newMemorySessionRepo())

	if _, err := service.Login(context.Background(), "learner", "OldPass1!"); !errors.Is(err, ErrAccountPaused) {
		t.Fatalf("got %v, want ErrAccountPaused", err)
	}
}

func TestIssueTokensAreUnique(t *testing.T) {
	sessions := newMemorySessionRepo()
	service, _ := newSessionFixture(t, newMemoryUserRepo(), sessions)

	seen := make(map[string]struct{})
	for i := 0; i < 20; i++ {
		session, err := service.Issue(context.Background(), "u1")
		if err != nil {
			t.Fatalf("Issue returned error: %v", err)
		}
		if _, dup := seen[session.Token]; dup {
			t.Fatalf("duplicate token issued: %s", session.Token)
		}
		seen[session.Token] = struct{}{}
	}
}

func TestInvalidateAllForUser(t *testing.T) {
	sessions := newMemorySessionRepo(
		activeSession("t1", "u1"),
		activeSession("t2", "u1"),
		activeSession("t3", "u2"),
	)
	service, publisher := newSessionFixture(t, newMemoryUserRepo(), sessions)

	count, err := service.InvalidateAllForUser(context.Background(), "u1", "credential_rotation")
	if err != nil {
		t.Fatalf("InvalidateAllForUser returned error: %v", err)
	}
	if count != 2 {
		t.Fatalf("count = %d, want 2", count)
	}
	if sessions.activeCount("u1") != 0 {
		t.Fatal("sessions remain active after sweep")
	}
	if sessions.activeCount("u2") != 1 {
		t.Fatal("sweep touched another user's sessions")
	}

	if len(publisher.invalidated) != 1 {
		t.Fatalf("published %d invalidation events, want 1", len(publisher.invalidated))
	}
	event := publisher.invalidated[0]
	if event.UserID != "u1" || event.Count != 2 || event.Reason != "credential_rotation" {
		t.Fatalf("unexpected invalidation event: %+v", event)
	}
}

func TestInvalidateAllForUserNoActiveSessions(t *testing.T) {
	service, publisher := newSessionFixture(t, newMemoryUserRepo(), newMemorySessionRepo())

	count, err := service.InvalidateAllForUser(context.Background(), "u1", "credential_rotation")
	if err != nil {
		t.Fatalf("InvalidateAllForUser returned error: %v", err)
	}
	if count != 0 {
		t.Fatalf("count = %d, want 0", count)
	}
	if len(publisher.invalidated) != 0 {
		t.Fatal("published invalidation event for empty sweep")
	}
}

func TestSessionIsLive(t *testing.T) {
	now := time.Now().UTC()
	session := domain.Session{Token: "t1", UserID: "u1", CreatedAt: now, ExpiresAt: now.Add(time.Hour), Active: true}

	if !session.IsLive(now) {
		t.Fatal("active unexpired session reported dead")
	}
	if session.IsLive(now.Add(2 * time.Hour)) {
		t.Fatal("expired session reported live")
	}

	session.Active = false
	if session.IsLive(now) {
		t.Fatal("deactivated session reported live")
	}
}
