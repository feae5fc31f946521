package usecase

import (
	"context"
	"sync"
	"time"

	"github.com/arklim/learning-tracker-core/internal/core/domain"
	"github.com/arklim/learning-tracker-core/internal/repository"
)

type memoryUserRepo struct {
	mu    sync.Mutex
	users map[string]*domain.User

	getByIDErr        error
	addPointsErr      error
	updateLevelErr    error
	updatePasswordErr error
}

func newMemoryUserRepo(users ...domain.User) *memoryUserRepo {
	repo := &memoryUserRepo{users: make(map[string]*domain.User, len(users))}
	for _, user := range users {
		u := user
		repo.users[user.ID] = &u
	}
	return repo
}

func (r *memoryUserRepo) Create(_ context.Context, user domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u := user
	r.users[user.ID] = &u
	return nil
}

func (r *memoryUserRepo) GetByID(_ context.Context, id string) (*domain.User, error) {
	if r.getByIDErr != nil {
		return nil, r.getByIDErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copied := *user
	return &copied, nil
}

func (r *memoryUserRepo) GetByUsername(_ context.Context, username string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, user := range r.users {
		if user.Username == username {
			copied := *user
			return &copied, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *memoryUserRepo) AddPoints(_ context.Context, id string, delta int) (int, error) {
	if r.addPointsErr != nil {
		return 0, r.addPointsErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.users[id]
	if !ok {
		return 0, repository.ErrNotFound
	}
	user.Points += delta
	if user.Points < 0 {
		user.Points = 0
	}
	return user.Points, nil
}

func (r *memoryUserRepo) UpdateLevel(_ context.Context, id string, level string) error {
	if r.updateLevelErr != nil {
		return r.updateLevelErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	user.Level = level
	return nil
}

func (r *memoryUserRepo) UpdateStatus(_ context.Context, id string, status domain.UserStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	user.Status = status
	return nil
}

func (r *memoryUserRepo) UpdatePassword(_ context.Context, id string, passwordHash string, _ time.Time) error {
	if r.updatePasswordErr != nil {
		return r.updatePasswordErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	user.PasswordHash = passwordHash
	return nil
}

func (r *memoryUserRepo) storedHash(id string) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if user, ok := r.users[id]; ok {
		return user.PasswordHash
	}
	return ""
}

type memorySessionRepo struct {
	mu       sync.Mutex
	sessions map[string]*domain.Session

	deactivateErr error
}

func newMemorySessionRepo(sessions ...domain.Session) *memorySessionRepo {
	repo := &memorySessionRepo{sessions: make(map[string]*domain.Session, len(sessions))}
	for _, session := range sessions {
		s := session
		repo.sessions[session.Token] = &s
	}
	return repo
}

func (r *memorySessionRepo) Create(_ context.Context, session domain.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s := session
	r.sessions[session.Token] = &s
	return nil
}

func (r *memorySessionRepo) GetByToken(_ context.Context, token string) (*domain.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	session, ok := r.sessions[token]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copied := *session
	return &copied, nil
}

func (r *memorySessionRepo) ListActiveByUser(_ context.Context, userID string) ([]domain.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var active []domain.Session
	for _, session := range r.sessions {
		if session.UserID == userID && session.Active {
			active = append(active, *session)
		}
	}
	return active, nil
}

func (r *memorySessionRepo) DeactivateAllForUser(_ context.Context, userID string) (int, error) {
	if r.deactivateErr != nil {
		return 0, r.deactivateErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	count := 0
	for _, session := range r.sessions {
		if session.UserID == userID && session.Active {
			session.Active = false
			count++
		}
	}
	return count, nil
}

func (r *memorySessionRepo) activeCount(userID string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	count := 0
	for _, session := range r.sessions {
		if session.UserID == userID && session.Active {
			count++
		}
	}
	return count
}

type memoryThresholdRepo struct {
	mu         sync.Mutex
	thresholds []domain.LevelThreshold

	listErr error
}

func newMemoryThresholdRepo(thresholds ...domain.LevelThreshold) *memoryThresholdRepo {
	return &memoryThresholdRepo{thresholds: thresholds}
}

func (r *memoryThresholdRepo) List(_ context.Context) ([]domain.LevelThreshold, error) {
	if r.listErr != nil {
		return nil, r.listErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.LevelThreshold, len(r.thresholds))
	copy(out, r.thresholds)
	return out, nil
}

func (r *memoryThresholdRepo) Replace(_ context.Context, thresholds []domain.LevelThreshold) error {
	if err := domain.ValidateLadder(thresholds); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.thresholds = make([]domain.LevelThreshold, len(thresholds))
	copy(r.thresholds, thresholds)
	return nil
}

type memoryAuditRepo struct {
	mu      sync.Mutex
	records []domain.AuditRecord

	appendErr error
}

func (r *memoryAuditRepo) Append(_ context.Context, record domain.AuditRecord) error {
	if r.appendErr != nil {
		return r.appendErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = append(r.records, record)
	return nil
}

func (r *memoryAuditRepo) ListBySubject(_ context.Context, userID string, limit int) ([]domain.AuditRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.AuditRecord
	for _, record := range r.records {
		if record.SubjectUserID != nil && *record.SubjectUserID == userID {
			out = append(out, record)
		}
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (r *memoryAuditRepo) all() []domain.AuditRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.AuditRecord, len(r.records))
	copy(out, r.records)
	return out
}

type capturingPublisher struct {
	mu          sync.Mutex
	rotated     []domain.CredentialRotatedEvent
	levels      []domain.LevelChangedEvent
	invalidated []domain.SessionsInvalidatedEvent
}

func (p *capturingPublisher) PublishCredentialRotated(_ context.Context, event domain.CredentialRotatedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.rotated = append(p.rotated, event)
	return nil
}

func (p *capturingPublisher) PublishLevelChanged(_ context.Context, event domain.LevelChangedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.levels = append(p.levels, event)
	return nil
}

func (p *capturingPublisher) PublishSessionsInvalidated(_ context.Context, event domain.SessionsInvalidatedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.invalidated = append(p.invalidated, event)
	return nil
}

type memoryRateLimitStore struct {
	mu       sync.Mutex
	attempts map[string][]time.Time
}

func newMemoryRateLimitStore() *memoryRateLimitStore {
	return &memoryRateLimitStore{attempts: make(map[string][]time.Time)}
}

func (s *memoryRateLimitStore) RecordAttempt(_ context.Context, identifier string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.attempts[identifier] = append(s.attempts[identifier], at)
	return nil
}

func (s *memoryRateLimitStore) CountAttempts(_ context.Context, identifier string, window time.Duration, reference time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cutoff := reference.Add(-window)
	count := 0
	for _, at := range s.attempts[identifier] {
		if !at.Before(cutoff) {
			count++
		}
	}
	return count, nil
}

func (s *memoryRateLimitStore) TrimWindow(_ context.Context, identifier string, window time.Duration, reference time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cutoff := reference.Add(-window)
	kept := s.attempts[identifier][:0]
	for _, at := range s.attempts[identifier] {
		if !at.Before(cutoff) {
			kept = append(kept, at)
		}
	}
	s.attempts[identifier] = kept
	return nil
}

func (s *memoryRateLimitStore) OldestAttempt(_ context.Context, identifier string, window time.Duration, reference time.Time) (time.Time, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cutoff := reference.Add(-window)
	var oldest time.Time
	found := false
	for _, at := range s.attempts[identifier] {
		if at.Before(cutoff) {
			continue
		}
		if !found || at.Before(oldest) {
			oldest = at
			found = true
		}
	}
	return oldest, found, nil
}
