package service

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"storefront-auth/internal/session/domain"
	"storefront-auth/internal/session/repository"
)

type memRepo struct {
	mu   sync.Mutex
	byID map[string]*domain.Session
}

func newMemRepo() *memRepo {
	return &memRepo{byID: make(map[string]*domain.Session)}
}

func (r *memRepo) Create(ctx context.Context, s *domain.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s2 := *s
	r.byID[s.ID] = &s2
	return nil
}

func (r *memRepo) GetByID(ctx context.Context, id string) (*domain.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.byID[id], nil
}

func (r *memRepo) GetByFamilyID(ctx context.Context, familyID string) (*domain.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.byID {
		if s.FamilyID == familyID {
			return s, nil
		}
	}
	return nil, nil
}

func (r *memRepo) ListByUser(ctx context.Context, userID string) ([]*domain.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.Session
	for _, s := range r.byID {
		if s.UserID == userID {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *memRepo) ListAll(ctx context.Context) ([]*domain.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.Session
	for _, s := range r.byID {
		out = append(out, s)
	}
	return out, nil
}

func (r *memRepo) DeleteByID(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.byID, id)
	return nil
}

func (r *memRepo) DeleteByFamilyID(ctx context.Context, familyID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, s := range r.byID {
		if s.FamilyID == familyID {
			delete(r.byID, id)
		}
	}
	return nil
}

func (r *memRepo) DeleteAllForUser(ctx context.Context, userID, excludeFamilyID string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for id, s := range r.byID {
		if s.UserID == userID && s.FamilyID != excludeFamilyID {
			delete(r.byID, id)
			n++
		}
	}
	return n, nil
}

func (r *memRepo) DeleteExpired(ctx context.Context, userID string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now().UTC()
	var n int64
	for id, s := range r.byID {
		if s.UserID == userID && s.Expired(now) {
			delete(r.byID, id)
			n++
		}
	}
	return n, nil
}

func (r *memRepo) DeleteAll(ctx context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := int64(len(r.byID))
	r.byID = make(map[string]*domain.Session)
	return n, nil
}

func (r *memRepo) Rotate(ctx context.Context, oldFamilyID string, next *domain.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	var oldID string
	for id, s := range r.byID {
		if s.FamilyID == oldFamilyID {
			oldID = id
			break
		}
	}
	if oldID == "" {
		return repository.ErrFamilyNotFound
	}
	delete(r.byID, oldID)
	s2 := *next
	r.byID[next.ID] = &s2
	return nil
}

func seedSession(t *testing.T, repo *memRepo, id, userID string, age time.Duration) *domain.Session {
	t.Helper()
	now := time.Now().UTC()
	s := &domain.Session{
		ID:        id,
		UserID:    userID,
		FamilyID:  "fam-" + id,
		ExpiresAt: now.Add(time.Hour),
		CreatedAt: now.Add(-age),
		UpdatedAt: now.Add(-age),
	}
	if err := repo.Create(context.Background(), s); err != nil {
		t.Fatalf("Create: %v", err)
	}
	return s
}

func TestService_ListForUser(t *testing.T) {
	repo := newMemRepo()
	svc := NewService(repo, nil)
	ctx := context.Background()

	seedSession(t, repo, "s1", "u1", 2*time.Hour)
	seedSession(t, repo, "s2", "u1", time.Hour)
	seedSession(t, repo, "s3", "u2", time.Hour)

	list, err := svc.ListForUser(ctx, "u1")
	if err != nil {
		t.Fatalf("ListForUser: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("len = %d, want 2", len(list))
	}
	if list[0].ID != "s2" || list[1].ID != "s1" {
		t.Errorf("order = %s,%s, want newest first (s2,s1)", list[0].ID, list[1].ID)
	}
}

func TestService_GetOwnership(t *testing.T) {
	repo := newMemRepo()
	svc := NewService(repo, nil)
	ctx := context.Background()

	seedSession(t, repo, "s1", "u1", 0)

	if _, err := svc.Get(ctx, "u1", "s1"); err != nil {
		t.Fatalf("Get own: %v", err)
	}
	if _, err := svc.Get(ctx, "u2", "s1"); !errors.Is(err, ErrNotOwner) {
		t.Errorf("other user's session: want ErrNotOwner, got %v", err)
	}
	if _, err := svc.Get(ctx, "u1", "missing"); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("missing session: want ErrSessionNotFound, got %v", err)
	}
}

func TestService_Delete(t *testing.T) {
	repo := newMemRepo()
	svc := NewService(repo, nil)
	ctx := context.Background()

	seedSession(t, repo, "s1", "u1", 0)

	if err := svc.Delete(ctx, "u2", "s1"); !errors.Is(err, ErrNotOwner) {
		t.Fatalf("other user's delete: want ErrNotOwner, got %v", err)
	}
	if err := svc.Delete(ctx, "u1", "s1"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := svc.Delete(ctx, "u1", "s1"); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("second delete: want ErrSessionNotFound, got %v", err)
	}
}

func TestService_DeleteAllForUserKeepsCurrent(t *testing.T) {
	repo := newMemRepo()
	svc := NewService(repo, nil)
	ctx := context.Background()

	cur := seedSession(t, repo, "s1", "u1", 0)
	seedSession(t, repo, "s2", "u1", time.Hour)
	seedSession(t, repo, "s3", "u1", 2*time.Hour)
	seedSession(t, repo, "s4", "u2", 0)

	n, err := svc.DeleteAllForUser(ctx, "u1", cur.FamilyID)
	if err != nil {
		t.Fatalf("DeleteAllForUser: %v", err)
	}
	if n != 2 {
		t.Errorf("revoked = %d, want 2", n)
	}
	if got, _ := repo.GetByID(ctx, "s1"); got == nil {
		t.Error("current session must survive")
	}
	if got, _ := repo.GetByID(ctx, "s4"); got == nil {
		t.Error("other user's session must survive")
	}
}

func TestService_DeleteExpired(t *testing.T) {
	repo := newMemRepo()
	svc := NewService(repo, nil)
	ctx := context.Background()

	live := seedSession(t, repo, "s1", "u1", 0)
	stale := seedSession(t, repo, "s2", "u1", 0)
	stale.ExpiresAt = time.Now().UTC().Add(-time.Minute)
	repo.byID["s2"] = stale

	n, err := svc.DeleteExpired(ctx, "u1")
	if err != nil {
		t.Fatalf("DeleteExpired: %v", err)
	}
	if n != 1 {
		t.Errorf("removed = %d, want 1", n)
	}
	if got, _ := repo.GetByID(ctx, live.ID); got == nil {
		t.Error("live session must survive")
	}
}

func TestService_AdminOps(t *testing.T) {
	repo := newMemRepo()
	svc := NewService(repo, nil)
	ctx := context.Background()

	seedSession(t, repo, "s1", "u1", 0)
	seedSession(t, repo, "s2", "u2", 0)

	all, err := svc.AdminListAll(ctx)
	if err != nil {
		t.Fatalf("AdminListAll: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("len = %d, want 2", len(all))
	}

	// Admin reads and deletes skip the ownership check.
	if _, err := svc.AdminGet(ctx, "s2"); err != nil {
		t.Fatalf("AdminGet: %v", err)
	}
	if err := svc.AdminDelete(ctx, "admin-1", "s2"); err != nil {
		t.Fatalf("AdminDelete: %v", err)
	}
	if _, err := svc.AdminGet(ctx, "s2"); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("deleted session: want ErrSessionNotFound, got %v", err)
	}

	n, err := svc.AdminDeleteAll(ctx, "admin-1")
	if err != nil {
		t.Fatalf("AdminDeleteAll: %v", err)
	}
	if n != 1 {
		t.Errorf("revoked = %d, want 1", n)
	}
}
