package services

import (
	"context"
	"encoding/base64"
	"io"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/shiftline/shiftline/internal/models"
	pkglogger "github.com/shiftline/shiftline/pkg/logger"
)

// Shared fakes for service unit tests. The integration suite covers
// the real repositories; these keep the business logic tests fast.

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testAuditLogger() *pkglogger.AuditLogger {
	return pkglogger.NewAuditLogger(testLogger())
}

func testEncryptionKey() []byte {
	key, _ := base64.StdEncoding.DecodeString("MDEyMzQ1Njc4OWFiY2RlZjAxMjM0NTY3ODlhYmNkZWY=")
	return key
}

type fakeUserRepo struct {
	mu    sync.Mutex
	users map[string]*models.User // by id
}

func newFakeUserRepo(users ...*models.User) *fakeUserRepo {
	repo := &fakeUserRepo{users: make(map[string]*models.User)}
	for _, u := range users {
		repo.users[u.ID] = u
	}
	return repo
}

func (r *fakeUserRepo) GetByUsername(_ context.Context, username string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Username == username {
			clone := *u
			return &clone, nil
		}
	}
	return nil, models.ErrNotFound
}

func (r *fakeUserRepo) GetByIDGlobal(_ context.Context, id string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u, ok := r.users[id]; ok {
		clone := *u
		return &clone, nil
	}
	return nil, models.ErrNotFound
}

type fakeMethodRepo struct {
	mu      sync.Mutex
	nextID  int
	methods map[string]*models.MFAMethod
}

func newFakeMethodRepo() *fakeMethodRepo {
	return &fakeMethodRepo{methods: make(map[string]*models.MFAMethod)}
}

func (r *fakeMethodRepo) Create(_ context.Context, method *models.MFAMethod) (*models.MFAMethod, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	method.ID = "method-" + strconv.Itoa(r.nextID)
	method.CreatedAt = time.Now()
	clone := *method
	r.methods[method.ID] = &clone
	out := clone
	return &out, nil
}

func (r *fakeMethodRepo) GetByID(_ context.Context, userID, id string) (*models.MFAMethod, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if m, ok := r.methods[id]; ok && m.UserID == userID {
		clone := *m
		return &clone, nil
	}
	return nil, models.ErrNotFound
}

func (r *fakeMethodRepo) ListByUser(_ context.Context, userID string) ([]*models.MFAMethod, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*models.MFAMethod, 0)
	for _, m := range r.methods {
		if m.UserID == userID {
			clone := *m
			out = append(out, &clone)
		}
	}
	return out, nil
}

// Default first, then oldest verified method, matching the repository
// query's ORDER BY is_default DESC, created_at.
func (r *fakeMethodRepo) GetDefaultVerified(_ context.Context, userID string) (*models.MFAMethod, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var best *models.MFAMethod
	for _, m := range r.methods {
		if m.UserID != userID || !m.Verified || !m.Enabled {
			continue
		}
		if best == nil {
			best = m
			continue
		}
		if m.Default != best.Default {
			if m.Default {
				best = m
			}
			continue
		}
		if m.CreatedAt.Before(best.CreatedAt) ||
			(m.CreatedAt.Equal(best.CreatedAt) && m.ID < best.ID) {
			best = m
		}
	}
	if best == nil {
		return nil, models.ErrNotFound
	}
	clone := *best
	return &clone, nil
}

func (r *fakeMethodRepo) MarkVerified(_ context.Context, userID, id string, makeDefault bool) (*models.MFAMethod, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.methods[id]
	if !ok || m.UserID != userID {
		return nil, models.ErrNotFound
	}
	m.Verified = true
	m.Enabled = true
	m.Default = makeDefault
	m.ConfirmCodeHash = ""
	m.ConfirmExpiresAt = nil
	clone := *m
	return &clone, nil
}

func (r *fakeMethodRepo) SetDefault(_ context.Context, userID, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	target, ok := r.methods[id]
	if !ok || target.UserID != userID || !target.Verified {
		return models.ErrMFAMethodNotFound
	}
	for _, m := range r.methods {
		if m.UserID == userID {
			m.Default = false
		}
	}
	target.Default = true
	return nil
}

func (r *fakeMethodRepo) UpdateConfirmCode(_ context.Context, userID, id, codeHash string, expiresAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.methods[id]
	if !ok || m.UserID != userID || m.Verified {
		return models.ErrMFAMethodNotFound
	}
	m.ConfirmCodeHash = codeHash
	m.ConfirmExpiresAt = &expiresAt
	return nil
}

func (r *fakeMethodRepo) TouchLastUsed(_ context.Context, id string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if m, ok := r.methods[id]; ok {
		m.LastUsedAt = &at
	}
	return nil
}

func (r *fakeMethodRepo) Delete(_ context.Context, userID, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if m, ok := r.methods[id]; ok && m.UserID == userID {
		delete(r.methods, id)
		return nil
	}
	return models.ErrMFAMethodNotFound
}

// recorderEmail captures outgoing codes instead of sending mail.
type recorderEmail struct {
	mu       sync.Mutex
	lastTo   string
	lastCode string
	sends    int
}

func (r *recorderEmail) SendMFACode(_ context.Context, email, code string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lastTo = email
	r.lastCode = code
	r.sends++
	return nil
}

func (r *recorderEmail) LastCode() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lastCode
}

func (r *recorderEmail) Sends() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sends
}
