package rubric

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"
)

var (
	ErrNotFound  = errors.New("rubric not found")
	ErrConflict  = errors.New("rubric version already exists")
	ErrImmutable = errors.New("approved rubric is immutable")
)

// VersionInfo is version metadata without the full rubric body.
type VersionInfo struct {
	Version   string    `json:"version"`
	Status    Status    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Store persists versioned rubrics.
//
// Lifecycle rules enforced by every implementation: new rubrics are drafts,
// approval requires a clean validation report, approved versions cannot be
// modified or deleted, and Get with an empty version resolves the latest
// approved version.
type Store interface {
	Create(ctx context.Context, rb *Rubric) error
	Get(ctx context.Context, rubricID, version string) (*Rubric, error)
	ListVersions(ctx context.Context, rubricID string) ([]VersionInfo, error)
	Update(ctx context.Context, rb *Rubric) (*Rubric, error)
	Approve(ctx context.Context, rubricID, version string) (*Rubric, error)
	Delete(ctx context.Context, rubricID, version string) error
}

// NextPatchVersion bumps X.Y.Z to X.Y.(Z+1).
func NextPatchVersion(version string) (string, error) {
	parts := strings.Split(version, ".")
	if len(parts) != 3 {
		return "", fmt.Errorf("invalid semantic version %q", version)
	}
	patch, err := strconv.Atoi(parts[2])
	if err != nil {
		return "", fmt.Errorf("invalid semantic version %q", version)
	}
	return fmt.Sprintf("%s.%s.%d", parts[0], parts[1], patch+1), nil
}

func compareVersions(a, b string) int {
	pa := strings.Split(a, ".")
	pb := strings.Split(b, ".")
	for i := 0; i < 3 && i < len(pa) && i < len(pb); i++ {
		na, _ := strconv.Atoi(pa[i])
		nb, _ := strconv.Atoi(pb[i])
		if na != nb {
			if na < nb {
				return -1
			}
			return 1
		}
	}
	return 0
}

type memoryStore struct {
	mu      sync.RWMutex
	rubrics map[string]*Rubric // key: id|version
}

// NewInMemoryStore returns a Store backed by a map, for tests and offline use.
func NewInMemoryStore() Store {
	return &memoryStore{rubrics: map[string]*Rubric{}}
}

func memKey(id, version string) string { return id + "|" + version }

func (m *memoryStore) Create(_ context.Context, rb *Rubric) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := memKey(rb.RubricID, rb.Version)
	if _, ok := m.rubrics[k]; ok {
		return ErrConflict
	}
	cp := *rb
	cp.Status = StatusDraft
	now := time.Now().UTC()
	cp.CreatedAt = now
	cp.UpdatedAt = now
	m.rubrics[k] = &cp
	return nil
}

func (m *memoryStore) Get(_ context.Context, rubricID, version string) (*Rubric, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if version != "" {
		rb, ok := m.rubrics[memKey(rubricID, version)]
		if !ok {
			return nil, ErrNotFound
		}
		cp := *rb
		return &cp, nil
	}
	var best *Rubric
	for _, rb := range m.rubrics {
		if rb.RubricID != rubricID || rb.Status != StatusApproved {
			continue
		}
		if best == nil || compareVersions(rb.Version, best.Version) > 0 {
			best = rb
		}
	}
	if best == nil {
		return nil, ErrNotFound
	}
	cp := *best
	return &cp, nil
}

func (m *memoryStore) ListVersions(_ context.Context, rubricID string) ([]VersionInfo, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []VersionInfo
	for _, rb := range m.rubrics {
		if rb.RubricID == rubricID {
			out = append(out, VersionInfo{Version: rb.Version, Status: rb.Status, CreatedAt: rb.CreatedAt, UpdatedAt: rb.UpdatedAt})
		}
	}
	if len(out) == 0 {
		return nil, ErrNotFound
	}
	sort.Slice(out, func(i, j int) bool { return compareVersions(out[i].Version, out[j].Version) > 0 })
	return out, nil
}

func (m *memoryStore) Update(ctx context.Context, rb *Rubric) (*Rubric, error) {
	m.mu.Lock()
	latest := ""
	for _, existing := range m.rubrics {
		if existing.RubricID == rb.RubricID && (latest == "" || compareVersions(existing.Version, latest) > 0) {
			latest = existing.Version
		}
	}
	m.mu.Unlock()
	if latest == "" {
		return nil, ErrNotFound
	}
	next, err := NextPatchVersion(latest)
	if err != nil {
		return nil, err
	}
	cp := *rb
	cp.Version = next
	if err := m.Create(ctx, &cp); err != nil {
		return nil, err
	}
	return m.Get(ctx, cp.RubricID, cp.Version)
}

func (m *memoryStore) Approve(_ context.Context, rubricID, version string) (*Rubric, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rb, ok := m.rubrics[memKey(rubricID, version)]
	if !ok {
		return nil, ErrNotFound
	}
	if rb.Status == StatusApproved {
		return nil, ErrImmutable
	}
	if rep := Validate(rb); !rep.Valid {
		return nil, validationError(rep)
	}
	rb.Status = StatusApproved
	rb.UpdatedAt = time.Now().UTC()
	cp := *rb
	return &cp, nil
}

func (m *memoryStore) Delete(_ context.Context, rubricID, version string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rb, ok := m.rubrics[memKey(rubricID, version)]
	if !ok {
		return ErrNotFound
	}
	if rb.Status == StatusApproved {
		return ErrImmutable
	}
	delete(m.rubrics, memKey(rubricID, version))
	return nil
}

func validationError(rep Report) error {
	var msgs []string
	for _, is := range rep.Issues {
		if is.Severity == "error" {
			msgs = append(msgs, is.Message)
		}
	}
	return fmt.Errorf("rubric failed validation: %s", strings.Join(msgs, "; "))
}
