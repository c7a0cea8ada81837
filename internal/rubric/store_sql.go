package rubric

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"sort"
	"time"
)

// SQLStore persists rubrics as JSON bodies keyed by (rubric_id, version),
// with status and timestamps lifted into columns for querying.
type SQLStore struct {
	db *sql.DB
}

func NewSQLStore(db *sql.DB) *SQLStore {
	return &SQLStore{db: db}
}

func (s *SQLStore) Create(ctx context.Context, rb *Rubric) error {
	cp := *rb
	cp.Status = StatusDraft
	now := time.Now().UTC()
	cp.CreatedAt = now
	cp.UpdatedAt = now
	body, err := json.Marshal(&cp)
	if err != nil {
		return err
	}
	var exist int
	err = s.db.QueryRowContext(ctx,
		`SELECT 1 FROM rubrics WHERE rubric_id=$1 AND version=$2`,
		cp.RubricID, cp.Version).Scan(&exist)
	if err == nil {
		return ErrConflict
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO rubrics (rubric_id,version,status,body_json,created_at,updated_at)
		 VALUES ($1,$2,$3,$4,$5,$6)`,
		cp.RubricID, cp.Version, string(cp.Status), string(body), now.Unix(), now.Unix())
	return err
}

func (s *SQLStore) Get(ctx context.Context, rubricID, version string) (*Rubric, error) {
	var row *sql.Row
	if version != "" {
		row = s.db.QueryRowContext(ctx,
			`SELECT body_json FROM rubrics WHERE rubric_id=$1 AND version=$2`,
			rubricID, version)
	} else {
		// Latest approved. Versions are zero-padded nowhere, so order on the
		// parsed components rather than the raw string.
		rows, err := s.db.QueryContext(ctx,
			`SELECT body_json FROM rubrics WHERE rubric_id=$1 AND status='approved'`,
			rubricID)
		if err != nil {
			return nil, err
		}
		defer rows.Close()
		var best *Rubric
		for rows.Next() {
			var body string
			if err := rows.Scan(&body); err != nil {
				return nil, err
			}
			var rb Rubric
			if err := json.Unmarshal([]byte(body), &rb); err != nil {
				return nil, err
			}
			if best == nil || compareVersions(rb.Version, best.Version) > 0 {
				best = &rb
			}
		}
		if err := rows.Err(); err != nil {
			return nil, err
		}
		if best == nil {
			return nil, ErrNotFound
		}
		return best, nil
	}

	var body string
	if err := row.Scan(&body); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	var rb Rubric
	if err := json.Unmarshal([]byte(body), &rb); err != nil {
		return nil, err
	}
	return &rb, nil
}

func (s *SQLStore) ListVersions(ctx context.Context, rubricID string) ([]VersionInfo, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT version,status,created_at,updated_at FROM rubrics WHERE rubric_id=$1`,
		rubricID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []VersionInfo
	for rows.Next() {
		var vi VersionInfo
		var status string
		var created, updated int64
		if err := rows.Scan(&vi.Version, &status, &created, &updated); err != nil {
			return nil, err
		}
		vi.Status = Status(status)
		vi.CreatedAt = time.Unix(created, 0).UTC()
		vi.UpdatedAt = time.Unix(updated, 0).UTC()
		out = append(out, vi)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, ErrNotFound
	}
	sort.Slice(out, func(i, j int) bool { return compareVersions(out[i].Version, out[j].Version) > 0 })
	return out, nil
}

func (s *SQLStore) Update(ctx context.Context, rb *Rubric) (*Rubric, error) {
	versions, err := s.ListVersions(ctx, rb.RubricID)
	if err != nil {
		return nil, err
	}
	next, err := NextPatchVersion(versions[0].Version)
	if err != nil {
		return nil, err
	}
	cp := *rb
	cp.Version = next
	if err := s.Create(ctx, &cp); err != nil {
		return nil, err
	}
	return s.Get(ctx, cp.RubricID, cp.Version)
}

func (s *SQLStore) Approve(ctx context.Context, rubricID, version string) (*Rubric, error) {
	rb, err := s.Get(ctx, rubricID, version)
	if err != nil {
		return nil, err
	}
	if rb.Status == StatusApproved {
		return nil, ErrImmutable
	}
	if rep := Validate(rb); !rep.Valid {
		return nil, validationError(rep)
	}
	rb.Status = StatusApproved
	rb.UpdatedAt = time.Now().UTC()
	body, err := json.Marshal(rb)
	if err != nil {
		return nil, err
	}
	_, err = s.db.ExecContext(ctx,
		`UPDATE rubrics SET status='approved', body_json=$1, updated_at=$2
		 WHERE rubric_id=$3 AND version=$4`,
		string(body), rb.UpdatedAt.Unix(), rubricID, version)
	if err != nil {
		return nil, err
	}
	return rb, nil
}

func (s *SQLStore) Delete(ctx context.Context, rubricID, version string) error {
	rb, err := s.Get(ctx, rubricID, version)
	if err != nil {
		return err
	}
	if rb.Status == StatusApproved {
		return ErrImmutable
	}
	_, err = s.db.ExecContext(ctx,
		`DELETE FROM rubrics WHERE rubric_id=$1 AND version=$2`, rubricID, version)
	return err
}
