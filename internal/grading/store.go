package grading

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
)

var ErrNotFound = errors.New("grading not found")

// Store persists completed gradings for later review.
type Store interface {
	Save(ctx context.Context, resp *Response) error
	Get(ctx context.Context, gradingID string) (*Response, error)
	ListByTranscript(ctx context.Context, transcriptID string) ([]*Response, error)
}

type memoryStore struct {
	mu   sync.RWMutex
	byID map[string]*Response
}

func NewMemoryStore() Store {
	return &memoryStore{byID: map[string]*Response{}}
}

func (m *memoryStore) Save(_ context.Context, resp *Response) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.byID[resp.GradingID] = resp
	return nil
}

func (m *memoryStore) Get(_ context.Context, gradingID string) (*Response, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	resp, ok := m.byID[gradingID]
	if !ok {
		return nil, ErrNotFound
	}
	return resp, nil
}

func (m *memoryStore) ListByTranscript(_ context.Context, transcriptID string) ([]*Response, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*Response
	for _, resp := range m.byID {
		if resp.TranscriptID == transcriptID {
			out = append(out, resp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt < out[j].CreatedAt })
	return out, nil
}

// SQLStore keeps the full response as JSON next to the columns queries need.
type SQLStore struct{ DB *sql.DB }

func NewSQLStore(db *sql.DB) *SQLStore { return &SQLStore{DB: db} }

func (s *SQLStore) Save(ctx context.Context, resp *Response) error {
	body, err := json.Marshal(resp)
	if err != nil {
		return fmt.Errorf("marshal grading: %w", err)
	}
	_, err = s.DB.ExecContext(ctx,
		`INSERT INTO gradings (id,rubric_id,rubric_version,transcript_id,overall_score,result_json,created_at)
		 VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		resp.GradingID, resp.RubricID, resp.RubricVersion, resp.TranscriptID,
		resp.OverallScore, string(body), resp.CreatedAt)
	return err
}

func (s *SQLStore) Get(ctx context.Context, gradingID string) (*Response, error) {
	var body string
	err := s.DB.QueryRowContext(ctx,
		`SELECT result_json FROM gradings WHERE id=$1`, gradingID).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	var resp Response
	if err := json.Unmarshal([]byte(body), &resp); err != nil {
		return nil, fmt.Errorf("unmarshal grading %s: %w", gradingID, err)
	}
	return &resp, nil
}

func (s *SQLStore) ListByTranscript(ctx context.Context, transcriptID string) ([]*Response, error) {
	rows, err := s.DB.QueryContext(ctx,
		`SELECT result_json FROM gradings WHERE transcript_id=$1 ORDER BY created_at`, transcriptID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*Response
	for rows.Next() {
		var body string
		if err := rows.Scan(&body); err != nil {
			return nil, err
		}
		var resp Response
		if err := json.Unmarshal([]byte(body), &resp); err != nil {
			return nil, err
		}
		out = append(out, &resp)
	}
	return out, rows.Err()
}
