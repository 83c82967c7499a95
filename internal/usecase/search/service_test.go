package search

import (
	"context"
	"errors"
	"testing"

	"github.com/kailas-cloud/suntan/internal/db"
	"github.com/kailas-cloud/suntan/internal/domain"
)

// --- Mocks ---

type mockSearcher struct {
	result *db.SearchResult
	err    error
	last   *db.TextQuery
}

func (m *mockSearcher) Search(_ context.Context, q *db.TextQuery) (*db.SearchResult, error) {
	m.last = q
	return m.result, m.err
}

// --- Tests ---

func TestSearch_Delegates(t *testing.T) {
	want := &db.SearchResult{Total: 1, Entries: []db.SearchEntry{{ID: "1", Score: 2.5}}}
	m := &mockSearcher{result: want}

	got, err := New(m).Search(context.Background(), "  ada lovelace ", []string{"name", " bio", "name", ""}, 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != want {
		t.Errorf("expected searcher result to be returned")
	}
	if m.last.Query != "ada lovelace" {
		t.Errorf("query = %q", m.last.Query)
	}
	if len(m.last.Fields) != 2 || m.last.Fields[0] != "name" || m.last.Fields[1] != "bio" {
		t.Errorf("fields = %v", m.last.Fields)
	}
	if m.last.Limit != 5 {
		t.Errorf("limit = %d", m.last.Limit)
	}
}

func TestSearch_Limits(t *testing.T) {
	tests := []struct {
		name  string
		max   int
		limit int
		want  int
	}{
		{"default", 0, 0, db.DefaultSearchLimit},
		{"clamped to default cap", 0, 1000, DefaultMaxLimit},
		{"custom cap", 20, 50, 20},
		{"under cap", 20, 7, 7},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := &mockSearcher{result: &db.SearchResult{}}
			if _, err := New(m).WithMaxLimit(tt.max).Search(context.Background(), "q", nil, tt.limit); err != nil {
				t.Fatal(err)
			}
			if m.last.Limit != tt.want {
				t.Errorf("limit = %d, want %d", m.last.Limit, tt.want)
			}
			if m.last.Fields != nil {
				t.Errorf("fields = %v, want nil", m.last.Fields)
			}
		})
	}
}

func TestSearch_InvalidQuery(t *testing.T) {
	m := &mockSearcher{}
	svc := New(m)

	if _, err := svc.Search(context.Background(), "   ", nil, 1); !errors.Is(err, domain.ErrInvalidQuery) {
		t.Errorf("blank: got %v", err)
	}
	if _, err := svc.Search(context.Background(), "q", nil, -1); !errors.Is(err, domain.ErrInvalidQuery) {
		t.Errorf("negative limit: got %v", err)
	}
	if m.last != nil {
		t.Error("searcher must not be called for invalid queries")
	}
}

func TestSearch_EngineError(t *testing.T) {
	m := &mockSearcher{err: domain.ErrInvalidQuery}
	_, err := New(m).Search(context.Background(), "q", []string{"nope"}, 1)
	if !errors.Is(err, domain.ErrInvalidQuery) {
		t.Errorf("got %v", err)
	}
}
