package vector

import (
	"context"
	"fmt"
	"time"
)

type HistoryEntry struct {
	ID        int64     `db:"id" json:"id"`
	Question  string    `db:"question" json:"question"`
	SQL       string    `db:"sql" json:"sql"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// HistoryStore remembers asked questions and the SQL generated for them.
type HistoryStore struct {
	V *Service
}

func NewHistory(ctx context.Context, v *Service) (*HistoryStore, error) {
	_, err := v.DB.ExecContext(ctx, historySchemaSQL)
	if err != nil {
		return nil, fmt.Errorf("failed to create history schema: %w", err)
	}
	return &HistoryStore{V: v}, nil
}

func (s *HistoryStore) Store(ctx context.Context, question, sql string) error {
	args := map[string]interface{}{
		"question":   question,
		"sql":        sql,
		"created_at": time.Now().UTC(),
	}
	_, err := s.V.DB.NamedExecContext(ctx, storeHistorySQL, args)
	return err
}

func (s *HistoryStore) Recent(ctx context.Context, limit int) ([]HistoryEntry, error) {
	entries := make([]HistoryEntry, 0)
	if err := s.V.DB.SelectContext(ctx, &entries, recentHistorySQL, limit); err != nil {
		return nil, err
	}
	return entries, nil
}
