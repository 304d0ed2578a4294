package vector

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"

	"github.com/sead/sqlassist/pkg/training"
)

const defaultLimit = 10

var idSuffix = map[string]string{
	training.KindDDL:           "-ddl",
	training.KindDocumentation: "-doc",
	training.KindSQL:           "-sql",
}

// TrainingStore keeps training records with their embeddings in PostgreSQL.
type TrainingStore struct {
	V     *Service
	Limit int
}

var _ training.Store = (*TrainingStore)(nil)

func NewTrainingStore(ctx context.Context, v *Service, limit int) (*TrainingStore, error) {
	if _, err := v.DB.ExecContext(ctx, trainingSchema(v.Dimensions)); err != nil {
		return nil, fmt.Errorf("failed to create training schema: %w", err)
	}
	if limit <= 0 {
		limit = defaultLimit
	}
	return &TrainingStore{V: v, Limit: limit}, nil
}

func (s *TrainingStore) AddDDL(ctx context.Context, ddl string) (string, error) {
	return s.add(ctx, training.KindDDL, "", ddl, ddl)
}

func (s *TrainingStore) AddDocumentation(ctx context.Context, doc string) (string, error) {
	return s.add(ctx, training.KindDocumentation, "", doc, doc)
}

// AddQuestionSQL embeds the question together with its SQL so that either side can be matched.
func (s *TrainingStore) AddQuestionSQL(ctx context.Context, question, sql string) (string, error) {
	return s.add(ctx, training.KindSQL, question, sql, question+"\n"+sql)
}

func (s *TrainingStore) add(ctx context.Context, kind, question, content, embedText string) (string, error) {
	embedding, err := s.V.Embedder.GenerateEmbeddings(ctx, embedText)
	if err != nil {
		return "", err
	}
	id := uuid.NewString() + idSuffix[kind]
	args := map[string]interface{}{
		"id":         id,
		"kind":       kind,
		"question":   question,
		"content":    content,
		"created_at": time.Now().UTC(),
		"embedding":  pgvector.NewVector(embedding),
	}
	if _, err := s.V.DB.NamedExecContext(ctx, storeTrainingSQL, args); err != nil {
		return "", fmt.Errorf("failed to store %s record: %w", kind, err)
	}
	return id, nil
}

// TrainingData lists every stored record. There is no pagination.
func (s *TrainingStore) TrainingData(ctx context.Context) ([]training.Record, error) {
	records := make([]training.Record, 0)
	if err := s.V.DB.SelectContext(ctx, &records, listTrainingSQL); err != nil {
		return nil, err
	}
	return records, nil
}

// RemoveTrainingData deletes a record. Removing an unknown ID is not an error.
func (s *TrainingStore) RemoveTrainingData(ctx context.Context, id string) error {
	_, err := s.V.DB.ExecContext(ctx, removeTrainingSQL, id)
	return err
}

func (s *TrainingStore) SimilarQuestionSQL(ctx context.Context, question string) ([]training.Record, error) {
	return s.similar(ctx, training.KindSQL, question)
}

func (s *TrainingStore) RelatedDDL(ctx context.Context, question string) ([]training.Record, error) {
	return s.similar(ctx, training.KindDDL, question)
}

func (s *TrainingStore) RelatedDocumentation(ctx context.Context, question string) ([]training.Record, error) {
	return s.similar(ctx, training.KindDocumentation, question)
}

func (s *TrainingStore) similar(ctx context.Context, kind, question string) ([]training.Record, error) {
	embedding, err := s.V.Embedder.GenerateEmbeddings(ctx, question)
	if err != nil {
		return nil, err
	}
	records := make([]training.Record, 0)
	err = s.V.DB.SelectContext(ctx, &records, similarTrainingSQL, kind, pgvector.NewVector(embedding), s.Limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s records: %w", kind, err)
	}
	return records, nil
}
