package vector

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/rs/zerolog/log"

	"github.com/sead/sqlassist/pkg/config"
)

// Embedder turns text into an embedding vector.
type Embedder interface {
	GenerateEmbeddings(ctx context.Context, text string) ([]float32, error)
}

type Service struct {
	DB         *sqlx.DB
	Embedder   Embedder
	Dimensions int64
}

// New connects to the training store database and enables the vector extension.
func New(ctx context.Context, cfg *config.Config, emb Embedder) (*Service, error) {
	db, err := sqlx.ConnectContext(ctx, "postgres", cfg.StoreDSN())
	if err != nil {
		return nil, fmt.Errorf("failed to connect to training store database: %w", err)
	}

	if _, err := db.ExecContext(ctx, "CREATE EXTENSION IF NOT EXISTS vector"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create vector extension: %w", err)
	}
	log.Debug().Str("host", cfg.StorePGHost).Str("database", cfg.StorePGDatabase).Msg("Connected to training store")

	return NewWithDB(db, emb, cfg.LLMEmbeddingDimensions), nil
}

func NewWithDB(db *sqlx.DB, emb Embedder, dimensions int64) *Service {
	return &Service{
		DB:         db,
		Embedder:   emb,
		Dimensions: dimensions,
	}
}

func (s *Service) Close() {
	s.DB.Close()
}
