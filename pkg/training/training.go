// Package training keeps the assistant's knowledge store in step with the authored SEAD content.
//
// A run clears every stored training record and then repopulates the store from the
// database schema, the DDL files, the documentation strings and the example question/SQL pairs.
package training

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/rs/zerolog/log"

	"github.com/sead/sqlassist/pkg/observability"
)

const (
	KindDDL           = "ddl"
	KindDocumentation = "documentation"
	KindSQL           = "sql"
)

// Record is one unit of knowledge held by the store.
type Record struct {
	ID       string `json:"id" db:"id"`
	Kind     string `json:"training_data_type" db:"kind"`
	Question string `json:"question,omitempty" db:"question"`
	Content  string `json:"content" db:"content"`
}

// Example is a natural-language question paired with the SQL answering it.
type Example struct {
	Question string `yaml:"question" json:"question"`
	SQL      string `yaml:"sql" json:"sql"`
}

// Store is a trainable knowledge store. Identifiers are assigned by the store.
type Store interface {
	TrainingData(ctx context.Context) ([]Record, error)
	RemoveTrainingData(ctx context.Context, id string) error
	AddDDL(ctx context.Context, ddl string) (string, error)
	AddDocumentation(ctx context.Context, doc string) (string, error)
	AddQuestionSQL(ctx context.Context, question, sql string) (string, error)
}

// QuestionGenerator derives the question answered by a SQL statement.
type QuestionGenerator interface {
	GenerateQuestion(ctx context.Context, sql string) (string, error)
}

// Sources is the authored content a run ingests.
type Sources struct {
	DDLFiles      []string
	Documentation []string
	Examples      []Example
}

// Summary counts what a run removed and ingested.
type Summary struct {
	Removed       int
	Schema        int
	DDL           int
	Documentation int
	Examples      int
}

type Manager struct {
	Store     Store
	Questions QuestionGenerator
}

func New(store Store, questions QuestionGenerator) *Manager {
	return &Manager{Store: store, Questions: questions}
}

// Clear removes every record currently in the store. A failed delete leaves that record in
// place and does not stop the remaining deletes; all failures are returned together.
func (m *Manager) Clear(ctx context.Context) (int, error) {
	records, err := m.Store.TrainingData(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list training data: %w", err)
	}

	removed := 0
	var errs []error
	for _, r := range records {
		if err := m.Store.RemoveTrainingData(ctx, r.ID); err != nil {
			log.Warn().Str("id", r.ID).Err(err).Msg("Failed to remove training record")
			errs = append(errs, fmt.Errorf("remove %s: %w", r.ID, err))
			continue
		}
		removed++
		observability.TrainingRecordsRemoved.Inc()
	}
	log.Info().Int("removed", removed).Int("failed", len(errs)).Msg("Cleared training data")

	if len(errs) > 0 {
		return removed, fmt.Errorf("failed to clear training data: %w", errors.Join(errs...))
	}
	return removed, nil
}

// PopulateSchema introspects the database and ingests one documentation record per table.
func (m *Manager) PopulateSchema(ctx context.Context, db Querier) (int, error) {
	plan, err := m.Plan(ctx, db)
	if err != nil {
		return 0, err
	}
	for i, item := range plan {
		if _, err := m.Store.AddDocumentation(ctx, item.Value); err != nil {
			return i, fmt.Errorf("failed to train plan item %s.%s: %w", item.Group, item.Name, err)
		}
		ingested(KindDocumentation)
		log.Debug().Str("group", item.Group).Str("table", item.Name).Msg("Trained schema fragment")
	}
	return len(plan), nil
}

// Plan builds the schema training plan without ingesting it.
func (m *Manager) Plan(ctx context.Context, db Querier) ([]PlanItem, error) {
	columns, err := Introspect(ctx, db)
	if err != nil {
		return nil, err
	}
	return BuildPlan(columns), nil
}

// PopulateDDL ingests the full text of each file, unmodified.
func (m *Manager) PopulateDDL(ctx context.Context, paths []string) (int, error) {
	for i, p := range paths {
		ddl, err := os.ReadFile(p)
		if err != nil {
			return i, fmt.Errorf("failed to read ddl file: %w", err)
		}
		if _, err := m.Store.AddDDL(ctx, string(ddl)); err != nil {
			return i, fmt.Errorf("failed to train ddl %s: %w", p, err)
		}
		ingested(KindDDL)
		log.Debug().Str("path", p).Msg("Trained DDL")
	}
	return len(paths), nil
}

func (m *Manager) PopulateDocumentation(ctx context.Context, docs []string) (int, error) {
	for i, doc := range docs {
		if _, err := m.Store.AddDocumentation(ctx, doc); err != nil {
			return i, fmt.Errorf("failed to train documentation: %w", err)
		}
		ingested(KindDocumentation)
	}
	return len(docs), nil
}

// PopulateExamples ingests each question/SQL pair. An example without a question gets one
// generated from its SQL when a generator is set.
func (m *Manager) PopulateExamples(ctx context.Context, examples []Example) (int, error) {
	for i, ex := range examples {
		question := ex.Question
		if question == "" && m.Questions != nil {
			q, err := m.Questions.GenerateQuestion(ctx, ex.SQL)
			if err != nil {
				return i, fmt.Errorf("failed to generate question for example %d: %w", i, err)
			}
			question = q
		}
		if _, err := m.Store.AddQuestionSQL(ctx, question, ex.SQL); err != nil {
			return i, fmt.Errorf("failed to train example %d: %w", i, err)
		}
		ingested(KindSQL)
		log.Debug().Str("question", question).Msg("Trained example")
	}
	return len(examples), nil
}

// Run clears the store and repopulates it in the order schema, DDL, documentation, examples.
// The first error aborts the run.
func (m *Manager) Run(ctx context.Context, db Querier, src Sources) (Summary, error) {
	var (
		s   Summary
		err error
	)
	if s.Removed, err = m.Clear(ctx); err != nil {
		return s, err
	}
	if s.Schema, err = m.PopulateSchema(ctx, db); err != nil {
		return s, err
	}
	if s.DDL, err = m.PopulateDDL(ctx, src.DDLFiles); err != nil {
		return s, err
	}
	if s.Documentation, err = m.PopulateDocumentation(ctx, src.Documentation); err != nil {
		return s, err
	}
	if s.Examples, err = m.PopulateExamples(ctx, src.Examples); err != nil {
		return s, err
	}
	log.Info().
		Int("schema", s.Schema).
		Int("ddl", s.DDL).
		Int("documentation", s.Documentation).
		Int("examples", s.Examples).
		Msg("Training completed")
	return s, nil
}

func ingested(kind string) {
	observability.TrainingRecordsIngested.WithLabelValues(kind).Inc()
}
