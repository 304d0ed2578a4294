// Package assistant turns questions about SEAD into SQL with a retrieval-augmented prompt
// and runs that SQL against the database.
package assistant

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog/log"

	"github.com/sead/sqlassist/pkg/llm"
	"github.com/sead/sqlassist/pkg/observability"
	"github.com/sead/sqlassist/pkg/training"
)

const (
	dialect            = "PostgreSQL"
	intermediateMarker = "intermediate_sql"
	maxSampleRows      = 50

	generateQuestionPrompt = `The user will give you SQL and you will try to guess what the business question this query is answering. Return just the question without any additional explanation. Do not reference the table name in the question.`
)

var ErrNotSQL = errors.New("response is not a runnable SELECT statement")

// Retriever returns training records related to a question.
type Retriever interface {
	SimilarQuestionSQL(ctx context.Context, question string) ([]training.Record, error)
	RelatedDDL(ctx context.Context, question string) ([]training.Record, error)
	RelatedDocumentation(ctx context.Context, question string) ([]training.Record, error)
}

type Submitter interface {
	Submit(ctx context.Context, messages []llm.Message) (string, error)
}

type History interface {
	Store(ctx context.Context, question, sql string) error
}

type Service struct {
	DB        *sqlx.DB
	Retriever Retriever
	LLM       Submitter
	History   History
	MaxTokens int
	SeeData   bool
}

func New(db *sqlx.DB, r Retriever, s Submitter, h History, maxTokens int, seeData bool) *Service {
	return &Service{
		DB:        db,
		Retriever: r,
		LLM:       s,
		History:   h,
		MaxTokens: maxTokens,
		SeeData:   seeData,
	}
}

// Answer is the outcome of a question: the generated SQL and, when it was run, its result.
type Answer struct {
	Question string  `json:"question"`
	SQL      string  `json:"sql"`
	Result   *Result `json:"result,omitempty"`
}

// GenerateSQL builds a prompt from the training records related to question, submits it
// and extracts the SQL from the response.
func (s *Service) GenerateSQL(ctx context.Context, question string) (string, error) {
	pairs, err := s.Retriever.SimilarQuestionSQL(ctx, question)
	if err != nil {
		return "", err
	}
	ddl, err := s.Retriever.RelatedDDL(ctx, question)
	if err != nil {
		return "", err
	}
	docs, err := s.Retriever.RelatedDocumentation(ctx, question)
	if err != nil {
		return "", err
	}
	docList := contents(docs)

	prompt := BuildPrompt(question, pairs, contents(ddl), docList, s.MaxTokens)
	resp, err := s.LLM.Submit(ctx, prompt)
	if err != nil {
		return "", err
	}

	if s.SeeData && strings.Contains(resp, intermediateMarker) {
		intermediate := ExtractSQL(resp)
		log.Debug().Str("sql", intermediate).Msg("Running intermediate SQL")
		res, err := s.RunSQL(ctx, intermediate)
		if err != nil {
			return "", fmt.Errorf("failed to run intermediate sql: %w", err)
		}
		docList = append(docList, fmt.Sprintf(
			"The following is a table of results from running the intermediate SQL query %s:\n\n%s",
			intermediate, res.Markdown(maxSampleRows)))
		prompt = BuildPrompt(question, pairs, contents(ddl), docList, s.MaxTokens)
		if resp, err = s.LLM.Submit(ctx, prompt); err != nil {
			return "", err
		}
	}

	sql := ExtractSQL(resp)
	log.Debug().Str("question", question).Str("sql", sql).Msg("Generated SQL")
	return sql, nil
}

// GenerateQuestion asks the LLM which question sql answers.
func (s *Service) GenerateQuestion(ctx context.Context, sql string) (string, error) {
	resp, err := s.LLM.Submit(ctx, []llm.Message{
		{Role: llm.RoleSystem, Content: generateQuestionPrompt},
		{Role: llm.RoleUser, Content: sql},
	})
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(resp), nil
}

// Ask generates SQL for question, runs it when it is a query and records it in the history.
func (s *Service) Ask(ctx context.Context, question string) (*Answer, error) {
	sql, err := s.GenerateSQL(ctx, question)
	if err != nil {
		observability.QuestionsTotal.WithLabelValues(observability.OutcomeFailure).Inc()
		return nil, err
	}
	answer := &Answer{Question: question, SQL: sql}
	if !IsSQLValid(sql) {
		observability.QuestionsTotal.WithLabelValues(observability.OutcomeNoSQL).Inc()
		return answer, ErrNotSQL
	}

	res, err := s.RunSQL(ctx, sql)
	if err != nil {
		observability.QuestionsTotal.WithLabelValues(observability.OutcomeFailure).Inc()
		return answer, err
	}
	answer.Result = res
	observability.QuestionsTotal.WithLabelValues(observability.OutcomeSQL).Inc()

	if s.History != nil {
		if err := s.History.Store(ctx, question, sql); err != nil {
			log.Warn().Err(err).Msg("Failed to store question history")
		}
	}
	return answer, nil
}

func contents(records []training.Record) []string {
	out := make([]string, 0, len(records))
	for _, r := range records {
		out = append(out, r.Content)
	}
	return out
}
