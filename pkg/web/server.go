// Package web serves the chat front-end and its JSON API.
package web

import (
	"context"
	"embed"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"github.com/sead/sqlassist/pkg/assistant"
	"github.com/sead/sqlassist/pkg/observability"
	"github.com/sead/sqlassist/pkg/training"
	"github.com/sead/sqlassist/pkg/vector"
)

const (
	historyLimit = 50
	cacheLimit   = 1000
)

//go:embed static/index.html
var static embed.FS

// Assistant generates and runs SQL. It also names the question answered by SQL that is
// trained without one.
type Assistant interface {
	GenerateSQL(ctx context.Context, question string) (string, error)
	GenerateQuestion(ctx context.Context, sql string) (string, error)
	RunSQL(ctx context.Context, sql string) (*assistant.Result, error)
	ListTables(ctx context.Context) ([]string, error)
}

type History interface {
	Store(ctx context.Context, question, sql string) error
	Recent(ctx context.Context, limit int) ([]vector.HistoryEntry, error)
}

type cached struct {
	Question string
	SQL      string
}

type Server struct {
	Assistant Assistant
	Training  training.Store
	History   History

	mu         sync.RWMutex
	cache      map[string]cached
	order      []string
	cacheLimit int
}

func New(a Assistant, ts training.Store, h History) *Server {
	return &Server{
		Assistant:  a,
		Training:   ts,
		History:    h,
		cache:      make(map[string]cached),
		cacheLimit: cacheLimit,
	}
}

// Router builds the gin engine with every route registered.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), observability.Middleware())

	r.GET("/", s.index)
	r.GET("/healthz", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api/v0")
	{
		api.GET("/generate_sql", s.generateSQL)
		api.GET("/run_sql", s.runSQL)
		api.GET("/get_training_data", s.getTrainingData)
		api.POST("/train", s.train)
		api.POST("/remove_training_data", s.removeTrainingData)
		api.GET("/get_question_history", s.getQuestionHistory)
		api.GET("/list_tables", s.listTables)
	}
	return r
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{Addr: addr, Handler: s.Router()}
	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", addr).Msg("Serving web front-end")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// remember caches generated SQL under a new id, evicting the oldest entries beyond the limit.
func (s *Server) remember(question, sql string) string {
	id := uuid.NewString()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cache[id] = cached{Question: question, SQL: sql}
	s.order = append(s.order, id)
	for len(s.order) > s.cacheLimit {
		delete(s.cache, s.order[0])
		s.order = s.order[1:]
	}
	return id
}

func (s *Server) lookup(id string) (cached, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entry, ok := s.cache[id]
	return entry, ok
}

func fail(c *gin.Context, status int, err error) {
	if status >= http.StatusInternalServerError {
		log.Err(err).Str("path", c.FullPath()).Msg("Request failed")
	}
	c.JSON(status, gin.H{"type": "error", "error": err.Error()})
}
