package web

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/sead/sqlassist/pkg/assistant"
)

type trainRequest struct {
	Question      string `json:"question"`
	SQL           string `json:"sql"`
	DDL           string `json:"ddl"`
	Documentation string `json:"documentation"`
}

type removeRequest struct {
	ID string `json:"id" binding:"required"`
}

func (s *Server) index(c *gin.Context) {
	page, err := static.ReadFile("static/index.html")
	if err != nil {
		fail(c, http.StatusInternalServerError, err)
		return
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", page)
}

func (s *Server) generateSQL(c *gin.Context) {
	question := strings.TrimSpace(c.Query("question"))
	if question == "" {
		fail(c, http.StatusBadRequest, errors.New("no question provided"))
		return
	}
	sql, err := s.Assistant.GenerateSQL(c.Request.Context(), question)
	if err != nil {
		fail(c, http.StatusInternalServerError, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"type": "sql", "id": s.remember(question, sql), "text": sql})
}

func (s *Server) runSQL(c *gin.Context) {
	entry, ok := s.lookup(c.Query("id"))
	if !ok {
		fail(c, http.StatusNotFound, errors.New("no SQL found for id"))
		return
	}
	if !assistant.IsSQLValid(entry.SQL) {
		fail(c, http.StatusBadRequest, assistant.ErrNotSQL)
		return
	}
	res, err := s.Assistant.RunSQL(c.Request.Context(), entry.SQL)
	if err != nil {
		fail(c, http.StatusInternalServerError, err)
		return
	}
	if s.History != nil {
		if err := s.History.Store(c.Request.Context(), entry.Question, entry.SQL); err != nil {
			log.Warn().Err(err).Msg("Failed to store question history")
		}
	}
	c.JSON(http.StatusOK, gin.H{"type": "df", "id": c.Query("id"), "columns": res.Columns, "rows": res.Rows})
}

func (s *Server) getTrainingData(c *gin.Context) {
	records, err := s.Training.TrainingData(c.Request.Context())
	if err != nil {
		fail(c, http.StatusInternalServerError, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"type": "df", "records": records})
}

func (s *Server) train(c *gin.Context) {
	var req trainRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, err)
		return
	}

	ctx := c.Request.Context()
	var (
		id  string
		err error
	)
	switch {
	case req.SQL != "":
		question := strings.TrimSpace(req.Question)
		if question == "" {
			if question, err = s.Assistant.GenerateQuestion(ctx, req.SQL); err != nil {
				fail(c, http.StatusInternalServerError, err)
				return
			}
		}
		id, err = s.Training.AddQuestionSQL(ctx, question, req.SQL)
	case req.DDL != "":
		id, err = s.Training.AddDDL(ctx, req.DDL)
	case req.Documentation != "":
		id, err = s.Training.AddDocumentation(ctx, req.Documentation)
	default:
		fail(c, http.StatusBadRequest, errors.New("one of sql, ddl or documentation is required"))
		return
	}
	if err != nil {
		fail(c, http.StatusInternalServerError, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": id})
}

func (s *Server) removeTrainingData(c *gin.Context) {
	var req removeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, err)
		return
	}
	if err := s.Training.RemoveTrainingData(c.Request.Context(), req.ID); err != nil {
		fail(c, http.StatusInternalServerError, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (s *Server) getQuestionHistory(c *gin.Context) {
	if s.History == nil {
		c.JSON(http.StatusOK, gin.H{"type": "question_history", "questions": []interface{}{}})
		return
	}
	entries, err := s.History.Recent(c.Request.Context(), historyLimit)
	if err != nil {
		fail(c, http.StatusInternalServerError, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"type": "question_history", "questions": entries})
}

func (s *Server) listTables(c *gin.Context) {
	tables, err := s.Assistant.ListTables(c.Request.Context())
	if err != nil {
		fail(c, http.StatusInternalServerError, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"type": "tables", "tables": tables})
}
