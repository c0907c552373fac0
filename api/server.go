// Package api serves the run archive over HTTP.
package api

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/pevans/udnfetch/newsfeed"
	"github.com/pevans/udnfetch/runs"
)

// Pagination defaults for GET /api/v1/runs.
const (
	DefaultLimit = 50
	MaxLimit     = 500
)

// Server is the read-only HTTP API over archived runs.
type Server struct {
	store *runs.Store
	log   zerolog.Logger
}

// NewServer creates a new API server over store.
func NewServer(store *runs.Store, log zerolog.Logger) *Server {
	return &Server{
		store: store,
		log:   log.With().Str("component", "api").Logger(),
	}
}

// SetupRouter configures the Gin router with all archive routes
func (s *Server) SetupRouter() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), s.requestLogger())

	// Add CORS middleware
	router.Use(func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusOK)
			return
		}

		c.Next()
	})

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := router.Group("/api/v1/runs")
	api.GET("", s.HandleListRuns)
	api.GET("/:id", s.HandleGetRun)
	api.GET("/:id/articles", s.HandleListArticles)
	api.GET("/:id/csv", s.HandleExportCSV)

	return router
}

// requestLogger logs one line per request through zerolog.
func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		s.log.Debug().
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Msg("Request handled")
	}
}

// ListRunsResponse represents the response for GET /api/v1/runs.
type ListRunsResponse struct {
	Runs   []runs.Run `json:"runs"`
	Limit  int        `json:"limit"`
	Offset int        `json:"offset"`
}

// RunResponse represents the response for GET /api/v1/runs/:id.
type RunResponse struct {
	Run     runs.Run             `json:"run"`
	Partial bool                 `json:"partial"`
	Dates   []newsfeed.DateCount `json:"dates"`
}

// ArticlesResponse represents the response for GET /api/v1/runs/:id/articles.
type ArticlesResponse struct {
	Articles []newsfeed.ArticleRecord `json:"articles"`
	Total    int                      `json:"total"`
}

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail contains error code and message.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// HandleListRuns handles GET /api/v1/runs.
func (s *Server) HandleListRuns(c *gin.Context) {
	limit := DefaultLimit
	if limitParam := c.Query("limit"); limitParam != "" {
		n, err := strconv.Atoi(limitParam)
		if err != nil || n < 1 || n > MaxLimit {
			writeError(c, http.StatusBadRequest, "invalid_parameter",
				fmt.Sprintf("Invalid limit parameter: must be between 1 and %d", MaxLimit))
			return
		}
		limit = n
	}

	offset := 0
	if offsetParam := c.Query("offset"); offsetParam != "" {
		n, err := strconv.Atoi(offsetParam)
		if err != nil || n < 0 {
			writeError(c, http.StatusBadRequest, "invalid_parameter",
				"Invalid offset parameter: must be a non-negative integer")
			return
		}
		offset = n
	}

	filter := runs.RunFilter{Limit: limit, Offset: offset}
	if keyword := c.Query("keyword"); keyword != "" {
		filter.Keyword = &keyword
	}

	list, err := s.store.ListRuns(filter)
	if err != nil {
		s.log.Error().Err(err).Msg("Failed to list runs")
		writeError(c, http.StatusInternalServerError, "internal_error", "Failed to list runs: "+err.Error())
		return
	}
	if list == nil {
		list = []runs.Run{}
	}

	c.JSON(http.StatusOK, ListRunsResponse{
		Runs:   list,
		Limit:  limit,
		Offset: offset,
	})
}

// HandleGetRun handles GET /api/v1/runs/:id.
func (s *Server) HandleGetRun(c *gin.Context) {
	run, ok := s.lookupRun(c)
	if !ok {
		return
	}

	records, err := s.store.Articles(run.RunID)
	if err != nil {
		s.writeStoreError(c, err)
		return
	}

	c.JSON(http.StatusOK, RunResponse{
		Run:     *run,
		Partial: run.Partial(),
		Dates:   newsfeed.CountByDate(records),
	})
}

// HandleListArticles handles GET /api/v1/runs/:id/articles.
func (s *Server) HandleListArticles(c *gin.Context) {
	id, ok := parseRunID(c)
	if !ok {
		return
	}

	records, err := s.store.Articles(id)
	if err != nil {
		s.writeStoreError(c, err)
		return
	}
	if records == nil {
		records = []newsfeed.ArticleRecord{}
	}

	c.JSON(http.StatusOK, ArticlesResponse{
		Articles: records,
		Total:    len(records),
	})
}

// HandleExportCSV handles GET /api/v1/runs/:id/csv. The body is the same
// BOM-prefixed CSV the CLI writes.
func (s *Server) HandleExportCSV(c *gin.Context) {
	run, ok := s.lookupRun(c)
	if !ok {
		return
	}

	records, err := s.store.Articles(run.RunID)
	if err != nil {
		s.writeStoreError(c, err)
		return
	}

	name := newsfeed.DefaultCSVName(run.Keyword)
	c.Header("Content-Disposition", "attachment; filename*=UTF-8''"+url.PathEscape(name))
	c.Header("Content-Type", "text/csv; charset=utf-8")
	c.Status(http.StatusOK)
	if err := newsfeed.WriteCSV(c.Writer, records); err != nil {
		s.log.Error().Err(err).Str("run_id", run.RunID.String()).Msg("Failed to write CSV")
	}
}

// lookupRun parses the id parameter and loads the run, writing the error
// response itself when it fails.
func (s *Server) lookupRun(c *gin.Context) (*runs.Run, bool) {
	id, ok := parseRunID(c)
	if !ok {
		return nil, false
	}

	run, err := s.store.GetRun(id)
	if err != nil {
		s.writeStoreError(c, err)
		return nil, false
	}
	return run, true
}

func (s *Server) writeStoreError(c *gin.Context, err error) {
	if errors.Is(err, runs.ErrRunNotFound) {
		writeError(c, http.StatusNotFound, "not_found", "Run not found")
		return
	}
	s.log.Error().Err(err).Str("path", c.Request.URL.Path).Msg("Archive lookup failed")
	writeError(c, http.StatusInternalServerError, "internal_error", "Failed to read run: "+err.Error())
}

func parseRunID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		writeError(c, http.StatusBadRequest, "invalid_id", "Invalid run ID format")
		return uuid.Nil, false
	}
	return id, true
}

func writeError(c *gin.Context, status int, code, message string) {
	c.JSON(status, gin.H{
		"error": gin.H{
			"code":    code,
			"message": message,
		},
	})
}
