// Package server exposes the quiz API over HTTP.
package server

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/abdulachik/novelquiz/internal/books"
	"github.com/abdulachik/novelquiz/internal/epub"
	"github.com/abdulachik/novelquiz/internal/health"
	"github.com/abdulachik/novelquiz/internal/logger"
	"github.com/abdulachik/novelquiz/internal/quiz"
)

// Version is reported by the API banner.
const Version = "0.1.0"

// BookReader reads structure from uploaded books.
type BookReader interface {
	Chapters(ctx context.Context, bookID string) ([]epub.Chapter, error)
	BookMetadata(ctx context.Context, bookID string) (epub.Metadata, error)
}

// QuizGenerator builds quiz nodes.
type QuizGenerator interface {
	Generate(ctx context.Context, bookID string, loc quiz.Locator) (*quiz.Node, error)
}

// Config holds the server's dependencies.
type Config struct {
	Books          *books.Registry
	Reader         BookReader
	Quiz           QuizGenerator
	Health         *health.Health
	UploadDir      string
	MaxUploadBytes int64
	CORSOrigins    []string
	Logger         *logger.Logger
}

// Server is the HTTP API.
type Server struct {
	cfg    Config
	log    *logger.Logger
	engine *gin.Engine
}

// New creates the server and its routes.
func New(cfg Config) *Server {
	if cfg.Logger == nil {
		cfg.Logger = logger.NewNop()
	}
	if cfg.Health == nil {
		cfg.Health = health.New()
	}

	s := &Server{cfg: cfg, log: cfg.Logger}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(RequestLogger(cfg.Logger))
	r.Use(CORS(cfg.CORSOrigins))

	r.GET("/", s.handleRoot)

	api := r.Group("/api")
	{
		api.GET("/health", s.handleHealth)

		api.POST("/upload", s.handleUpload)
		api.GET("/upload/:bookId", s.handleGetBook)
		api.GET("/upload/:bookId/chapters", s.handleChapters)

		api.GET("/quiz/:bookId", s.handleQuiz)
	}

	s.engine = r
	return s
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.engine
}

func (s *Server) handleRoot(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"message": "EPUB Visual Novel Quiz API",
		"version": Version,
		"endpoints": gin.H{
			"health":   "GET /api/health",
			"upload":   "POST /api/upload",
			"book":     "GET /api/upload/:bookId",
			"chapters": "GET /api/upload/:bookId/chapters",
			"quiz":     "GET /api/quiz/:bookId",
		},
	})
}

func (s *Server) handleHealth(c *gin.Context) {
	status := "ok"
	if !s.cfg.Health.IsOverallHealthy() {
		status = "degraded"
	}
	c.JSON(http.StatusOK, gin.H{
		"status":     status,
		"components": s.cfg.Health.All(),
	})
}
