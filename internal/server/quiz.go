package server

import (
	"errors"
	"fmt"
	"math"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/abdulachik/novelquiz/internal/quiz"
)

var errInvalidQuery = errors.New("invalid query parameter")

func (s *Server) handleQuiz(c *gin.Context) {
	bookID := c.Param("bookId")

	loc, err := parseLocator(c)
	if err != nil {
		respondAPIError(c, "Invalid quiz request", err)
		return
	}

	if loc.Progress != nil {
		s.cfg.Books.SetProgress(bookID, *loc.Progress)
	}

	node, err := s.cfg.Quiz.Generate(c.Request.Context(), bookID, loc)
	if err != nil {
		respondAPIError(c, "Failed to generate quiz", err)
		return
	}

	c.JSON(http.StatusOK, node)
}

func parseLocator(c *gin.Context) (quiz.Locator, error) {
	loc := quiz.Locator{
		CFI:    c.Query("cfi"),
		NodeID: c.Query("nodeId"),
	}

	if raw, ok := c.GetQuery("chapterIndex"); ok && raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return loc, fmt.Errorf("%w: chapterIndex %q", errInvalidQuery, raw)
		}
		loc.ChapterIndex = &n
	}

	if raw, ok := c.GetQuery("pageNumber"); ok && raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return loc, fmt.Errorf("%w: pageNumber %q", errInvalidQuery, raw)
		}
		loc.PageNumber = &n
	}

	if raw, ok := c.GetQuery("progress"); ok && raw != "" {
		p, err := strconv.ParseFloat(raw, 64)
		if err != nil || math.IsNaN(p) || math.IsInf(p, 0) {
			return loc, fmt.Errorf("%w: progress %q", errInvalidQuery, raw)
		}
		p = min(max(p, 0), 100)
		loc.Progress = &p
	}

	return loc, nil
}
