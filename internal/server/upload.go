package server

import (
	"context"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/abdulachik/novelquiz/internal/books"
)

const (
	epubMIME = "application/epub+zip"

	// multipartOverhead leaves room for boundaries and form fields.
	multipartOverhead = 1 << 20
)

type uploadResponse struct {
	BookID     string `json:"bookId"`
	Title      string `json:"title"`
	PageNumber int    `json:"pageNumber"`
	TotalPages int    `json:"totalPages"`
}

func (s *Server) handleUpload(c *gin.Context) {
	limit := s.cfg.MaxUploadBytes
	if c.Request.ContentLength > limit+multipartOverhead {
		respondError(c, http.StatusRequestEntityTooLarge, "File too large",
			fmt.Errorf("upload exceeds %d bytes", limit))
		return
	}
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit+multipartOverhead)

	file, err := c.FormFile("epub")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respondError(c, http.StatusRequestEntityTooLarge, "File too large", err)
			return
		}
		respondError(c, http.StatusBadRequest, "No EPUB file uploaded", err)
		return
	}

	if file.Size > limit {
		respondError(c, http.StatusRequestEntityTooLarge, "File too large",
			fmt.Errorf("upload exceeds %d bytes", limit))
		return
	}
	if !isEPUB(file) {
		respondError(c, http.StatusBadRequest, "Only EPUB files are allowed", nil)
		return
	}

	pageNumber := parsePageNumber(c.PostForm("pageNumber"))

	dst := filepath.Join(s.cfg.UploadDir, "epub-"+uuid.NewString()+".epub")
	if err := c.SaveUploadedFile(file, dst); err != nil {
		respondError(c, http.StatusInternalServerError, "Upload failed", fmt.Errorf("save upload: %w", err))
		return
	}

	book := s.cfg.Books.Add(books.Book{
		Title:            strings.TrimSuffix(file.Filename, ".epub"),
		OriginalFilename: file.Filename,
		FilePath:         dst,
		PageNumberHint:   pageNumber,
	})

	s.log.Info("book uploaded",
		"book_id", book.ID,
		"file", file.Filename,
		"size_mb", fmt.Sprintf("%.2f", float64(file.Size)/(1<<20)),
		"page_number", pageNumber,
	)

	// The page count is backfilled after the response.
	if _, err := s.cfg.Books.StartMetadata(context.WithoutCancel(c.Request.Context()), book.ID, s.pageCount); err != nil {
		s.log.Warn("failed to start metadata", "book_id", book.ID, "error", err)
	}

	c.JSON(http.StatusOK, uploadResponse{
		BookID:     book.ID,
		Title:      book.Title,
		PageNumber: book.PageNumberHint,
		TotalPages: 1,
	})
}

func (s *Server) pageCount(ctx context.Context, bookID string) (int, error) {
	md, err := s.cfg.Reader.BookMetadata(ctx, bookID)
	if err != nil {
		return 0, err
	}
	return md.TotalPages, nil
}

func (s *Server) handleGetBook(c *gin.Context) {
	book, ok := s.cfg.Books.Get(c.Param("bookId"))
	if !ok {
		respondError(c, http.StatusNotFound, "Book not found", nil)
		return
	}
	c.JSON(http.StatusOK, book)
}

func (s *Server) handleChapters(c *gin.Context) {
	chapters, err := s.cfg.Reader.Chapters(c.Request.Context(), c.Param("bookId"))
	if err != nil {
		respondAPIError(c, "Failed to get chapters", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"chapters": chapters})
}

func isEPUB(file *multipart.FileHeader) bool {
	if strings.HasSuffix(strings.ToLower(file.Filename), ".epub") {
		return true
	}
	return file.Header.Get("Content-Type") == epubMIME
}

// parsePageNumber defaults to 1 and clamps to at least 1.
func parsePageNumber(raw string) int {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 1
	}
	return max(n, 1)
}
