package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abdulachik/novelquiz/internal/books"
	"github.com/abdulachik/novelquiz/internal/epub"
	"github.com/abdulachik/novelquiz/internal/health"
	"github.com/abdulachik/novelquiz/internal/quiz"
)

type fakeReader struct {
	chapters []epub.Chapter
	err      error
	pages    int
}

func (f *fakeReader) Chapters(ctx context.Context, bookID string) ([]epub.Chapter, error) {
	return f.chapters, f.err
}

func (f *fakeReader) BookMetadata(ctx context.Context, bookID string) (epub.Metadata, error) {
	if f.err != nil {
		return epub.Metadata{}, f.err
	}
	return epub.Metadata{TotalPages: f.pages, SpineItems: len(f.chapters)}, nil
}

type fakeQuiz struct {
	err    error
	bookID string
	loc    quiz.Locator
}

func (f *fakeQuiz) Generate(ctx context.Context, bookID string, loc quiz.Locator) (*quiz.Node, error) {
	f.bookID = bookID
	f.loc = loc
	if f.err != nil {
		return nil, f.err
	}
	return quiz.MockNode(loc.NodeID), nil
}

type testServer struct {
	srv    *Server
	books  *books.Registry
	reader *fakeReader
	quiz   *fakeQuiz
	health *health.Health
	dir    string
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	registry, err := books.NewRegistry(books.Config{Size: 16})
	require.NoError(t, err)

	ts := &testServer{
		books: registry,
		reader: &fakeReader{
			pages:    42,
			chapters: []epub.Chapter{{ID: "ch1", Title: "1. Arrival", Index: 0}},
		},
		quiz:   &fakeQuiz{},
		health: health.New(),
		dir:    t.TempDir(),
	}
	ts.srv = New(Config{
		Books:          registry,
		Reader:         ts.reader,
		Quiz:           ts.quiz,
		Health:         ts.health,
		UploadDir:      ts.dir,
		MaxUploadBytes: 1024,
		CORSOrigins:    []string{"*"},
	})
	return ts
}

func (ts *testServer) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	ts.srv.Handler().ServeHTTP(rec, req)
	return rec
}

func (ts *testServer) get(path string) *httptest.ResponseRecorder {
	return ts.do(httptest.NewRequest(http.MethodGet, path, nil))
}

func uploadRequest(t *testing.T, filename string, content []byte, fields map[string]string) *http.Request {
	t.Helper()

	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	if filename != "" {
		part, err := w.CreateFormFile("epub", filename)
		require.NoError(t, err)
		_, err = part.Write(content)
		require.NoError(t, err)
	}
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/upload", &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v))
	return v
}

func TestServer_Root(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.get("/")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "POST /api/upload")
}

func TestServer_Health(t *testing.T) {
	ts := newTestServer(t)

	t.Run("ok", func(t *testing.T) {
		ts.health.SetHealthy("database", "migrated")

		rec := ts.get("/api/health")
		require.Equal(t, http.StatusOK, rec.Code)

		body := decode[map[string]any](t, rec)
		assert.Equal(t, "ok", body["status"])
		assert.Contains(t, body["components"], "database")
	})

	t.Run("degraded", func(t *testing.T) {
		ts.health.SetUnhealthy("llm", errors.New("invalid api key"))

		rec := ts.get("/api/health")
		body := decode[map[string]any](t, rec)
		assert.Equal(t, "degraded", body["status"])
	})
}

func TestServer_Upload(t *testing.T) {
	t.Run("stores the book and backfills pages", func(t *testing.T) {
		ts := newTestServer(t)

		rec := ts.do(uploadRequest(t, "Moby Dick.epub", []byte("PK fake epub"), map[string]string{"pageNumber": "0"}))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		resp := decode[uploadResponse](t, rec)
		assert.True(t, strings.HasPrefix(resp.BookID, "book-"))
		assert.Equal(t, "Moby Dick", resp.Title)
		assert.Equal(t, 1, resp.PageNumber)
		assert.Equal(t, 1, resp.TotalPages)

		book, ok := ts.books.Get(resp.BookID)
		require.True(t, ok)
		assert.Equal(t, ts.dir, filepath.Dir(book.FilePath))
		data, err := os.ReadFile(book.FilePath)
		require.NoError(t, err)
		assert.Equal(t, "PK fake epub", string(data))

		task, ok := ts.books.Task(resp.BookID)
		require.True(t, ok)
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		pages, err := task.Wait(ctx)
		require.NoError(t, err)
		assert.Equal(t, 42, pages)

		rec = ts.get("/api/upload/" + resp.BookID)
		require.Equal(t, http.StatusOK, rec.Code)
		got := decode[books.Book](t, rec)
		assert.Equal(t, 42, got.TotalPages)
		assert.Equal(t, books.MetadataReady, got.MetadataStatus)
		assert.Equal(t, "Moby Dick.epub", got.OriginalFilename)
	})

	t.Run("keeps page number hint", func(t *testing.T) {
		ts := newTestServer(t)

		rec := ts.do(uploadRequest(t, "book.epub", []byte("x"), map[string]string{"pageNumber": "17"}))
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, 17, decode[uploadResponse](t, rec).PageNumber)
	})

	t.Run("metadata failure keeps the book", func(t *testing.T) {
		ts := newTestServer(t)
		ts.reader.err = epub.ErrParse

		rec := ts.do(uploadRequest(t, "broken.epub", []byte("x"), nil))
		require.Equal(t, http.StatusOK, rec.Code)
		id := decode[uploadResponse](t, rec).BookID

		task, ok := ts.books.Task(id)
		require.True(t, ok)
		_, err := task.Wait(context.Background())
		assert.ErrorIs(t, err, epub.ErrParse)

		book, ok := ts.books.Get(id)
		require.True(t, ok)
		assert.Equal(t, books.MetadataFailed, book.MetadataStatus)
		assert.Equal(t, 1, book.TotalPages)
	})

	t.Run("rejects non epub", func(t *testing.T) {
		ts := newTestServer(t)

		rec := ts.do(uploadRequest(t, "notes.txt", []byte("hello"), nil))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "Only EPUB files are allowed", decode[ErrorBody](t, rec).Error)
		assert.Zero(t, ts.books.Len())
	})

	t.Run("missing file", func(t *testing.T) {
		ts := newTestServer(t)

		rec := ts.do(uploadRequest(t, "", nil, map[string]string{"pageNumber": "3"}))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "No EPUB file uploaded", decode[ErrorBody](t, rec).Error)
	})

	t.Run("too large", func(t *testing.T) {
		ts := newTestServer(t)

		rec := ts.do(uploadRequest(t, "big.epub", bytes.Repeat([]byte("a"), 4096), nil))
		assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
		assert.Zero(t, ts.books.Len())
	})
}

func TestServer_Book(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.get("/api/upload/book-missing")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestServer_Chapters(t *testing.T) {
	t.Run("lists chapters", func(t *testing.T) {
		ts := newTestServer(t)

		rec := ts.get("/api/upload/book-1/chapters")
		require.Equal(t, http.StatusOK, rec.Code)

		body := decode[struct {
			Chapters []epub.Chapter `json:"chapters"`
		}](t, rec)
		assert.Equal(t, ts.reader.chapters, body.Chapters)
	})

	t.Run("unknown book", func(t *testing.T) {
		ts := newTestServer(t)
		ts.reader.err = epub.ErrBookNotFound

		rec := ts.get("/api/upload/book-x/chapters")
		assert.Equal(t, http.StatusNotFound, rec.Code)
		body := decode[ErrorBody](t, rec)
		assert.Equal(t, "Failed to get chapters", body.Error)
		assert.NotEmpty(t, body.Message)
	})
}

func TestServer_Quiz(t *testing.T) {
	t.Run("passes the locator", func(t *testing.T) {
		ts := newTestServer(t)

		rec := ts.get("/api/quiz/book-1?chapterIndex=2&pageNumber=5&cfi=epubcfi(/6/4)&nodeId=node-9")
		require.Equal(t, http.StatusOK, rec.Code)

		node := decode[quiz.Node](t, rec)
		assert.Equal(t, "node-9", node.ID)
		assert.Equal(t, "book-1", ts.quiz.bookID)
		require.NotNil(t, ts.quiz.loc.ChapterIndex)
		assert.Equal(t, 2, *ts.quiz.loc.ChapterIndex)
		require.NotNil(t, ts.quiz.loc.PageNumber)
		assert.Equal(t, 5, *ts.quiz.loc.PageNumber)
		assert.Equal(t, "epubcfi(/6/4)", ts.quiz.loc.CFI)
		assert.Nil(t, ts.quiz.loc.Progress)
	})

	t.Run("progress is clamped and stored", func(t *testing.T) {
		ts := newTestServer(t)
		book := ts.books.Add(books.Book{Title: "t", FilePath: "/tmp/t.epub"})

		rec := ts.get("/api/quiz/" + book.ID + "?progress=140")
		require.Equal(t, http.StatusOK, rec.Code)
		require.NotNil(t, ts.quiz.loc.Progress)
		assert.Equal(t, 100.0, *ts.quiz.loc.Progress)

		got, _ := ts.books.Get(book.ID)
		assert.Equal(t, 100.0, got.ProgressPercent)
	})

	t.Run("no locator", func(t *testing.T) {
		ts := newTestServer(t)

		rec := ts.get("/api/quiz/book-1")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, quiz.KindProgress, ts.quiz.loc.Kind())
		assert.Nil(t, ts.quiz.loc.Progress)
	})

	errorCases := []struct {
		name   string
		path   string
		err    error
		status int
	}{
		{"non numeric chapter index", "/api/quiz/book-1?chapterIndex=abc", nil, http.StatusBadRequest},
		{"non numeric page", "/api/quiz/book-1?pageNumber=x", nil, http.StatusBadRequest},
		{"bad progress", "/api/quiz/book-1?progress=NaN", nil, http.StatusBadRequest},
		{"chapter out of range", "/api/quiz/book-1?chapterIndex=50", epub.ErrInvalidChapterIndex, http.StatusBadRequest},
		{"unknown book", "/api/quiz/book-x", epub.ErrBookNotFound, http.StatusNotFound},
		{"unexpected failure", "/api/quiz/book-1", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range errorCases {
		t.Run(tt.name, func(t *testing.T) {
			ts := newTestServer(t)
			ts.quiz.err = tt.err

			rec := ts.get(tt.path)
			assert.Equal(t, tt.status, rec.Code)
			body := decode[ErrorBody](t, rec)
			assert.NotEmpty(t, body.Error)
			assert.NotEmpty(t, body.Message)
		})
	}
}

func TestCORS(t *testing.T) {
	gin.SetMode(gin.TestMode)

	t.Run("wildcard", func(t *testing.T) {
		ts := newTestServer(t)

		req := httptest.NewRequest(http.MethodOptions, "/api/upload", nil)
		req.Header.Set("Origin", "http://localhost:5173")
		req.Header.Set("Access-Control-Request-Method", http.MethodPost)

		rec := ts.do(req)
		assert.Equal(t, http.StatusNoContent, rec.Code)
		assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	})

	t.Run("listed origin", func(t *testing.T) {
		r := gin.New()
		r.Use(CORS([]string{"http://localhost:5173"}))
		r.GET("/api/health", func(c *gin.Context) { c.Status(http.StatusOK) })

		req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
		req.Header.Set("Origin", "http://localhost:5173")
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "http://localhost:5173", rec.Header().Get("Access-Control-Allow-Origin"))
	})
}

func TestParsePageNumber(t *testing.T) {
	tests := []struct {
		raw  string
		want int
	}{
		{"", 1},
		{"abc", 1},
		{"-4", 1},
		{"0", 1},
		{"7", 7},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			assert.Equal(t, tt.want, parsePageNumber(tt.raw))
		})
	}
}
