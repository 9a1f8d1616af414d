package quiz

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/abdulachik/novelquiz/internal/db"
	"github.com/abdulachik/novelquiz/internal/epub"
	"github.com/abdulachik/novelquiz/internal/health"
	"github.com/abdulachik/novelquiz/internal/logger"
	"github.com/abdulachik/novelquiz/internal/textseg"
)

// HealthComponent is the health component updated by each generation.
const HealthComponent = "quiz"

// ErrEmptyContent is the pipeline error for sections without usable text.
var ErrEmptyContent = errors.New("no usable text in section")

// ContentSource serves book text by locator.
type ContentSource interface {
	ContentByChapterIndex(ctx context.Context, bookID string, index int) (string, error)
	ContentByCFI(ctx context.Context, bookID, cfi string) (string, error)
	ContentByPageNumber(ctx context.Context, bookID string, page int) (string, error)
	ContentByProgress(ctx context.Context, bookID string, progress float64) (string, error)
	StoredProgress(bookID string) (float64, error)
}

// Model generates raw quiz JSON.
type Model interface {
	Configured() bool
	Generate(ctx context.Context, system, user string) (string, error)
}

// Recorder persists generation outcomes.
type Recorder interface {
	CreateGeneration(ctx context.Context, arg db.CreateGenerationParams) error
}

// Generator builds quiz nodes from book content.
type Generator struct {
	content  ContentSource
	model    Model
	sampler  *textseg.Sampler
	recorder Recorder
	health   *health.Health
	log      *logger.Logger
}

// Config holds the generator's dependencies. Recorder, Health and Sampler
// are optional.
type Config struct {
	Content  ContentSource
	Model    Model
	Sampler  *textseg.Sampler
	Recorder Recorder
	Health   *health.Health
	Logger   *logger.Logger
}

// NewGenerator creates a generator.
func NewGenerator(cfg Config) *Generator {
	if cfg.Sampler == nil {
		cfg.Sampler = textseg.NewSampler(textseg.DefaultSamplerConfig(), nil)
	}
	if cfg.Logger == nil {
		cfg.Logger = logger.NewNop()
	}
	return &Generator{
		content:  cfg.Content,
		model:    cfg.Model,
		sampler:  cfg.Sampler,
		recorder: cfg.Recorder,
		health:   cfg.Health,
		log:      cfg.Logger,
	}
}

// IsRequestError reports whether err is the caller's fault and should be
// surfaced instead of replaced by the mock quiz.
func IsRequestError(err error) bool {
	return errors.Is(err, epub.ErrBookNotFound) || errors.Is(err, epub.ErrInvalidChapterIndex)
}

// Generate returns a quiz node for the located content.
//
// Without a configured model the mock node is returned straight away. An
// unknown book or an out-of-range chapter index is returned as an error.
// Every other failure is logged and answered with the mock node.
func (g *Generator) Generate(ctx context.Context, bookID string, loc Locator) (*Node, error) {
	start := time.Now()
	log := g.log.With("book_id", bookID, "locator", loc.Kind(), "value", loc.Value())

	if !g.model.Configured() {
		log.Info("llm not configured, serving mock quiz")
		node := MockNode(loc.NodeID)
		g.record(ctx, bookID, loc, db.ModeOffline, node, nil, start)
		return node, nil
	}

	node, err := g.generate(ctx, bookID, loc, log)
	if err != nil {
		if IsRequestError(err) {
			return nil, err
		}
		log.Warn("quiz generation failed, falling back to mock quiz", "error", err)
		g.reportHealth(err)
		node = MockNode(loc.NodeID)
		g.record(ctx, bookID, loc, db.ModeMock, node, err, start)
		return node, nil
	}

	log.Info("quiz generated",
		"questions", len(node.Questions),
		"duration", time.Since(start),
	)
	g.reportHealth(nil)
	g.record(ctx, bookID, loc, db.ModeLLM, node, nil, start)
	return node, nil
}

func (g *Generator) reportHealth(err error) {
	if g.health == nil {
		return
	}
	g.health.Record(HealthComponent, err, "last quiz generated by the model")
}

func (g *Generator) generate(ctx context.Context, bookID string, loc Locator, log *logger.Logger) (*Node, error) {
	text, err := g.selectContent(ctx, bookID, loc)
	if err != nil {
		return nil, fmt.Errorf("select content: %w", err)
	}
	if epub.IsEmptyContent(text) {
		return nil, ErrEmptyContent
	}
	log.Debug("content extracted", "chars", len(text))

	windows := g.sampler.Windows(text)
	if len(windows) == 0 {
		return nil, ErrEmptyContent
	}
	passages := make([]string, len(windows))
	starts := make([]int, len(windows))
	for i, w := range windows {
		passages[i] = w.Text
		starts[i] = w.Start
	}
	log.Debug("passages sampled", "count", len(passages), "starts", starts)

	page := 0
	if loc.Kind() == KindPage {
		page = *loc.PageNumber
	}

	raw, err := g.model.Generate(ctx, SystemPrompt, BuildUserPrompt(passages, page))
	if err != nil {
		return nil, fmt.Errorf("generate quiz: %w", err)
	}

	resp, err := ParseResponse(raw)
	if err != nil {
		return nil, fmt.Errorf("parse quiz: %w", err)
	}

	return Normalize(resp, loc.NodeID, log), nil
}

func (g *Generator) selectContent(ctx context.Context, bookID string, loc Locator) (string, error) {
	switch loc.Kind() {
	case KindChapter:
		return g.content.ContentByChapterIndex(ctx, bookID, *loc.ChapterIndex)
	case KindCFI:
		return g.content.ContentByCFI(ctx, bookID, loc.CFI)
	case KindPage:
		return g.content.ContentByPageNumber(ctx, bookID, *loc.PageNumber)
	default:
		if loc.Progress != nil {
			return g.content.ContentByProgress(ctx, bookID, *loc.Progress)
		}
		progress, err := g.content.StoredProgress(bookID)
		if err != nil {
			return "", err
		}
		return g.content.ContentByProgress(ctx, bookID, progress)
	}
}

// record writes the generation to the ledger. Failures are only logged.
func (g *Generator) record(ctx context.Context, bookID string, loc Locator, mode string, node *Node, cause error, start time.Time) {
	if g.recorder == nil {
		return
	}

	params := db.CreateGenerationParams{
		ID:            uuid.NewString(),
		BookID:        bookID,
		LocatorKind:   loc.Kind(),
		LocatorValue:  loc.Value(),
		Mode:          mode,
		QuestionCount: int64(len(node.Questions)),
		DurationMs:    time.Since(start).Milliseconds(),
		CreatedAt:     time.Now().UTC(),
	}
	if cause != nil {
		params.ErrorMessage = sql.NullString{String: cause.Error(), Valid: true}
	}

	if err := g.recorder.CreateGeneration(context.WithoutCancel(ctx), params); err != nil {
		g.log.Warn("failed to record generation", "book_id", bookID, "error", err)
	}
}
