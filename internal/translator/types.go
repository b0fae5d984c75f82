package translator

import (
	"context"
	"errors"
	"time"

	"github.com/Rnteacher/stremio-hebrew-subtitles/internal/subtitle"
	"golang.org/x/text/language"
)

// ErrTranslationFailed means the document could not be translated; partial
// results are never returned.
var ErrTranslationFailed = errors.New("translation failed")

// Translator converts a subtitle document into the target language while
// keeping its structure intact.
type Translator interface {
	Translate(ctx context.Context, doc *subtitle.Document) (*subtitle.Document, error)
}

// Config tunes the LLM translator.
type Config struct {
	SourceLanguage language.Tag
	TargetLanguage language.Tag

	// ChunkThreshold is the rendered line count above which the document is
	// split into batches. BatchSize is the number of whole entries per batch.
	ChunkThreshold int
	BatchSize      int

	// BatchTimeout bounds one external call. Large batches take far longer
	// than an ordinary API request.
	BatchTimeout time.Duration
}

func (c Config) withDefaults() Config {
	if c.ChunkThreshold <= 0 {
		c.ChunkThreshold = 1000
	}
	if c.BatchSize <= 0 {
		c.BatchSize = 100
	}
	if c.BatchTimeout <= 0 {
		c.BatchTimeout = 2 * time.Minute
	}
	return c
}
