package pipeline

import (
	"context"
	"fmt"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/Rnteacher/stremio-hebrew-subtitles/internal/cache"
	"github.com/Rnteacher/stremio-hebrew-subtitles/internal/catalog"
	"github.com/Rnteacher/stremio-hebrew-subtitles/internal/contentid"
	"github.com/Rnteacher/stremio-hebrew-subtitles/internal/history"
	"github.com/Rnteacher/stremio-hebrew-subtitles/internal/subtitle"
	"github.com/Rnteacher/stremio-hebrew-subtitles/internal/translator"
	"github.com/Rnteacher/stremio-hebrew-subtitles/pkg/log"
)

// Stage names recorded in the request history.
const (
	StageNormalize = "normalize"
	StageCache     = "cache"
	StageResolve   = "resolve"
	StageFetch     = "fetch"
	StageTranslate = "translate"
	StagePersist   = "persist"
)

const (
	OutcomeHit        = "hit"
	OutcomeTranslated = "translated"
	OutcomeEmpty      = "empty"
)

// Reference is the client-facing pointer to a cached translation.
type Reference struct {
	ID   string `json:"id"`
	Lang string `json:"lang"`
	URL  string `json:"url"`
}

type resolver interface {
	Resolve(ctx context.Context, id contentid.ID) (*catalog.SourceReference, error)
}

type docFetcher interface {
	Fetch(ctx context.Context, ref *catalog.SourceReference) (*subtitle.Document, error)
}

type recorder interface {
	Record(ctx context.Context, rec history.Record) error
}

// Pipeline composes resolve, fetch, translate and persist into the request
// handler. Every failure anywhere degrades to an empty result; the protocol
// layer never sees an error.
type Pipeline struct {
	cache      cache.Store
	resolver   resolver
	fetcher    docFetcher
	translator translator.Translator
	history    recorder

	baseURL  string
	langCode string

	flight singleflight.Group
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithHistory records pipeline outcomes to the given store.
func WithHistory(store recorder) Option {
	return func(p *Pipeline) {
		p.history = store
	}
}

// New wires the pipeline. baseURL is the externally visible address used to
// build subtitle URLs; langCode is the protocol language code of the
// translations served (e.g. "heb").
func New(
	cacheStore cache.Store,
	resolver resolver,
	fetcher docFetcher,
	translator translator.Translator,
	baseURL string,
	langCode string,
	opts ...Option,
) *Pipeline {
	p := &Pipeline{
		cache:      cacheStore,
		resolver:   resolver,
		fetcher:    fetcher,
		translator: translator,
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		langCode:   langCode,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Handle runs the request state machine for one raw content id. The second
// return value is false when no subtitle is available, for whatever reason.
func (p *Pipeline) Handle(ctx context.Context, rawID string) (*Reference, bool) {
	start := time.Now()

	id, err := contentid.Parse(rawID)
	if err != nil {
		log.Warn("Rejecting unparseable id %q: %v", rawID, err)
		p.record(ctx, rawID, StageNormalize, OutcomeEmpty, err, start)
		return nil, false
	}
	key := id.Key()

	entry, found, err := p.cache.Get(key)
	if err != nil {
		log.Warn("Cache check failed for %s, treating as miss: %v", key, err)
	}
	if found {
		p.record(ctx, key, StageCache, OutcomeHit, nil, start)
		return p.reference(key, entry), true
	}

	// Concurrent first-requests for the same key share one cold run.
	result, err, _ := p.flight.Do(key, func() (any, error) {
		return p.runColdPath(ctx, id, start)
	})
	if err != nil {
		return nil, false
	}
	return p.reference(key, result.(cache.Entry)), true
}

// runColdPath executes resolve → fetch → translate → persist for a cache
// miss. It returns the persisted entry or the first stage error.
func (p *Pipeline) runColdPath(ctx context.Context, id contentid.ID, start time.Time) (cache.Entry, error) {
	key := id.Key()

	// A shared flight may have filled the cache while we waited.
	if entry, found, err := p.cache.Get(key); err == nil && found {
		return entry, nil
	}

	ref, err := p.resolver.Resolve(ctx, id)
	if err != nil {
		log.Info("No source subtitle for %s: %v", key, err)
		p.record(ctx, key, StageResolve, OutcomeEmpty, err, start)
		return cache.Entry{}, err
	}

	doc, err := p.fetcher.Fetch(ctx, ref)
	if err != nil {
		log.Warn("Fetch failed for %s: %v", key, err)
		p.record(ctx, key, StageFetch, OutcomeEmpty, err, start)
		return cache.Entry{}, err
	}

	translated, err := p.translator.Translate(ctx, doc)
	if err != nil {
		log.Warn("Translation failed for %s: %v", key, err)
		p.record(ctx, key, StageTranslate, OutcomeEmpty, err, start)
		return cache.Entry{}, err
	}

	entry, err := p.cache.Put(key, []byte(subtitle.Render(translated)))
	if err != nil {
		log.Error("Persist failed for %s: %v", key, err)
		p.record(ctx, key, StagePersist, OutcomeEmpty, err, start)
		return cache.Entry{}, err
	}

	log.Info("Cached translated subtitle for %s (%d entries, %d bytes)", key, len(translated.Entries), entry.SizeBytes)
	p.record(ctx, key, StagePersist, OutcomeTranslated, nil, start)
	return entry, nil
}

func (p *Pipeline) reference(key string, entry cache.Entry) *Reference {
	return &Reference{
		ID:   fmt.Sprintf("%s-%s", p.langCode, key),
		Lang: p.langCode,
		URL:  p.baseURL + "/subs/" + entry.FileName,
	}
}

// record writes one history row, best effort.
func (p *Pipeline) record(ctx context.Context, key, stage, outcome string, cause error, start time.Time) {
	if p.history == nil {
		return
	}
	rec := history.Record{
		Key:        key,
		Stage:      stage,
		Outcome:    outcome,
		DurationMS: time.Since(start).Milliseconds(),
	}
	if cause != nil {
		rec.Detail = cause.Error()
	}
	if err := p.history.Record(ctx, rec); err != nil {
		log.Warn("Failed to record history for %s: %v", key, err)
	}
}
