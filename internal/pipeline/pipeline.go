// Package pipeline turns chat events into classified records: text is
// classified directly, voice notes are transcribed, images go through OCR
// and, failing that, the visual classifier.
package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/HDumarBalmaceda/proyecto-informe/internal/cache"
	"github.com/HDumarBalmaceda/proyecto-informe/internal/category"
	"github.com/HDumarBalmaceda/proyecto-informe/internal/chat"
	"github.com/HDumarBalmaceda/proyecto-informe/internal/classify"
	"github.com/HDumarBalmaceda/proyecto-informe/internal/extract"
	"github.com/HDumarBalmaceda/proyecto-informe/internal/logging"
	"github.com/HDumarBalmaceda/proyecto-informe/internal/media"
)

// Deps are the services the pipeline consults.
type Deps struct {
	Classifier  *classify.Classifier
	Resolver    *media.Resolver
	Cache       *cache.Cache
	Transcriber extract.Transcriber
	OCR         extract.TextExtractor
	Visual      extract.VisualClassifier

	// Universe bounds visual verdicts; defaults to the built-in table.
	Universe []category.Category

	Logger  logging.Logger
	Metrics *Metrics
}

type Pipeline struct {
	deps  Deps
	stats Stats
}

func New(deps Deps) *Pipeline {
	if deps.Logger == nil {
		deps.Logger = logging.NewNopLogger()
	}
	if deps.Classifier == nil {
		deps.Classifier = classify.New(category.DefaultRules())
	}
	if deps.Resolver == nil {
		deps.Resolver = media.NewResolver(nil, media.Options{})
	}
	if deps.Cache == nil {
		deps.Cache = cache.New(cache.NewMemoryStore())
	}
	if deps.OCR == nil {
		deps.OCR = extract.NoOCR{}
	}
	if deps.Visual == nil {
		deps.Visual = extract.NoVisual{}
	}
	if len(deps.Universe) == 0 {
		deps.Universe = category.Universe(category.DefaultRules())
	}
	return &Pipeline{deps: deps, stats: newStats()}
}

// Run drains parser and returns one record per event, in parser order. It
// stops early only when ctx is cancelled or the transcript cannot be read.
func (p *Pipeline) Run(ctx context.Context, source string, parser *chat.Parser) ([]Record, error) {
	ctx, span := startChatSpan(ctx, source)
	var err error
	defer func() { endSpan(span, err) }()

	p.stats.Chats++

	var records []Record
	for parser.Next() {
		if err = ctx.Err(); err != nil {
			return records, err
		}
		records = append(records, p.Process(ctx, source, parser.Event()))
	}
	if err = parser.Err(); err != nil {
		return records, fmt.Errorf("read %s: %w", source, err)
	}

	span.SetAttributes(attribute.Int(attrRecords, len(records)))
	p.deps.Logger.Debug("chat processed", logging.F("chat", source), logging.F("records", len(records)))
	return records, nil
}

// RunFile parses and processes the transcript at path.
func (p *Pipeline) RunFile(ctx context.Context, path string, opts chat.Options) ([]Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return p.Run(ctx, filepath.Base(path), chat.NewParser(f, opts))
}

// Process classifies a single event. It always yields exactly one record;
// resolution and service failures degrade the category instead of failing.
func (p *Pipeline) Process(ctx context.Context, source string, ev chat.Event) Record {
	rec := Record{
		Date:   ev.Date(),
		Month:  ev.Timestamp.Month(),
		Year:   ev.Timestamp.Year(),
		Source: source,
		Line:   ev.Line,
		Kind:   ev.Kind,
	}

	p.stats.Events[ev.Kind]++
	p.deps.Metrics.event(ev.Kind.String())

	switch ev.Kind {
	case chat.KindAudio:
		p.processAudio(ctx, ev, &rec)
	case chat.KindImage:
		p.processImage(ctx, ev, &rec)
	default:
		rec.Text = ev.Text
		rec.Category = p.deps.Classifier.Classify(ev.Text)
		rec.Outcome = OutcomeText
	}

	p.stats.Outcomes[rec.Outcome]++
	p.deps.Metrics.record(rec.Outcome)
	return rec
}

func (p *Pipeline) processAudio(ctx context.Context, ev chat.Event, rec *Record) {
	log := p.deps.Logger.With(logging.F("chat", rec.Source), logging.F("line", ev.Line))

	ref := p.deps.Resolver.Resolve(ev)
	if !ref.Found {
		log.Warn("audio not found", logging.F("attachment", ev.Attachment), logging.F("date", ref.LogicalDate.Format("2006-01-02")))
		rec.Category = p.deps.Classifier.CatchAll()
		rec.Outcome = OutcomeResolutionMiss
		return
	}
	rec.MediaPath = ref.Path

	if p.deps.Transcriber == nil {
		log.Warn("no transcriber configured", logging.F("media", ref.Path))
		rec.Category = p.deps.Classifier.CatchAll()
		rec.Outcome = OutcomeServiceFailure
		return
	}

	text, err := p.cached(ctx, spanTranscribe, "transcriber", ref.Path, "audio", p.deps.Transcriber.Transcribe)
	if err != nil {
		log.Warn("transcription failed", logging.F("media", ref.Path), logging.Err(err))
		rec.Category = p.deps.Classifier.CatchAll()
		rec.Outcome = OutcomeServiceFailure
		return
	}

	rec.Text = text
	if strings.TrimSpace(text) == "" {
		log.Warn("empty transcription", logging.F("media", ref.Path))
		rec.Category = p.deps.Classifier.CatchAll()
		rec.Outcome = OutcomeEmptyText
		return
	}
	rec.Category = p.deps.Classifier.Classify(text)
	rec.Outcome = OutcomeTranscribed
}

func (p *Pipeline) processImage(ctx context.Context, ev chat.Event, rec *Record) {
	log := p.deps.Logger.With(logging.F("chat", rec.Source), logging.F("line", ev.Line))

	ref := p.deps.Resolver.Resolve(ev)
	if !ref.Found {
		log.Warn("image not found", logging.F("attachment", ev.Attachment), logging.F("date", ref.LogicalDate.Format("2006-01-02")))
		rec.Category = category.ImageNotFound
		rec.Outcome = OutcomeImageNotFound
		return
	}
	rec.MediaPath = ref.Path

	text, err := p.cached(ctx, spanOCR, "ocr", ref.Path, "image", p.deps.OCR.ExtractText)
	if err != nil {
		log.Warn("ocr failed", logging.F("media", ref.Path), logging.Err(err))
	}
	if err == nil && strings.TrimSpace(text) != "" {
		rec.Text = text
		rec.Category = p.deps.Classifier.Classify(text)
		rec.Outcome = OutcomeOCR
		return
	}

	// no text in the image: the visual classifier decides, never the keywords
	c, ok := p.visual(ctx, ref.Path, log)
	if !ok {
		rec.Category = category.ImagePending
		rec.Outcome = OutcomeVisualNone
		return
	}
	rec.Category = c
	rec.Outcome = OutcomeVisual
}

func (p *Pipeline) visual(ctx context.Context, path string, log logging.Logger) (category.Category, bool) {
	ctx, span := startServiceSpan(ctx, spanVisual, path)
	start := time.Now()
	c, ok, err := p.deps.Visual.ClassifyImage(ctx, path)
	p.deps.Metrics.serviceCall("visual", start, err)
	endSpan(span, err)

	if err != nil {
		log.Warn("visual classification failed", logging.F("media", path), logging.Err(err))
		return "", false
	}
	if !ok {
		return "", false
	}
	known, err := category.Parse(p.deps.Universe, string(c))
	if err != nil {
		log.Warn("visual classifier returned unknown category", logging.F("media", path), logging.Err(err))
		return "", false
	}
	return known, true
}

// cached runs fn through the transcription cache inside a span.
func (p *Pipeline) cached(ctx context.Context, spanName, service, path, kind string, fn cache.ComputeFunc) (string, error) {
	ctx, span := startServiceSpan(ctx, spanName, path)

	called := false
	text, err := p.deps.Cache.GetOrCompute(ctx, path, kind, func(ctx context.Context, path string) (string, error) {
		called = true
		start := time.Now()
		text, err := fn(ctx, path)
		p.deps.Metrics.serviceCall(service, start, err)
		return text, err
	})
	p.deps.Metrics.cacheLookup(!called)
	span.SetAttributes(attribute.Bool("cache.hit", !called))
	endSpan(span, err)
	return text, err
}

// Stats returns counters accumulated across every Run and Process call.
func (p *Pipeline) Stats() Stats {
	s := newStats()
	s.Chats = p.stats.Chats
	for k, v := range p.stats.Events {
		s.Events[k] = v
	}
	for k, v := range p.stats.Outcomes {
		s.Outcomes[k] = v
	}
	s.CacheHits = p.deps.Cache.Hits()
	s.CacheMisses = p.deps.Cache.Misses()
	return s
}
