package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/HDumarBalmaceda/proyecto-informe/internal/cache"
	"github.com/HDumarBalmaceda/proyecto-informe/internal/category"
	"github.com/HDumarBalmaceda/proyecto-informe/internal/chat"
	"github.com/HDumarBalmaceda/proyecto-informe/internal/extract"
	"github.com/HDumarBalmaceda/proyecto-informe/internal/media"
	"github.com/HDumarBalmaceda/proyecto-informe/internal/scan"
)

type fakeServices struct {
	transcripts map[string]string
	ocr         map[string]string
	visual      map[string]category.Category
	failing     map[string]bool

	transcribeCalls int
	ocrCalls        int
	visualCalls     int
}

func newFakes() *fakeServices {
	return &fakeServices{
		transcripts: map[string]string{},
		ocr:         map[string]string{},
		visual:      map[string]category.Category{},
		failing:     map[string]bool{},
	}
}

func (f *fakeServices) transcribe(_ context.Context, path string) (string, error) {
	f.transcribeCalls++
	if f.failing[filepath.Base(path)] {
		return "", &extract.ServiceError{Service: "transcriber", Path: path, Cause: errors.New("boom")}
	}
	return f.transcripts[filepath.Base(path)], nil
}

func (f *fakeServices) extractText(_ context.Context, path string) (string, error) {
	f.ocrCalls++
	if f.failing[filepath.Base(path)] {
		return "", errors.New("tesseract crashed")
	}
	return f.ocr[filepath.Base(path)], nil
}

func (f *fakeServices) classifyImage(_ context.Context, path string) (category.Category, bool, error) {
	f.visualCalls++
	c, ok := f.visual[filepath.Base(path)]
	return c, ok, nil
}

func newTestPipeline(t *testing.T, fakes *fakeServices, mediaNames ...string) (*Pipeline, string) {
	t.Helper()
	dir := t.TempDir()
	for _, name := range mediaNames {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644))
	}
	files, err := scan.ScanMedia(dir)
	require.NoError(t, err)

	p := New(Deps{
		Resolver:    media.NewResolver(files, media.Options{Root: dir, Location: time.UTC}),
		Cache:       cache.New(cache.NewMemoryStore()),
		Transcriber: extract.TranscriberFunc(fakes.transcribe),
		OCR:         extract.TextExtractorFunc(fakes.extractText),
		Visual:      extract.VisualClassifierFunc(fakes.classifyImage),
	})
	return p, dir
}

func runTranscript(t *testing.T, p *Pipeline, content string) []Record {
	t.Helper()
	parser := chat.NewParser(strings.NewReader(content), chat.Options{MinYear: 2025, Location: time.UTC})
	records, err := p.Run(context.Background(), "chat.txt", parser)
	require.NoError(t, err)
	return records
}

func TestRun_TextLine(t *testing.T) {
	p, _ := newTestPipeline(t, newFakes())
	records := runTranscript(t, p, "04/09/2025, 10:15 - Cliente: la impresora no imprime\n")

	require.Len(t, records, 1)
	r := records[0]
	assert.Equal(t, category.Category("Impresora y Cajon"), r.Category)
	assert.Equal(t, time.September, r.Month)
	assert.Equal(t, 2025, r.Year)
	assert.Equal(t, time.Date(2025, 9, 4, 0, 0, 0, 0, time.UTC), r.Date)
	assert.Equal(t, OutcomeText, r.Outcome)
	assert.Equal(t, "chat.txt", r.Source)
	assert.Equal(t, 1, r.Line)
}

func TestRun_AudioWithoutFileIsCatchAll(t *testing.T) {
	fakes := newFakes()
	fakes.transcripts["PTT-20250904-WA0001.opus"] = "la impresora no imprime"
	p, _ := newTestPipeline(t, fakes)

	records := runTranscript(t, p, "04/09/2025, 10:15 - Cliente: <audio omitido>\n")
	require.Len(t, records, 1)
	assert.Equal(t, category.Pending, records[0].Category)
	assert.Equal(t, OutcomeResolutionMiss, records[0].Outcome)
	assert.Equal(t, 0, fakes.transcribeCalls)
}

func TestRun_AudioPoolExhausted(t *testing.T) {
	fakes := newFakes()
	fakes.transcripts["PTT-20250904-WA0001.opus"] = "no tengo internet"
	p, _ := newTestPipeline(t, fakes, "PTT-20250904-WA0001.opus")

	records := runTranscript(t, p, `04/09/2025, 10:15 - Cliente: <audio omitido>
04/09/2025, 10:20 - Cliente: <audio omitido>
`)
	require.Len(t, records, 2)
	assert.Equal(t, category.Category("Soporte de Red"), records[0].Category)
	assert.Equal(t, OutcomeTranscribed, records[0].Outcome)
	assert.Equal(t, "no tengo internet", records[0].Text)
	assert.Equal(t, category.Pending, records[1].Category)
	assert.Equal(t, OutcomeResolutionMiss, records[1].Outcome)
}

func TestRun_TranscriptionCachedPerIdentity(t *testing.T) {
	fakes := newFakes()
	fakes.transcripts["PTT-20250904-WA0001.opus"] = "el correo no abre"
	p, _ := newTestPipeline(t, fakes, "PTT-20250904-WA0001.opus")

	line := "04/09/2025, 10:15 - Cliente: PTT-20250904-WA0001.opus (archivo adjunto)\n"
	records := runTranscript(t, p, line+line)

	require.Len(t, records, 2)
	assert.Equal(t, 1, fakes.transcribeCalls)
	assert.Equal(t, records[0].Category, records[1].Category)
	assert.Equal(t, category.Category("Soporte de Correo"), records[1].Category)

	stats := p.Stats()
	assert.Equal(t, 1, stats.CacheHits)
	assert.Equal(t, 1, stats.CacheMisses)
}

func TestRun_TranscriptionFailureIsCatchAll(t *testing.T) {
	fakes := newFakes()
	fakes.failing["PTT-20250904-WA0001.opus"] = true
	p, _ := newTestPipeline(t, fakes, "PTT-20250904-WA0001.opus")

	records := runTranscript(t, p, "04/09/2025, 10:15 - Cliente: PTT-20250904-WA0001.opus (archivo adjunto)\n")
	require.Len(t, records, 1)
	assert.Equal(t, category.Pending, records[0].Category)
	assert.Equal(t, OutcomeServiceFailure, records[0].Outcome)
}

func TestRun_EmptyTranscriptionIsCatchAll(t *testing.T) {
	fakes := newFakes()
	p, _ := newTestPipeline(t, fakes, "PTT-20250904-WA0001.opus")

	records := runTranscript(t, p, "04/09/2025, 10:15 - Cliente: <audio omitido>\n")
	require.Len(t, records, 1)
	assert.Equal(t, category.Pending, records[0].Category)
	assert.Equal(t, OutcomeEmptyText, records[0].Outcome)
}

func TestRun_ImageWithText(t *testing.T) {
	fakes := newFakes()
	fakes.ocr["IMG-20250904-WA0001.jpg"] = "ERROR: SQL Server no responde"
	fakes.visual["IMG-20250904-WA0001.jpg"] = "Office"
	p, _ := newTestPipeline(t, fakes, "IMG-20250904-WA0001.jpg")

	records := runTranscript(t, p, "04/09/2025, 10:15 - Cliente: IMG-20250904-WA0001.jpg (archivo adjunto)\n")
	require.Len(t, records, 1)
	assert.Equal(t, category.Category("SQL"), records[0].Category)
	assert.Equal(t, OutcomeOCR, records[0].Outcome)
	assert.Equal(t, 0, fakes.visualCalls)
}

func TestRun_ImageWithoutTextUsesVisualClassifier(t *testing.T) {
	fakes := newFakes()
	fakes.ocr["IMG-20250904-WA0001.jpg"] = "   "
	fakes.visual["IMG-20250904-WA0001.jpg"] = "Equipo Fisico"
	p, _ := newTestPipeline(t, fakes, "IMG-20250904-WA0001.jpg")

	records := runTranscript(t, p, "04/09/2025, 10:15 - Cliente: <imagen omitida>\n")
	require.Len(t, records, 1)
	assert.Equal(t, category.Category("Equipo Fisico"), records[0].Category)
	assert.Equal(t, OutcomeVisual, records[0].Outcome)
	assert.Equal(t, 1, fakes.visualCalls)
}

func TestRun_VisualVerdictMatchesCategoryIgnoringCase(t *testing.T) {
	fakes := newFakes()
	fakes.visual["IMG-20250904-WA0001.jpg"] = " office "
	p, _ := newTestPipeline(t, fakes, "IMG-20250904-WA0001.jpg")

	records := runTranscript(t, p, "04/09/2025, 10:15 - Cliente: IMG-20250904-WA0001.jpg (archivo adjunto)\n")
	require.Len(t, records, 1)
	assert.Equal(t, category.Category("Office"), records[0].Category)
	assert.Equal(t, OutcomeVisual, records[0].Outcome)
}

func TestRun_ImageOCRFailureFallsBackToVisual(t *testing.T) {
	fakes := newFakes()
	fakes.failing["IMG-20250904-WA0001.jpg"] = true
	fakes.visual["IMG-20250904-WA0001.jpg"] = "UPS"
	p, _ := newTestPipeline(t, fakes, "IMG-20250904-WA0001.jpg")

	records := runTranscript(t, p, "04/09/2025, 10:15 - Cliente: <imagen omitida>\n")
	require.Len(t, records, 1)
	assert.Equal(t, category.Category("UPS"), records[0].Category)
	assert.Equal(t, OutcomeVisual, records[0].Outcome)
}

func TestRun_ImageVisualWithoutVerdict(t *testing.T) {
	fakes := newFakes()
	fakes.visual["IMG-20250904-WA0002.jpg"] = "Categoria inventada"
	p, _ := newTestPipeline(t, fakes, "IMG-20250904-WA0001.jpg", "IMG-20250904-WA0002.jpg")

	records := runTranscript(t, p, `04/09/2025, 10:15 - Cliente: <imagen omitida>
04/09/2025, 10:16 - Cliente: <imagen omitida>
`)
	require.Len(t, records, 2)
	for _, r := range records {
		assert.Equal(t, category.ImagePending, r.Category)
		assert.Equal(t, OutcomeVisualNone, r.Outcome)
	}
}

func TestRun_ImageNotFound(t *testing.T) {
	fakes := newFakes()
	p, _ := newTestPipeline(t, fakes)

	records := runTranscript(t, p, "04/09/2025, 10:15 - Cliente: IMG-20250904-WA0009.jpg (archivo adjunto)\n")
	require.Len(t, records, 1)
	assert.Equal(t, category.ImageNotFound, records[0].Category)
	assert.Equal(t, OutcomeImageNotFound, records[0].Outcome)
	assert.Equal(t, 0, fakes.ocrCalls)
}

func TestRun_OneRecordPerEvent(t *testing.T) {
	fakes := newFakes()
	fakes.transcripts["PTT-20250904-WA0001.opus"] = "necesito un informe"
	p, _ := newTestPipeline(t, fakes, "PTT-20250904-WA0001.opus", "IMG-20250905-WA0001.png")

	content := `03/09/2024, 09:00 - Cliente: fuera de rango
04/09/2025, 10:15 - Cliente: la impresora no imprime
linea de continuacion
04/09/2025, 10:16 - Cliente: <audio omitido>
04/09/2025, 10:17 - Soporte Donucol: ya lo reviso
05/09/2025, 08:00 - Cliente: <imagen omitida>
05/09/2025, 08:01 - Cliente: <audio omitido>
06/10/2025, 12:00 - Cliente: buenas tardes
`
	opts := chat.Options{MinYear: 2025, AgentSenders: []string{"soporte donucol"}, Location: time.UTC}
	events, err := chat.ParseAll(strings.NewReader(content), opts)
	require.NoError(t, err)

	records, err := p.Run(context.Background(), "chat.txt", chat.NewParser(strings.NewReader(content), opts))
	require.NoError(t, err)
	require.Len(t, records, len(events))

	for i := range events {
		assert.Equal(t, events[i].Line, records[i].Line)
	}

	stats := p.Stats()
	assert.Equal(t, len(events), stats.Records())
	assert.Equal(t, 1, stats.Chats)
	assert.Equal(t, 2, stats.Events[chat.KindText])
	assert.Equal(t, 2, stats.Events[chat.KindAudio])
	assert.Equal(t, 1, stats.Events[chat.KindImage])
	assert.Contains(t, stats.String(), "chats=1")
}

func TestRun_CancelledContext(t *testing.T) {
	p, _ := newTestPipeline(t, newFakes())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	parser := chat.NewParser(strings.NewReader("04/09/2025, 10:15 - Cliente: hola\n"), chat.Options{})
	_, err := p.Run(ctx, "chat.txt", parser)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRunFile(t *testing.T) {
	p, _ := newTestPipeline(t, newFakes())
	path := filepath.Join(t.TempDir(), "Chat de WhatsApp con Sede Norte.txt")
	require.NoError(t, os.WriteFile(path, []byte("04/09/2025, 10:15 - Cliente: el biometrico no marca\n"), 0o644))

	records, err := p.RunFile(context.Background(), path, chat.Options{Location: time.UTC})
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "Chat de WhatsApp con Sede Norte.txt", records[0].Source)
	assert.Equal(t, category.Category("Instalacion Biometrico"), records[0].Category)

	_, err = p.RunFile(context.Background(), filepath.Join(t.TempDir(), "nope.txt"), chat.Options{})
	assert.Error(t, err)
}

func TestMetrics(t *testing.T) {
	fakes := newFakes()
	fakes.transcripts["PTT-20250904-WA0001.opus"] = "cambio de precio"
	reg := prometheus.NewRegistry()
	metrics := NewMetrics(reg)

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "PTT-20250904-WA0001.opus"), []byte("x"), 0o644))
	files, err := scan.ScanMedia(dir)
	require.NoError(t, err)

	p := New(Deps{
		Resolver:    media.NewResolver(files, media.Options{Location: time.UTC}),
		Transcriber: extract.TranscriberFunc(fakes.transcribe),
		Metrics:     metrics,
	})
	line := "04/09/2025, 10:15 - Cliente: PTT-20250904-WA0001.opus (archivo adjunto)\n"
	runTranscript(t, p, line+line+"04/09/2025, 10:16 - Cliente: hola\n")

	assert.Equal(t, 2.0, testutil.ToFloat64(metrics.EventsTotal.WithLabelValues("audio")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.EventsTotal.WithLabelValues("text")))
	assert.Equal(t, 2.0, testutil.ToFloat64(metrics.RecordsTotal.WithLabelValues(string(OutcomeTranscribed))))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.ServiceCallsTotal.WithLabelValues("transcriber", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.CacheLookupsTotal.WithLabelValues("hit")))

	out := filepath.Join(t.TempDir(), "informe.prom")
	require.NoError(t, WriteTextfile(out, reg))
	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Contains(t, string(data), "informe_events_total")
}

func TestCountByCategory(t *testing.T) {
	records := []Record{
		{Category: "UPS"}, {Category: "SQL"}, {Category: "UPS"}, {Category: "Backup"},
	}
	counts := CountByCategory(records)
	require.Len(t, counts, 3)
	assert.Equal(t, CategoryCount{Category: "UPS", Count: 2}, counts[0])
	assert.Equal(t, category.Category("Backup"), counts[1].Category)
}
