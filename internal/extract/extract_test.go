package extract

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/HDumarBalmaceda/proyecto-informe/internal/category"
	"github.com/HDumarBalmaceda/proyecto-informe/internal/config"
)

func requireTool(t *testing.T, name string) {
	t.Helper()
	if _, err := exec.LookPath(name); err != nil {
		t.Skipf("%s not installed", name)
	}
}

func TestCommand_SubstitutesFile(t *testing.T) {
	requireTool(t, "echo")
	out, err := Command{Argv: []string{"echo", "archivo={file}"}}.Run(context.Background(), "/tmp/a.opus")
	require.NoError(t, err)
	assert.Equal(t, "archivo=/tmp/a.opus", out)
}

func TestCommand_ReportsStderr(t *testing.T) {
	requireTool(t, "sh")
	_, err := Command{Argv: []string{"sh", "-c", "echo modelo no encontrado >&2; exit 3"}}.Run(context.Background(), "x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "modelo no encontrado")
}

func TestCommand_Timeout(t *testing.T) {
	requireTool(t, "sleep")
	start := time.Now()
	_, err := Command{Argv: []string{"sleep", "5"}, Timeout: 50 * time.Millisecond}.Run(context.Background(), "x")
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 4*time.Second)
}

func TestCommand_Empty(t *testing.T) {
	_, err := Command{}.Run(context.Background(), "x")
	assert.Error(t, err)
}

func TestCommandTranscriber(t *testing.T) {
	requireTool(t, "cat")
	path := filepath.Join(t.TempDir(), "PTT-20250904-WA0001.opus")
	require.NoError(t, os.WriteFile(path, []byte("  la impresora no imprime\n"), 0o644))

	tr := NewCommandTranscriber(Command{Argv: []string{"cat", "{file}"}}, nil)
	text, err := tr.Transcribe(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, "la impresora no imprime", text)
}

func TestCommandTranscriber_ServiceError(t *testing.T) {
	requireTool(t, "false")
	tr := NewCommandTranscriber(Command{Argv: []string{"false"}}, nil)
	_, err := tr.Transcribe(context.Background(), "a.opus")

	var se *ServiceError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, "transcriber", se.Service)
	assert.Equal(t, "a.opus", se.Path)
	assert.NotNil(t, errors.Unwrap(err))
}

func TestCommandTranscriber_ConversionFailure(t *testing.T) {
	tr := NewCommandTranscriber(
		Command{Argv: []string{"cat", "{file}"}},
		&WAVConverter{FFmpeg: filepath.Join(t.TempDir(), "no-ffmpeg")},
	)
	_, err := tr.Transcribe(context.Background(), "a.opus")

	var se *ServiceError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, "ffmpeg", se.Service)
}

func TestCommandVisual(t *testing.T) {
	requireTool(t, "echo")
	ctx := context.Background()

	c, ok, err := NewCommandVisual(Command{Argv: []string{"echo", "Office"}}).ClassifyImage(ctx, "x.jpg")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, category.Category("Office"), c)

	_, ok, err = NewCommandVisual(Command{Argv: []string{"echo", "none"}}).ClassifyImage(ctx, "x.jpg")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestNoVisualAndNoOCR(t *testing.T) {
	_, ok, err := NoVisual{}.ClassifyImage(context.Background(), "x.jpg")
	assert.NoError(t, err)
	assert.False(t, ok)

	text, err := NoOCR{}.ExtractText(context.Background(), "x.jpg")
	assert.NoError(t, err)
	assert.Empty(t, text)
}

func TestOpenAITranscriber(t *testing.T) {
	var gotPath, gotBody string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		body, _ := io.ReadAll(r.Body)
		gotBody = string(body)
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"text": " no tengo internet "}`)
	}))
	defer srv.Close()

	path := filepath.Join(t.TempDir(), "PTT-20250904-WA0002.ogg")
	require.NoError(t, os.WriteFile(path, []byte("OggS"), 0o644))

	tr, err := NewOpenAITranscriber(OpenAIConfig{
		APIKey:   "test-key",
		BaseURL:  srv.URL + "/",
		Language: "es",
	}, nil)
	require.NoError(t, err)

	text, err := tr.Transcribe(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, "no tengo internet", text)
	assert.True(t, strings.HasSuffix(gotPath, "/audio/transcriptions"))
	assert.Contains(t, gotBody, "whisper-1")
}

func TestOpenAITranscriber_RequiresKey(t *testing.T) {
	_, err := NewOpenAITranscriber(OpenAIConfig{}, nil)
	assert.Error(t, err)
}

func TestFromConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Visual.Command = []string{"clasificador", "{file}"}

	s, err := FromConfig(cfg)
	require.NoError(t, err)
	assert.IsType(t, &CommandTranscriber{}, s.Transcriber)
	assert.IsType(t, &CommandOCR{}, s.OCR)
	assert.IsType(t, &CommandVisual{}, s.Visual)

	cfg.Visual.Command = nil
	cfg.OCR.Command = nil
	s, err = FromConfig(cfg)
	require.NoError(t, err)
	assert.IsType(t, NoOCR{}, s.OCR)
	assert.IsType(t, NoVisual{}, s.Visual)
}

func TestFromConfig_OpenAI(t *testing.T) {
	cfg := config.Default()
	cfg.Transcriber.Backend = "openai"
	cfg.Transcriber.APIKeyEnv = "INFORME_TEST_OPENAI_KEY"

	t.Setenv("INFORME_TEST_OPENAI_KEY", "")
	_, err := FromConfig(cfg)
	assert.Error(t, err)

	t.Setenv("INFORME_TEST_OPENAI_KEY", "sk-test")
	s, err := FromConfig(cfg)
	require.NoError(t, err)
	assert.IsType(t, &OpenAITranscriber{}, s.Transcriber)
}
