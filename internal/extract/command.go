package extract

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/HDumarBalmaceda/proyecto-informe/internal/category"
	"github.com/HDumarBalmaceda/proyecto-informe/internal/media"
)

const filePlaceholder = "{file}"

// Command is an external program run once per media file. Every "{file}" in
// Argv is replaced by the media path; stdout is the result.
type Command struct {
	Argv    []string
	Timeout time.Duration
}

// Run executes the command for file and returns its trimmed stdout.
func (c Command) Run(ctx context.Context, file string) (string, error) {
	if len(c.Argv) == 0 {
		return "", errors.New("no command configured")
	}
	if c.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}

	args := make([]string, len(c.Argv))
	for i, a := range c.Argv {
		args[i] = strings.ReplaceAll(a, filePlaceholder, file)
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, args[0], args[1:]...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return "", fmt.Errorf("%s: %w", args[0], ctx.Err())
		}
		msg := strings.TrimSpace(stderr.String())
		if msg != "" {
			return "", fmt.Errorf("%s: %w: %s", args[0], err, lastLine(msg))
		}
		return "", fmt.Errorf("%s: %w", args[0], err)
	}
	return strings.TrimSpace(stdout.String()), nil
}

func lastLine(s string) string {
	if i := strings.LastIndexByte(s, '\n'); i >= 0 {
		return s[i+1:]
	}
	return s
}

// WAVConverter re-encodes audio to 16 kHz mono WAV with ffmpeg, the input
// format speech models expect.
type WAVConverter struct {
	FFmpeg  string
	Timeout time.Duration
}

// Convert writes a temporary WAV copy of src. The caller must call cleanup.
func (w WAVConverter) Convert(ctx context.Context, src string) (string, func(), error) {
	tmp, err := os.CreateTemp("", media.Identity(src)+"_temp_*.wav")
	if err != nil {
		return "", nil, err
	}
	tmp.Close()
	cleanup := func() { os.Remove(tmp.Name()) }

	ffmpeg := w.FFmpeg
	if ffmpeg == "" {
		ffmpeg = "ffmpeg"
	}
	conv := Command{
		Argv:    []string{ffmpeg, "-y", "-loglevel", "error", "-i", src, "-ar", "16000", "-ac", "1", tmp.Name()},
		Timeout: w.Timeout,
	}
	if _, err := conv.Run(ctx, src); err != nil {
		cleanup()
		return "", nil, err
	}
	return tmp.Name(), cleanup, nil
}

// CommandTranscriber runs a local speech-to-text program, optionally after
// converting the input to WAV.
type CommandTranscriber struct {
	cmd     Command
	convert *WAVConverter
}

func NewCommandTranscriber(cmd Command, convert *WAVConverter) *CommandTranscriber {
	return &CommandTranscriber{cmd: cmd, convert: convert}
}

func (t *CommandTranscriber) Transcribe(ctx context.Context, path string) (string, error) {
	input := path
	if t.convert != nil {
		wav, cleanup, err := t.convert.Convert(ctx, path)
		if err != nil {
			return "", &ServiceError{Service: "ffmpeg", Path: path, Cause: err}
		}
		defer cleanup()
		input = wav
	}

	text, err := t.cmd.Run(ctx, input)
	if err != nil {
		return "", &ServiceError{Service: "transcriber", Path: path, Cause: err}
	}
	return text, nil
}

// CommandOCR runs an OCR program such as tesseract.
type CommandOCR struct {
	cmd Command
}

func NewCommandOCR(cmd Command) *CommandOCR {
	return &CommandOCR{cmd: cmd}
}

func (o *CommandOCR) ExtractText(ctx context.Context, path string) (string, error) {
	text, err := o.cmd.Run(ctx, path)
	if err != nil {
		return "", &ServiceError{Service: "ocr", Path: path, Cause: err}
	}
	return text, nil
}

// CommandVisual runs a program that prints a category name for an image.
// Empty output or "none" means no verdict.
type CommandVisual struct {
	cmd Command
}

func NewCommandVisual(cmd Command) *CommandVisual {
	return &CommandVisual{cmd: cmd}
}

func (v *CommandVisual) ClassifyImage(ctx context.Context, path string) (category.Category, bool, error) {
	out, err := v.cmd.Run(ctx, path)
	if err != nil {
		return "", false, &ServiceError{Service: "visual", Path: path, Cause: err}
	}
	out = lastLine(out)
	if out == "" || strings.EqualFold(out, "none") {
		return "", false, nil
	}
	return category.Category(out), true, nil
}
