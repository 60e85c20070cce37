package extract

import (
	"context"
	"errors"
	"os"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

type OpenAIConfig struct {
	APIKey   string
	BaseURL  string
	Model    string
	Language string
	Timeout  time.Duration
}

// OpenAITranscriber sends voice notes to the Whisper transcription endpoint.
type OpenAITranscriber struct {
	client   openai.Client
	model    string
	language string
	timeout  time.Duration
	convert  *WAVConverter
}

func NewOpenAITranscriber(cfg OpenAIConfig, convert *WAVConverter) (*OpenAITranscriber, error) {
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, errors.New("openai: api key required")
	}

	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = string(openai.AudioModelWhisper1)
	}

	return &OpenAITranscriber{
		client:   openai.NewClient(opts...),
		model:    model,
		language: cfg.Language,
		timeout:  cfg.Timeout,
		convert:  convert,
	}, nil
}

func (t *OpenAITranscriber) Transcribe(ctx context.Context, path string) (string, error) {
	if t.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.timeout)
		defer cancel()
	}

	input := path
	if t.convert != nil {
		wav, cleanup, err := t.convert.Convert(ctx, path)
		if err != nil {
			return "", &ServiceError{Service: "ffmpeg", Path: path, Cause: err}
		}
		defer cleanup()
		input = wav
	}

	f, err := os.Open(input)
	if err != nil {
		return "", &ServiceError{Service: "openai", Path: path, Cause: err}
	}
	defer f.Close()

	params := openai.AudioTranscriptionNewParams{
		File:  f,
		Model: openai.AudioModel(t.model),
	}
	if t.language != "" {
		params.Language = openai.String(t.language)
	}

	resp, err := t.client.Audio.Transcriptions.New(ctx, params)
	if err != nil {
		return "", &ServiceError{Service: "openai", Path: path, Cause: err}
	}
	return strings.TrimSpace(resp.Text), nil
}
