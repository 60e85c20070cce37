package extract

import (
	"fmt"
	"os"

	"github.com/HDumarBalmaceda/proyecto-informe/internal/config"
)

// Services bundles the configured backends.
type Services struct {
	Transcriber Transcriber
	OCR         TextExtractor
	Visual      VisualClassifier
}

// FromConfig builds the services described by cfg.
func FromConfig(cfg *config.Config) (*Services, error) {
	tcfg := cfg.Transcriber
	timeout, err := config.ParseTimeout(tcfg.Timeout)
	if err != nil {
		return nil, fmt.Errorf("transcriber timeout: %w", err)
	}

	var convert *WAVConverter
	if tcfg.ConvertWAV {
		convert = &WAVConverter{FFmpeg: tcfg.FFmpeg, Timeout: timeout}
	}

	s := &Services{Visual: NoVisual{}}

	switch tcfg.Backend {
	case "openai":
		t, err := NewOpenAITranscriber(OpenAIConfig{
			APIKey:   os.Getenv(tcfg.APIKeyEnv),
			BaseURL:  tcfg.BaseURL,
			Model:    tcfg.OpenAIModel,
			Language: tcfg.Language,
			Timeout:  timeout,
		}, convert)
		if err != nil {
			return nil, err
		}
		s.Transcriber = t
	default:
		s.Transcriber = NewCommandTranscriber(Command{Argv: tcfg.Command, Timeout: timeout}, convert)
	}

	ocrTimeout, err := config.ParseTimeout(cfg.OCR.Timeout)
	if err != nil {
		return nil, fmt.Errorf("ocr timeout: %w", err)
	}
	if len(cfg.OCR.Command) > 0 {
		s.OCR = NewCommandOCR(Command{Argv: cfg.OCR.Command, Timeout: ocrTimeout})
	} else {
		s.OCR = NoOCR{}
	}

	visualTimeout, err := config.ParseTimeout(cfg.Visual.Timeout)
	if err != nil {
		return nil, fmt.Errorf("visual timeout: %w", err)
	}
	if len(cfg.Visual.Command) > 0 {
		s.Visual = NewCommandVisual(Command{Argv: cfg.Visual.Command, Timeout: visualTimeout})
	}
	return s, nil
}
