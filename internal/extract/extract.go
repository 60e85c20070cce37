// Package extract adapts the speech-to-text, OCR and visual services the
// pipeline consults. All of them are opaque: a media path goes in, text or a
// category comes out.
package extract

import (
	"context"
	"fmt"

	"github.com/HDumarBalmaceda/proyecto-informe/internal/category"
)

// Transcriber turns a voice note into text.
type Transcriber interface {
	Transcribe(ctx context.Context, path string) (string, error)
}

// TextExtractor reads the text visible in an image.
type TextExtractor interface {
	ExtractText(ctx context.Context, path string) (string, error)
}

// VisualClassifier assigns a category to an image without text. ok is false
// when it has no verdict.
type VisualClassifier interface {
	ClassifyImage(ctx context.Context, path string) (c category.Category, ok bool, err error)
}

// ServiceError is a failed call to an external service for one media file.
type ServiceError struct {
	Service string
	Path    string
	Cause   error
}

func (e *ServiceError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Service, e.Path, e.Cause)
}

func (e *ServiceError) Unwrap() error {
	return e.Cause
}

// NoVisual never has a verdict.
type NoVisual struct{}

func (NoVisual) ClassifyImage(context.Context, string) (category.Category, bool, error) {
	return "", false, nil
}

// NoOCR finds no text in any image, which sends every image to the visual
// classifier.
type NoOCR struct{}

func (NoOCR) ExtractText(context.Context, string) (string, error) {
	return "", nil
}

// TranscriberFunc adapts a function to Transcriber.
type TranscriberFunc func(ctx context.Context, path string) (string, error)

func (f TranscriberFunc) Transcribe(ctx context.Context, path string) (string, error) {
	return f(ctx, path)
}

// TextExtractorFunc adapts a function to TextExtractor.
type TextExtractorFunc func(ctx context.Context, path string) (string, error)

func (f TextExtractorFunc) ExtractText(ctx context.Context, path string) (string, error) {
	return f(ctx, path)
}

// VisualClassifierFunc adapts a function to VisualClassifier.
type VisualClassifierFunc func(ctx context.Context, path string) (category.Category, bool, error)

func (f VisualClassifierFunc) ClassifyImage(ctx context.Context, path string) (category.Category, bool, error) {
	return f(ctx, path)
}
