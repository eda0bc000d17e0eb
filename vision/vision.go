// Package vision analyzes images with whichever provider is configured for
// vision work. Multimodal providers receive the image inline; text-only
// providers get a description produced by a separate detection service.
package vision

import (
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/Desarso/datarex/documents"
	"github.com/Desarso/datarex/models"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"
)

const (
	DefaultPrompt      = "Describe the image in detail."
	DefaultTemperature = 0.4
	DefaultMaxTokens   = 1024

	// SystemPrompt frames the text-only request of the two-stage strategy.
	SystemPrompt = "You are an assistant that describes images."
)

// Result statuses.
const (
	StatusSuccess = "success"
	StatusError   = "error"
	StatusInfo    = "info"
)

// ErrFileNotFound is returned when the image to analyze does not exist.
var ErrFileNotFound = errors.New("file not found")

// ImageMetadata is what can be learned from the file alone.
type ImageMetadata struct {
	Format    string `json:"format,omitempty"`
	Width     int    `json:"width,omitempty"`
	Height    int    `json:"height,omitempty"`
	SizeBytes int64  `json:"size_bytes"`
	Error     string `json:"error,omitempty"`
}

// AnalysisResult is returned for every analysis, including failures of the
// provider calls and unsupported formats.
type AnalysisResult struct {
	Status            string                   `json:"status"`
	Analysis          string                   `json:"analysis,omitempty"`
	VisionDescription string                   `json:"vision_description,omitempty"`
	Message           string                   `json:"message,omitempty"`
	SupportedFormats  string                   `json:"supported_formats,omitempty"`
	Provider          string                   `json:"provider,omitempty"`
	Params            *models.GenerationParams `json:"params,omitempty"`
	ImageMetadata     *ImageMetadata           `json:"image_metadata,omitempty"`
}

// SupportedFormats lists the accepted extensions as shown to clients.
func SupportedFormats() string {
	return strings.Join(documents.ImageExtensions, ", ")
}

// IsSupported reports whether path has an accepted image extension.
func IsSupported(path string) bool {
	ext := documents.Ext(path)
	for _, e := range documents.ImageExtensions {
		if ext == e {
			return true
		}
	}
	return false
}

// Service runs image analysis against one provider.
type Service struct {
	provider  models.Provider
	describer models.VisionDescriber
	logger    *log.Logger
}

// NewService creates a vision service. describer may be nil; it is only
// consulted for text-only providers.
func NewService(provider models.Provider, describer models.VisionDescriber) *Service {
	return &Service{
		provider:  provider,
		describer: describer,
		logger:    log.New(os.Stdout, "[Vision] ", log.LstdFlags),
	}
}

// ProviderName returns the name of the provider analyses are sent to.
func (s *Service) ProviderName() string {
	return s.provider.Name()
}

// AnalyzeImage analyzes the image at path. Unsupported formats and failed
// provider calls are reported in the result; the only error is
// ErrFileNotFound.
func (s *Service) AnalyzeImage(ctx context.Context, path, prompt string, temperature float64, maxTokens int) (AnalysisResult, error) {
	if !IsSupported(path) {
		return AnalysisResult{
			Status:           StatusError,
			Message:          fmt.Sprintf("unsupported image format: %s", documents.Ext(path)),
			SupportedFormats: SupportedFormats(),
		}, nil
	}

	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return AnalysisResult{}, fmt.Errorf("%w: %s", ErrFileNotFound, path)
		}
		return AnalysisResult{}, err
	}
	if info.IsDir() {
		return AnalysisResult{}, fmt.Errorf("%w: %s is a directory", ErrFileNotFound, path)
	}

	if prompt == "" {
		prompt = DefaultPrompt
	}
	params := models.GenerationParams{
		Temperature: models.Float64(temperature),
		MaxTokens:   models.Int(maxTokens),
	}

	var result AnalysisResult
	switch {
	case s.provider.Capability() == models.CapabilityMultimodal:
		result, err = s.analyzeDirect(ctx, path, prompt, params)
	case s.describer != nil:
		result, err = s.analyzeTwoStage(ctx, path, prompt, params)
	default:
		return s.metadataOnly(path, info.Size()), nil
	}
	if err != nil {
		s.logger.Printf("Image analysis with %s failed: %v", s.provider.Name(), err)
		return AnalysisResult{
			Status:   StatusError,
			Message:  fmt.Sprintf("image analysis failed: %v", err),
			Provider: s.provider.Name(),
		}, nil
	}
	return result, nil
}

func (s *Service) analyzeDirect(ctx context.Context, path, prompt string, params models.GenerationParams) (AnalysisResult, error) {
	msg := models.Message{
		Role:    models.RoleUser,
		Content: prompt,
		File: &models.FileAttachment{
			Path:     path,
			Name:     filepath.Base(path),
			MimeType: documents.MimeType(path),
			Content:  path,
		},
	}
	resp, err := s.provider.SendRequest(ctx, []models.Message{msg}, params)
	if err != nil {
		return AnalysisResult{}, err
	}
	return AnalysisResult{
		Status:   StatusSuccess,
		Analysis: resp.Content,
		Provider: s.provider.Name(),
		Params:   &resp.Params,
	}, nil
}

func (s *Service) analyzeTwoStage(ctx context.Context, path, prompt string, params models.GenerationParams) (AnalysisResult, error) {
	description, err := s.describer.Describe(ctx, path)
	if err != nil {
		return AnalysisResult{}, fmt.Errorf("vision description: %w", err)
	}

	messages := []models.Message{
		{Role: models.RoleSystem, Content: SystemPrompt},
		{Role: models.RoleUser, Content: prompt + "\n\nImage description: " + description},
	}
	resp, err := s.provider.SendRequest(ctx, messages, params)
	if err != nil {
		return AnalysisResult{}, err
	}
	return AnalysisResult{
		Status:            StatusSuccess,
		Analysis:          resp.Content,
		VisionDescription: description,
		Provider:          s.provider.Name(),
		Params:            &resp.Params,
	}, nil
}

func (s *Service) metadataOnly(path string, size int64) AnalysisResult {
	return AnalysisResult{
		Status:        StatusInfo,
		Message:       "direct image analysis is not supported by the current provider",
		Provider:      s.provider.Name(),
		ImageMetadata: readMetadata(path, size),
	}
}

func readMetadata(path string, size int64) *ImageMetadata {
	meta := &ImageMetadata{SizeBytes: size}
	f, err := os.Open(path)
	if err != nil {
		meta.Error = err.Error()
		return meta
	}
	defer f.Close()

	cfg, format, err := image.DecodeConfig(f)
	if err != nil {
		meta.Error = err.Error()
		return meta
	}
	meta.Format = format
	meta.Width = cfg.Width
	meta.Height = cfg.Height
	return meta
}
