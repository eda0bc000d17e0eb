package yandexgpt

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/Desarso/datarex/documents"
	"github.com/Desarso/datarex/models"
)

const DefaultVisionURL = "https://vision.api.cloud.yandex.net/vision/v1/batchAnalyze"

// VisionConfig configures the Yandex Vision client.
type VisionConfig struct {
	APIKey   string
	FolderID string
	URL      string
	Timeout  time.Duration
}

// VisionClient calls Yandex Vision batchAnalyze for OCR and image description.
type VisionClient struct {
	cfg    VisionConfig
	client *http.Client
}

var _ models.VisionDescriber = (*VisionClient)(nil)

func NewVisionClient(cfg VisionConfig) *VisionClient {
	if cfg.URL == "" {
		cfg.URL = DefaultVisionURL
	}
	return &VisionClient{cfg: cfg, client: models.NewHTTPClient(cfg.Timeout, false)}
}

// RecognizeText returns the words detected in the image joined by spaces.
func (v *VisionClient) RecognizeText(ctx context.Context, imagePath string) (string, error) {
	results, err := v.analyze(ctx, imagePath, textDetection())
	if err != nil {
		return "", err
	}
	var words []string
	for _, r := range results {
		if r.TextDetection != nil {
			words = append(words, r.TextDetection.words()...)
		}
	}
	return strings.Join(words, " "), nil
}

// Describe runs object, text and face detection and renders the findings as
// one line: "Objects: a, b; Text: ...; Faces: N".
func (v *VisionClient) Describe(ctx context.Context, imagePath string) (string, error) {
	results, err := v.analyze(ctx, imagePath,
		Feature{Type: "OBJECT_DETECTION"},
		textDetection(),
		Feature{Type: "FACE_DETECTION"},
	)
	if err != nil {
		return "", err
	}

	var parts []string
	for _, r := range results {
		if r.ObjectDetection != nil {
			names := make([]string, 0, len(r.ObjectDetection.Objects))
			for _, obj := range r.ObjectDetection.Objects {
				names = append(names, obj.Name)
			}
			parts = append(parts, "Objects: "+strings.Join(names, ", "))
		}
		if r.TextDetection != nil {
			parts = append(parts, "Text: "+strings.Join(r.TextDetection.words(), " "))
		}
		if r.FaceDetection != nil {
			parts = append(parts, fmt.Sprintf("Faces: %d", len(r.FaceDetection.Faces)))
		}
	}
	return strings.Join(parts, "; "), nil
}

func (v *VisionClient) analyze(ctx context.Context, imagePath string, features ...Feature) ([]FeatureResult, error) {
	data, err := os.ReadFile(imagePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read image: %w", err)
	}

	payload := AnalyzeRequest{
		FolderID: v.cfg.FolderID,
		AnalyzeSpecs: []AnalyzeSpec{{
			Content:  base64.StdEncoding.EncodeToString(data),
			MimeType: documents.MimeType(imagePath),
			Features: features,
		}},
	}
	jsonBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal vision request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.cfg.URL, bytes.NewReader(jsonBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to create vision request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Api-Key "+v.cfg.APIKey)
	if v.cfg.FolderID != "" {
		req.Header.Set("x-folder-id", v.cfg.FolderID)
	}

	resp, err := v.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("vision request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read vision response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &models.APIError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	var out AnalyzeResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("failed to decode vision response: %w", err)
	}
	if len(out.Results) == 0 {
		return nil, fmt.Errorf("vision response contained no results")
	}
	if e := out.Results[0].Error; e != nil {
		return nil, fmt.Errorf("vision analysis error %d: %s", e.Code, e.Message)
	}
	return out.Results[0].Results, nil
}

func textDetection() Feature {
	return Feature{
		Type:                "TEXT_DETECTION",
		TextDetectionConfig: &TextDetectionConfig{LanguageCodes: []string{"*"}},
	}
}

func (t *TextAnnotation) words() []string {
	var out []string
	for _, p := range t.Pages {
		for _, b := range p.Blocks {
			for _, l := range b.Lines {
				for _, w := range l.Words {
					if w.Text != "" {
						out = append(out, w.Text)
					}
				}
			}
		}
	}
	return out
}
