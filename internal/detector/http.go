package detector

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/morphosource/specimen-crop/internal/geometry"
)

// HTTPDetector calls a zero-shot detection inference service over HTTP.
//
// The service receives a multipart POST with the image file under the
// "file" field and the text prompt plus thresholds as form fields, and
// responds with JSON:
//
//	{"detections": [{"xmin":..., "ymin":..., "xmax":..., "ymax":..., "score":...}, ...]}
//
// The confidence threshold is applied service-side via the form field
// and again client-side as a guard, so a service ignoring the field
// cannot flood the engine with noise candidates.
type HTTPDetector struct {
	url           string
	boxThreshold  float64
	textThreshold float64
	client        *http.Client
}

// NewHTTPDetector creates an adapter for the inference service at url.
//
// boxThreshold is the minimum confidence a detection must reach to be
// returned; textThreshold is the prompt-token grounding threshold
// forwarded to the service. timeout bounds each inference call; zero
// means no client-side timeout.
func NewHTTPDetector(url string, boxThreshold, textThreshold float64, timeout time.Duration) *HTTPDetector {
	return &HTTPDetector{
		url:           url,
		boxThreshold:  boxThreshold,
		textThreshold: textThreshold,
		client:        &http.Client{Timeout: timeout},
	}
}

type detectionJSON struct {
	XMin  float64 `json:"xmin"`
	YMin  float64 `json:"ymin"`
	XMax  float64 `json:"xmax"`
	YMax  float64 `json:"ymax"`
	Score float64 `json:"score"`
}

type detectResponse struct {
	Detections []detectionJSON `json:"detections"`
}

// Detect uploads the image and prompt to the inference service and
// returns the decoded candidates above the configured box threshold.
func (d *HTTPDetector) Detect(ctx context.Context, imagePath, prompt string) ([]Candidate, error) {
	body, contentType, err := d.buildRequestBody(imagePath, prompt)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.url, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create detect request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("detector request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("detector returned status %d", resp.StatusCode)
	}

	var decoded detectResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("failed to decode detector response: %w", err)
	}

	cands := make([]Candidate, 0, len(decoded.Detections))
	for _, det := range decoded.Detections {
		if det.Score < d.boxThreshold {
			continue
		}
		cands = append(cands, Candidate{
			Box:        geometry.NewBox(det.XMin, det.YMin, det.XMax, det.YMax),
			Confidence: det.Score,
		})
	}
	return cands, nil
}

// buildRequestBody assembles the multipart form: image file, prompt,
// and the two detector thresholds.
func (d *HTTPDetector) buildRequestBody(imagePath, prompt string) (*bytes.Buffer, string, error) {
	f, err := os.Open(imagePath)
	if err != nil {
		return nil, "", fmt.Errorf("failed to open image: %w", err)
	}
	defer f.Close()

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	part, err := writer.CreateFormFile("file", filepath.Base(imagePath))
	if err != nil {
		return nil, "", fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := io.Copy(part, f); err != nil {
		return nil, "", fmt.Errorf("failed to copy image data: %w", err)
	}

	fields := map[string]string{
		"prompt":         prompt,
		"box_threshold":  fmt.Sprintf("%g", d.boxThreshold),
		"text_threshold": fmt.Sprintf("%g", d.textThreshold),
	}
	for name, value := range fields {
		if err := writer.WriteField(name, value); err != nil {
			return nil, "", fmt.Errorf("failed to write form field %s: %w", name, err)
		}
	}

	if err := writer.Close(); err != nil {
		return nil, "", fmt.Errorf("failed to finalize multipart body: %w", err)
	}
	return body, writer.FormDataContentType(), nil
}
