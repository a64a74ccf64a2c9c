package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/google/uuid"

	"github.com/deckoviz/vizzy/internal/config"
	"github.com/deckoviz/vizzy/internal/types"
)

// Runware calls the Runware task-based inference API. Each request is
// an array of tasks; we submit one imageInference task asking for the
// full variation count synchronously.
type Runware struct {
	cfg    config.ProviderConfig
	client *http.Client
}

func NewRunware(cfg config.ProviderConfig, client *http.Client) *Runware {
	return &Runware{cfg: cfg, client: client}
}

func (r *Runware) Name() string { return r.cfg.Name }

type runwareTask struct {
	TaskType       string  `json:"taskType"`
	TaskUUID       string  `json:"taskUUID"`
	PositivePrompt string  `json:"positivePrompt"`
	Width          int     `json:"width"`
	Height         int     `json:"height"`
	Steps          int     `json:"steps"`
	CFGScale       float64 `json:"CFGScale"`
	Model          string  `json:"model"`
	OutputType     string  `json:"outputType"`
	OutputFormat   string  `json:"outputFormat"`
	NumberResults  int     `json:"numberResults"`
	DeliveryMethod string  `json:"deliveryMethod"`
}

type runwareResponse struct {
	Data []struct {
		ImageURL string `json:"imageURL"`
	} `json:"data"`
}

func (r *Runware) Generate(ctx context.Context, req types.GenerationRequest) ([]string, error) {
	width, height := runwareDimensions(req.Orientation)
	task := runwareTask{
		TaskType:       "imageInference",
		TaskUUID:       uuid.NewString(),
		PositivePrompt: req.Prompt,
		Width:          width,
		Height:         height,
		Steps:          30,
		CFGScale:       7.5,
		Model:          r.cfg.Model,
		OutputType:     "URL",
		OutputFormat:   "PNG",
		NumberResults:  req.Count,
		DeliveryMethod: "sync",
	}

	body, err := json.Marshal([]runwareTask{task})
	if err != nil {
		return nil, fmt.Errorf("marshal runware task: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, r.cfg.BaseURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create runware request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+r.cfg.APIKey)

	resp, err := r.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("runware request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("runware returned status %d", resp.StatusCode)
	}

	var parsed runwareResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode runware response: %w", err)
	}

	urls := make([]string, 0, len(parsed.Data))
	for _, d := range parsed.Data {
		if d.ImageURL != "" {
			urls = append(urls, d.ImageURL)
		}
	}
	return urls, nil
}

// runwareDimensions maps orientation to dimensions divisible by 64, a
// Runware API requirement.
func runwareDimensions(o types.Orientation) (w, h int) {
	switch o {
	case types.OrientationPortrait:
		return 576, 1024
	case types.OrientationLandscape:
		return 1024, 576
	default:
		return 768, 768
	}
}
