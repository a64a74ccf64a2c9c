package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/deckoviz/vizzy/internal/config"
	"github.com/deckoviz/vizzy/internal/types"
)

// Replicate runs a model prediction with the blocking "Prefer: wait"
// mode, so a single call returns the finished output URLs.
type Replicate struct {
	cfg    config.ProviderConfig
	client *http.Client
}

func NewReplicate(cfg config.ProviderConfig, client *http.Client) *Replicate {
	return &Replicate{cfg: cfg, client: client}
}

func (r *Replicate) Name() string { return r.cfg.Name }

type replicateRequest struct {
	Input replicateInput `json:"input"`
}

type replicateInput struct {
	Prompt      string `json:"prompt"`
	NumOutputs  int    `json:"num_outputs"`
	AspectRatio string `json:"aspect_ratio"`
	GoFast      bool   `json:"go_fast"`
}

type replicateResponse struct {
	Status string          `json:"status"`
	Output json.RawMessage `json:"output"`
}

func (r *Replicate) Generate(ctx context.Context, req types.GenerationRequest) ([]string, error) {
	body, err := json.Marshal(replicateRequest{
		Input: replicateInput{
			Prompt:      req.Prompt,
			NumOutputs:  req.Count,
			AspectRatio: replicateAspect(req.Orientation),
			GoFast:      true,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("marshal replicate request: %w", err)
	}

	url := r.cfg.BaseURL + "/models/" + r.cfg.Model + "/predictions"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create replicate request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+r.cfg.APIKey)
	httpReq.Header.Set("Prefer", "wait")

	resp, err := r.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("replicate request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("replicate returned status %d", resp.StatusCode)
	}

	var parsed replicateResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode replicate response: %w", err)
	}

	// Output is a list of URLs for multi-output models, a bare string
	// otherwise.
	var urls []string
	if err := json.Unmarshal(parsed.Output, &urls); err != nil {
		var single string
		if err := json.Unmarshal(parsed.Output, &single); err != nil || single == "" {
			return nil, fmt.Errorf("replicate output in unexpected shape")
		}
		urls = []string{single}
	}
	return urls, nil
}

func replicateAspect(o types.Orientation) string {
	switch o {
	case types.OrientationPortrait:
		return "9:16"
	case types.OrientationLandscape:
		return "16:9"
	default:
		return "1:1"
	}
}
