package provider

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/deckoviz/vizzy/internal/config"
	"github.com/deckoviz/vizzy/internal/types"
)

// HuggingFace calls the serverless inference API. Text-to-image returns
// raw image bytes, one image per call, so variations are fetched
// sequentially; partial yield still counts as success for the chain.
type HuggingFace struct {
	cfg    config.ProviderConfig
	client *http.Client
}

func NewHuggingFace(cfg config.ProviderConfig, client *http.Client) *HuggingFace {
	return &HuggingFace{cfg: cfg, client: client}
}

func (h *HuggingFace) Name() string { return h.cfg.Name }

func (h *HuggingFace) Generate(ctx context.Context, req types.GenerationRequest) ([]string, error) {
	var urls []string
	var lastErr error
	for i := 0; i < req.Count; i++ {
		if ctx.Err() != nil {
			break
		}
		dataURL, err := h.one(ctx, req.Prompt)
		if err != nil {
			lastErr = err
			continue
		}
		urls = append(urls, dataURL)
	}
	if len(urls) == 0 {
		if lastErr == nil {
			lastErr = ErrEmptyResult
		}
		return nil, lastErr
	}
	return urls, nil
}

func (h *HuggingFace) one(ctx context.Context, prompt string) (string, error) {
	body, err := json.Marshal(map[string]string{"inputs": prompt})
	if err != nil {
		return "", fmt.Errorf("marshal huggingface request: %w", err)
	}

	url := h.cfg.BaseURL + "/models/" + h.cfg.Model
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create huggingface request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+h.cfg.APIKey)
	httpReq.Header.Set("Accept", "image/png")

	resp, err := h.client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("huggingface request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return "", fmt.Errorf("huggingface returned status %d", resp.StatusCode)
	}

	img, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read huggingface image: %w", err)
	}
	if len(img) == 0 {
		return "", ErrEmptyResult
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(img), nil
}
