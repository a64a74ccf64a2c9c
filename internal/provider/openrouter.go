package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/deckoviz/vizzy/internal/config"
	"github.com/deckoviz/vizzy/internal/types"
)

// OpenRouterText is the single text provider: an OpenAI-compatible
// chat-completions API. One timed-out attempt is retried once; all
// other failures surface immediately.
type OpenRouterText struct {
	cfg    config.ProviderConfig
	client *http.Client
}

func NewOpenRouterText(cfg config.ProviderConfig, client *http.Client) *OpenRouterText {
	return &OpenRouterText{cfg: cfg, client: client}
}

func (o *OpenRouterText) Name() string { return o.cfg.Name }

// Model returns the configured model label for UI transparency.
func (o *OpenRouterText) Model() string { return o.cfg.Model }

type chatCompletionRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
	Temperature float64   `json:"temperature,omitempty"`
}

type chatCompletionResponse struct {
	Choices []struct {
		Message struct {
			Content   string `json:"content"`
			Reasoning string `json:"reasoning"`
		} `json:"message"`
	} `json:"choices"`
}

func (o *OpenRouterText) Complete(ctx context.Context, system string, msgs []Message, opts CompleteOptions) (string, error) {
	if o.cfg.APIKey == "" {
		return "", fmt.Errorf("%w: no api key configured", ErrTextGeneration)
	}

	all := make([]Message, 0, len(msgs)+1)
	if system != "" {
		all = append(all, Message{Role: "system", Content: system})
	}
	all = append(all, msgs...)

	maxTokens := opts.MaxTokens
	if maxTokens <= 0 || maxTokens > 1000 {
		maxTokens = 1000
	}
	temperature := opts.Temperature
	if temperature == 0 {
		temperature = 0.7
	}

	body, err := json.Marshal(chatCompletionRequest{
		Model:       o.cfg.Model,
		Messages:    all,
		MaxTokens:   maxTokens,
		Temperature: temperature,
	})
	if err != nil {
		return "", fmt.Errorf("marshal completion request: %w", err)
	}

	var resp *http.Response
	for attempt := 0; attempt < 2; attempt++ {
		httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, o.cfg.BaseURL+"/chat/completions", bytes.NewReader(body))
		if err != nil {
			return "", fmt.Errorf("create completion request: %w", err)
		}
		httpReq.Header.Set("Content-Type", "application/json")
		httpReq.Header.Set("Authorization", "Bearer "+o.cfg.APIKey)

		resp, err = o.client.Do(httpReq)
		if err == nil {
			break
		}
		// Retry once on timeout only; context cancellation and other
		// transport errors surface immediately.
		if attempt == 0 && isTimeout(err) && ctx.Err() == nil {
			continue
		}
		return "", fmt.Errorf("%w: %v", ErrTextGeneration, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return "", fmt.Errorf("%w: provider returned status %d", ErrTextGeneration, resp.StatusCode)
	}

	var parsed chatCompletionResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("%w: decode response: %v", ErrTextGeneration, err)
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("%w: empty choices", ErrTextGeneration)
	}

	// Prefer content; some models return reasoning only.
	msg := parsed.Choices[0].Message
	text := strings.TrimSpace(msg.Content)
	if text == "" {
		text = strings.TrimSpace(msg.Reasoning)
	}
	if text == "" {
		return "", fmt.Errorf("%w: empty completion", ErrTextGeneration)
	}
	return text, nil
}

func isTimeout(err error) bool {
	var ne interface{ Timeout() bool }
	if errors.As(err, &ne) {
		return ne.Timeout()
	}
	return errors.Is(err, os.ErrDeadlineExceeded)
}

// OpenRouterImages calls the image generation endpoint of the same
// API. It currently caps at two images per call upstream, so a short
// chain slot rather than a primary.
type OpenRouterImages struct {
	cfg    config.ProviderConfig
	client *http.Client
}

func NewOpenRouterImages(cfg config.ProviderConfig, client *http.Client) *OpenRouterImages {
	return &OpenRouterImages{cfg: cfg, client: client}
}

func (o *OpenRouterImages) Name() string { return o.cfg.Name }

type imageGenerationRequest struct {
	Model          string `json:"model"`
	Prompt         string `json:"prompt"`
	NumImages      int    `json:"num_images"`
	Size           string `json:"size"`
	ResponseFormat string `json:"response_format"`
}

type imageGenerationResponse struct {
	Images []string `json:"images"`
}

func (o *OpenRouterImages) Generate(ctx context.Context, req types.GenerationRequest) ([]string, error) {
	n := req.Count
	if n > 2 {
		n = 2
	}
	body, err := json.Marshal(imageGenerationRequest{
		Model:          o.cfg.Model,
		Prompt:         req.Prompt,
		NumImages:      n,
		Size:           "512x512",
		ResponseFormat: "url",
	})
	if err != nil {
		return nil, fmt.Errorf("marshal image request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, o.cfg.BaseURL+"/images/generations", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create image request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+o.cfg.APIKey)

	resp, err := o.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("openrouter image request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("openrouter returned status %d", resp.StatusCode)
	}

	var parsed imageGenerationResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode image response: %w", err)
	}
	return parsed.Images, nil
}
