package provider

import (
	"net/http"
	"time"

	"github.com/deckoviz/vizzy/internal/config"
)

// BuildImageChain assembles the ranked image providers from config.
// Unknown types are skipped; the placeholder is never part of the
// configured chain since the Chain itself guarantees it as the bottom.
func BuildImageChain(cfg *config.ProvidersConfig) []Ranked {
	chain := make([]Ranked, 0, len(cfg.Image))
	for _, pc := range cfg.Image {
		client := newHTTPClient(pc.Timeout)
		var p ImageProvider
		switch pc.Type {
		case "runware":
			p = NewRunware(pc, client)
		case "huggingface":
			p = NewHuggingFace(pc, client)
		case "replicate":
			p = NewReplicate(pc, client)
		case "openrouter-images":
			p = NewOpenRouterImages(pc, client)
		default:
			continue
		}
		chain = append(chain, Ranked{Provider: p, Timeout: pc.Timeout})
	}
	return chain
}

// BuildTextProvider assembles the single text provider from config.
func BuildTextProvider(cfg *config.ProvidersConfig) *OpenRouterText {
	return NewOpenRouterText(cfg.Text, newHTTPClient(cfg.Text.Timeout))
}

func newHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			MaxIdleConns:        10,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
			ForceAttemptHTTP2:   true,
		},
	}
}
