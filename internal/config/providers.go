package config

import (
	"os"
	"sort"
	"time"
)

// ProvidersConfig declares the generation backends. Image providers
// form a priority-ordered fallback chain (lower Priority first); the
// local placeholder generator sits below all of them implicitly and is
// never configured here. Text generation uses a single provider.
type ProvidersConfig struct {
	Image []ProviderConfig `yaml:"image"`
	Text  ProviderConfig   `yaml:"text"`
}

type ProviderConfig struct {
	Name     string        `yaml:"name"`
	Type     string        `yaml:"type"`
	BaseURL  string        `yaml:"base_url"`
	APIKey   string        `yaml:"api_key"`
	Model    string        `yaml:"model,omitempty"`
	Priority int           `yaml:"priority"`
	Timeout  time.Duration `yaml:"timeout"`
}

// Normalize sorts the image chain by priority and drops entries without
// an API key, since calling them can only waste a chain slot.
func (p *ProvidersConfig) Normalize() {
	chain := p.Image[:0]
	for _, pc := range p.Image {
		if pc.APIKey != "" {
			chain = append(chain, pc)
		}
	}
	p.Image = chain
	sort.SliceStable(p.Image, func(i, j int) bool {
		return p.Image[i].Priority < p.Image[j].Priority
	})
}

// DefaultProvidersConfig builds the chain from well-known environment
// variables, mirroring the .env-driven setup the service historically
// ran with: Runware first, then HuggingFace, Replicate and OpenRouter.
func DefaultProvidersConfig() *ProvidersConfig {
	replicateKey := os.Getenv("REPLICATE_API_KEY")
	if replicateKey == "" {
		// Some tools set the alternate name; accept both.
		replicateKey = os.Getenv("REPLICATE_API_TOKEN")
	}

	cfg := &ProvidersConfig{
		Image: []ProviderConfig{
			{
				Name:     "runware",
				Type:     "runware",
				BaseURL:  "https://api.runware.ai/v1",
				APIKey:   os.Getenv("RUNWARE_API_KEY"),
				Model:    "runware:101@1",
				Priority: 1,
				Timeout:  120 * time.Second,
			},
			{
				Name:     "huggingface",
				Type:     "huggingface",
				BaseURL:  "https://api-inference.huggingface.co",
				APIKey:   os.Getenv("HUGGINGFACE_API_KEY"),
				Model:    "stabilityai/stable-diffusion-xl-base-1.0",
				Priority: 2,
				Timeout:  60 * time.Second,
			},
			{
				Name:     "replicate",
				Type:     "replicate",
				BaseURL:  "https://api.replicate.com/v1",
				APIKey:   replicateKey,
				Model:    "black-forest-labs/flux-schnell",
				Priority: 3,
				Timeout:  90 * time.Second,
			},
			{
				Name:     "openrouter-images",
				Type:     "openrouter-images",
				BaseURL:  "https://openrouter.ai/api/v1",
				APIKey:   os.Getenv("OPENROUTER_API_KEY"),
				Model:    "black-forest-labs/flux-pro",
				Priority: 4,
				Timeout:  45 * time.Second,
			},
		},
		Text: ProviderConfig{
			Name:    "openrouter",
			Type:    "openrouter",
			BaseURL: "https://openrouter.ai/api/v1",
			APIKey:  os.Getenv("OPENROUTER_API_KEY"),
			Model:   "openrouter/auto",
			Timeout: 45 * time.Second,
		},
	}
	cfg.Normalize()
	return cfg
}
