package provider

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/deckoviz/vizzy/internal/types"
)

// Ranked pairs an image provider with its per-call timeout.
type Ranked struct {
	Provider ImageProvider
	Timeout  time.Duration
}

// Chain iterates image providers in priority order, falling back on
// timeout, transport error, non-2xx response or empty payload. The
// first provider returning at least one URL wins; a provider is never
// retried within one Generate call. An exhausted chain falls through to
// the deterministic placeholder, labeled types.ProviderNone.
type Chain struct {
	mu        sync.RWMutex
	providers []Ranked

	placeholder    Placeholder
	defaultTimeout time.Duration
	overallTimeout time.Duration
	logger         *slog.Logger

	onFailure     func(provider string)
	onFallthrough func()
}

func NewChain(providers []Ranked, defaultTimeout, overallTimeout time.Duration, logger *slog.Logger) *Chain {
	if logger == nil {
		logger = slog.Default()
	}
	return &Chain{
		providers:      providers,
		defaultTimeout: defaultTimeout,
		overallTimeout: overallTimeout,
		logger:         logger,
	}
}

// SetProviders swaps the chain, used when the providers config hot
// reloads.
func (c *Chain) SetProviders(providers []Ranked) {
	c.mu.Lock()
	c.providers = providers
	c.mu.Unlock()
}

// OnFailure registers a hook invoked once per failed provider attempt.
func (c *Chain) OnFailure(fn func(provider string)) { c.onFailure = fn }

// OnFallthrough registers a hook invoked when the whole chain was
// exhausted and the placeholder stepped in.
func (c *Chain) OnFallthrough(fn func()) { c.onFallthrough = fn }

// Generate runs the fallback chain for a visual request. It never
// returns an error: total failure degrades to placeholder output. The
// whole call is capped by the overall timeout on top of each
// provider's own.
func (c *Chain) Generate(ctx context.Context, req types.GenerationRequest) types.GenerationResult {
	c.mu.RLock()
	providers := make([]Ranked, len(c.providers))
	copy(providers, c.providers)
	c.mu.RUnlock()

	if c.overallTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.overallTimeout)
		defer cancel()
	}

	for _, rp := range providers {
		if ctx.Err() != nil {
			break
		}
		timeout := rp.Timeout
		if timeout <= 0 {
			timeout = c.defaultTimeout
		}
		callCtx, cancel := context.WithTimeout(ctx, timeout)
		started := time.Now()
		urls, err := rp.Provider.Generate(callCtx, req)
		cancel()

		if err == nil && len(urls) == 0 {
			err = ErrEmptyResult
		}
		if err != nil {
			c.logger.Warn("image provider failed, falling back",
				"provider", rp.Provider.Name(),
				"error", err,
				"duration_ms", time.Since(started).Milliseconds(),
			)
			if c.onFailure != nil {
				c.onFailure(rp.Provider.Name())
			}
			continue
		}

		if len(urls) > req.Count {
			urls = urls[:req.Count]
		}
		c.logger.Info("images generated",
			"provider", rp.Provider.Name(),
			"requested", req.Count,
			"returned", len(urls),
			"duration_ms", time.Since(started).Milliseconds(),
		)
		return types.GenerationResult{
			URLs:         urls,
			Descriptions: describeVariations(req, len(urls)),
			Provider:     rp.Provider.Name(),
		}
	}

	c.logger.Warn("all image providers exhausted, using placeholder", "requested", req.Count)
	if c.onFallthrough != nil {
		c.onFallthrough()
	}
	urls, _ := c.placeholder.Generate(ctx, req)
	return types.GenerationResult{
		URLs:         urls,
		Descriptions: describeVariations(req, len(urls)),
		Provider:     types.ProviderNone,
	}
}

// lightingCues rotate across variations so each description carries a
// distinct palette/lighting note.
var lightingCues = [...]string{
	"soft diffused lighting, warm golden palette",
	"high-contrast dramatic lighting, deep saturated tones",
	"cool muted palette, gentle ambient light",
	"vivid complementary colors, crisp directional light",
}

func describeVariations(req types.GenerationRequest, n int) []string {
	if n <= 0 {
		return nil
	}
	style := req.Style
	if style == "" {
		style = "balanced composition"
	}
	out := make([]string, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, fmt.Sprintf("%d. %s — %s, %s",
			i+1, req.Orientation.Phrase(), style, lightingCues[i%len(lightingCues)]))
	}
	return out
}
