package provider

import (
	"context"
	"crypto/md5"
	"fmt"
	"math/big"
	"net/url"

	"github.com/deckoviz/vizzy/internal/types"
)

// Placeholder renders local SVG stand-ins when every remote provider
// has failed. Colors are seeded from a hash of the prompt so the same
// prompt always yields the same previews, and it can never fail.
type Placeholder struct{}

func (Placeholder) Name() string { return "placeholder" }

func (Placeholder) Generate(_ context.Context, req types.GenerationRequest) ([]string, error) {
	return PlaceholderImages(req.Prompt, req.Count), nil
}

// PlaceholderImages returns count SVG data URLs colored
// deterministically from seedPrompt.
func PlaceholderImages(seedPrompt string, count int) []string {
	if count <= 0 {
		return nil
	}
	sum := md5.Sum([]byte(seedPrompt))
	seed := new(big.Int).SetBytes(sum[:])
	base := int(new(big.Int).Mod(seed, big.NewInt(360)).Int64())

	urls := make([]string, 0, count)
	for i := 0; i < count; i++ {
		hue := (base + i*120) % 360
		saturation := 60 + int(sum[i%len(sum)])%41
		lightness := 50 + int(sum[(i+7)%len(sum)])%31
		color := fmt.Sprintf("hsl(%d, %d%%, %d%%)", hue, saturation, lightness)

		svg := fmt.Sprintf(
			"<svg xmlns='http://www.w3.org/2000/svg' width='512' height='512' viewBox='0 0 512 512'>"+
				"<rect width='100%%' height='100%%' fill='%s'/>"+
				"<text x='50%%' y='50%%' font-size='24' fill='white' text-anchor='middle' dominant-baseline='middle'>"+
				"Placeholder %d</text>"+
				"</svg>",
			color, i+1,
		)
		urls = append(urls, "data:image/svg+xml;charset=utf-8,"+url.PathEscape(svg))
	}
	return urls
}
