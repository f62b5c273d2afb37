package probe

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"

	"github.com/google/uuid"
	"github.com/okian/app1/pkg/logger"
)

const (
	randomIntLimit = 1000000
	maxTags        = 4
)

var tagPool = []string{"alpha", "beta", "gamma", "delta", "epsilon", "zeta"}

// randomInt returns a value in [0, limit) using crypto/rand.
func randomInt(limit int64) int64 {
	n, err := rand.Int(rand.Reader, big.NewInt(limit))
	if err != nil {
		return 0
	}
	return n.Int64()
}

// generatePayloads builds n distinct POST bodies mixing strings, numbers,
// lists and nested objects.
func generatePayloads(ctx context.Context, n int, stats *Stats) ([]map[string]any, error) {
	logger.Get().Info(ctx, "generating payloads", logger.Int("count", n))

	payloads := make([]map[string]any, n)
	for i := range payloads {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("context cancelled during payload generation: %w", err)
		}
		payloads[i] = generatePayload(i)
	}

	stats.PayloadsGenerated = len(payloads)
	return payloads, nil
}

// generatePayload creates a single body. Numbers stay integral so they
// survive a float64 round trip on the client.
func generatePayload(index int) map[string]any {
	tags := make([]any, 1+randomInt(maxTags))
	for i := range tags {
		tags[i] = tagPool[randomInt(int64(len(tagPool)))]
	}
	return map[string]any{
		"probe_id": uuid.NewString(),
		"index":    index,
		"score":    randomInt(randomIntLimit),
		"tags":     tags,
		"meta": map[string]any{
			"active": randomInt(2) == 1,
			"note":   nil,
		},
	}
}
