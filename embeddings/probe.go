package embeddings

import (
	"context"
	"time"
)

// Strategy names the embedding implementation selected at startup.
type Strategy string

const (
	StrategyDense Strategy = "dense"
	StrategyTFIDF Strategy = "tfidf"
	StrategyHash  Strategy = "hash"
)

// ProbeConfig lists the candidate embedders in preference order. Dense is
// probed with a live call; TFIDF and Hash are assumed available when set.
type ProbeConfig struct {
	Dense   Embedder
	TFIDF   Embedder
	Hash    Embedder
	Timeout time.Duration
	Logf    func(format string, args ...any)
}

// Select picks the embedding strategy once, at startup. The dense candidate
// wins when a probe call round-trips; otherwise selection falls through to
// TFIDF, then Hash. The decision is never revisited per call: mixing
// strategies within one index breaks vector comparability.
func Select(ctx context.Context, cfg ProbeConfig) (Embedder, Strategy) {
	logf := cfg.Logf
	if logf == nil {
		logf = func(string, ...any) {}
	}
	if cfg.Dense != nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 5 * time.Second
		}
		probeCtx, cancel := context.WithTimeout(ctx, timeout)
		vec, err := cfg.Dense.EmbedQuery(probeCtx, "probe")
		cancel()
		if err == nil && len(vec) > 0 {
			return cfg.Dense, StrategyDense
		}
		logf("dense embedder unavailable, falling back: %v", err)
	}
	if cfg.TFIDF != nil {
		return cfg.TFIDF, StrategyTFIDF
	}
	logf("no semantic embedder available, using hash fallback")
	return cfg.Hash, StrategyHash
}
