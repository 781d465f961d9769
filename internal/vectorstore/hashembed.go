package vectorstore

import (
	"context"
	"math"

	"github.com/cespare/xxhash/v2"
)

// HashEmbedder is the built-in Embedder cmd/recall wires in when no
// external embedding model is configured. spec.md treats the embedding
// model as an out-of-core-scope caller dependency (see the Embedder
// boundary above); this gives standalone runs a deterministic stand-in
// rather than leaving semantic mode unusable, using the same xxhash
// primitive internal/hashid reserves for non-cryptographic hot-path
// hashing. It is not a model: whitespace-token hashes projected onto a
// fixed-width vector, so recall@k on genuinely semantic queries is
// poor, but near-duplicate and identifier-overlap queries still work.
type HashEmbedder struct {
	Dims int
}

// NewHashEmbedder returns a HashEmbedder with the given vector width
// (32 if dims <= 0).
func NewHashEmbedder(dims int) *HashEmbedder {
	if dims <= 0 {
		dims = 32
	}
	return &HashEmbedder{Dims: dims}
}

// Embed hashes each whitespace-delimited token into a bucket of the
// output vector and L2-normalizes the result, so cosine similarity
// between two texts tracks their shared-token overlap.
func (e *HashEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	vec := make([]float32, e.Dims)
	var tok []byte
	flush := func() {
		if len(tok) == 0 {
			return
		}
		h := xxhash.Sum64(tok)
		bucket := int(h % uint64(e.Dims))
		sign := float32(1)
		if (h>>63)&1 == 1 {
			sign = -1
		}
		vec[bucket] += sign
		tok = tok[:0]
	}
	for i := 0; i < len(text); i++ {
		c := text[i]
		if c == ' ' || c == '\t' || c == '\n' || c == '\r' {
			flush()
			continue
		}
		tok = append(tok, c)
	}
	flush()

	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	if norm == 0 {
		return vec, nil
	}
	norm = math.Sqrt(norm)
	for i, v := range vec {
		vec[i] = float32(float64(v) / norm)
	}
	return vec, nil
}
