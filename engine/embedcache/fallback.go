package embedcache

import (
	"hash/maphash"
	"math"
	"strings"
)

// FallbackDimension is the vector width used by the hash-mix fallback
// embedding. It is fixed and independent of the embedding model, so it can
// differ from a real model's width (768 for nomic-embed-text);
// CosineSimilarity returns 0 for vectors of different lengths.
const FallbackDimension = 384

// fallbackSeed is fixed once per process: the contract only promises
// same-input-same-output within a process lifetime, never across them.
var fallbackSeed = maphash.MakeSeed()

// FallbackEmbed deterministically hashes text into a unit-norm pseudo
// embedding. It is used only when the LLM orchestrator's real embedding
// endpoint is unavailable; collisions are expected and acceptable.
func FallbackEmbed(text string) []float32 {
	vec := make([]float32, FallbackDimension)
	words := strings.Fields(text)
	for i, w := range words {
		var h maphash.Hash
		h.SetSeed(fallbackSeed)
		h.WriteString(w)
		idx := h.Sum64() % uint64(FallbackDimension)
		vec[idx] += 1.0 / float32(i+1)
	}
	return L2Normalize(vec)
}

// L2Normalize scales v in place to unit length, leaving an all-zero
// vector untouched.
func L2Normalize(v []float32) []float32 {
	var sumSq float64
	for _, f := range v {
		sumSq += float64(f) * float64(f)
	}
	if sumSq == 0 {
		return v
	}
	mag := float32(math.Sqrt(sumSq))
	for i := range v {
		v[i] /= mag
	}
	return v
}

// CosineSimilarity returns the cosine similarity of two equal-length
// vectors, or 0 if their lengths differ or either is the zero vector.
func CosineSimilarity(a, b []float32) float32 {
	if len(a) != len(b) {
		return 0
	}
	var dot, magA, magB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		magA += float64(a[i]) * float64(a[i])
		magB += float64(b[i]) * float64(b[i])
	}
	if magA == 0 || magB == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(magA) * math.Sqrt(magB)))
}
