package facematch

import (
	"math"

	"github.com/google/uuid"
)

// distanceEpsilon keeps the cosine denominator away from zero for all-zero
// vectors.
const distanceEpsilon = 1e-8

// maxDistance is returned for pairs that cannot be compared at all: length
// mismatch or an empty vector. Such candidates are never selected under any
// threshold in (0,1).
const maxDistance = 1.0

// DefaultThreshold is the maximum cosine distance at which a probe still
// resolves to a registered face.
const DefaultThreshold = 0.3

// CosineDistance computes 1 - cosine similarity between two embeddings.
// 0 means identical direction, larger means more dissimilar. Vectors of
// different length (or empty vectors) are maximally dissimilar rather than an
// error, so one malformed stored embedding cannot abort a whole resolution.
func CosineDistance(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return maxDistance
	}

	var dot, normA, normB float64
	for i := range a {
		x := float64(a[i])
		y := float64(b[i])
		dot += x * y
		normA += x * x
		normB += y * y
	}

	return 1 - dot/(math.Sqrt(normA)*math.Sqrt(normB)+distanceEpsilon)
}

// Candidate is one registered face eligible for matching.
type Candidate struct {
	UserID    uuid.UUID
	Embedding []float32
}

// Resolution is the outcome of resolving a probe embedding. A zero Resolution
// with Resolved=false means no candidate met the threshold; that is a normal
// result, not an error.
type Resolution struct {
	Resolved bool
	UserID   uuid.UUID
	Distance float64
}

// Resolver matches probe embeddings against registered faces with a linear
// nearest-neighbor scan.
type Resolver struct {
	threshold float64
}

// NewResolver creates a resolver. A threshold outside (0,1) falls back to
// DefaultThreshold.
func NewResolver(threshold float64) *Resolver {
	if threshold <= 0 || threshold >= 1 {
		threshold = DefaultThreshold
	}
	return &Resolver{threshold: threshold}
}

// Threshold returns the configured acceptance threshold.
func (r *Resolver) Threshold() float64 {
	return r.threshold
}

// Resolve finds the candidate nearest to the probe. Candidates without an
// embedding are skipped. Ties keep the first candidate in iteration order, so
// callers that need stable re-runs should pass candidates in a stable order.
func (r *Resolver) Resolve(probe []float32, candidates []Candidate) Resolution {
	best := Resolution{Distance: math.Inf(1)}

	for _, c := range candidates {
		if len(c.Embedding) == 0 {
			continue
		}
		d := CosineDistance(probe, c.Embedding)
		if d < best.Distance {
			best.Distance = d
			best.UserID = c.UserID
		}
	}

	if math.IsInf(best.Distance, 1) || best.Distance > r.threshold {
		return Resolution{}
	}

	best.Resolved = true
	return best
}
