package facematch

import (
	"fmt"
	"os"
	"sync"

	"github.com/coder/hnsw"
	"github.com/google/uuid"
)

// hnswMaxNeighbors is the M parameter of the HNSW graph.
const hnswMaxNeighbors = 16

// Index is an approximate-nearest-neighbor index over registered face
// embeddings. It exists purely as a speedup for large user counts; the
// threshold/unresolved contract is identical to Resolver's linear scan
// because the final distance is always recomputed exactly.
type Index struct {
	graph *hnsw.Graph[string]
	dim   int
	count int
	mu    sync.RWMutex
}

// NewIndex builds an index from the given candidates. Candidates with empty
// embeddings are skipped; the first candidate's dimension becomes the index
// dimension and candidates of other lengths are skipped as well, matching
// the length-mismatch rule of CosineDistance.
func NewIndex(candidates []Candidate) *Index {
	ix := &Index{}

	g := hnsw.NewGraph[string]()
	g.M = hnswMaxNeighbors
	g.Ml = 1.0 / float64(hnswMaxNeighbors)
	g.Distance = hnsw.CosineDistance

	for _, c := range candidates {
		if len(c.Embedding) == 0 {
			continue
		}
		if ix.dim == 0 {
			ix.dim = len(c.Embedding)
		}
		if len(c.Embedding) != ix.dim {
			continue
		}
		g.Add(hnsw.MakeNode(c.UserID.String(), c.Embedding))
	}

	ix.graph = g
	ix.count = g.Len()
	return ix
}

// Add inserts a single candidate, replacing any previous embedding for the
// same user.
func (ix *Index) Add(c Candidate) {
	if len(c.Embedding) == 0 {
		return
	}
	ix.mu.Lock()
	defer ix.mu.Unlock()

	if ix.dim == 0 {
		ix.dim = len(c.Embedding)
	}
	if len(c.Embedding) != ix.dim {
		return
	}
	// Adding an existing key replaces its embedding, so count comes from the
	// graph rather than a counter.
	ix.graph.Add(hnsw.MakeNode(c.UserID.String(), c.Embedding))
	ix.count = ix.graph.Len()
}

// Count returns the number of indexed embeddings.
func (ix *Index) Count() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return ix.count
}

// Save persists the index graph to disk.
func (ix *Index) Save(path string) error {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	if ix.count == 0 {
		// Best-effort cleanup so a stale file is not loaded next start.
		_ = os.Remove(path)
		return nil
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create index file: %w", err)
	}
	defer f.Close()

	if err := ix.graph.Export(f); err != nil {
		return fmt.Errorf("export index graph: %w", err)
	}
	return nil
}

// LoadIndex restores a saved index from disk. dim must match the dimension
// the index was built with; callers should verify Count against the database
// and rebuild when they disagree.
func LoadIndex(path string, dim int) (*Index, error) {
	saved, err := hnsw.LoadSavedGraph[string](path)
	if err != nil {
		return nil, fmt.Errorf("load index graph: %w", err)
	}

	return &Index{
		graph: saved.Graph,
		dim:   dim,
		count: saved.Len(),
	}, nil
}

// Resolve finds the nearest indexed face to the probe and applies the
// threshold, returning the same Resolution a linear Resolver would for the
// winning candidate.
func (ix *Index) Resolve(probe []float32, threshold float64) Resolution {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	if ix.count == 0 || len(probe) != ix.dim {
		return Resolution{}
	}

	neighbors := ix.graph.Search(probe, 1)
	if len(neighbors) == 0 {
		return Resolution{}
	}

	// Recompute the exact distance; the graph's internal metric is float32.
	d := CosineDistance(probe, neighbors[0].Value)
	if d > threshold {
		return Resolution{}
	}

	// Graph keys are canonical uuid strings (cmp.Ordered requires an ordered
	// key type); a key that fails to parse is treated as unresolvable rather
	// than an error, matching the package's malformed-data stance.
	id, err := uuid.Parse(neighbors[0].Key)
	if err != nil {
		return Resolution{}
	}

	return Resolution{
		Resolved: true,
		UserID:   id,
		Distance: d,
	}
}
