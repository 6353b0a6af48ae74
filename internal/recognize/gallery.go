package recognize

import (
	"math"
	"sync"

	"github.com/coder/hnsw"
	"github.com/lbansal/face-attendance/internal/store"
)

// DefaultAcceptThreshold is the cosine distance below which the closest
// candidate is considered the same person.
const DefaultAcceptThreshold = 0.35

// HNSW parameters for face embedding search.
const (
	// hnswMaxNeighbors (M) is the maximum number of neighbors per node.
	hnswMaxNeighbors = 16

	// linearScanCutoff is the gallery size at or below which Match scans
	// the embeddings directly instead of going through the graph.
	linearScanCutoff = 64
)

// Gallery holds the enrolled subjects and an HNSW index over their
// embeddings. Safe for concurrent use; Rebuild swaps the index atomically.
type Gallery struct {
	mu        sync.RWMutex
	graph     *hnsw.Graph[string]
	subjects  map[string]store.Subject
	threshold float64
}

// NewGallery creates an empty gallery. A non-positive threshold selects
// DefaultAcceptThreshold.
func NewGallery(threshold float64) *Gallery {
	if threshold <= 0 {
		threshold = DefaultAcceptThreshold
	}
	return &Gallery{
		subjects:  make(map[string]store.Subject),
		threshold: threshold,
	}
}

// Rebuild replaces the gallery contents with the given subjects. Subjects
// without an embedding are skipped. The graph is only built past the
// linear-scan cutoff; small galleries search without it.
func (g *Gallery) Rebuild(subjects []store.Subject) error {
	byID := make(map[string]store.Subject, len(subjects))
	for _, s := range subjects {
		if len(s.Embedding) == 0 {
			continue
		}
		byID[s.ID] = s
	}

	var graph *hnsw.Graph[string]
	if len(byID) > linearScanCutoff {
		graph = hnsw.NewGraph[string]()
		graph.M = hnswMaxNeighbors
		graph.Ml = 1.0 / float64(hnswMaxNeighbors)
		graph.Distance = hnsw.CosineDistance
		for _, s := range byID {
			graph.Add(hnsw.MakeNode(s.ID, s.Embedding))
		}
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	g.graph = graph
	g.subjects = byID
	return nil
}

// Len returns the number of indexed subjects.
func (g *Gallery) Len() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.subjects)
}

// Subject returns the enrolled subject for an id, or nil.
func (g *Gallery) Subject(id string) *store.Subject {
	g.mu.RLock()
	defer g.mu.RUnlock()
	s, ok := g.subjects[id]
	if !ok {
		return nil
	}
	return &s
}

// Match finds the minimum-distance subject for one detection, then
// independently checks that candidate against the accept threshold. This
// deliberately preserves "closest regardless of margin to the runner-up":
// there is no margin or second-best test. Returns false when the gallery is
// empty or the detection has no embedding.
func (g *Gallery) Match(d Detection) (Match, bool) {
	if len(d.Embedding) == 0 {
		return Match{}, false
	}

	g.mu.RLock()
	defer g.mu.RUnlock()
	if len(g.subjects) == 0 {
		return Match{}, false
	}
	if g.graph == nil {
		return g.scanMatch(d), true
	}

	neighbors := g.graph.Search(d.Embedding, 1)
	if len(neighbors) == 0 {
		return Match{}, false
	}

	n := neighbors[0]
	dist := CosineDistance(d.Embedding, n.Value)
	return Match{
		SubjectID: n.Key,
		Distance:  dist,
		Accepted:  dist <= g.threshold,
		BBox:      d.BBox,
	}, true
}

// scanMatch is the small-gallery path: a full scan over the enrolled
// embeddings. Ties go to the lexicographically smaller subject ID so the
// result does not depend on map iteration order. Callers hold g.mu.
func (g *Gallery) scanMatch(d Detection) Match {
	var bestID string
	bestDist := math.MaxFloat64
	for id, s := range g.subjects {
		dist := CosineDistance(d.Embedding, s.Embedding)
		if dist < bestDist || (dist == bestDist && id < bestID) {
			bestID, bestDist = id, dist
		}
	}
	return Match{
		SubjectID: bestID,
		Distance:  bestDist,
		Accepted:  bestDist <= g.threshold,
		BBox:      d.BBox,
	}
}

// MatchAll matches every detection in a frame. All detections are matched
// (the renderer highlights every recognized box); the caller decides which
// accepted matches feed the session controller.
func (g *Gallery) MatchAll(detections []Detection) []Match {
	matches := make([]Match, 0, len(detections))
	for _, d := range detections {
		if m, ok := g.Match(d); ok {
			matches = append(matches, m)
		}
	}
	return matches
}
