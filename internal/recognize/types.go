// Package recognize matches detected face embeddings against the gallery of
// enrolled subjects.
package recognize

// Detection is one face reported by the detector for a frame: a bounding box
// in matching-frame pixels and the face embedding.
type Detection struct {
	BBox      []float64 // [x1, y1, x2, y2]
	Embedding []float32
	DetScore  float64
}

// Match is the result of matching one detection against the gallery.
// SubjectID is always the minimum-distance candidate; Accepted reports the
// independent threshold check on that specific candidate.
type Match struct {
	SubjectID string
	Distance  float64
	Accepted  bool
	BBox      []float64
}
