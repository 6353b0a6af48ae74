package recognize

// ScaleBBox maps a bounding box detected on a downsampled matching frame back
// to display-frame coordinates. factor is the downsampling factor that was
// applied before detection (e.g. 0.25 means the box is scaled up by 4).
func ScaleBBox(bbox []float64, factor float64) []float64 {
	if len(bbox) != 4 || factor <= 0 {
		return bbox
	}
	inv := 1 / factor
	return []float64{
		bbox[0] * inv,
		bbox[1] * inv,
		bbox[2] * inv,
		bbox[3] * inv,
	}
}

// CornerToRect converts a [x1, y1, x2, y2] box to [x, y, w, h] for renderers
// that draw from an origin and a size.
func CornerToRect(bbox []float64) []float64 {
	if len(bbox) != 4 {
		return bbox
	}
	return []float64{
		bbox[0],
		bbox[1],
		bbox[2] - bbox[0],
		bbox[3] - bbox[1],
	}
}
