// Package capture supplies camera frames to the kiosk loop. Frames arrive
// strictly sequentially; the loop processes one detection-and-decision cycle
// per frame with no overlap.
package capture

import (
	"context"
	"time"
)

// Frame is one captured image, JPEG-encoded.
type Frame struct {
	Data    []byte
	Seq     int
	TakenAt time.Time
}

// Source produces frames for the kiosk loop. Next blocks until a frame is
// available, the source is exhausted (io.EOF) or the context is cancelled.
type Source interface {
	Next(ctx context.Context) (Frame, error)
	Close() error
}
