package capture

import (
	"context"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"time"
)

// MJPEGSource reads frames from an MJPEG-over-HTTP camera stream
// (multipart/x-mixed-replace), the streaming format most IP webcams and
// camera daemons expose.
type MJPEGSource struct {
	url    string
	client *http.Client

	resp   *http.Response
	reader *multipart.Reader
	seq    int
}

// OpenMJPEG connects to an MJPEG stream URL.
func OpenMJPEG(ctx context.Context, url string) (*MJPEGSource, error) {
	s := &MJPEGSource{
		url:    url,
		client: &http.Client{}, // no timeout, the stream is long-lived
	}
	if err := s.connect(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *MJPEGSource) connect(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to connect to camera stream: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return fmt.Errorf("camera stream returned status %d", resp.StatusCode)
	}

	mediaType, params, err := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	if err != nil {
		resp.Body.Close()
		return fmt.Errorf("failed to parse stream content type: %w", err)
	}
	if mediaType != "multipart/x-mixed-replace" || params["boundary"] == "" {
		resp.Body.Close()
		return fmt.Errorf("not an MJPEG stream: content type %s", mediaType)
	}

	s.resp = resp
	s.reader = multipart.NewReader(resp.Body, params["boundary"])
	return nil
}

// Next reads the next frame from the stream.
func (s *MJPEGSource) Next(ctx context.Context) (Frame, error) {
	if s.reader == nil {
		return Frame{}, io.EOF
	}

	part, err := s.reader.NextPart()
	if err != nil {
		return Frame{}, err
	}
	defer part.Close()

	data, err := io.ReadAll(part)
	if err != nil {
		return Frame{}, fmt.Errorf("failed to read frame: %w", err)
	}

	s.seq++
	return Frame{Data: data, Seq: s.seq, TakenAt: time.Now()}, nil
}

// Close terminates the stream connection.
func (s *MJPEGSource) Close() error {
	if s.resp != nil {
		return s.resp.Body.Close()
	}
	return nil
}
