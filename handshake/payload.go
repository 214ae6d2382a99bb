package handshake

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/Hyphaeic/radixrunner-wasm/region"
)

// A PayloadSource provides the bytes of the computation module.
type PayloadSource interface {
	Fetch(ctx context.Context) ([]byte, error)

	// Describe names the source in diagnostics.
	Describe() string
}

// FileSource reads the payload from a local file.
type FileSource struct {
	Path string
}

// Fetch reads the file.
func (s FileSource) Fetch(_ context.Context) ([]byte, error) {
	return os.ReadFile(s.Path)
}

// Describe returns the file path.
func (s FileSource) Describe() string {
	return s.Path
}

// HTTPSource downloads the payload. Bodies larger than MaxBytes are refused;
// zero means region.DefaultSize.
type HTTPSource struct {
	URL      string
	Client   *http.Client
	MaxBytes int64
}

// Fetch performs a GET request and returns the body of a 2xx response.
func (s HTTPSource) Fetch(ctx context.Context) ([]byte, error) {
	client := s.Client
	if client == nil {
		client = http.DefaultClient
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.URL, nil)
	if err != nil {
		return nil, err
	}

	rsp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer rsp.Body.Close()

	if rsp.StatusCode < 200 || rsp.StatusCode > 299 {
		return nil, fmt.Errorf("unexpected status %s", rsp.Status)
	}

	limit := s.MaxBytes
	if limit <= 0 {
		limit = region.DefaultSize
	}

	data, err := io.ReadAll(io.LimitReader(rsp.Body, limit+1))
	if err != nil {
		return nil, err
	}

	if int64(len(data)) > limit {
		return nil, fmt.Errorf("payload is larger than %d bytes", limit)
	}

	return data, nil
}

// Describe returns the URL.
func (s HTTPSource) Describe() string {
	return s.URL
}

// BytesSource serves a payload that is already in memory.
type BytesSource struct {
	Name string
	Data []byte
}

// Fetch returns a copy of the data.
func (s BytesSource) Fetch(_ context.Context) ([]byte, error) {
	if len(s.Data) == 0 {
		return nil, fmt.Errorf("empty payload")
	}

	return bytes.Clone(s.Data), nil
}

// Describe returns the name of the payload.
func (s BytesSource) Describe() string {
	if s.Name == "" {
		return "in-memory payload"
	}

	return s.Name
}
