// Package artwork fetches album covers and resizes them for the dashboard
// and the tray.
package artwork

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"log/slog"
	"net/http"
	"sync"

	"gocv.io/x/gocv"

	"github.com/ayusman/cookify/internal/httpc"
	"github.com/ayusman/cookify/internal/log"
)

// Size is a named output size.
type Size string

const (
	Large Size = "large"
	Thumb Size = "thumb"
)

// Pixels returns the square edge length for s.
func (s Size) Pixels() int {
	if s == Thumb {
		return 40
	}
	return 400
}

// ParseSize accepts "large", "thumb" or the empty string (large).
func ParseSize(s string) (Size, error) {
	switch Size(s) {
	case "", Large:
		return Large, nil
	case Thumb:
		return Thumb, nil
	default:
		return "", fmt.Errorf("unknown artwork size %q", s)
	}
}

// maxImageBytes bounds a downloaded cover.
const maxImageBytes = 8 << 20

// DefaultCacheSize is the number of resized covers kept.
const DefaultCacheSize = 32

// ErrEmptyImage is returned for data that decodes to nothing.
var ErrEmptyImage = errors.New("empty image")

type cacheKey struct {
	url  string
	size Size
}

// Service downloads and resizes covers, keeping recent results in memory.
type Service struct {
	client *http.Client
	max    int
	logger *slog.Logger

	mu    sync.Mutex
	cache map[cacheKey][]byte
	order []cacheKey
}

// New creates a Service. A nil client uses httpc.Client; a non-positive
// cacheSize uses DefaultCacheSize.
func New(client *http.Client, cacheSize int) *Service {
	if client == nil {
		client = httpc.Client
	}
	if cacheSize <= 0 {
		cacheSize = DefaultCacheSize
	}
	return &Service{
		client: client,
		max:    cacheSize,
		logger: log.With("component", "artwork"),
		cache:  make(map[cacheKey][]byte),
	}
}

// Get returns the cover at url as a JPEG of the given size.
func (s *Service) Get(ctx context.Context, url string, size Size) ([]byte, error) {
	key := cacheKey{url: url, size: size}

	s.mu.Lock()
	if data, ok := s.cache[key]; ok {
		s.mu.Unlock()
		return data, nil
	}
	s.mu.Unlock()

	raw, err := s.fetch(ctx, url)
	if err != nil {
		return nil, err
	}

	data, err := Resize(raw, size.Pixels())
	if err != nil {
		return nil, fmt.Errorf("resize %s: %w", url, err)
	}

	s.store(key, data)
	return data, nil
}

func (s *Service) fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch artwork: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch artwork: status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxImageBytes))
	if err != nil {
		return nil, fmt.Errorf("read artwork: %w", err)
	}
	return data, nil
}

func (s *Service) store(key cacheKey, data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.cache[key]; ok {
		return
	}
	for len(s.order) >= s.max {
		oldest := s.order[0]
		s.order = s.order[1:]
		delete(s.cache, oldest)
	}
	s.cache[key] = data
	s.order = append(s.order, key)
}

// Len returns the number of cached covers.
func (s *Service) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.cache)
}

// Resize decodes an encoded image, scales it to px by px with Lanczos
// interpolation and encodes the result as JPEG.
func Resize(data []byte, px int) ([]byte, error) {
	img, err := gocv.IMDecode(data, gocv.IMReadColor)
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	defer img.Close()

	if img.Empty() {
		return nil, ErrEmptyImage
	}

	dst := gocv.NewMat()
	defer dst.Close()
	gocv.Resize(img, &dst, image.Pt(px, px), 0, 0, gocv.InterpolationLanczos4)

	buf, err := gocv.IMEncode(gocv.JPEGFileExt, dst)
	if err != nil {
		return nil, fmt.Errorf("encode image: %w", err)
	}
	defer buf.Close()

	out := make([]byte, buf.Len())
	copy(out, buf.GetBytes())
	return out, nil
}
