package rangehttp

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/tanq16/rangedl/internal/ranges"
	"github.com/tanq16/rangedl/internal/utils"
)

// FileInfo is what the metadata probe learns about the remote resource.
type FileInfo struct {
	Size         int64
	FileName     string
	AcceptRanges bool
	ContentType  string
	LastModified time.Time
}

// Fetcher issues the probe and the ranged GETs for one resource. It holds no
// state between calls.
type Fetcher struct {
	Client utils.HTTPDoer
	URL    string
}

func NewFetcher(client utils.HTTPDoer, url string) *Fetcher {
	return &Fetcher{Client: client, URL: url}
}

// Probe performs a HEAD request and reads the resource length.
func (f *Fetcher) Probe(ctx context.Context) (*FileInfo, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, f.URL, nil)
	if err != nil {
		return nil, metadataErr(fmt.Errorf("error creating HEAD request: %w", err))
	}
	resp, err := f.Client.Do(req)
	if err != nil {
		return nil, metadataErr(fmt.Errorf("error executing HEAD request: %w", err))
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, metadataErr(ErrNotFound)
	case resp.StatusCode >= 400:
		return nil, metadataErr(fmt.Errorf("%w: %d", ErrUnexpectedStatus, resp.StatusCode))
	}

	size, err := parseContentLength(resp.Header.Get("Content-Length"))
	if err != nil {
		return nil, metadataErr(err)
	}
	info := &FileInfo{
		Size:         size,
		FileName:     filenameFromDisposition(resp.Header.Get("Content-Disposition")),
		AcceptRanges: resp.Header.Get("Accept-Ranges") == "bytes",
		ContentType:  resp.Header.Get("Content-Type"),
	}
	if lm := resp.Header.Get("Last-Modified"); lm != "" {
		if t, err := http.ParseTime(lm); err == nil {
			info.LastModified = t
		}
	}
	log.Debug().Str("op", "http/probe").Str("url", f.URL).Int64("size", size).Bool("acceptRanges", info.AcceptRanges).Msg("Probed remote resource")
	return info, nil
}

// FetchRange requests r and appends the response body to w. Nothing is
// written unless the server answered 206 for exactly the requested bytes.
func (f *Fetcher) FetchRange(ctx context.Context, r ranges.ByteRange, w io.Writer) (int64, error) {
	if r.Len() <= 0 || r.Start < 0 {
		return 0, rangeErr(ErrConfiguration, r, errors.New("empty or negative range"))
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.URL, nil)
	if err != nil {
		return 0, rangeErr(ErrConfiguration, r, fmt.Errorf("error creating GET request: %w", err))
	}
	req.Header.Set("Range", r.Header())
	resp, err := f.Client.Do(req)
	if err != nil {
		return 0, rangeErr(ErrTransport, r, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusPartialContent {
		return 0, rangeErr(ErrProtocol, r, fmt.Errorf("%w: %d", ErrUnexpectedStatus, resp.StatusCode))
	}
	if cr := resp.Header.Get("Content-Range"); cr != "" {
		start, end, _, err := ParseContentRange(cr)
		if err != nil {
			return 0, rangeErr(ErrProtocol, r, err)
		}
		if start != r.Start || end != r.End-1 {
			return 0, rangeErr(ErrProtocol, r, fmt.Errorf("server sent %q for %q", cr, r.Header()))
		}
	}
	if resp.ContentLength >= 0 && resp.ContentLength != r.Len() {
		return 0, rangeErr(ErrProtocol, r, fmt.Errorf("%w: expected %d bytes, server announced %d", ErrSizeMismatch, r.Len(), resp.ContentLength))
	}

	sink := &sinkWriter{w: w}
	buffer := make([]byte, min(r.Len(), utils.DefaultBufferSize))
	n, err := io.CopyBuffer(sink, io.LimitReader(resp.Body, r.Len()), buffer)
	if sink.err != nil {
		return n, rangeErr(ErrIO, r, sink.err)
	}
	if err != nil {
		return n, rangeErr(ErrTransport, r, fmt.Errorf("error reading response body: %w", err))
	}
	if n != r.Len() {
		return n, rangeErr(ErrProtocol, r, fmt.Errorf("%w: expected %d bytes, got %d", ErrSizeMismatch, r.Len(), n))
	}
	var extra [1]byte
	if m, _ := resp.Body.Read(extra[:]); m > 0 {
		return n, rangeErr(ErrProtocol, r, fmt.Errorf("%w: server sent more than %d bytes", ErrSizeMismatch, r.Len()))
	}
	return n, nil
}

// FetchAll fetches every range of plan in order, one at a time, appending
// each to w. It stops at the first failure. onRange, if set, runs after each
// range has been written.
func (f *Fetcher) FetchAll(ctx context.Context, plan ranges.Plan, w io.Writer, onRange func(r ranges.ByteRange, n int64)) (int64, error) {
	var total int64
	for r := range plan.All() {
		if err := ctx.Err(); err != nil {
			return total, rangeErr(ErrTransport, r, err)
		}
		n, err := f.FetchRange(ctx, r, w)
		total += n
		if err != nil {
			return total, err
		}
		if onRange != nil {
			onRange(r, n)
		}
	}
	return total, nil
}

// sinkWriter remembers write failures so they can be told apart from read
// failures after a copy.
type sinkWriter struct {
	w   io.Writer
	err error
}

func (s *sinkWriter) Write(p []byte) (int, error) {
	n, err := s.w.Write(p)
	if err == nil && n < len(p) {
		err = io.ErrShortWrite
	}
	if err != nil {
		s.err = err
	}
	return n, err
}

// KindOf returns the error kind err carries, or nil.
func KindOf(err error) error {
	for _, kind := range []error{ErrConfiguration, ErrMetadata, ErrTransport, ErrProtocol, ErrIO} {
		if errors.Is(err, kind) {
			return kind
		}
	}
	return nil
}
