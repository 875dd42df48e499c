package audio

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/osa030/sonicbox/internal/infra/logger"
)

// openStream starts a GET for url. When the server accepts byte ranges and
// reports a length the body is returned as a rangeReader, which decoders
// can seek; otherwise the plain body is returned.
func openStream(ctx context.Context, client *http.Client, url string) (io.ReadCloser, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, "", errors.Wrap(err, "failed to create stream request")
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, "", errors.Wrap(err, "failed to open stream")
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		resp.Body.Close()
		return nil, "", errors.Newf("stream returned HTTP %d", resp.StatusCode)
	}

	contentType := resp.Header.Get("Content-Type")
	if resp.StatusCode != http.StatusOK || resp.ContentLength <= 0 ||
		!strings.EqualFold(resp.Header.Get("Accept-Ranges"), "bytes") {
		logger.Component("audio").Debug().Msg("stream is not seekable")
		return resp.Body, contentType, nil
	}

	return &rangeReader{
		ctx:    ctx,
		client: client,
		url:    url,
		size:   resp.ContentLength,
		body:   resp.Body,
	}, contentType, nil
}

// rangeReader is an io.ReadSeekCloser over an HTTP resource. Seeking drops
// the open body; the next Read requests the remainder from the new offset.
type rangeReader struct {
	ctx    context.Context
	client *http.Client
	url    string
	size   int64
	offset int64
	body   io.ReadCloser
}

func (r *rangeReader) Read(p []byte) (int, error) {
	if r.offset >= r.size {
		return 0, io.EOF
	}
	if r.body == nil {
		if err := r.open(); err != nil {
			return 0, err
		}
	}
	n, err := r.body.Read(p)
	r.offset += int64(n)
	if err == io.EOF && r.offset < r.size {
		return n, io.ErrUnexpectedEOF
	}
	return n, err
}

func (r *rangeReader) open() error {
	req, err := http.NewRequestWithContext(r.ctx, http.MethodGet, r.url, nil)
	if err != nil {
		return errors.Wrap(err, "failed to create range request")
	}
	req.Header.Set("Range", fmt.Sprintf("bytes=%d-", r.offset))

	resp, err := r.client.Do(req)
	if err != nil {
		return errors.Wrap(err, "failed to request range")
	}
	if resp.StatusCode != http.StatusPartialContent {
		resp.Body.Close()
		return errors.Newf("range request returned HTTP %d", resp.StatusCode)
	}
	r.body = resp.Body
	return nil
}

func (r *rangeReader) Seek(offset int64, whence int) (int64, error) {
	var abs int64
	switch whence {
	case io.SeekStart:
		abs = offset
	case io.SeekCurrent:
		abs = r.offset + offset
	case io.SeekEnd:
		abs = r.size + offset
	default:
		return 0, errors.Newf("invalid whence %d", whence)
	}
	if abs < 0 {
		return 0, errors.New("negative position")
	}
	if abs != r.offset && r.body != nil {
		r.body.Close()
		r.body = nil
	}
	r.offset = abs
	return abs, nil
}

func (r *rangeReader) Close() error {
	if r.body == nil {
		return nil
	}
	err := r.body.Close()
	r.body = nil
	return err
}
