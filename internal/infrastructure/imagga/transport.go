package imagga

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/textproto"
	"strings"

	"github.com/kirillkom/photo-tagger/internal/core/domain"
	"github.com/kirillkom/photo-tagger/internal/core/ports"
)

const (
	maxResponseBytes = 1 << 20
	maxErrorBodySize = 2048
)

func (c *Client) roundTrip(
	ctx context.Context,
	operation string,
	desc Descriptor,
	body *bytes.Reader,
	contentType string,
	onProgress ports.ProgressFunc,
) ([]byte, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("imagga %s rate limit: %w", operation, err)
		}
	}
	if desc.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, desc.Timeout)
		defer cancel()
	}

	var reader io.Reader
	var size int64
	if body != nil {
		size = body.Size()
		reader = body
		if onProgress != nil {
			reader = &progressReader{r: body, total: size, onProgress: onProgress}
		}
	}

	req, err := desc.NewRequest(ctx, reader, contentType)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.ContentLength = size
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("imagga %s request: %w", operation, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, newHTTPStatusError(operation, resp)
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("read %s response: %w", operation, err)
	}
	return raw, nil
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func encodeMultipart(photo domain.Photo) (*bytes.Reader, string, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`,
		quoteEscaper.Replace(domain.UploadFieldName), quoteEscaper.Replace(photo.Filename)))
	header.Set("Content-Type", photo.MimeType)

	part, err := writer.CreatePart(header)
	if err != nil {
		return nil, "", fmt.Errorf("create multipart part: %w", err)
	}
	if _, err := part.Write(photo.Data); err != nil {
		return nil, "", fmt.Errorf("write multipart part: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, "", fmt.Errorf("close multipart writer: %w", err)
	}
	return bytes.NewReader(buf.Bytes()), writer.FormDataContentType(), nil
}

// progressReader reports the fraction of the body consumed by the transport.
type progressReader struct {
	r          io.Reader
	total      int64
	read       int64
	onProgress ports.ProgressFunc
}

func (p *progressReader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	if n > 0 && p.total > 0 {
		p.read += int64(n)
		p.onProgress(float64(p.read) / float64(p.total))
	}
	return n, err
}
