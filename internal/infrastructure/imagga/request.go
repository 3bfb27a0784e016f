package imagga

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/kirillkom/photo-tagger/internal/core/domain"
)

const (
	DefaultBaseURL = "http://api.imagga.com/v1"
	DefaultTimeout = 10 * time.Second

	pathContent = "/content"
	pathTagging = "/tagging"
	pathColors  = "/colors"
)

// Descriptor is a fully specified outbound request to the tagging service.
type Descriptor struct {
	Method  string
	URL     *url.URL
	Header  http.Header
	Timeout time.Duration
	Params  url.Values
}

// RequestBuilder maps tagging requests to descriptors. It performs no I/O.
type RequestBuilder struct {
	baseURL    string
	credential string
	timeout    time.Duration
}

func NewRequestBuilder(baseURL, credential string, timeout time.Duration) (*RequestBuilder, error) {
	if _, err := parseBaseURL(baseURL); err != nil {
		return nil, err
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &RequestBuilder{
		baseURL:    baseURL,
		credential: credential,
		timeout:    timeout,
	}, nil
}

func (b *RequestBuilder) Build(req domain.TaggingRequest) (Descriptor, error) {
	base, err := parseBaseURL(b.baseURL)
	if err != nil {
		return Descriptor{}, err
	}

	method, path, params, err := route(req)
	if err != nil {
		return Descriptor{}, err
	}

	target := *base
	target.Path = strings.TrimRight(base.Path, "/") + path
	target.RawPath = ""
	target.RawQuery = ""
	if method == http.MethodGet && len(params) > 0 {
		target.RawQuery = params.Encode()
	}

	header := make(http.Header)
	header.Set("Authorization", b.credential)

	return Descriptor{
		Method:  method,
		URL:     &target,
		Header:  header,
		Timeout: b.timeout,
		Params:  params,
	}, nil
}

func route(req domain.TaggingRequest) (string, string, url.Values, error) {
	switch r := req.(type) {
	case domain.UploadContent:
		return http.MethodPost, pathContent, url.Values{}, nil
	case domain.FetchTags:
		return http.MethodGet, pathTagging, url.Values{
			"content": {r.ContentID},
		}, nil
	case domain.FetchColors:
		return http.MethodGet, pathColors, url.Values{
			"content":               {r.ContentID},
			"extract_object_colors": {"0"},
		}, nil
	default:
		return "", "", nil, domain.WrapError(domain.ErrInvalidInput, "build request", fmt.Errorf("unsupported tagging request %T", req))
	}
}

func parseBaseURL(raw string) (*url.URL, error) {
	parsed, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return nil, domain.WrapError(domain.ErrMalformedURL, "parse base url", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, domain.WrapError(domain.ErrMalformedURL, "parse base url", fmt.Errorf("unsupported scheme %q", parsed.Scheme))
	}
	if parsed.Host == "" {
		return nil, domain.WrapError(domain.ErrMalformedURL, "parse base url", errors.New("missing host"))
	}
	return parsed, nil
}

// NewRequest creates the HTTP request. Without an explicit body, POST
// parameters are sent form-urlencoded.
func (d Descriptor) NewRequest(ctx context.Context, body io.Reader, contentType string) (*http.Request, error) {
	if body == nil && d.Method != http.MethodGet && len(d.Params) > 0 {
		body = strings.NewReader(d.Params.Encode())
		contentType = "application/x-www-form-urlencoded"
	}

	req, err := http.NewRequestWithContext(ctx, d.Method, d.URL.String(), body)
	if err != nil {
		return nil, domain.WrapError(domain.ErrMalformedURL, "create request", err)
	}
	if d.Header != nil {
		req.Header = d.Header.Clone()
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	return req, nil
}
