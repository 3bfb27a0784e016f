package imagga

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/kirillkom/photo-tagger/internal/core/domain"
	"github.com/kirillkom/photo-tagger/internal/core/ports"
	"github.com/kirillkom/photo-tagger/internal/infrastructure/resilience"
)

// Options configures the tagging service client.
type Options struct {
	BaseURL       string
	Authorization string
	Timeout       time.Duration
	HTTPClient    *http.Client

	// Executor wraps every call; nil disables the circuit breaker.
	Executor *resilience.Executor
	// Limiter throttles outbound requests; nil means unlimited.
	Limiter *rate.Limiter
}

// Client talks to an Imagga-compatible tagging API.
type Client struct {
	builder    *RequestBuilder
	httpClient *http.Client
	executor   *resilience.Executor
	limiter    *rate.Limiter
}

func New(opts Options) (*Client, error) {
	baseURL := opts.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	builder, err := NewRequestBuilder(baseURL, opts.Authorization, opts.Timeout)
	if err != nil {
		return nil, err
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}

	return &Client{
		builder:    builder,
		httpClient: httpClient,
		executor:   opts.Executor,
		limiter:    opts.Limiter,
	}, nil
}

var _ ports.TaggingService = (*Client)(nil)

func (c *Client) UploadContent(ctx context.Context, photo domain.Photo, onProgress ports.ProgressFunc) (domain.UploadResult, error) {
	desc, err := c.builder.Build(domain.UploadContent{})
	if err != nil {
		return domain.UploadResult{}, err
	}

	body, err := resilience.Call(ctx, c.executor, "imagga.upload", func(callCtx context.Context) ([]byte, error) {
		payload, contentType, err := encodeMultipart(photo)
		if err != nil {
			return nil, err
		}
		return c.roundTrip(callCtx, "upload", desc, payload, contentType, onProgress)
	}, classifyTaggingError)
	if err != nil {
		return domain.UploadResult{}, wrapTransportError("upload content", err)
	}

	return parseUploadResponse(body)
}

func (c *Client) FetchTags(ctx context.Context, contentID string) (domain.TagQueryResult, error) {
	desc, err := c.builder.Build(domain.FetchTags{ContentID: contentID})
	if err != nil {
		return domain.TagQueryResult{}, err
	}

	body, err := resilience.Call(ctx, c.executor, "imagga.tagging", func(callCtx context.Context) ([]byte, error) {
		return c.roundTrip(callCtx, "tagging", desc, nil, "", nil)
	}, classifyTaggingError)
	if err != nil {
		return domain.TagQueryResult{}, wrapTransportError("fetch tags", err)
	}

	return parseTagsResponse(body)
}

func wrapTransportError(operation string, err error) error {
	if domain.IsKind(err, domain.ErrMalformedURL) || domain.IsKind(err, domain.ErrInvalidInput) {
		return err
	}
	if resilience.IsCircuitOpen(err) {
		return domain.WrapError(domain.ErrTemporary, operation, fmt.Errorf("%w: %w", domain.ErrTransport, err))
	}
	return domain.WrapError(domain.ErrTransport, operation, err)
}
