package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/time/rate"

	"github.com/kirillkom/photo-tagger/internal/config"
	"github.com/kirillkom/photo-tagger/internal/core/ports"
	"github.com/kirillkom/photo-tagger/internal/core/usecase"
	"github.com/kirillkom/photo-tagger/internal/infrastructure/imageprep"
	"github.com/kirillkom/photo-tagger/internal/infrastructure/imagga"
	"github.com/kirillkom/photo-tagger/internal/infrastructure/queue/nats"
	"github.com/kirillkom/photo-tagger/internal/infrastructure/resilience"
	"github.com/kirillkom/photo-tagger/internal/observability/metrics"
)

type App struct {
	Config config.Config

	Tagger    ports.PhotoTagger
	Metrics   *metrics.TaggingMetrics
	ImagePrep imageprep.Options

	closeFn func()
}

// New wires the tagging workflow. registerer may be nil when metrics are not
// exported, as in the CLI.
func New(_ context.Context, cfg config.Config, service string, registerer prometheus.Registerer) (*App, error) {
	taggingMetrics := metrics.NewTaggingMetrics(service, registerer)

	breakerCfg := resilience.Config{
		BreakerEnabled:      cfg.BreakerEnabled,
		BreakerMinRequests:  uint32(max(cfg.BreakerMinRequests, 0)),
		BreakerFailureRatio: cfg.BreakerFailureRatio,
		BreakerOpenTimeout:  cfg.BreakerOpenTimeout,
		OnStateChange:       taggingMetrics.ObserveBreakerState,
	}
	taggingExecutor := resilience.NewExecutor(resilience.SingleAttempt(breakerCfg))

	var limiter *rate.Limiter
	if cfg.ImaggaRateLimitRPS > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.ImaggaRateLimitRPS), max(cfg.ImaggaRateBurst, 1))
	}

	client, err := imagga.New(imagga.Options{
		BaseURL:       cfg.ImaggaBaseURL,
		Authorization: cfg.ImaggaAuthorization,
		Timeout:       cfg.ImaggaTimeout,
		HTTPClient:    &http.Client{},
		Executor:      taggingExecutor,
		Limiter:       limiter,
	})
	if err != nil {
		return nil, fmt.Errorf("init tagging client: %w", err)
	}

	var publisher ports.TagEventPublisher
	closeFn := func() {}
	if cfg.NATSURL != "" {
		publishCfg := resilience.DefaultConfig()
		publishCfg.OnStateChange = taggingMetrics.ObserveBreakerState
		queue, err := nats.NewWithOptions(cfg.NATSURL, cfg.NATSSubject, nats.Options{
			ResilienceExecutor: resilience.NewExecutor(publishCfg),
		})
		if err != nil {
			return nil, fmt.Errorf("init event publisher: %w", err)
		}
		publisher = queue
		closeFn = queue.Close
	} else {
		slog.Info("event_publisher_disabled", "reason", "NATS_URL is empty")
	}

	return &App{
		Config:  cfg,
		Tagger:  usecase.NewTagPhotoUseCase(client, publisher, taggingMetrics),
		Metrics: taggingMetrics,
		ImagePrep: imageprep.Options{
			Quality:      cfg.JPEGQuality,
			MaxDimension: cfg.MaxImageDimension,
		},
		closeFn: closeFn,
	}, nil
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}
