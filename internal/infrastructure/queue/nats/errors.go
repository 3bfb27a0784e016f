package nats

import (
	"context"
	"errors"

	"github.com/nats-io/nats.go"

	"github.com/kirillkom/photo-tagger/internal/core/domain"
	"github.com/kirillkom/photo-tagger/internal/infrastructure/resilience"
)

// classifyPublishError retries only connection-level failures. Oversized or
// badly addressed events fail the same way on every attempt and say nothing
// about broker health, so they neither retry nor count against the breaker.
func classifyPublishError(err error) resilience.ErrorClassification {
	switch {
	case err == nil:
		return resilience.ErrorClassification{}
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return resilience.ErrorClassification{}
	case isPermanentPublishError(err):
		return resilience.ErrorClassification{}
	case errors.Is(err, nats.ErrNoServers),
		errors.Is(err, nats.ErrTimeout),
		errors.Is(err, nats.ErrConnectionClosed),
		errors.Is(err, nats.ErrConnectionReconnecting),
		errors.Is(err, nats.ErrDisconnected):
		return resilience.ErrorClassification{Retryable: true, RecordFailure: true}
	default:
		return resilience.ErrorClassification{RecordFailure: true}
	}
}

func isPermanentPublishError(err error) bool {
	return errors.Is(err, nats.ErrMaxPayload) ||
		errors.Is(err, nats.ErrBadSubject) ||
		errors.Is(err, nats.ErrInvalidMsg)
}

func wrapPublishError(operation string, err error) error {
	switch {
	case err == nil:
		return nil
	case resilience.IsCircuitOpen(err), classifyPublishError(err).Retryable:
		return domain.WrapError(domain.ErrTemporary, operation, err)
	case isPermanentPublishError(err):
		return domain.WrapError(domain.ErrInvalidInput, operation, err)
	default:
		return err
	}
}
