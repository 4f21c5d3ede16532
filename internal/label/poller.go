// Package label waits for a shipment's courier label to materialize. The
// backend generates labels asynchronously after a shipment is created, so
// the confirmation surface polls for a bounded time and then gives up
// gracefully: a missing label is a normal outcome, not an error.
package label

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/levantcargo/shipdesk/internal/metrics"
	"github.com/levantcargo/shipdesk/internal/pricing"
)

// StatusFetcher is the backend lookup the poller runs. *pricing.Client
// satisfies it.
type StatusFetcher interface {
	GetShipment(ctx context.Context, id string) (*pricing.ShipmentStatus, error)
}

var errLabelNotReady = errors.New("label not ready yet")

// Poller retries the shipment status lookup at a fixed interval until a
// label URL appears or the attempt budget runs out.
type Poller struct {
	fetcher     StatusFetcher
	interval    time.Duration
	maxAttempts int
}

// New creates a poller. Interval and attempts come from configuration;
// the defaults are 3s and 10 tries.
func New(fetcher StatusFetcher, interval time.Duration, maxAttempts int) *Poller {
	return &Poller{fetcher: fetcher, interval: interval, maxAttempts: maxAttempts}
}

// Wait polls until the shipment has a label URL. It returns the URL, or
// "" with a nil error when the budget is exhausted without one. Cancelling
// the context stops the polling immediately and returns the context error.
func (p *Poller) Wait(ctx context.Context, shipmentID string) (string, error) {
	operation := func() (string, error) {
		status, err := p.fetcher.GetShipment(ctx, shipmentID)
		if err != nil {
			return "", err
		}
		if status.SendcloudLabelURL == nil || *status.SendcloudLabelURL == "" {
			return "", errLabelNotReady
		}
		return *status.SendcloudLabelURL, nil
	}

	url, err := backoff.Retry(ctx, operation,
		backoff.WithBackOff(backoff.NewConstantBackOff(p.interval)),
		backoff.WithMaxTries(uint(p.maxAttempts)),
	)
	if err != nil {
		if ctx.Err() != nil {
			metrics.LabelPollsTotal.WithLabelValues("cancelled").Inc()
			return "", ctx.Err()
		}
		if errors.Is(err, errLabelNotReady) {
			metrics.LabelPollsTotal.WithLabelValues("exhausted").Inc()
			slog.Info("label not ready within polling budget",
				"shipment_id", shipmentID, "attempts", p.maxAttempts)
			return "", nil
		}
		metrics.LabelPollsTotal.WithLabelValues("error").Inc()
		slog.Warn("label polling stopped on backend error",
			"shipment_id", shipmentID, "error", err)
		return "", nil
	}

	metrics.LabelPollsTotal.WithLabelValues("found").Inc()
	return url, nil
}
