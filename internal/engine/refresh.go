package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"diagnostic_assistant/internal/logger"
	"diagnostic_assistant/internal/metrics"
	"diagnostic_assistant/internal/models"

	"golang.org/x/sync/errgroup"
)

// MaxInFlightLimit caps concurrent per-ECU queries.
const MaxInFlightLimit = 8

// CollectResult is the outcome of one pass over all ECUs. Records are in
// ListECUs order and ready for Registry.ReplaceAll.
type CollectResult struct {
	Records   []models.ECURecord
	Failures  []models.ECUFailure
	Queried   int
	Responded int
}

// Partial reports whether some, but not all, ECUs responded.
func (c CollectResult) Partial() bool {
	return len(c.Failures) > 0 && c.Responded > 0
}

// Refresher queries every ECU with bounded concurrency and folds per-ECU
// failures into the result instead of aborting.
type Refresher struct {
	transport    VehicleTransport
	describer    ECUDescriber
	log          *logger.Logger
	queryTimeout time.Duration
	maxInFlight  int
}

func NewRefresher(t VehicleTransport, d ECUDescriber, log *logger.Logger, queryTimeout time.Duration, maxInFlight int) *Refresher {
	if queryTimeout <= 0 {
		queryTimeout = 5 * time.Second
	}
	if maxInFlight <= 0 || maxInFlight > MaxInFlightLimit {
		maxInFlight = MaxInFlightLimit
	}
	return &Refresher{
		transport:    t,
		describer:    d,
		log:          logger.OrNop(log).Named("refresh"),
		queryTimeout: queryTimeout,
		maxInFlight:  maxInFlight,
	}
}

type queryOutcome struct {
	status models.ECUStatus
	count  int
	err    error
}

// Collect lists the ECUs and queries each one. A failed ECU keeps its record
// from prior, or becomes UNKNOWN when prior has none. The error is non-nil
// only when the ECU list itself cannot be obtained or is inconsistent.
func (f *Refresher) Collect(ctx context.Context, prior *Registry) (CollectResult, error) {
	ids, err := f.transport.ListECUs(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return CollectResult{}, newError(ErrCancelled, "ecu-list", err)
		}
		return CollectResult{}, newError(ErrFetchFailed, "ecu-list", err)
	}
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		key := ecuKey(id)
		if _, dup := seen[key]; dup {
			f.log.Errorw("duplicate_ecu_listed", "ecu_id", id)
			return CollectResult{}, newError(ErrDuplicateECU, id, nil)
		}
		seen[key] = struct{}{}
	}

	outcomes := make([]queryOutcome, len(ids))
	var g errgroup.Group
	g.SetLimit(f.maxInFlight)
	for i, id := range ids {
		g.Go(func() error {
			outcomes[i] = f.query(ctx, id)
			return nil
		})
	}
	_ = g.Wait()

	res := CollectResult{
		Records: make([]models.ECURecord, 0, len(ids)),
		Queried: len(ids),
	}
	now := time.Now().UTC()
	for i, id := range ids {
		o := outcomes[i]
		name, desc, special := f.describe(id)
		if o.err == nil {
			res.Responded++
			res.Records = append(res.Records, models.ECURecord{
				ID:            id,
				Name:          name,
				Description:   desc,
				Status:        o.status,
				DTCCount:      o.count,
				IsSpecialUnit: special,
				UpdatedAt:     now,
			})
			continue
		}

		res.Failures = append(res.Failures, models.ECUFailure{
			ECUID:   id,
			Kind:    KindName(o.err),
			Message: o.err.Error(),
		})
		if rec, ok := prior.Get(id); ok {
			res.Records = append(res.Records, rec)
			continue
		}
		res.Records = append(res.Records, models.ECURecord{
			ID:            id,
			Name:          name,
			Description:   desc,
			Status:        models.ECUStatusUnknown,
			IsSpecialUnit: special,
			UpdatedAt:     now,
		})
	}

	f.log.Infow("ecu_collect_done", "queried", res.Queried, "responded", res.Responded, "failed", len(res.Failures))
	return res, nil
}

func (f *Refresher) query(ctx context.Context, id string) queryOutcome {
	if err := ctx.Err(); err != nil {
		metrics.ECUQueryLatency.WithLabelValues("cancelled").Observe(0)
		return queryOutcome{err: newError(ErrCancelled, id, err)}
	}

	qctx, cancel := context.WithTimeout(ctx, f.queryTimeout)
	defer cancel()

	start := time.Now()
	status, count, err := f.transport.QueryECU(qctx, id)
	elapsed := time.Since(start).Seconds()

	switch {
	case err == nil && (!status.Valid() || count < 0):
		err = newError(ErrFetchFailed, id, fmt.Errorf("invalid response status=%q count=%d", status, count))
		metrics.ECUQueryLatency.WithLabelValues("failed").Observe(elapsed)
		f.log.Errorw("ecu_invalid_response", "ecu_id", id, "status", status, "dtc_count", count)
		return queryOutcome{err: err}
	case err == nil:
		metrics.ECUQueryLatency.WithLabelValues("ok").Observe(elapsed)
		return queryOutcome{status: status, count: count}
	case ctx.Err() != nil:
		metrics.ECUQueryLatency.WithLabelValues("cancelled").Observe(elapsed)
		return queryOutcome{err: newError(ErrCancelled, id, err)}
	case errors.Is(err, context.DeadlineExceeded) || errors.Is(qctx.Err(), context.DeadlineExceeded):
		metrics.ECUQueryLatency.WithLabelValues("timeout").Observe(elapsed)
		f.log.Warnw("ecu_query_timeout", "ecu_id", id, "timeout", f.queryTimeout)
		return queryOutcome{err: newError(ErrFetchTimeout, id, err)}
	default:
		metrics.ECUQueryLatency.WithLabelValues("failed").Observe(elapsed)
		f.log.Warnw("ecu_query_failed", "ecu_id", id, "error", err)
		return queryOutcome{err: newError(ErrFetchFailed, id, err)}
	}
}

func (f *Refresher) describe(id string) (name, desc string, special bool) {
	if f.describer == nil {
		return id, "", false
	}
	return f.describer.DescribeECU(id)
}
