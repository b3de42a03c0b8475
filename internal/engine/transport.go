// Package engine is the diagnostic session engine: it owns the vehicle link,
// runs ECU scans, aggregates fault counts, and streams live sensor data.
// Commands go through Coordinator; everything it returns is a copy.
package engine

import (
	"context"
	"time"

	"diagnostic_assistant/internal/models"
)

// SensorSample is a raw reading pushed by the transport's sensor subscription.
type SensorSample struct {
	Channel   models.SensorChannel
	Value     float64
	Unit      string
	SampledAt time.Time
}

// VehicleTransport talks to the vehicle bus. Implementations must honour ctx
// cancellation on every call.
type VehicleTransport interface {
	Connect(ctx context.Context) error
	Disconnect(ctx context.Context) error
	FetchIdentity(ctx context.Context) (vin, model string, err error)
	QueryECU(ctx context.Context, id string) (models.ECUStatus, int, error)
	ListECUs(ctx context.Context) ([]string, error)
	SubscribeSensors(ctx context.Context, fn func(SensorSample)) (unsubscribe func(), err error)
}

// LinkMonitor is implemented by transports that can report an abrupt loss of
// the vehicle link. The channel yields once per lost connection.
type LinkMonitor interface {
	Lost() <-chan error
}

// ECUDescriber resolves display metadata for ECU ids returned by ListECUs.
type ECUDescriber interface {
	DescribeECU(id string) (name, description string, special bool)
}

// SensorClassifier maps raw sample values to a status and display unit.
type SensorClassifier interface {
	Classify(ch models.SensorChannel, v float64) models.SensorStatus
	Unit(ch models.SensorChannel) string
}
