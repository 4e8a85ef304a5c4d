package presence

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "github.com/gearxr/gear/internal/presence"

func meter() metric.Meter {
	return otel.Meter(instrumentationName)
}
