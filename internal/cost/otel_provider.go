package cost

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

// InstallMeterProvider installs an SDK-backed MeterProvider with an
// in-process ManualReader, so the counters and histograms OtelMetrics
// creates actually accumulate instead of being discarded by otel's
// default no-op provider. Grounded on cmd/root.initOTelSDK's
// resource-then-provider-then-otel.Set* shape, adapted from tracing to
// metrics since no SPEC_FULL.md component needs distributed tracing.
func InstallMeterProvider() *sdkmetric.ManualReader {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	otel.SetMeterProvider(provider)
	return reader
}

// Snapshot collects the current state of every registered instrument.
// Intended for an admin/debug endpoint, not the hot query path.
func Snapshot(ctx context.Context, reader *sdkmetric.ManualReader) (metricdata.ResourceMetrics, error) {
	var rm metricdata.ResourceMetrics
	if err := reader.Collect(ctx, &rm); err != nil {
		return metricdata.ResourceMetrics{}, fmt.Errorf("collecting metrics: %w", err)
	}
	return rm, nil
}
