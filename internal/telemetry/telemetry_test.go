package telemetry_test

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"storefront/internal/telemetry"
)

func TestStdoutExporterWritesSpans(t *testing.T) {
	var buf bytes.Buffer
	tel, err := telemetry.Setup(context.Background(), telemetry.Options{Exporter: "stdout", Writer: &buf})
	require.NoError(t, err)
	t.Cleanup(func() { _ = tel.Shutdown(context.Background()) })

	_, span := otel.Tracer("test").Start(context.Background(), "checkout.place")
	span.End()
	assert.Contains(t, buf.String(), "checkout.place")
}

func TestCheckoutOutcomesSumsByCode(t *testing.T) {
	tel, err := telemetry.Setup(context.Background(), telemetry.Options{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = tel.Shutdown(context.Background()) })

	c, err := otel.Meter("storefront/checkout").Int64Counter("checkout.outcomes")
	require.NoError(t, err)
	ctx := context.Background()
	c.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", "SUCCEEDED")))
	c.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", "SUCCEEDED")))
	c.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", "STOCK_CHANGED")))

	got, err := tel.CheckoutOutcomes(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), got["SUCCEEDED"])
	assert.Equal(t, int64(1), got["STOCK_CHANGED"])
}

func TestUnknownExporter(t *testing.T) {
	_, err := telemetry.Setup(context.Background(), telemetry.Options{Exporter: "zipkin"})
	assert.Error(t, err)
}
