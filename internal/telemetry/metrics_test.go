package telemetry

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNewMetrics(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	if m.ChatTotal == nil {
		t.Error("ChatTotal should not be nil")
	}
	if m.RequestDurationMs == nil {
		t.Error("RequestDurationMs should not be nil")
	}
	if m.ImagesGeneratedTotal == nil {
		t.Error("ImagesGeneratedTotal should not be nil")
	}
	if m.ProviderFailureTotal == nil {
		t.Error("ProviderFailureTotal should not be nil")
	}
	if m.ChainFallthroughTotal == nil {
		t.Error("ChainFallthroughTotal should not be nil")
	}
	if m.QuotaRejectionTotal == nil {
		t.Error("QuotaRejectionTotal should not be nil")
	}
	if m.UploadTotal == nil {
		t.Error("UploadTotal should not be nil")
	}
}

func TestRecordChat(t *testing.T) {
	// Fresh registry so tests never pollute the default one.
	m := NewMetrics(prometheus.NewRegistry())

	m.RecordChat("visual_generation", "home")
	m.RecordChat("visual_generation", "home")
	m.RecordChat("commentary", "enterprise")

	if got := testutil.ToFloat64(m.ChatTotal.WithLabelValues("visual_generation", "home")); got != 2 {
		t.Errorf("expected 2 visual_generation/home turns, got %v", got)
	}
	if got := testutil.ToFloat64(m.ChatTotal.WithLabelValues("commentary", "enterprise")); got != 1 {
		t.Errorf("expected 1 commentary/enterprise turn, got %v", got)
	}
}

func TestRecordImages(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	m.RecordImages("runware", 4)
	m.RecordImages("runware", 2)
	m.RecordImages("replicate", 0)

	if got := testutil.ToFloat64(m.ImagesGeneratedTotal.WithLabelValues("runware")); got != 6 {
		t.Errorf("expected 6 runware images, got %v", got)
	}
	if got := testutil.ToFloat64(m.ImagesGeneratedTotal.WithLabelValues("replicate")); got != 0 {
		t.Errorf("expected 0 replicate images, got %v", got)
	}
}

func TestRecordProviderFailureAndFallthrough(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	m.RecordProviderFailure("huggingface")
	m.RecordProviderFailure("huggingface")
	m.RecordFallthrough()

	if got := testutil.ToFloat64(m.ProviderFailureTotal.WithLabelValues("huggingface")); got != 2 {
		t.Errorf("expected 2 huggingface failures, got %v", got)
	}
	if got := testutil.ToFloat64(m.ChainFallthroughTotal); got != 1 {
		t.Errorf("expected 1 fallthrough, got %v", got)
	}
}

func TestRecordQuotaRejection(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	m.RecordQuotaRejection("home")

	if got := testutil.ToFloat64(m.QuotaRejectionTotal.WithLabelValues("home")); got != 1 {
		t.Errorf("expected 1 home quota rejection, got %v", got)
	}
}
