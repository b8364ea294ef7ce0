package handlers

import (
	"context"
	"testing"
)

func TestBrokerChecksReportDisabledBrokers(t *testing.T) {
	h := NewHealthHandler(nil, nil, nil, nil, nil)

	checks := map[string]string{}
	h.brokerChecks(context.Background(), checks)

	if checks["kafka"] != "disabled" {
		t.Errorf("expected kafka %q, got %q", "disabled", checks["kafka"])
	}
	if checks["rabbitmq"] != "disabled" {
		t.Errorf("expected rabbitmq %q, got %q", "disabled", checks["rabbitmq"])
	}
}
