package metrics

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
)

// Push sends everything in g to a Pushgateway under job, replacing the
// job's previous group. Batch runs call it once before exiting.
func Push(ctx context.Context, gatewayURL, job string, g prometheus.Gatherer) error {
	if gatewayURL == "" {
		return fmt.Errorf("metrics: pushgateway url is required")
	}
	if job == "" {
		job = Namespace
	}
	if err := push.New(gatewayURL, job).Gatherer(g).PushContext(ctx); err != nil {
		return fmt.Errorf("metrics: push to %s: %w", gatewayURL, err)
	}
	return nil
}
