package telemetry

import (
	"context"
	"maps"
	"sort"
	"strings"

	"github.com/grafana/pyroscope-go"
)

// Profiling label keys.
const (
	ProfilingLabelRoute         = "route"
	ProfilingLabelMethod        = "method"
	ProfilingLabelTenantID      = "tenant_id"
	ProfilingLabelOperation     = "operation"
	ProfilingLabelPeriod        = "period"
	ProfilingLabelTrigger       = "trigger"
	ProfilingLabelEngineVersion = "engine_version"
)

// OperationCostEngineRun labels the CPU spent inside costengine.Service.Run
const OperationCostEngineRun = "costengine.run"

// MaxLabelValueLength caps label values to keep series small.
const MaxLabelValueLength = 128

// HighCardinalityLabels are dropped by WithProfilingLabels. Tenant ids and
// periods stay: both are bounded by the number of active tenants and months.
var HighCardinalityLabels = map[string]bool{
	"user_id":    true,
	"request_id": true,
	"order_id":   true,
	"vehicle_id": true,
	"trace_id":   true,
	"span_id":    true,
}

// WithProfilingLabels runs fn with pprof labels attached to the goroutine, so
// samples taken while fn runs can be filtered by them in Pyroscope. Labels are
// applied whether or not a profiler is running. The map is copied.
func WithProfilingLabels(ctx context.Context, labels map[string]string, fn func(context.Context)) {
	if len(labels) == 0 {
		fn(ctx)
		return
	}

	labelPairs := sanitizeLabels(maps.Clone(labels))
	if len(labelPairs) == 0 {
		fn(ctx)
		return
	}
	pyroscope.TagWrapper(ctx, pyroscope.Labels(labelPairs...), fn)
}

// CostEngineRunLabels are the labels of one cost engine run
func CostEngineRunLabels(tenantID, period string, trigger RunTrigger) map[string]string {
	labels := map[string]string{ProfilingLabelOperation: OperationCostEngineRun}
	if tenantID != "" {
		labels[ProfilingLabelTenantID] = tenantID
	}
	if period != "" {
		labels[ProfilingLabelPeriod] = period
	}
	if trigger != "" {
		labels[ProfilingLabelTrigger] = string(trigger)
	}
	return labels
}

// HTTPRequestLabels are the labels of one API request
func HTTPRequestLabels(route, method, tenantID string) map[string]string {
	labels := make(map[string]string, 3)
	if route != "" {
		labels[ProfilingLabelRoute] = route
	}
	if method != "" {
		labels[ProfilingLabelMethod] = method
	}
	if tenantID != "" {
		labels[ProfilingLabelTenantID] = tenantID
	}
	return labels
}

// sanitizeLabels drops empty and high-cardinality entries, truncates long
// values and returns key/value pairs sorted by key.
func sanitizeLabels(labels map[string]string) []string {
	if len(labels) == 0 {
		return nil
	}

	keys := make([]string, 0, len(labels))
	for k := range labels {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(labels)*2)
	for _, key := range keys {
		value := labels[key]
		if key == "" || value == "" || HighCardinalityLabels[key] {
			continue
		}
		if len(value) > MaxLabelValueLength {
			value = value[:MaxLabelValueLength]
		}
		sanitizedKey := sanitizeLabelKey(key)
		if sanitizedKey == "" {
			continue
		}
		pairs = append(pairs, sanitizedKey, value)
	}
	return pairs
}

// sanitizeLabelKey lowercases the key and keeps only [a-z0-9_].
func sanitizeLabelKey(key string) string {
	key = strings.ToLower(key)
	key = strings.ReplaceAll(key, " ", "_")
	key = strings.ReplaceAll(key, "-", "_")

	result := make([]byte, 0, len(key))
	for i := 0; i < len(key); i++ {
		c := key[i]
		if (c >= 'a' && c <= 'z') || (c >= '0' && c <= '9') || c == '_' {
			result = append(result, c)
		}
	}
	return string(result)
}
