// Package metrics emits custom metrics from Lambda functions using the AWS
// CloudWatch Embedded Metrics Format (EMF). Metrics are written as one
// structured JSON line to stdout, where CloudWatch Logs extracts them; no
// API calls and no added latency on the processing path.
//
// See: https://docs.aws.amazon.com/AmazonCloudWatch/latest/monitoring/CloudWatch_Embedded_Metric_Format_Specification.html
package metrics

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"
)

// Namespace is the CloudWatch namespace for all pipeline metrics.
const Namespace = "PortfolioPipeline"

// Standard CloudWatch metric units.
const (
	UnitMilliseconds = "Milliseconds"
	UnitCount        = "Count"
	UnitBytes        = "Bytes"
	UnitNone         = "None"
)

// metricDef holds the name and unit for a single metric.
type metricDef struct {
	Name string `json:"Name"`
	Unit string `json:"Unit"`
}

// emfDirective is the _aws metadata block required by EMF.
type emfDirective struct {
	Timestamp         int64      `json:"Timestamp"`
	CloudWatchMetrics []cwMetric `json:"CloudWatchMetrics"`
}

// cwMetric defines a CloudWatch metric namespace, dimensions, and metric definitions.
type cwMetric struct {
	Namespace  string      `json:"Namespace"`
	Dimensions [][]string  `json:"Dimensions"`
	Metrics    []metricDef `json:"Metrics"`
}

// Recorder accumulates dimensions, metrics, and properties for a single EMF
// flush. Metric definitions keep insertion order so the emitted document is
// deterministic. Not safe for concurrent use; create one per operation.
type Recorder struct {
	namespace  string
	dimensions map[string]string
	dimKeys    []string
	defs       []metricDef
	values     map[string]float64
	properties map[string]interface{}
}

var (
	// functionName is cached from AWS_LAMBDA_FUNCTION_NAME at init time.
	functionName string
	initOnce     sync.Once
)

func initFunctionName() {
	functionName = os.Getenv("AWS_LAMBDA_FUNCTION_NAME")
}

// New creates an EMF Recorder in the pipeline namespace. The FunctionName
// dimension is added automatically from the Lambda environment.
func New() *Recorder {
	initOnce.Do(initFunctionName)
	r := &Recorder{
		namespace:  Namespace,
		dimensions: make(map[string]string),
		values:     make(map[string]float64),
		properties: make(map[string]interface{}),
	}
	if functionName != "" {
		r.addDimension("FunctionName", functionName)
	}
	return r
}

func (r *Recorder) addDimension(key, value string) {
	if _, seen := r.dimensions[key]; !seen {
		r.dimKeys = append(r.dimKeys, key)
	}
	r.dimensions[key] = value
}

// Dimension adds a dimension key-value pair. Dimensions are indexed in
// CloudWatch and appear as filterable attributes on the metric.
func (r *Recorder) Dimension(key, value string) *Recorder {
	r.addDimension(key, value)
	return r
}

// Metric records a named metric value with a CloudWatch unit.
// Use the Unit* constants (UnitMilliseconds, UnitCount, UnitBytes, UnitNone).
func (r *Recorder) Metric(name string, value float64, unit string) *Recorder {
	if _, seen := r.values[name]; !seen {
		r.defs = append(r.defs, metricDef{Name: name, Unit: unit})
	}
	r.values[name] = value
	return r
}

// Count is a convenience for recording a count metric (value = 1).
func (r *Recorder) Count(name string) *Recorder {
	return r.Metric(name, 1, UnitCount)
}

// Add increments a count metric, creating it at zero if absent.
func (r *Recorder) Add(name string, delta float64) *Recorder {
	if _, seen := r.values[name]; !seen {
		r.defs = append(r.defs, metricDef{Name: name, Unit: UnitCount})
	}
	r.values[name] += delta
	return r
}

// Property adds a non-metric field to the EMF document. Properties are
// searchable in CloudWatch Logs Insights but create no CloudWatch metric.
func (r *Recorder) Property(key string, value interface{}) *Recorder {
	r.properties[key] = value
	return r
}

// Flush serializes the EMF document as a single JSON line to stdout.
// After flushing, the Recorder should not be reused.
func (r *Recorder) Flush() {
	if len(r.defs) == 0 {
		return
	}

	doc := make(map[string]interface{})
	doc["_aws"] = emfDirective{
		Timestamp: time.Now().UnixMilli(),
		CloudWatchMetrics: []cwMetric{{
			Namespace:  r.namespace,
			Dimensions: [][]string{r.dimKeys},
			Metrics:    r.defs,
		}},
	}

	for k, v := range r.dimensions {
		doc[k] = v
	}
	for k, v := range r.values {
		doc[k] = v
	}
	for k, v := range r.properties {
		doc[k] = v
	}

	data, err := json.Marshal(doc)
	if err != nil {
		// Best-effort: log to stderr if marshaling fails
		fmt.Fprintf(os.Stderr, "emf: failed to marshal metrics: %v\n", err)
		return
	}

	// EMF must be a single line on stdout
	fmt.Fprintln(os.Stdout, string(data))
}
