package batch

import (
	"encoding/json"
	"fmt"
)

// Item statuses reported by multi-item tool operations.
const (
	StatusDelivered = "delivered"
	StatusSkipped   = "skipped"
	StatusResolved  = "resolved"
	StatusError     = "error"
)

// Result represents the outcome of a single item in a multi-item
// tool operation, such as one attachment in a delivery batch.
type Result struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Result string `json:"result,omitempty"`
	Error  string `json:"error,omitempty"`
}

// Report represents the aggregated outcome of a multi-item operation.
// Failed counts both skipped and errored items.
type Report struct {
	Total      int      `json:"total"`
	Successful int      `json:"successful"`
	Failed     int      `json:"failed"`
	Results    []Result `json:"results"`
}

// ParseStringOrArray parses a tool parameter that can be either a
// single string or an array of strings.
func ParseStringOrArray(param interface{}, paramName string) ([]string, error) {
	if param == nil {
		return nil, fmt.Errorf("%s is required", paramName)
	}

	var result []string

	switch v := param.(type) {
	case string:
		if v == "" {
			return nil, fmt.Errorf("%s cannot be empty", paramName)
		}
		result = []string{v}
	case []interface{}:
		if len(v) == 0 {
			return nil, fmt.Errorf("%s cannot be empty", paramName)
		}
		for i, item := range v {
			str, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("%s[%d] must be a string", paramName, i)
			}
			if str == "" {
				return nil, fmt.Errorf("%s[%d] cannot be empty", paramName, i)
			}
			result = append(result, str)
		}
	default:
		return nil, fmt.Errorf("%s must be a string or array of strings", paramName)
	}

	return result, nil
}

// FormatReport aggregates per-item results into a JSON report.
func FormatReport(results []Result) string {
	report := Report{
		Total:   len(results),
		Results: results,
	}

	for _, r := range results {
		switch r.Status {
		case StatusDelivered, StatusResolved:
			report.Successful++
		default:
			report.Failed++
		}
	}

	jsonBytes, _ := json.MarshalIndent(report, "", "  ")
	return string(jsonBytes)
}

// Delivered creates a delivered result carrying the shareable URL.
func Delivered(id, url string) Result {
	return Result{
		ID:     id,
		Status: StatusDelivered,
		Result: url,
	}
}

// Skipped creates a skipped result. The reason is optional.
func Skipped(id, reason string) Result {
	return Result{
		ID:     id,
		Status: StatusSkipped,
		Error:  reason,
	}
}
