// Package batch evaluates many timecode operations against one frame rate.
package batch

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"strings"

	"gopkg.in/yaml.v3"
)

// Op names a timecode operation.
type Op string

const (
	OpParse      Op = "parse"
	OpFormat     Op = "format"
	OpAdd        Op = "add"
	OpDifference Op = "difference"
	OpValidate   Op = "validate"
)

// Format is the encoding of a job document.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

var (
	// ErrUnknownOperation is reported for an op outside the known set.
	ErrUnknownOperation = errors.New("unknown operation")

	// ErrTooManyOperations is returned when a job exceeds the runner limit.
	ErrTooManyOperations = errors.New("too many operations")

	// ErrUnsupportedFormat is returned by Decode for formats other than
	// JSON and YAML.
	ErrUnsupportedFormat = errors.New("unsupported job format")
)

// Job is a list of operations sharing one rate. Rate may be a preset name
// or a rate literal; empty selects the runner default.
type Job struct {
	ID         string      `json:"id,omitempty" yaml:"id,omitempty"`
	Rate       string      `json:"rate,omitempty" yaml:"rate,omitempty"`
	Operations []Operation `json:"operations" yaml:"operations"`
}

// Operation is one step of a job.
//
//	parse:      Timecode -> Frames
//	format:     Frames -> Timecode
//	add:        Timecode + Frames -> Timecode
//	difference: Other - Timecode -> Frames
//	validate:   Timecode -> Valid
type Operation struct {
	Op       Op     `json:"op" yaml:"op"`
	Timecode string `json:"timecode,omitempty" yaml:"timecode,omitempty"`
	Other    string `json:"other,omitempty" yaml:"other,omitempty"`
	Frames   int64  `json:"frames,omitempty" yaml:"frames,omitempty"`
}

// Result holds the outcome of every operation in job order.
type Result struct {
	JobID   string            `json:"job_id" yaml:"job_id"`
	Rate    string            `json:"rate" yaml:"rate"`
	Results []OperationResult `json:"results" yaml:"results"`
}

// Failed counts operations that returned an error. A validate operation
// reporting an invalid timecode does not count.
func (r *Result) Failed() int {
	n := 0
	for i := range r.Results {
		if r.Results[i].Error != "" && r.Results[i].Op != OpValidate {
			n++
		}
	}
	return n
}

// OperationResult is the outcome of one operation. Error and ErrorCode are
// set when it failed.
type OperationResult struct {
	Index     int    `json:"index" yaml:"index"`
	Op        Op     `json:"op" yaml:"op"`
	Timecode  string `json:"timecode,omitempty" yaml:"timecode,omitempty"`
	Frames    int64  `json:"frames" yaml:"frames"`
	Valid     bool   `json:"valid" yaml:"valid"`
	Error     string `json:"error,omitempty" yaml:"error,omitempty"`
	ErrorCode string `json:"error_code,omitempty" yaml:"error_code,omitempty"`
}

// Decode reads a job document.
func Decode(r io.Reader, format Format) (*Job, error) {
	var job Job
	switch format {
	case FormatJSON:
		dec := json.NewDecoder(r)
		dec.DisallowUnknownFields()
		if err := dec.Decode(&job); err != nil {
			return nil, fmt.Errorf("failed to decode JSON job: %w", err)
		}
	case FormatYAML:
		dec := yaml.NewDecoder(r)
		dec.KnownFields(true)
		if err := dec.Decode(&job); err != nil {
			if errors.Is(err, io.EOF) {
				return nil, fmt.Errorf("failed to decode YAML job: empty document")
			}
			return nil, fmt.Errorf("failed to decode YAML job: %w", err)
		}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
	return &job, nil
}

// FormatFromContentType maps a Content-Type header to a job format. An
// empty header means JSON.
func FormatFromContentType(contentType string) (Format, error) {
	if contentType == "" {
		return FormatJSON, nil
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, contentType)
	}
	switch mediaType {
	case "application/json":
		return FormatJSON, nil
	case "application/yaml", "application/x-yaml", "text/yaml", "text/x-yaml":
		return FormatYAML, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, contentType)
}

// FormatFromPath picks a job format from a file extension.
func FormatFromPath(path string) Format {
	lower := strings.ToLower(path)
	if strings.HasSuffix(lower, ".yaml") || strings.HasSuffix(lower, ".yml") {
		return FormatYAML
	}
	return FormatJSON
}
