package grader

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var (
	gradingDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "scriptgrade",
		Subsystem: "grading",
		Name:      "request_duration_seconds",
		Help:      "Duration of batch requests to the grading service",
	})

	gradingFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "scriptgrade",
		Subsystem: "grading",
		Name:      "request_failures_total",
		Help:      "Number of failed batch requests to the grading service",
	}, []string{"reason"})
)

// responseSchema describes the wire shape the grading service must return:
// one result-list per request, each a list of [label, score, total,
// explanation] tuples.
var responseSchema = jsonschema.MustCompileString("grading-response.json", `{
	"type": "array",
	"items": {
		"type": "array",
		"items": {
			"type": "array",
			"prefixItems": [
				{"type": "string"},
				{"type": "number"},
				{"type": "number"},
				{"type": "string"}
			],
			"minItems": 4,
			"maxItems": 4
		}
	}
}`)

// Request is one grading job: a question, the student's answer and the
// rendered rubric text.
type Request struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
	Rubric   string `json:"rubric"`
}

// Tuple is one graded rubric line from the service, still positional: the
// caller pairs it with its source rubric item.
type Tuple struct {
	Label       string
	Score       float64
	Total       float64
	Explanation string
}

// StatusError indicates the grading service answered with a non-2xx status.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("LLM API error: %d", e.StatusCode)
}

// ShapeError indicates the response decoded but its length or structure does
// not match the request batch.
type ShapeError struct {
	Want   int
	Got    int
	Detail string
}

func (e *ShapeError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("invalid response format from LLM API: %s", e.Detail)
	}
	return fmt.Sprintf("invalid response format from LLM API: expected %d result lists, got %d", e.Want, e.Got)
}

// Config holds the grading service endpoint settings.
type Config struct {
	URL     string
	Timeout time.Duration
}

// Client sends grading batches to the external LLM grading service. It is
// stateless and performs no retries; the caller decides whether to retry a
// whole batch later.
type Client struct {
	http   *resty.Client
	url    string
	tracer trace.Tracer
	logger zerolog.Logger
}

// New constructs a grading client.
func New(cfg Config, logger zerolog.Logger) (*Client, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("grading service url is required")
	}

	httpClient := resty.New()
	if cfg.Timeout > 0 {
		httpClient.SetTimeout(cfg.Timeout)
	}

	return &Client{
		http:   httpClient,
		url:    cfg.URL,
		tracer: otel.Tracer("github.com/scriptgrade/scriptgrade-api/pkg/grader"),
		logger: logger.With().Str("component", "grader").Logger(),
	}, nil
}

// GradeBatch posts the requests as a single JSON array and returns one
// ordered tuple list per request, in request order.
func (c *Client) GradeBatch(parent context.Context, requests []Request) ([][]Tuple, error) {
	if len(requests) == 0 {
		return nil, fmt.Errorf("grading batch must not be empty")
	}

	ctx, span := c.tracer.Start(parent, "grader.grade_batch", trace.WithAttributes(
		attribute.Int("grading.batch_size", len(requests)),
	))
	defer span.End()

	start := time.Now()
	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(requests).
		Post(c.url)
	gradingDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		gradingFailures.WithLabelValues("transport").Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, "transport_failed")
		return nil, fmt.Errorf("grading service request: %w", err)
	}

	if resp.StatusCode() < 200 || resp.StatusCode() >= 300 {
		gradingFailures.WithLabelValues("status").Inc()
		statusErr := &StatusError{StatusCode: resp.StatusCode(), Body: truncateBody(resp.String())}
		span.RecordError(statusErr)
		span.SetStatus(codes.Error, "non_2xx")
		c.logger.Error().Int("status", resp.StatusCode()).Str("body", statusErr.Body).Msg("grading service returned error")
		return nil, statusErr
	}

	tuples, err := c.decode(resp.Body(), len(requests))
	if err != nil {
		gradingFailures.WithLabelValues("shape").Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, "bad_shape")
		return nil, err
	}

	return tuples, nil
}

func (c *Client) decode(body []byte, want int) ([][]Tuple, error) {
	var document interface{}
	if err := json.Unmarshal(body, &document); err != nil {
		return nil, &ShapeError{Want: want, Detail: "response is not valid JSON"}
	}

	if err := responseSchema.Validate(document); err != nil {
		return nil, &ShapeError{Want: want, Detail: err.Error()}
	}

	var raw [][][]json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, &ShapeError{Want: want, Detail: "response is not an array of result lists"}
	}

	if len(raw) != want {
		return nil, &ShapeError{Want: want, Got: len(raw)}
	}

	tuples := make([][]Tuple, len(raw))
	for i, list := range raw {
		tuples[i] = make([]Tuple, 0, len(list))
		for _, entry := range list {
			var tuple Tuple
			if err := json.Unmarshal(entry[0], &tuple.Label); err != nil {
				return nil, &ShapeError{Want: want, Detail: "tuple label is not a string"}
			}
			if err := json.Unmarshal(entry[1], &tuple.Score); err != nil {
				return nil, &ShapeError{Want: want, Detail: "tuple score is not a number"}
			}
			if err := json.Unmarshal(entry[2], &tuple.Total); err != nil {
				return nil, &ShapeError{Want: want, Detail: "tuple total is not a number"}
			}
			if err := json.Unmarshal(entry[3], &tuple.Explanation); err != nil {
				return nil, &ShapeError{Want: want, Detail: "tuple explanation is not a string"}
			}
			tuples[i] = append(tuples[i], tuple)
		}
	}

	return tuples, nil
}

func truncateBody(body string) string {
	body = strings.TrimSpace(body)
	if len(body) > 200 {
		return body[:200]
	}
	return body
}
