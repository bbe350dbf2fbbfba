package grader

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := New(Config{URL: server.URL, Timeout: 5 * time.Second}, zerolog.Nop())
	require.NoError(t, err)

	return client, server
}

func TestGradeBatchDecodesTuples(t *testing.T) {
	var received []Request
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		require.NoError(t, json.Unmarshal(body, &received))
		require.Equal(t, "application/json", r.Header.Get("Content-Type"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[
			[["criterion one", 1, 2, "partial"], ["criterion two", 3, 3, "full"]],
			[["criterion one", 0, 2, "missing"]]
		]`))
	})

	requests := []Request{
		{Question: "q1", Answer: "a1", Rubric: "1. criterion one (2 marks)"},
		{Question: "q2", Answer: "a2", Rubric: "1. criterion one (2 marks)"},
	}

	results, err := client.GradeBatch(context.Background(), requests)
	require.NoError(t, err)
	require.Equal(t, requests, received)
	require.Len(t, results, 2)
	require.Len(t, results[0], 2)
	require.Equal(t, Tuple{Label: "criterion one", Score: 1, Total: 2, Explanation: "partial"}, results[0][0])
	require.Len(t, results[1], 1)
}

func TestGradeBatchNon2xxReturnsStatusError(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model unavailable", http.StatusInternalServerError)
	})

	_, err := client.GradeBatch(context.Background(), []Request{{Question: "q", Answer: "a", Rubric: "r"}})

	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	require.Equal(t, http.StatusInternalServerError, statusErr.StatusCode)
	require.Contains(t, statusErr.Body, "model unavailable")
	require.Contains(t, err.Error(), "LLM API error")
}

func TestGradeBatchLengthMismatchReturnsShapeError(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[[["only one", 1, 1, "ok"]]]`))
	})

	requests := []Request{
		{Question: "q1", Answer: "a1", Rubric: "r1"},
		{Question: "q2", Answer: "a2", Rubric: "r2"},
	}

	_, err := client.GradeBatch(context.Background(), requests)

	var shapeErr *ShapeError
	require.ErrorAs(t, err, &shapeErr)
	require.Equal(t, 2, shapeErr.Want)
	require.Equal(t, 1, shapeErr.Got)
}

func TestGradeBatchMalformedTupleReturnsShapeError(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[[["label", "not-a-number", 2, "text"]]]`))
	})

	_, err := client.GradeBatch(context.Background(), []Request{{Question: "q", Answer: "a", Rubric: "r"}})

	var shapeErr *ShapeError
	require.ErrorAs(t, err, &shapeErr)
}

func TestGradeBatchNonJSONBodyReturnsShapeError(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<html>gateway timeout</html>"))
	})

	_, err := client.GradeBatch(context.Background(), []Request{{Question: "q", Answer: "a", Rubric: "r"}})

	var shapeErr *ShapeError
	require.ErrorAs(t, err, &shapeErr)
}

func TestGradeBatchRejectsEmptyBatch(t *testing.T) {
	client, err := New(Config{URL: "http://localhost:0"}, zerolog.Nop())
	require.NoError(t, err)

	_, err = client.GradeBatch(context.Background(), nil)
	require.Error(t, err)
}

func TestNewRequiresURL(t *testing.T) {
	_, err := New(Config{}, zerolog.Nop())
	require.Error(t, err)
}
