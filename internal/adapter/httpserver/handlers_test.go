package httpserver_test

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/fairyhunter13/cv-match-advisor/internal/domain"
)

func doJSON(t *testing.T, f *fixture, method, path string, body any, hdr map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var rd *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		rd = bytes.NewReader(b)
	} else {
		rd = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, rd)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range hdr {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var m map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &m))
	return m
}

func TestEvaluateJSONAccepted(t *testing.T) {
	f := newFixture(t)
	rec := doJSON(t, f, http.MethodPost, "/v1/evaluate", map[string]any{
		"cv":  map[string]string{"text": "Jordan Doe, Go engineer"},
		"job": map[string]string{"text": "Backend engineer, Go required"},
	}, nil)
	require.Equal(t, http.StatusAccepted, rec.Code)

	body := decodeBody(t, rec)
	require.Equal(t, "queued", body["status"])
	require.NotEmpty(t, body["id"])
	require.Len(t, f.queue.sent, 1)
}

func TestEvaluateJSONValidation(t *testing.T) {
	f := newFixture(t)

	rec := doJSON(t, f, http.MethodPost, "/v1/evaluate", map[string]any{
		"cv": map[string]string{"url": "not a url"},
		"job": map[string]string{
			"text": "Backend engineer",
		},
	}, nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	body := decodeBody(t, rec)
	errObj := body["error"].(map[string]any)
	require.Equal(t, "INVALID_ARGUMENT", errObj["code"])

	// Both text and url set on one document.
	rec = doJSON(t, f, http.MethodPost, "/v1/evaluate", map[string]any{
		"cv":  map[string]string{"text": "x", "url": "https://example.com/cv"},
		"job": map[string]string{"text": "y"},
	}, nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	// Malformed JSON body.
	req := httptest.NewRequest(http.MethodPost, "/v1/evaluate", strings.NewReader("{nope"))
	req.Header.Set("Content-Type", "application/json")
	rec2 := httptest.NewRecorder()
	f.router.ServeHTTP(rec2, req)
	require.Equal(t, http.StatusBadRequest, rec2.Code)
}

func TestEvaluateIdempotencyKeyReplays(t *testing.T) {
	f := newFixture(t)
	body := map[string]any{
		"cv":  map[string]string{"text": "Jordan Doe"},
		"job": map[string]string{"text": "Backend engineer"},
	}
	hdr := map[string]string{"Idempotency-Key": "key-1"}

	first := decodeBody(t, doJSON(t, f, http.MethodPost, "/v1/evaluate", body, hdr))
	second := decodeBody(t, doJSON(t, f, http.MethodPost, "/v1/evaluate", body, hdr))
	require.Equal(t, first["id"], second["id"])
	require.Len(t, f.queue.sent, 1)
}

func TestEvaluateMultipartAccepted(t *testing.T) {
	f := newFixture(t)

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	require.NoError(t, w.WriteField("cv_text", "Jordan Doe, Go engineer"))
	fw, err := w.CreateFormFile("job_file", "jd.pdf")
	require.NoError(t, err)
	_, err = fw.Write([]byte("%PDF-1.4 fake"))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/v1/evaluate", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusAccepted, rec.Code)
	require.Len(t, f.queue.sent, 1)
}

func TestEvaluateRejectsNonJSONAccept(t *testing.T) {
	f := newFixture(t)
	rec := doJSON(t, f, http.MethodPost, "/v1/evaluate", map[string]any{
		"cv":  map[string]string{"text": "x"},
		"job": map[string]string{"text": "y"},
	}, map[string]string{"Accept": "text/html"})
	require.Equal(t, http.StatusNotAcceptable, rec.Code)
}

func TestResultHandlerStatuses(t *testing.T) {
	f := newFixture(t)
	now := time.Now().UTC()
	f.jobs.m["q1"] = domain.Job{ID: "q1", Status: domain.JobQueued, CreatedAt: now, UpdatedAt: now}
	f.seedCompletedJob("c1")

	rec := doJSON(t, f, http.MethodGet, "/v1/result/q1", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "queued", decodeBody(t, rec)["status"])

	rec = doJSON(t, f, http.MethodGet, "/v1/result/c1", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	require.Equal(t, "completed", body["status"])
	res := body["result"].(map[string]any)
	require.Equal(t, "Good Match", res["decision"])
	require.InDelta(t, 73.25, res["weighted_score"].(float64), 0.001)

	rec = doJSON(t, f, http.MethodGet, "/v1/result/missing", nil, nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Equal(t, "NOT_FOUND", decodeBody(t, rec)["error"].(map[string]any)["code"])
}

func TestResultHandlerETagCaching(t *testing.T) {
	f := newFixture(t)
	f.seedCompletedJob("c1")

	rec := doJSON(t, f, http.MethodGet, "/v1/result/c1", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	etag := rec.Header().Get("ETag")
	require.NotEmpty(t, etag)

	rec = doJSON(t, f, http.MethodGet, "/v1/result/c1", nil, map[string]string{"If-None-Match": etag})
	require.Equal(t, http.StatusNotModified, rec.Code)
	require.Empty(t, rec.Body.Bytes())
	require.Equal(t, etag, rec.Header().Get("ETag"))
}

func TestReadyzReportsProbeFailure(t *testing.T) {
	f := newFixture(t)
	f.srv.DBCheck = func(context.Context) error { return nil }
	f.srv.RedisCheck = func(context.Context) error { return domain.ErrInternal }

	rec := doJSON(t, f, http.MethodGet, "/readyz", nil, nil)
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	body := decodeBody(t, rec)
	checks := body["checks"].([]any)
	require.Len(t, checks, 2)
}
