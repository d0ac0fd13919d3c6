package dataservice

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dd0wney/cluso-orderviz/pkg/actions"
	"github.com/dd0wney/cluso-orderviz/pkg/auth"
	"github.com/dd0wney/cluso-orderviz/pkg/metrics"
)

const testSecret = "data-service-secret-at-least-32-chars!"

type fakeService struct {
	t        *testing.T
	tokens   *auth.JWTManager
	requests atomic.Int32
	lastReq  atomic.Value
}

func (f *fakeService) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.requests.Add(1)
	f.lastReq.Store(r.Header.Get("X-Request-ID"))

	if f.tokens != nil {
		if _, err := f.tokens.ValidateToken(r.Context(), auth.BearerToken(r)); err != nil {
			http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
			return
		}
	}

	w.Header().Set("Content-Type", "application/json")
	switch r.URL.Path {
	case "/api/documents/DOC-1/metadata":
		_ = json.NewEncoder(w).Encode(map[string]any{"name": "invoice.pdf", "size": 2048, "has_embedding": true})
	case "/api/documents/DOC-1/download-link":
		_ = json.NewEncoder(w).Encode(map[string]any{
			"download_url": "https://files.example.com/invoice.pdf?sig=abc",
			"filename":     "invoice.pdf",
			"expires_at":   "2026-10-18T12:00:00Z",
		})
	case "/api/documents/DOC-BAD/download-link":
		_ = json.NewEncoder(w).Encode(map[string]any{"download_url": "not a url", "filename": ""})
	case "/api/orders/ORD-1":
		_ = json.NewEncoder(w).Encode(map[string]any{"title": "Super container 1", "status": "in_transit"})
	case "/api/orders/ORD 2":
		_ = json.NewEncoder(w).Encode(map[string]any{"title": "spaced"})
	default:
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"detail":"document not found"}`))
	}
}

func newTestClient(t *testing.T, withAuth bool) (*Client, *fakeService, *metrics.Registry) {
	t.Helper()

	svc := &fakeService{t: t}
	var tokens *auth.JWTManager
	if withAuth {
		var err error
		tokens, err = auth.NewJWTManager(testSecret, time.Hour)
		require.NoError(t, err)
		svc.tokens = tokens
	}
	srv := httptest.NewServer(svc)
	t.Cleanup(srv.Close)

	reg := metrics.NewRegistry()
	c, err := NewClient(ClientConfig{
		BaseURL: srv.URL + "/api/",
		Tokens:  tokens,
		Metrics: reg,
	})
	require.NoError(t, err)
	return c, svc, reg
}

func callCount(t *testing.T, reg *metrics.Registry, endpoint, code string) float64 {
	t.Helper()
	var m dto.Metric
	require.NoError(t, reg.DataServiceCallsTotal.WithLabelValues(endpoint, code).Write(&m))
	return m.GetCounter().GetValue()
}

func TestNewClientRejectsBadURL(t *testing.T) {
	for _, u := range []string{"", "ftp://example.com", "::nope"} {
		_, err := NewClient(ClientConfig{BaseURL: u})
		assert.Error(t, err, u)
	}
}

func TestClientMetadataAndDetail(t *testing.T) {
	c, svc, reg := newTestClient(t, true)
	ctx := actions.WithRequestID(context.Background(), "req-123")

	rec, err := c.GetDocumentMetadata(ctx, "DOC-1")
	require.NoError(t, err)
	assert.Equal(t, "invoice.pdf", rec["name"])
	assert.Equal(t, true, rec["has_embedding"])
	assert.Equal(t, "req-123", svc.lastReq.Load())

	detail, err := c.GetOrderDetail(context.Background(), "ORD-1")
	require.NoError(t, err)
	assert.Equal(t, "in_transit", detail["status"])
	assert.NotEmpty(t, svc.lastReq.Load(), "a request id is generated when none is in the context")

	assert.Equal(t, 1.0, callCount(t, reg, EndpointMetadata, "200"))
	assert.Equal(t, 1.0, callCount(t, reg, EndpointOrderDetail, "200"))
}

func TestClientEscapesIDs(t *testing.T) {
	c, _, _ := newTestClient(t, false)
	rec, err := c.GetOrderDetail(context.Background(), "ORD 2")
	require.NoError(t, err)
	assert.Equal(t, "spaced", rec["title"])
}

func TestClientDownloadLink(t *testing.T) {
	c, _, _ := newTestClient(t, true)

	link, err := c.GetDocumentDownloadLink(context.Background(), "DOC-1")
	require.NoError(t, err)
	assert.Equal(t, "invoice.pdf", link.Filename)
	assert.Equal(t, "https://files.example.com/invoice.pdf?sig=abc", link.URL)
	assert.True(t, link.ExpiresAt.Equal(time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)))

	_, err = c.GetDocumentDownloadLink(context.Background(), "DOC-BAD")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid download link")
}

func TestClientUnexpectedStatus(t *testing.T) {
	c, _, reg := newTestClient(t, false)

	_, err := c.GetDocumentMetadata(context.Background(), "DOC-404")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnexpectedStatus))

	var se *StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusNotFound, se.Code)
	assert.Equal(t, "document not found", se.Body)
	assert.Equal(t, 1.0, callCount(t, reg, EndpointMetadata, "404"))
}

func TestClientUnauthorizedWithoutToken(t *testing.T) {
	svcTokens, err := auth.NewJWTManager(testSecret, time.Hour)
	require.NoError(t, err)
	srv := httptest.NewServer(&fakeService{t: t, tokens: svcTokens})
	defer srv.Close()

	c, err := NewClient(ClientConfig{BaseURL: srv.URL + "/api"})
	require.NoError(t, err)

	_, err = c.GetOrderDetail(context.Background(), "ORD-1")
	var se *StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusUnauthorized, se.Code)
	assert.Equal(t, "unauthorized", se.Body)
}

func TestClientCachesToken(t *testing.T) {
	c, _, _ := newTestClient(t, true)

	first, err := c.bearer()
	require.NoError(t, err)
	second, err := c.bearer()
	require.NoError(t, err)
	assert.Equal(t, first, second)

	c.tokenExp = time.Now().Add(time.Minute)
	_, err = c.bearer()
	require.NoError(t, err)
	assert.True(t, c.tokenExp.After(time.Now().Add(50*time.Minute)), "token refreshed near expiry")
}

func TestClientTransportError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	reg := metrics.NewRegistry()
	c, err := NewClient(ClientConfig{BaseURL: url, Metrics: reg})
	require.NoError(t, err)

	_, err = c.GetDocumentMetadata(context.Background(), "DOC-1")
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrUnexpectedStatus))
	assert.Equal(t, 1.0, callCount(t, reg, EndpointMetadata, "transport_error"))
}

func TestErrorMessageTruncates(t *testing.T) {
	long := strings.Repeat("x", 300)
	msg := errorMessage([]byte(long))
	assert.Len(t, msg, 203)
	assert.Equal(t, "boom", errorMessage([]byte(`{"message":"boom"}`)))
}
