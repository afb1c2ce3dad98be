package feed

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rulefeed/rulefeed/internal/rules/domain"
)

func strPtr(s string) *string { return &s }

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c, err := New(Options{
		Endpoint: domain.NewEndpoint(srv.URL, "ios/latest.txt", map[string]string{"X-Client": "rulefeed"}),
	})
	require.NoError(t, err)
	return c, srv
}

func TestNewRequiresBaseURL(t *testing.T) {
	_, err := New(Options{})
	assert.Error(t, err)
}

func TestFetchUnconditional(t *testing.T) {
	var gotPath, gotINM, gotIMS, gotClient string
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotINM = r.Header.Get("If-None-Match")
		gotIMS = r.Header.Get("If-Modified-Since")
		gotClient = r.Header.Get("X-Client")
		w.Header().Set("ETag", `"v1"`)
		w.Header().Set("Last-Modified", "Sat, 01 Mar 2025 08:00:00 GMT")
		_, _ = w.Write([]byte("||example.com^\n"))
	})

	res, err := c.Fetch(context.Background(), domain.FetchMetadata{})
	require.NoError(t, err)

	assert.Equal(t, "/ios/latest.txt", gotPath)
	assert.Empty(t, gotINM, "no prior etag, no If-None-Match")
	assert.Empty(t, gotIMS)
	assert.Equal(t, "rulefeed", gotClient, "configured headers ride along")

	assert.False(t, res.NotModified)
	assert.Equal(t, "||example.com^\n", res.RulesText)
	assert.Equal(t, `"v1"`, *res.ETag)
	assert.Equal(t, "Sat, 01 Mar 2025 08:00:00 GMT", *res.LastModified)
}

func TestFetchSendsValidators(t *testing.T) {
	var gotINM, gotIMS string
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotINM = r.Header.Get("If-None-Match")
		gotIMS = r.Header.Get("If-Modified-Since")
		w.WriteHeader(http.StatusNotModified)
	})

	res, err := c.Fetch(context.Background(), domain.FetchMetadata{
		ETag:         strPtr(`"v1"`),
		LastModified: strPtr("Sat, 01 Mar 2025 08:00:00 GMT"),
	})
	require.NoError(t, err)

	assert.Equal(t, `"v1"`, gotINM)
	assert.Equal(t, "Sat, 01 Mar 2025 08:00:00 GMT", gotIMS)
	assert.True(t, res.NotModified)
	assert.Empty(t, res.RulesText)
}

func TestFetchOmittedHeadersStayNil(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("||example.com^"))
	})

	res, err := c.Fetch(context.Background(), domain.FetchMetadata{})
	require.NoError(t, err)
	assert.Nil(t, res.ETag)
	assert.Nil(t, res.LastModified)
}

func TestFetchUnexpectedStatus(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	_, err := c.Fetch(context.Background(), domain.FetchMetadata{})
	require.Error(t, err)

	var ue *domain.UnexpectedStatusError
	require.True(t, errors.As(err, &ue))
	assert.Equal(t, http.StatusServiceUnavailable, ue.Code)
}

func TestFetchInvalidBodyText(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte{0xff, 0xfe, 0xfd})
	})

	_, err := c.Fetch(context.Background(), domain.FetchMetadata{})
	assert.ErrorIs(t, err, domain.ErrInvalidRulesData)
}

func TestFetchTransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	c, err := New(Options{Endpoint: domain.NewEndpoint(srv.URL, "ios/latest.txt", nil)})
	require.NoError(t, err)
	srv.Close() // connection refused from here on

	_, err = c.Fetch(context.Background(), domain.FetchMetadata{})
	assert.ErrorIs(t, err, domain.ErrInvalidResponse)
}

func TestFetchHonorsCancellation(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.Fetch(ctx, domain.FetchMetadata{})
	assert.ErrorIs(t, err, context.Canceled)
}
