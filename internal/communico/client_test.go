package communico

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/faylib/equipment-calendar/internal/config"
	"github.com/faylib/equipment-calendar/internal/model"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewClient(config.CommunicoConfig{
		BaseURL: srv.URL,
		Tenant:  "faylib",
		Timeout: 5 * time.Second,
	}, nil)
}

func TestGroupAvailability_SendsBrowserHeadersAndQuery(t *testing.T) {
	var got *http.Request
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		got = r
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":{"assets":[]}}`))
	})

	resp, err := c.GroupAvailability(context.Background(), "3581", "2025-12-16")
	require.NoError(t, err)
	require.NotNil(t, got)

	assert.Equal(t, "/v2/faylib/assetbooking/group/3581", got.URL.Path)
	assert.Equal(t, "2025-12-16", got.URL.Query().Get("date"))
	assert.Equal(t, "INPERSON", got.URL.Query().Get("assetType"))
	assert.Equal(t, "1", got.URL.Query().Get("multiplier"))
	assert.Equal(t, config.DefaultUserAgent, got.Header.Get("User-Agent"))
	assert.Equal(t, "application/json", got.Header.Get("Accept"))
	assert.True(t, resp.OK())
	assert.JSONEq(t, `{"data":{"assets":[]}}`, string(resp.Body))
}

func TestFetchWeek_DecodesNumericIDs(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data":{"assets":[{"id":4101,"availability":[[true,false]]}]}}`))
	})

	week, err := c.FetchWeek(context.Background(), "3581", "2025-12-16")
	require.NoError(t, err)
	require.NotNil(t, week.Data)
	require.Len(t, week.Data.Assets, 1)
	assert.Equal(t, model.FlexibleID("4101"), week.Data.Assets[0].ID)
	assert.Equal(t, [][]bool{{true, false}}, week.Data.Assets[0].Availability)
}

func TestFetchWeek_NonSuccessStatus(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	_, err := c.FetchWeek(context.Background(), "3581", "2025-12-16")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUpstreamStatus))
}

func TestFetchWeek_MalformedBody(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html>`))
	})

	_, err := c.FetchWeek(context.Background(), "3581", "2025-12-16")
	assert.Error(t, err)
}

func TestPatronSignIn_PassesCredentials(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/faylib/patron", r.URL.Path)
		assert.Equal(t, "21000", r.URL.Query().Get("u"))
		assert.Equal(t, "1234", r.URL.Query().Get("p"))
		assert.Equal(t, "schedule", r.URL.Query().Get("type"))
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":"bad pin"}`))
	})

	resp, status, err := c.SignIn(context.Background(), "21000", "1234")
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.True(t, resp.HasError())
	assert.Equal(t, "bad pin", resp.ErrorMessage())
}

func TestBook_PostsJSONBody(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v2/faylib/assetbooking/booking", r.URL.Path)
		assert.Contains(t, r.Header.Get("Content-Type"), "application/json")
		raw, _ := io.ReadAll(r.Body)
		var body model.BookingRequest
		require.NoError(t, json.Unmarshal(raw, &body))
		assert.Equal(t, "3581", body.GroupID)
		assert.Equal(t, "2025-12-16 09:00", body.StartTime)
		_, _ = w.Write([]byte(`{"status":"success"}`))
	})

	resp, status, err := c.Book(context.Background(), model.BookingRequest{GroupID: "3581", StartTime: "2025-12-16 09:00"})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "success", resp.Status)
}

func TestTransportFailure(t *testing.T) {
	c := NewClient(config.CommunicoConfig{BaseURL: "http://127.0.0.1:1", Tenant: "faylib", Timeout: time.Second}, nil)
	_, err := c.PatronSignIn(context.Background(), "a", "b")
	assert.Error(t, err)
}

func TestPatronSignIn_TransportErrorHidesCredentials(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	c := NewClient(config.CommunicoConfig{BaseURL: "http://127.0.0.1:1", Tenant: "faylib", Timeout: time.Second}, zap.New(core))

	const barcode, pin = "21234000999", "SECRETPIN4321"
	_, err := c.PatronSignIn(context.Background(), barcode, pin)
	require.Error(t, err)
	assert.NotContains(t, err.Error(), pin)
	assert.NotContains(t, err.Error(), barcode)
	assert.Contains(t, err.Error(), "/v1/faylib/patron")

	_, _, err = c.SignIn(context.Background(), barcode, pin)
	require.Error(t, err)
	assert.NotContains(t, err.Error(), pin)

	require.NotZero(t, logs.Len())
	for _, entry := range logs.All() {
		line := entry.Message + fmt.Sprint(entry.ContextMap())
		assert.NotContains(t, line, pin)
		assert.NotContains(t, line, barcode)
	}
}

func TestRedactQuery(t *testing.T) {
	inner := errors.New("connection refused")
	err := redactQuery(&url.Error{Op: "Get", URL: "http://host/v1/faylib/patron?p=9999&u=21000", Err: inner}, "21000", "9999")
	assert.Equal(t, `Get "http://host/v1/faylib/patron": connection refused`, err.Error())
	assert.ErrorIs(t, err, inner)

	err = redactQuery(errors.New("bad pin 9999 for 21000"), "21000", "9999")
	assert.Equal(t, "bad pin *** for ***", err.Error())

	plain := errors.New("timeout")
	assert.Same(t, plain, redactQuery(plain, "9999"))
}
