package spend

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClientTotalSpent(t *testing.T) {
	var gotPath, gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"total_spent": 12000000}`))
	}))
	defer srv.Close()

	client := NewClient(WithBaseURL(srv.URL+"/"), WithBearerToken("secret"))
	total, err := client.TotalSpent(context.Background(), "cust-42")

	require.NoError(t, err)
	assert.Equal(t, 12_000_000.0, total)
	assert.Equal(t, "/customers/cust-42/total-spent", gotPath)
	assert.Equal(t, "Bearer secret", gotAuth)
}

func TestClientTotalSpentWrappedInData(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data":{"total_spent": 4500000.5}}`))
	}))
	defer srv.Close()

	total, err := NewClient(WithBaseURL(srv.URL)).TotalSpent(context.Background(), "c1")
	require.NoError(t, err)
	assert.Equal(t, 4_500_000.5, total)
}

func TestClientTotalSpentHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream down", http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := NewClient(WithBaseURL(srv.URL)).TotalSpent(context.Background(), "c1")

	var httpErr *HTTPError
	require.True(t, errors.As(err, &httpErr))
	assert.Equal(t, http.StatusBadGateway, httpErr.StatusCode)
	assert.Contains(t, httpErr.Body, "upstream down")
}

func TestClientTotalSpentMissingField(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"amount": 10}`))
	}))
	defer srv.Close()

	_, err := NewClient(WithBaseURL(srv.URL)).TotalSpent(context.Background(), "c1")
	assert.ErrorIs(t, err, ErrInvalidTotal)
}

func TestClientTotalSpentMalformedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`not json`))
	}))
	defer srv.Close()

	_, err := NewClient(WithBaseURL(srv.URL)).TotalSpent(context.Background(), "c1")
	assert.Error(t, err)
}

func TestClientTotalSpentRequiresCustomer(t *testing.T) {
	_, err := NewClient().TotalSpent(context.Background(), "  ")
	assert.ErrorIs(t, err, ErrCustomerRequired)
}

func TestClientMakesSingleAttempt(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := NewClient(WithBaseURL(srv.URL)).TotalSpent(context.Background(), "c1")
	assert.Error(t, err)
	assert.Equal(t, 1, calls)
}
