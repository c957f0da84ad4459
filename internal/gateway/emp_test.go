package gateway

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *EMPClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client, err := NewEMPClient(srv.URL, "key", "secret", 5*time.Second)
	require.NoError(t, err)
	return client
}

func TestNewEMPClientValidation(t *testing.T) {
	_, err := NewEMPClient("", "key", "secret", 0)
	assert.Error(t, err)

	_, err = NewEMPClient("https://emp.example.com", "", "secret", 0)
	assert.Error(t, err)

	_, err = NewEMPClient("not a url", "key", "secret", 0)
	assert.Error(t, err)
}

func TestSubmit(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/payments", r.URL.Path)
		assert.Equal(t, "key", r.Header.Get("X-API-Key"))
		assert.Equal(t, "secret", r.Header.Get("X-API-Secret"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"unique_id":"U1","status":"pending_async","message":""}`))
	})

	result, err := client.Submit(context.Background(), SubmitRequest{
		TransactionID:     "batch-0",
		AmountMinor:       1500,
		BankAccountNumber: "DE89370400440532013000",
	})
	require.NoError(t, err)
	assert.Equal(t, "U1", result.UniqueID)
	assert.Equal(t, "pending_async", result.Status)
}

func TestListTransactionsFullHistory(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/transactions", r.URL.Path)
		assert.Empty(t, r.URL.Query().Get("start_date"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"transactions":[
			{"unique_id":"U1","transaction_id":"t-0","status":"approved"},
			{"unique_id":"U2","transaction_id":"t-1","status":"declined","reason_code":"04","message":"Invalid account number"}
		]}`))
	})

	txs, err := client.ListTransactions(context.Background(), time.Time{}, time.Time{})
	require.NoError(t, err)
	require.Len(t, txs, 2)
	assert.Equal(t, "U1", txs[0].UniqueID)
	assert.Equal(t, "04", txs[1].ReasonCode)
}

func TestListTransactionsUpstreamError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream down", http.StatusBadGateway)
	})

	_, err := client.ListTransactions(context.Background(), time.Time{}, time.Time{})
	require.Error(t, err)

	var gwErr *Error
	require.True(t, errors.As(err, &gwErr))
	assert.Equal(t, http.StatusBadGateway, gwErr.StatusCode)
	assert.True(t, IsTransient(err))
}

func TestVoid(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/transactions/U1/void", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"unique_id":"U1","status":"voided"}`))
	})

	result, err := client.Void(context.Background(), "U1", "t-0")
	require.NoError(t, err)
	assert.Equal(t, "voided", result.Status)
}

func TestStatusHelpers(t *testing.T) {
	assert.True(t, IsApprovedStatus(" Approved "))
	assert.True(t, IsFailureStatus("DECLINED"))
	assert.True(t, IsFailureStatus("chargebacked"))
	assert.True(t, IsPendingStatus("pending_async"))
	assert.False(t, IsFailureStatus("pending"))
	assert.False(t, IsApprovedStatus("declined"))
}

func TestIsTransientClassification(t *testing.T) {
	assert.True(t, IsTransient(context.DeadlineExceeded))
	assert.False(t, IsTransient(context.Canceled))
	assert.False(t, IsTransient(nil))
	assert.True(t, IsTransient(&Error{Transient: true}))
	assert.False(t, IsTransient(&Error{Transient: false}))
}
