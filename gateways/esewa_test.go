package gateways

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/Suraj-792/KinMel/config"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newEsewaVerifier(serverURL string) *EsewaVerifier {
	return &EsewaVerifier{
		Config: config.GatewayConfig{
			EsewaMerchantID: "EPAYTEST",
			EsewaVerifyURL:  serverURL,
		},
		Client: &http.Client{Timeout: 2 * time.Second},
	}
}

func amt(s string) decimal.Decimal {
	d, _ := decimal.NewFromString(s)
	return d
}

func TestEsewaVerifyAccepted(t *testing.T) {
	var gotForm url.Values
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		gotForm = r.PostForm
		w.Write([]byte(`{"status":"SUCCESS","refId":"R1","totalAmount":"100.00","productId":"PID-1"}`))
	}))
	defer server.Close()

	result := newEsewaVerifier(server.URL).Verify("R1", amt("100"), "PID-1")
	assert.True(t, result.Accepted)
	assert.Equal(t, "R1", result.RefID)
	assert.Equal(t, "100.00", result.Amount)
	assert.Equal(t, "PID-1", result.Pid)

	// The request carries the exact 2dp amount string the signature uses
	assert.Equal(t, "100.00", gotForm.Get("amt"))
	assert.Equal(t, "R1", gotForm.Get("rid"))
	assert.Equal(t, "PID-1", gotForm.Get("pid"))
	assert.Equal(t, "EPAYTEST", gotForm.Get("scd"))
}

func TestEsewaVerifyAmountMismatch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":"SUCCESS","refId":"R1","amount":"99.00"}`))
	}))
	defer server.Close()

	result := newEsewaVerifier(server.URL).Verify("R1", amt("100.00"), "PID-1")
	assert.False(t, result.Accepted)
	assert.Equal(t, ReasonAmountMismatch, result.Reason)
	assert.NotEmpty(t, result.Raw)
}

func TestEsewaVerifyReferenceMismatch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":"SUCCESS","refId":"OTHER"}`))
	}))
	defer server.Close()

	result := newEsewaVerifier(server.URL).Verify("R1", amt("100"), "PID-1")
	assert.False(t, result.Accepted)
	assert.Equal(t, ReasonReferenceMismatch, result.Reason)
}

func TestEsewaVerifyPidMismatch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":"SUCCESS","productCode":"WRONG"}`))
	}))
	defer server.Close()

	result := newEsewaVerifier(server.URL).Verify("R1", amt("100"), "PID-1")
	assert.False(t, result.Accepted)
	assert.Equal(t, ReasonPidMismatch, result.Reason)
}

func TestEsewaVerifyDeclined(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":"FAILURE"}`))
	}))
	defer server.Close()

	result := newEsewaVerifier(server.URL).Verify("R1", amt("100"), "PID-1")
	assert.False(t, result.Accepted)
	assert.Equal(t, ReasonGatewayDeclined, result.Reason)
}

func TestEsewaVerifyTextualHeuristic(t *testing.T) {
	// No explicit status field anywhere: a body mentioning SUCCESS and not
	// FAIL counts as success
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("Transaction SUCCESS"))
	}))
	defer server.Close()

	result := newEsewaVerifier(server.URL).Verify("R1", amt("100"), "PID-1")
	assert.True(t, result.Accepted)
}

func TestEsewaVerifyHeuristicNotUsedWithExplicitStatus(t *testing.T) {
	// An explicit non-success status wins even if the body contains SUCCESS
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":"REVERSED","note":"was SUCCESS earlier"}`))
	}))
	defer server.Close()

	result := newEsewaVerifier(server.URL).Verify("R1", amt("100"), "PID-1")
	assert.False(t, result.Accepted)
}

func TestEsewaVerifyNetworkError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close()

	result := newEsewaVerifier(server.URL).Verify("R1", amt("100"), "PID-1")
	assert.False(t, result.Accepted)
	assert.Equal(t, ReasonNetworkError, result.Reason)
}

func TestEsewaInitiationSignature(t *testing.T) {
	cfg := config.GatewayConfig{
		EsewaMerchantID: "EPAYTEST",
		EsewaSecretKey:  "8gBm/:&EnhH.1/q",
		EsewaPaymentURL: "https://pay.example/form",
		CallbackBaseURL: "http://localhost:8080",
	}

	payURL, params, err := EsewaInitiation(cfg, amt("100"), "uuid-1", 7)
	require.NoError(t, err)
	assert.Equal(t, "https://pay.example/form", payURL)
	assert.Equal(t, "100.00", params["total_amount"])
	assert.Equal(t, "uuid-1", params["transaction_uuid"])
	assert.Equal(t, "EPAYTEST", params["product_code"])
	assert.Equal(t, "total_amount,transaction_uuid,product_code", params["signed_field_names"])
	assert.Contains(t, params["success_url"], "oid=7")
	assert.Contains(t, params["failure_url"], "transaction_uuid=uuid-1")

	want, err := SignFields(params, esewaSignedFields, cfg.EsewaSecretKey)
	require.NoError(t, err)
	assert.Equal(t, want, params["signature"])
}

func TestEsewaInitiationNoSecret(t *testing.T) {
	_, _, err := EsewaInitiation(config.GatewayConfig{EsewaMerchantID: "X"}, amt("1"), "u", 1)
	assert.ErrorIs(t, err, ErrNoSecret)
}
