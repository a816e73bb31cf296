package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/richardliu001/pix-settlement/internal/apperr"
	"github.com/richardliu001/pix-settlement/internal/config"
	"github.com/richardliu001/pix-settlement/internal/logger"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSuitpayServer(t *testing.T, status string) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/gateway/request-qrcode", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "ci-1", r.Header.Get("ci"))
		assert.Equal(t, "cs-1", r.Header.Get("cs"))
		var req suitpayQrcodeReq
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, 100.5, req.Amount)
		assert.Equal(t, "12345678909", req.Client.Document)
		assert.NotEmpty(t, req.RequestNumber)
		_ = json.NewEncoder(w).Encode(map[string]string{"idTransaction": "sp-1", "paymentCode": "000201pix"})
	})
	mux.HandleFunc("/gateway/consult-status-transaction", func(w http.ResponseWriter, r *http.Request) {
		var req suitpayConsultReq
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "PIX", req.TypeTransaction)
		_ = json.NewEncoder(w).Encode(status)
	})
	mux.HandleFunc("/gateway/pix-payment", func(w http.ResponseWriter, r *http.Request) {
		var req suitpayPixPaymentReq
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		resp := "OK"
		if req.Key == "bad-key" {
			resp = "PIX_KEY_NOT_FOUND"
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"response": resp, "idTransaction": "po-1"})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newTestSuitpay(url string) *Suitpay {
	return NewSuitpay(config.SuitpayConfig{BaseURL: url, ClientID: "ci-1", ClientSecret: "cs-1"},
		http.DefaultClient, logger.Nop())
}

func TestSuitpay_ChargeAndStatus(t *testing.T) {
	srv := newSuitpayServer(t, "UNPAID")
	sp := newTestSuitpay(srv.URL)
	ctx := context.Background()

	ch, err := sp.RequestCharge(ctx, ChargeRequest{
		Amount: decimal.RequireFromString("100.50"),
		Payer:  Payer{Name: "Ana", Document: "123.456.789-09", Phone: "(11) 99999-0000"},
	})
	require.NoError(t, err)
	assert.Equal(t, "sp-1", ch.ExternalID)
	assert.Equal(t, "000201pix", ch.Payload)

	st, err := sp.QueryStatus(ctx, "sp-1")
	require.NoError(t, err)
	assert.Equal(t, "UNPAID", st.Code)
	assert.Equal(t, StatusPending, st.Status)
}

func TestSuitpay_StatusVocabulary(t *testing.T) {
	assert.Equal(t, StatusSettled, suitpayStatus("PAID_OUT"))
	assert.Equal(t, StatusSettled, suitpayStatus("PAYMENT_ACCEPT"))
	assert.Equal(t, StatusRejected, suitpayStatus("CHARGEBACK"))
	assert.Equal(t, StatusPending, suitpayStatus("WAITING_FOR_APPROVAL"))
}

func TestSuitpay_Payout(t *testing.T) {
	srv := newSuitpayServer(t, "PAID_OUT")
	sp := newTestSuitpay(srv.URL)

	ok, err := sp.RequestPayout(context.Background(), PayoutRequest{Key: "a@b.com", KeyType: "email", Amount: decimal.NewFromInt(30)})
	require.NoError(t, err)
	assert.Equal(t, StatusSettled, ok.Outcome)
	assert.Equal(t, "po-1", ok.Proof)

	bad, err := sp.RequestPayout(context.Background(), PayoutRequest{Key: "bad-key", KeyType: "email", Amount: decimal.NewFromInt(30)})
	require.NoError(t, err)
	assert.Equal(t, StatusRejected, bad.Outcome)
}

func TestSuitpay_Non2xxIsGatewayUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := newTestSuitpay(srv.URL).QueryStatus(context.Background(), "sp-1")
	assert.ErrorIs(t, err, apperr.ErrGatewayUnavailable)
}

func TestSuitpay_MissingCredentials(t *testing.T) {
	sp := NewSuitpay(config.SuitpayConfig{BaseURL: "http://127.0.0.1:1"}, http.DefaultClient, logger.Nop())
	_, err := sp.RequestCharge(context.Background(), ChargeRequest{Amount: decimal.NewFromInt(1)})
	assert.ErrorIs(t, err, apperr.ErrAuthenticationFailed)
}

func TestSuitpay_CallbackID(t *testing.T) {
	sp := newTestSuitpay("http://unused")
	id, err := sp.CallbackID([]byte(`{"idTransaction":"sp-9","statusTransaction":"PAID_OUT"}`))
	require.NoError(t, err)
	assert.Equal(t, "sp-9", id)

	_, err = sp.CallbackID([]byte(`{}`))
	assert.ErrorIs(t, err, apperr.ErrValidationFailed)
}
