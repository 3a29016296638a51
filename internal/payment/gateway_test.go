package payment

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopstack/ecommerce-api/internal/apperr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateIntentCard(t *testing.T) {
	var gotPayload map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/v1/payment_intents", r.URL.Path)
		require.Equal(t, "Bearer sk_test", r.Header.Get("Authorization"))
		require.NotEmpty(t, r.Header.Get("Idempotency-Key"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotPayload))

		json.NewEncoder(w).Encode(Intent{ID: "pi_1", ClientSecret: "pi_1_secret", Status: "requires_confirmation"})
	}))
	defer srv.Close()

	gw := NewGateway(srv.URL, "sk_test")
	intent, err := gw.CreateIntent(context.Background(), IntentRequest{
		Amount:   199.50,
		Currency: "thb",
		Method:   MethodCard,
	})
	require.NoError(t, err)

	assert.Equal(t, "pi_1", intent.ID)
	assert.Equal(t, "pi_1_secret", intent.ClientSecret)
	// amount is sent in the smallest currency unit
	assert.Equal(t, float64(19950), gotPayload["amount"])
}

func TestCreateIntentPromptPayRequiresQR(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(Intent{ID: "pi_2", Status: "requires_action"})
	}))
	defer srv.Close()

	gw := NewGateway(srv.URL, "sk_test")
	_, err := gw.CreateIntent(context.Background(), IntentRequest{
		Amount: 100, Currency: "thb", Method: MethodPromptPay,
	})
	require.Error(t, err)
	assert.True(t, apperr.IsKind(err, apperr.KindInternal))
}

func TestCreateIntentValidation(t *testing.T) {
	gw := NewGateway("http://unused", "sk_test")

	_, err := gw.CreateIntent(context.Background(), IntentRequest{Amount: 100, Currency: "thb", Method: "cash"})
	assert.True(t, apperr.IsKind(err, apperr.KindInvalidInput))

	_, err = gw.CreateIntent(context.Background(), IntentRequest{Amount: 0, Currency: "thb", Method: MethodCard})
	assert.True(t, apperr.IsKind(err, apperr.KindInvalidInput))
}

func TestGetStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v1/payment_intents/pi_1":
			json.NewEncoder(w).Encode(map[string]string{"id": "pi_1", "status": "succeeded"})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	gw := NewGateway(srv.URL, "sk_test")

	status, err := gw.GetStatus(context.Background(), "pi_1")
	require.NoError(t, err)
	assert.Equal(t, "succeeded", status)

	_, err = gw.GetStatus(context.Background(), "pi_missing")
	assert.True(t, apperr.IsKind(err, apperr.KindNotFound))
}
