package gemini

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func modelResponse(text string) string {
	body := map[string]any{
		"candidates": []map[string]any{
			{"content": map[string]any{
				"parts": []map[string]any{{"text": text}},
			}},
		},
	}
	data, _ := json.Marshal(body)
	return string(data)
}

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client := NewClient(&Config{
		APIKey:     "test-key",
		BaseURL:    server.URL,
		MaxRetries: 3,
		RetryDelay: time.Millisecond,
		Timeout:    5 * time.Second,
	})
	return client, server
}

func TestExtractFromText(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		fmt.Fprint(w, modelResponse(`{"description":"拉麵","amount":1200,"currency":"JPY","category":"餐飲","paymentMethod":"外幣現金","date":"2025-04-02","country":"日本"}`))
	})

	result, err := client.ExtractFromText(context.Background(), "一蘭拉麵 1200日圓 現金")
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, "拉麵", result.Description)
	assert.Equal(t, 1200.0, result.Amount)
	assert.Equal(t, "JPY", result.Currency)
	assert.Equal(t, "餐飲", result.Category)
	assert.False(t, result.IsUncertain)
}

func TestExtractFromTextNoAmount(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, modelResponse(`{"description":"","currency":"","category":"其他"}`))
	})

	result, err := client.ExtractFromText(context.Background(), "今天天氣真好")
	require.NoError(t, err)
	assert.Nil(t, result)
}

func TestExtractFromTextStripsCodeFences(t *testing.T) {
	fenced := "```json\n{\"description\":\"咖啡\",\"amount\":150,\"currency\":\"twd\"}\n```"
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, modelResponse(fenced))
	})

	result, err := client.ExtractFromText(context.Background(), "咖啡 150元")
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, 150.0, result.Amount)
	assert.Equal(t, "TWD", result.Currency)
}

func TestRetryOnRateLimit(t *testing.T) {
	var calls atomic.Int32
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		fmt.Fprint(w, modelResponse(`{"description":"x","amount":1,"currency":"TWD"}`))
	})

	result, err := client.ExtractFromText(context.Background(), "x 1元")
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, int32(3), calls.Load())
}

func TestRetryExhaustion(t *testing.T) {
	var calls atomic.Int32
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	_, err := client.ExtractFromText(context.Background(), "x")
	require.Error(t, err)
	var geminiErr *GeminiError
	require.ErrorAs(t, err, &geminiErr)
	assert.Equal(t, "exhaust_retries", geminiErr.Op)
	assert.Equal(t, int32(3), calls.Load())
}

func TestNoRetryOnBadRequest(t *testing.T) {
	var calls atomic.Int32
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
	})

	_, err := client.ExtractFromText(context.Background(), "x")
	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())
}

func TestMissingAPIKey(t *testing.T) {
	client := NewClient(&Config{})
	_, err := client.ExtractFromText(context.Background(), "x")
	require.Error(t, err)
	var geminiErr *GeminiError
	require.ErrorAs(t, err, &geminiErr)
	assert.Equal(t, "validate_configuration", geminiErr.Op)
}

func TestFetchTaxRule(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, modelResponse(`{"country":"日本","currency":"jpy","minSpend":5000,"refundRate":0.1,"description":"滿5000日圓可退稅10%"}`))
	})

	rule, err := client.FetchTaxRule(context.Background(), "日本")
	require.NoError(t, err)
	require.NotNil(t, rule)
	assert.Equal(t, "日本", rule.Country)
	assert.Equal(t, "JPY", rule.Currency)
	assert.Equal(t, 5000.0, rule.MinSpend)
	assert.Equal(t, 0.1, rule.RefundRate)
}

func TestFetchTaxRuleNoScheme(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, modelResponse(`{"country":"美國","currency":"USD","minSpend":0,"refundRate":0,"description":"無退稅制度"}`))
	})

	rule, err := client.FetchTaxRule(context.Background(), "美國")
	require.NoError(t, err)
	require.NotNil(t, rule)
	assert.Zero(t, rule.MinSpend)
	assert.Zero(t, rule.RefundRate)
}

func TestFetchTaxRuleUnusable(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, modelResponse(`{"country":"某國"}`))
	})

	rule, err := client.FetchTaxRule(context.Background(), "某國")
	require.NoError(t, err)
	assert.Nil(t, rule)
}
