package server_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/relaypay/internal/server"
	"github.com/smallbiznis/relaypay/internal/testkit"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type envelope struct {
	Data     json.RawMessage `json:"data"`
	PageInfo struct {
		NextPageToken string `json:"next_page_token"`
		HasMore       bool   `json:"has_more"`
	} `json:"page_info"`
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

type harness struct {
	t      *testing.T
	world  *testkit.World
	engine *gin.Engine
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	gin.SetMode(gin.TestMode)

	w := testkit.New(t)
	srv := server.NewServer(server.ServerParams{
		Gin:             server.NewEngine(server.EngineConfig{Debug: true}),
		TokenSvc:        w.Tokens,
		ChainSvc:        w.Chains,
		BridgeSvc:       w.Bridge,
		ProductSvc:      w.Products,
		PlanSvc:         w.Plans,
		CatalogSvc:      w.Catalog,
		SubscriptionSvc: w.Subscriptions,
		Charges:         w.Charges,
		EventsSvc:       w.Events,
	})
	return &harness{t: t, world: w, engine: srv.Engine()}
}

func (h *harness) do(method, path string, caller *common.Address, body any) (int, envelope) {
	h.t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(h.t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if caller != nil {
		req.Header.Set(server.HeaderCaller, caller.Hex())
	}
	rec := httptest.NewRecorder()
	h.engine.ServeHTTP(rec, req)

	var env envelope
	if rec.Body.Len() > 0 {
		require.NoError(h.t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	}
	return rec.Code, env
}

func addr(a common.Address) *common.Address { return &a }

func TestHealth(t *testing.T) {
	h := newHarness(t)
	code, _ := h.do(http.MethodGet, "/health", nil, nil)
	assert.Equal(t, http.StatusOK, code)
}

func TestSubscribeAndChargeOverHTTP(t *testing.T) {
	h := newHarness(t)
	w := h.world

	code, env := h.do(http.MethodPost, "/v1/catalog/recurring", addr(testkit.Provider), map[string]any{
		"name":              "Spotify Premium",
		"description":       "Ad-free music",
		"logo_url":          "https://example.com/logo.png",
		"token":             testkit.USDC.Hex(),
		"receiving_address": testkit.Provider.Hex(),
		"destination_chain": w.LocalChainID(),
		"charge_interval":   testkit.MonthlyInterval,
		"price":             "100000",
	})
	require.Equal(t, http.StatusCreated, code, env.Error.Message)

	var created struct {
		Product struct {
			ID int64 `json:"product_id"`
		} `json:"product"`
		Plans []struct {
			ID int64 `json:"plan_id"`
		} `json:"plans"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &created))
	require.Len(t, created.Plans, 1)
	assert.Equal(t, int64(1), created.Product.ID)

	w.Fund(t, testkit.USDC, testkit.Alice, 1_000_000)
	w.ApproveEngine(t, testkit.USDC, testkit.Alice, 1_000_000)

	code, env = h.do(http.MethodPost, "/v1/subscriptions", addr(testkit.Alice), map[string]any{
		"plan_id": created.Plans[0].ID,
	})
	require.Equal(t, http.StatusCreated, code, env.Error.Message)

	var sub struct {
		ID       int64 `json:"subscription_id"`
		IsActive bool  `json:"is_active"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &sub))
	assert.Equal(t, int64(0), sub.ID)
	assert.True(t, sub.IsActive)

	chargePath := "/v1/subscribers/" + testkit.Alice.Hex() + "/subscriptions/0/charge"
	code, env = h.do(http.MethodPost, chargePath, addr(testkit.Bob), nil)
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, "time Interval not met", env.Error.Message)

	w.Clock.Advance(time.Duration(testkit.MonthlyInterval) * time.Second)
	code, env = h.do(http.MethodPost, chargePath, addr(testkit.Bob), nil)
	require.Equal(t, http.StatusOK, code, env.Error.Message)

	code, env = h.do(http.MethodGet, "/v1/tokens/"+testkit.USDC.Hex()+"/balances/"+testkit.Provider.Hex(), nil, nil)
	require.Equal(t, http.StatusOK, code)
	var balance struct {
		Balance string `json:"balance"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &balance))
	assert.Equal(t, "200000", balance.Balance)

	code, env = h.do(http.MethodGet, "/v1/subscribers/"+testkit.Alice.Hex()+"/products/1", nil, nil)
	require.Equal(t, http.StatusOK, code)
	var link struct {
		Subscribed bool `json:"subscribed"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &link))
	assert.True(t, link.Subscribed)
}

func TestErrorMapping(t *testing.T) {
	h := newHarness(t)
	_, plan := h.world.CreateMonthly(t, h.world.LocalChainID())

	tests := []struct {
		name     string
		method   string
		path     string
		caller   *common.Address
		body     any
		wantCode int
		wantType string
		wantMsg  string
	}{
		{
			name:     "missing caller",
			method:   http.MethodPost,
			path:     "/v1/subscriptions",
			body:     map[string]any{"plan_id": plan.ID},
			wantCode: http.StatusUnauthorized,
			wantType: "unauthorized",
		},
		{
			name:     "not owner",
			method:   http.MethodPost,
			path:     "/v1/tokens",
			caller:   addr(testkit.Alice),
			body:     map[string]any{"token": testkit.Bob.Hex()},
			wantCode: http.StatusForbidden,
			wantType: "authorization",
			wantMsg:  "Only callable by owner",
		},
		{
			name:     "unknown product",
			method:   http.MethodGet,
			path:     "/v1/products/99",
			wantCode: http.StatusNotFound,
			wantType: "not_found",
			wantMsg:  "Product does not exist",
		},
		{
			name:     "no funds",
			method:   http.MethodPost,
			path:     "/v1/subscriptions",
			caller:   addr(testkit.Bob),
			body:     map[string]any{"plan_id": plan.ID},
			wantCode: http.StatusPaymentRequired,
			wantType: "payment",
		},
		{
			name:     "bad id",
			method:   http.MethodGet,
			path:     "/v1/plans/abc",
			wantCode: http.StatusBadRequest,
			wantType: "validation_error",
		},
		{
			name:     "unknown route",
			method:   http.MethodGet,
			path:     "/v1/nope",
			wantCode: http.StatusNotFound,
			wantType: "not_found",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, env := h.do(tt.method, tt.path, tt.caller, tt.body)
			assert.Equal(t, tt.wantCode, code)
			assert.Equal(t, tt.wantType, env.Error.Type)
			if tt.wantMsg != "" {
				assert.Equal(t, tt.wantMsg, env.Error.Message)
			}
		})
	}
}

func TestMalformedCallerHeader(t *testing.T) {
	h := newHarness(t)

	req := httptest.NewRequest(http.MethodGet, "/v1/tokens", nil)
	req.Header.Set(server.HeaderCaller, "not-an-address")
	rec := httptest.NewRecorder()
	h.engine.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListEventsPaginates(t *testing.T) {
	h := newHarness(t)
	h.world.CreateMonthly(t, h.world.LocalChainID())

	var names []string
	path := "/v1/events?page_size=2"
	for i := 0; i < 10; i++ {
		code, env := h.do(http.MethodGet, path, nil, nil)
		require.Equal(t, http.StatusOK, code)

		var page []struct {
			Name string `json:"name"`
		}
		require.NoError(t, json.Unmarshal(env.Data, &page))
		for _, r := range page {
			names = append(names, r.Name)
		}
		if !env.PageInfo.HasMore {
			break
		}
		path = "/v1/events?page_size=2&page_token=" + env.PageInfo.NextPageToken
	}

	assert.Equal(t, h.world.EventNames(t), names)

	code, env := h.do(http.MethodGet, "/v1/events?page_token=%25%25", nil, nil)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "validation_error", env.Error.Type)
}
