package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/ibdash/internal/account"
	"github.com/wonny/ibdash/internal/api/handlers"
	"github.com/wonny/ibdash/internal/execution"
	"github.com/wonny/ibdash/internal/gateway"
	"github.com/wonny/ibdash/internal/gateway/gatewaytest"
	"github.com/wonny/ibdash/internal/hwm"
	"github.com/wonny/ibdash/internal/order"
	"github.com/wonny/ibdash/internal/riskctx"
	"github.com/wonny/ibdash/pkg/logger"
)

type testEnv struct {
	srv    *gatewaytest.Server
	router http.Handler
	paper  *execution.PaperChannel
}

func newTestEnv(t *testing.T, dryRun bool) *testEnv {
	t.Helper()
	srv := gatewaytest.New()
	t.Cleanup(srv.Close)

	log := logger.Nop()
	client := srv.Client()
	builder := order.NewBuilder(nil)

	env := &testEnv{srv: srv}
	var channel execution.Channel
	var book execution.OrderBook
	if dryRun {
		env.paper = execution.NewPaperChannel()
		channel, book = env.paper, env.paper
	} else {
		channel = execution.NewGatewayChannel(client, log)
		book = execution.NewSessionAdapter(client)
	}

	placer := execution.NewPlacer(builder, channel, nil, log,
		execution.WithAckTimeout(time.Second), execution.WithPollInterval(10*time.Millisecond), execution.WithDryRun(dryRun))
	provider := account.NewProvider(client, hwm.NewMemoryStore(0), nil, false, log)
	graph := riskctx.StaticGraph{
		Concepts: []riskctx.Concept{{Name: "hedge-only", Description: "EURUSD below weekly support"}},
		Edges:    []riskctx.Edge{{From: "W1", To: "EURUSD D1"}},
	}

	env.router = NewRouter(Handlers{
		Orders:  handlers.NewOrderHandler(builder, placer, channel, book, log),
		Account: handlers.NewAccountHandler(client, provider, riskctx.NewService(provider, graph, 3, log), log),
		Market:  handlers.NewMarketHandler(client, log),
	}, log)
	return env
}

func (e *testEnv) do(t *testing.T, method, path string, body interface{}) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)

	var out map[string]interface{}
	_ = json.Unmarshal(rec.Body.Bytes(), &out)
	return rec, out
}

func bracketBody() map[string]interface{} {
	return map[string]interface{}{
		"symbol":      "EURUSD",
		"direction":   "BUY",
		"size":        1,
		"order_type":  "LMT",
		"limit_price": 1.2,
		"tif":         "DAY",
		"bracket":     map[string]interface{}{"take_profit": 1.21, "stop_loss": 1.195},
	}
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t, false)
	rec, body := env.do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", body["status"])
}

func TestPlaceOrder_Bracket(t *testing.T) {
	env := newTestEnv(t, false)

	rec, body := env.do(t, http.MethodPost, "/api/orders", bracketBody())
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, "EURUSD", body["symbol"])
	assert.Equal(t, true, body["acknowledged"])
	assert.Len(t, body["legs"], 3)

	env.srv.Lock()
	require.Len(t, env.srv.Requests, 1)
	assert.Len(t, env.srv.Requests[0], 3)
	env.srv.Unlock()

	rec, body = env.do(t, http.MethodGet, "/api/orders", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 3, body["count"])
}

func TestPlaceOrder_ValidationIs400(t *testing.T) {
	tests := []struct {
		name  string
		patch map[string]interface{}
		code  string
		field string
	}{
		{"bad direction", map[string]interface{}{"direction": "HOLD"}, "InvalidDirection", "direction"},
		{"zero size", map[string]interface{}{"size": 0}, "InvalidSize", "size"},
		{"missing limit", map[string]interface{}{"limit_price": nil}, "MissingLimitPrice", "limit_price"},
		{"bad tif", map[string]interface{}{"tif": "FOK"}, "InvalidTimeInForce", "tif"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t, false)
			reqBody := bracketBody()
			for k, v := range tt.patch {
				reqBody[k] = v
			}

			rec, body := env.do(t, http.MethodPost, "/api/orders", reqBody)
			require.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, tt.code, body["code"])
			assert.Equal(t, tt.field, body["field"])
			assert.NotEmpty(t, body["error"])

			env.srv.Lock()
			assert.Empty(t, env.srv.Requests)
			env.srv.Unlock()
		})
	}
}

func TestPlaceOrder_BadRequests(t *testing.T) {
	env := newTestEnv(t, false)

	rec, _ := env.do(t, http.MethodPost, "/api/orders", map[string]interface{}{"direction": "BUY"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	req := httptest.NewRequest(http.MethodPost, "/api/orders", bytes.NewBufferString("{not json"))
	out := httptest.NewRecorder()
	env.router.ServeHTTP(out, req)
	assert.Equal(t, http.StatusBadRequest, out.Code)
}

func TestPlaceOrder_GatewayDownIs502(t *testing.T) {
	env := newTestEnv(t, false)
	env.srv.Lock()
	env.srv.FailStatus = http.StatusServiceUnavailable
	env.srv.Unlock()

	rec, body := env.do(t, http.MethodPost, "/api/orders", bracketBody())
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.NotEmpty(t, body["error"])
}

func TestPreview(t *testing.T) {
	env := newTestEnv(t, false)

	rec, body := env.do(t, http.MethodPost, "/api/orders/preview", bracketBody())
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	orders := body["orders"].([]interface{})
	require.Len(t, orders, 3)
	assert.Equal(t, false, orders[0].(map[string]interface{})["transmit"])
	assert.Equal(t, true, orders[2].(map[string]interface{})["transmit"])

	wire := body["wire"].([]interface{})
	assert.Equal(t, "STP", wire[2].(map[string]interface{})["orderType"])

	env.srv.Lock()
	assert.Empty(t, env.srv.Requests)
	env.srv.Unlock()
}

func TestModifyAndCancel(t *testing.T) {
	env := newTestEnv(t, false)

	body := bracketBody()
	delete(body, "bracket")
	rec, _ := env.do(t, http.MethodPost, "/api/orders", body)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec, out := env.do(t, http.MethodPatch, "/api/orders/1001", map[string]interface{}{"limit_price": 1.25})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, true, out["modified"])

	env.srv.Lock()
	assert.Equal(t, 1.25, *env.srv.Modified["1001"].Price)
	env.srv.Unlock()

	rec, out = env.do(t, http.MethodPatch, "/api/orders/1001", map[string]interface{}{})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, false, out["modified"])

	rec, out = env.do(t, http.MethodPatch, "/api/orders/1001", map[string]interface{}{"size": -1})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "InvalidSize", out["code"])

	rec, out = env.do(t, http.MethodPatch, "/api/orders/9999", map[string]interface{}{"limit_price": 1.3})
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "OrderNotFound", out["code"])

	rec, _ = env.do(t, http.MethodDelete, "/api/orders/1001", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	live, ok := env.srv.OrderByRef(env.firstRef(t))
	require.True(t, ok)
	assert.Equal(t, "Cancelled", live.Status)
}

func (e *testEnv) firstRef(t *testing.T) string {
	e.srv.Lock()
	defer e.srv.Unlock()
	require.NotEmpty(t, e.srv.Requests)
	return e.srv.Requests[0][0].COID
}

func TestDryRunUsesPaperChannel(t *testing.T) {
	env := newTestEnv(t, true)

	rec, body := env.do(t, http.MethodPost, "/api/orders", bracketBody())
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, true, body["dry_run"])

	env.srv.Lock()
	assert.Empty(t, env.srv.Requests)
	env.srv.Unlock()

	rec, body = env.do(t, http.MethodGet, "/api/orders", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 3, body["count"])

	rec, _ = env.do(t, http.MethodPatch, "/api/orders/PAPER-1", map[string]interface{}{"limit_price": 1.19})
	assert.Equal(t, http.StatusOK, rec.Code)

	rec, _ = env.do(t, http.MethodDelete, "/api/orders/PAPER-77", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAccountEndpoints(t *testing.T) {
	env := newTestEnv(t, false)
	env.srv.Lock()
	env.srv.Positions = []gateway.Position{{ContractDesc: "EUR.USD", AssetClass: "CASH", Position: 150000}}
	env.srv.Unlock()

	rec, body := env.do(t, http.MethodGet, "/api/dashboard", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, gatewaytest.Account, body["account"].(map[string]interface{})["id"])
	assert.NotNil(t, body["snapshot"])

	rec, body = env.do(t, http.MethodGet, "/api/portfolio", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 1, body["count"])

	_, body = env.do(t, http.MethodGet, "/api/account/exposure", nil)
	assert.Equal(t, map[string]interface{}{"EURUSD": 1.5}, body["exposure"])

	_, body = env.do(t, http.MethodGet, "/api/account/drawdown", nil)
	assert.EqualValues(t, 0, body["drawdown"])

	rec, body = env.do(t, http.MethodGet, "/api/context/eurusd", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "EURUSD", body["pair"])
	assert.Equal(t, true, body["hedge_only"])
	assert.EqualValues(t, 1.5, body["exposure"])
	assert.Equal(t, []interface{}{"EURUSD D1"}, body["topdown_refs"])
	assert.Equal(t, riskctx.TipHedgeOnly, body["assistant_tip"])
}

func TestAccountEndpoints_FallbackWhenGatewayDown(t *testing.T) {
	env := newTestEnv(t, false)
	env.srv.Lock()
	env.srv.FailStatus = http.StatusServiceUnavailable
	env.srv.Unlock()

	rec, body := env.do(t, http.MethodGet, "/api/account/exposure", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, map[string]interface{}{}, body["exposure"])

	rec, _ = env.do(t, http.MethodGet, "/api/dashboard", nil)
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestMarketEndpoints(t *testing.T) {
	env := newTestEnv(t, false)

	rec, body := env.do(t, http.MethodGet, "/api/lookup?symbol=AAPL", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, body["contracts"], 1)

	rec, body = env.do(t, http.MethodGet, "/api/lookup", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, body["contracts"])

	rec, _ = env.do(t, http.MethodGet, "/api/contracts/abc/5d", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, body = env.do(t, http.MethodPost, "/api/watchlists", map[string]interface{}{
		"name": "Tech", "symbols": []string{"AAPL, ", ""},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	id := body["id"].(string)

	rec, _ = env.do(t, http.MethodGet, "/api/watchlists/"+id, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec, body = env.do(t, http.MethodGet, "/api/watchlists", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, body["watchlists"], 1)

	rec, _ = env.do(t, http.MethodDelete, "/api/watchlists/"+id, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec, _ = env.do(t, http.MethodGet, "/api/watchlists/"+id, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec, _ = env.do(t, http.MethodPost, "/api/watchlists", map[string]interface{}{"symbols": []string{"AAPL"}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, body = env.do(t, http.MethodPost, "/api/scanner/run", map[string]interface{}{
		"instrument": "STK", "location": "STK.US.MAJOR", "type": "TOP_PERC_GAIN",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, body["contracts"], 1)

	rec, _ = env.do(t, http.MethodPost, "/api/scanner/run", map[string]interface{}{"location": "x"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, body = env.do(t, http.MethodGet, "/api/scanner/params", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotNil(t, body["catalog"])
}

func TestRecoveryMiddleware(t *testing.T) {
	h := recoveryMiddleware(logger.Nop())(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
