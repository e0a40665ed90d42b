package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/julienschmidt/httprouter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vfg2006/pos-sync-engine/infrastructure/changefeed/memfeed"
	"github.com/vfg2006/pos-sync-engine/infrastructure/repository/mocks"
	"github.com/vfg2006/pos-sync-engine/internal/diagnostics"
	"github.com/vfg2006/pos-sync-engine/internal/domain"
	"github.com/vfg2006/pos-sync-engine/internal/engine"
	"github.com/vfg2006/pos-sync-engine/pkg/middleware"
	"go.uber.org/mock/gomock"
)

func added(id, document string) domain.Delta {
	return domain.Delta{Kind: domain.DeltaAdded, ID: id, Document: []byte(document)}
}

func startEngine(t *testing.T, hub *memfeed.Hub, recorder *diagnostics.Recorder) *engine.Engine {
	t.Helper()
	now := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)
	deps := engine.Deps{
		Subscriber: hub,
		Clock:      func() time.Time { return now },
	}
	if recorder != nil {
		deps.Sink = recorder
	}
	e := engine.New(deps)
	require.NoError(t, e.Start(context.Background()))
	t.Cleanup(e.Close)

	require.Eventually(t, func() bool {
		s := e.Store()
		return s.Tables.Ready() && s.Products.Ready() && s.Orders.Ready()
	}, time.Second, 5*time.Millisecond)
	return e
}

func request(method, target string, params httprouter.Params, claims *domain.Claims) *http.Request {
	req := httptest.NewRequest(method, target, nil)
	ctx := context.WithValue(req.Context(), httprouter.ParamsKey, params)
	if claims != nil {
		ctx = context.WithValue(ctx, middleware.ContextKeyUser, claims)
	}
	return req.WithContext(ctx)
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	out := map[string]any{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestGetSnapshot(t *testing.T) {
	hub := memfeed.NewHub()
	hub.Publish(domain.CollectionTables,
		added("T2", `{"number":2,"status":"occupied"}`),
		added("T1", `{"number":1,"status":"available"}`),
	)
	e := startEngine(t, hub, nil)

	tests := []struct {
		name           string
		collection     string
		query          string
		expectedStatus int
		check          func(t *testing.T, body map[string]any)
	}{
		{
			name:           "mesas prontas em ordem de id",
			collection:     "tables",
			expectedStatus: http.StatusOK,
			check: func(t *testing.T, body map[string]any) {
				assert.Equal(t, "ready", body["status"])
				assert.Equal(t, float64(2), body["len"])
				elements := body["elements"].([]any)
				require.Len(t, elements, 2)
				assert.Equal(t, "T1", elements[0].(map[string]any)["id"])
			},
		},
		{
			name:           "pedidos prontos porém vazios",
			collection:     "orders",
			expectedStatus: http.StatusOK,
			check: func(t *testing.T, body map[string]any) {
				assert.Equal(t, "empty", body["status"])
				assert.Equal(t, true, body["ready"])
			},
		},
		{
			name:           "sem elementos",
			collection:     "tables",
			query:          "?elements=false",
			expectedStatus: http.StatusOK,
			check: func(t *testing.T, body map[string]any) {
				assert.NotContains(t, body, "elements")
			},
		},
		{
			name:           "coleção desconhecida",
			collection:     "customers",
			expectedStatus: http.StatusNotFound,
			check: func(t *testing.T, body map[string]any) {
				assert.Equal(t, "COL_001", body["code"])
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			req := request(http.MethodGet, "/v1/snapshots/"+tt.collection+tt.query,
				httprouter.Params{{Key: "collection", Value: tt.collection}}, nil)

			GetSnapshot(e).ServeHTTP(rec, req)

			assert.Equal(t, tt.expectedStatus, rec.Code)
			tt.check(t, decode(t, rec))
		})
	}
}

func TestGetAggregate(t *testing.T) {
	hub := memfeed.NewHub()
	hub.Publish(domain.CollectionProducts,
		added("P1", `{"name":"Taco","price":"10","category":"comida"}`),
	)
	hub.Publish(domain.CollectionOrders,
		added("O1", `{"tableId":"T1","status":"completed","createdAt":"2024-03-10T10:00:00Z","items":[{"productId":"P1","quantity":2}]}`),
		added("O2", `{"tableId":"T1","status":"completed","createdAt":"2024-03-08T10:00:00Z","items":[{"productId":"P1","quantity":1}]}`),
	)
	e := startEngine(t, hub, nil)

	tests := []struct {
		name           string
		kind           string
		query          string
		expectedStatus int
		check          func(t *testing.T, body map[string]any)
	}{
		{
			name:           "receita total",
			kind:           "revenue-total",
			expectedStatus: http.StatusOK,
			check: func(t *testing.T, body map[string]any) {
				assert.Equal(t, "30", body["data"])
			},
		},
		{
			name:           "receita por dia com janela",
			kind:           "revenue-by-day",
			query:          "?days=3",
			expectedStatus: http.StatusOK,
			check: func(t *testing.T, body map[string]any) {
				days := body["data"].([]any)
				require.Len(t, days, 3)
				assert.Equal(t, "2024-03-08", days[0].(map[string]any)["date"])
				assert.Equal(t, "10", days[0].(map[string]any)["revenue"])
				assert.Equal(t, "0", days[1].(map[string]any)["revenue"])
			},
		},
		{
			name:           "receita no intervalo",
			kind:           "revenue-in-range",
			query:          "?from=2024-03-10&to=2024-03-10",
			expectedStatus: http.StatusOK,
			check: func(t *testing.T, body map[string]any) {
				assert.Equal(t, "20", body["data"])
			},
		},
		{
			name:           "intervalo sem datas",
			kind:           "revenue-in-range",
			expectedStatus: http.StatusBadRequest,
			check: func(t *testing.T, body map[string]any) {
				assert.Equal(t, "VAL_002", body["code"])
			},
		},
		{
			name:           "intervalo invertido",
			kind:           "revenue-in-range",
			query:          "?from=2024-03-10&to=2024-03-01",
			expectedStatus: http.StatusBadRequest,
			check: func(t *testing.T, body map[string]any) {
				assert.Equal(t, "VAL_001", body["code"])
			},
		},
		{
			name:           "janela inválida",
			kind:           "revenue-by-day",
			query:          "?days=abc",
			expectedStatus: http.StatusBadRequest,
			check: func(t *testing.T, body map[string]any) {
				assert.Equal(t, "VAL_003", body["code"])
			},
		},
		{
			name:           "janela acima do teto",
			kind:           "revenue-by-day",
			query:          "?days=20000000",
			expectedStatus: http.StatusBadRequest,
			check: func(t *testing.T, body map[string]any) {
				assert.Equal(t, "VAL_001", body["code"])
			},
		},
		{
			name:           "agregado desconhecido",
			kind:           "revenue-by-waiter",
			expectedStatus: http.StatusNotFound,
			check: func(t *testing.T, body map[string]any) {
				assert.Equal(t, "AGG_002", body["code"])
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			req := request(http.MethodGet, "/v1/aggregates/"+tt.kind+tt.query,
				httprouter.Params{{Key: "kind", Value: tt.kind}}, nil)

			GetAggregate(e.Aggregator(), e).ServeHTTP(rec, req)

			assert.Equal(t, tt.expectedStatus, rec.Code)
			tt.check(t, decode(t, rec))
		})
	}
}

func TestGetAggregate_ColecaoNaoCarregada(t *testing.T) {
	hub := memfeed.NewHub()
	hub.Publish(domain.CollectionProducts, added("P1", `{"name":"Taco","price":"10"}`))

	// Pedidos sem assinatura: nunca recebem lote nem cópia do cache
	e := engine.New(engine.Deps{
		Subscriber:  hub,
		Collections: []domain.Collection{domain.CollectionTables, domain.CollectionProducts},
	})
	require.NoError(t, e.Start(context.Background()))
	t.Cleanup(e.Close)
	require.Eventually(t, e.Store().Products.Ready, time.Second, 5*time.Millisecond)

	tests := []struct {
		name           string
		kind           string
		expectedStatus int
		code           string
	}{
		{name: "receita depende de pedidos", kind: "revenue-total", expectedStatus: http.StatusConflict, code: "COL_002"},
		{name: "histograma depende de pedidos", kind: "status-histogram", expectedStatus: http.StatusConflict, code: "COL_002"},
		{name: "tipo desconhecido continua 404", kind: "revenue-by-waiter", expectedStatus: http.StatusNotFound, code: "AGG_002"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			req := request(http.MethodGet, "/v1/aggregates/"+tt.kind,
				httprouter.Params{{Key: "kind", Value: tt.kind}}, nil)

			GetAggregate(e.Aggregator(), e).ServeHTTP(rec, req)

			assert.Equal(t, tt.expectedStatus, rec.Code)
			body := decode(t, rec)
			assert.Equal(t, tt.code, body["code"])
			if tt.code == "COL_002" {
				assert.Equal(t, "orders", body["details"].(map[string]any)["collection"])
			}
		})
	}
}

func TestGetAggregate_StatusDesconhecido(t *testing.T) {
	hub := memfeed.NewHub()
	hub.Publish(domain.CollectionOrders,
		added("O9", `{"tableId":"T1","status":"refunded","createdAt":"2024-03-10T10:00:00Z","items":[]}`),
	)
	e := startEngine(t, hub, nil)

	for _, kind := range []string{"revenue-total", "status-histogram", "revenue-by-category"} {
		t.Run(kind, func(t *testing.T) {
			rec := httptest.NewRecorder()
			req := request(http.MethodGet, "/v1/aggregates/"+kind, httprouter.Params{{Key: "kind", Value: kind}}, nil)

			GetAggregate(e.Aggregator(), e).ServeHTTP(rec, req)

			assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
			body := decode(t, rec)
			assert.Equal(t, "AGG_001", body["code"])
			assert.Equal(t, "O9", body["details"].(map[string]any)["order_id"])
		})
	}
}

func TestGetDebug(t *testing.T) {
	hub := memfeed.NewHub()
	recorder := diagnostics.NewRecorder(10)
	e := startEngine(t, hub, recorder)

	rec := httptest.NewRecorder()
	GetDebug(DebugSources{
		Snapshots: e,
		Interest:  e.Broker(),
		Recorder:  recorder,
		Cache:     e.Persister(),
	}).ServeHTTP(rec, request(http.MethodGet, "/v1/debug", nil, nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)

	collections := body["collections"].([]any)
	require.Len(t, collections, 3)
	for _, c := range collections {
		entry := c.(map[string]any)
		assert.Equal(t, "empty", entry["status"])
		assert.Equal(t, float64(1), entry["interest"])
	}
	assert.Equal(t, false, body["cache_enabled"])
	assert.Len(t, body["events"].([]any), 3)
}

type fakeCron struct {
	triggered int
}

func (f *fakeCron) TriggerManualSync()        { f.triggered++ }
func (f *fakeCron) GetStatus() map[string]any { return map[string]any{"enabled": true} }

func TestRunCronJob(t *testing.T) {
	admin := &domain.Claims{Email: "gerente@pos.test", Role: domain.RoleAdmin}
	waiter := &domain.Claims{Email: "garcom@pos.test", Role: domain.RoleWaiter}

	tests := []struct {
		name              string
		cronType          string
		claims            *domain.Claims
		expectedStatus    int
		expectedTriggered int
	}{
		{name: "admin dispara o fechamento", cronType: "daily-revenue-report", claims: admin, expectedStatus: http.StatusAccepted, expectedTriggered: 1},
		{name: "all dispara o fechamento", cronType: "all", claims: admin, expectedStatus: http.StatusAccepted, expectedTriggered: 1},
		{name: "garçom não dispara", cronType: "all", claims: waiter, expectedStatus: http.StatusForbidden},
		{name: "tipo inválido", cronType: "meta", claims: admin, expectedStatus: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			job := &fakeCron{}
			rec := httptest.NewRecorder()
			req := request(http.MethodPost, "/v1/cron/"+tt.cronType+"/run",
				httprouter.Params{{Key: "type", Value: tt.cronType}}, tt.claims)

			RunCronJob(CronJobServices{DailyRevenueReport: job}).ServeHTTP(rec, req)

			assert.Equal(t, tt.expectedStatus, rec.Code)
			assert.Equal(t, tt.expectedTriggered, job.triggered)
		})
	}

	rec := httptest.NewRecorder()
	GetCronStatus(CronJobServices{DailyRevenueReport: &fakeCron{}}).
		ServeHTTP(rec, request(http.MethodGet, "/v1/cron/status", nil, admin))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, decode(t, rec), "daily-revenue-report")
}

func TestListDailyReports(t *testing.T) {
	ctrl := gomock.NewController(t)
	repo := mocks.NewMockDailyReportRepository(ctrl)

	from := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2024, 3, 9, 0, 0, 0, 0, time.UTC)
	repo.EXPECT().
		List(gomock.Any(), from, to).
		Return([]*domain.DailyRevenueReport{{ID: 1, Date: to, CompletedOrders: 4}}, nil)

	rec := httptest.NewRecorder()
	ListDailyReports(repo, time.UTC).ServeHTTP(rec,
		request(http.MethodGet, "/v1/reports/daily?from=2024-03-01&to=2024-03-09", nil, nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var reports []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &reports))
	require.Len(t, reports, 1)
	assert.Equal(t, float64(4), reports[0]["completed_orders"])

	rec = httptest.NewRecorder()
	ListDailyReports(repo, time.UTC).ServeHTTP(rec,
		request(http.MethodGet, "/v1/reports/daily?from=2024-03-09&to=2024-03-01", nil, nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
