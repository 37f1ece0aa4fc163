package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/lib/pq"
	"github.com/hrit887/mern-challenge/internal/command"
	"github.com/hrit887/mern-challenge/internal/query"
	"github.com/hrit887/mern-challenge/internal/repository"
	"github.com/hrit887/mern-challenge/shared/cqrs"
	"github.com/hrit887/mern-challenge/shared/middleware"
	"github.com/hrit887/mern-challenge/shared/models"
)

// ---- mock implementations ----

type mockSeedCommander struct {
	seedFn func(cqrs.InitializeDatabaseCommand) (*command.SeedResult, error)
}

func (m *mockSeedCommander) InitializeDatabase(_ context.Context, cmd cqrs.InitializeDatabaseCommand) (*command.SeedResult, error) {
	if m.seedFn != nil {
		return m.seedFn(cmd)
	}
	return nil, fmt.Errorf("not configured")
}

type mockTransactionQuerier struct {
	listFn     func(cqrs.ListTransactionsQuery) (*models.TransactionPage, error)
	statsFn    func(cqrs.MonthQuery) (*models.Statistics, error)
	barsFn     func(cqrs.MonthQuery) ([]models.PriceRangeCount, error)
	pieFn      func(cqrs.MonthQuery) ([]models.CategoryCount, error)
	combinedFn func(cqrs.MonthQuery) (*models.CombinedView, error)
}

func (m *mockTransactionQuerier) ListTransactions(_ context.Context, q cqrs.ListTransactionsQuery) (*models.TransactionPage, error) {
	if m.listFn != nil {
		return m.listFn(q)
	}
	return nil, fmt.Errorf("not configured")
}

func (m *mockTransactionQuerier) GetStatistics(_ context.Context, q cqrs.MonthQuery) (*models.Statistics, error) {
	if m.statsFn != nil {
		return m.statsFn(q)
	}
	return nil, fmt.Errorf("not configured")
}

func (m *mockTransactionQuerier) GetPriceRanges(_ context.Context, q cqrs.MonthQuery) ([]models.PriceRangeCount, error) {
	if m.barsFn != nil {
		return m.barsFn(q)
	}
	return nil, fmt.Errorf("not configured")
}

func (m *mockTransactionQuerier) GetCategoryBreakdown(_ context.Context, q cqrs.MonthQuery) ([]models.CategoryCount, error) {
	if m.pieFn != nil {
		return m.pieFn(q)
	}
	return nil, fmt.Errorf("not configured")
}

func (m *mockTransactionQuerier) GetCombined(_ context.Context, q cqrs.MonthQuery) (*models.CombinedView, error) {
	if m.combinedFn != nil {
		return m.combinedFn(q)
	}
	return nil, fmt.Errorf("not configured")
}

// ---- helpers ----

func newTxTestRouter(cmds SeedCommander, qrys TransactionQuerier, seedGuards ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	RegisterRoutes(r, NewTransactionHandler(cmds, qrys), seedGuards...)
	return r
}

func txDoRequest(router *gin.Engine, url string) *httptest.ResponseRecorder {
	req, _ := http.NewRequest(http.MethodGet, url, nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(w.Body.Bytes(), v); err != nil {
		t.Fatalf("decode body %q: %v", w.Body.String(), err)
	}
}

var statementCanceled = &pq.Error{Code: "57014", Message: "canceling statement due to user request"}

// ---- tests ----

func TestInitializeDatabase(t *testing.T) {
	tests := []struct {
		name           string
		seedFn         func(cqrs.InitializeDatabaseCommand) (*command.SeedResult, error)
		expectedStatus int
	}{
		{
			name:           "success - dataset replaced",
			seedFn:         func(cqrs.InitializeDatabaseCommand) (*command.SeedResult, error) { return &command.SeedResult{Count: 60}, nil },
			expectedStatus: http.StatusOK,
		},
		{
			name: "server error - seed source unreachable",
			seedFn: func(cqrs.InitializeDatabaseCommand) (*command.SeedResult, error) {
				return nil, fmt.Errorf("%w: connection refused", command.ErrSeedSource)
			},
			expectedStatus: http.StatusInternalServerError,
		},
		{
			name: "server error - store failure",
			seedFn: func(cqrs.InitializeDatabaseCommand) (*command.SeedResult, error) {
				return nil, fmt.Errorf("%w: disk full", command.ErrSeedStore)
			},
			expectedStatus: http.StatusInternalServerError,
		},
		{
			name: "gateway timeout - store call expired",
			seedFn: func(cqrs.InitializeDatabaseCommand) (*command.SeedResult, error) {
				return nil, fmt.Errorf("%w: %w", command.ErrSeedStore, context.DeadlineExceeded)
			},
			expectedStatus: http.StatusGatewayTimeout,
		},
		{
			name: "gateway timeout - postgres cancelled the copy",
			seedFn: func(cqrs.InitializeDatabaseCommand) (*command.SeedResult, error) {
				return nil, fmt.Errorf("%w: failed to flush bulk insert: %w", command.ErrSeedStore, statementCanceled)
			},
			expectedStatus: http.StatusGatewayTimeout,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := newTxTestRouter(&mockSeedCommander{seedFn: tt.seedFn}, &mockTransactionQuerier{})
			w := txDoRequest(router, "/initialize-database")
			if w.Code != tt.expectedStatus {
				t.Fatalf("[%s] expected %d got %d; body: %s", tt.name, tt.expectedStatus, w.Code, w.Body.String())
			}
			if w.Code == http.StatusOK {
				if w.Body.String() != seededMessage {
					t.Errorf("expected plain text confirmation, got %q", w.Body.String())
				}
				return
			}
			var body middleware.ErrorResponse
			decodeBody(t, w, &body)
			if body.Message == "" || body.Error == "" {
				t.Errorf("expected structured error with cause, got %+v", body)
			}
		})
	}
}

func TestInitializeDatabaseGuard(t *testing.T) {
	seeded := false
	cmds := &mockSeedCommander{seedFn: func(cqrs.InitializeDatabaseCommand) (*command.SeedResult, error) {
		seeded = true
		return &command.SeedResult{}, nil
	}}
	router := newTxTestRouter(cmds, &mockTransactionQuerier{}, middleware.AuthMiddleware([]byte("secret")))

	w := txDoRequest(router, "/initialize-database")
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", w.Code)
	}
	if seeded {
		t.Errorf("guarded seed must not run")
	}
}

func TestListTransactions(t *testing.T) {
	okPage := func(q cqrs.ListTransactionsQuery) (*models.TransactionPage, error) {
		return &models.TransactionPage{
			Transactions: []models.Transaction{},
			Pagination:   models.Pagination{Page: q.Page, PerPage: q.PerPage},
		}, nil
	}
	tests := []struct {
		name           string
		url            string
		listFn         func(cqrs.ListTransactionsQuery) (*models.TransactionPage, error)
		expectedStatus int
		expectedQuery  *cqrs.ListTransactionsQuery
	}{
		{
			name:           "success - defaults",
			url:            "/transactions",
			listFn:         okPage,
			expectedStatus: http.StatusOK,
			expectedQuery:  &cqrs.ListTransactionsQuery{Page: 1, PerPage: 10},
		},
		{
			name:           "success - month, search and paging",
			url:            "/transactions?month=March&search=Shirt&page=2&per_page=5",
			listFn:         okPage,
			expectedStatus: http.StatusOK,
			expectedQuery:  &cqrs.ListTransactionsQuery{Month: time.March, Search: "Shirt", Page: 2, PerPage: 5},
		},
		{
			name:           "bad request - unknown month is not ignored",
			url:            "/transactions?month=Marchember",
			listFn:         okPage,
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "bad request - page zero",
			url:            "/transactions?page=0",
			listFn:         okPage,
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "bad request - per_page too large",
			url:            "/transactions?per_page=1000",
			listFn:         okPage,
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "bad request - page beyond cap",
			url:            "/transactions?page=100001",
			listFn:         okPage,
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "bad request - page not a number",
			url:            "/transactions?page=abc",
			listFn:         okPage,
			expectedStatus: http.StatusBadRequest,
		},
		{
			name: "server error - store failure",
			url:  "/transactions",
			listFn: func(cqrs.ListTransactionsQuery) (*models.TransactionPage, error) {
				return nil, fmt.Errorf("failed to list transactions: connection reset")
			},
			expectedStatus: http.StatusInternalServerError,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got *cqrs.ListTransactionsQuery
			qrys := &mockTransactionQuerier{listFn: func(q cqrs.ListTransactionsQuery) (*models.TransactionPage, error) {
				got = &q
				return tt.listFn(q)
			}}
			router := newTxTestRouter(&mockSeedCommander{}, qrys)
			w := txDoRequest(router, tt.url)
			if w.Code != tt.expectedStatus {
				t.Fatalf("[%s] expected %d got %d; body: %s", tt.name, tt.expectedStatus, w.Code, w.Body.String())
			}
			if tt.expectedQuery != nil {
				if got == nil || *got != *tt.expectedQuery {
					t.Errorf("[%s] expected query %+v got %+v", tt.name, tt.expectedQuery, got)
				}
			}
		})
	}
}

func TestMonthEndpoints(t *testing.T) {
	qrys := &mockTransactionQuerier{
		statsFn: func(q cqrs.MonthQuery) (*models.Statistics, error) { return &models.Statistics{}, nil },
		barsFn:  func(q cqrs.MonthQuery) ([]models.PriceRangeCount, error) { return []models.PriceRangeCount{}, nil },
		pieFn:   func(q cqrs.MonthQuery) ([]models.CategoryCount, error) { return []models.CategoryCount{}, nil },
		combinedFn: func(q cqrs.MonthQuery) (*models.CombinedView, error) {
			return &models.CombinedView{Statistics: &models.Statistics{}}, nil
		},
	}
	failing := &mockTransactionQuerier{
		statsFn:    func(cqrs.MonthQuery) (*models.Statistics, error) { return nil, fmt.Errorf("boom") },
		barsFn:     func(cqrs.MonthQuery) ([]models.PriceRangeCount, error) { return nil, context.DeadlineExceeded },
		pieFn:      func(cqrs.MonthQuery) ([]models.CategoryCount, error) { return nil, query.ErrInvalidMonth },
		combinedFn: func(cqrs.MonthQuery) (*models.CombinedView, error) { return nil, fmt.Errorf("boom") },
	}

	paths := []string{"/statistics", "/bar-chart", "/pie-chart", "/combined-data"}
	for _, path := range paths {
		tests := []struct {
			name           string
			querier        TransactionQuerier
			query          string
			expectedStatus int
		}{
			{name: "success", querier: qrys, query: "?month=March", expectedStatus: http.StatusOK},
			{name: "bad request - missing month", querier: qrys, query: "", expectedStatus: http.StatusBadRequest},
			{name: "bad request - blank month", querier: qrys, query: "?month=%20", expectedStatus: http.StatusBadRequest},
			{name: "bad request - unknown month", querier: qrys, query: "?month=Foo", expectedStatus: http.StatusBadRequest},
		}
		for _, tt := range tests {
			t.Run(path+" "+tt.name, func(t *testing.T) {
				router := newTxTestRouter(&mockSeedCommander{}, tt.querier)
				w := txDoRequest(router, path+tt.query)
				if w.Code != tt.expectedStatus {
					t.Errorf("[%s %s] expected %d got %d; body: %s", path, tt.name, tt.expectedStatus, w.Code, w.Body.String())
				}
			})
		}
	}

	failures := map[string]int{
		"/statistics":    http.StatusInternalServerError,
		"/bar-chart":     http.StatusGatewayTimeout,
		"/pie-chart":     http.StatusBadRequest,
		"/combined-data": http.StatusInternalServerError,
	}
	for path, status := range failures {
		t.Run(path+" failure", func(t *testing.T) {
			router := newTxTestRouter(&mockSeedCommander{}, failing)
			w := txDoRequest(router, path+"?month=March")
			if w.Code != status {
				t.Errorf("[%s] expected %d got %d; body: %s", path, status, w.Code, w.Body.String())
			}
		})
	}
}

func TestCancelledStatementMapsToGatewayTimeout(t *testing.T) {
	wrapped := func(op string) error { return fmt.Errorf("failed to %s: %w", op, statementCanceled) }
	qrys := &mockTransactionQuerier{
		listFn:     func(cqrs.ListTransactionsQuery) (*models.TransactionPage, error) { return nil, wrapped("list transactions") },
		statsFn:    func(cqrs.MonthQuery) (*models.Statistics, error) { return nil, wrapped("compute statistics") },
		barsFn:     func(cqrs.MonthQuery) ([]models.PriceRangeCount, error) { return nil, wrapped("count price ranges") },
		pieFn:      func(cqrs.MonthQuery) ([]models.CategoryCount, error) { return nil, wrapped("group categories") },
		combinedFn: func(cqrs.MonthQuery) (*models.CombinedView, error) { return nil, wrapped("compute statistics") },
	}
	router := newTxTestRouter(&mockSeedCommander{}, qrys)

	for _, url := range []string{
		"/transactions",
		"/statistics?month=March",
		"/bar-chart?month=March",
		"/pie-chart?month=March",
		"/combined-data?month=March",
	} {
		t.Run(url, func(t *testing.T) {
			w := txDoRequest(router, url)
			if w.Code != http.StatusGatewayTimeout {
				t.Errorf("[%s] expected 504 got %d; body: %s", url, w.Code, w.Body.String())
			}
		})
	}
}

type staticSeedSource struct {
	transactions []models.Transaction
}

func (s staticSeedSource) URL() string { return "http://seed.test" }

func (s staticSeedSource) Fetch(context.Context) ([]models.Transaction, error) {
	return s.transactions, nil
}

func TestEndToEndWithMemoryStore(t *testing.T) {
	repo := repository.NewMemoryTransactionRepository()
	source := staticSeedSource{transactions: []models.Transaction{
		{Title: "A", Price: 150, Category: "X", Sold: true, DateOfSale: "2023-03-05"},
	}}
	router := newTxTestRouter(
		command.NewSeedCommandService(source, repo, nil, time.Second),
		query.NewTransactionQueryService(repo, time.Second),
	)

	if w := txDoRequest(router, "/initialize-database"); w.Code != http.StatusOK {
		t.Fatalf("seed: expected 200 got %d; body: %s", w.Code, w.Body.String())
	}

	w := txDoRequest(router, "/statistics?month=March")
	if w.Code != http.StatusOK {
		t.Fatalf("statistics: expected 200 got %d", w.Code)
	}
	var stats models.Statistics
	decodeBody(t, w, &stats)
	if stats != (models.Statistics{TotalSaleAmount: 150, TotalSoldItems: 1, TotalNotSoldItems: 0}) {
		t.Errorf("unexpected statistics %+v", stats)
	}

	w = txDoRequest(router, "/bar-chart?month=March")
	var bars []models.PriceRangeCount
	decodeBody(t, w, &bars)
	if len(bars) != 10 {
		t.Fatalf("expected 10 buckets got %d", len(bars))
	}
	for _, bar := range bars {
		want := int64(0)
		if bar.Range == "101-200" {
			want = 1
		}
		if bar.Count != want {
			t.Errorf("bucket %s: expected %d got %d", bar.Range, want, bar.Count)
		}
	}

	w = txDoRequest(router, "/transactions?month=April")
	var page struct {
		Transactions []models.Transaction `json:"transactions"`
		Pagination   map[string]int64     `json:"pagination"`
	}
	decodeBody(t, w, &page)
	if page.Transactions == nil || len(page.Transactions) != 0 {
		t.Errorf("expected empty transactions array, got %s", w.Body.String())
	}
	if page.Pagination["page"] != 1 || page.Pagination["per_page"] != 10 || page.Pagination["total"] != 0 {
		t.Errorf("unexpected pagination %v", page.Pagination)
	}

	w = txDoRequest(router, "/combined-data?month=March")
	var combined map[string]json.RawMessage
	decodeBody(t, w, &combined)
	for _, key := range []string{"statistics", "barChart", "pieChart"} {
		if _, ok := combined[key]; !ok {
			t.Errorf("combined view missing %s: %s", key, w.Body.String())
		}
	}
}

type mockPinger struct{ err error }

func (m mockPinger) Ping(context.Context) error { return m.err }

func TestHealth(t *testing.T) {
	gin.SetMode(gin.TestMode)
	tests := []struct {
		name           string
		pinger         Pinger
		expectedStatus int
	}{
		{name: "store reachable", pinger: mockPinger{}, expectedStatus: http.StatusOK},
		{name: "store down", pinger: mockPinger{err: fmt.Errorf("dial tcp: refused")}, expectedStatus: http.StatusServiceUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := gin.New()
			r.GET("/health", Health(tt.pinger))
			w := txDoRequest(r, "/health")
			if w.Code != tt.expectedStatus {
				t.Errorf("[%s] expected %d got %d", tt.name, tt.expectedStatus, w.Code)
			}
		})
	}
}
