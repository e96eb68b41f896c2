package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	billingservice "github.com/subgate/subgate/internal/billing/service"
	"github.com/subgate/subgate/internal/clock"
	"github.com/subgate/subgate/internal/config"
	"github.com/subgate/subgate/internal/cryptopay"
	entitlementdomain "github.com/subgate/subgate/internal/entitlement/domain"
	entitlementrepo "github.com/subgate/subgate/internal/entitlement/repository"
	entitlementservice "github.com/subgate/subgate/internal/entitlement/service"
	invoicedomain "github.com/subgate/subgate/internal/invoice/domain"
	invoicerepo "github.com/subgate/subgate/internal/invoice/repository"
	"github.com/subgate/subgate/internal/observability/metrics"
	"github.com/subgate/subgate/internal/operation"
	userdomain "github.com/subgate/subgate/internal/user/domain"
	userrepo "github.com/subgate/subgate/internal/user/repository"
	userservice "github.com/subgate/subgate/internal/user/service"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type stubProcessor struct {
	mu       sync.Mutex
	nextID   int
	statuses map[string]cryptopay.Status
}

func newStubProcessor() *stubProcessor {
	return &stubProcessor{statuses: map[string]cryptopay.Status{}}
}

func (p *stubProcessor) CreateInvoice(ctx context.Context, req cryptopay.CreateInvoiceRequest) (*cryptopay.CreatedInvoice, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.nextID++
	id := fmt.Sprintf("srv-inv-%d", p.nextID)
	p.statuses[id] = cryptopay.StatusActive
	return &cryptopay.CreatedInvoice{InvoiceID: id, PayURL: "https://pay.example/" + id}, nil
}

func (p *stubProcessor) InvoiceStatus(ctx context.Context, invoiceID string) (cryptopay.Status, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	status, ok := p.statuses[invoiceID]
	if !ok {
		return cryptopay.StatusUnknown, nil
	}
	return status, nil
}

func (p *stubProcessor) markPaid(invoiceID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.statuses[invoiceID] = cryptopay.StatusPaid
}

type webFixture struct {
	engine    *gin.Engine
	processor *stubProcessor
	clock     *clock.FakeClock
}

func newWebFixture(t *testing.T) *webFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dsn := fmt.Sprintf("file:server_%s_%d?mode=memory&cache=shared", t.Name(), time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&userdomain.User{},
		&entitlementdomain.Entitlement{},
		&invoicedomain.Invoice{},
	))

	node, err := snowflake.NewNode(9)
	require.NoError(t, err)
	fakeClock := clock.NewFakeClock(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	processor := newStubProcessor()

	cfg := config.Config{
		Processor: config.ProcessorConfig{Asset: "USDT"},
		Billing: config.BillingConfig{
			Prices: map[string]decimal.Decimal{
				"DAY":     decimal.RequireFromString("0.5"),
				"WEEK":    decimal.RequireFromString("2"),
				"MONTH":   decimal.RequireFromString("5"),
				"FOREVER": decimal.RequireFromString("8"),
			},
			InvoiceTTL: time.Hour,
		},
		AdminIDs: []int64{7000},
	}

	userSvc := userservice.NewService(userservice.Params{
		DB:    db,
		Log:   zap.NewNop(),
		GenID: node,
		Repo:  userrepo.Provide(),
		Clock: fakeClock,
	})
	entRepo := entitlementrepo.Provide()
	entSvc := entitlementservice.NewService(entitlementservice.Params{
		DB:    db,
		Log:   zap.NewNop(),
		Repo:  entRepo,
		Clock: fakeClock,
	})
	billingSvc := billingservice.NewService(billingservice.Params{
		Cfg:          cfg,
		DB:           db,
		Log:          zap.NewNop(),
		GenID:        node,
		Clock:        fakeClock,
		Processor:    processor,
		Invoices:     invoicerepo.Provide(),
		Entitlements: entRepo,
		Users:        userSvc,
	})

	m := metrics.New(prometheus.NewRegistry())
	engine := NewEngine(m)
	NewServer(Params{
		Engine:         engine,
		Cfg:            cfg,
		DB:             db,
		Log:            zap.NewNop(),
		Clock:          fakeClock,
		BillingSvc:     billingSvc,
		EntitlementSvc: entSvc,
		UserSvc:        userSvc,
		Invoices:       invoicerepo.Provide(),
		Runner:         operation.NewAckRunner(zap.NewNop()),
		Metrics:        m,
	})

	return &webFixture{engine: engine, processor: processor, clock: fakeClock}
}

func (f *webFixture) do(t *testing.T, method, path string, body any, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	w := httptest.NewRecorder()
	f.engine.ServeHTTP(w, req)
	return w
}

func decodeData(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()

	var body struct {
		Data map[string]any `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body.Data
}

func TestHealth(t *testing.T) {
	f := newWebFixture(t)

	w := f.do(t, http.MethodGet, "/health", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
}

func TestListTiers(t *testing.T) {
	f := newWebFixture(t)

	w := f.do(t, http.MethodGet, "/v1/tiers", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Data []struct {
			Tier   string `json:"tier"`
			Amount string `json:"amount"`
			Asset  string `json:"asset"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body.Data, 4)
	require.Equal(t, "DAY", body.Data[0].Tier)
	require.Equal(t, "0.5", body.Data[0].Amount)
	require.Equal(t, "USDT", body.Data[0].Asset)
}

func TestPurchaseConfirmOperationFlow(t *testing.T) {
	f := newWebFixture(t)

	w := f.do(t, http.MethodPost, "/v1/users/1001/invoices", gin.H{"tier": "week"}, nil)
	require.Equal(t, http.StatusCreated, w.Code)
	created := decodeData(t, w)
	invoiceID, _ := created["invoice_id"].(string)
	require.NotEmpty(t, invoiceID)
	require.Equal(t, "PENDING", created["status"])
	require.Equal(t, "2", created["amount"])

	// Not paid yet: confirmation is refused and nothing is granted.
	w = f.do(t, http.MethodPost, "/v1/invoices/"+invoiceID+"/confirm", nil, nil)
	require.Equal(t, http.StatusPaymentRequired, w.Code)

	w = f.do(t, http.MethodPost, "/v1/users/1001/operations", gin.H{"payload": "x"}, nil)
	require.Equal(t, http.StatusForbidden, w.Code)

	f.processor.markPaid(invoiceID)

	w = f.do(t, http.MethodPost, "/v1/invoices/"+invoiceID+"/confirm", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)

	// Confirming again replays the recorded outcome.
	w = f.do(t, http.MethodPost, "/v1/invoices/"+invoiceID+"/confirm", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = f.do(t, http.MethodPost, "/v1/users/1001/operations", gin.H{"payload": "x"}, nil)
	require.Equal(t, http.StatusOK, w.Code)
	result := decodeData(t, w)
	require.Equal(t, true, result["accepted"])

	w = f.do(t, http.MethodGet, "/v1/users/1001", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	profile := decodeData(t, w)
	require.Equal(t, float64(1), profile["operation_count"])
	ent, _ := profile["entitlement"].(map[string]any)
	require.NotNil(t, ent)
	require.Equal(t, true, ent["active"])
	require.Equal(t, "WEEK", ent["tier"])
	require.Equal(t, float64(7), ent["days_left"])
}

func TestPurchaseRejectsUnknownTier(t *testing.T) {
	f := newWebFixture(t)

	w := f.do(t, http.MethodPost, "/v1/users/1001/invoices", gin.H{"tier": "LIFETIME"}, nil)
	require.Equal(t, http.StatusBadRequest, w.Code)

	// ADMIN_GRANT is a valid tier but not purchasable.
	w = f.do(t, http.MethodPost, "/v1/users/1001/invoices", gin.H{"tier": "ADMIN_GRANT"}, nil)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestConfirmUnknownInvoice(t *testing.T) {
	f := newWebFixture(t)

	w := f.do(t, http.MethodPost, "/v1/invoices/no-such/confirm", nil, nil)
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestCancelThenConfirmConflicts(t *testing.T) {
	f := newWebFixture(t)

	w := f.do(t, http.MethodPost, "/v1/users/1001/invoices", gin.H{"tier": "DAY"}, nil)
	require.Equal(t, http.StatusCreated, w.Code)
	invoiceID := decodeData(t, w)["invoice_id"].(string)

	w = f.do(t, http.MethodPost, "/v1/invoices/"+invoiceID+"/cancel", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)

	// Cancel is idempotent.
	w = f.do(t, http.MethodPost, "/v1/invoices/"+invoiceID+"/cancel", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)

	f.processor.markPaid(invoiceID)
	w = f.do(t, http.MethodPost, "/v1/invoices/"+invoiceID+"/confirm", nil, nil)
	require.Equal(t, http.StatusConflict, w.Code)
}

func TestInvalidExternalID(t *testing.T) {
	f := newWebFixture(t)

	w := f.do(t, http.MethodGet, "/v1/users/abc", nil, nil)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAdminAuth(t *testing.T) {
	f := newWebFixture(t)

	grant := gin.H{"external_id": 1001, "days": 14}

	w := f.do(t, http.MethodPost, "/admin/v1/grants", grant, nil)
	require.Equal(t, http.StatusForbidden, w.Code)

	w = f.do(t, http.MethodPost, "/admin/v1/grants", grant, map[string]string{"X-Admin-ID": "1234"})
	require.Equal(t, http.StatusForbidden, w.Code)

	w = f.do(t, http.MethodPost, "/admin/v1/grants", grant, map[string]string{"X-Admin-ID": "7000"})
	require.Equal(t, http.StatusOK, w.Code)
	data := decodeData(t, w)
	require.Equal(t, "ADMIN_GRANT", data["tier"])

	// The grantee now passes the access gate.
	w = f.do(t, http.MethodPost, "/v1/users/1001/operations", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
}

func TestAdminGrantValidation(t *testing.T) {
	f := newWebFixture(t)
	admin := map[string]string{"X-Admin-ID": "7000"}

	w := f.do(t, http.MethodPost, "/admin/v1/grants", gin.H{"external_id": 1001, "days": 0}, admin)
	require.Equal(t, http.StatusBadRequest, w.Code)

	w = f.do(t, http.MethodPost, "/admin/v1/grants", gin.H{"days": 5}, admin)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAdminStats(t *testing.T) {
	f := newWebFixture(t)
	admin := map[string]string{"X-Admin-ID": "7000"}

	w := f.do(t, http.MethodPost, "/v1/users/1001/invoices", gin.H{"tier": "WEEK"}, nil)
	require.Equal(t, http.StatusCreated, w.Code)
	firstID := decodeData(t, w)["invoice_id"].(string)
	f.processor.markPaid(firstID)
	w = f.do(t, http.MethodPost, "/v1/invoices/"+firstID+"/confirm", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = f.do(t, http.MethodPost, "/v1/users/1002/invoices", gin.H{"tier": "DAY"}, nil)
	require.Equal(t, http.StatusCreated, w.Code)

	w = f.do(t, http.MethodGet, "/admin/v1/stats", nil, admin)
	require.Equal(t, http.StatusOK, w.Code)
	stats := decodeData(t, w)
	require.Equal(t, float64(2), stats["users"])
	require.Equal(t, float64(1), stats["confirmed_invoices"])
	require.Equal(t, float64(1), stats["pending_invoices"])
	require.Equal(t, float64(0), stats["operations"])
}
