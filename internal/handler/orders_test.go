package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/comanda-pos/api/internal/auth"
	"github.com/comanda-pos/api/internal/enum"
	"github.com/comanda-pos/api/internal/handler"
	"github.com/comanda-pos/api/internal/middleware"
	"github.com/comanda-pos/api/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// --- Mock OrderServicer ---

type mockOrderService struct {
	createFn func(ctx context.Context, req service.CreateOrderRequest) (service.Order, error)
}

func (m *mockOrderService) CreateOrder(ctx context.Context, req service.CreateOrderRequest) (service.Order, error) {
	if m.createFn != nil {
		return m.createFn(ctx, req)
	}
	return service.Order{}, errors.New("not implemented")
}

// --- Mock OrderLedger ---

type mockOrderLedger struct {
	getFn     func(id int64) (service.Order, error)
	listFn    func(status enum.OrderStatus) []service.Order
	allFn     func() []service.Order
	deliverFn func(ctx context.Context, id int64) (time.Time, error)
}

func (m *mockOrderLedger) Get(id int64) (service.Order, error) {
	if m.getFn != nil {
		return m.getFn(id)
	}
	return service.Order{}, fmt.Errorf("order %d: %w", id, service.ErrNotFound)
}

func (m *mockOrderLedger) ListByStatus(status enum.OrderStatus) []service.Order {
	if m.listFn != nil {
		return m.listFn(status)
	}
	return nil
}

func (m *mockOrderLedger) All() []service.Order {
	if m.allFn != nil {
		return m.allFn()
	}
	return nil
}

func (m *mockOrderLedger) ConfirmDelivery(ctx context.Context, id int64) (time.Time, error) {
	if m.deliverFn != nil {
		return m.deliverFn(ctx, id)
	}
	return time.Time{}, fmt.Errorf("order %d: %w", id, service.ErrNotFound)
}

// --- Test helpers ---

var testCreatedAt = time.Date(2026, 3, 14, 19, 30, 0, 0, time.UTC)

func testOrder(id int64) service.Order {
	return service.Order{
		ID:          id,
		TableNumber: 7,
		Lines: []service.OrderLine{
			{ItemCode: 6, Quantity: 2},
			{ItemCode: 31, Quantity: 1},
		},
		Status:    enum.OrderStatusPending,
		CreatedAt: testCreatedAt,
	}
}

func testBilling() *service.BillingView {
	return service.NewBillingView(service.DefaultCatalog())
}

func setupOrderRouter(svc handler.OrderServicer, ledger handler.OrderLedger) *chi.Mux {
	h := handler.NewOrderHandler(svc, ledger, testBilling(), testLogger())
	r := chi.NewRouter()
	r.Use(middleware.Authenticate(testSecret))
	r.Route("/orders", h.RegisterRoutes)
	return r
}

func doAuthRequest(t *testing.T, router http.Handler, method, path string, body interface{}, role string) *httptest.ResponseRecorder {
	t.Helper()

	token, err := auth.GenerateToken(testSecret, uuid.New(), "bruno", role)
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}

	var req *http.Request
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal request: %v", err)
		}
		req = httptest.NewRequest(method, path, bytes.NewReader(b))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}

// =====================
// Create
// =====================

func TestOrderCreate_HappyPath(t *testing.T) {
	svc := &mockOrderService{
		createFn: func(_ context.Context, req service.CreateOrderRequest) (service.Order, error) {
			if req.TableNumber != 7 {
				t.Errorf("table_number: got %d, want 7", req.TableNumber)
			}
			if len(req.Items) != 2 {
				t.Fatalf("items: got %d, want 2", len(req.Items))
			}
			if req.Items[0].ItemCode != 6 || req.Items[0].Quantity != 2 {
				t.Errorf("first item: got %+v", req.Items[0])
			}
			return testOrder(1001), nil
		},
	}
	router := setupOrderRouter(svc, &mockOrderLedger{})

	rr := doAuthRequest(t, router, "POST", "/orders", map[string]interface{}{
		"table_number": 7,
		"items": []map[string]interface{}{
			{"item_code": 6, "quantity": 2},
			{"item_code": 31, "quantity": 1},
		},
	}, enum.RoleWaiter)

	if rr.Code != http.StatusCreated {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, http.StatusCreated, rr.Body.String())
	}

	var resp service.OrderDetail
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.ID != 1001 {
		t.Errorf("id: got %d, want 1001", resp.ID)
	}
	if resp.Status != "PENDING" {
		t.Errorf("status: got %s, want PENDING", resp.Status)
	}
	if resp.Total != "24.00" {
		t.Errorf("total: got %s, want 24.00", resp.Total)
	}
	if len(resp.Items) != 2 || resp.Items[0].Subtotal != "16.00" {
		t.Errorf("items: got %+v", resp.Items)
	}
}

func TestOrderCreate_Validation(t *testing.T) {
	tests := []struct {
		name   string
		body   interface{}
		svcErr error
		want   int
	}{
		{"no items", map[string]interface{}{"table_number": 7, "items": []interface{}{}}, nil, http.StatusBadRequest},
		{"invalid table", map[string]interface{}{"table_number": 0, "items": []map[string]int{{"item_code": 6, "quantity": 1}}}, fmt.Errorf("table 0: %w", service.ErrInvalidInput), http.StatusBadRequest},
		{"unknown item", map[string]interface{}{"table_number": 7, "items": []map[string]int{{"item_code": 99, "quantity": 1}}}, fmt.Errorf("code 99: %w", service.ErrUnknownItem), http.StatusBadRequest},
		{"store failure", map[string]interface{}{"table_number": 7, "items": []map[string]int{{"item_code": 6, "quantity": 1}}}, errors.New("disk full"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &mockOrderService{
				createFn: func(context.Context, service.CreateOrderRequest) (service.Order, error) {
					if tt.svcErr == nil {
						t.Error("service should not be called")
					}
					return service.Order{}, tt.svcErr
				},
			}
			router := setupOrderRouter(svc, &mockOrderLedger{})

			rr := doAuthRequest(t, router, "POST", "/orders", tt.body, enum.RoleWaiter)
			if rr.Code != tt.want {
				t.Errorf("status: got %d, want %d; body: %s", rr.Code, tt.want, rr.Body.String())
			}
		})
	}
}

func TestOrderCreate_InvalidBody(t *testing.T) {
	router := setupOrderRouter(&mockOrderService{}, &mockOrderLedger{})

	token, _ := auth.GenerateToken(testSecret, uuid.New(), "bruno", enum.RoleWaiter)
	req := httptest.NewRequest("POST", "/orders", bytes.NewReader([]byte("{")))
	req.Header.Set("Authorization", "Bearer "+token)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Errorf("status: got %d, want %d", rr.Code, http.StatusBadRequest)
	}
}

func TestOrderCreate_Unauthenticated(t *testing.T) {
	router := setupOrderRouter(&mockOrderService{}, &mockOrderLedger{})

	rr := postJSON(t, router, "/orders", map[string]interface{}{"table_number": 7})
	if rr.Code != http.StatusUnauthorized {
		t.Errorf("status: got %d, want %d", rr.Code, http.StatusUnauthorized)
	}
}

// =====================
// Read
// =====================

func TestOrderList_FilterByStatus(t *testing.T) {
	var gotStatus enum.OrderStatus
	ledger := &mockOrderLedger{
		listFn: func(status enum.OrderStatus) []service.Order {
			gotStatus = status
			return []service.Order{testOrder(1001), testOrder(1002)}
		},
		allFn: func() []service.Order {
			t.Error("All should not be called with a status filter")
			return nil
		},
	}
	router := setupOrderRouter(&mockOrderService{}, ledger)

	rr := doAuthRequest(t, router, "GET", "/orders?status=pending", nil, enum.RoleKitchen)
	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, http.StatusOK, rr.Body.String())
	}
	if gotStatus != enum.OrderStatusPending {
		t.Errorf("filter: got %v, want PENDING", gotStatus)
	}

	var resp struct {
		Orders []service.OrderDetail `json:"orders"`
	}
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(resp.Orders) != 2 || resp.Orders[1].ID != 1002 {
		t.Errorf("orders: got %+v", resp.Orders)
	}
}

func TestOrderList_AllAndEmpty(t *testing.T) {
	router := setupOrderRouter(&mockOrderService{}, &mockOrderLedger{})

	rr := doAuthRequest(t, router, "GET", "/orders", nil, enum.RoleManager)
	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d", rr.Code, http.StatusOK)
	}
	resp := decodeResponse(t, rr)
	orders, ok := resp["orders"].([]interface{})
	if !ok {
		t.Fatalf("orders: expected array, got %T", resp["orders"])
	}
	if len(orders) != 0 {
		t.Errorf("orders: got %d, want 0", len(orders))
	}
}

func TestOrderList_InvalidStatus(t *testing.T) {
	router := setupOrderRouter(&mockOrderService{}, &mockOrderLedger{})

	rr := doAuthRequest(t, router, "GET", "/orders?status=cancelled", nil, enum.RoleManager)
	if rr.Code != http.StatusBadRequest {
		t.Errorf("status: got %d, want %d", rr.Code, http.StatusBadRequest)
	}
}

func TestOrderGet(t *testing.T) {
	ledger := &mockOrderLedger{
		getFn: func(id int64) (service.Order, error) {
			if id != 1001 {
				return service.Order{}, fmt.Errorf("order %d: %w", id, service.ErrNotFound)
			}
			return testOrder(1001), nil
		},
	}
	router := setupOrderRouter(&mockOrderService{}, ledger)

	tests := []struct {
		path string
		want int
	}{
		{"/orders/1001", http.StatusOK},
		{"/orders/1002", http.StatusNotFound},
		{"/orders/abc", http.StatusBadRequest},
	}
	for _, tt := range tests {
		rr := doAuthRequest(t, router, "GET", tt.path, nil, enum.RoleWaiter)
		if rr.Code != tt.want {
			t.Errorf("%s: status got %d, want %d", tt.path, rr.Code, tt.want)
		}
	}
}

// =====================
// Ticket / Receipt
// =====================

func TestOrderTicket_GroupsByCategory(t *testing.T) {
	ledger := &mockOrderLedger{
		getFn: func(int64) (service.Order, error) { return testOrder(1001), nil },
	}
	router := setupOrderRouter(&mockOrderService{}, ledger)

	rr := doAuthRequest(t, router, "GET", "/orders/1001/ticket", nil, enum.RoleKitchen)
	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, http.StatusOK, rr.Body.String())
	}

	var resp struct {
		OrderID int64 `json:"order_id"`
		Groups  []struct {
			Category string `json:"category"`
			Items    []struct {
				ItemCode int `json:"item_code"`
				Quantity int `json:"quantity"`
			} `json:"items"`
		} `json:"groups"`
	}
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.OrderID != 1001 {
		t.Errorf("order_id: got %d, want 1001", resp.OrderID)
	}
	if len(resp.Groups) != 2 {
		t.Fatalf("groups: got %d, want 2", len(resp.Groups))
	}
	if resp.Groups[0].Category != service.CategorySushi || resp.Groups[0].Items[0].Quantity != 2 {
		t.Errorf("first group: got %+v", resp.Groups[0])
	}
	if resp.Groups[1].Category != service.CategoryBeverage {
		t.Errorf("second group: got %s, want %s", resp.Groups[1].Category, service.CategoryBeverage)
	}
}

func TestOrderTicket_DeliveredConflict(t *testing.T) {
	ledger := &mockOrderLedger{
		getFn: func(int64) (service.Order, error) {
			o := testOrder(1001)
			at := testCreatedAt.Add(20 * time.Minute)
			o.Status = enum.OrderStatusDelivered
			o.DeliveredAt = &at
			return o, nil
		},
	}
	router := setupOrderRouter(&mockOrderService{}, ledger)

	rr := doAuthRequest(t, router, "GET", "/orders/1001/ticket", nil, enum.RoleKitchen)
	if rr.Code != http.StatusConflict {
		t.Errorf("status: got %d, want %d", rr.Code, http.StatusConflict)
	}
}

func TestOrderReceipt(t *testing.T) {
	ledger := &mockOrderLedger{
		getFn: func(int64) (service.Order, error) { return testOrder(1001), nil },
	}
	router := setupOrderRouter(&mockOrderService{}, ledger)

	rr := doAuthRequest(t, router, "GET", "/orders/1001/receipt", nil, enum.RoleWaiter)
	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d", rr.Code, http.StatusOK)
	}

	var resp struct {
		Status string `json:"status"`
		Total  string `json:"total"`
		Lines  []struct {
			ItemCode  int    `json:"item_code"`
			UnitPrice string `json:"unit_price"`
			Subtotal  string `json:"subtotal"`
		} `json:"lines"`
	}
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Total != "24.00" {
		t.Errorf("total: got %s, want 24.00", resp.Total)
	}
	if len(resp.Lines) != 2 || resp.Lines[0].ItemCode != 6 || resp.Lines[0].Subtotal != "16.00" {
		t.Errorf("lines: got %+v", resp.Lines)
	}
	if resp.Status != "PENDING" {
		t.Errorf("status: got %s, want PENDING", resp.Status)
	}
}

// =====================
// Deliver
// =====================

func TestOrderDeliver_Roles(t *testing.T) {
	tests := []struct {
		role string
		want int
	}{
		{enum.RoleWaiter, http.StatusOK},
		{enum.RoleManager, http.StatusOK},
		{enum.RoleKitchen, http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.role, func(t *testing.T) {
			called := false
			ledger := &mockOrderLedger{
				deliverFn: func(_ context.Context, id int64) (time.Time, error) {
					called = true
					return testCreatedAt.Add(15 * time.Minute), nil
				},
			}
			router := setupOrderRouter(&mockOrderService{}, ledger)

			rr := doAuthRequest(t, router, "POST", "/orders/1001/deliver", nil, tt.role)
			if rr.Code != tt.want {
				t.Fatalf("status: got %d, want %d", rr.Code, tt.want)
			}
			if called != (tt.want == http.StatusOK) {
				t.Errorf("ledger called: got %v", called)
			}
		})
	}
}

// Runs against a real ledger so the second confirmation hits the
// terminal-state check.
func TestOrderDeliver_Lifecycle(t *testing.T) {
	catalog := service.DefaultCatalog()
	clock := testCreatedAt
	ledger := service.NewLedger(catalog,
		service.WithClock(func() time.Time { return clock }),
		service.WithLogger(testLogger()),
	)
	svc := service.NewOrderService(catalog, service.NewMemoryDraftStore(time.Hour), ledger, testLogger())
	router := setupOrderRouter(svc, ledger)

	rr := doAuthRequest(t, router, "POST", "/orders", map[string]interface{}{
		"table_number": 3,
		"items":        []map[string]int{{"item_code": 6, "quantity": 1}, {"item_code": 6, "quantity": 2}},
	}, enum.RoleWaiter)
	if rr.Code != http.StatusCreated {
		t.Fatalf("create: got %d; body: %s", rr.Code, rr.Body.String())
	}
	created := decodeResponse(t, rr)
	if created["id"] != float64(1001) {
		t.Fatalf("id: got %v, want 1001", created["id"])
	}
	items := created["items"].([]interface{})
	if len(items) != 1 || items[0].(map[string]interface{})["quantity"] != float64(3) {
		t.Errorf("items: got %v, want one line with quantity 3", items)
	}

	clock = clock.Add(10 * time.Minute)
	rr = doAuthRequest(t, router, "POST", "/orders/1001/deliver", nil, enum.RoleWaiter)
	if rr.Code != http.StatusOK {
		t.Fatalf("deliver: got %d; body: %s", rr.Code, rr.Body.String())
	}
	resp := decodeResponse(t, rr)
	if resp["status"] != "DELIVERED" {
		t.Errorf("status: got %v, want DELIVERED", resp["status"])
	}

	rr = doAuthRequest(t, router, "POST", "/orders/1001/deliver", nil, enum.RoleWaiter)
	if rr.Code != http.StatusConflict {
		t.Errorf("second deliver: got %d, want %d", rr.Code, http.StatusConflict)
	}

	rr = doAuthRequest(t, router, "POST", "/orders/4242/deliver", nil, enum.RoleWaiter)
	if rr.Code != http.StatusNotFound {
		t.Errorf("unknown order: got %d, want %d", rr.Code, http.StatusNotFound)
	}

	rr = doAuthRequest(t, router, "GET", "/orders?status=DELIVERED", nil, enum.RoleManager)
	list := decodeResponse(t, rr)["orders"].([]interface{})
	if len(list) != 1 {
		t.Errorf("delivered orders: got %d, want 1", len(list))
	}
}
