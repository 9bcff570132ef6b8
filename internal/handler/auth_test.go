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

	"github.com/comanda-pos/api/internal/auth"
	"github.com/comanda-pos/api/internal/handler"
	"github.com/comanda-pos/api/internal/service"
	"github.com/comanda-pos/api/internal/store"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"golang.org/x/crypto/bcrypt"
)

const testSecret = "test-secret"

// --- Mock store ---

type mockStaffStore struct {
	byUsername map[string]store.Staff
	byID       map[uuid.UUID]store.Staff
	err        error
}

func newMockStore() *mockStaffStore {
	return &mockStaffStore{
		byUsername: make(map[string]store.Staff),
		byID:       make(map[uuid.UUID]store.Staff),
	}
}

func (m *mockStaffStore) addStaff(s store.Staff) {
	m.byUsername[s.Username] = s
	m.byID[s.ID] = s
}

func (m *mockStaffStore) GetStaffByUsername(_ context.Context, username string) (store.Staff, error) {
	if m.err != nil {
		return store.Staff{}, m.err
	}
	s, ok := m.byUsername[username]
	if !ok {
		return store.Staff{}, fmt.Errorf("staff %s: %w", username, service.ErrNotFound)
	}
	return s, nil
}

func (m *mockStaffStore) GetStaffByID(_ context.Context, id uuid.UUID) (store.Staff, error) {
	if m.err != nil {
		return store.Staff{}, m.err
	}
	s, ok := m.byID[id]
	if !ok {
		return store.Staff{}, fmt.Errorf("staff %s: %w", id, service.ErrNotFound)
	}
	return s, nil
}

// --- Helpers ---

func testLogger() logrus.FieldLogger {
	log, _ := logtest.NewNullLogger()
	return log
}

func hashPassword(t *testing.T, password string) string {
	t.Helper()
	h, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	return string(h)
}

func makeTestStaff(t *testing.T) store.Staff {
	t.Helper()
	return store.Staff{
		ID:             uuid.New(),
		Username:       "bruno",
		FullName:       "Bruno Lima",
		Role:           "WAITER",
		HashedPassword: hashPassword(t, "correct-password"),
	}
}

func newAuthRouter(s handler.StaffStore) *chi.Mux {
	h := handler.NewAuthHandler(s, testSecret, testLogger())
	r := chi.NewRouter()
	h.RegisterRoutes(r)
	return r
}

func postJSON(t *testing.T, router http.Handler, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	b, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal request: %v", err)
	}
	req := httptest.NewRequest("POST", path, bytes.NewReader(b))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}

func decodeResponse(t *testing.T, rr *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var resp map[string]interface{}
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return resp
}

// --- Login tests ---

func TestLogin_ValidCredentials(t *testing.T) {
	s := newMockStore()
	s.addStaff(makeTestStaff(t))
	r := newAuthRouter(s)

	rr := postJSON(t, r, "/auth/login", map[string]string{
		"username": "bruno",
		"password": "correct-password",
	})

	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, http.StatusOK, rr.Body.String())
	}

	resp := decodeResponse(t, rr)
	if resp["access_token"] == nil || resp["access_token"] == "" {
		t.Error("expected non-empty access_token")
	}
	if resp["refresh_token"] == nil || resp["refresh_token"] == "" {
		t.Error("expected non-empty refresh_token")
	}

	staffResp, ok := resp["staff"].(map[string]interface{})
	if !ok {
		t.Fatal("expected staff object in response")
	}
	if staffResp["username"] != "bruno" {
		t.Errorf("staff username: got %v, want bruno", staffResp["username"])
	}
	if staffResp["role"] != "WAITER" {
		t.Errorf("staff role: got %v, want WAITER", staffResp["role"])
	}
}

func TestLogin_WrongPassword(t *testing.T) {
	s := newMockStore()
	s.addStaff(makeTestStaff(t))
	r := newAuthRouter(s)

	rr := postJSON(t, r, "/auth/login", map[string]string{
		"username": "bruno",
		"password": "wrong-password",
	})

	if rr.Code != http.StatusUnauthorized {
		t.Errorf("status: got %d, want %d", rr.Code, http.StatusUnauthorized)
	}
}

func TestLogin_StaffNotFound(t *testing.T) {
	r := newAuthRouter(newMockStore())

	rr := postJSON(t, r, "/auth/login", map[string]string{
		"username": "nobody",
		"password": "password",
	})

	if rr.Code != http.StatusUnauthorized {
		t.Errorf("status: got %d, want %d", rr.Code, http.StatusUnauthorized)
	}
}

func TestLogin_MissingFields(t *testing.T) {
	r := newAuthRouter(newMockStore())

	rr := postJSON(t, r, "/auth/login", map[string]string{
		"username": "bruno",
	})

	if rr.Code != http.StatusBadRequest {
		t.Errorf("status: got %d, want %d", rr.Code, http.StatusBadRequest)
	}
}

func TestLogin_InvalidBody(t *testing.T) {
	r := newAuthRouter(newMockStore())

	req := httptest.NewRequest("POST", "/auth/login", bytes.NewReader([]byte("{")))
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Errorf("status: got %d, want %d", rr.Code, http.StatusBadRequest)
	}
}

func TestLogin_StoreError(t *testing.T) {
	s := newMockStore()
	s.err = errors.New("connection reset")
	r := newAuthRouter(s)

	rr := postJSON(t, r, "/auth/login", map[string]string{
		"username": "bruno",
		"password": "correct-password",
	})

	if rr.Code != http.StatusInternalServerError {
		t.Errorf("status: got %d, want %d", rr.Code, http.StatusInternalServerError)
	}
	if resp := decodeResponse(t, rr); resp["error"] != "internal server error" {
		t.Errorf("error: got %v, want internal server error", resp["error"])
	}
}

// --- Refresh tests ---

func TestRefresh_ValidToken(t *testing.T) {
	s := newMockStore()
	staff := makeTestStaff(t)
	s.addStaff(staff)
	r := newAuthRouter(s)

	refreshToken, err := auth.GenerateRefreshToken(testSecret, staff.ID)
	if err != nil {
		t.Fatalf("generate refresh token: %v", err)
	}

	rr := postJSON(t, r, "/auth/refresh", map[string]string{
		"refresh_token": refreshToken,
	})

	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, http.StatusOK, rr.Body.String())
	}

	resp := decodeResponse(t, rr)
	if resp["access_token"] == nil || resp["access_token"] == "" {
		t.Error("expected non-empty access_token")
	}
	if resp["refresh_token"] == nil || resp["refresh_token"] == "" {
		t.Error("expected non-empty refresh_token")
	}
}

func TestRefresh_InvalidToken(t *testing.T) {
	r := newAuthRouter(newMockStore())

	rr := postJSON(t, r, "/auth/refresh", map[string]string{
		"refresh_token": "not-a-valid-token",
	})

	if rr.Code != http.StatusUnauthorized {
		t.Errorf("status: got %d, want %d", rr.Code, http.StatusUnauthorized)
	}
}

func TestRefresh_StaffRemoved(t *testing.T) {
	refreshToken, err := auth.GenerateRefreshToken(testSecret, uuid.New())
	if err != nil {
		t.Fatalf("generate refresh token: %v", err)
	}
	r := newAuthRouter(newMockStore())

	rr := postJSON(t, r, "/auth/refresh", map[string]string{
		"refresh_token": refreshToken,
	})

	if rr.Code != http.StatusUnauthorized {
		t.Errorf("status: got %d, want %d", rr.Code, http.StatusUnauthorized)
	}
}

func TestRefresh_MissingField(t *testing.T) {
	r := newAuthRouter(newMockStore())

	rr := postJSON(t, r, "/auth/refresh", map[string]string{})

	if rr.Code != http.StatusBadRequest {
		t.Errorf("status: got %d, want %d", rr.Code, http.StatusBadRequest)
	}
}

// --- Access token validation ---

func TestLogin_ReturnsValidAccessToken(t *testing.T) {
	s := newMockStore()
	staff := makeTestStaff(t)
	s.addStaff(staff)
	r := newAuthRouter(s)

	rr := postJSON(t, r, "/auth/login", map[string]string{
		"username": "bruno",
		"password": "correct-password",
	})

	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d", rr.Code, http.StatusOK)
	}

	resp := decodeResponse(t, rr)
	accessToken, ok := resp["access_token"].(string)
	if !ok || accessToken == "" {
		t.Fatal("expected non-empty access_token string")
	}

	claims, err := auth.ValidateToken(testSecret, accessToken)
	if err != nil {
		t.Fatalf("validate access token: %v", err)
	}
	if claims.StaffID != staff.ID {
		t.Errorf("staff ID: got %v, want %v", claims.StaffID, staff.ID)
	}
	if claims.Role != "WAITER" {
		t.Errorf("role: got %v, want WAITER", claims.Role)
	}
}
