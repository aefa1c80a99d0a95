package api_test

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/merchantkit/voucher-service/internal/api"
	"github.com/merchantkit/voucher-service/internal/api/middleware"
	"github.com/merchantkit/voucher-service/internal/cache"
	"github.com/merchantkit/voucher-service/internal/service"
	"github.com/merchantkit/voucher-service/internal/service/servicetest"
)

var testSecret = []byte("test-secret")

func setupServer(t *testing.T) (*httptest.Server, *servicetest.MemStore) {
	t.Helper()
	store := servicetest.NewMemStore()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	discountCache := cache.NewDiscountCache()

	codeSvc := service.NewCodeService(store.Codes(), logger)
	discountSvc := service.NewDiscountService(store.Discounts(), store.Codes(), codeSvc, discountCache, logger)
	redemptionSvc := service.NewRedemptionService(store.Discounts(), store.Codes(), store.Usages(), discountCache, logger)

	srv := httptest.NewServer(api.Routes(discountSvc, redemptionSvc, testSecret, logger))
	t.Cleanup(srv.Close)
	return srv, store
}

func tokenFor(t *testing.T, tenantID uuid.UUID) string {
	t.Helper()
	claims := &middleware.TenantClaims{
		TenantID: tenantID.String(),
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(testSecret)
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return token
}

func do(t *testing.T, srv *httptest.Server, method, path, token string, body interface{}) (*http.Response, map[string]interface{}) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req, err := http.NewRequest(method, srv.URL+path, &buf)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := srv.Client().Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()
	var m map[string]interface{}
	raw, _ := io.ReadAll(resp.Body)
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &m); err != nil {
			// health returns a bare body
			m = nil
		}
	}
	return resp, m
}

func TestHealthNeedsNoAuth(t *testing.T) {
	srv, _ := setupServer(t)
	resp, _ := do(t, srv, http.MethodGet, "/health", "", nil)
	if resp.StatusCode != http.StatusOK {
		t.Errorf("health: got %d", resp.StatusCode)
	}
}

func TestAuthRequired(t *testing.T) {
	srv, _ := setupServer(t)

	resp, _ := do(t, srv, http.MethodGet, "/discounts", "", nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("no token: got %d, want 401", resp.StatusCode)
	}

	resp, _ = do(t, srv, http.MethodGet, "/discounts", "not-a-token", nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("bad token: got %d, want 401", resp.StatusCode)
	}
}

func TestDiscountRedemptionFlow(t *testing.T) {
	srv, store := setupServer(t)
	tenantID := uuid.New()
	token := tokenFor(t, tenantID)

	resp, m := do(t, srv, http.MethodPost, "/discounts", token, map[string]interface{}{
		"name":             "Twenty off fifty",
		"kind":             "voucher",
		"type":             "fixed",
		"value":            20,
		"code":             "TWENTY-OFF",
		"min_order_amount": 50,
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create: got %d body %v", resp.StatusCode, m)
	}
	discountID := m["discount"].(map[string]interface{})["id"].(string)

	// Validate is pure and reports the computed amount.
	resp, m = do(t, srv, http.MethodPost, "/redemptions/validate", token, map[string]interface{}{
		"code":        "twenty-off",
		"order_total": 100,
		"item_count":  2,
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("validate: got %d body %v", resp.StatusCode, m)
	}
	if m["valid"] != true || m["amount"] != "20" {
		t.Fatalf("validate: got %v", m)
	}
	id := uuid.MustParse(discountID)
	if store.Discount(id).UsedCount != 0 {
		t.Error("validate incremented used_count")
	}

	// Redeem records usage.
	resp, m = do(t, srv, http.MethodPost, "/redemptions", token, map[string]interface{}{
		"code":        "TWENTY-OFF",
		"order_total": 100,
		"item_count":  2,
		"customer_id": "cust-1",
		"order_id":    "order-1",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("redeem: got %d body %v", resp.StatusCode, m)
	}
	if m["usage_id"] == nil {
		t.Error("redeem response missing usage_id")
	}
	if store.Discount(id).UsedCount != 1 {
		t.Errorf("used_count %d, want 1", store.Discount(id).UsedCount)
	}

	resp, m = do(t, srv, http.MethodGet, "/discounts/"+discountID+"/usages", token, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("usages: got %d", resp.StatusCode)
	}
	if usages := m["usages"].([]interface{}); len(usages) != 1 {
		t.Errorf("usages %d, want 1", len(usages))
	}

	// Below the minimum: specific rejection, nothing recorded.
	resp, m = do(t, srv, http.MethodPost, "/redemptions", token, map[string]interface{}{
		"code":        "TWENTY-OFF",
		"order_total": 10,
		"item_count":  1,
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("rejected redeem: got %d", resp.StatusCode)
	}
	if m["valid"] != false || m["reason"] != "below_minimum" {
		t.Errorf("got %v, want below_minimum rejection", m)
	}
	if store.Discount(id).UsedCount != 1 {
		t.Error("rejected redemption incremented used_count")
	}
}

func TestCreateRejectsOutOfRangePercentage(t *testing.T) {
	srv, _ := setupServer(t)
	token := tokenFor(t, uuid.New())

	resp, m := do(t, srv, http.MethodPost, "/discounts", token, map[string]interface{}{
		"name":  "Too generous",
		"kind":  "voucher",
		"type":  "percentage",
		"value": 150,
	})
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("got %d body %v, want 400", resp.StatusCode, m)
	}
}

func TestDuplicateEndpoint(t *testing.T) {
	srv, _ := setupServer(t)
	tenantID := uuid.New()
	token := tokenFor(t, tenantID)

	resp, m := do(t, srv, http.MethodPost, "/discounts", token, map[string]interface{}{
		"name":  "Summer",
		"kind":  "voucher",
		"type":  "percentage",
		"value": 10,
		"code":  "SUMMER",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create: got %d", resp.StatusCode)
	}
	discountID := m["discount"].(map[string]interface{})["id"].(string)

	resp, m = do(t, srv, http.MethodPost, "/discounts/"+discountID+"/duplicate", token, nil)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("duplicate: got %d body %v", resp.StatusCode, m)
	}
	code := m["code"].(map[string]interface{})
	if code["code"] != "SUMMER_COPY" {
		t.Errorf("got %v, want SUMMER_COPY", code["code"])
	}
	dup := m["discount"].(map[string]interface{})
	if dup["is_active"] != false {
		t.Error("duplicate should start deactivated")
	}
}

func TestTenantIsolationViaToken(t *testing.T) {
	srv, _ := setupServer(t)
	tenantA := uuid.New()

	resp, m := do(t, srv, http.MethodPost, "/discounts", tokenFor(t, tenantA), map[string]interface{}{
		"name":  "Private",
		"kind":  "voucher",
		"type":  "percentage",
		"value": 10,
		"code":  "PRIVATE",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create: got %d", resp.StatusCode)
	}
	discountID := m["discount"].(map[string]interface{})["id"].(string)

	// Another tenant's token cannot see or redeem it.
	tokenB := tokenFor(t, uuid.New())
	resp, _ = do(t, srv, http.MethodGet, "/discounts/"+discountID, tokenB, nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("cross-tenant get: got %d, want 404", resp.StatusCode)
	}
	resp, m = do(t, srv, http.MethodPost, "/redemptions/validate", tokenB, map[string]interface{}{
		"code":        "PRIVATE",
		"order_total": 100,
	})
	if resp.StatusCode != http.StatusOK || m["reason"] != "not_found" {
		t.Errorf("cross-tenant validate: got %d %v, want not_found", resp.StatusCode, m)
	}
}
