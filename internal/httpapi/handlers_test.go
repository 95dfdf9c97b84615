package httpapi

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"gudangpos/internal/domain"
	"gudangpos/internal/service"
	"gudangpos/internal/store/memory"
)

// newTestAPI builds a full API with an in-memory store, real AuthManager and
// real Service so handler tests exercise the complete request path.
func newTestAPI(t *testing.T) *API {
	t.Helper()

	repo := memory.NewSeeded()
	svc := service.New(repo, nil, time.Minute)
	auth := NewAuthManager("test-secret-key", time.Hour, repo)

	return New(svc, auth, "*")
}

func loginAs(t *testing.T, api *API, username, password string) string {
	t.Helper()

	body, _ := json.Marshal(domain.LoginRequest{Username: username, Password: password})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()

	api.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("login as %s failed: %d %s", username, rec.Code, rec.Body.String())
	}

	var payload domain.LoginResponse
	if err := json.NewDecoder(rec.Body).Decode(&payload); err != nil {
		t.Fatalf("decode login response: %v", err)
	}
	if payload.AccessToken == "" {
		t.Fatalf("expected access token in login response")
	}
	return payload.AccessToken
}

func doJSON(t *testing.T, api *API, method, path, token string, payload any) *httptest.ResponseRecorder {
	t.Helper()

	var body *bytes.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			t.Fatalf("marshal payload: %v", err)
		}
		body = bytes.NewReader(raw)
	} else {
		body = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	api.Handler().ServeHTTP(rec, req)
	return rec
}

func TestHandleHealth(t *testing.T) {
	api := newTestAPI(t)

	rec := doJSON(t, api, http.MethodGet, "/healthz", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var body map[string]any
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body["ok"] != true {
		t.Fatalf("expected ok:true, got %v", body["ok"])
	}
}

func TestHandleLoginInvalidCredentials(t *testing.T) {
	api := newTestAPI(t)

	rec := doJSON(t, api, http.MethodPost, "/api/v1/auth/login", "", domain.LoginRequest{
		Username: "ceo",
		Password: "wrongpassword",
	})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d (body: %s)", rec.Code, rec.Body.String())
	}
}

func TestMasterItemsRequireAuth(t *testing.T) {
	api := newTestAPI(t)

	rec := doJSON(t, api, http.MethodGet, "/api/v1/master-items", "", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestTransferFlow(t *testing.T) {
	api := newTestAPI(t)
	token := loginAs(t, api, "ceo", "ceo123")

	rec := doJSON(t, api, http.MethodPost, "/api/v1/transfers", token, domain.TransferRequest{
		ManagerID:         "manager",
		MasterItemID:      "itm-beras-01",
		Quantity:          30,
		SellingPriceCents: 7500000,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (body: %s)", rec.Code, rec.Body.String())
	}

	var resp domain.TransferResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode transfer response: %v", err)
	}
	if resp.ManagerItem.CurrentQuantity != 30 {
		t.Fatalf("expected quantity 30, got %d", resp.ManagerItem.CurrentQuantity)
	}
}

func TestTransferForbiddenForCashier(t *testing.T) {
	api := newTestAPI(t)
	token := loginAs(t, api, "cashier", "cashier123")

	rec := doJSON(t, api, http.MethodPost, "/api/v1/transfers", token, domain.TransferRequest{
		ManagerID:         "manager",
		MasterItemID:      "itm-beras-01",
		Quantity:          10,
		SellingPriceCents: 7500000,
	})
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rec.Code)
	}
}

func TestTransferInsufficientStockConflicts(t *testing.T) {
	api := newTestAPI(t)
	token := loginAs(t, api, "ceo", "ceo123")

	rec := doJSON(t, api, http.MethodPost, "/api/v1/transfers", token, domain.TransferRequest{
		ManagerID:         "manager",
		MasterItemID:      "itm-beras-01",
		Quantity:          100000,
		SellingPriceCents: 7500000,
	})
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d (body: %s)", rec.Code, rec.Body.String())
	}
}

func TestTransferUnknownItemNotFound(t *testing.T) {
	api := newTestAPI(t)
	token := loginAs(t, api, "ceo", "ceo123")

	rec := doJSON(t, api, http.MethodPost, "/api/v1/transfers", token, domain.TransferRequest{
		ManagerID:         "manager",
		MasterItemID:      "itm-missing",
		Quantity:          1,
		SellingPriceCents: 7500000,
	})
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestBillFlow(t *testing.T) {
	api := newTestAPI(t)
	ceoToken := loginAs(t, api, "ceo", "ceo123")

	transferRec := doJSON(t, api, http.MethodPost, "/api/v1/transfers", ceoToken, domain.TransferRequest{
		ManagerID:         "manager",
		MasterItemID:      "itm-gula-01",
		Quantity:          50,
		SellingPriceCents: 1900000,
	})
	if transferRec.Code != http.StatusOK {
		t.Fatalf("transfer failed: %d %s", transferRec.Code, transferRec.Body.String())
	}
	var transfer domain.TransferResponse
	if err := json.NewDecoder(transferRec.Body).Decode(&transfer); err != nil {
		t.Fatalf("decode transfer response: %v", err)
	}

	cashierToken := loginAs(t, api, "cashier", "cashier123")
	billRec := doJSON(t, api, http.MethodPost, "/api/v1/bills", cashierToken, domain.BillCreateRequest{
		ManagerID: "manager",
		Lines: []domain.BillLine{
			{ManagerInventoryID: transfer.ManagerItem.ID, Quantity: 5, UnitPriceCents: 1900000},
		},
	})
	if billRec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d (body: %s)", billRec.Code, billRec.Body.String())
	}
	var bill domain.BillResponse
	if err := json.NewDecoder(billRec.Body).Decode(&bill); err != nil {
		t.Fatalf("decode bill response: %v", err)
	}
	if bill.Bill.TotalAmountCents != 9500000 {
		t.Fatalf("expected total 9500000, got %d", bill.Bill.TotalAmountCents)
	}

	getRec := doJSON(t, api, http.MethodGet, "/api/v1/bills/"+bill.Bill.BillNumber, cashierToken, nil)
	if getRec.Code != http.StatusOK {
		t.Fatalf("expected 200 fetching bill, got %d", getRec.Code)
	}

	oversellRec := doJSON(t, api, http.MethodPost, "/api/v1/bills", cashierToken, domain.BillCreateRequest{
		ManagerID: "manager",
		Lines: []domain.BillLine{
			{ManagerInventoryID: transfer.ManagerItem.ID, Quantity: 100, UnitPriceCents: 1900000},
		},
	})
	if oversellRec.Code != http.StatusConflict {
		t.Fatalf("expected 409 for oversell, got %d (body: %s)", oversellRec.Code, oversellRec.Body.String())
	}
}

func TestPaySalaryInvalidMonthBadRequest(t *testing.T) {
	api := newTestAPI(t)
	token := loginAs(t, api, "manager", "manager123")

	rec := doJSON(t, api, http.MethodPost, "/api/v1/salaries/pay", token, domain.PaySalaryRequest{
		UserID:       "emp-1",
		PaymentMonth: "08-2026",
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d (body: %s)", rec.Code, rec.Body.String())
	}
}

func TestUsersEndpointOnlyForCEO(t *testing.T) {
	api := newTestAPI(t)
	managerToken := loginAs(t, api, "manager", "manager123")

	rec := doJSON(t, api, http.MethodGet, "/api/v1/users", managerToken, nil)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for manager, got %d", rec.Code)
	}

	ceoToken := loginAs(t, api, "ceo", "ceo123")
	rec = doJSON(t, api, http.MethodGet, "/api/v1/users", ceoToken, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 for ceo, got %d", rec.Code)
	}
}
