package httpapi

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"padelclub/backend/internal/domain"
	"padelclub/backend/internal/service"
	"padelclub/backend/internal/store/memory"
)

type testServer struct {
	srv  *httptest.Server
	repo *memory.Store
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	repo := memory.NewSeeded()
	svc := service.New(repo, nil)
	auth, err := NewAuthManager(repo, "0123456789abcdef0123456789abcdef", time.Hour, "492817")
	if err != nil {
		t.Fatalf("auth manager: %v", err)
	}
	api := New(svc, auth, "*")
	srv := httptest.NewServer(api.Handler())
	t.Cleanup(srv.Close)
	return &testServer{srv: srv, repo: repo}
}

func (ts *testServer) do(t *testing.T, method, path, token string, body any) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req, err := http.NewRequest(method, ts.srv.URL+path, &buf)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, v any) {
	t.Helper()
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}

func login(t *testing.T, ts *testServer, username, password string) string {
	t.Helper()
	resp := ts.do(t, http.MethodPost, "/api/v1/auth/login", "", domain.LoginRequest{Username: username, Password: password})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("login status %d", resp.StatusCode)
	}
	var out domain.LoginResponse
	decodeBody(t, resp, &out)
	return out.Token
}

func TestRoutesRequireAuth(t *testing.T) {
	ts := newTestServer(t)
	resp := ts.do(t, http.MethodGet, "/api/v1/products", "", nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.StatusCode)
	}
}

func TestCheckoutFlowOverHTTP(t *testing.T) {
	ts := newTestServer(t)
	token := login(t, ts, "admin", "admin123")

	resp := ts.do(t, http.MethodPost, "/api/v1/turns", token,
		domain.StartTurnRequest{AdminName: "lucia", OpeningCash: 5000})
	resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("start turn status %d", resp.StatusCode)
	}

	var products struct {
		Products []domain.Product `json:"products"`
	}
	resp = ts.do(t, http.MethodGet, "/api/v1/products", token, nil)
	decodeBody(t, resp, &products)
	if len(products.Products) == 0 {
		t.Fatalf("no seed products")
	}
	var agua domain.Product
	for _, p := range products.Products {
		if p.Name == "Agua Mineral 500ml" {
			agua = p
		}
	}

	var sale struct {
		Sale domain.Sale `json:"sale"`
	}
	resp = ts.do(t, http.MethodPost, "/api/v1/checkout", token, domain.CheckoutRequest{
		Items:         []domain.CartItem{{ProductID: agua.ID, Qty: 2}},
		PaymentMethod: domain.PayMethodCash,
		CustomerName:  "Maria",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("checkout status %d", resp.StatusCode)
	}
	decodeBody(t, resp, &sale)
	if sale.Sale.Total != 1000 {
		t.Fatalf("sale total: expected 1000, got %d", sale.Sale.Total)
	}

	var ledgerResp struct {
		Entries []domain.Transaction `json:"entries"`
	}
	resp = ts.do(t, http.MethodGet, "/api/v1/ledger", token, nil)
	decodeBody(t, resp, &ledgerResp)
	if len(ledgerResp.Entries) != 2 {
		t.Fatalf("expected sale + opening float, got %d entries", len(ledgerResp.Entries))
	}

	var totalsResp struct {
		Totals domain.TurnTotals `json:"totals"`
	}
	resp = ts.do(t, http.MethodGet, "/api/v1/ledger/totals", token, nil)
	decodeBody(t, resp, &totalsResp)
	if totalsResp.Totals.Cash != 6000 {
		t.Fatalf("cash total: expected 6000, got %d", totalsResp.Totals.Cash)
	}
}

func TestOversellMapsToConflict(t *testing.T) {
	ts := newTestServer(t)
	token := login(t, ts, "admin", "admin123")
	resp := ts.do(t, http.MethodPost, "/api/v1/turns", token, domain.StartTurnRequest{AdminName: "lucia"})
	resp.Body.Close()

	var products struct {
		Products []domain.Product `json:"products"`
	}
	resp = ts.do(t, http.MethodGet, "/api/v1/products", token, nil)
	decodeBody(t, resp, &products)

	resp = ts.do(t, http.MethodPost, "/api/v1/checkout", token, domain.CheckoutRequest{
		Items:         []domain.CartItem{{ProductID: products.Products[0].ID, Qty: 9999}},
		PaymentMethod: domain.PayMethodCash,
	})
	resp.Body.Close()
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("expected 409 for oversell, got %d", resp.StatusCode)
	}
}

func TestReverseRequiresSupervisorToken(t *testing.T) {
	ts := newTestServer(t)
	operator := login(t, ts, "admin", "admin123")
	resp := ts.do(t, http.MethodPost, "/api/v1/turns", operator, domain.StartTurnRequest{AdminName: "lucia", OpeningCash: 1000})
	resp.Body.Close()

	var ledgerResp struct {
		Entries []domain.Transaction `json:"entries"`
	}
	resp = ts.do(t, http.MethodGet, "/api/v1/ledger", operator, nil)
	decodeBody(t, resp, &ledgerResp)
	if len(ledgerResp.Entries) != 1 {
		t.Fatalf("expected the opening float entry, got %d", len(ledgerResp.Entries))
	}
	target := ledgerResp.Entries[0].ID

	resp = ts.do(t, http.MethodPost, fmt.Sprintf("/api/v1/ledger/%s/reverse", target), operator, nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("operator reverse: expected 403, got %d", resp.StatusCode)
	}

	// Elevate with the register PIN, then retry.
	var elevated domain.LoginResponse
	resp = ts.do(t, http.MethodPost, "/api/v1/auth/elevate", operator, domain.ElevateRequest{PIN: "492817"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("elevate status %d", resp.StatusCode)
	}
	decodeBody(t, resp, &elevated)

	resp = ts.do(t, http.MethodPost, fmt.Sprintf("/api/v1/ledger/%s/reverse", target), elevated.Token, nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("supervisor reverse: expected 200, got %d", resp.StatusCode)
	}

	resp = ts.do(t, http.MethodGet, "/api/v1/ledger", elevated.Token, nil)
	decodeBody(t, resp, &ledgerResp)
	if len(ledgerResp.Entries) != 0 {
		t.Fatalf("reversed entry must leave the ledger, got %d entries", len(ledgerResp.Entries))
	}
}

func TestLedgerExportReturnsCSV(t *testing.T) {
	ts := newTestServer(t)
	token := login(t, ts, "admin", "admin123")
	resp := ts.do(t, http.MethodPost, "/api/v1/turns", token, domain.StartTurnRequest{AdminName: "lucia", OpeningCash: 1500})
	resp.Body.Close()

	resp = ts.do(t, http.MethodGet, "/api/v1/ledger/export", token, nil)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("export status %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "text/csv; charset=utf-8" {
		t.Fatalf("unexpected content type %q", ct)
	}
}
