// Package httpapi exposes the register service over HTTP with JWT auth.
package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"padelclub/backend/internal/domain"
	"padelclub/backend/internal/service"
	"padelclub/backend/internal/store"
)

type API struct {
	svc           *service.Service
	auth          *AuthManager
	allowedOrigin string
}

func New(svc *service.Service, auth *AuthManager, allowedOrigin string) *API {
	return &API{svc: svc, auth: auth, allowedOrigin: allowedOrigin}
}

func (a *API) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/healthz", a.handleHealth)
	mux.HandleFunc("/api/v1/auth/login", a.handleLogin)
	mux.HandleFunc("/api/v1/auth/elevate", a.requireAuth(a.handleElevate, domain.RoleOperator, domain.RoleSupervisor))

	mux.HandleFunc("/api/v1/products", a.requireAuth(a.handleProducts, domain.RoleOperator, domain.RoleSupervisor))
	mux.HandleFunc("/api/v1/products/", a.requireAuth(a.handleProductActions, domain.RoleOperator, domain.RoleSupervisor))
	mux.HandleFunc("/api/v1/courts", a.requireAuth(a.handleCourts, domain.RoleOperator, domain.RoleSupervisor))
	mux.HandleFunc("/api/v1/services", a.requireAuth(a.handleServices, domain.RoleOperator, domain.RoleSupervisor))

	mux.HandleFunc("/api/v1/turns", a.requireAuth(a.handleTurns, domain.RoleOperator, domain.RoleSupervisor))
	mux.HandleFunc("/api/v1/turns/active", a.requireAuth(a.handleTurnActive, domain.RoleOperator, domain.RoleSupervisor))
	mux.HandleFunc("/api/v1/turns/close", a.requireAuth(a.handleTurnClose, domain.RoleOperator, domain.RoleSupervisor))
	mux.HandleFunc("/api/v1/turns/closures", a.requireAuth(a.handleTurnClosures, domain.RoleOperator, domain.RoleSupervisor))

	mux.HandleFunc("/api/v1/withdrawals", a.requireAuth(a.handleWithdrawals, domain.RoleOperator, domain.RoleSupervisor))
	mux.HandleFunc("/api/v1/expenses", a.requireAuth(a.handleExpenses, domain.RoleOperator, domain.RoleSupervisor))
	mux.HandleFunc("/api/v1/checkout", a.requireAuth(a.handleCheckout, domain.RoleOperator, domain.RoleSupervisor))

	mux.HandleFunc("/api/v1/ledger", a.requireAuth(a.handleLedger, domain.RoleOperator, domain.RoleSupervisor))
	mux.HandleFunc("/api/v1/ledger/totals", a.requireAuth(a.handleLedgerTotals, domain.RoleOperator, domain.RoleSupervisor))
	mux.HandleFunc("/api/v1/ledger/export", a.requireAuth(a.handleLedgerExport, domain.RoleOperator, domain.RoleSupervisor))
	mux.HandleFunc("/api/v1/ledger/", a.requireAuth(a.handleLedgerActions, domain.RoleSupervisor))

	mux.HandleFunc("/api/v1/bills", a.requireAuth(a.handleBills, domain.RoleOperator, domain.RoleSupervisor))
	mux.HandleFunc("/api/v1/bills/", a.requireAuth(a.handleBillActions, domain.RoleOperator, domain.RoleSupervisor))

	mux.HandleFunc("/api/v1/audit-logs", a.requireAuth(a.handleAuditLogs, domain.RoleSupervisor))

	return a.cors(mux)
}

func (a *API) cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", a.allowedOrigin)
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PATCH, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (a *API) requireAuth(next http.HandlerFunc, roles ...string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			writeError(w, http.StatusUnauthorized, errors.New("missing bearer token"))
			return
		}
		actor, err := a.auth.ParseToken(strings.TrimPrefix(header, "Bearer "))
		if err != nil {
			writeError(w, http.StatusUnauthorized, err)
			return
		}
		allowed := false
		for _, role := range roles {
			if actor.Role == role {
				allowed = true
				break
			}
		}
		if !allowed {
			writeError(w, http.StatusForbidden, errors.New("forbidden role"))
			return
		}
		next(w, r.WithContext(service.WithActor(r.Context(), actor)))
	}
}

// ---- auth ----

func (a *API) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "time": time.Now().UTC()})
}

func (a *API) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, errMethod)
		return
	}
	var req domain.LoginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	resp, err := a.auth.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, ErrTooManyAttempts):
			writeError(w, http.StatusTooManyRequests, err)
		case errors.Is(err, ErrInvalidCredentials):
			writeError(w, http.StatusUnauthorized, err)
		default:
			writeError(w, http.StatusInternalServerError, err)
		}
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (a *API) handleElevate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, errMethod)
		return
	}
	var req domain.ElevateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	actor := service.ActorFromContext(r.Context())
	resp, err := a.auth.Elevate(actor, req.PIN)
	if err != nil {
		switch {
		case errors.Is(err, ErrTooManyAttempts):
			writeError(w, http.StatusTooManyRequests, err)
		case errors.Is(err, ErrInvalidCredentials):
			writeError(w, http.StatusUnauthorized, err)
		default:
			writeError(w, http.StatusInternalServerError, err)
		}
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// ---- catalogs ----

func (a *API) handleProducts(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		products, err := a.svc.ListProducts(r.Context())
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"products": products})
	case http.MethodPost:
		var req domain.ProductRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		product, err := a.svc.CreateProduct(r.Context(), req)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]any{"product": product})
	default:
		writeError(w, http.StatusMethodNotAllowed, errMethod)
	}
}

// handleProductActions routes /api/v1/products/{id}[/stock|/movements].
func (a *API) handleProductActions(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/v1/products/")
	parts := strings.Split(strings.Trim(rest, "/"), "/")
	if len(parts) == 0 || parts[0] == "" {
		writeError(w, http.StatusBadRequest, errors.New("product id required"))
		return
	}
	id := parts[0]

	if len(parts) == 1 {
		if r.Method != http.MethodPatch {
			writeError(w, http.StatusMethodNotAllowed, errMethod)
			return
		}
		var req domain.ProductUpdateRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		product, err := a.svc.UpdateProduct(r.Context(), id, req)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"product": product})
		return
	}

	switch parts[1] {
	case "stock":
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, errMethod)
			return
		}
		var req domain.StockAdjustRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		product, err := a.svc.AdjustStock(r.Context(), id, req)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"product": product})
	case "movements":
		if r.Method != http.MethodGet {
			writeError(w, http.StatusMethodNotAllowed, errMethod)
			return
		}
		movements, err := a.svc.StockMovements(r.Context(), id)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"movements": movements})
	default:
		writeError(w, http.StatusNotFound, errors.New("unknown product action"))
	}
}

func (a *API) handleCourts(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, errMethod)
		return
	}
	courts, err := a.svc.ListCourts(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"courts": courts})
}

func (a *API) handleServices(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, errMethod)
		return
	}
	services, err := a.svc.ListCourtServices(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"services": services})
}

// ---- turns ----

func (a *API) handleTurns(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		turns, err := a.svc.ListTurns(r.Context())
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"turns": turns})
	case http.MethodPost:
		var req domain.StartTurnRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		turn, err := a.svc.StartTurn(r.Context(), req)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]any{"turn": turn})
	default:
		writeError(w, http.StatusMethodNotAllowed, errMethod)
	}
}

func (a *API) handleTurnActive(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, errMethod)
		return
	}
	turn, err := a.svc.ActiveTurn(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"turn": turn})
}

func (a *API) handleTurnClose(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, errMethod)
		return
	}
	var req domain.CloseTurnRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	closure, err := a.svc.CloseTurn(r.Context(), req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"closure": closure})
}

func (a *API) handleTurnClosures(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, errMethod)
		return
	}
	closures, err := a.svc.ListTurnClosures(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"closures": closures})
}

// ---- register movements ----

func (a *API) handleWithdrawals(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, errMethod)
		return
	}
	var req domain.WithdrawalRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	withdrawal, err := a.svc.WithdrawCash(r.Context(), req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"withdrawal": withdrawal})
}

func (a *API) handleExpenses(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, errMethod)
		return
	}
	var req domain.ExpenseRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	expense, err := a.svc.AddExpense(r.Context(), req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"expense": expense})
}

func (a *API) handleCheckout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, errMethod)
		return
	}
	var req domain.CheckoutRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	sale, err := a.svc.CheckoutSale(r.Context(), req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"sale": sale})
}

// ---- ledger ----

func ledgerFilterFromQuery(r *http.Request) domain.LedgerFilter {
	q := r.URL.Query()
	f := domain.LedgerFilter{
		Search: q.Get("search"),
		Method: q.Get("method"),
		Kind:   q.Get("kind"),
	}
	if v := q.Get("from"); v != "" {
		if t, err := time.Parse("2006-01-02", v); err == nil {
			f.DateFrom = t
		}
	}
	if v := q.Get("to"); v != "" {
		if t, err := time.Parse("2006-01-02", v); err == nil {
			// Inclusive day bound.
			f.DateTo = t.Add(24*time.Hour - time.Nanosecond)
		}
	}
	return f
}

func (a *API) handleLedger(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, errMethod)
		return
	}
	entries, err := a.svc.FilteredLedger(r.Context(), r.URL.Query().Get("turn_id"), ledgerFilterFromQuery(r))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"entries": entries})
}

func (a *API) handleLedgerTotals(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, errMethod)
		return
	}
	totals, err := a.svc.LedgerTotals(r.Context(), r.URL.Query().Get("turn_id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"totals": totals})
}

func (a *API) handleLedgerExport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, errMethod)
		return
	}
	data, err := a.svc.ExportLedgerCSV(r.Context(), r.URL.Query().Get("turn_id"), ledgerFilterFromQuery(r))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=ledger-%s.csv", time.Now().UTC().Format("20060102-150405")))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// handleLedgerActions routes /api/v1/ledger/{id}/reverse. Supervisor
// only; the service rechecks the role.
func (a *API) handleLedgerActions(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/v1/ledger/")
	parts := strings.Split(strings.Trim(rest, "/"), "/")
	if len(parts) != 2 || parts[1] != "reverse" {
		writeError(w, http.StatusNotFound, errors.New("unknown ledger action"))
		return
	}
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, errMethod)
		return
	}
	if err := a.svc.ReverseTransaction(r.Context(), parts[0]); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"reversed": parts[0]})
}

// ---- open bills ----

func (a *API) handleBills(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		bills, err := a.svc.ListOpenBills(r.Context())
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"bills": bills})
	case http.MethodPost:
		var req domain.OpenBillRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		bill, err := a.svc.CreateOpenBill(r.Context(), req)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]any{"bill": bill})
	default:
		writeError(w, http.StatusMethodNotAllowed, errMethod)
	}
}

// handleBillActions routes
//
//	GET    /api/v1/bills/{id}
//	POST   /api/v1/bills/{id}/items/catalog
//	POST   /api/v1/bills/{id}/items/custom
//	POST   /api/v1/bills/{id}/items/service
//	PATCH  /api/v1/bills/{id}/lines/{lineID}
//	DELETE /api/v1/bills/{id}/lines/{lineID}
//	POST   /api/v1/bills/{id}/close
//	POST   /api/v1/bills/{id}/cancel
func (a *API) handleBillActions(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/v1/bills/")
	parts := strings.Split(strings.Trim(rest, "/"), "/")
	if len(parts) == 0 || parts[0] == "" {
		writeError(w, http.StatusBadRequest, errors.New("reservation id required"))
		return
	}
	reservationID := parts[0]

	if len(parts) == 1 {
		if r.Method != http.MethodGet {
			writeError(w, http.StatusMethodNotAllowed, errMethod)
			return
		}
		bill, err := a.svc.GetOpenBill(r.Context(), reservationID)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"bill": bill})
		return
	}

	switch parts[1] {
	case "items":
		if len(parts) != 3 || r.Method != http.MethodPost {
			writeError(w, http.StatusNotFound, errors.New("unknown bill action"))
			return
		}
		a.handleBillAddItem(w, r, reservationID, parts[2])
	case "lines":
		if len(parts) != 3 {
			writeError(w, http.StatusNotFound, errors.New("unknown bill action"))
			return
		}
		a.handleBillLine(w, r, reservationID, parts[2])
	case "close":
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, errMethod)
			return
		}
		var req domain.CloseBillRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		closed, err := a.svc.CloseBill(r.Context(), reservationID, req)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"bill": closed})
	case "cancel":
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, errMethod)
			return
		}
		if err := a.svc.CancelBill(r.Context(), reservationID); err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"cancelled": reservationID})
	default:
		writeError(w, http.StatusNotFound, errors.New("unknown bill action"))
	}
}

func (a *API) handleBillAddItem(w http.ResponseWriter, r *http.Request, reservationID, kind string) {
	var (
		bill *domain.OpenBill
		err  error
	)
	switch kind {
	case "catalog":
		var req domain.CatalogLineRequest
		if err = decodeJSON(r, &req); err == nil {
			bill, err = a.svc.AddCatalogItem(r.Context(), reservationID, req)
		}
	case "custom":
		var req domain.CustomChargeRequest
		if err = decodeJSON(r, &req); err == nil {
			bill, err = a.svc.AddCustomCharge(r.Context(), reservationID, req)
		}
	case "service":
		var req domain.ServiceLineRequest
		if err = decodeJSON(r, &req); err == nil {
			bill, err = a.svc.AddServiceLine(r.Context(), reservationID, req)
		}
	default:
		writeError(w, http.StatusNotFound, errors.New("unknown line kind"))
		return
	}
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"bill": bill})
}

func (a *API) handleBillLine(w http.ResponseWriter, r *http.Request, reservationID, lineID string) {
	switch r.Method {
	case http.MethodPatch:
		var req domain.EditLinePriceRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		bill, err := a.svc.EditLinePrice(r.Context(), reservationID, lineID, req)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"bill": bill})
	case http.MethodDelete:
		bill, err := a.svc.RemoveLine(r.Context(), reservationID, lineID)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"bill": bill})
	default:
		writeError(w, http.StatusMethodNotAllowed, errMethod)
	}
}

// ---- audit ----

func (a *API) handleAuditLogs(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, errMethod)
		return
	}
	limit := 100
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}
	logs, err := a.svc.AuditLogs(r.Context(), limit)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"audit_logs": logs})
}

// ---- helpers ----

var errMethod = errors.New("method not allowed")

func decodeJSON(r *http.Request, v any) error {
	defer r.Body.Close()
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]any{"error": err.Error()})
}

// writeServiceError maps store and service sentinels to HTTP statuses.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, err)
	case errors.Is(err, store.ErrInvalidRecord):
		writeError(w, http.StatusBadRequest, err)
	case errors.Is(err, store.ErrPaymentMismatch):
		writeError(w, http.StatusUnprocessableEntity, err)
	case errors.Is(err, store.ErrOutOfStock),
		errors.Is(err, store.ErrInsufficientStock),
		errors.Is(err, store.ErrInsufficientCash),
		errors.Is(err, store.ErrTurnActive),
		errors.Is(err, store.ErrNoActiveTurn),
		errors.Is(err, store.ErrBillClosed),
		errors.Is(err, store.ErrStaleBill),
		errors.Is(err, store.ErrDuplicate):
		writeError(w, http.StatusConflict, err)
	case errors.Is(err, service.ErrSupervisorRequired):
		writeError(w, http.StatusForbidden, err)
	default:
		writeError(w, http.StatusInternalServerError, err)
	}
}
