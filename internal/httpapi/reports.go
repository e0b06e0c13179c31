package httpapi

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
)

func (a *API) handleReorders(w http.ResponseWriter, r *http.Request) {
	report, err := a.service.Reorder(r.Context())
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeData(w, http.StatusOK, "", report)
}

func (a *API) handleProductMovement(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var productID int64
	if raw := strings.TrimSpace(q.Get("productId")); raw != "" {
		parsed, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || parsed < 1 {
			a.writeError(w, http.StatusBadRequest, errors.New("productId must be a positive integer"))
			return
		}
		productID = parsed
	}

	report, err := a.service.ProductMovement(r.Context(), q.Get("startDate"), q.Get("endDate"), productID)
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeData(w, http.StatusOK, "", report)
}

func (a *API) handleProfitLoss(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	report, err := a.service.ProfitLoss(r.Context(), q.Get("startDate"), q.Get("endDate"))
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeData(w, http.StatusOK, "", report)
}

func (a *API) handleSalesProfit(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	report, err := a.service.SalesProfit(r.Context(), q.Get("startDate"), q.Get("endDate"))
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeData(w, http.StatusOK, "", report)
}

func (a *API) handleDashboardSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := a.service.DashboardSummary(r.Context())
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeData(w, http.StatusOK, "", summary)
}

func (a *API) handleCashierPerformance(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	rows, err := a.service.CashierPerformance(r.Context(), q.Get("startDate"), q.Get("endDate"))
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeData(w, http.StatusOK, "", map[string]any{"cashiers": rows})
}

func (a *API) handleAuditLogs(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit := parsePositiveLimit(q.Get("limit"), 100, 500)
	logs, err := a.service.ListAuditLogs(r.Context(), q.Get("startDate"), q.Get("endDate"), limit)
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeData(w, http.StatusOK, "", map[string]any{"logs": logs})
}
