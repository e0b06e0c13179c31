package httpapi

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"posadmin/backend/internal/domain"
)

func (a *API) handleAddToCart(w http.ResponseWriter, r *http.Request) {
	var req domain.CartAddRequest
	if err := decodeJSON(r, &req); err != nil {
		a.writeError(w, http.StatusBadRequest, err)
		return
	}

	item, err := a.service.AddToCart(r.Context(), req)
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeData(w, http.StatusCreated, "item added to cart", map[string]any{"item": item})
}

func (a *API) handleListCart(w http.ResponseWriter, r *http.Request) {
	cart, err := a.service.ListCart(r.Context())
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeData(w, http.StatusOK, "", cart)
}

func (a *API) handleUpdateCartItem(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		a.writeError(w, http.StatusBadRequest, err)
		return
	}
	var req domain.CartUpdateRequest
	if err := decodeJSON(r, &req); err != nil {
		a.writeError(w, http.StatusBadRequest, err)
		return
	}

	item, err := a.service.UpdateCartItem(r.Context(), id, req)
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeData(w, http.StatusOK, "cart item updated", map[string]any{"item": item})
}

func (a *API) handleClearCart(w http.ResponseWriter, r *http.Request) {
	removed, err := a.service.ClearCart(r.Context())
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeData(w, http.StatusOK, "cart cleared", map[string]int64{"removed": removed})
}

func (a *API) handleCheckout(w http.ResponseWriter, r *http.Request) {
	var req domain.CheckoutRequest
	if err := decodeJSON(r, &req); err != nil {
		a.writeError(w, http.StatusBadRequest, err)
		return
	}
	if key := strings.TrimSpace(r.Header.Get("Idempotency-Key")); key != "" {
		req.IdempotencyKey = key
	}

	resp, err := a.service.Checkout(r.Context(), req)
	if err != nil {
		a.writeServiceError(w, err)
		return
	}

	status, message := http.StatusCreated, "payment recorded"
	if resp.Duplicate {
		status, message = http.StatusOK, "payment already recorded"
	}
	writeData(w, status, message, resp)
}

func (a *API) handleCheckoutLookup(w http.ResponseWriter, r *http.Request) {
	key := strings.TrimSpace(chi.URLParam(r, "key"))
	resp, err := a.service.LookupCheckoutByIdempotency(r.Context(), key)
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeData(w, http.StatusOK, "", resp)
}

func (a *API) handleGetPayment(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		a.writeError(w, http.StatusBadRequest, err)
		return
	}
	payment, err := a.service.GetPayment(r.Context(), id)
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeData(w, http.StatusOK, "", map[string]any{"payment": payment})
}

func (a *API) handleListPayments(w http.ResponseWriter, r *http.Request) {
	limit := parsePositiveLimit(r.URL.Query().Get("limit"), 50, 500)
	payments, err := a.service.ListPayments(r.Context(), limit)
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeData(w, http.StatusOK, "", map[string]any{"payments": payments})
}

func (a *API) handleCreateReturn(w http.ResponseWriter, r *http.Request) {
	var req domain.ReturnRequest
	if err := decodeJSON(r, &req); err != nil {
		a.writeError(w, http.StatusBadRequest, err)
		return
	}

	ret, err := a.service.ProcessReturn(r.Context(), req)
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeData(w, http.StatusCreated, "return recorded", map[string]any{"return": ret})
}

func (a *API) handleListReturns(w http.ResponseWriter, r *http.Request) {
	limit := parsePositiveLimit(r.URL.Query().Get("limit"), 50, 500)
	returns, err := a.service.ListReturns(r.Context(), limit)
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeData(w, http.StatusOK, "", map[string]any{"returns": returns})
}
