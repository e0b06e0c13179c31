package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"posadmin/backend/internal/domain"
)

func (a *API) handleRecordPurchases(w http.ResponseWriter, r *http.Request) {
	var req domain.PurchaseRequest
	if err := decodeJSON(r, &req); err != nil {
		a.writeError(w, http.StatusBadRequest, err)
		return
	}

	rows, err := a.service.RecordPurchases(r.Context(), req)
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeData(w, http.StatusCreated, "purchases recorded", map[string]any{"purchases": rows})
}

func (a *API) handleListPurchases(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	rows, err := a.service.ListPurchases(r.Context(), q.Get("startDate"), q.Get("endDate"))
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeData(w, http.StatusOK, "", map[string]any{"purchases": rows})
}

func (a *API) handleListProducts(w http.ResponseWriter, r *http.Request) {
	products, err := a.service.ListProducts(r.Context())
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeData(w, http.StatusOK, "", map[string]any{"products": products})
}

func (a *API) handleGetProduct(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		a.writeError(w, http.StatusBadRequest, err)
		return
	}
	product, err := a.service.GetProduct(r.Context(), id)
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeData(w, http.StatusOK, "", map[string]any{"product": product})
}

func (a *API) handleCreateProduct(w http.ResponseWriter, r *http.Request) {
	var req domain.ProductCreateRequest
	if err := decodeJSON(r, &req); err != nil {
		a.writeError(w, http.StatusBadRequest, err)
		return
	}
	product, err := a.service.CreateProduct(r.Context(), req)
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeData(w, http.StatusCreated, "product created", map[string]any{"product": product})
}

func (a *API) handleCreateCustomer(w http.ResponseWriter, r *http.Request) {
	var req domain.CustomerCreateRequest
	if err := decodeJSON(r, &req); err != nil {
		a.writeError(w, http.StatusBadRequest, err)
		return
	}
	customer, err := a.service.CreateCustomer(r.Context(), req)
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeData(w, http.StatusCreated, "customer created", map[string]any{"customer": customer})
}

func (a *API) handleListCustomers(w http.ResponseWriter, r *http.Request) {
	customers, err := a.service.ListCustomers(r.Context())
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeData(w, http.StatusOK, "", map[string]any{"customers": customers})
}

func (a *API) handleCreateExpense(w http.ResponseWriter, r *http.Request) {
	var req domain.ExpenseCreateRequest
	if err := decodeJSON(r, &req); err != nil {
		a.writeError(w, http.StatusBadRequest, err)
		return
	}
	expense, err := a.service.CreateExpense(r.Context(), req)
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeData(w, http.StatusCreated, "expense recorded", map[string]any{"expense": expense})
}

func (a *API) handleListExpenses(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	expenses, err := a.service.ListExpenses(r.Context(), q.Get("startDate"), q.Get("endDate"))
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeData(w, http.StatusOK, "", map[string]any{"expenses": expenses})
}

func (a *API) handleCreateVoucher(w http.ResponseWriter, r *http.Request) {
	var req domain.VoucherCreateRequest
	if err := decodeJSON(r, &req); err != nil {
		a.writeError(w, http.StatusBadRequest, err)
		return
	}
	voucher, err := a.service.CreateVoucher(r.Context(), req)
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeData(w, http.StatusCreated, "voucher issued", map[string]any{"voucher": voucher})
}

func (a *API) handleListVouchers(w http.ResponseWriter, r *http.Request) {
	vouchers, err := a.service.ListVouchers(r.Context())
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeData(w, http.StatusOK, "", map[string]any{"vouchers": vouchers})
}

func (a *API) handleRedeemVoucher(w http.ResponseWriter, r *http.Request) {
	voucher, err := a.service.RedeemVoucher(r.Context(), chi.URLParam(r, "code"))
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeData(w, http.StatusOK, "voucher redeemed", map[string]any{"voucher": voucher})
}

func (a *API) handleCancelVoucher(w http.ResponseWriter, r *http.Request) {
	voucher, err := a.service.CancelVoucher(r.Context(), chi.URLParam(r, "code"))
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeData(w, http.StatusOK, "voucher cancelled", map[string]any{"voucher": voucher})
}

func (a *API) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	var req domain.UserCreateRequest
	if err := decodeJSON(r, &req); err != nil {
		a.writeError(w, http.StatusBadRequest, err)
		return
	}
	user, err := a.auth.CreateUser(r.Context(), req)
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeData(w, http.StatusCreated, "user created", map[string]any{"user": user})
}

func (a *API) handleListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := a.auth.ListUsers(r.Context())
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeData(w, http.StatusOK, "", map[string]any{"users": users})
}
