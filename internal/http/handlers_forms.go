package http

import (
	"html/template"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"gamezone/internal/backend"
	"gamezone/internal/core"
	"gamezone/internal/dashboard"
	gzlog "gamezone/internal/log"
)

type saleFormView struct {
	ID       string
	Form     core.SaleForm
	Total    decimal.Decimal
	Consoles []core.ConsoleID
	Methods  []core.PaymentMethod
	Error    string
}

type expenseFormView struct {
	ID         string
	Form       core.ExpenseForm
	Categories []core.ExpenseCategory
	Error      string
}

func (s *Server) renderSaleForm(w http.ResponseWriter, r *http.Request, status int, id string, form core.SaleForm, message string) {
	s.render(w, r, status, "sale_form.html", saleFormView{
		ID:       id,
		Form:     form,
		Total:    form.Total(),
		Consoles: core.Consoles(),
		Methods:  core.PaymentMethods(),
		Error:    message,
	})
}

func (s *Server) renderExpenseForm(w http.ResponseWriter, r *http.Request, status int, id string, form core.ExpenseForm, message string) {
	s.render(w, r, status, "expense_form.html", expenseFormView{
		ID:         id,
		Form:       form,
		Categories: core.ExpenseCategories(),
		Error:      message,
	})
}

func (s *Server) actor(r *http.Request) dashboard.Actor {
	sess := currentSession(r.Context())
	return dashboard.Actor{SessionID: sess.ID, Token: sess.Token, Name: sess.Name}
}

// findSale looks the sale up in the session's current snapshot.
func (s *Server) findSale(r *http.Request, id string) (core.GameSale, bool) {
	snap, ok := s.dashboard.Current(currentSession(r.Context()).ID)
	if !ok {
		return core.GameSale{}, false
	}
	return snap.FindSale(id)
}

func (s *Server) findExpense(r *http.Request, id string) (core.Expense, bool) {
	snap, ok := s.dashboard.Current(currentSession(r.Context()).ID)
	if !ok {
		return core.Expense{}, false
	}
	return snap.FindExpense(id)
}

func (s *Server) handleNewSaleForm(w http.ResponseWriter, r *http.Request) {
	s.renderSaleForm(w, r, http.StatusOK, "", core.NewSaleForm(), "")
}

func (s *Server) handleEditSaleForm(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	sale, ok := s.findSale(r, id)
	if !ok {
		NotFoundError("Sale not found in the current range").Write(w)
		return
	}
	s.renderSaleForm(w, r, http.StatusOK, id, core.SaleFormFrom(sale), "")
}

// handleSaleTotal renders the live total under the price input.
func (s *Server) handleSaleTotal(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	form := core.SaleForm{GamesPlayed: q.Get("gamesPlayed"), PricePerGame: q.Get("pricePerGame")}
	NewHTMXResponse().
		BodyHTML(`<span id="sale-total">` + template.HTMLEscapeString(formatBirr(form.Total())) + `</span>`).
		Write(w)
}

func (s *Server) handleCreateSale(w http.ResponseWriter, r *http.Request) {
	p, resp := parseBody(r)
	if resp != nil {
		resp.Write(w)
		return
	}
	form := ParseSaleForm(p)
	payload, err := form.Payload(s.validate, s.now())
	if err != nil {
		s.renderSaleForm(w, r, http.StatusUnprocessableEntity, "", form, err.Error())
		return
	}

	if err := s.mutations.CreateSale(r.Context(), s.actor(r), payload); err != nil {
		s.mutationFailed(w, r, err)
		return
	}
	s.mutationSucceeded(w, r, core.EntityGame, core.ActionCreate, "", "Game sale recorded")
}

func (s *Server) handleUpdateSale(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	p, resp := parseBody(r)
	if resp != nil {
		resp.Write(w)
		return
	}
	form := ParseSaleForm(p)

	createdAt := s.now()
	if sale, ok := s.findSale(r, id); ok && !sale.CreatedAt.IsZero() {
		createdAt = sale.CreatedAt
	} else if t, err := time.Parse(time.RFC3339, p.Get("createdAt")); err == nil {
		createdAt = t
	}

	payload, err := form.Payload(s.validate, createdAt)
	if err != nil {
		s.renderSaleForm(w, r, http.StatusUnprocessableEntity, id, form, err.Error())
		return
	}

	if err := s.mutations.UpdateSale(r.Context(), s.actor(r), id, payload); err != nil {
		s.mutationFailed(w, r, err)
		return
	}
	s.mutationSucceeded(w, r, core.EntityGame, core.ActionUpdate, id, "Game sale updated")
}

func (s *Server) handleDeleteSale(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.mutations.DeleteSale(r.Context(), s.actor(r), id); err != nil {
		s.mutationFailed(w, r, err)
		return
	}
	s.mutationSucceeded(w, r, core.EntityGame, core.ActionDelete, id, "Game sale deleted")
}

func (s *Server) handleNewExpenseForm(w http.ResponseWriter, r *http.Request) {
	s.renderExpenseForm(w, r, http.StatusOK, "", core.NewExpenseForm(), "")
}

func (s *Server) handleEditExpenseForm(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	exp, ok := s.findExpense(r, id)
	if !ok {
		NotFoundError("Expense not found in the current range").Write(w)
		return
	}
	s.renderExpenseForm(w, r, http.StatusOK, id, core.ExpenseFormFrom(exp), "")
}

func (s *Server) handleCreateExpense(w http.ResponseWriter, r *http.Request) {
	p, resp := parseBody(r)
	if resp != nil {
		resp.Write(w)
		return
	}
	form := ParseExpenseForm(p)
	payload, err := form.Payload(s.validate)
	if err != nil {
		s.renderExpenseForm(w, r, http.StatusUnprocessableEntity, "", form, err.Error())
		return
	}

	if err := s.mutations.CreateExpense(r.Context(), s.actor(r), payload); err != nil {
		s.mutationFailed(w, r, err)
		return
	}
	s.mutationSucceeded(w, r, core.EntityExpense, core.ActionCreate, "", "Expense recorded")
}

func (s *Server) handleUpdateExpense(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	p, resp := parseBody(r)
	if resp != nil {
		resp.Write(w)
		return
	}
	form := ParseExpenseForm(p)
	payload, err := form.Payload(s.validate)
	if err != nil {
		s.renderExpenseForm(w, r, http.StatusUnprocessableEntity, id, form, err.Error())
		return
	}

	if err := s.mutations.UpdateExpense(r.Context(), s.actor(r), id, payload); err != nil {
		s.mutationFailed(w, r, err)
		return
	}
	s.mutationSucceeded(w, r, core.EntityExpense, core.ActionUpdate, id, "Expense updated")
}

func (s *Server) handleDeleteExpense(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.mutations.DeleteExpense(r.Context(), s.actor(r), id); err != nil {
		s.mutationFailed(w, r, err)
		return
	}
	s.mutationSucceeded(w, r, core.EntityExpense, core.ActionDelete, id, "Expense deleted")
}

// mutationSucceeded closes the modal, toasts and makes the dashboard re-fetch.
func (s *Server) mutationSucceeded(w http.ResponseWriter, r *http.Request, entity string, action core.AuditAction, id, message string) {
	s.appMetrics.mutations.Add(1)
	gzlog.NewStructuredLogger(s.logger).LogMutation(r.Context(), currentSession(r.Context()).Name, entity, string(action), id)

	NewHTMXResponse().
		TriggerDashboardRefresh().
		TriggerModalClose().
		TriggerSuccessNotification(message).
		Write(w)
}

// mutationFailed shows the backend's message in an error toast. A rejected
// token ends the session instead.
func (s *Server) mutationFailed(w http.ResponseWriter, r *http.Request, err error) {
	s.appMetrics.failedMutations.Add(1)
	s.logFailure(r, "Mutation rejected by backend", err, gzlog.ComponentDashboard, mutationOp(r.Method),
		gzlog.NewFields().WithHTTPRequest(r.Method, r.URL.Path, "", "", ""))
	if backend.IsUnauthorized(err) {
		s.endSession(w, r)
		s.redirectToLogin(w, r)
		return
	}
	BadGatewayError(backend.Message(err)).Write(w)
}

func mutationOp(method string) string {
	switch method {
	case http.MethodPost:
		return gzlog.OpCreate
	case http.MethodDelete:
		return gzlog.OpDelete
	default:
		return gzlog.OpUpdate
	}
}
