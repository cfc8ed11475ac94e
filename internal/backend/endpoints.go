package backend

import (
	"context"
	"errors"
	"net/http"
	"net/url"

	"gamezone/internal/core"
)

// LoginResult is the successful body of POST /user/login.
type LoginResult struct {
	AccessToken string `json:"access_token"`
	User        struct {
		Name string `json:"name"`
	} `json:"user"`
}

// Login exchanges credentials for a bearer token. Any 4xx answer or a body
// without access_token yields ErrInvalidCredentials.
func (c *Client) Login(ctx context.Context, name, password string) (LoginResult, error) {
	var res LoginResult
	body := map[string]string{"name": name, "password": password}
	err := c.do(ctx, http.MethodPost, "/user/login", nil, "", body, &res)
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.Status >= 400 && apiErr.Status < 500 {
			return LoginResult{}, ErrInvalidCredentials
		}
		return LoginResult{}, err
	}
	if res.AccessToken == "" {
		return LoginResult{}, ErrInvalidCredentials
	}
	return res, nil
}

// ListAdmins returns the accounts offered on the login page.
func (c *Client) ListAdmins(ctx context.Context) ([]core.Admin, error) {
	var admins []core.Admin
	if err := c.do(ctx, http.MethodGet, "/user", nil, "", nil, &admins); err != nil {
		return nil, err
	}
	return admins, nil
}

func rangeQuery(r core.DateRange) url.Values {
	return url.Values{"from": {r.FromISO()}, "to": {r.ToISO()}}
}

// FinancialSummary reads the backend-computed totals for r.
func (c *Client) FinancialSummary(ctx context.Context, token string, r core.DateRange) (core.FinancialSummary, error) {
	var s core.FinancialSummary
	err := c.do(ctx, http.MethodGet, "/expenses/financial/byDate", rangeQuery(r), token, nil, &s)
	return s, err
}

// Expenses lists expenses recorded within r.
func (c *Client) Expenses(ctx context.Context, token string, r core.DateRange) ([]core.Expense, error) {
	var out []core.Expense
	err := c.do(ctx, http.MethodGet, "/expenses/expense/byDate", rangeQuery(r), token, nil, &out)
	return out, err
}

// GameSales lists sales recorded within r.
func (c *Client) GameSales(ctx context.Context, token string, r core.DateRange) ([]core.GameSale, error) {
	var out []core.GameSale
	err := c.do(ctx, http.MethodGet, "/game/game/byDate", rangeQuery(r), token, nil, &out)
	return out, err
}

// AuditLog lists audit entries within r. The instants are path segments.
func (c *Client) AuditLog(ctx context.Context, token string, r core.DateRange) ([]core.AuditEntry, error) {
	var out []core.AuditEntry
	path := "/audit/from-to/" + url.PathEscape(r.FromISO()) + "/" + url.PathEscape(r.ToISO())
	err := c.do(ctx, http.MethodGet, path, nil, token, nil, &out)
	return out, err
}

func (c *Client) CreateSale(ctx context.Context, token string, p core.SalePayload) error {
	return c.do(ctx, http.MethodPost, "/game/add", nil, token, p, nil)
}

func (c *Client) UpdateSale(ctx context.Context, token, id string, p core.SalePayload) error {
	return c.do(ctx, http.MethodPatch, "/game/"+url.PathEscape(id), nil, token, p, nil)
}

func (c *Client) DeleteSale(ctx context.Context, token, id string) error {
	return c.do(ctx, http.MethodDelete, "/game/"+url.PathEscape(id), nil, token, nil, nil)
}

func (c *Client) CreateExpense(ctx context.Context, token string, p core.ExpensePayload) error {
	return c.do(ctx, http.MethodPost, "/expenses/add", nil, token, p, nil)
}

func (c *Client) UpdateExpense(ctx context.Context, token, id string, p core.ExpensePayload) error {
	return c.do(ctx, http.MethodPatch, "/expenses/"+url.PathEscape(id), nil, token, p, nil)
}

func (c *Client) DeleteExpense(ctx context.Context, token, id string) error {
	return c.do(ctx, http.MethodDelete, "/expenses/"+url.PathEscape(id), nil, token, nil, nil)
}
