// Package http provides HTTP server and handler implementations.
//
// This file implements utilities for parsing and validating HTTP request data.
// It reduces code duplication by providing reusable functions for the range
// selector, the audit filter and the sale/expense forms.

package http

import (
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"

	"gamezone/internal/analytics"
	"gamezone/internal/core"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// RangeParams is the date selector state of a dashboard request.
type RangeParams struct {
	Quick core.QuickRange
	Range core.DateRange
	// From and To are the custom inputs as typed, re-rendered unchanged.
	From string
	To   string
}

// ParseRangeParams reads range, from and to. Presets resolve against now;
// custom ranges use the two date inputs. A reversed custom range is kept.
func ParseRangeParams(query url.Values, now time.Time) (RangeParams, error) {
	p := RangeParams{
		Quick: core.ParseQuickRange(query.Get("range")),
		From:  strings.TrimSpace(query.Get("from")),
		To:    strings.TrimSpace(query.Get("to")),
	}

	if p.Quick != core.RangeCustom {
		p.Range = p.Quick.Resolve(now)
		return p, nil
	}

	r, err := core.ParseCustomRange(p.From, p.To, now)
	if err != nil {
		return p, err
	}
	p.Range = r
	if p.From == "" {
		p.From = r.From.Format(core.InputDateLayout)
	}
	if p.To == "" {
		p.To = r.To.Format(core.InputDateLayout)
	}
	return p, nil
}

// ParseAuditFilter reads the audit table filter. A clear parameter resets
// every predicate.
func ParseAuditFilter(query url.Values) analytics.AuditFilter {
	if query.Has("clear") {
		return analytics.DefaultAuditFilter()
	}
	return analytics.AuditFilter{
		Performer: strings.TrimSpace(query.Get("admin")),
		Action:    strings.TrimSpace(query.Get("action")),
		Entity:    strings.TrimSpace(query.Get("entity")),
		Search:    sanitizeInput(query.Get("q")),
	}.Normalize()
}

// ParseSaleForm collects the raw sale inputs.
func ParseSaleForm(p *RequestBodyParser) core.SaleForm {
	return core.SaleForm{
		ConsoleID:     p.Get("consoleId"),
		GamesPlayed:   p.Get("gamesPlayed"),
		PricePerGame:  p.Get("pricePerGame"),
		PaymentMethod: p.Get("paymentMethod"),
		Notes:         p.Get("notes"),
	}
}

// ParseExpenseForm collects the raw expense inputs.
func ParseExpenseForm(p *RequestBodyParser) core.ExpenseForm {
	return core.ExpenseForm{
		Category: p.Get("category"),
		Amount:   p.Get("amount"),
		Note:     p.Get("note"),
	}
}

// RequestBodyParser handles different content types for request body parsing.
// It supports both JSON and form-encoded data, commonly used with HTMX.
type RequestBodyParser struct {
	body        []byte
	contentType string
	jsonData    map[string]interface{}
	formData    url.Values
	parsed      bool
	err         error
}

// NewRequestBodyParser creates a parser for the given request.
// It reads the body once and stores it for subsequent parsing.
func NewRequestBodyParser(r *http.Request) *RequestBodyParser {
	p := &RequestBodyParser{
		contentType: r.Header.Get("Content-Type"),
	}

	p.body, p.err = io.ReadAll(r.Body)
	return p
}

// Parse attempts to parse the body as JSON or form data.
func (p *RequestBodyParser) Parse() error {
	if p.parsed {
		return p.err
	}
	p.parsed = true

	if p.err != nil {
		return p.err
	}

	if len(p.body) == 0 {
		p.formData = url.Values{}
		return nil
	}

	// Try JSON first if content looks like JSON
	if p.body[0] == '{' || p.body[0] == '[' {
		p.jsonData = make(map[string]interface{})
		if err := json.Unmarshal(p.body, &p.jsonData); err != nil {
			p.err = err
			return err
		}
		return nil
	}

	// Fall back to form parsing
	p.formData, p.err = url.ParseQuery(string(p.body))
	return p.err
}

// Get returns a string value from the parsed data (JSON or form).
func (p *RequestBodyParser) Get(key string) string {
	if p.jsonData != nil {
		if val, ok := p.jsonData[key]; ok {
			return strings.TrimSpace(sanitizeInput(stringValue(val)))
		}
	}
	if p.formData != nil {
		return strings.TrimSpace(sanitizeInput(p.formData.Get(key)))
	}
	return ""
}

// GetRaw returns the raw body bytes.
func (p *RequestBodyParser) GetRaw() []byte {
	return p.body
}

// ContentType returns the Content-Type header value.
func (p *RequestBodyParser) ContentType() string {
	return p.contentType
}

// IsJSON returns true if the parsed content was JSON.
func (p *RequestBodyParser) IsJSON() bool {
	return p.jsonData != nil
}

// stringValue converts an interface{} to string.
func stringValue(v interface{}) string {
	switch val := v.(type) {
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case bool:
		return strconv.FormatBool(val)
	default:
		return ""
	}
}

// parseBody reads the request body and returns a 400 response on failure.
func parseBody(r *http.Request) (*RequestBodyParser, *HTMXResponseBuilder) {
	p := NewRequestBodyParser(r)
	if err := p.Parse(); err != nil {
		return nil, BadRequestError("Invalid request format")
	}
	return p, nil
}
