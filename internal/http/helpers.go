package http

import (
	"fmt"
	"html/template"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"gamezone/internal/core"
)

const timeLayout = "Jan 2, 2006 15:04"

// sanitizeInput removes potentially dangerous characters and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	result := strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
	return result
}

// isHTMX reports whether the request was issued by htmx rather than a
// full page navigation.
func isHTMX(r *http.Request) bool {
	return r.Header.Get("HX-Request") == "true"
}

// formatBirr renders any amount the templates see with the currency suffix.
func formatBirr(v any) string {
	switch x := v.(type) {
	case core.Amount:
		return core.FormatBirr(x.Float())
	case float64:
		return core.FormatBirr(x)
	case int64:
		return core.FormatBirr(float64(x))
	case int:
		return core.FormatBirr(float64(x))
	case decimal.Decimal:
		return x.StringFixed(2) + " Birr"
	default:
		return fmt.Sprint(v) + " Birr"
	}
}

// templateFuncs returns the helpers available to every template. Times are
// shown in loc.
func templateFuncs(loc *time.Location) template.FuncMap {
	if loc == nil {
		loc = time.Local
	}
	return template.FuncMap{
		"birr":   formatBirr,
		"number": core.FormatNumber,
		"datetime": func(t time.Time) string {
			if t.IsZero() {
				return "-"
			}
			return t.In(loc).Format(timeLayout)
		},
		"inputDate": func(t time.Time) string {
			return t.In(loc).Format(core.InputDateLayout)
		},
		"lower": strings.ToLower,
		"percent": func(f float64) string {
			return strconv.FormatFloat(f, 'f', 1, 64) + "%"
		},
	}
}
