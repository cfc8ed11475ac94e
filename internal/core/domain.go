package core

import (
	"encoding/json"
	"errors"
	"strings"
	"time"
)

const (
	ConsolePS41 ConsoleID = "PS4-1"
	ConsolePS42 ConsoleID = "PS4-2"
	ConsolePS43 ConsoleID = "PS4-3"
	ConsolePS44 ConsoleID = "PS4-4"

	PaymentCash   PaymentMethod = "CASH"
	PaymentMobile PaymentMethod = "MOBILE"

	CategoryElectricity ExpenseCategory = "ELECTRICITY"
	CategoryRent        ExpenseCategory = "RENT"
	CategoryController  ExpenseCategory = "CONTROLLER"
	CategoryMaintenance ExpenseCategory = "MAINTENANCE"
	CategorySalary      ExpenseCategory = "SALARY"
	CategoryOther       ExpenseCategory = "OTHER"
	CategoryRepair      ExpenseCategory = "REPAIR"
	CategoryEquipment   ExpenseCategory = "EQUIPMENT"
	CategoryInternet    ExpenseCategory = "INTERNET"

	ActionCreate AuditAction = "CREATE"
	ActionUpdate AuditAction = "UPDATE"
	ActionDelete AuditAction = "DELETE"
)

// Entity names used by the backend audit trail.
const (
	EntityGame    = "Game"
	EntityExpense = "Expense"
)

type (
	ConsoleID       string
	PaymentMethod   string
	ExpenseCategory string
	AuditAction     string

	// GameSale is a recorded session on one of the lounge consoles.
	GameSale struct {
		ID            string        `json:"_id"`
		ConsoleID     ConsoleID     `json:"consoleId"`
		GamesPlayed   int           `json:"gamesPlayed"`
		PricePerGame  Amount        `json:"pricePerGame"`
		TotalAmount   Amount        `json:"totalAmount"`
		PaymentMethod PaymentMethod `json:"paymentMethod"`
		RecordedBy    string        `json:"recordedBy,omitempty"`
		CreatedAt     time.Time     `json:"createdAt"`
		Notes         string        `json:"notes,omitempty"`
	}

	Expense struct {
		ID         string          `json:"_id"`
		Category   ExpenseCategory `json:"category"`
		Amount     Amount          `json:"amount"`
		Note       string          `json:"note,omitempty"`
		RecordedBy string          `json:"recordedBy,omitempty"`
		CreatedAt  time.Time       `json:"createdAt"`
	}

	// AuditEntry is one create/update/delete record. Before and After are
	// kept raw since the backend sends objects, JSON-encoded strings or nothing.
	AuditEntry struct {
		ID          string          `json:"-"`
		Entity      string          `json:"entity"`
		EntityID    string          `json:"-"`
		Action      string          `json:"action"`
		PerformedBy Performer       `json:"performedBy"`
		CreatedAt   time.Time       `json:"createdAt"`
		Before      json.RawMessage `json:"before,omitempty"`
		After       json.RawMessage `json:"after,omitempty"`
	}

	// Admin is a selectable account returned by the user listing.
	Admin struct {
		ID   string `json:"_id"`
		Name string `json:"name"`
	}
)

var (
	ErrInvalidConsole       = errors.New("invalid console")
	ErrInvalidPaymentMethod = errors.New("invalid payment method")
	ErrInvalidCategory      = errors.New("invalid expense category")
	ErrInvalidGamesPlayed   = errors.New("games played must be at least 1")
	ErrInvalidAmount        = errors.New("invalid amount")
)

// Consoles lists the stations in display order.
func Consoles() []ConsoleID {
	return []ConsoleID{ConsolePS41, ConsolePS42, ConsolePS43, ConsolePS44}
}

func PaymentMethods() []PaymentMethod {
	return []PaymentMethod{PaymentCash, PaymentMobile}
}

// ExpenseCategories lists the categories in the order the expense form shows them.
func ExpenseCategories() []ExpenseCategory {
	return []ExpenseCategory{
		CategoryElectricity,
		CategoryRent,
		CategoryController,
		CategoryMaintenance,
		CategorySalary,
		CategoryOther,
		CategoryRepair,
		CategoryEquipment,
		CategoryInternet,
	}
}

func ParseConsole(s string) (ConsoleID, error) {
	for _, c := range Consoles() {
		if string(c) == s {
			return c, nil
		}
	}
	return "", ErrInvalidConsole
}

func ParsePaymentMethod(s string) (PaymentMethod, error) {
	for _, p := range PaymentMethods() {
		if string(p) == s {
			return p, nil
		}
	}
	return "", ErrInvalidPaymentMethod
}

// ParseExpenseCategory matches exactly; "Other" is not an alias of OTHER.
func ParseExpenseCategory(s string) (ExpenseCategory, error) {
	for _, c := range ExpenseCategories() {
		if string(c) == s {
			return c, nil
		}
	}
	return "", ErrInvalidCategory
}

// NormalizedAction upper-cases the action for display and badge selection.
func (e AuditEntry) NormalizedAction() AuditAction {
	return AuditAction(strings.ToUpper(strings.TrimSpace(e.Action)))
}

// auditEntryJSON mirrors the backend shape where ids come in several flavours.
type auditEntryJSON struct {
	UnderscoreID string          `json:"_id"`
	ID           string          `json:"id"`
	Entity       string          `json:"entity"`
	EntityID     json.RawMessage `json:"entityId"`
	Action       string          `json:"action"`
	PerformedBy  Performer       `json:"performedBy"`
	CreatedAt    time.Time       `json:"createdAt"`
	Before       json.RawMessage `json:"before"`
	After        json.RawMessage `json:"after"`
}

func (e *AuditEntry) UnmarshalJSON(data []byte) error {
	var raw auditEntryJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*e = AuditEntry{
		ID:          raw.UnderscoreID,
		Entity:      raw.Entity,
		EntityID:    scalarString(raw.EntityID),
		Action:      raw.Action,
		PerformedBy: raw.PerformedBy,
		CreatedAt:   raw.CreatedAt,
		Before:      raw.Before,
		After:       raw.After,
	}
	if e.ID == "" {
		e.ID = raw.ID
	}
	return nil
}

func (e AuditEntry) MarshalJSON() ([]byte, error) {
	return json.Marshal(auditEntryJSON{
		UnderscoreID: e.ID,
		Entity:       e.Entity,
		EntityID:     mustJSONString(e.EntityID),
		Action:       e.Action,
		PerformedBy:  e.PerformedBy,
		CreatedAt:    e.CreatedAt,
		Before:       e.Before,
		After:        e.After,
	})
}

// scalarString renders a JSON scalar as text: strings unquoted, numbers and
// booleans verbatim, null/objects/arrays as empty.
func scalarString(raw json.RawMessage) string {
	s := strings.TrimSpace(string(raw))
	if s == "" || s == "null" {
		return ""
	}
	switch s[0] {
	case '"':
		var out string
		if err := json.Unmarshal(raw, &out); err != nil {
			return ""
		}
		return out
	case '{', '[':
		return ""
	default:
		return s
	}
}

func mustJSONString(s string) json.RawMessage {
	if s == "" {
		return json.RawMessage("null")
	}
	b, _ := json.Marshal(s)
	return b
}
