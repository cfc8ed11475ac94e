package core

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

// Defaults for a fresh game sale form.
const (
	DefaultGamesPlayed  = "1"
	DefaultPricePerGame = "10"
)

// NewValidator returns the validator shared by form handlers.
func NewValidator() *validator.Validate {
	return validator.New(validator.WithRequiredStructEnabled())
}

type (
	// LoginForm carries the login page fields.
	LoginForm struct {
		Name     string `validate:"required"`
		Password string `validate:"required"`
	}

	// SaleForm holds the raw game sale inputs so an invalid form can be
	// rendered back unchanged.
	SaleForm struct {
		ConsoleID     string `validate:"required,oneof=PS4-1 PS4-2 PS4-3 PS4-4"`
		GamesPlayed   string `validate:"required,number"`
		PricePerGame  string `validate:"required"`
		PaymentMethod string `validate:"required,oneof=CASH MOBILE"`
		Notes         string `validate:"max=500"`
	}

	ExpenseForm struct {
		Category string `validate:"required,oneof=ELECTRICITY RENT CONTROLLER MAINTENANCE SALARY OTHER REPAIR EQUIPMENT INTERNET"`
		Amount   string `validate:"required"`
		Note     string `validate:"max=500"`
	}

	// SalePayload is the body of POST /game/add and PATCH /game/{id}.
	SalePayload struct {
		ConsoleID     ConsoleID     `json:"consoleId"`
		GamesPlayed   int           `json:"gamesPlayed"`
		PricePerGame  float64       `json:"pricePerGame"`
		TotalAmount   float64       `json:"totalAmount"`
		CreatedAt     time.Time     `json:"createdAt"`
		Notes         string        `json:"notes,omitempty"`
		PaymentMethod PaymentMethod `json:"paymentMethod"`
	}

	// ExpensePayload is the body of POST /expenses/add and PATCH /expenses/{id}.
	ExpensePayload struct {
		Category ExpenseCategory `json:"category"`
		Amount   float64         `json:"amount"`
		Note     string          `json:"note,omitempty"`
	}
)

// NewSaleForm returns the defaults shown when adding a sale.
func NewSaleForm() SaleForm {
	return SaleForm{
		ConsoleID:     string(ConsolePS41),
		GamesPlayed:   DefaultGamesPlayed,
		PricePerGame:  DefaultPricePerGame,
		PaymentMethod: string(PaymentCash),
	}
}

// SaleFormFrom pre-fills the form from an existing sale, falling back to the
// defaults for empty fields.
func SaleFormFrom(s GameSale) SaleForm {
	f := NewSaleForm()
	if s.ConsoleID != "" {
		f.ConsoleID = string(s.ConsoleID)
	}
	if s.PaymentMethod != "" {
		f.PaymentMethod = string(s.PaymentMethod)
	}
	if s.GamesPlayed > 0 {
		f.GamesPlayed = strconv.Itoa(s.GamesPlayed)
	}
	if s.PricePerGame.Valid() {
		f.PricePerGame = s.PricePerGame.String()
	}
	f.Notes = s.Notes
	return f
}

// Total is the live total shown under the price input. Unparseable inputs
// yield zero.
func (f SaleForm) Total() decimal.Decimal {
	games, err := strconv.Atoi(strings.TrimSpace(f.GamesPlayed))
	if err != nil {
		return decimal.Zero
	}
	price, err := ParseAmount(f.PricePerGame)
	if err != nil {
		return decimal.Zero
	}
	return SaleTotal(games, price)
}

// Payload validates the form and builds the request body. createdAt is the
// original creation time when editing, now otherwise.
func (f SaleForm) Payload(v *validator.Validate, createdAt time.Time) (SalePayload, error) {
	if err := v.Struct(f); err != nil {
		return SalePayload{}, ValidationMessage(err)
	}
	games, err := strconv.Atoi(strings.TrimSpace(f.GamesPlayed))
	if err != nil || games < 1 {
		return SalePayload{}, ErrInvalidGamesPlayed
	}
	price, err := ParseAmount(f.PricePerGame)
	if err != nil {
		return SalePayload{}, fmt.Errorf("price per game: %w", err)
	}
	console, err := ParseConsole(f.ConsoleID)
	if err != nil {
		return SalePayload{}, err
	}
	method, err := ParsePaymentMethod(f.PaymentMethod)
	if err != nil {
		return SalePayload{}, err
	}
	return SalePayload{
		ConsoleID:     console,
		GamesPlayed:   games,
		PricePerGame:  price.InexactFloat64(),
		TotalAmount:   SaleTotal(games, price).InexactFloat64(),
		CreatedAt:     createdAt,
		Notes:         strings.TrimSpace(f.Notes),
		PaymentMethod: method,
	}, nil
}

// NewExpenseForm returns the defaults shown when adding an expense.
func NewExpenseForm() ExpenseForm {
	return ExpenseForm{Category: string(CategoryOther)}
}

func ExpenseFormFrom(e Expense) ExpenseForm {
	f := NewExpenseForm()
	if e.Category != "" {
		f.Category = string(e.Category)
	}
	if e.Amount.Valid() {
		f.Amount = e.Amount.String()
	}
	f.Note = e.Note
	return f
}

func (f ExpenseForm) Payload(v *validator.Validate) (ExpensePayload, error) {
	if err := v.Struct(f); err != nil {
		return ExpensePayload{}, ValidationMessage(err)
	}
	category, err := ParseExpenseCategory(f.Category)
	if err != nil {
		return ExpensePayload{}, err
	}
	amount, err := ParseAmount(f.Amount)
	if err != nil {
		return ExpensePayload{}, fmt.Errorf("amount: %w", err)
	}
	return ExpensePayload{
		Category: category,
		Amount:   amount.InexactFloat64(),
		Note:     strings.TrimSpace(f.Note),
	}, nil
}

// ValidationMessage turns validator errors into one readable error.
func ValidationMessage(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		switch fe.Tag() {
		case "required":
			msgs = append(msgs, fmt.Sprintf("%s is required", fieldLabel(fe.Field())))
		case "oneof":
			msgs = append(msgs, fmt.Sprintf("%s must be one of %s", fieldLabel(fe.Field()), fe.Param()))
		case "number":
			msgs = append(msgs, fmt.Sprintf("%s must be a number", fieldLabel(fe.Field())))
		case "max":
			msgs = append(msgs, fmt.Sprintf("%s is too long (max %s characters)", fieldLabel(fe.Field()), fe.Param()))
		default:
			msgs = append(msgs, fmt.Sprintf("%s is invalid", fieldLabel(fe.Field())))
		}
	}
	return errors.New(strings.Join(msgs, "; "))
}

func fieldLabel(field string) string {
	switch field {
	case "ConsoleID":
		return "PS station"
	case "GamesPlayed":
		return "games played"
	case "PricePerGame":
		return "price per game"
	case "PaymentMethod":
		return "payment method"
	default:
		return strings.ToLower(field)
	}
}
