package core

import (
	"encoding/json"
	"testing"
	"time"
)

func TestParseExpenseCategory(t *testing.T) {
	cases := []struct {
		in string
		ok bool
	}{
		{"OTHER", true},
		{"ELECTRICITY", true},
		{"INTERNET", true},
		// The legacy reset value used mixed case; the backend enum does not.
		{"Other", false},
		{"other", false},
		{"", false},
	}
	for _, tc := range cases {
		_, err := ParseExpenseCategory(tc.in)
		if tc.ok && err != nil {
			t.Fatalf("%q expected ok, got %v", tc.in, err)
		}
		if !tc.ok && err == nil {
			t.Fatalf("%q expected error", tc.in)
		}
	}
}

func TestParseConsoleAndPayment(t *testing.T) {
	if c, err := ParseConsole("PS4-3"); err != nil || c != ConsolePS43 {
		t.Fatalf("expected PS4-3, got %q (%v)", c, err)
	}
	if _, err := ParseConsole("PS4"); err == nil {
		t.Fatalf("expected error for PS4")
	}
	if p, err := ParsePaymentMethod("MOBILE"); err != nil || p != PaymentMobile {
		t.Fatalf("expected MOBILE, got %q (%v)", p, err)
	}
	if _, err := ParsePaymentMethod("cash"); err == nil {
		t.Fatalf("expected error for lower-case cash")
	}
}

func TestPerformerUnmarshal(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want Performer
	}{
		{"object", `{"_id":"a","name":"Alice","id":"a"}`, Performer{ID: "a", Name: "Alice", Embedded: true}},
		{"object with id only", `{"id":"b","name":"Bob"}`, Performer{ID: "b", Name: "Bob", Embedded: true}},
		{"bare id", `"c"`, Performer{ID: "c"}},
		{"null", `null`, Performer{}},
		{"number", `42`, Performer{ID: "42"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var p Performer
			if err := json.Unmarshal([]byte(tc.in), &p); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if p != tc.want {
				t.Fatalf("got %+v, want %+v", p, tc.want)
			}
		})
	}
}

func TestAuditEntryUnmarshal(t *testing.T) {
	in := `{
		"id": "x1",
		"entity": "Expense",
		"entityId": 17,
		"action": "update",
		"performedBy": {"_id": "a", "name": "Alice"},
		"createdAt": "2024-01-01T10:00:00.000Z",
		"before": "{\"amount\": 10}",
		"after": {"amount": 20}
	}`
	var e AuditEntry
	if err := json.Unmarshal([]byte(in), &e); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if e.ID != "x1" {
		t.Fatalf("expected id fallback to x1, got %q", e.ID)
	}
	if e.EntityID != "17" {
		t.Fatalf("expected numeric entity id to stringify, got %q", e.EntityID)
	}
	if e.NormalizedAction() != ActionUpdate {
		t.Fatalf("expected UPDATE, got %q", e.NormalizedAction())
	}
	if !e.CreatedAt.Equal(time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected createdAt %v", e.CreatedAt)
	}
	if string(e.Before) != `"{\"amount\": 10}"` {
		t.Fatalf("expected raw before to be kept, got %s", e.Before)
	}
}

func TestGameSaleUnmarshalLenientAmounts(t *testing.T) {
	in := `{"_id":"s1","consoleId":"PS4-1","gamesPlayed":2,"pricePerGame":"10","totalAmount":"oops","paymentMethod":"CASH","createdAt":"2024-01-01T00:00:00Z"}`
	var s GameSale
	if err := json.Unmarshal([]byte(in), &s); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.PricePerGame.Float() != 10 {
		t.Fatalf("expected numeric string to decode, got %v", s.PricePerGame.Float())
	}
	if s.TotalAmount.Valid() {
		t.Fatalf("expected malformed total to be invalid")
	}
}

func TestCreatedAtIsStrict(t *testing.T) {
	cases := map[string]struct {
		target any
		in     string
	}{
		"sale epoch millis":  {&GameSale{}, `{"_id":"s1","totalAmount":10,"createdAt":1704067200000}`},
		"expense plain date": {&Expense{}, `{"_id":"e1","amount":10,"createdAt":"2024-01-01"}`},
		"audit free text":    {&AuditEntry{}, `{"_id":"a1","action":"CREATE","createdAt":"yesterday"}`},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			if err := json.Unmarshal([]byte(tc.in), tc.target); err == nil {
				t.Fatalf("expected a non-RFC3339 createdAt to be rejected")
			}
		})
	}
}
