package memory

import (
	"context"
	"testing"
	"time"

	"gamezone/internal/core"
	ports "gamezone/internal/sheets"
)

func TestMemoryStoreExportReport(t *testing.T) {
	s := New()

	ref, err := s.ExportReport(context.Background(), ports.Report{GeneratedAt: time.Unix(0, 0)})
	if err != nil || ref != "mem:report:1" {
		t.Fatalf("unexpected export: ref=%q err=%v", ref, err)
	}
	ref, _ = s.ExportReport(context.Background(), ports.Report{})
	if ref != "mem:report:2" {
		t.Fatalf("unexpected second ref: %q", ref)
	}
	if got := len(s.Reports()); got != 2 {
		t.Fatalf("expected 2 reports, got %d", got)
	}
}

func TestMemoryStoreAppendActivityDedupes(t *testing.T) {
	s := New()
	ev := core.NewMutationEvent(core.EntityExpense, core.ActionCreate, "", "Abebe", time.Now())

	first, err := s.AppendActivity(context.Background(), ev)
	if err != nil {
		t.Fatal(err)
	}
	again, _ := s.AppendActivity(context.Background(), ev)
	if first != again {
		t.Errorf("redelivered event should map to the same row: %q vs %q", first, again)
	}
	if got := s.Activity(); len(got) != 1 || got[0].ID != ev.ID {
		t.Errorf("unexpected activity: %+v", got)
	}
}
