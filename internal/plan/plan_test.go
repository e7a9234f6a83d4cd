package plan

import (
	"errors"
	"testing"

	"github.com/recurra/billing/internal/billingcycle"
	"github.com/shopspring/decimal"
)

func monthlyPlan() Plan {
	return Plan{
		Code:             "monthly-10-1",
		Name:             "main",
		Interval:         billingcycle.Interval{Unit: billingcycle.UnitMonths, Length: 1},
		TotalOccurrences: UnboundedOccurrences,
		Amount:           decimal.RequireFromString("9.99"),
		TrialAmount:      decimal.Zero,
	}
}

func TestCatalogGet(t *testing.T) {
	catalog, err := NewCatalog([]Plan{monthlyPlan()}, "USD", decimal.Zero)
	if err != nil {
		t.Fatalf("NewCatalog: %v", err)
	}

	p, err := catalog.Get("monthly-10-1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if p.Name != "main" {
		t.Fatalf("plan name = %q, want main", p.Name)
	}
	if !p.Unbounded() {
		t.Fatal("9999 occurrences should report unbounded")
	}

	if _, err := catalog.Get("does-not-exist"); !errors.Is(err, ErrUnknownPlan) {
		t.Fatalf("unknown plan error = %v, want ErrUnknownPlan", err)
	}
}

func TestCatalogRejectsInvalidPlans(t *testing.T) {
	bad := monthlyPlan()
	bad.Interval.Length = 0
	if _, err := NewCatalog([]Plan{bad}, "USD", decimal.Zero); err == nil {
		t.Fatal("zero-length interval accepted")
	}

	negative := monthlyPlan()
	negative.Amount = decimal.RequireFromString("-1")
	if _, err := NewCatalog([]Plan{negative}, "USD", decimal.Zero); err == nil {
		t.Fatal("negative amount accepted")
	}

	if _, err := NewCatalog([]Plan{monthlyPlan(), monthlyPlan()}, "USD", decimal.Zero); !errors.Is(err, ErrDuplicatePlan) {
		t.Fatal("duplicate code accepted")
	}

	if _, err := NewCatalog(nil, "USD", decimal.Zero); !errors.Is(err, ErrEmptyCatalog) {
		t.Fatal("empty catalog accepted")
	}
}

func TestBuildCatalogDefaults(t *testing.T) {
	var file planFile
	file.Plans = []planEntry{{
		Code:   "monthly-10-1",
		Name:   "main",
		Amount: 9.99,
	}}
	file.Plans[0].Interval.Unit = "months"
	file.Plans[0].Interval.Length = 1

	catalog, err := buildCatalog(file)
	if err != nil {
		t.Fatalf("buildCatalog: %v", err)
	}

	p, err := catalog.Get("monthly-10-1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if p.TotalOccurrences != UnboundedOccurrences {
		t.Fatalf("total occurrences defaulted to %d, want %d", p.TotalOccurrences, UnboundedOccurrences)
	}
	if catalog.Currency() != "USD" {
		t.Fatalf("currency defaulted to %q, want USD", catalog.Currency())
	}
	if !catalog.DefaultTaxPercent().IsZero() {
		t.Fatalf("default tax percent = %s, want 0", catalog.DefaultTaxPercent())
	}
}
