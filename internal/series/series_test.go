package series

import (
	"math"
	"testing"
	"time"

	"rotor/internal/domain"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func mkBars(symbol string, start time.Time, closes ...float64) []domain.Bar {
	bars := make([]domain.Bar, 0, len(closes))
	for i, c := range closes {
		bars = append(bars, domain.Bar{
			Symbol: symbol,
			Date:   start.AddDate(0, 0, i),
			Open:   c * 0.99,
			High:   c * 1.01,
			Low:    c * 0.98,
			Close:  c,
		})
	}
	return bars
}

func TestFromBarsSortsAndRejectsDuplicates(t *testing.T) {
	d0 := day(2024, 1, 2)
	bars := []domain.Bar{
		{Symbol: "510300", Date: d0.AddDate(0, 0, 1), Open: 2, Close: 2},
		{Symbol: "510300", Date: d0, Open: 1, Close: 1},
	}
	s, err := FromBars("510300", bars)
	if err != nil {
		t.Fatalf("FromBars: %v", err)
	}
	if !s.Dates[0].Equal(d0) {
		t.Errorf("first date = %v, want %v", s.Dates[0], d0)
	}
	if s.Closes[0] != 1 || s.Closes[1] != 2 {
		t.Errorf("closes = %v, want [1 2]", s.Closes)
	}

	bars = append(bars, domain.Bar{Symbol: "510300", Date: d0, Close: 3})
	if _, err := FromBars("510300", bars); err == nil {
		t.Error("expected error for duplicate date")
	}

	if _, err := FromBars("510300", nil); err == nil {
		t.Error("expected error for empty bars")
	}
}

func TestAlignCarriesClosesButNotOpens(t *testing.T) {
	start := day(2024, 1, 1)
	a, err := FromBars("A", mkBars("A", start, 1.0, 1.1, 1.2, 1.3, 1.4))
	if err != nil {
		t.Fatal(err)
	}
	// B misses the middle date.
	bBars := mkBars("B", start, 2.0, 2.1)
	bBars = append(bBars, mkBars("B", start.AddDate(0, 0, 3), 2.3, 2.4)...)
	b, err := FromBars("B", bBars)
	if err != nil {
		t.Fatal(err)
	}

	h, err := Align([]*Series{a, b}, time.Time{})
	if err != nil {
		t.Fatalf("Align: %v", err)
	}
	if h.Len() != 5 {
		t.Fatalf("Len = %d, want 5", h.Len())
	}

	// B's close at the gap index is carried from the prior date.
	c, ok := h.Close("B", 2)
	if !ok || c != 2.1 {
		t.Errorf("carried close = %v ok=%v, want 2.1", c, ok)
	}
	// But no open is invented.
	if _, ok := h.Open("B", 2); ok {
		t.Error("expected no open for B on a non-traded date")
	}
	// Real opens survive.
	if o, ok := h.Open("B", 3); !ok || math.Abs(o-2.3*0.99) > 1e-12 {
		t.Errorf("open = %v ok=%v, want %v", o, ok, 2.3*0.99)
	}
}

func TestAlignLateStarterHasNoEarlyCloses(t *testing.T) {
	start := day(2024, 1, 1)
	a, _ := FromBars("A", mkBars("A", start, 1, 1, 1, 1, 1, 1))
	b, _ := FromBars("B", mkBars("B", start.AddDate(0, 0, 3), 5, 5, 5))

	h, err := Align([]*Series{a, b}, time.Time{})
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := h.Close("B", 0); ok {
		t.Error("expected no close for B before its first bar")
	}
	if got := h.FirstIndex("B"); got != 3 {
		t.Errorf("FirstIndex(B) = %d, want 3", got)
	}
	if h.HasWindow("B", 4, 3) {
		t.Error("window [1,4] should not be satisfied for B")
	}
	if !h.HasWindow("B", 5, 2) {
		t.Error("window [3,5] should be satisfied for B")
	}
}

func TestAlignStartCutoffSeedsCarry(t *testing.T) {
	start := day(2024, 1, 1)
	a, _ := FromBars("A", mkBars("A", start, 1.0, 1.1, 1.2, 1.3))
	b, _ := FromBars("B", mkBars("B", start, 2.0, 2.1)) // ends before cutoff

	h, err := Align([]*Series{a, b}, start.AddDate(0, 0, 2))
	if err != nil {
		t.Fatal(err)
	}
	if h.Len() != 2 {
		t.Fatalf("Len = %d, want 2", h.Len())
	}
	// B never trades on the calendar but its last pre-cutoff close carries.
	if c, ok := h.Close("B", 0); !ok || c != 2.1 {
		t.Errorf("seeded carry = %v ok=%v, want 2.1", c, ok)
	}
}

func TestReturns(t *testing.T) {
	start := day(2024, 1, 1)
	a, _ := FromBars("A", mkBars("A", start, 1.0, 1.1, 1.21))
	h, err := Align([]*Series{a}, time.Time{})
	if err != nil {
		t.Fatal(err)
	}

	rets := h.Returns("A", 0, 2)
	if len(rets) != 2 {
		t.Fatalf("len = %d, want 2", len(rets))
	}
	for i, want := range []float64{0.1, 0.1} {
		if math.Abs(rets[i]-want) > 1e-9 {
			t.Errorf("rets[%d] = %v, want %v", i, rets[i], want)
		}
	}

	if got := h.Returns("A", 0, 0); got != nil {
		t.Errorf("empty window should return nil, got %v", got)
	}
}

func TestIndex(t *testing.T) {
	start := day(2024, 1, 1)
	a, _ := FromBars("A", mkBars("A", start, 1, 2, 3))
	h, _ := Align([]*Series{a}, time.Time{})

	if i, ok := h.Index(start.AddDate(0, 0, 1)); !ok || i != 1 {
		t.Errorf("Index = %d ok=%v, want 1", i, ok)
	}
	if _, ok := h.Index(day(2030, 1, 1)); ok {
		t.Error("expected unknown date to miss")
	}
}
