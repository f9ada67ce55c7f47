package wheel

import (
	"strings"
	"testing"
)

func TestLayoutSegments(t *testing.T) {
	t.Parallel()

	entries := []Entry{
		{ID: 10, Name: "Voucher", Color: "#d4af37"},
		{ID: 11, Name: "Nada", Color: "#333333", IsLosing: true},
		{ID: 12, Name: "Frete", Color: "#ff0000"},
		{ID: 13, Name: "Camiseta", Color: "#00ff00"},
	}
	segments := Layout(entries)
	if len(segments) != 4 {
		t.Fatalf("expected 4 segments, got %d", len(segments))
	}

	first := segments[0]
	if first.StartAngle != 0 || first.EndAngle != 90 {
		t.Fatalf("unexpected first span [%v,%v)", first.StartAngle, first.EndAngle)
	}
	if first.Path != "M 50 50 L 50.000 0.000 A 50 50 0 0 1 100.000 50.000 Z" {
		t.Fatalf("unexpected path %q", first.Path)
	}
	if first.LabelAngle != 45 || first.FontSize != 3.2 {
		t.Fatalf("unexpected label angle/font %v/%v", first.LabelAngle, first.FontSize)
	}
	if segments[1].TextColor != "#ffffff" || segments[0].TextColor != "#0a0e17" {
		t.Fatalf("unexpected text colours %q %q", segments[1].TextColor, segments[0].TextColor)
	}
	if segments[3].PrizeID != 13 || segments[3].Index != 3 {
		t.Fatalf("unexpected segment order: %+v", segments[3])
	}
}

func TestLayoutSingleEntryDrawsFullCircle(t *testing.T) {
	t.Parallel()

	segments := Layout([]Entry{{ID: 1, Name: "Only"}})
	if len(segments) != 1 || !strings.Contains(segments[0].Path, "a 50 50") {
		t.Fatalf("unexpected single segment: %+v", segments)
	}
	if Layout(nil) != nil {
		t.Fatalf("expected nil layout for no entries")
	}
}

func TestLabelTruncation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		n    int
		want string
	}{
		{"Camiseta", 4, "Camiseta"},
		{"Desconto10%", 4, "Desconto..."},
		{"Camiseta", 9, "Camiseta"},
		{"Camisetas", 9, "Camise..."},
		{"Ação Grátis!", 12, "Ação G..."},
	}
	for _, tt := range tests {
		if got := Label(tt.name, tt.n); got != tt.want {
			t.Fatalf("Label(%q,%d) = %q, want %q", tt.name, tt.n, got, tt.want)
		}
	}
}
