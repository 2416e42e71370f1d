package domain

import "testing"

func TestEditFieldResolvePrecedence(t *testing.T) {
	tests := []struct {
		name  string
		field EditField[float64]
		want  float64
	}{
		{"default", EditField[float64]{}, 7},
		{"actual", EditField[float64]{Actual: Ptr(2.5)}, 2.5},
		{"parsed wins", EditField[float64]{Actual: Ptr(2.5), LastParsed: Ptr(3.0)}, 3},
		{"parsed zero still wins", EditField[float64]{Actual: Ptr(2.5), LastParsed: Ptr(0.0)}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.field.Resolve(7); got != tt.want {
				t.Errorf("Resolve() = %v, want %v", got, tt.want)
			}
			f := tt.field
			f.Refresh(7)
			if f.ToUse != tt.want {
				t.Errorf("Refresh() ToUse = %v, want %v", f.ToUse, tt.want)
			}
		})
	}
}

func TestEditFieldCloneDoesNotAlias(t *testing.T) {
	orig := EditField[float64]{Actual: Ptr(1.0), User: Ptr("1"), LastParsed: Ptr(1.0), ToUse: 1}
	c := orig.Clone()
	*c.Actual = 9
	*c.User = "9"
	*c.LastParsed = 9

	if *orig.Actual != 1 || *orig.User != "1" || *orig.LastParsed != 1 {
		t.Fatalf("clone shares pointers with original: %+v", orig)
	}
}

func TestFixed(t *testing.T) {
	f := Fixed(Expiration{Timestamp: 10, Label: "x"})
	if f.ToUse.Timestamp != 10 || f.LastParsed == nil || f.Actual != nil {
		t.Fatalf("Fixed() = %+v", f)
	}
}
