package score

import "testing"

func TestAddSaturation(t *testing.T) {
	cases := []struct {
		name string
		a, b Score
		want Score
	}{
		{"finite+finite", Finite(3), Finite(4), Finite(7)},
		{"minus-inf dominates plus-inf", MinusInfinity, Infinity, MinusInfinity},
		{"minus-inf dominates finite", MinusInfinity, Finite(1000), MinusInfinity},
		{"plus-inf plus finite", Infinity, Finite(5), Infinity},
		{"overflow saturates up", Finite(2147483000), Finite(2147483000), Infinity},
		{"underflow saturates down", Finite(-2147483000), Finite(-2147483000), MinusInfinity},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := Add(c.a, c.b); Compare(got, c.want) != 0 {
				t.Errorf("Add(%v, %v) = %v, want %v", c.a, c.b, got, c.want)
			}
		})
	}
}

func TestCompareTotalOrder(t *testing.T) {
	ordered := []Score{MinusInfinity, Finite(-5), Finite(0), Finite(5), Infinity}
	for i := 0; i < len(ordered)-1; i++ {
		if !Less(ordered[i], ordered[i+1]) {
			t.Errorf("expected %v < %v", ordered[i], ordered[i+1])
		}
	}
}

func TestNegative(t *testing.T) {
	if !MinusInfinity.Negative() {
		t.Error("-INFINITY should be negative")
	}
	if Infinity.Negative() {
		t.Error("INFINITY should not be negative")
	}
	if !Finite(-1).Negative() {
		t.Error("-1 should be negative")
	}
	if Finite(0).Negative() {
		t.Error("0 should not be negative")
	}
}

func TestString(t *testing.T) {
	if Infinity.String() != "INFINITY" {
		t.Errorf("got %q", Infinity.String())
	}
	if MinusInfinity.String() != "-INFINITY" {
		t.Errorf("got %q", MinusInfinity.String())
	}
	if Finite(42).String() != "42" {
		t.Errorf("got %q", Finite(42).String())
	}
}
