package types

import "testing"

func TestNewTablePrimitivesAreDistinct(t *testing.T) {
	tt := NewTable()
	ids := []ID{tt.Byte(), tt.Word(), tt.Void(), tt.Bool(), tt.Address()}
	seen := map[ID]bool{}
	for _, id := range ids {
		if seen[id] {
			t.Fatalf("primitive id %d reused across distinct primitives", id)
		}
		seen[id] = true
	}
}

func TestInterningReusesIdenticalStructuralTypes(t *testing.T) {
	tt := NewTable()
	a1 := tt.Array(tt.Byte(), 4)
	a2 := tt.Array(tt.Byte(), 4)
	if a1 != a2 {
		t.Fatalf("expected identical Array(byte,4) to intern to the same ID, got %d and %d", a1, a2)
	}
	a3 := tt.Array(tt.Byte(), 5)
	if a1 == a3 {
		t.Fatalf("expected Array(byte,5) to be a distinct ID from Array(byte,4)")
	}
}

func TestEnumsAreNominal(t *testing.T) {
	tt := NewTable()
	e1 := tt.Enum("Color", []string{"Red", "Blue"})
	e2 := tt.Enum("Color", []string{"Red", "Blue"})
	if e1 != e2 {
		t.Fatalf("expected re-declaring the same enum name to reuse its ID, got %d and %d", e1, e2)
	}
	e3 := tt.Enum("Suit", []string{"Red", "Blue"})
	if e1 == e3 {
		t.Fatalf("expected different enum names to produce distinct IDs even with identical members")
	}
}

func TestAliasResolveFollowsChain(t *testing.T) {
	tt := NewTable()
	a := tt.Alias("Speed", tt.Byte())
	b := tt.Alias("Velocity", a)
	if tt.Resolve(b) != tt.Byte() {
		t.Fatalf("expected Resolve to follow the alias chain to byte, got %d", tt.Resolve(b))
	}
}

func TestGetOutOfRangeReturnsNil(t *testing.T) {
	tt := NewTable()
	if tt.Get(ID(9999)) != nil {
		t.Fatalf("expected nil for an out-of-range ID")
	}
	if tt.Get(ID(-1)) != nil {
		t.Fatalf("expected nil for a negative ID")
	}
}

func TestAssignabilityMatrix(t *testing.T) {
	tt := NewTable()
	arr4 := tt.Array(tt.Byte(), 4)
	arr5 := tt.Array(tt.Byte(), 5)
	fn := tt.Function([]ID{tt.Byte()}, tt.Void(), false)
	enum := tt.Enum("Color", []string{"Red"})
	alias := tt.Alias("Speed", tt.Byte())

	cases := []struct {
		name     string
		from, to ID
		want     Compat
	}{
		{"byte to byte", tt.Byte(), tt.Byte(), Identical},
		{"word to word", tt.Word(), tt.Word(), Identical},
		{"byte to word widens explicitly", tt.Byte(), tt.Word(), RequiresExplicitCast},
		{"word to byte narrows explicitly", tt.Word(), tt.Byte(), RequiresExplicitCast},
		{"word to address", tt.Word(), tt.Address(), AssignableDirect},
		{"address to word", tt.Address(), tt.Word(), AssignableDirect},
		{"identical arrays", arr4, tt.Array(tt.Byte(), 4), Identical},
		{"arrays of different size", arr4, arr5, Incompatible},
		{"enum to its underlying byte", enum, tt.Byte(), AssignableDirect},
		{"byte to enum requires cast", tt.Byte(), enum, RequiresExplicitCast},
		{"bool to byte incompatible", tt.Bool(), tt.Byte(), Incompatible},
		{"byte to bool incompatible", tt.Byte(), tt.Bool(), Incompatible},
		{"function to function distinct incompatible", fn, tt.Function([]ID{tt.Word()}, tt.Void(), false), Incompatible},
		{"alias resolves like its target", alias, tt.Byte(), Identical},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got := tt.AssignabilityOf(c.from, c.to)
			if got != c.want {
				t.Fatalf("AssignabilityOf(%s) = %v, want %v", c.name, got, c.want)
			}
		})
	}
}

func TestIsNumericAndIsBool(t *testing.T) {
	tt := NewTable()
	if !tt.IsNumeric(tt.Byte()) || !tt.IsNumeric(tt.Word()) {
		t.Fatalf("expected byte and word to be numeric")
	}
	if tt.IsNumeric(tt.Bool()) {
		t.Fatalf("expected bool to not be numeric")
	}
	if !tt.IsBool(tt.Bool()) {
		t.Fatalf("expected bool to report IsBool")
	}
	if tt.IsBool(tt.Byte()) {
		t.Fatalf("expected byte to not report IsBool")
	}
}

func TestWidenPrefersWord(t *testing.T) {
	tt := NewTable()
	if tt.Widen(tt.Byte(), tt.Byte()) != tt.Byte() {
		t.Fatalf("expected byte+byte to widen to byte")
	}
	if tt.Widen(tt.Byte(), tt.Word()) != tt.Word() {
		t.Fatalf("expected byte+word to widen to word")
	}
	if tt.Widen(tt.Word(), tt.Byte()) != tt.Word() {
		t.Fatalf("expected word+byte to widen to word")
	}
}
