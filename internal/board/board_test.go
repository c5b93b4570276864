package board

import (
	"math/rand"
	"testing"
)

func TestParseCoordValid(t *testing.T) {
	cases := map[string]Coord{
		"A1":  {Row: 0, Col: 0},
		"a1":  {Row: 0, Col: 0},
		"J10": {Row: 9, Col: 9},
		"C5":  {Row: 2, Col: 4},
	}
	for in, want := range cases {
		got, err := ParseCoord(in)
		if err != nil {
			t.Fatalf("ParseCoord(%q) error: %v", in, err)
		}
		if got != want {
			t.Errorf("ParseCoord(%q) = %+v, want %+v", in, got, want)
		}
	}
}

func TestParseCoordInvalid(t *testing.T) {
	for _, in := range []string{"", "K1", "A11", "A0", "1A", "A", "A1B"} {
		if _, err := ParseCoord(in); err == nil {
			t.Errorf("ParseCoord(%q) = nil error, want error", in)
		}
	}
}

func TestPlaceAndCanPlace(t *testing.T) {
	b := NewBoard()
	if !b.CanPlace(0, 0, 5, Horizontal) {
		t.Fatal("expected empty board to accept a horizontal carrier at A1")
	}
	if err := b.Place(ShipClass{Name: "Carrier", Len: 5}, 0, 0, Horizontal); err != nil {
		t.Fatalf("Place failed: %v", err)
	}
	if b.CanPlace(0, 2, 3, Vertical) {
		t.Error("expected overlap with the carrier to be rejected")
	}
	if b.CanPlace(0, 5, 5, Horizontal) != true {
		t.Error("expected a non-overlapping placement to succeed")
	}
}

func TestPlaceRejectsOutOfBounds(t *testing.T) {
	b := NewBoard()
	if err := b.Place(ShipClass{Name: "Destroyer", Len: 2}, 0, 9, Horizontal); err != ErrOccupied {
		t.Errorf("err = %v, want ErrOccupied", err)
	}
}

func TestPlaceRejectsOverlap(t *testing.T) {
	b := NewBoard()
	if err := b.Place(ShipClass{Name: "Destroyer", Len: 2}, 0, 0, Horizontal); err != nil {
		t.Fatalf("first placement failed: %v", err)
	}
	if err := b.Place(ShipClass{Name: "Submarine", Len: 3}, 0, 0, Vertical); err != ErrOccupied {
		t.Errorf("err = %v, want ErrOccupied", err)
	}
}

func TestFireAtHitMissAndSunk(t *testing.T) {
	b := NewBoard()
	_ = b.Place(ShipClass{Name: "Destroyer", Len: 2}, 0, 0, Horizontal)

	if r, _ := b.FireAt(5, 5); r != ResultMiss {
		t.Errorf("FireAt(5,5) = %v, want miss", r)
	}
	if r, _ := b.FireAt(0, 0); r != ResultHit {
		t.Errorf("FireAt(0,0) = %v, want hit", r)
	}
	if r, name := b.FireAt(0, 1); r != ResultSunk || name != "Destroyer" {
		t.Errorf("FireAt(0,1) = (%v, %q), want (sunk, Destroyer)", r, name)
	}
	if r, _ := b.FireAt(0, 0); r != ResultAlreadyShot {
		t.Errorf("re-firing a hit cell = %v, want already_shot", r)
	}
}

func TestAllSunk(t *testing.T) {
	b := NewBoard()
	_ = b.Place(ShipClass{Name: "Destroyer", Len: 2}, 0, 0, Horizontal)
	if b.AllSunk() {
		t.Error("fresh board should not be all-sunk")
	}
	b.FireAt(0, 0)
	if b.AllSunk() {
		t.Error("board with an un-sunk ship should not be all-sunk")
	}
	b.FireAt(0, 1)
	if !b.AllSunk() {
		t.Error("board with every ship sunk should report AllSunk")
	}
}

func TestAllSunkOnEmptyBoardIsFalse(t *testing.T) {
	b := NewBoard()
	if b.AllSunk() {
		t.Error("a board with no ships placed should not report AllSunk")
	}
}

func TestIsShot(t *testing.T) {
	b := NewBoard()
	_ = b.Place(ShipClass{Name: "Destroyer", Len: 2}, 0, 0, Horizontal)
	if b.IsShot(0, 0) {
		t.Error("unfired cell should not be marked shot")
	}
	b.FireAt(0, 0)
	if !b.IsShot(0, 0) {
		t.Error("fired cell should be marked shot")
	}
}

func TestPlaceRandomPlacesFullFleet(t *testing.T) {
	b := NewBoard()
	b.PlaceRandom(rand.New(rand.NewSource(1)))
	if b.ShipCount() != len(Fleet) {
		t.Errorf("ShipCount() = %d, want %d", b.ShipCount(), len(Fleet))
	}
	if b.AllSunk() {
		t.Error("a freshly placed fleet should not already be sunk")
	}
}

func TestRenderHidesShipsWhenRequested(t *testing.T) {
	b := NewBoard()
	_ = b.Place(ShipClass{Name: "Destroyer", Len: 2}, 0, 0, Horizontal)

	hidden := b.Render(true)
	if containsByte(hidden, 'S') {
		t.Error("Render(hideShips=true) leaked a ship glyph")
	}

	visible := b.Render(false)
	if !containsByte(visible, 'S') {
		t.Error("Render(hideShips=false) should show unsunk ship cells")
	}
}

func containsByte(s string, b byte) bool {
	for i := 0; i < len(s); i++ {
		if s[i] == b {
			return true
		}
	}
	return false
}
