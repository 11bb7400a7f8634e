package balance

import (
	"errors"
	"math"
	"testing"
)

func TestSplitJoin(t *testing.T) {
	supply := NewSupply("X")
	b, err := supply.Mint(100)
	if err != nil {
		t.Fatal(err)
	}

	part, err := b.Split(30)
	if err != nil {
		t.Fatal(err)
	}
	if b.Value() != 70 || part.Value() != 30 {
		t.Fatalf("after split = %d/%d", b.Value(), part.Value())
	}
	if _, err := b.Split(71); !errors.Is(err, ErrInsufficientValue) {
		t.Errorf("oversplit err = %v", err)
	}

	if v, err := b.Join(part); err != nil || v != 100 {
		t.Fatalf("join = %d, %v", v, err)
	}
	if part.Value() != 0 {
		t.Errorf("joined balance kept value %d", part.Value())
	}
	if err := part.DestroyZero(); err != nil {
		t.Errorf("destroy drained: %v", err)
	}
	if err := b.DestroyZero(); !errors.Is(err, ErrNonZero) {
		t.Errorf("destroy non-zero err = %v", err)
	}
}

func TestJoinErrors(t *testing.T) {
	x := New("X", 1)
	y := New("Y", 1)
	if _, err := x.Join(y); !errors.Is(err, ErrCoinMismatch) {
		t.Errorf("mismatch err = %v", err)
	}
	if y.Value() != 1 {
		t.Errorf("failed join drained argument")
	}

	big := New("X", math.MaxUint64)
	if _, err := big.Join(New("X", 1)); !errors.Is(err, ErrValueOverflow) {
		t.Errorf("overflow err = %v", err)
	}
	if v, err := x.Join(nil); err != nil || v != 1 {
		t.Errorf("join nil = %d, %v", v, err)
	}
}

func TestSupplyConservation(t *testing.T) {
	supply := NewSupply("X")
	a, _ := supply.Mint(40)
	b, _ := supply.Mint(60)
	if supply.Total() != 100 {
		t.Fatalf("total = %d", supply.Total())
	}

	w := a.Withdraw()
	if a.Value() != 0 || w.Value() != 40 {
		t.Fatalf("withdraw = %d/%d", a.Value(), w.Value())
	}
	if n, err := supply.Burn(w); err != nil || n != 40 {
		t.Fatalf("burn = %d, %v", n, err)
	}
	if supply.Total() != b.Value() {
		t.Errorf("total %d != outstanding %d", supply.Total(), b.Value())
	}
	if _, err := supply.Burn(Zero("Y")); !errors.Is(err, ErrCoinMismatch) {
		t.Errorf("burn foreign err = %v", err)
	}
}
