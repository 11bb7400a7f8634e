package tickmath

import (
	"errors"
	"math/rand"
	"testing"

	"github.com/holiman/uint256"
)

func TestSqrtPriceAtTick(t *testing.T) {
	tests := []struct {
		tick int32
		want string
	}{
		{0, "18446744073709551616"},
		{1, "18447666387855959850"},
		{-1, "18445821805675392311"},
		{10, "18455969290605290427"},
		{-10, "18437523468038800957"},
		{60, "18502164624211761447"},
		{-60, "18391489527427947879"},
		{1000, "19392480388906836277"},
		{-1000, "17547129613991598777"},
		{23028, "58336636874222222062"},
		{-23028, "5833081664522596898"},
		{100000, "2737055259406582257880"},
		{-100000, "124324258982887573"},
		{443580, "79005160168441461737552776218"},
		{-443580, "4307090400"},
		{MaxTick, "79226673515401279992447579055"},
		{MinTick, "4295048016"},
	}

	for _, tt := range tests {
		got, err := SqrtPriceAtTick(tt.tick)
		if err != nil {
			t.Fatalf("SqrtPriceAtTick(%d): %v", tt.tick, err)
		}
		if got.Dec() != tt.want {
			t.Errorf("SqrtPriceAtTick(%d) = %s, want %s", tt.tick, got.Dec(), tt.want)
		}
	}
}

func TestSqrtPriceAtTickBounds(t *testing.T) {
	for _, tick := range []int32{MinTick - 1, MaxTick + 1} {
		if _, err := SqrtPriceAtTick(tick); !errors.Is(err, ErrTickOutOfBounds) {
			t.Errorf("SqrtPriceAtTick(%d) err = %v", tick, err)
		}
	}
	below := new(uint256.Int).SubUint64(MinSqrtPrice, 1)
	above := new(uint256.Int).AddUint64(MaxSqrtPrice, 1)
	for _, p := range []*uint256.Int{below, above} {
		if _, err := TickAtSqrtPrice(p); !errors.Is(err, ErrSqrtPriceOutOfBounds) {
			t.Errorf("TickAtSqrtPrice(%s) err = %v", p.Dec(), err)
		}
	}
}

func TestTickAtSqrtPrice(t *testing.T) {
	tests := []struct {
		name  string
		price *uint256.Int
		want  int32
	}{
		{"min", MinSqrtPrice, MinTick},
		{"min plus one", new(uint256.Int).AddUint64(MinSqrtPrice, 1), MinTick},
		{"max", MaxSqrtPrice, MaxTick},
		{"max minus one", new(uint256.Int).SubUint64(MaxSqrtPrice, 1), MaxTick - 1},
		{"one", uint256.MustFromDecimal("18446744073709551616"), 0},
		{"just below one", uint256.MustFromDecimal("18446744073709551615"), -1},
		{"one to ten", uint256.MustFromDecimal("5833372668713515884"), -23028},
		{"one to two", uint256.MustFromDecimal("13043817825332782212"), -6932},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := TickAtSqrtPrice(tt.price)
			if err != nil {
				t.Fatalf("TickAtSqrtPrice: %v", err)
			}
			if got != tt.want {
				t.Errorf("TickAtSqrtPrice(%s) = %d, want %d", tt.price.Dec(), got, tt.want)
			}
		})
	}
}

func TestTickRoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	ticks := []int32{MinTick, MinTick + 1, -1, 0, 1, MaxTick - 1, MaxTick}
	for i := 0; i < 500; i++ {
		ticks = append(ticks, MinTick+rng.Int31n(MaxTick-MinTick+1))
	}

	for _, tick := range ticks {
		p, err := SqrtPriceAtTick(tick)
		if err != nil {
			t.Fatalf("SqrtPriceAtTick(%d): %v", tick, err)
		}
		got, err := TickAtSqrtPrice(p)
		if err != nil {
			t.Fatalf("TickAtSqrtPrice(%s): %v", p.Dec(), err)
		}
		if got != tick {
			t.Errorf("round trip %d -> %s -> %d", tick, p.Dec(), got)
		}
		if tick > MinTick {
			below, _ := TickAtSqrtPrice(new(uint256.Int).SubUint64(p, 1))
			if below != tick-1 {
				t.Errorf("price just below tick %d maps to %d", tick, below)
			}
		}
	}
}

func TestMaxLiquidityPerTick(t *testing.T) {
	tests := []struct {
		spacing uint32
		want    string
	}{
		{1, "383514844834609487117690504987493"},
		{10, "3835161415588698631345301964810804"},
		{60, "23012265295255187899058267899625901"},
		{200, "76691991643213536953656661580294841"},
	}

	for _, tt := range tests {
		got, err := MaxLiquidityPerTick(tt.spacing)
		if err != nil {
			t.Fatalf("MaxLiquidityPerTick(%d): %v", tt.spacing, err)
		}
		if got.Dec() != tt.want {
			t.Errorf("MaxLiquidityPerTick(%d) = %s, want %s", tt.spacing, got.Dec(), tt.want)
		}
	}
	if _, err := MaxLiquidityPerTick(0); !errors.Is(err, ErrInvalidTickSpacing) {
		t.Errorf("zero spacing err = %v", err)
	}
}

func TestUsableTicks(t *testing.T) {
	if MinUsableTick(60) != -443580 || MaxUsableTick(60) != 443580 {
		t.Errorf("usable ticks for 60 = %d, %d", MinUsableTick(60), MaxUsableTick(60))
	}
	if !IsValidIndex(-120, 60) || IsValidIndex(-121, 60) || IsValidIndex(MaxTick+4, 2) {
		t.Errorf("IsValidIndex misclassified")
	}
}

func BenchmarkSqrtPriceAtTick(b *testing.B) {
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		_, _ = SqrtPriceAtTick(int32(i%int(MaxTick)) - 200000)
	}
}

func BenchmarkTickAtSqrtPrice(b *testing.B) {
	p := uint256.MustFromDecimal("12299879366966330045")
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		_, _ = TickAtSqrtPrice(p)
	}
}
