package sqrtprice

import (
	"testing"

	"github.com/holiman/uint256"

	"github.com/hxuan190/clmm-engine/internal/clmm/fullmath"
)

func TestComputeSwapStep(t *testing.T) {
	liq := uint256.NewInt(2_000_000_000)

	tests := []struct {
		name      string
		target    int32
		liquidity *uint256.Int
		remaining uint64
		feeRate   uint64
		exactIn   bool
		next      string
		in, out   uint64
		fee       uint64
	}{
		{"exact in reaches target", -100, liq, 1_000_000_000, 500, true, "18354745142194483561", 10024540, 9974544, 5015},
		{"exact in stops short", -100, liq, 100_000, 500, true, "18445822243742920564", 99950, 99945, 50},
		{"exact out reaches target", 100, liq, 1_000_000_000, 3000, false, "18539204128674405812", 10024540, 9974544, 30164},
		{"exact out stops short", 100, liq, 100_000, 3000, false, "18447666457032403237", 100006, 100000, 301},
		{"zero liquidity crosses free", -100, new(uint256.Int), 1_000_000, 3000, true, "18354745142194483561", 0, 0, 0},
		{"zero fee", 100, liq, 1_000_000, 0, true, "18455967445746406391", 1000000, 999500, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			target := mustPrice(t, tt.target)
			step, err := ComputeSwapStep(fullmath.Q64, target, tt.liquidity, tt.remaining, tt.feeRate, tt.exactIn)
			if err != nil {
				t.Fatalf("ComputeSwapStep: %v", err)
			}
			if step.NextSqrtPrice.Dec() != tt.next {
				t.Errorf("next = %s, want %s", step.NextSqrtPrice.Dec(), tt.next)
			}
			if step.AmountIn != tt.in || step.AmountOut != tt.out || step.FeeAmount != tt.fee {
				t.Errorf("in/out/fee = %d/%d/%d, want %d/%d/%d",
					step.AmountIn, step.AmountOut, step.FeeAmount, tt.in, tt.out, tt.fee)
			}
			if tt.exactIn && step.AmountIn+step.FeeAmount > tt.remaining {
				t.Errorf("consumed %d more than remaining %d", step.AmountIn+step.FeeAmount, tt.remaining)
			}
			if !tt.exactIn && step.AmountOut > tt.remaining {
				t.Errorf("output %d exceeds requested %d", step.AmountOut, tt.remaining)
			}
		})
	}
}

func TestComputeSwapStepNeverOvershoots(t *testing.T) {
	liq := uint256.NewInt(1_000_000)
	for _, target := range []int32{-1, -10, -1000, 1, 10, 1000} {
		p := mustPrice(t, target)
		for _, exactIn := range []bool{true, false} {
			step, err := ComputeSwapStep(fullmath.Q64, p, liq, 1<<40, 3000, exactIn)
			if err != nil {
				t.Fatalf("target %d: %v", target, err)
			}
			if !step.NextSqrtPrice.Eq(p) {
				t.Errorf("target %d exactIn=%v: next %s != target %s", target, exactIn, step.NextSqrtPrice.Dec(), p.Dec())
			}
		}
	}
}

func BenchmarkComputeSwapStep(b *testing.B) {
	liq := uint256.NewInt(2_000_000_000)
	target := mustPrice(b, -100)
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		_, _ = ComputeSwapStep(fullmath.Q64, target, liq, 100_000, 500, true)
	}
}
