package domain_test

import (
	"math/big"
	"testing"

	"github.com/kuoyehs/saga-dex-project/business/market/domain"
)

func TestApplySlippage(t *testing.T) {
	cases := []struct {
		out  int64
		bps  int64
		want int64
	}{
		{10000, 500, 9500},
		{999, 500, 949}, // 949.05 floors to 949
		{10000, 0, 10000},
		{1, 500, 0},
		{0, 500, 0},
		{3, 1, 2}, // 2.9997 floors to 2
	}

	for _, tc := range cases {
		got := domain.ApplySlippage(big.NewInt(tc.out), tc.bps)
		if got.Int64() != tc.want {
			t.Errorf("ApplySlippage(%d, %d) = %s, want %d", tc.out, tc.bps, got, tc.want)
		}
	}
}
