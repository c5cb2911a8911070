package asset_test

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	"github.com/kuoyehs/saga-dex-project/internal/asset"
)

var (
	testToken = asset.NewToken("TEST", "Test Token",
		common.HexToAddress("0x1111111111111111111111111111111111111111"), asset.LedgerDecimals)
	usdToken = asset.NewToken("USD", "USD Token",
		common.HexToAddress("0x2222222222222222222222222222222222222222"), asset.LedgerDecimals)
)

func TestAmount_Basic(t *testing.T) {
	one := asset.NewAmount(testToken, big.NewInt(1e18))

	if one.IsZero() {
		t.Error("expected non-zero amount")
	}
	if !one.IsPositive() {
		t.Error("expected positive amount")
	}
	if !one.ToDecimal().Equal(decimal.NewFromInt(1)) {
		t.Errorf("expected 1, got %s", one.ToDecimal().String())
	}
	if one.String() != "1 TEST" {
		t.Errorf("expected '1 TEST', got '%s'", one.String())
	}
}

func TestParseString_RoundTrip(t *testing.T) {
	cases := []struct {
		input string
		raw   string
		out   string
	}{
		{"0", "0", "0"},
		{"1", "1000000000000000000", "1"},
		{"1.5", "1500000000000000000", "1.5"},
		{"0.000000000000000001", "1", "0.000000000000000001"},
		{"100.100", "100100000000000000000", "100.1"},
		{"42.123456789012345678", "42123456789012345678", "42.123456789012345678"},
	}

	for _, tc := range cases {
		amount, err := asset.ParseString(testToken, tc.input)
		if err != nil {
			t.Fatalf("ParseString(%q): %v", tc.input, err)
		}

		want, _ := new(big.Int).SetString(tc.raw, 10)
		if amount.Raw().Cmp(want) != 0 {
			t.Errorf("ParseString(%q) raw = %s, want %s", tc.input, amount.Raw(), want)
		}
		if got := amount.DecimalString(); got != tc.out {
			t.Errorf("DecimalString(%q) = %q, want %q", tc.input, got, tc.out)
		}
	}
}

func TestParseString_TruncatesExcessPrecision(t *testing.T) {
	// 19 fractional digits on an 18-decimal token: the last digit is
	// dropped, never rounded up.
	amount, err := asset.ParseString(testToken, "1.0000000000000000019")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want, _ := new(big.Int).SetString("1000000000000000001", 10)
	if amount.Raw().Cmp(want) != 0 {
		t.Errorf("raw = %s, want %s (truncated)", amount.Raw(), want)
	}
}

func TestParseString_Invalid(t *testing.T) {
	for _, input := range []string{"", "abc", "1.2.3", "1,5"} {
		if _, err := asset.ParseString(testToken, input); err == nil {
			t.Errorf("ParseString(%q): expected error", input)
		}
	}
}

func TestParseString_NegativeRejected(t *testing.T) {
	if _, err := asset.ParseString(testToken, "-1"); err == nil {
		t.Error("expected error for negative amount")
	}
}

func TestAmount_AddSub(t *testing.T) {
	one := asset.NewAmount(testToken, big.NewInt(1e18))
	two := asset.NewAmount(testToken, big.NewInt(2e18))

	sum, err := one.Add(two)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !sum.ToDecimal().Equal(decimal.NewFromInt(3)) {
		t.Errorf("expected 3, got %s", sum.ToDecimal().String())
	}

	if _, err := one.Sub(two); err == nil {
		t.Error("expected error for negative result")
	}
}

func TestAmount_CannotMixTokens(t *testing.T) {
	one := asset.NewAmount(testToken, big.NewInt(1e18))
	other := asset.NewAmount(usdToken, big.NewInt(1e18))

	if _, err := one.Add(other); err == nil {
		t.Error("expected error when adding different tokens")
	}
	if _, err := one.Cmp(other); err == nil {
		t.Error("expected error when comparing different tokens")
	}
}

func TestAmount_RawIsACopy(t *testing.T) {
	raw := big.NewInt(1e18)
	amount := asset.NewAmount(testToken, raw)

	raw.SetInt64(5)
	if amount.Raw().Cmp(big.NewInt(1e18)) != 0 {
		t.Error("mutating the input raw value changed the amount")
	}

	amount.Raw().SetInt64(7)
	if amount.Raw().Cmp(big.NewInt(1e18)) != 0 {
		t.Error("mutating the returned raw value changed the amount")
	}
}

func TestToken_IsConfigured(t *testing.T) {
	unconfigured := asset.NewToken("NEW", "New Token", common.Address{}, asset.LedgerDecimals)
	if unconfigured.IsConfigured() {
		t.Error("zero address should be unconfigured")
	}
	if !testToken.IsConfigured() {
		t.Error("non-zero address should be configured")
	}
}
