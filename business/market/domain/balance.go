package domain

import (
	"github.com/kuoyehs/saga-dex-project/internal/asset"
)

// Balance is one token balance reading. Known distinguishes a read
// zero from a failed read: an unknown balance must never render as 0.
type Balance struct {
	Token  *asset.Token
	Amount asset.Amount
	Known  bool
}

// KnownBalance creates a successfully read balance.
func KnownBalance(amount asset.Amount) Balance {
	return Balance{Token: amount.Token(), Amount: amount, Known: true}
}

// UnknownBalance marks a token whose balance read failed.
func UnknownBalance(token *asset.Token) Balance {
	return Balance{Token: token, Amount: asset.Zero(token), Known: false}
}

// Display returns the balance for rendering, "?" when unknown.
func (b Balance) Display() string {
	if !b.Known {
		return "?"
	}
	return b.Amount.DecimalString()
}
