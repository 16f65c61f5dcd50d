package gateways

import "github.com/shopspring/decimal"

// BankVerifier never talks to a gateway. Bank transfers are settled through
// the authenticated confirm endpoint, which checks order ownership before the
// engine is ever invoked; by the time Verify runs the manual check already
// happened.
type BankVerifier struct{}

func (v *BankVerifier) Trusted() bool { return true }

func (v *BankVerifier) Verify(refID string, amount decimal.Decimal, pid string) VerifyResult {
	return VerifyResult{Accepted: true, RefID: refID}
}
