package gateways

import (
	"github.com/Suraj-792/KinMel/config"
	"github.com/shopspring/decimal"
)

// FonepayVerifier is a stand-in. Fonepay exposes no public synchronous
// verification endpoint, so this verifier accepts everything and reports
// itself untrusted; the engine writes an audit line for every Fonepay
// settlement and nothing irreversible should lean on it alone.
type FonepayVerifier struct{}

func (v *FonepayVerifier) Trusted() bool { return false }

func (v *FonepayVerifier) Verify(refID string, amount decimal.Decimal, pid string) VerifyResult {
	return VerifyResult{Accepted: true}
}

// FonepayInitiation builds the checksum-signed redirect parameters. The value
// order feeding the checksum mirrors the parameter order Fonepay registers
// for the merchant.
func FonepayInitiation(cfg config.GatewayConfig, amount decimal.Decimal, prn string) (string, map[string]string) {
	amountText := FormatAmount(amount)
	checksum := Checksum([]string{cfg.FonepayMerchant, prn, amountText, "NPR"}, cfg.FonepayChecksum)
	params := map[string]string{
		"MERCHANT_CODE": cfg.FonepayMerchant,
		"PRN":           prn,
		"AMOUNT":        amountText,
		"CURRENCY":      "NPR",
		"CHECKSUM":      checksum,
	}
	return cfg.FonepayPayURL, params
}
