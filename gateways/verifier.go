package gateways

import (
	"net/http"
	"time"

	"github.com/Suraj-792/KinMel/config"
	"github.com/Suraj-792/KinMel/models"
	"github.com/shopspring/decimal"
)

// RejectReason is a typed explanation for a declined verification
type RejectReason string

const (
	ReasonNetworkError      RejectReason = "network_error"
	ReasonAmountMismatch    RejectReason = "amount_mismatch"
	ReasonReferenceMismatch RejectReason = "reference_mismatch"
	ReasonPidMismatch       RejectReason = "pid_mismatch"
	ReasonGatewayDeclined   RejectReason = "gateway_declined"
)

// VerifyResult carries the verification verdict together with the raw and
// parsed gateway response so rejections stay auditable.
type VerifyResult struct {
	Accepted bool
	Reason   RejectReason
	Raw      string
	Parsed   map[string]string

	// Echoed values, populated when the gateway returned them
	Amount string
	RefID  string
	Pid    string
}

// Verifier confirms a reported transaction against the gateway's own record.
// Implementations are ignorant of which pid convention is in use; the
// reconciliation engine tries one call per candidate pid.
type Verifier interface {
	Verify(refID string, amount decimal.Decimal, pid string) VerifyResult

	// Trusted reports whether an accepted result reflects a real gateway
	// round-trip. The Fonepay verifier returns false, its settlements need
	// a manual audit.
	Trusted() bool
}

// NewRegistry builds the method -> verifier lookup table the engine
// dispatches on.
func NewRegistry(cfg config.GatewayConfig) map[string]Verifier {
	client := &http.Client{Timeout: 10 * time.Second}
	return map[string]Verifier{
		models.PaymentMethodEsewa:   &EsewaVerifier{Config: cfg, Client: client},
		models.PaymentMethodKhalti:  &KhaltiVerifier{Config: cfg, Client: client},
		models.PaymentMethodFonepay: &FonepayVerifier{},
		models.PaymentMethodBank:    &BankVerifier{},
	}
}
