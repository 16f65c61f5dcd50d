package gateways

import (
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/Suraj-792/KinMel/config"
	"github.com/shopspring/decimal"
)

// esewaSignedFields is the concatenation order eSewa validates signatures
// against. Do not reorder.
var esewaSignedFields = []string{"total_amount", "transaction_uuid", "product_code"}

// EsewaVerifier checks a reported transaction against eSewa's transaction
// record endpoint.
type EsewaVerifier struct {
	Config config.GatewayConfig
	Client *http.Client
}

func (v *EsewaVerifier) Trusted() bool { return true }

// Verify posts the reference, amount and candidate pid to eSewa and
// cross-checks every field the gateway echoes back. A transport failure is a
// rejection, never an error that escapes this boundary.
func (v *EsewaVerifier) Verify(refID string, amount decimal.Decimal, pid string) VerifyResult {
	form := url.Values{
		"amt": {FormatAmount(amount)},
		"rid": {refID},
		"pid": {pid},
		"scd": {v.Config.EsewaMerchantID},
	}

	resp, err := v.Client.PostForm(v.Config.EsewaVerifyURL, form)
	if err != nil {
		return VerifyResult{Reason: ReasonNetworkError}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return VerifyResult{Reason: ReasonNetworkError}
	}
	body := strings.TrimSpace(string(raw))
	parsed := Normalize(body)

	statusValue := strings.ToLower(strings.TrimSpace(firstOf(parsed, "status", "responsecode", "response_code")))
	rawUpper := strings.ToUpper(body)
	successHint := strings.Contains(rawUpper, "SUCCESS") && !strings.Contains(rawUpper, "FAIL")
	isSuccess := statusValue == "success" || (statusValue == "" && successHint)

	result := VerifyResult{Raw: body, Parsed: parsed}
	if !isSuccess {
		result.Reason = ReasonGatewayDeclined
		return result
	}

	expectedAmount := amount.Round(2)
	if echoed := firstOf(parsed, "amount", "amt", "totalamount", "total_amount"); echoed != "" {
		if responseAmount, ok := NormalizeAmount(echoed); ok {
			if !expectedAmount.Equal(responseAmount) {
				result.Reason = ReasonAmountMismatch
				return result
			}
			result.Amount = FormatAmount(responseAmount)
		}
	}

	if echoedRef := firstOf(parsed, "refid", "referenceid", "reference_id"); echoedRef != "" {
		if strings.TrimSpace(echoedRef) != strings.TrimSpace(refID) {
			result.Reason = ReasonReferenceMismatch
			return result
		}
		result.RefID = strings.TrimSpace(echoedRef)
	}

	echoedPid := firstOf(parsed,
		"productid", "product_id", "productcode", "product_code", "pid", "transaction_uuid")
	if echoedPid != "" {
		if strings.TrimSpace(echoedPid) != strings.TrimSpace(pid) {
			result.Reason = ReasonPidMismatch
			return result
		}
		result.Pid = strings.TrimSpace(echoedPid)
	}

	result.Accepted = true
	return result
}

// EsewaInitiation builds the signed redirect form for the eSewa checkout
// page. The returned params include the signature and the signed field list
// the gateway recomputes it over.
func EsewaInitiation(cfg config.GatewayConfig, amount decimal.Decimal, transactionUUID string, orderID uint) (string, map[string]string, error) {
	total := FormatAmount(amount)
	params := map[string]string{
		"amount":                  total,
		"tax_amount":              "0",
		"total_amount":            total,
		"transaction_uuid":        transactionUUID,
		"product_code":            cfg.EsewaMerchantID,
		"product_service_charge":  "0",
		"product_delivery_charge": "0",
		"success_url":             fmt.Sprintf("%s/v1/payments/esewa-verify?oid=%d&transaction_uuid=%s", cfg.CallbackBaseURL, orderID, transactionUUID),
		"failure_url":             fmt.Sprintf("%s/v1/payments/esewa-fail?oid=%d&transaction_uuid=%s", cfg.CallbackBaseURL, orderID, transactionUUID),
	}

	signature, err := SignFields(params, esewaSignedFields, cfg.EsewaSecretKey)
	if err != nil {
		return "", nil, err
	}
	params["signed_field_names"] = strings.Join(esewaSignedFields, ",")
	params["signature"] = signature

	return cfg.EsewaPaymentURL, params, nil
}

// firstOf returns the first non-empty value among the given keys
func firstOf(parsed map[string]string, keys ...string) string {
	for _, key := range keys {
		if v, ok := parsed[key]; ok && strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
