package gateways

import (
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/Suraj-792/KinMel/config"
	"github.com/shopspring/decimal"
)

// KhaltiVerifier confirms a widget token against Khalti's verification API.
// Khalti wants the amount in paisa.
type KhaltiVerifier struct {
	Config config.GatewayConfig
	Client *http.Client
}

func (v *KhaltiVerifier) Trusted() bool { return true }

func (v *KhaltiVerifier) Verify(refID string, amount decimal.Decimal, pid string) VerifyResult {
	paisa := amount.Mul(decimal.NewFromInt(100)).Round(0)
	form := url.Values{
		"token":  {refID},
		"amount": {paisa.String()},
	}

	req, err := http.NewRequest(http.MethodPost, v.Config.KhaltiVerifyURL, strings.NewReader(form.Encode()))
	if err != nil {
		return VerifyResult{Reason: ReasonNetworkError}
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Authorization", "Key "+v.Config.KhaltiSecretKey)

	resp, err := v.Client.Do(req)
	if err != nil {
		return VerifyResult{Reason: ReasonNetworkError}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return VerifyResult{Reason: ReasonNetworkError}
	}
	body := strings.TrimSpace(string(raw))
	result := VerifyResult{Raw: body, Parsed: Normalize(body)}

	var payload struct {
		State struct {
			Name string `json:"name"`
		} `json:"state"`
	}
	if resp.StatusCode == http.StatusOK && json.Unmarshal(raw, &payload) == nil && payload.State.Name == "Completed" {
		result.Accepted = true
		result.RefID = refID
		return result
	}

	result.Reason = ReasonGatewayDeclined
	return result
}
