// Package payments holds the reconciliation engine: the single place that
// moves a Payment/Order pair into a settled state. Controllers stay thin and
// every state transition funnels through the engine's transactions.
package payments

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/Suraj-792/KinMel/config"
	"github.com/Suraj-792/KinMel/gateways"
	"github.com/Suraj-792/KinMel/models"
	"github.com/Suraj-792/KinMel/utils"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Engine coordinates initiation, callback correlation and settlement.
// All dependencies are injected once at boot; no ambient state.
type Engine struct {
	db        *gorm.DB
	cfg       config.GatewayConfig
	verifiers map[string]gateways.Verifier
}

// NewEngine builds an engine over the given store and verifier table
func NewEngine(db *gorm.DB, cfg config.GatewayConfig, verifiers map[string]gateways.Verifier) *Engine {
	return &Engine{db: db, cfg: cfg, verifiers: verifiers}
}

// Config exposes the gateway configuration for redirect URL building
func (e *Engine) Config() config.GatewayConfig {
	return e.cfg
}

// Initiation is the method-specific response to a payment initiation
type Initiation struct {
	Method       string            `json:"method"`
	URL          string            `json:"url,omitempty"`
	Params       map[string]string `json:"params,omitempty"`
	KhaltiKey    string            `json:"khalti_key,omitempty"`
	Instructions map[string]string `json:"instructions,omitempty"`
	PaymentID    uint              `json:"payment_id"`
}

// Initiate creates a pending Payment for the caller's order and returns
// whatever the client needs to reach the gateway. Retries create fresh
// Payment rows, earlier attempts are never mutated.
func (e *Engine) Initiate(user models.User, orderID uint, method string) (*Initiation, error) {
	if !models.ValidPaymentMethod(method) {
		return nil, utils.BadRequestError("Invalid method", nil)
	}

	var order models.Order
	if err := e.db.Where("id = ? AND user_id = ?", orderID, user.ID).First(&order).Error; err != nil {
		return nil, utils.NotFoundError("Order not found", err)
	}

	payment := models.Payment{
		UserID:  user.ID,
		OrderID: order.ID,
		Method:  method,
		Amount:  order.Total.Round(2),
		Status:  models.PaymentStatusPending,
	}
	if err := e.db.Create(&payment).Error; err != nil {
		return nil, utils.WrapError(err, "failed to create payment")
	}

	result := &Initiation{Method: method, PaymentID: payment.ID}

	switch method {
	case models.PaymentMethodEsewa:
		transactionUUID := uuid.New().String()
		payURL, params, err := gateways.EsewaInitiation(e.cfg, payment.Amount, transactionUUID, order.ID)
		if err != nil {
			return nil, err
		}
		updates := map[string]interface{}{
			"transaction_uuid": transactionUUID,
			"product_code":     e.cfg.EsewaMerchantID,
		}
		if err := e.db.Model(&payment).Updates(updates).Error; err != nil {
			return nil, utils.WrapError(err, "failed to persist transaction uuid")
		}
		result.URL = payURL
		result.Params = params

	case models.PaymentMethodKhalti:
		// Frontend drives the Khalti widget, the backend only verifies
		result.KhaltiKey = e.cfg.KhaltiPublicKey

	case models.PaymentMethodFonepay:
		payURL, params := gateways.FonepayInitiation(e.cfg, payment.Amount, strconv.FormatUint(uint64(order.ID), 10))
		result.URL = payURL
		result.Params = params

	case models.PaymentMethodBank:
		result.Instructions = map[string]string{
			"reference":    fmt.Sprintf("BANK-%d", order.ID),
			"amount":       gateways.FormatAmount(payment.Amount),
			"bank_account": e.cfg.BankAccount,
			"bank_name":    e.cfg.BankName,
		}
	}

	return result, nil
}

// Callback carries the correlation keys extracted from an inbound gateway
// notification. Absent values are empty strings.
type Callback struct {
	RefID           string
	Amount          string
	OrderID         string
	TransactionUUID string
}

// Outcome classifies a reconciliation attempt
type Outcome int

const (
	// OutcomeAccepted means payment and order settled atomically
	OutcomeAccepted Outcome = iota
	// OutcomePending means the callback was inconclusive and no state changed;
	// the gateway may still complete the transaction out of band
	OutcomePending
	// OutcomeRejected means verification failed and the payment was marked
	// failed (if it was not already terminal)
	OutcomeRejected
)

// ReconcileResult reports where a callback landed
type ReconcileResult struct {
	Outcome Outcome
	OrderID uint
	RefID   string
	Reason  gateways.RejectReason
}

// ReconcileEsewaCallback correlates an inbound eSewa callback to a pending
// payment, verifies it against the gateway and settles exactly once. The
// caller turns the result into a browser redirect, never an error page.
func (e *Engine) ReconcileEsewaCallback(cb Callback) ReconcileResult {
	utils.LogInfo("eSewa callback: refId=%s amt=%s oid=%s uuid=%s", cb.RefID, cb.Amount, cb.OrderID, cb.TransactionUUID)

	// Minimum usable combination: a reference AND some amount source AND
	// some correlation key
	if cb.RefID == "" || (cb.Amount == "" && cb.TransactionUUID == "") || (cb.OrderID == "" && cb.TransactionUUID == "") {
		utils.LogError("eSewa callback missing required fields")
		return ReconcileResult{Outcome: OutcomeRejected, Reason: "missing_fields"}
	}

	payment := e.locatePayment(models.PaymentMethodEsewa, cb.TransactionUUID, cb.OrderID)
	if payment == nil {
		utils.LogError("eSewa callback matched no payment: oid=%s uuid=%s", cb.OrderID, cb.TransactionUUID)
		return ReconcileResult{Outcome: OutcomeRejected, Reason: "payment_not_found"}
	}
	if cb.OrderID == "" {
		cb.OrderID = strconv.FormatUint(uint64(payment.OrderID), 10)
	}

	amount := payment.Amount
	if inbound, ok := gateways.NormalizeAmount(cb.Amount); ok {
		amount = inbound
	}

	candidates := candidatePids(cb.TransactionUUID, cb.OrderID, payment.ProductCode)
	if len(candidates) == 0 {
		return ReconcileResult{Outcome: OutcomeRejected, OrderID: payment.OrderID, Reason: "no_candidate_pid"}
	}

	verifier := e.verifiers[models.PaymentMethodEsewa]
	var last gateways.VerifyResult
	for _, pid := range candidates {
		last = verifier.Verify(cb.RefID, amount, pid)
		if !last.Accepted {
			utils.LogInfo("eSewa verification rejected for pid=%s reason=%s", pid, last.Reason)
			continue
		}
		if echoedOrder := echoedOrderID(last.Parsed); echoedOrder != "" && echoedOrder != cb.OrderID {
			utils.LogError("eSewa echoed order id %s conflicts with %s", echoedOrder, cb.OrderID)
			last = gateways.VerifyResult{Raw: last.Raw, Parsed: last.Parsed, Reason: "order_mismatch"}
			continue
		}

		if err := e.settle(payment.ID, cb.RefID); err != nil {
			utils.LogError("Settlement failed for payment %d: %v", payment.ID, err)
			return ReconcileResult{Outcome: OutcomeRejected, OrderID: payment.OrderID, Reason: "settlement_failed"}
		}
		utils.LogInfo("Payment %d settled via eSewa, ref %s", payment.ID, cb.RefID)
		return ReconcileResult{Outcome: OutcomeAccepted, OrderID: payment.OrderID, RefID: cb.RefID}
	}

	// The gateway may still be settling. An explicit pending signal, or a
	// payment that is still pending on our side, keeps the transaction open
	// rather than failing it prematurely.
	if pendingSignal(last) || payment.Status == models.PaymentStatusPending {
		utils.LogInfo("eSewa callback inconclusive for payment %d, leaving state untouched", payment.ID)
		return ReconcileResult{Outcome: OutcomePending, OrderID: payment.OrderID, Reason: last.Reason}
	}

	e.markFailed(payment.ID)
	return ReconcileResult{Outcome: OutcomeRejected, OrderID: payment.OrderID, Reason: last.Reason}
}

// ReconcileEsewaFailure handles the gateway's failure redirect. A success
// already on record wins over any late failure ping.
func (e *Engine) ReconcileEsewaFailure(cb Callback) ReconcileResult {
	payment := e.locatePayment(models.PaymentMethodEsewa, cb.TransactionUUID, cb.OrderID)
	if payment == nil {
		return ReconcileResult{Outcome: OutcomeRejected, Reason: "payment_not_found"}
	}
	if payment.Status == models.PaymentStatusSuccess {
		utils.LogInfo("Failure callback for settled payment %d ignored", payment.ID)
		return ReconcileResult{Outcome: OutcomeAccepted, OrderID: payment.OrderID, RefID: payment.RefID}
	}
	e.markFailed(payment.ID)
	return ReconcileResult{Outcome: OutcomeRejected, OrderID: payment.OrderID, Reason: "gateway_reported_failure"}
}

// VerifyKhalti settles a Khalti widget token for the given order
func (e *Engine) VerifyKhalti(user models.User, token, amountText string, orderID uint) error {
	amount, ok := gateways.NormalizeAmount(amountText)
	if !ok {
		return utils.BadRequestError("Invalid amount", nil)
	}

	var payment models.Payment
	err := e.db.Where("order_id = ? AND method = ?", orderID, models.PaymentMethodKhalti).
		Order("created_at DESC").First(&payment).Error
	if err != nil {
		return utils.NotFoundError("Payment not found", err)
	}

	result := e.verifiers[models.PaymentMethodKhalti].Verify(token, amount, "")
	if !result.Accepted {
		return utils.BadRequestError("Khalti Payment Failed", nil)
	}
	if err := e.settle(payment.ID, token); err != nil {
		return utils.WrapError(err, "failed to settle khalti payment")
	}
	return nil
}

// VerifyFonepay settles a Fonepay notification by PRN. The verifier is a
// known always-accept stub, so every settlement leaves an audit line.
func (e *Engine) VerifyFonepay(prn string) error {
	var payment models.Payment
	err := e.db.Where("order_id = ? AND method = ?", prn, models.PaymentMethodFonepay).
		Order("created_at DESC").First(&payment).Error
	if err != nil {
		return utils.NotFoundError("Payment not found", err)
	}

	verifier := e.verifiers[models.PaymentMethodFonepay]
	result := verifier.Verify(prn, payment.Amount, prn)
	if !result.Accepted {
		e.markFailed(payment.ID)
		return utils.BadRequestError("Fonepay Payment Failed", nil)
	}
	if !verifier.Trusted() {
		utils.LogError("AUDIT: Fonepay payment %d (order %d, amount %s) settled without gateway verification",
			payment.ID, payment.OrderID, gateways.FormatAmount(payment.Amount))
	}
	if err := e.settle(payment.ID, payment.RefID); err != nil {
		return utils.WrapError(err, "failed to settle fonepay payment")
	}
	return nil
}

// ConfirmBank settles a manual bank transfer. The actor must own the order
// and a pending bank payment must exist, otherwise 404.
func (e *Engine) ConfirmBank(user models.User, orderID uint, transactionID string) error {
	var order models.Order
	if err := e.db.Where("id = ? AND user_id = ?", orderID, user.ID).First(&order).Error; err != nil {
		return utils.NotFoundError("Order/payment not found", err)
	}

	var payment models.Payment
	err := e.db.Where("order_id = ? AND method = ? AND status = ?",
		orderID, models.PaymentMethodBank, models.PaymentStatusPending).
		Order("created_at DESC").First(&payment).Error
	if err != nil {
		return utils.NotFoundError("Order/payment not found", err)
	}

	if err := e.settle(payment.ID, transactionID); err != nil {
		return utils.WrapError(err, "failed to confirm bank payment")
	}
	return nil
}

// locatePayment prefers the transaction uuid (most specific), then falls back
// to the most recent payment for the order and method.
func (e *Engine) locatePayment(method, transactionUUID, orderID string) *models.Payment {
	var payment models.Payment
	if transactionUUID != "" {
		err := e.db.Where("transaction_uuid = ? AND method = ?", transactionUUID, method).
			Order("created_at DESC").First(&payment).Error
		if err == nil {
			return &payment
		}
	}
	if orderID != "" {
		err := e.db.Where("order_id = ? AND method = ?", orderID, method).
			Order("created_at DESC").First(&payment).Error
		if err == nil {
			return &payment
		}
	}
	return nil
}

// settle moves the payment and its order into their final paid state in one
// transaction. A payment already settled is left untouched so duplicate
// callbacks and racing confirmations cannot flip terminal state.
func (e *Engine) settle(paymentID uint, refID string) error {
	return e.db.Transaction(func(tx *gorm.DB) error {
		var payment models.Payment
		if err := tx.First(&payment, paymentID).Error; err != nil {
			return err
		}
		if payment.Status == models.PaymentStatusSuccess {
			return nil
		}

		paymentUpdates := map[string]interface{}{
			"status": models.PaymentStatusSuccess,
		}
		if refID != "" {
			paymentUpdates["ref_id"] = refID
		}
		if err := tx.Model(&payment).Updates(paymentUpdates).Error; err != nil {
			return err
		}

		var order models.Order
		if err := tx.First(&order, payment.OrderID).Error; err != nil {
			return err
		}
		orderUpdates := map[string]interface{}{
			"status":  models.OrderStatusPaid,
			"is_paid": true,
		}
		if refID != "" {
			orderUpdates["transaction_id"] = refID
		}
		if payment.TransactionUUID != "" && payment.TransactionUUID != order.TransactionUUID {
			orderUpdates["transaction_uuid"] = payment.TransactionUUID
		}
		return tx.Model(&order).Updates(orderUpdates).Error
	})
}

// markFailed is idempotent and never downgrades a settled payment
func (e *Engine) markFailed(paymentID uint) {
	err := e.db.Model(&models.Payment{}).
		Where("id = ? AND status = ?", paymentID, models.PaymentStatusPending).
		Update("status", models.PaymentStatusFailed).Error
	if err != nil {
		utils.LogError("Failed to mark payment %d failed: %v", paymentID, err)
	}
}

// candidatePids builds the ordered, de-duplicated pid list to try against the
// gateway. Historical integrations used the short order id, the generated
// uuid and the merchant product code interchangeably, so all three get a shot.
func candidatePids(values ...string) []string {
	seen := map[string]bool{}
	var out []string
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	return out
}

func echoedOrderID(parsed map[string]string) string {
	for _, key := range []string{"oid", "orderid", "order_id"} {
		if v, ok := parsed[key]; ok && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

// pendingSignal looks for a pending keyword in the gateway's last answer
func pendingSignal(result gateways.VerifyResult) bool {
	if strings.Contains(strings.ToUpper(result.Raw), "PENDING") {
		return true
	}
	for _, v := range result.Parsed {
		if strings.EqualFold(strings.TrimSpace(v), "pending") {
			return true
		}
	}
	return false
}
