package controllers

import (
	"fmt"
	"net/http"
	"net/url"

	"github.com/Suraj-792/KinMel/config"
	"github.com/Suraj-792/KinMel/models"
	"github.com/Suraj-792/KinMel/payments"
	"github.com/Suraj-792/KinMel/utils"
	"github.com/gin-gonic/gin"
)

// GET|POST /v1/payments/esewa-verify
//
// Called by eSewa's browser redirect, so the answer is always a redirect to
// the frontend, never a JSON error. Correctness rests on the server-side
// verification round-trip inside the engine, not on anything the caller
// asserts.
func EsewaVerifyCallback(c *gin.Context) {
	cb := extractEsewaCallback(c)
	result := paymentEngine.ReconcileEsewaCallback(cb)

	switch result.Outcome {
	case payments.OutcomeAccepted:
		sendPaymentReceipt(result.OrderID, models.PaymentMethodEsewa, result.RefID)
		c.Redirect(http.StatusFound, successURL(result.OrderID, result.RefID))
	case payments.OutcomePending:
		// Inconclusive: the gateway may still complete the transaction, so
		// nothing was marked failed and the shopper sees the success page.
		c.Redirect(http.StatusFound, successURL(result.OrderID, ""))
	default:
		c.Redirect(http.StatusFound, failureURL(result.OrderID))
	}
}

// GET|POST /v1/payments/esewa-fail
func EsewaFailCallback(c *gin.Context) {
	cb := extractEsewaCallback(c)
	result := paymentEngine.ReconcileEsewaFailure(cb)

	// Never downgrade: a payment that already settled redirects to success
	if result.Outcome == payments.OutcomeAccepted {
		c.Redirect(http.StatusFound, successURL(result.OrderID, result.RefID))
		return
	}
	c.Redirect(http.StatusFound, failureURL(result.OrderID))
}

// extractEsewaCallback accepts correlation keys from either the query string
// or a POST form body, query first.
func extractEsewaCallback(c *gin.Context) payments.Callback {
	get := func(key string) string {
		if v := c.Query(key); v != "" {
			return v
		}
		return c.PostForm(key)
	}
	return payments.Callback{
		RefID:           get("refId"),
		Amount:          get("amt"),
		OrderID:         get("oid"),
		TransactionUUID: get("transaction_uuid"),
	}
}

func successURL(orderID uint, refID string) string {
	base := paymentEngine.Config().FrontendSuccess
	q := url.Values{}
	if orderID != 0 {
		q.Set("order_id", fmt.Sprintf("%d", orderID))
	}
	if refID != "" {
		q.Set("ref_id", refID)
	}
	if encoded := q.Encode(); encoded != "" {
		return base + "?" + encoded
	}
	return base
}

func failureURL(orderID uint) string {
	base := paymentEngine.Config().FrontendFailure
	if orderID != 0 {
		return fmt.Sprintf("%s?order_id=%d", base, orderID)
	}
	return base
}

// sendPaymentReceipt emails the order's owner after settlement. Best-effort:
// a failed send is logged and forgotten.
func sendPaymentReceipt(orderID uint, method, refID string) {
	var order models.Order
	if err := config.DB.Preload("User").First(&order, orderID).Error; err != nil {
		utils.LogError("Receipt skipped, order %d not found: %v", orderID, err)
		return
	}
	go func() {
		if err := utils.SendPaymentReceipt(order.User.Email, order.ID, method, refID, order.Total.StringFixed(2)); err != nil {
			utils.LogError("Failed to send receipt for order %d: %v", order.ID, err)
		}
	}()
}
