package payments

import (
	"strconv"
	"testing"

	"github.com/Suraj-792/KinMel/config"
	"github.com/Suraj-792/KinMel/gateways"
	"github.com/Suraj-792/KinMel/models"
	"github.com/Suraj-792/KinMel/utils"
	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// fakeVerifier scripts verification outcomes and records the candidate pids
// it was asked about.
type fakeVerifier struct {
	acceptAll bool
	acceptPid string
	result    gateways.VerifyResult
	calls     []string
}

func (f *fakeVerifier) Verify(refID string, amount decimal.Decimal, pid string) gateways.VerifyResult {
	f.calls = append(f.calls, pid)
	if f.acceptAll || (f.acceptPid != "" && pid == f.acceptPid) {
		return gateways.VerifyResult{Accepted: true, RefID: refID}
	}
	return f.result
}

func (f *fakeVerifier) Trusted() bool { return true }

func testGatewayConfig() config.GatewayConfig {
	return config.GatewayConfig{
		EsewaMerchantID: "EPAYTEST",
		EsewaSecretKey:  "test-secret",
		EsewaPaymentURL: "https://pay.example/form",
		EsewaVerifyURL:  "https://pay.example/verify",
		KhaltiPublicKey: "test_public_key_xxx",
		KhaltiSecretKey: "khalti-secret",
		FonepayMerchant: "FONEPAY",
		FonepayChecksum: "fonepay-key",
		FonepayPayURL:   "https://fonepay.example",
		BankAccount:     "0123456789",
		BankName:        "Nepal Test Bank",
		FrontendSuccess: "http://localhost:3000/payment/success",
		FrontendFailure: "http://localhost:3000/payment/failure",
		CallbackBaseURL: "http://localhost:8080",
	}
}

func setupEngine(t *testing.T, esewa gateways.Verifier) (*Engine, *gorm.DB) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, config.Migrate(db))

	verifiers := map[string]gateways.Verifier{
		models.PaymentMethodEsewa:   esewa,
		models.PaymentMethodKhalti:  &fakeVerifier{acceptAll: true},
		models.PaymentMethodFonepay: &gateways.FonepayVerifier{},
		models.PaymentMethodBank:    &gateways.BankVerifier{},
	}
	return NewEngine(db, testGatewayConfig(), verifiers), db
}

func createUserOrder(t *testing.T, db *gorm.DB, total string) (models.User, models.Order) {
	t.Helper()
	user := models.User{Username: "asha", Email: "asha@example.com", Password: "x"}
	require.NoError(t, db.Create(&user).Error)

	amount, err := decimal.NewFromString(total)
	require.NoError(t, err)
	order := models.Order{UserID: user.ID, Total: amount, Status: models.OrderStatusPending}
	require.NoError(t, db.Create(&order).Error)
	return user, order
}

func createEsewaPayment(t *testing.T, db *gorm.DB, user models.User, order models.Order, uuid string) models.Payment {
	t.Helper()
	payment := models.Payment{
		UserID:          user.ID,
		OrderID:         order.ID,
		Method:          models.PaymentMethodEsewa,
		Amount:          order.Total.Round(2),
		Status:          models.PaymentStatusPending,
		TransactionUUID: uuid,
		ProductCode:     "EPAYTEST",
	}
	require.NoError(t, db.Create(&payment).Error)
	return payment
}

func TestInitiateUnknownMethod(t *testing.T) {
	engine, db := setupEngine(t, &fakeVerifier{})
	user, order := createUserOrder(t, db, "100.00")

	_, err := engine.Initiate(user, order.ID, "paypal")
	require.Error(t, err)
	assert.True(t, utils.IsBadRequestError(err))
}

func TestInitiateOrderNotOwned(t *testing.T) {
	engine, db := setupEngine(t, &fakeVerifier{})
	_, order := createUserOrder(t, db, "100.00")

	stranger := models.User{Username: "bibek", Email: "bibek@example.com", Password: "x"}
	require.NoError(t, db.Create(&stranger).Error)

	_, err := engine.Initiate(stranger, order.ID, models.PaymentMethodEsewa)
	require.Error(t, err)
	assert.True(t, utils.IsNotFoundError(err))
}

func TestInitiateEsewa(t *testing.T) {
	engine, db := setupEngine(t, &fakeVerifier{})
	user, order := createUserOrder(t, db, "100.00")

	initiation, err := engine.Initiate(user, order.ID, models.PaymentMethodEsewa)
	require.NoError(t, err)
	assert.Equal(t, "https://pay.example/form", initiation.URL)
	assert.Equal(t, "100.00", initiation.Params["total_amount"])
	assert.NotEmpty(t, initiation.Params["signature"])
	assert.NotEmpty(t, initiation.Params["transaction_uuid"])

	var payment models.Payment
	require.NoError(t, db.First(&payment, initiation.PaymentID).Error)
	assert.Equal(t, models.PaymentStatusPending, payment.Status)
	assert.Equal(t, initiation.Params["transaction_uuid"], payment.TransactionUUID)
	assert.Equal(t, "EPAYTEST", payment.ProductCode)
	assert.Equal(t, "100.00", payment.Amount.StringFixed(2))
}

func TestInitiateRetryCreatesNewRow(t *testing.T) {
	engine, db := setupEngine(t, &fakeVerifier{})
	user, order := createUserOrder(t, db, "100.00")

	first, err := engine.Initiate(user, order.ID, models.PaymentMethodEsewa)
	require.NoError(t, err)
	second, err := engine.Initiate(user, order.ID, models.PaymentMethodEsewa)
	require.NoError(t, err)
	assert.NotEqual(t, first.PaymentID, second.PaymentID)

	var count int64
	db.Model(&models.Payment{}).Where("order_id = ?", order.ID).Count(&count)
	assert.EqualValues(t, 2, count)
}

func TestInitiateBank(t *testing.T) {
	engine, db := setupEngine(t, &fakeVerifier{})
	user, order := createUserOrder(t, db, "250.00")

	initiation, err := engine.Initiate(user, order.ID, models.PaymentMethodBank)
	require.NoError(t, err)
	assert.Contains(t, initiation.Instructions["reference"], "BANK-")
	assert.Equal(t, "250.00", initiation.Instructions["amount"])
	assert.Equal(t, "Nepal Test Bank", initiation.Instructions["bank_name"])
}

func TestReconcileEsewaSuccess(t *testing.T) {
	verifier := &fakeVerifier{acceptAll: true}
	engine, db := setupEngine(t, verifier)
	user, order := createUserOrder(t, db, "100.00")
	payment := createEsewaPayment(t, db, user, order, "uuid-1")

	result := engine.ReconcileEsewaCallback(Callback{
		RefID:           "R1",
		Amount:          "100.00",
		TransactionUUID: "uuid-1",
	})
	assert.Equal(t, OutcomeAccepted, result.Outcome)
	assert.Equal(t, order.ID, result.OrderID)
	assert.Equal(t, "R1", result.RefID)

	var gotPayment models.Payment
	require.NoError(t, db.First(&gotPayment, payment.ID).Error)
	assert.Equal(t, models.PaymentStatusSuccess, gotPayment.Status)
	assert.Equal(t, "R1", gotPayment.RefID)

	var gotOrder models.Order
	require.NoError(t, db.First(&gotOrder, order.ID).Error)
	assert.Equal(t, models.OrderStatusPaid, gotOrder.Status)
	assert.True(t, gotOrder.IsPaid)
	assert.Equal(t, "R1", gotOrder.TransactionID)
	assert.Equal(t, "uuid-1", gotOrder.TransactionUUID)
}

func TestReconcileEsewaMissingFields(t *testing.T) {
	engine, db := setupEngine(t, &fakeVerifier{acceptAll: true})
	user, order := createUserOrder(t, db, "100.00")
	payment := createEsewaPayment(t, db, user, order, "uuid-1")

	// No reference id at all
	result := engine.ReconcileEsewaCallback(Callback{Amount: "100.00", TransactionUUID: "uuid-1"})
	assert.Equal(t, OutcomeRejected, result.Outcome)

	var gotPayment models.Payment
	require.NoError(t, db.First(&gotPayment, payment.ID).Error)
	assert.Equal(t, models.PaymentStatusPending, gotPayment.Status)
}

func TestReconcileEsewaCandidatePidOrder(t *testing.T) {
	// Only the stored product code verifies; the engine must try the uuid
	// and order id first, in that order, then settle on the product code
	verifier := &fakeVerifier{
		acceptPid: "EPAYTEST",
		result:    gateways.VerifyResult{Reason: gateways.ReasonPidMismatch},
	}
	engine, db := setupEngine(t, verifier)
	user, order := createUserOrder(t, db, "100.00")
	payment := createEsewaPayment(t, db, user, order, "uuid-1")

	oid := strconv.FormatUint(uint64(order.ID), 10)
	result := engine.ReconcileEsewaCallback(Callback{
		RefID:           "R1",
		Amount:          "100.00",
		OrderID:         oid,
		TransactionUUID: "uuid-1",
	})
	assert.Equal(t, OutcomeAccepted, result.Outcome)
	assert.Equal(t, []string{"uuid-1", oid, "EPAYTEST"}, verifier.calls)

	var gotPayment models.Payment
	require.NoError(t, db.First(&gotPayment, payment.ID).Error)
	assert.Equal(t, models.PaymentStatusSuccess, gotPayment.Status)
}

func TestReconcileEsewaAmountMismatchLeavesPending(t *testing.T) {
	verifier := &fakeVerifier{
		result: gateways.VerifyResult{
			Reason: gateways.ReasonAmountMismatch,
			Raw:    `{"status":"SUCCESS","amount":"99.00"}`,
		},
	}
	engine, db := setupEngine(t, verifier)
	user, order := createUserOrder(t, db, "100.00")
	payment := createEsewaPayment(t, db, user, order, "uuid-1")

	result := engine.ReconcileEsewaCallback(Callback{
		RefID:           "R1",
		Amount:          "100.00",
		TransactionUUID: "uuid-1",
	})
	// A still-pending payment is treated as inconclusive, not failed
	assert.Equal(t, OutcomePending, result.Outcome)
	assert.Equal(t, gateways.ReasonAmountMismatch, result.Reason)

	var gotPayment models.Payment
	require.NoError(t, db.First(&gotPayment, payment.ID).Error)
	assert.Equal(t, models.PaymentStatusPending, gotPayment.Status)

	var gotOrder models.Order
	require.NoError(t, db.First(&gotOrder, order.ID).Error)
	assert.Equal(t, models.OrderStatusPending, gotOrder.Status)
	assert.False(t, gotOrder.IsPaid)
}

func TestReconcileEsewaEchoedOrderConflict(t *testing.T) {
	engine, db := setupEngine(t, &conflictingVerifier{})
	user, order := createUserOrder(t, db, "100.00")
	payment := createEsewaPayment(t, db, user, order, "uuid-1")

	result := engine.ReconcileEsewaCallback(Callback{
		RefID:           "R1",
		Amount:          "100.00",
		OrderID:         strconv.FormatUint(uint64(order.ID), 10),
		TransactionUUID: "uuid-1",
	})
	assert.NotEqual(t, OutcomeAccepted, result.Outcome)

	var gotPayment models.Payment
	require.NoError(t, db.First(&gotPayment, payment.ID).Error)
	assert.NotEqual(t, models.PaymentStatusSuccess, gotPayment.Status)
}

// conflictingVerifier accepts but echoes a different order id
type conflictingVerifier struct{}

func (c *conflictingVerifier) Verify(refID string, amount decimal.Decimal, pid string) gateways.VerifyResult {
	return gateways.VerifyResult{
		Accepted: true,
		Parsed:   map[string]string{"oid": "9999"},
	}
}

func (c *conflictingVerifier) Trusted() bool { return true }

func TestFailureCallbackNeverDowngradesSuccess(t *testing.T) {
	engine, db := setupEngine(t, &fakeVerifier{acceptAll: true})
	user, order := createUserOrder(t, db, "100.00")
	payment := createEsewaPayment(t, db, user, order, "uuid-1")

	success := engine.ReconcileEsewaCallback(Callback{
		RefID:           "R1",
		Amount:          "100.00",
		TransactionUUID: "uuid-1",
	})
	require.Equal(t, OutcomeAccepted, success.Outcome)

	late := engine.ReconcileEsewaFailure(Callback{TransactionUUID: "uuid-1"})
	assert.Equal(t, OutcomeAccepted, late.Outcome)
	assert.Equal(t, "R1", late.RefID)

	var gotPayment models.Payment
	require.NoError(t, db.First(&gotPayment, payment.ID).Error)
	assert.Equal(t, models.PaymentStatusSuccess, gotPayment.Status)
}

func TestFailureCallbackMarksPendingFailed(t *testing.T) {
	engine, db := setupEngine(t, &fakeVerifier{acceptAll: true})
	user, order := createUserOrder(t, db, "100.00")
	payment := createEsewaPayment(t, db, user, order, "uuid-1")

	result := engine.ReconcileEsewaFailure(Callback{TransactionUUID: "uuid-1"})
	assert.Equal(t, OutcomeRejected, result.Outcome)

	var gotPayment models.Payment
	require.NoError(t, db.First(&gotPayment, payment.ID).Error)
	assert.Equal(t, models.PaymentStatusFailed, gotPayment.Status)

	var gotOrder models.Order
	require.NoError(t, db.First(&gotOrder, order.ID).Error)
	assert.False(t, gotOrder.IsPaid)
}

func TestDuplicateSuccessCallbackIsIdempotent(t *testing.T) {
	engine, db := setupEngine(t, &fakeVerifier{acceptAll: true})
	user, order := createUserOrder(t, db, "100.00")
	payment := createEsewaPayment(t, db, user, order, "uuid-1")

	cb := Callback{RefID: "R1", Amount: "100.00", TransactionUUID: "uuid-1"}
	first := engine.ReconcileEsewaCallback(cb)
	second := engine.ReconcileEsewaCallback(cb)
	assert.Equal(t, OutcomeAccepted, first.Outcome)
	assert.Equal(t, OutcomeAccepted, second.Outcome)

	var gotPayment models.Payment
	require.NoError(t, db.First(&gotPayment, payment.ID).Error)
	assert.Equal(t, models.PaymentStatusSuccess, gotPayment.Status)
	assert.Equal(t, "R1", gotPayment.RefID)
}

func TestRejectedFirstThenSuccessStillApplies(t *testing.T) {
	verifier := &fakeVerifier{result: gateways.VerifyResult{Reason: gateways.ReasonGatewayDeclined}}
	engine, db := setupEngine(t, verifier)
	user, order := createUserOrder(t, db, "100.00")
	payment := createEsewaPayment(t, db, user, order, "uuid-1")

	cb := Callback{RefID: "R1", Amount: "100.00", TransactionUUID: "uuid-1"}
	rejected := engine.ReconcileEsewaCallback(cb)
	// Pending payment + no pending signal keyword: the engine leaves the row
	// open so a later success can still land
	assert.NotEqual(t, OutcomeAccepted, rejected.Outcome)

	verifier.acceptAll = true
	accepted := engine.ReconcileEsewaCallback(cb)
	assert.Equal(t, OutcomeAccepted, accepted.Outcome)

	var gotPayment models.Payment
	require.NoError(t, db.First(&gotPayment, payment.ID).Error)
	assert.Equal(t, models.PaymentStatusSuccess, gotPayment.Status)
}

func TestVerifyKhaltiSettles(t *testing.T) {
	engine, db := setupEngine(t, &fakeVerifier{})
	user, order := createUserOrder(t, db, "100.00")
	payment := models.Payment{
		UserID: user.ID, OrderID: order.ID,
		Method: models.PaymentMethodKhalti,
		Amount: order.Total, Status: models.PaymentStatusPending,
	}
	require.NoError(t, db.Create(&payment).Error)

	require.NoError(t, engine.VerifyKhalti(user, "tok-1", "100.00", order.ID))

	var gotPayment models.Payment
	require.NoError(t, db.First(&gotPayment, payment.ID).Error)
	assert.Equal(t, models.PaymentStatusSuccess, gotPayment.Status)
	assert.Equal(t, "tok-1", gotPayment.RefID)

	var gotOrder models.Order
	require.NoError(t, db.First(&gotOrder, order.ID).Error)
	assert.Equal(t, "tok-1", gotOrder.TransactionID)
	assert.True(t, gotOrder.IsPaid)
}

func TestConfirmBankRequiresOwnership(t *testing.T) {
	engine, db := setupEngine(t, &fakeVerifier{})
	user, order := createUserOrder(t, db, "100.00")
	payment := models.Payment{
		UserID: user.ID, OrderID: order.ID,
		Method: models.PaymentMethodBank,
		Amount: order.Total, Status: models.PaymentStatusPending,
	}
	require.NoError(t, db.Create(&payment).Error)

	stranger := models.User{Username: "bibek", Email: "bibek@example.com", Password: "x"}
	require.NoError(t, db.Create(&stranger).Error)

	err := engine.ConfirmBank(stranger, order.ID, "TXN-1")
	require.Error(t, err)
	assert.True(t, utils.IsNotFoundError(err))

	// Owner succeeds
	require.NoError(t, engine.ConfirmBank(user, order.ID, "TXN-1"))

	var gotOrder models.Order
	require.NoError(t, db.First(&gotOrder, order.ID).Error)
	assert.Equal(t, "TXN-1", gotOrder.TransactionID)
	assert.True(t, gotOrder.IsPaid)
}

func TestConfirmBankRequiresPendingPayment(t *testing.T) {
	engine, db := setupEngine(t, &fakeVerifier{})
	user, order := createUserOrder(t, db, "100.00")

	// No bank payment at all
	err := engine.ConfirmBank(user, order.ID, "TXN-1")
	require.Error(t, err)
	assert.True(t, utils.IsNotFoundError(err))

	// A settled one does not count either
	payment := models.Payment{
		UserID: user.ID, OrderID: order.ID,
		Method: models.PaymentMethodBank,
		Amount: order.Total, Status: models.PaymentStatusSuccess,
	}
	require.NoError(t, db.Create(&payment).Error)
	err = engine.ConfirmBank(user, order.ID, "TXN-2")
	require.Error(t, err)
	assert.True(t, utils.IsNotFoundError(err))
}

func TestVerifyFonepaySettles(t *testing.T) {
	engine, db := setupEngine(t, &fakeVerifier{})
	user, order := createUserOrder(t, db, "100.00")
	payment := models.Payment{
		UserID: user.ID, OrderID: order.ID,
		Method: models.PaymentMethodFonepay,
		Amount: order.Total, Status: models.PaymentStatusPending,
	}
	require.NoError(t, db.Create(&payment).Error)

	require.NoError(t, engine.VerifyFonepay(strconv.FormatUint(uint64(order.ID), 10)))

	var gotPayment models.Payment
	require.NoError(t, db.First(&gotPayment, payment.ID).Error)
	assert.Equal(t, models.PaymentStatusSuccess, gotPayment.Status)
}
