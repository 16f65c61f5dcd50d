package controllers

import (
	"github.com/Suraj-792/KinMel/models"
	"github.com/Suraj-792/KinMel/payments"
	"github.com/Suraj-792/KinMel/utils"
	"github.com/gin-gonic/gin"
)

// paymentEngine is injected once at startup, mirroring how config.DB is wired
var paymentEngine *payments.Engine

// InitPaymentEngine wires the reconciliation engine into the controllers
func InitPaymentEngine(e *payments.Engine) {
	paymentEngine = e
}

// POST /v1/payments/initiate
func InitiatePayment(c *gin.Context) {
	utils.LogInfo("InitiatePayment called")
	userVal, exists := c.Get("user")
	if !exists {
		utils.LogError("User not found in context")
		utils.Unauthorized(c, "User not found")
		return
	}
	user := userVal.(models.User)

	var req struct {
		Method  string `json:"method" binding:"required"`
		OrderID uint   `json:"order_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.LogError("Invalid initiation request for user %d: %v", user.ID, err)
		utils.BadRequest(c, "Invalid request. method and order_id are required", err.Error())
		return
	}
	utils.LogInfo("Initiating %s payment for order %d, user %d", req.Method, req.OrderID, user.ID)

	initiation, err := paymentEngine.Initiate(user, req.OrderID, req.Method)
	if err != nil {
		if appErr := utils.GetAppError(err); appErr != nil {
			utils.LogError("Initiation rejected for user %d: %v", user.ID, appErr)
			utils.Error(c, appErr.Code, appErr.Message, nil)
			return
		}
		utils.LogError("Initiation failed for user %d: %v", user.ID, err)
		utils.InternalServerError(c, "Failed to initiate payment", err.Error())
		return
	}

	utils.Success(c, "Payment initiated successfully", initiation)
}

// POST /v1/payments/khalti-verify
func KhaltiVerify(c *gin.Context) {
	utils.LogInfo("KhaltiVerify called")
	userVal, exists := c.Get("user")
	if !exists {
		utils.Unauthorized(c, "User not found")
		return
	}
	user := userVal.(models.User)

	var req struct {
		Token   string `json:"token" binding:"required"`
		Amount  string `json:"amount" binding:"required"`
		OrderID uint   `json:"order_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.LogError("Invalid khalti verify request for user %d: %v", user.ID, err)
		utils.BadRequest(c, "Invalid request", err.Error())
		return
	}

	if err := paymentEngine.VerifyKhalti(user, req.Token, req.Amount, req.OrderID); err != nil {
		utils.LogError("Khalti verification failed for order %d: %v", req.OrderID, err)
		if appErr := utils.GetAppError(err); appErr != nil {
			utils.Error(c, appErr.Code, appErr.Message, nil)
			return
		}
		utils.BadRequest(c, "Khalti Payment Failed", nil)
		return
	}

	utils.LogInfo("Khalti payment settled for order %d", req.OrderID)
	utils.Success(c, "Khalti Payment Successful", gin.H{"order_id": req.OrderID})
}

// GET /v1/payments/fonepay-verify
func FonepayVerify(c *gin.Context) {
	prn := c.Query("prn")
	utils.LogInfo("FonepayVerify called for prn: %s", prn)
	if prn == "" {
		utils.BadRequest(c, "prn is required", nil)
		return
	}

	if err := paymentEngine.VerifyFonepay(prn); err != nil {
		utils.LogError("Fonepay verification failed for prn %s: %v", prn, err)
		if appErr := utils.GetAppError(err); appErr != nil {
			utils.Error(c, appErr.Code, appErr.Message, nil)
			return
		}
		utils.BadRequest(c, "Fonepay Payment Failed", nil)
		return
	}

	utils.Success(c, "Fonepay Payment Successful", gin.H{"prn": prn})
}

// POST /v1/payments/bank-confirm
func BankConfirm(c *gin.Context) {
	utils.LogInfo("BankConfirm called")
	userVal, exists := c.Get("user")
	if !exists {
		utils.Unauthorized(c, "User not found")
		return
	}
	user := userVal.(models.User)

	var req struct {
		OrderID       uint   `json:"order_id" binding:"required"`
		TransactionID string `json:"transaction_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.LogError("Invalid bank confirm request for user %d: %v", user.ID, err)
		utils.BadRequest(c, "order_id and transaction_id are required", err.Error())
		return
	}

	if err := paymentEngine.ConfirmBank(user, req.OrderID, req.TransactionID); err != nil {
		utils.LogError("Bank confirm failed for order %d, user %d: %v", req.OrderID, user.ID, err)
		if appErr := utils.GetAppError(err); appErr != nil {
			utils.Error(c, appErr.Code, appErr.Message, nil)
			return
		}
		utils.InternalServerError(c, "Failed to confirm bank payment", err.Error())
		return
	}

	utils.LogInfo("Bank payment confirmed for order %d", req.OrderID)
	utils.Success(c, "Bank payment confirmed", gin.H{"order_id": req.OrderID})
}
