package controllers

import (
	"strconv"

	"github.com/Suraj-792/KinMel/config"
	"github.com/Suraj-792/KinMel/models"
	"github.com/Suraj-792/KinMel/utils"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// POST /v1/orders/checkout
//
// Creates an order from the user's cart in one transaction. Unit prices are
// copied onto the order items so later catalog price changes never move a
// placed order's total.
func Checkout(c *gin.Context) {
	userVal, exists := c.Get("user")
	if !exists {
		utils.Unauthorized(c, "User not found")
		return
	}
	user := userVal.(models.User)
	utils.LogInfo("Checkout called for user ID: %d", user.ID)

	var req struct {
		ShippingAddress    string `json:"shipping_address" binding:"required"`
		ShippingCity       string `json:"shipping_city" binding:"required"`
		ShippingPostalCode string `json:"shipping_postal_code" binding:"required"`
		ShippingCountry    string `json:"shipping_country" binding:"required"`
		ShippingPhone      string `json:"shipping_phone"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.LogError("Invalid checkout request for user %d: %v", user.ID, err)
		utils.BadRequest(c, "Invalid request. Shipping details are required", err.Error())
		return
	}

	var cartItems []models.CartItem
	if err := config.DB.Preload("Product").Where("user_id = ?", user.ID).Find(&cartItems).Error; err != nil {
		utils.LogError("Failed to load cart for user %d: %v", user.ID, err)
		utils.InternalServerError(c, "Failed to load cart", err.Error())
		return
	}
	if len(cartItems) == 0 {
		utils.BadRequest(c, "Cart is empty", nil)
		return
	}

	tx := config.DB.Begin()
	if tx.Error != nil {
		utils.LogError("Failed to start transaction for user %d: %v", user.ID, tx.Error)
		utils.InternalServerError(c, "Failed to start transaction", nil)
		return
	}

	order := models.Order{
		UserID:             user.ID,
		Total:              decimal.Zero,
		Status:             models.OrderStatusPending,
		IsPaid:             false,
		ShippingAddress:    req.ShippingAddress,
		ShippingCity:       req.ShippingCity,
		ShippingPostalCode: req.ShippingPostalCode,
		ShippingCountry:    req.ShippingCountry,
		ShippingPhone:      req.ShippingPhone,
	}
	if err := tx.Create(&order).Error; err != nil {
		tx.Rollback()
		utils.LogError("Failed to create order for user %d: %v", user.ID, err)
		utils.InternalServerError(c, "Failed to create order", err.Error())
		return
	}

	total := decimal.Zero
	for _, item := range cartItems {
		orderItem := models.OrderItem{
			OrderID:   order.ID,
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			Price:     item.Product.Price,
		}
		if err := tx.Create(&orderItem).Error; err != nil {
			tx.Rollback()
			utils.LogError("Failed to create order item for order %d: %v", order.ID, err)
			utils.InternalServerError(c, "Failed to create order", err.Error())
			return
		}
		total = total.Add(item.Product.Price.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}

	if err := tx.Model(&order).Update("total", total.Round(2)).Error; err != nil {
		tx.Rollback()
		utils.LogError("Failed to set total for order %d: %v", order.ID, err)
		utils.InternalServerError(c, "Failed to create order", err.Error())
		return
	}

	if err := tx.Where("user_id = ?", user.ID).Delete(&models.CartItem{}).Error; err != nil {
		tx.Rollback()
		utils.LogError("Failed to clear cart for user %d: %v", user.ID, err)
		utils.InternalServerError(c, "Failed to clear cart", err.Error())
		return
	}

	if err := tx.Commit().Error; err != nil {
		utils.LogError("Failed to commit checkout for user %d: %v", user.ID, err)
		utils.InternalServerError(c, "Failed to commit transaction", err.Error())
		return
	}
	utils.LogInfo("Created order %d for user %d, total %s", order.ID, user.ID, total.StringFixed(2))

	utils.Created(c, "Order placed successfully", gin.H{
		"order_id": order.ID,
		"total":    total.StringFixed(2),
	})
}

// GET /v1/orders
func ListOrders(c *gin.Context) {
	userVal, exists := c.Get("user")
	if !exists {
		utils.Unauthorized(c, "User not found")
		return
	}
	user := userVal.(models.User)

	var orders []models.Order
	if err := config.DB.Preload("Items.Product").Where("user_id = ?", user.ID).
		Order("created_at DESC").Find(&orders).Error; err != nil {
		utils.LogError("Failed to list orders for user %d: %v", user.ID, err)
		utils.InternalServerError(c, "Failed to list orders", err.Error())
		return
	}

	utils.Success(c, "Orders retrieved successfully", gin.H{"orders": orders})
}

// GET /v1/orders/:id
func GetOrder(c *gin.Context) {
	userVal, exists := c.Get("user")
	if !exists {
		utils.Unauthorized(c, "User not found")
		return
	}
	user := userVal.(models.User)

	orderID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		utils.BadRequest(c, "Invalid order ID", nil)
		return
	}

	var order models.Order
	if err := config.DB.Preload("Items.Product").
		Where("id = ? AND user_id = ?", orderID, user.ID).First(&order).Error; err != nil {
		utils.LogError("Order %d not found for user %d", orderID, user.ID)
		utils.NotFound(c, "Order not found")
		return
	}

	utils.Success(c, "Order retrieved successfully", gin.H{"order": order})
}
