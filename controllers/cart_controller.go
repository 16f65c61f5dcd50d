package controllers

import (
	"strconv"

	"github.com/Suraj-792/KinMel/config"
	"github.com/Suraj-792/KinMel/models"
	"github.com/Suraj-792/KinMel/utils"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// GET /v1/cart
func GetCart(c *gin.Context) {
	userVal, exists := c.Get("user")
	if !exists {
		utils.Unauthorized(c, "User not found")
		return
	}
	user := userVal.(models.User)
	utils.LogInfo("GetCart called for user ID: %d", user.ID)

	var items []models.CartItem
	if err := config.DB.Preload("Product").Where("user_id = ?", user.ID).Find(&items).Error; err != nil {
		utils.LogError("Failed to load cart for user %d: %v", user.ID, err)
		utils.InternalServerError(c, "Failed to load cart", err.Error())
		return
	}

	total := decimal.Zero
	for _, item := range items {
		total = total.Add(item.Product.Price.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}

	utils.Success(c, "Cart retrieved successfully", gin.H{
		"items": items,
		"total": total.StringFixed(2),
	})
}

// POST /v1/cart
func AddToCart(c *gin.Context) {
	userVal, exists := c.Get("user")
	if !exists {
		utils.Unauthorized(c, "User not found")
		return
	}
	user := userVal.(models.User)

	var req struct {
		ProductID uint `json:"product_id" binding:"required"`
		Quantity  int  `json:"quantity"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.LogError("Invalid cart request for user %d: %v", user.ID, err)
		utils.BadRequest(c, "Invalid request. product_id is required", err.Error())
		return
	}
	if req.Quantity <= 0 {
		req.Quantity = 1
	}

	var product models.Product
	if err := config.DB.Where("id = ? AND is_active = ?", req.ProductID, true).First(&product).Error; err != nil {
		utils.LogError("Product %d not found for cart add", req.ProductID)
		utils.NotFound(c, "Product not found")
		return
	}

	// Adding an item already in the cart increments its quantity
	var item models.CartItem
	err := config.DB.Where("user_id = ? AND product_id = ?", user.ID, req.ProductID).First(&item).Error
	if err == nil {
		item.Quantity += req.Quantity
		if err := config.DB.Save(&item).Error; err != nil {
			utils.LogError("Failed to update cart item for user %d: %v", user.ID, err)
			utils.InternalServerError(c, "Failed to update cart", err.Error())
			return
		}
	} else {
		item = models.CartItem{UserID: user.ID, ProductID: req.ProductID, Quantity: req.Quantity}
		if err := config.DB.Create(&item).Error; err != nil {
			utils.LogError("Failed to add cart item for user %d: %v", user.ID, err)
			utils.InternalServerError(c, "Failed to add to cart", err.Error())
			return
		}
	}
	utils.LogInfo("Cart updated for user %d: product %d x%d", user.ID, req.ProductID, item.Quantity)

	utils.Created(c, "Added to cart", gin.H{"item": item})
}

// DELETE /v1/cart/:id
func RemoveFromCart(c *gin.Context) {
	userVal, exists := c.Get("user")
	if !exists {
		utils.Unauthorized(c, "User not found")
		return
	}
	user := userVal.(models.User)

	itemID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		utils.BadRequest(c, "Invalid cart item ID", nil)
		return
	}

	result := config.DB.Where("id = ? AND user_id = ?", itemID, user.ID).Delete(&models.CartItem{})
	if result.Error != nil {
		utils.LogError("Failed to remove cart item %d for user %d: %v", itemID, user.ID, result.Error)
		utils.InternalServerError(c, "Failed to remove from cart", result.Error.Error())
		return
	}
	if result.RowsAffected == 0 {
		utils.NotFound(c, "Cart item not found")
		return
	}

	utils.Success(c, "Removed from cart", nil)
}
