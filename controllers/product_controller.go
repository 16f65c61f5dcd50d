package controllers

import (
	"github.com/Suraj-792/KinMel/config"
	"github.com/Suraj-792/KinMel/models"
	"github.com/Suraj-792/KinMel/utils"
	"github.com/gin-gonic/gin"
)

// GET /v1/products
func ListProducts(c *gin.Context) {
	utils.LogInfo("ListProducts called")

	var products []models.Product
	query := config.DB.Preload("Images").Preload("Category").Where("is_active = ?", true)
	if category := c.Query("category"); category != "" {
		query = query.Joins("JOIN categories ON categories.id = products.category_id").
			Where("categories.slug = ?", category)
	}
	if err := query.Order("created_at DESC").Find(&products).Error; err != nil {
		utils.LogError("Failed to list products: %v", err)
		utils.InternalServerError(c, "Failed to list products", err.Error())
		return
	}

	utils.Success(c, "Products retrieved successfully", gin.H{"products": products})
}

// GET /v1/products/:slug
func GetProduct(c *gin.Context) {
	slug := c.Param("slug")
	utils.LogInfo("GetProduct called for slug: %s", slug)

	var product models.Product
	if err := config.DB.Preload("Images").Preload("Category").
		Where("slug = ? AND is_active = ?", slug, true).First(&product).Error; err != nil {
		utils.LogError("Product not found for slug: %s", slug)
		utils.NotFound(c, "Product not found")
		return
	}

	utils.Success(c, "Product retrieved successfully", gin.H{"product": product})
}
