package controllers

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"

	"github.com/Suraj-792/KinMel/config"
	"github.com/Suraj-792/KinMel/models"
	"github.com/Suraj-792/KinMel/utils"
	"github.com/gin-gonic/gin"
	"github.com/jung-kurt/gofpdf"
	"github.com/shopspring/decimal"
)

// GET /v1/orders/:id/invoice
//
// DownloadInvoice generates and returns a PDF invoice for a paid order
func DownloadInvoice(c *gin.Context) {
	utils.LogInfo("DownloadInvoice called")

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
	if err := config.DB.Preload("Items.Product").Preload("User").
		Where("id = ? AND user_id = ?", orderID, user.ID).First(&order).Error; err != nil {
		utils.LogError("Order %d not found for invoice, user %d", orderID, user.ID)
		utils.NotFound(c, "Order not found")
		return
	}

	if !order.IsPaid {
		utils.BadRequest(c, "Invoice is only available for paid orders", nil)
		return
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 18)
	pdf.Cell(100, 10, "KinMel")
	pdf.SetFont("Arial", "", 12)
	pdf.Ln(8)
	pdf.Cell(100, 8, "New Baneshwor, Kathmandu, Nepal")
	pdf.Ln(8)
	pdf.Cell(100, 8, "Email: support@kinmel.example | Phone: +977-1-4400000")
	pdf.Ln(12)

	pdf.SetFont("Arial", "B", 16)
	pdf.Cell(100, 10, "INVOICE")
	pdf.Ln(12)
	pdf.SetFont("Arial", "", 12)
	pdf.Cell(50, 8, "Order ID: "+strconv.Itoa(int(order.ID)))
	pdf.Cell(60, 8, "Order Date: "+order.CreatedAt.Format("2006-01-02 15:04:05"))
	pdf.Ln(8)
	pdf.Cell(50, 8, "Status: "+order.Status)
	if order.TransactionID != "" {
		pdf.Cell(60, 8, "Transaction: "+order.TransactionID)
	}
	pdf.Ln(8)

	pdf.SetFont("Arial", "B", 13)
	pdf.Cell(100, 8, "Billed To:")
	pdf.Ln(7)
	pdf.SetFont("Arial", "", 12)
	pdf.Cell(100, 8, order.User.FirstName+" "+order.User.LastName)
	pdf.Ln(6)
	pdf.Cell(100, 8, order.User.Email)
	pdf.Ln(6)
	pdf.Cell(100, 8, order.ShippingAddress+", "+order.ShippingCity)
	pdf.Ln(6)
	pdf.Cell(100, 8, order.ShippingPostalCode+", "+order.ShippingCountry)
	pdf.Ln(10)

	pdf.SetFont("Arial", "B", 12)
	pdf.Cell(80, 8, "Item")
	pdf.Cell(25, 8, "Qty")
	pdf.Cell(35, 8, "Unit Price")
	pdf.Cell(35, 8, "Total")
	pdf.Ln(8)
	pdf.SetFont("Arial", "", 12)
	for _, item := range order.Items {
		lineTotal := item.Price.Mul(decimal.NewFromInt(int64(item.Quantity)))
		pdf.Cell(80, 8, item.Product.Title)
		pdf.Cell(25, 8, strconv.Itoa(item.Quantity))
		pdf.Cell(35, 8, "NPR "+item.Price.StringFixed(2))
		pdf.Cell(35, 8, "NPR "+lineTotal.StringFixed(2))
		pdf.Ln(7)
	}
	pdf.Ln(5)
	pdf.SetFont("Arial", "B", 13)
	pdf.Cell(140, 8, "Grand Total")
	pdf.Cell(35, 8, "NPR "+order.Total.StringFixed(2))

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		utils.LogError("Failed to generate invoice PDF for order %d: %v", order.ID, err)
		utils.InternalServerError(c, "Failed to generate invoice", nil)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=invoice-%d.pdf", order.ID))
	c.Data(http.StatusOK, "application/pdf", buf.Bytes())
}
