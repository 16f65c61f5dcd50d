package models

import (
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Category groups products for browsing
type Category struct {
	gorm.Model
	Name     string    `json:"name"`
	Slug     string    `json:"slug" gorm:"uniqueIndex"`
	Products []Product `json:"products,omitempty" gorm:"foreignKey:CategoryID"`
}

// Product is a catalog entry. Price here is the live catalog price; orders
// snapshot it into OrderItem.Price so later edits never touch placed orders.
type Product struct {
	gorm.Model
	Title       string          `json:"title"`
	Slug        string          `json:"slug" gorm:"uniqueIndex"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price" gorm:"type:decimal(10,2)"`
	Inventory   int             `json:"inventory" gorm:"default:0"`
	CategoryID  uint            `json:"category_id"`
	Category    Category        `json:"category,omitempty" gorm:"foreignKey:CategoryID"`
	Images      []ProductImage  `json:"images,omitempty" gorm:"foreignKey:ProductID"`
	IsActive    bool            `json:"is_active" gorm:"default:true"`
}

// ProductImage stores a hosted image URL for a product
type ProductImage struct {
	gorm.Model
	ProductID uint   `json:"product_id"`
	URL       string `json:"url"`
	AltText   string `json:"alt_text"`
	IsPrimary bool   `json:"is_primary" gorm:"default:false"`
}

// CartItem holds one product line in a user's cart
type CartItem struct {
	gorm.Model
	UserID    uint    `json:"user_id" gorm:"uniqueIndex:idx_cart_user_product"`
	User      User    `json:"-" gorm:"foreignKey:UserID"`
	ProductID uint    `json:"product_id" gorm:"uniqueIndex:idx_cart_user_product"`
	Product   Product `json:"product" gorm:"foreignKey:ProductID"`
	Quantity  int     `json:"quantity" gorm:"default:1"`
}
