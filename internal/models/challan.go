package models

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

func init() {
	// Amounts go over the wire as JSON numbers, not quoted strings
	decimal.MarshalJSONWithoutQuotes = true
}

// LineItem is one entry of a challan
type LineItem struct {
	Quantity    decimal.Decimal `json:"quantity"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
}

// Total returns quantity * price
func (i LineItem) Total() decimal.Decimal {
	return i.Quantity.Mul(i.Price)
}

// Challan is a rendered delivery challan. Rows are written once and never updated,
// except for IsDeleted which nothing in this service changes.
type Challan struct {
	ID           uint                          `gorm:"primaryKey" json:"id"`
	CustomerName string                        `gorm:"not null" json:"customer_name"`
	ChallanNo    string                        `gorm:"not null;uniqueIndex:idx_challans_challan_no" json:"challan_no"`
	Items        datatypes.JSONSlice[LineItem] `gorm:"not null" json:"items"`
	TotalItems   decimal.Decimal               `gorm:"type:decimal(20,4);not null;default:0" json:"total_items"`
	TotalPrice   decimal.Decimal               `gorm:"type:decimal(20,4);not null;default:0" json:"total_price"`
	PDFContent   []byte                        `gorm:"column:pdf_content;not null" json:"-"`
	CreatedAt    time.Time                     `gorm:"not null;index" json:"created_at"`
	IsDeleted    bool                          `gorm:"not null;default:false;index" json:"-"`
}

// TableName implements the GORM tabler interface.
func (Challan) TableName() string { return "challans" }

// ChallanSummary is the listing view of a challan, without items and document bytes
type ChallanSummary struct {
	ID           uint            `json:"id"`
	CustomerName string          `json:"customer_name"`
	ChallanNo    string          `json:"challan_no"`
	CreatedAt    time.Time       `json:"created_at"`
	TotalItems   decimal.Decimal `json:"total_items"`
	TotalPrice   decimal.Decimal `json:"total_price"`
	DownloadURL  string          `gorm:"-" json:"download_url"`
}

// Summary returns the listing view of c
func (c *Challan) Summary() ChallanSummary {
	return ChallanSummary{
		ID:           c.ID,
		CustomerName: c.CustomerName,
		ChallanNo:    c.ChallanNo,
		CreatedAt:    c.CreatedAt,
		TotalItems:   c.TotalItems,
		TotalPrice:   c.TotalPrice,
		DownloadURL:  DownloadURL(c.ID),
	}
}

// Document is a stored rendered challan
type Document struct {
	ID           uint      `json:"id"`
	CustomerName string    `json:"customer_name"`
	ChallanNo    string    `json:"challan_no"`
	CreatedAt    time.Time `json:"created_at"`
	Content      []byte    `json:"content"`
}

// DownloadURL is the API path serving the document of challan id
func DownloadURL(id uint) string {
	return fmt.Sprintf("/api/download-pdf/%d", id)
}

// ComputeTotals returns the sum of quantities and the sum of line totals
func ComputeTotals(items []LineItem) (totalItems, totalPrice decimal.Decimal) {
	totalItems = decimal.Zero
	totalPrice = decimal.Zero
	for _, item := range items {
		totalItems = totalItems.Add(item.Quantity)
		totalPrice = totalPrice.Add(item.Total())
	}
	return totalItems, totalPrice
}

// NewChallan builds an unsaved challan with derived totals
func NewChallan(customerName, challanNo string, items []LineItem, content []byte) *Challan {
	totalItems, totalPrice := ComputeTotals(items)
	return &Challan{
		CustomerName: customerName,
		ChallanNo:    challanNo,
		Items:        datatypes.NewJSONSlice(items),
		TotalItems:   totalItems,
		TotalPrice:   totalPrice,
		PDFContent:   content,
	}
}
