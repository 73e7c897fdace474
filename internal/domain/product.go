package domain

import "time"

type Product struct {
	ID             int64      `json:"id"`
	ProductNumber  string     `json:"product_number"`
	CategoryID     *int64     `json:"category_id"`
	DepartmentID   *int64     `json:"department_id"`
	ManufacturerID *int64     `json:"manufacturer_id"`
	UPC            int64      `json:"upc"`
	SKU            int64      `json:"sku"`
	RegularPrice   float64    `json:"regular_price"`
	SalePrice      float64    `json:"sale_price"`
	Description    string     `json:"description"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
	DeletedAt      *time.Time `json:"deleted_at,omitempty"`
}

// ProductPatch carries the fields of a partial product update; nil fields
// are left untouched.
type ProductPatch struct {
	ProductNumber  *string
	CategoryID     *int64
	DepartmentID   *int64
	ManufacturerID *int64
	UPC            *int64
	SKU            *int64
	RegularPrice   *float64
	SalePrice      *float64
	Description    *string
}

// ProductRecord is one validated, normalized CSV row. Names are resolved
// to ids by the importer before the row is written.
type ProductRecord struct {
	ProductNumber    string
	CategoryName     string
	DepartmentName   string
	ManufacturerName string
	UPC              int64
	SKU              int64
	RegularPrice     float64
	SalePrice        float64
	Description      string
}

// ProductRow is a ProductRecord with every reference replaced by its id.
type ProductRow struct {
	ProductNumber  string
	CategoryID     int64
	DepartmentID   int64
	ManufacturerID int64
	UPC            int64
	SKU            int64
	RegularPrice   float64
	SalePrice      float64
	Description    string
}
