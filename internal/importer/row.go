package importer

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode/utf8"

	"product-catalog/internal/domain"
)

// Column names expected in the import header. Order in the file does not
// matter; values are looked up by name.
const (
	ColProductNumber    = "product_number"
	ColCategoryName     = "category_name"
	ColDepartmentName   = "department_name"
	ColManufacturerName = "manufacturer_name"
	ColUPC              = "upc"
	ColSKU              = "sku"
	ColRegularPrice     = "regular_price"
	ColSalePrice        = "sale_price"
	ColDescription      = "description"
)

// Sentinel values substituted for blank input.
const (
	DefaultName   = "Unknown"
	NoInformation = "N/I"
	NoPrice       = "0.00"
)

// maxPrice is the largest value a NUMERIC(10,2) column accepts.
const maxPrice = 99999999.99

// MaxNameLength is the width of the VARCHAR(255) name columns.
const MaxNameLength = 255

var (
	nameColumns = []string{ColProductNumber, ColCategoryName, ColDepartmentName, ColManufacturerName}
	allColumns  = []string{
		ColProductNumber, ColCategoryName, ColDepartmentName, ColManufacturerName,
		ColUPC, ColSKU, ColRegularPrice, ColSalePrice, ColDescription,
	}
)

var (
	errNegative   = errors.New("negative value")
	errNotFinite  = errors.New("not a finite number")
	errOutOfRange = errors.New("out of range")
)

// RawRow maps header column names to the raw cell values of one line.
type RawRow map[string]string

// Validate rejects rows that cannot become a product, including values the
// products and reference tables would refuse.
func Validate(row RawRow) error {
	number := strings.TrimSpace(row[ColProductNumber])
	if number == "" {
		return fmt.Errorf("%w: %s", ErrMissingRequiredField, ColProductNumber)
	}
	if strings.TrimSpace(row[ColCategoryName]) == "" {
		return fmt.Errorf("%w: %s for product %s", ErrMissingRequiredField, ColCategoryName, number)
	}
	for _, col := range allColumns {
		v := row[col]
		if strings.ContainsRune(v, 0) || !utf8.ValidString(v) {
			return fmt.Errorf("%w: %s", ErrInvalidText, col)
		}
	}
	for _, col := range nameColumns {
		if n := utf8.RuneCountInString(strings.TrimSpace(row[col])); n > MaxNameLength {
			return fmt.Errorf("%w: %s has %d characters, max %d", ErrFieldTooLong, col, n, MaxNameLength)
		}
	}
	return nil
}

// Transform applies defaults and numeric casts. Call Validate first.
func Transform(row RawRow) (domain.ProductRecord, error) {
	rec := domain.ProductRecord{
		ProductNumber:    strings.TrimSpace(row[ColProductNumber]),
		CategoryName:     strings.TrimSpace(row[ColCategoryName]),
		DepartmentName:   orDefault(row[ColDepartmentName], DefaultName),
		ManufacturerName: orDefault(row[ColManufacturerName], DefaultName),
		Description:      orDefault(row[ColDescription], NoInformation),
	}

	var err error
	if rec.UPC, err = parseCount(ColUPC, row[ColUPC]); err != nil {
		return domain.ProductRecord{}, err
	}
	if rec.SKU, err = parseCount(ColSKU, row[ColSKU]); err != nil {
		return domain.ProductRecord{}, err
	}
	if rec.RegularPrice, err = parsePrice(ColRegularPrice, row[ColRegularPrice]); err != nil {
		return domain.ProductRecord{}, err
	}
	if rec.SalePrice, err = parsePrice(ColSalePrice, row[ColSalePrice]); err != nil {
		return domain.ProductRecord{}, err
	}
	return rec, nil
}

// ParseRow runs Validate then Transform.
func ParseRow(row RawRow) (domain.ProductRecord, error) {
	if err := Validate(row); err != nil {
		return domain.ProductRecord{}, err
	}
	return Transform(row)
}

func orDefault(raw, def string) string {
	if v := strings.TrimSpace(raw); v != "" {
		return v
	}
	return def
}

func parseCount(field, raw string) (int64, error) {
	v := orDefault(raw, NoInformation)
	if v == NoInformation {
		return 0, nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, &CastError{Field: field, Value: v, Err: err}
	}
	if n < 0 {
		return 0, &CastError{Field: field, Value: v, Err: errNegative}
	}
	return n, nil
}

func parsePrice(field, raw string) (float64, error) {
	v := orDefault(raw, NoPrice)
	if v == NoPrice {
		return 0, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, &CastError{Field: field, Value: v, Err: err}
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, &CastError{Field: field, Value: v, Err: errNotFinite}
	}
	if math.Abs(f) > maxPrice {
		return 0, &CastError{Field: field, Value: v, Err: errOutOfRange}
	}
	return f, nil
}
