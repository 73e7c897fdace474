// Package export writes the products of a category to a downloadable CSV
// or XLSX file.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/xuri/excelize/v2"

	"product-catalog/internal/domain"
)

type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

// ParseFormat accepts "", "csv" and "xlsx"; empty means CSV.
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(s))) {
	case "", FormatCSV:
		return FormatCSV, nil
	case FormatXLSX:
		return FormatXLSX, nil
	default:
		return "", fmt.Errorf("unsupported export format %q", s)
	}
}

// Header is the first row of every export.
var Header = []string{"Product Number", "UPC", "SKU", "Regular Price", "Sale Price", "Description"}

var (
	nonAlnum   = regexp.MustCompile(`[^a-zA-Z0-9]`)
	underscore = regexp.MustCompile(`_+`)
	cet        = mustLoad("CET")
)

func mustLoad(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		panic(err)
	}
	return loc
}

// FileName builds "<category>_YYYY_MM_DD-HH_MM.<ext>" with the timestamp in
// CET. The category name is lowercased and reduced to [a-z0-9_].
func FileName(category string, now time.Time, format Format) string {
	name := nonAlnum.ReplaceAllString(strings.ToLower(category), "_")
	name = strings.Trim(underscore.ReplaceAllString(name, "_"), "_")
	return fmt.Sprintf("%s_%s.%s", name, now.In(cet).Format("2006_01_02-15_04"), format)
}

func row(p domain.Product) []string {
	return []string{
		p.ProductNumber,
		strconv.FormatInt(p.UPC, 10),
		strconv.FormatInt(p.SKU, 10),
		strconv.FormatFloat(p.RegularPrice, 'f', 2, 64),
		strconv.FormatFloat(p.SalePrice, 'f', 2, 64),
		p.Description,
	}
}

// Write encodes products in format to w.
func Write(w io.Writer, format Format, products []domain.Product) error {
	switch format {
	case FormatXLSX:
		return WriteXLSX(w, products)
	default:
		return WriteCSV(w, products)
	}
}

func WriteCSV(w io.Writer, products []domain.Product) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return err
	}
	for _, p := range products {
		if err := cw.Write(row(p)); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

const sheetName = "Products"

func WriteXLSX(w io.Writer, products []domain.Product) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return err
	}
	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Border: []excelize.Border{
			{Type: "bottom", Color: "000000", Style: 1},
		},
	})
	if err != nil {
		return err
	}

	for i, h := range Header {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(sheetName, cell, h); err != nil {
			return err
		}
		col, _ := excelize.ColumnNumberToName(i + 1)
		if err := f.SetColWidth(sheetName, col, col, 18); err != nil {
			return err
		}
	}
	if err := f.SetCellStyle(sheetName, "A1", "F1", headerStyle); err != nil {
		return err
	}

	for i, p := range products {
		r := i + 2
		values := []any{p.ProductNumber, p.UPC, p.SKU, p.RegularPrice, p.SalePrice, p.Description}
		cell, _ := excelize.CoordinatesToCellName(1, r)
		if err := f.SetSheetRow(sheetName, cell, &values); err != nil {
			return err
		}
	}
	return f.Write(w)
}
