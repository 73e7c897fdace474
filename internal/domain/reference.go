package domain

import (
	"fmt"
	"time"
)

// ReferenceKind selects one of the lookup tables products point at.
type ReferenceKind string

const (
	KindCategory     ReferenceKind = "category"
	KindDepartment   ReferenceKind = "department"
	KindManufacturer ReferenceKind = "manufacturer"
)

// Table returns the storage table backing the kind.
func (k ReferenceKind) Table() (string, error) {
	switch k {
	case KindCategory:
		return "categories", nil
	case KindDepartment:
		return "departments", nil
	case KindManufacturer:
		return "manufacturers", nil
	}
	return "", fmt.Errorf("unknown reference kind %q", string(k))
}

// Reference is a category, department or manufacturer row. Name is the
// case-sensitive natural key.
type Reference struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
