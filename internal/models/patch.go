package models

import "fmt"

// PatchMode selects how a ProductPatch decides that a field was supplied.
type PatchMode string

const (
	// PatchTruthy only overwrites a field when the new value is non-empty
	// or non-zero. Setting price or stock to 0 through an update is
	// therefore ignored. Images are the exception: any supplied list,
	// including an empty one, replaces the current images.
	PatchTruthy PatchMode = "truthy"
	// PatchPresent overwrites every field present in the request body.
	PatchPresent PatchMode = "present"
)

// ParsePatchMode converts a configuration value into a PatchMode.
func ParsePatchMode(s string) (PatchMode, error) {
	switch PatchMode(s) {
	case PatchTruthy, "":
		return PatchTruthy, nil
	case PatchPresent:
		return PatchPresent, nil
	default:
		return "", fmt.Errorf("unknown update mode %q", s)
	}
}

// ProductPatch is a partial product update. Nil fields were not supplied.
type ProductPatch struct {
	Name        *string   `json:"name"`
	Description *string   `json:"description"`
	Price       *float64  `json:"price"`
	Category    *Category `json:"category"`
	Brand       *string   `json:"brand"`
	Stock       *int      `json:"stock"`
	Images      *[]Image  `json:"images"`
}

// ApplyTo merges the patch into p and refreshes InStock.
func (pp ProductPatch) ApplyTo(p *Product, mode PatchMode) {
	present := mode == PatchPresent

	if pp.Name != nil && (present || *pp.Name != "") {
		p.Name = *pp.Name
	}
	if pp.Description != nil && (present || *pp.Description != "") {
		p.Description = *pp.Description
	}
	if pp.Price != nil && (present || *pp.Price != 0) {
		p.Price = *pp.Price
	}
	if pp.Category != nil && (present || *pp.Category != "") {
		p.Category = *pp.Category
	}
	if pp.Brand != nil && (present || *pp.Brand != "") {
		p.Brand = *pp.Brand
	}
	if pp.Stock != nil && (present || *pp.Stock != 0) {
		p.Stock = *pp.Stock
	}
	if pp.Images != nil {
		p.Images = append([]Image{}, (*pp.Images)...)
	}

	p.Normalize()
	p.RefreshStock()
}
