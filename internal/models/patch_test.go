package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr[T any](v T) *T { return &v }

func baseProduct() Product {
	return Product{
		Name:        "Widget",
		Description: "A thing",
		Price:       9.99,
		Category:    CategoryOther,
		Brand:       "Acme",
		Stock:       3,
		InStock:     true,
		Images:      []Image{{URL: "old"}},
	}
}

func TestParsePatchMode(t *testing.T) {
	m, err := ParsePatchMode("")
	require.NoError(t, err)
	assert.Equal(t, PatchTruthy, m)

	m, err = ParsePatchMode("present")
	require.NoError(t, err)
	assert.Equal(t, PatchPresent, m)

	_, err = ParsePatchMode("merge")
	assert.Error(t, err)
}

func TestApplyTo_Truthy(t *testing.T) {
	p := baseProduct()
	ProductPatch{
		Name:  ptr(""),
		Price: ptr(0.0),
		Stock: ptr(0),
		Brand: ptr(" New "),
	}.ApplyTo(&p, PatchTruthy)

	assert.Equal(t, "Widget", p.Name, "empty name ignored")
	assert.Equal(t, 9.99, p.Price, "zero price ignored")
	assert.Equal(t, 3, p.Stock, "zero stock ignored")
	assert.True(t, p.InStock)
	assert.Equal(t, "New", p.Brand)
	assert.Equal(t, []Image{{URL: "old"}}, p.Images, "absent images untouched")
}

func TestApplyTo_Present(t *testing.T) {
	p := baseProduct()
	ProductPatch{
		Price: ptr(0.0),
		Stock: ptr(0),
		Brand: ptr(""),
	}.ApplyTo(&p, PatchPresent)

	assert.Equal(t, 0.0, p.Price)
	assert.Equal(t, 0, p.Stock)
	assert.False(t, p.InStock)
	assert.Equal(t, "", p.Brand)
	assert.Equal(t, "Widget", p.Name, "absent fields untouched")
}

func TestApplyTo_ImagesReplacedWhenSupplied(t *testing.T) {
	for _, mode := range []PatchMode{PatchTruthy, PatchPresent} {
		p := baseProduct()
		ProductPatch{Images: &[]Image{}}.ApplyTo(&p, mode)
		assert.Empty(t, p.Images, mode)
		assert.NotNil(t, p.Images, mode)
	}
}

func TestApplyTo_StockBecomesPositive(t *testing.T) {
	p := baseProduct()
	p.Stock = 0
	p.InStock = false
	ProductPatch{Stock: ptr(5)}.ApplyTo(&p, PatchTruthy)
	assert.True(t, p.InStock)
}
