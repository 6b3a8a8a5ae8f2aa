// internal/models/product.go
package models

import (
	"database/sql/driver"
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"
)

type Product struct {
	BaseModel
	Name           string           `json:"name" gorm:"size:200;not null"`
	Description    string           `json:"description" gorm:"type:text"`
	Category       ProductCategory  `json:"category" gorm:"type:varchar(32);not null;index"`
	Price          decimal.Decimal  `json:"price" gorm:"type:numeric(12,2);not null"`
	CompareAtPrice *decimal.Decimal `json:"compare_at_price,omitempty" gorm:"type:numeric(12,2)"`
	Images         ProductImages    `json:"images" gorm:"type:jsonb"`
	Variants       ProductVariants  `json:"variants,omitempty" gorm:"type:jsonb"`
	Stock          int              `json:"stock" gorm:"not null;check:chk_products_stock,stock >= 0"`
	SKU            string           `json:"sku" gorm:"size:64;index"`
	IsActive       bool             `json:"is_active" gorm:"not null;index"`
	IsFeatured     bool             `json:"is_featured" gorm:"not null"`
	Tags           pq.StringArray   `json:"tags" gorm:"type:text[]"`
	SEOTitle       string           `json:"seo_title,omitempty" gorm:"size:200"`
	SEODescription string           `json:"seo_description,omitempty" gorm:"size:500"`
	Weight         *float64         `json:"weight,omitempty"`
}

type ProductImage struct {
	ID     string `json:"id"`
	URL    string `json:"url"`
	Alt    string `json:"alt"`
	Order  int    `json:"order"`
	IsMain bool   `json:"is_main"`
}

type ProductImages []ProductImage

func (p ProductImages) Value() (driver.Value, error)  { return jsonValue(p) }
func (p *ProductImages) Scan(value interface{}) error { return scanJSON(value, p) }

// ProductVariant is a purchasable option of a product (size, color). Price
// overrides the parent price when set.
type ProductVariant struct {
	ID    string           `json:"id"`
	Name  string           `json:"name"`
	Value string           `json:"value"`
	Price *decimal.Decimal `json:"price,omitempty"`
	Stock int              `json:"stock"`
	SKU   string           `json:"sku"`
}

type ProductVariants []ProductVariant

func (v ProductVariants) Value() (driver.Value, error)  { return jsonValue(v) }
func (v *ProductVariants) Scan(value interface{}) error { return scanJSON(value, v) }

func (p *Product) FindVariant(id string) (int, bool) {
	for i := range p.Variants {
		if p.Variants[i].ID == id {
			return i, true
		}
	}
	return -1, false
}

func (p *Product) VariantStockTotal() int {
	total := 0
	for _, v := range p.Variants {
		total += v.Stock
	}
	return total
}

// UnitPrice resolves the sale price for a line, honoring a variant override.
func (p *Product) UnitPrice(variantID string) decimal.Decimal {
	if variantID != "" {
		if i, ok := p.FindVariant(variantID); ok && p.Variants[i].Price != nil {
			return *p.Variants[i].Price
		}
	}
	return p.Price
}

func (p *Product) MainImage() string {
	for _, img := range p.Images {
		if img.IsMain {
			return img.URL
		}
	}
	if len(p.Images) > 0 {
		return p.Images[0].URL
	}
	return ""
}

// AvailableStock is what a line for variantID may draw on. A variant line is
// bounded by both its own stock and the parent aggregate.
func (p *Product) AvailableStock(variantID string) int {
	if variantID == "" {
		return p.Stock
	}
	i, ok := p.FindVariant(variantID)
	if !ok {
		return 0
	}
	if p.Variants[i].Stock < p.Stock {
		return p.Variants[i].Stock
	}
	return p.Stock
}

// AdjustStock applies delta to the parent stock and, for variant lines, to the
// variant as well, keeping the variant sum equal to the parent.
func (p *Product) AdjustStock(variantID string, delta int) error {
	if p.Stock+delta < 0 {
		return fmt.Errorf("product %s stock would become negative", p.ID)
	}
	if variantID != "" {
		i, ok := p.FindVariant(variantID)
		if !ok {
			return fmt.Errorf("variant %q not found on product %s", variantID, p.ID)
		}
		if p.Variants[i].Stock+delta < 0 {
			return fmt.Errorf("variant %q stock would become negative", variantID)
		}
		p.Variants[i].Stock += delta
	}
	p.Stock += delta
	return nil
}

func (p *Product) MatchesTerm(term string) bool {
	term = strings.ToLower(term)
	return strings.Contains(strings.ToLower(p.Name), term) ||
		strings.Contains(strings.ToLower(p.Description), term)
}

func (p *Product) HasAnyTag(tags []string) bool {
	for _, want := range tags {
		for _, have := range p.Tags {
			if strings.EqualFold(want, have) {
				return true
			}
		}
	}
	return false
}

func (p *Product) Validate() error {
	var errs []error

	if strings.TrimSpace(p.Name) == "" {
		errs = append(errs, errors.New("name is required"))
	} else if len(p.Name) > 200 {
		errs = append(errs, errors.New("name must be at most 200 characters"))
	}
	if len(p.Description) > 2000 {
		errs = append(errs, errors.New("description must be at most 2000 characters"))
	}
	if !p.Category.Valid() {
		errs = append(errs, fmt.Errorf("unknown product category %q", p.Category))
	}
	if p.Price.IsNegative() {
		errs = append(errs, errors.New("price must not be negative"))
	}
	if p.CompareAtPrice != nil && p.CompareAtPrice.IsNegative() {
		errs = append(errs, errors.New("compare_at_price must not be negative"))
	}
	if p.Stock < 0 {
		errs = append(errs, errors.New("stock must not be negative"))
	}

	if len(p.Variants) > 0 {
		seen := make(map[string]bool, len(p.Variants))
		for _, v := range p.Variants {
			if v.ID == "" {
				errs = append(errs, errors.New("variant id is required"))
				continue
			}
			if seen[v.ID] {
				errs = append(errs, fmt.Errorf("duplicate variant id %q", v.ID))
			}
			seen[v.ID] = true
			if v.Stock < 0 {
				errs = append(errs, fmt.Errorf("variant %q stock must not be negative", v.ID))
			}
			if v.Price != nil && v.Price.IsNegative() {
				errs = append(errs, fmt.Errorf("variant %q price must not be negative", v.ID))
			}
		}
		if total := p.VariantStockTotal(); total != p.Stock {
			errs = append(errs, fmt.Errorf("variant stock total %d does not match product stock %d", total, p.Stock))
		}
	}

	return errors.Join(errs...)
}

func (p *Product) Clone() *Product {
	if p == nil {
		return nil
	}
	c := *p
	if p.CompareAtPrice != nil {
		v := *p.CompareAtPrice
		c.CompareAtPrice = &v
	}
	if p.Weight != nil {
		w := *p.Weight
		c.Weight = &w
	}
	if p.Images != nil {
		c.Images = append(ProductImages(nil), p.Images...)
	}
	if p.Variants != nil {
		c.Variants = make(ProductVariants, len(p.Variants))
		for i, v := range p.Variants {
			if v.Price != nil {
				price := *v.Price
				v.Price = &price
			}
			c.Variants[i] = v
		}
	}
	if p.Tags != nil {
		c.Tags = append(pq.StringArray(nil), p.Tags...)
	}
	return &c
}
