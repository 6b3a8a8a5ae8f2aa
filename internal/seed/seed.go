// internal/seed/seed.go
package seed

import (
	_ "embed"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/bierstube/storefront/internal/models"
)

//go:embed sample_data.yaml
var sampleData []byte

type sampleFile struct {
	Products []sampleProduct `yaml:"products"`
	Events   []sampleEvent   `yaml:"events"`
}

type sampleProduct struct {
	Name           string          `yaml:"name"`
	Description    string          `yaml:"description"`
	Category       string          `yaml:"category"`
	Price          string          `yaml:"price"`
	CompareAtPrice string          `yaml:"compare_at_price"`
	Images         []sampleImage   `yaml:"images"`
	Variants       []sampleVariant `yaml:"variants"`
	Stock          int             `yaml:"stock"`
	SKU            string          `yaml:"sku"`
	Inactive       bool            `yaml:"inactive"`
	Featured       bool            `yaml:"featured"`
	Tags           []string        `yaml:"tags"`
	SEOTitle       string          `yaml:"seo_title"`
	SEODescription string          `yaml:"seo_description"`
	Weight         *float64        `yaml:"weight"`
}

type sampleImage struct {
	ID     string `yaml:"id"`
	URL    string `yaml:"url"`
	Alt    string `yaml:"alt"`
	Order  int    `yaml:"order"`
	IsMain bool   `yaml:"is_main"`
}

type sampleVariant struct {
	ID    string `yaml:"id"`
	Name  string `yaml:"name"`
	Value string `yaml:"value"`
	Price string `yaml:"price"`
	Stock int    `yaml:"stock"`
	SKU   string `yaml:"sku"`
}

type sampleLocation struct {
	Name    string   `yaml:"name"`
	Address string   `yaml:"address"`
	Lat     *float64 `yaml:"lat"`
	Lng     *float64 `yaml:"lng"`
}

type sampleRecurrence struct {
	Frequency string `yaml:"frequency"`
	Interval  int    `yaml:"interval"`
	Days      []int  `yaml:"days"`
	Until     string `yaml:"until"`
}

type sampleOffer struct {
	ID          string   `yaml:"id"`
	Title       string   `yaml:"title"`
	Description string   `yaml:"description"`
	Type        string   `yaml:"type"`
	Value       string   `yaml:"value"`
	Products    []string `yaml:"products"`
}

type sampleEvent struct {
	Title       string            `yaml:"title"`
	Description string            `yaml:"description"`
	Category    string            `yaml:"category"`
	Start       string            `yaml:"start"`
	End         string            `yaml:"end"`
	StartTime   string            `yaml:"start_time"`
	EndTime     string            `yaml:"end_time"`
	Location    sampleLocation    `yaml:"location"`
	Images      []string          `yaml:"images"`
	Recurrence  *sampleRecurrence `yaml:"recurrence"`
	Capacity    *int              `yaml:"capacity"`
	Attendees   int               `yaml:"attendees"`
	TicketPrice string            `yaml:"ticket_price"`
	Inactive    bool              `yaml:"inactive"`
	Featured    bool              `yaml:"featured"`
	Tags        []string          `yaml:"tags"`
	Offers      []sampleOffer     `yaml:"offers"`
}

// Catalog is the bundled sample catalog, ready to insert.
type Catalog struct {
	Products []*models.Product
	Events   []*models.Event
}

// Load parses the bundled sample data. Every returned document passes its
// model validation.
func Load() (*Catalog, error) {
	return Parse(sampleData)
}

func Parse(data []byte) (*Catalog, error) {
	var file sampleFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse sample data: %w", err)
	}

	catalog := &Catalog{}
	for i, p := range file.Products {
		product, err := p.toModel()
		if err != nil {
			return nil, fmt.Errorf("sample product %d (%s): %w", i, p.Name, err)
		}
		catalog.Products = append(catalog.Products, product)
	}
	for i, e := range file.Events {
		event, err := e.toModel()
		if err != nil {
			return nil, fmt.Errorf("sample event %d (%s): %w", i, e.Title, err)
		}
		catalog.Events = append(catalog.Events, event)
	}
	return catalog, nil
}

func parseDecimal(s string) (*decimal.Decimal, error) {
	if s == "" {
		return nil, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func parseTime(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return nil, err
	}
	t = t.UTC()
	return &t, nil
}

func (p sampleProduct) toModel() (*models.Product, error) {
	price, err := parseDecimal(p.Price)
	if err != nil || price == nil {
		return nil, fmt.Errorf("bad price %q", p.Price)
	}
	compareAt, err := parseDecimal(p.CompareAtPrice)
	if err != nil {
		return nil, fmt.Errorf("bad compare_at_price %q", p.CompareAtPrice)
	}

	product := &models.Product{
		Name:           p.Name,
		Description:    p.Description,
		Category:       models.ProductCategory(p.Category),
		Price:          *price,
		CompareAtPrice: compareAt,
		Stock:          p.Stock,
		SKU:            p.SKU,
		IsActive:       !p.Inactive,
		IsFeatured:     p.Featured,
		Tags:           p.Tags,
		SEOTitle:       p.SEOTitle,
		SEODescription: p.SEODescription,
		Weight:         p.Weight,
	}
	for _, img := range p.Images {
		product.Images = append(product.Images, models.ProductImage{
			ID:     img.ID,
			URL:    img.URL,
			Alt:    img.Alt,
			Order:  img.Order,
			IsMain: img.IsMain,
		})
	}
	for _, v := range p.Variants {
		variantPrice, err := parseDecimal(v.Price)
		if err != nil {
			return nil, fmt.Errorf("variant %s: bad price %q", v.ID, v.Price)
		}
		product.Variants = append(product.Variants, models.ProductVariant{
			ID:    v.ID,
			Name:  v.Name,
			Value: v.Value,
			Price: variantPrice,
			Stock: v.Stock,
			SKU:   v.SKU,
		})
	}

	if err := product.Validate(); err != nil {
		return nil, err
	}
	return product, nil
}

func (e sampleEvent) toModel() (*models.Event, error) {
	start, err := parseTime(e.Start)
	if err != nil || start == nil {
		return nil, fmt.Errorf("bad start %q", e.Start)
	}
	end, err := parseTime(e.End)
	if err != nil {
		return nil, fmt.Errorf("bad end %q", e.End)
	}
	ticketPrice, err := parseDecimal(e.TicketPrice)
	if err != nil {
		return nil, fmt.Errorf("bad ticket_price %q", e.TicketPrice)
	}

	event := &models.Event{
		Title:       e.Title,
		Description: e.Description,
		Category:    models.EventCategory(e.Category),
		StartDate:   *start,
		EndDate:     end,
		StartTime:   e.StartTime,
		EndTime:     e.EndTime,
		Location: models.EventLocation{
			Name:    e.Location.Name,
			Address: e.Location.Address,
		},
		Images:           e.Images,
		Capacity:         e.Capacity,
		CurrentAttendees: e.Attendees,
		TicketPrice:      ticketPrice,
		IsActive:         !e.Inactive,
		IsFeatured:       e.Featured,
		Tags:             e.Tags,
	}
	if e.Location.Lat != nil && e.Location.Lng != nil {
		event.Location.Coordinates = &models.Coordinates{Lat: *e.Location.Lat, Lng: *e.Location.Lng}
	}

	if r := e.Recurrence; r != nil {
		until, err := parseTime(r.Until)
		if err != nil {
			return nil, fmt.Errorf("bad recurrence end %q", r.Until)
		}
		event.IsRecurring = true
		event.RecurringPattern = &models.RecurringPattern{
			Frequency:  models.RecurrenceFrequency(r.Frequency),
			Interval:   r.Interval,
			DaysOfWeek: r.Days,
			EndDate:    until,
		}
	}

	for _, o := range e.Offers {
		value, err := parseDecimal(o.Value)
		if err != nil || value == nil {
			return nil, fmt.Errorf("offer %s: bad value %q", o.ID, o.Value)
		}
		event.SpecialOffers = append(event.SpecialOffers, models.EventSpecialOffer{
			ID:                 o.ID,
			Title:              o.Title,
			Description:        o.Description,
			DiscountType:       models.DiscountType(o.Type),
			DiscountValue:      *value,
			ApplicableProducts: o.Products,
		})
	}

	if err := event.Validate(); err != nil {
		return nil, err
	}
	return event, nil
}
