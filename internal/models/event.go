// internal/models/event.go
package models

import (
	"database/sql/driver"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"
)

type Event struct {
	BaseModel
	Title            string             `json:"title" gorm:"size:200;not null"`
	Description      string             `json:"description" gorm:"type:text"`
	Category         EventCategory      `json:"category" gorm:"type:varchar(32);not null;index"`
	StartDate        time.Time          `json:"start_date" gorm:"not null;index"`
	EndDate          *time.Time         `json:"end_date,omitempty"`
	StartTime        string             `json:"start_time" gorm:"size:20"`
	EndTime          string             `json:"end_time,omitempty" gorm:"size:20"`
	Location         EventLocation      `json:"location" gorm:"type:jsonb"`
	Images           pq.StringArray     `json:"images" gorm:"type:text[]"`
	IsRecurring      bool               `json:"is_recurring" gorm:"not null"`
	RecurringPattern *RecurringPattern  `json:"recurring_pattern,omitempty" gorm:"type:jsonb"`
	Capacity         *int               `json:"capacity,omitempty"`
	CurrentAttendees int                `json:"current_attendees" gorm:"not null"`
	TicketPrice      *decimal.Decimal   `json:"ticket_price,omitempty" gorm:"type:numeric(12,2)"`
	IsActive         bool               `json:"is_active" gorm:"not null;index"`
	IsFeatured       bool               `json:"is_featured" gorm:"not null"`
	Tags             pq.StringArray     `json:"tags" gorm:"type:text[]"`
	SpecialOffers    EventSpecialOffers `json:"special_offers,omitempty" gorm:"type:jsonb"`
}

type Coordinates struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

type EventLocation struct {
	Name        string       `json:"name"`
	Address     string       `json:"address,omitempty"`
	Coordinates *Coordinates `json:"coordinates,omitempty"`
}

func (l EventLocation) Value() (driver.Value, error)  { return jsonValue(l) }
func (l *EventLocation) Scan(value interface{}) error { return scanJSON(value, l) }

type RecurrenceFrequency string

const (
	RecurrenceDaily   RecurrenceFrequency = "daily"
	RecurrenceWeekly  RecurrenceFrequency = "weekly"
	RecurrenceMonthly RecurrenceFrequency = "monthly"
)

type RecurringPattern struct {
	Frequency  RecurrenceFrequency `json:"frequency"`
	Interval   int                 `json:"interval"`
	DaysOfWeek []int               `json:"days_of_week,omitempty"` // 0 = Sunday
	EndDate    *time.Time          `json:"end_date,omitempty"`
}

func (r RecurringPattern) Value() (driver.Value, error)  { return jsonValue(r) }
func (r *RecurringPattern) Scan(value interface{}) error { return scanJSON(value, r) }

func (r *RecurringPattern) Validate() error {
	switch r.Frequency {
	case RecurrenceDaily, RecurrenceWeekly, RecurrenceMonthly:
	default:
		return fmt.Errorf("unknown recurrence frequency %q", r.Frequency)
	}
	if r.Interval < 1 {
		return errors.New("recurrence interval must be at least 1")
	}
	for _, d := range r.DaysOfWeek {
		if d < 0 || d > 6 {
			return fmt.Errorf("day of week %d out of range", d)
		}
	}
	return nil
}

type DiscountType string

const (
	DiscountPercentage DiscountType = "percentage"
	DiscountFixed      DiscountType = "fixed"
	DiscountBOGO       DiscountType = "bogo"
)

type EventSpecialOffer struct {
	ID                 string          `json:"id"`
	Title              string          `json:"title"`
	Description        string          `json:"description"`
	DiscountType       DiscountType    `json:"discount_type"`
	DiscountValue      decimal.Decimal `json:"discount_value"`
	ApplicableProducts []string        `json:"applicable_products,omitempty"`
}

type EventSpecialOffers []EventSpecialOffer

func (o EventSpecialOffers) Value() (driver.Value, error)  { return jsonValue(o) }
func (o *EventSpecialOffers) Scan(value interface{}) error { return scanJSON(value, o) }

func (e *Event) HasTickets() bool {
	return e.TicketPrice != nil && e.TicketPrice.IsPositive()
}

func (e *Event) Validate() error {
	var errs []error

	if strings.TrimSpace(e.Title) == "" {
		errs = append(errs, errors.New("title is required"))
	} else if len(e.Title) > 200 {
		errs = append(errs, errors.New("title must be at most 200 characters"))
	}
	if !e.Category.Valid() {
		errs = append(errs, fmt.Errorf("unknown event category %q", e.Category))
	}
	if e.StartDate.IsZero() {
		errs = append(errs, errors.New("start_date is required"))
	}
	if e.EndDate != nil && e.EndDate.Before(e.StartDate) {
		errs = append(errs, errors.New("end_date must not be before start_date"))
	}
	if e.CurrentAttendees < 0 {
		errs = append(errs, errors.New("current_attendees must not be negative"))
	}
	if e.Capacity != nil && (*e.Capacity < 0 || e.CurrentAttendees > *e.Capacity) {
		errs = append(errs, errors.New("capacity must cover current attendees"))
	}
	if e.TicketPrice != nil && e.TicketPrice.IsNegative() {
		errs = append(errs, errors.New("ticket_price must not be negative"))
	}
	if e.IsRecurring && e.RecurringPattern == nil {
		errs = append(errs, errors.New("recurring events need a recurring_pattern"))
	}
	if e.RecurringPattern != nil {
		if err := e.RecurringPattern.Validate(); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

func (e *Event) Clone() *Event {
	if e == nil {
		return nil
	}
	c := *e
	if e.EndDate != nil {
		t := *e.EndDate
		c.EndDate = &t
	}
	if e.Location.Coordinates != nil {
		coords := *e.Location.Coordinates
		c.Location.Coordinates = &coords
	}
	if e.RecurringPattern != nil {
		rp := *e.RecurringPattern
		rp.DaysOfWeek = append([]int(nil), e.RecurringPattern.DaysOfWeek...)
		if rp.EndDate != nil {
			t := *rp.EndDate
			rp.EndDate = &t
		}
		c.RecurringPattern = &rp
	}
	if e.Capacity != nil {
		n := *e.Capacity
		c.Capacity = &n
	}
	if e.TicketPrice != nil {
		p := *e.TicketPrice
		c.TicketPrice = &p
	}
	if e.Images != nil {
		c.Images = append(pq.StringArray(nil), e.Images...)
	}
	if e.Tags != nil {
		c.Tags = append(pq.StringArray(nil), e.Tags...)
	}
	if e.SpecialOffers != nil {
		c.SpecialOffers = make(EventSpecialOffers, len(e.SpecialOffers))
		for i, o := range e.SpecialOffers {
			o.ApplicableProducts = append([]string(nil), o.ApplicableProducts...)
			c.SpecialOffers[i] = o
		}
	}
	return &c
}
