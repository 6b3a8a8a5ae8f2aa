// internal/models/user.go
package models

import (
	"database/sql/driver"
	"time"

	"golang.org/x/crypto/bcrypt"
)

// UserProfile lives in the users collection; its ID is the caller uid.
type UserProfile struct {
	BaseModel
	Email        string          `json:"email" gorm:"uniqueIndex;size:255;not null"`
	PasswordHash string          `json:"-" gorm:"size:255;not null"`
	DisplayName  string          `json:"display_name,omitempty" gorm:"size:100"`
	PhotoURL     string          `json:"photo_url,omitempty" gorm:"size:500"`
	IsAdmin      bool            `json:"is_admin" gorm:"not null;index"`
	FirstName    string          `json:"first_name,omitempty" gorm:"size:100"`
	LastName     string          `json:"last_name,omitempty" gorm:"size:100"`
	Phone        string          `json:"phone,omitempty" gorm:"size:30"`
	Addresses    Addresses       `json:"addresses,omitempty" gorm:"type:jsonb"`
	Preferences  UserPreferences `json:"preferences" gorm:"type:jsonb"`
	LastLoginAt  *time.Time      `json:"last_login_at,omitempty"`
}

func (UserProfile) TableName() string {
	return "users"
}

type Address struct {
	ID        string      `json:"id,omitempty"`
	Type      AddressType `json:"type,omitempty" validate:"omitempty,oneof=shipping billing"`
	Street    string      `json:"street" validate:"max=200"`
	City      string      `json:"city" validate:"max=100"`
	State     string      `json:"state" validate:"max=100"`
	ZipCode   string      `json:"zip_code" validate:"max=20"`
	Country   string      `json:"country" validate:"max=100"`
	IsDefault bool        `json:"is_default"`
}

func (a Address) Value() (driver.Value, error)  { return jsonValue(a) }
func (a *Address) Scan(value interface{}) error { return scanJSON(value, a) }

type Addresses []Address

func (a Addresses) Value() (driver.Value, error)  { return jsonValue(a) }
func (a *Addresses) Scan(value interface{}) error { return scanJSON(value, a) }

type UserPreferences struct {
	EmailNotifications bool `json:"email_notifications"`
	SMSNotifications   bool `json:"sms_notifications"`
	MarketingEmails    bool `json:"marketing_emails"`
}

func (p UserPreferences) Value() (driver.Value, error)  { return jsonValue(p) }
func (p *UserPreferences) Scan(value interface{}) error { return scanJSON(value, p) }

func (u *UserProfile) SetPassword(password string) error {
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.PasswordHash = string(hashedPassword)
	return nil
}

func (u *UserProfile) CheckPassword(password string) error {
	return bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password))
}

func (u *UserProfile) Clone() *UserProfile {
	if u == nil {
		return nil
	}
	c := *u
	if u.Addresses != nil {
		c.Addresses = append(Addresses(nil), u.Addresses...)
	}
	if u.LastLoginAt != nil {
		t := *u.LastLoginAt
		c.LastLoginAt = &t
	}
	return &c
}
