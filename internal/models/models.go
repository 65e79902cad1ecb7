package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

type PriceType string

const (
	PriceDaily   PriceType = "daily"
	PriceWeekly  PriceType = "weekly"
	PriceWeekend PriceType = "weekend"
	PriceMonthly PriceType = "monthly"
)

var PriceTypes = []PriceType{PriceDaily, PriceWeekly, PriceWeekend, PriceMonthly}

func (p PriceType) Valid() bool {
	for _, t := range PriceTypes {
		if p == t {
			return true
		}
	}
	return false
}

// Price is kept as text. Clients may send it either as a JSON string or a number.
type Price string

func (p *Price) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*p = ""
		return nil
	}

	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*p = Price(s)
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("price must be a string or a number: %w", err)
	}
	*p = Price(n.String())
	return nil
}

func PriceFromFloat(f float64) Price {
	return Price(strconv.FormatFloat(f, 'f', -1, 64))
}

type User struct {
	UserID                 string    `json:"userId" db:"user_id"`
	Email                  string    `json:"email" db:"email"`
	Name                   string    `json:"name" db:"name"`
	PasswordHash           string    `json:"-" db:"password_hash"`
	RefreshToken           string    `json:"-" db:"refresh_token"`
	RefreshTokenExpiryTime time.Time `json:"-" db:"refresh_token_expiry_time"`
}

// Image is a stored photo. UID is the owning user and together with Name
// forms the storage path images/{uid}/{name}.
type Image struct {
	Name string `json:"name"`
	UID  string `json:"uid"`
	URL  string `json:"url"`
}

func (i Image) Path() string {
	return ImagePath(i.UID, i.Name)
}

func ImagePath(ownerID, name string) string {
	return "images/" + ownerID + "/" + name
}

// PendingImage is an uploaded image held by an open creation form.
// PreviewURL is only meaningful while the form is open.
type PendingImage struct {
	Image
	PreviewURL  string `json:"previewUrl"`
	ContentType string `json:"-"`
	Data        []byte `json:"-"`
}

type Listing struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Rooms       string    `json:"rooms"`
	Bathrooms   string    `json:"bathrooms"`
	Garages     string    `json:"garages"`
	Area        string    `json:"area"`
	Price       Price     `json:"price"`
	PriceType   PriceType `json:"priceType"`
	City        string    `json:"city"`
	Address     string    `json:"address"`
	PostalCode  string    `json:"postalCode"`
	Phone       string    `json:"phone"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"createdAt"`
	OwnerID     string    `json:"ownerId"`
	OwnerName   string    `json:"ownerName"`
	Images      []Image   `json:"images"`
}

// ListingForm is the payload of the creation form before validation.
type ListingForm struct {
	Name        string `json:"name" validate:"min=2"`
	Area        string `json:"area" validate:"min=1"`
	Rooms       string `json:"rooms" validate:"min=1"`
	Bathrooms   string `json:"bathrooms" validate:"min=1"`
	Garages     string `json:"garages" validate:"min=1"`
	Price       Price  `json:"price" validate:"min=2"`
	PriceType   string `json:"priceType" validate:"min=1,pricetype"`
	City        string `json:"city" validate:"min=2"`
	Address     string `json:"address" validate:"min=2"`
	PostalCode  string `json:"postalCode" validate:"len=8,digits"`
	Phone       string `json:"phone" validate:"required,phone"`
	Description string `json:"description" validate:"min=2"`
}

type Credentials struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"min=6"`
}

type Registration struct {
	Name     string `json:"name" validate:"min=1"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"min=6"`
}

// UploadFile is a raw file handed to the upload coordinator.
type UploadFile struct {
	Filename    string
	ContentType string
	Data        []byte
}
