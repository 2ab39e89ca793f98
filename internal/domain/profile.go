package domain

import (
	"fmt"
	"strings"
)

const (
	RoleAdmin    = "admin"
	DeliveryCity = "Gandhidham"
	DeliveryArea = "Gujarat"
)

type Profile struct {
	UserID   string `json:"userId" bson:"_id"`
	FullName string `json:"fullName" bson:"full_name"`
	Phone    string `json:"phone" bson:"phone"`
	HouseNo  string `json:"houseNo" bson:"house_no"`
	Street   string `json:"street" bson:"street"`
	Landmark string `json:"landmark" bson:"landmark"`
	Pincode  string `json:"pincode" bson:"pincode"`
	Address  string `json:"address" bson:"address"`
	Email    string `json:"email" bson:"email"`
	Role     string `json:"role,omitempty" bson:"role,omitempty"`
}

func (p *Profile) IsAdmin() bool {
	return p != nil && p.Role == RoleAdmin
}

// ComposeAddress renders the delivery address line stored with the profile and copied onto orders.
func (p Profile) ComposeAddress() string {
	addr := fmt.Sprintf("%s, %s, %s, %s, %s - %s", p.HouseNo, p.Street, p.Landmark, DeliveryCity, DeliveryArea, p.Pincode)
	return strings.ReplaceAll(addr, " ,", ",")
}

// DeliveryAddress prefers the composed address and falls back to house number and street.
func (p Profile) DeliveryAddress() string {
	if p.Address != "" {
		return p.Address
	}
	return fmt.Sprintf("%s, %s", p.HouseNo, p.Street)
}

// GeocodeQuery is the free-text form of the address sent to the geocoder while the profile is edited.
func (p Profile) GeocodeQuery() string {
	return strings.TrimSpace(fmt.Sprintf("%s %s %s %s %s", p.HouseNo, p.Street, p.Landmark, DeliveryCity, p.Pincode))
}

type Identity struct {
	UserID string `json:"uid"`
	Email  string `json:"email"`
}

type Location struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// DefaultMapCenter is where the address map starts before any lookup resolves.
var DefaultMapCenter = Location{Lat: 23.0853, Lng: 70.133}
