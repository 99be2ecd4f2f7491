package models

import "time"

type Role string

const (
	RoleClient Role = "CLIENT"
	RoleDriver Role = "DRIVER"
	RoleAdmin  Role = "ADMIN"
)

// Actor is the identity behind an API call. Each role is its own struct
// carrying only its own fields; code that needs role-specific data type
// switches on the concrete type instead of probing optional fields.
type Actor interface {
	ActorID() string
	ActorRole() Role
}

type Client struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Phone     string    `json:"phone"`
	Address   string    `json:"address"`
	Company   bool      `json:"company"`
	TaxID     string    `json:"tax_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

func (c Client) ActorID() string { return c.ID }
func (c Client) ActorRole() Role { return RoleClient }

// DriverDocuments holds URLs returned by the external file-storage
// collaborator. The content behind them is never inspected here.
type DriverDocuments struct {
	LicenseURL      string `json:"license_url,omitempty"`
	RegistrationURL string `json:"registration_url,omitempty"`
	IDPhotoURL      string `json:"id_photo_url,omitempty"`
}

type Driver struct {
	ID             string          `json:"id"`
	Name           string          `json:"name"`
	Phone          string          `json:"phone"`
	VehicleClass   VehicleClass    `json:"vehicle_class"`
	Plate          string          `json:"plate"`
	LicenseNumber  string          `json:"license_number"`
	Documents      DriverDocuments `json:"documents"`
	Verified       bool            `json:"verified"`
	CompletedTrips int             `json:"completed_trips"`
	CreatedAt      time.Time       `json:"created_at"`
}

func (d Driver) ActorID() string { return d.ID }
func (d Driver) ActorRole() Role { return RoleDriver }

type Admin struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

func (a Admin) ActorID() string { return a.ID }
func (a Admin) ActorRole() Role { return RoleAdmin }
