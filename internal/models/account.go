package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Device is an entry in a company's device directory.
type Device struct {
	DeviceID string `bson:"deviceID" json:"deviceID"`
	Location string `bson:"location" json:"location"`
}

// Account represents a registered company
type Account struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Email        string             `bson:"email" json:"email"`
	PasswordHash string             `bson:"password" json:"-"`
	CompanyName  string             `bson:"companyName" json:"companyName"`
	Devices      []Device           `bson:"devices,omitempty" json:"devices"`
	CreatedAt    time.Time          `bson:"createdAt,omitempty" json:"createdAt"`
}

// FindDevice returns the directory entry for deviceID, if the account owns it.
func (a *Account) FindDevice(deviceID string) (Device, bool) {
	for _, d := range a.Devices {
		if d.DeviceID == deviceID {
			return d, true
		}
	}
	return Device{}, false
}

// SignupRequest represents an account creation request
type SignupRequest struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	CompanyName string `json:"companyName"`
}

// LoginRequest represents a login request
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResponse represents a successful login response
type LoginResponse struct {
	Token   string  `json:"token"`
	Account Account `json:"account"`
}

// Claims represents the session token claims
type Claims struct {
	AccountID string `json:"account_id"`
	Email     string `json:"email"`
	Company   string `json:"company"`
	Exp       int64  `json:"exp"`
}
