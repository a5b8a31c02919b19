package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// ApiService is one entry of the provider's "services" listing.
type ApiService struct {
	ID       int64  `json:"service"`
	Name     string `json:"name"`
	Type     string `json:"type"`
	Category string `json:"category"`
	Rate     string `json:"rate"`
	Min      int    `json:"min"`
	Max      int    `json:"max"`
	Refill   bool   `json:"refill"`
	Cancel   bool   `json:"cancel"`
}

type Service struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	RatePer1000 decimal.Decimal `json:"ratePer1000"`
	Min         int             `json:"min"`
	Max         int             `json:"max"`
	Description []string        `json:"description"`
}

type Category struct {
	ID       string    `json:"id"`
	Name     string    `json:"name"`
	Tag      string    `json:"tag"`
	Services []Service `json:"services"`
}

type OrderStatus string

const (
	Pending    OrderStatus = "pending"
	Processing OrderStatus = "processing"
	InProgress OrderStatus = "in progress"
	Completed  OrderStatus = "completed"
)

type Order struct {
	ID            string          `json:"id"`
	Category      string          `json:"category"`
	Service       string          `json:"service"`
	Link          string          `json:"link"`
	Quantity      int             `json:"quantity"`
	Charge        decimal.Decimal `json:"charge"`
	TransactionID string          `json:"transactionId"`
	Status        OrderStatus     `json:"status"`
	CreatedAt     time.Time       `json:"createdAt"`
}

type PaymentMethod string

const (
	Nagad PaymentMethod = "nagad"
	Bkash PaymentMethod = "bkash"
)

func (m PaymentMethod) Valid() bool {
	return m == Nagad || m == Bkash
}

type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentCompleted PaymentStatus = "completed"
	PaymentRejected  PaymentStatus = "rejected"
)

type PaymentRecord struct {
	ID            string          `json:"id"`
	Method        PaymentMethod   `json:"method"`
	Amount        decimal.Decimal `json:"amount"`
	TransactionID string          `json:"transactionId"`
	Status        PaymentStatus   `json:"status"`
	CreatedAt     time.Time       `json:"createdAt"`
}

// Profile is a row of the profiles table kept by the identity backend.
type Profile struct {
	ID       string          `json:"id"`
	UserID   string          `json:"user_id"`
	FullName string          `json:"full_name"`
	Email    string          `json:"email"`
	Balance  decimal.Decimal `json:"balance"`
}

type UserData struct {
	UserID  string          `json:"userId"`
	Email   string          `json:"email"`
	Name    string          `json:"name"`
	Balance decimal.Decimal `json:"balance"`
	Guest   bool            `json:"guest"`
}

func (p Profile) UserData() UserData {
	return UserData{
		UserID:  p.UserID,
		Email:   p.Email,
		Name:    p.FullName,
		Balance: p.Balance,
	}
}

type View string

const (
	UserView  View = "user"
	AdminView View = "admin"
)

// User is an account of the local identity backend.
type User struct {
	ID    string
	Email string
}
