package models

import (
	"time"
)

type Employee struct {
	ID          uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	Name        string    `gorm:"not null"                 json:"name"`
	Email       string    `gorm:"unique;not null"          json:"email"`
	Password    string    `gorm:"not null"                 json:"-"`
	Designation string    `gorm:"not null"                 json:"designation"`
	Status      string    `gorm:"default:active"           json:"status"`
	Avatar      string    `json:"avatar,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

type RefreshToken struct {
	ID         uint      `gorm:"primaryKey"      json:"id"`
	Token      string    `gorm:"unique;not null" json:"token"`
	EmployeeID uint      `gorm:"index;not null"  json:"employeeId"`
	ExpiresAt  time.Time `gorm:"not null"        json:"expiresAt"`
}

type Todo struct {
	ID          uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	Title       string    `gorm:"not null"                 json:"title"`
	Description string    `json:"description"`
	Completed   bool      `gorm:"default:false"            json:"completed"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Print is a reusable print design referenced by code from generation
// requests. Rows are seeded out of band; the API never mutates them.
type Print struct {
	ID    uint   `gorm:"primaryKey"      json:"id"`
	Code  string `gorm:"unique;not null" json:"code"`
	Image string `gorm:"not null"        json:"image"`
}
