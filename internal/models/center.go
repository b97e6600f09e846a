package models

import "time"

// Center is a physical or logical education site students are enrolled at.
type Center struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	Name            string    `gorm:"size:200;not null" json:"name"`
	Location        string    `gorm:"size:300" json:"location"`
	Capacity        int       `gorm:"not null" json:"capacity"`
	EstablishedDate time.Time `json:"established_date"`
	IsActive        bool      `gorm:"not null" json:"is_active"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// Subject is a taught course that grades are recorded against.
type Subject struct {
	ID   uint   `gorm:"primaryKey" json:"id"`
	Name string `gorm:"size:100;not null" json:"name"`
	Code string `gorm:"size:10;uniqueIndex;not null" json:"code"`
}
