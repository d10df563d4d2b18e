package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type CheckoutStatus string

const (
	CheckoutStatusCheckedOut CheckoutStatus = "CHECKED_OUT"
	CheckoutStatusReturned   CheckoutStatus = "RETURNED"
)

type Book struct {
	ID     uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Author string    `gorm:"size:255;not null" json:"author"`
	Title  string    `gorm:"size:255;not null;index" json:"title"`
}

func (b *Book) BeforeCreate(*gorm.DB) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	return nil
}

// Update replaces the mutable fields of the book.
func (b *Book) Update(author, title string) {
	b.Author = author
	b.Title = title
}

type User struct {
	ID       uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	FullName string    `gorm:"size:255;not null" json:"full_name"`
	Email    string    `gorm:"size:255;not null;uniqueIndex" json:"email"`
	IsAdmin  bool      `gorm:"not null;default:false" json:"is_admin"`
}

func (u *User) BeforeCreate(*gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}

// Update replaces the mutable fields of the user.
func (u *User) Update(fullName, email string) {
	u.FullName = fullName
	u.Email = email
}

// CheckoutBooks issues a new checkout of books to the user. The checkout is
// not persisted.
func (u *User) CheckoutBooks(period time.Duration, now time.Time, books ...Book) *Checkout {
	return CreateForBooks(*u, period, now, books...)
}

// ReminderInfo is assembled per checkout by the reminder scan and discarded
// after dispatch.
type ReminderInfo struct {
	Email            string
	IssuedOn         time.Time
	AuthorsAndTitles []string
}
