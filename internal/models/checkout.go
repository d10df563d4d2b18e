package models

import (
	"iter"
	"time"

	"github.com/google/uuid"
)

const (
	// DefaultCheckoutPeriod is how long books are lent when no other period is configured.
	DefaultCheckoutPeriod = 14 * 24 * time.Hour

	// DefaultRemindIntervalDays is the look-ahead used by Checkout.ExpiredItems.
	DefaultRemindIntervalDays = 1
)

// Checkout is one issuance event covering one or more books to one user.
// IssuedOn is fixed at creation and the item set never grows afterwards.
type Checkout struct {
	ID             uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	IssuedToUserID uuid.UUID      `gorm:"type:uuid;not null;index" json:"issued_to_user_id"`
	IssuedOn       time.Time      `gorm:"not null" json:"issued_on"`
	Items          []CheckoutItem `gorm:"foreignKey:CheckoutID" json:"items"`
}

// CheckoutItem is the per-book record within a checkout.
type CheckoutItem struct {
	ID         uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	CheckoutID uuid.UUID      `gorm:"type:uuid;not null;index" json:"checkout_id"`
	BookID     uuid.UUID      `gorm:"type:uuid;not null;index" json:"book_id"`
	Book       *Book          `gorm:"foreignKey:BookID" json:"book,omitempty"`
	Position   int            `gorm:"not null;default:0" json:"-"`
	DueDate    time.Time      `gorm:"type:date;not null;index" json:"due_date"`
	ReturnedAt *time.Time     `json:"returned_at"`
	Status     CheckoutStatus `gorm:"size:16;not null;index" json:"status"`
}

// CreateForBooks builds a checkout of the given books for user. Every item
// shares the same due date, issuedOn + period truncated to a date. Books
// repeated in the argument list produce a single item; the first occurrence
// determines its position.
func CreateForBooks(user User, period time.Duration, now time.Time, books ...Book) *Checkout {
	checkout := &Checkout{
		ID:             uuid.New(),
		IssuedToUserID: user.ID,
		IssuedOn:       now,
		Items:          make([]CheckoutItem, 0, len(books)),
	}
	dueDate := DateOf(now.Add(period))

	seen := make(map[uuid.UUID]struct{}, len(books))
	for _, book := range books {
		if _, ok := seen[book.ID]; ok {
			continue
		}
		seen[book.ID] = struct{}{}
		item := newCheckedOutItem(checkout.ID, book, dueDate)
		item.Position = len(checkout.Items)
		checkout.Items = append(checkout.Items, item)
	}
	return checkout
}

func newCheckedOutItem(checkoutID uuid.UUID, book Book, dueDate time.Time) CheckoutItem {
	b := book
	return CheckoutItem{
		ID:         uuid.New(),
		CheckoutID: checkoutID,
		BookID:     book.ID,
		Book:       &b,
		DueDate:    dueDate,
		Status:     CheckoutStatusCheckedOut,
	}
}

// BookIDs returns the ids of the checked out books in item order.
func (c *Checkout) BookIDs() []uuid.UUID {
	ids := make([]uuid.UUID, len(c.Items))
	for i := range c.Items {
		ids[i] = c.Items[i].BookID
	}
	return ids
}

// ExpiredItems yields the items still checked out whose due date, taken as
// midnight in now's location, is less than remindIntervalDays away from now.
// Overdue items are always included. The sequence can be ranged over more
// than once.
func (c *Checkout) ExpiredItems(now time.Time, remindIntervalDays int) iter.Seq[CheckoutItem] {
	return func(yield func(CheckoutItem) bool) {
		for _, item := range c.Items {
			if item.Status != CheckoutStatusCheckedOut || item.ReturnedAt != nil {
				continue
			}
			y, m, d := item.DueDate.Date()
			due := time.Date(y, m, d, 0, 0, 0, 0, now.Location())
			if due.Sub(now).Hours()/24 >= float64(remindIntervalDays) {
				continue
			}
			if !yield(item) {
				return
			}
		}
	}
}

// CanReturn reports whether the item is still checked out.
func (i *CheckoutItem) CanReturn() bool {
	return i.Status == CheckoutStatusCheckedOut
}

// CanCheckOut reports whether the item no longer holds its book.
func (i *CheckoutItem) CanCheckOut() bool {
	return i.Status == CheckoutStatusReturned
}

// Return marks the item returned at now. Callers must check CanReturn first;
// a second call overwrites ReturnedAt.
func (i *CheckoutItem) Return(now time.Time) {
	i.Status = CheckoutStatusReturned
	i.ReturnedAt = &now
}

// DateOf drops the time of day from t, keeping the calendar date as seen in
// t's location. The result is midnight UTC so dates compare consistently in
// storage.
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
