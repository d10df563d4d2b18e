package handlers

import (
	"time"

	"github.com/google/uuid"

	"datalib/internal/models"
)

type bookResponse struct {
	ID     uuid.UUID `json:"id"`
	Author string    `json:"author"`
	Title  string    `json:"title"`
}

type userResponse struct {
	ID       uuid.UUID `json:"id"`
	FullName string    `json:"full_name"`
	Email    string    `json:"email"`
}

type checkoutItemResponse struct {
	Book       bookResponse `json:"book"`
	DueDate    string       `json:"due_date"`
	ReturnedAt *time.Time   `json:"returned_at"`
	Status     string       `json:"status"`
}

type checkoutResponse struct {
	ID             uuid.UUID              `json:"id"`
	Items          []checkoutItemResponse `json:"items"`
	IssuedToUserID uuid.UUID              `json:"issued_to_user_id"`
	IssuedOn       time.Time              `json:"issued_on"`
}

func toBookResponse(b *models.Book) bookResponse {
	return bookResponse{ID: b.ID, Author: b.Author, Title: b.Title}
}

func toUserResponse(u *models.User) userResponse {
	return userResponse{ID: u.ID, FullName: u.FullName, Email: u.Email}
}

func toCheckoutResponse(c *models.Checkout) checkoutResponse {
	items := make([]checkoutItemResponse, len(c.Items))
	for i, item := range c.Items {
		// The book may have been deleted since; keep at least its id.
		book := bookResponse{ID: item.BookID}
		if item.Book != nil {
			book = toBookResponse(item.Book)
		}
		items[i] = checkoutItemResponse{
			Book:       book,
			DueDate:    item.DueDate.Format(time.DateOnly),
			ReturnedAt: item.ReturnedAt,
			Status:     string(item.Status),
		}
	}
	return checkoutResponse{
		ID:             c.ID,
		Items:          items,
		IssuedToUserID: c.IssuedToUserID,
		IssuedOn:       c.IssuedOn,
	}
}
