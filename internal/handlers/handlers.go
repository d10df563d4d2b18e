package handlers

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"datalib/internal/services"
)

type LibraryHandler struct {
	books     services.BookService
	users     services.UserService
	checkouts services.CheckoutService
}

func RegisterRoutes(r *gin.Engine, books services.BookService, users services.UserService, checkouts services.CheckoutService) {
	h := &LibraryHandler{books: books, users: users, checkouts: checkouts}

	api := r.Group("/api")

	api.POST("/books", h.createBook)
	api.GET("/books", h.listBooks)
	api.GET("/books/:id", h.getBook)
	api.PUT("/books/:id", h.updateBook)
	api.DELETE("/books/:id", h.deleteBook)

	api.POST("/users", h.createUser)
	api.GET("/users", h.listUsers)
	api.GET("/users/:id", h.getUser)
	api.PUT("/users/:id", h.updateUser)
	api.DELETE("/users/:id", h.deleteUser)

	api.POST("/checkouts", h.createCheckout)
	api.GET("/checkouts", h.listUserCheckouts)
	api.GET("/checkouts/:id", h.getCheckout)
	api.POST("/checkouts/:id/return", h.returnBooks)
}

// fail answers with the status matching err. Unexpected faults are logged and
// hidden behind a generic message.
func fail(c *gin.Context, err error, generic string) {
	switch {
	case errors.Is(err, services.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, services.ErrValidation), errors.Is(err, services.ErrConflict):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, services.ErrUnauthorized):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	default:
		log.Printf("[ERROR] %s %s: %s: %v", c.Request.Method, c.Request.URL.Path, generic, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": generic})
	}
}

// paramID parses the :id path parameter, answering 400 when it is malformed.
func paramID(c *gin.Context, what string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + what + " id"})
		return uuid.Nil, false
	}
	return id, true
}

// ─── Books ────────────────────────────────────────────────────────────────────

type bookRequest struct {
	Author string `json:"author" binding:"required"`
	Title  string `json:"title" binding:"required"`
}

func (h *LibraryHandler) createBook(c *gin.Context) {
	var req bookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	book, err := h.books.CreateBook(c.Request.Context(), services.BookRequest{Author: req.Author, Title: req.Title})
	if err != nil {
		fail(c, err, "Error creating Book.")
		return
	}
	c.Header("Location", "/api/books/"+book.ID.String())
	c.JSON(http.StatusCreated, toBookResponse(book))
}

func (h *LibraryHandler) listBooks(c *gin.Context) {
	books, err := h.books.ListBooks(c.Request.Context())
	if err != nil {
		fail(c, err, "Error getting Books.")
		return
	}
	resp := make([]bookResponse, len(books))
	for i := range books {
		resp[i] = toBookResponse(&books[i])
	}
	c.JSON(http.StatusOK, resp)
}

func (h *LibraryHandler) getBook(c *gin.Context) {
	id, ok := paramID(c, "book")
	if !ok {
		return
	}
	book, err := h.books.GetBook(c.Request.Context(), id)
	if err != nil {
		fail(c, err, "Error getting Book.")
		return
	}
	c.JSON(http.StatusOK, toBookResponse(book))
}

func (h *LibraryHandler) updateBook(c *gin.Context) {
	id, ok := paramID(c, "book")
	if !ok {
		return
	}
	var req bookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if _, err := h.books.UpdateBook(c.Request.Context(), id, services.BookRequest{Author: req.Author, Title: req.Title}); err != nil {
		fail(c, err, "Error updating Book.")
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *LibraryHandler) deleteBook(c *gin.Context) {
	id, ok := paramID(c, "book")
	if !ok {
		return
	}
	if err := h.books.DeleteBook(c.Request.Context(), id); err != nil {
		fail(c, err, "Error deleting Book.")
		return
	}
	c.Status(http.StatusNoContent)
}

// ─── Users ────────────────────────────────────────────────────────────────────

type userRequest struct {
	FullName string `json:"full_name" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
}

func (h *LibraryHandler) createUser(c *gin.Context) {
	var req userRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, err := h.users.CreateUser(c.Request.Context(), services.UserRequest{FullName: req.FullName, Email: req.Email})
	if err != nil {
		fail(c, err, "Error creating User.")
		return
	}
	c.Header("Location", "/api/users/"+user.ID.String())
	c.JSON(http.StatusCreated, toUserResponse(user))
}

func (h *LibraryHandler) listUsers(c *gin.Context) {
	users, err := h.users.ListUsers(c.Request.Context())
	if err != nil {
		fail(c, err, "Error getting Users.")
		return
	}
	resp := make([]userResponse, len(users))
	for i := range users {
		resp[i] = toUserResponse(&users[i])
	}
	c.JSON(http.StatusOK, resp)
}

func (h *LibraryHandler) getUser(c *gin.Context) {
	id, ok := paramID(c, "user")
	if !ok {
		return
	}
	user, err := h.users.GetUser(c.Request.Context(), id)
	if err != nil {
		fail(c, err, "Error getting User.")
		return
	}
	c.JSON(http.StatusOK, toUserResponse(user))
}

func (h *LibraryHandler) updateUser(c *gin.Context) {
	id, ok := paramID(c, "user")
	if !ok {
		return
	}
	var req userRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if _, err := h.users.UpdateUser(c.Request.Context(), id, services.UserRequest{FullName: req.FullName, Email: req.Email}); err != nil {
		fail(c, err, "Error updating User.")
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *LibraryHandler) deleteUser(c *gin.Context) {
	id, ok := paramID(c, "user")
	if !ok {
		return
	}
	if err := h.users.DeleteUser(c.Request.Context(), id); err != nil {
		fail(c, err, "Error deleting User.")
		return
	}
	c.Status(http.StatusNoContent)
}

// ─── Checkouts ────────────────────────────────────────────────────────────────

type checkoutRequest struct {
	UserID  uuid.UUID   `json:"user_id" binding:"required"`
	BookIDs []uuid.UUID `json:"book_ids"`
}

func (h *LibraryHandler) createCheckout(c *gin.Context) {
	var req checkoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	checkout, err := h.checkouts.CheckOutBooks(c.Request.Context(), req.UserID, req.BookIDs)
	if err != nil {
		fail(c, err, "Error creating Checkout.")
		return
	}
	c.Header("Location", "/api/checkouts/"+checkout.ID.String())
	c.JSON(http.StatusCreated, toCheckoutResponse(checkout))
}

func (h *LibraryHandler) listUserCheckouts(c *gin.Context) {
	userID, err := uuid.Parse(c.Query("user_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user id"})
		return
	}

	checkouts, err := h.checkouts.GetCheckoutsForUser(c.Request.Context(), userID)
	if err != nil {
		fail(c, err, "Error getting Checkouts for the user.")
		return
	}
	resp := make([]checkoutResponse, len(checkouts))
	for i := range checkouts {
		resp[i] = toCheckoutResponse(&checkouts[i])
	}
	c.JSON(http.StatusOK, resp)
}

func (h *LibraryHandler) getCheckout(c *gin.Context) {
	id, ok := paramID(c, "checkout")
	if !ok {
		return
	}
	checkout, err := h.checkouts.GetCheckout(c.Request.Context(), id)
	if err != nil {
		fail(c, err, "Error getting Checkout.")
		return
	}
	c.JSON(http.StatusOK, toCheckoutResponse(checkout))
}

func (h *LibraryHandler) returnBooks(c *gin.Context) {
	checkoutID, ok := paramID(c, "checkout")
	if !ok {
		return
	}
	var req checkoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	err := h.checkouts.ReturnBooks(c.Request.Context(), checkoutID, services.ReturnRequest{UserID: req.UserID, BookIDs: req.BookIDs})
	if err != nil {
		fail(c, err, "Error returning Books.")
		return
	}
	c.Status(http.StatusNoContent)
}
