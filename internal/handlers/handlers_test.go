package handlers_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"datalib/internal/handlers"
	"datalib/internal/models"
	"datalib/internal/services"
	"datalib/internal/testutil"
)

type server struct {
	router *gin.Engine
	user   models.User
	other  models.User
	book   models.Book
}

func newServer(t *testing.T) *server {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := testutil.OpenDB(t)
	r := testutil.NewRepos(db)
	now := time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC)

	router := gin.New()
	handlers.RegisterRoutes(router,
		services.NewBookService(db, r.Books),
		services.NewUserService(db, r.Users),
		services.NewCheckoutService(db, r.Users, r.Books, r.Checkouts, r.Items, services.CheckoutConfig{
			Now: func() time.Time { return now },
		}),
	)

	return &server{
		router: router,
		user:   testutil.CreateUser(t, db, "User1", "abc1@def.com"),
		other:  testutil.CreateUser(t, db, "User2", "abc2@def.com"),
		book:   testutil.CreateBook(t, db, "Author1", "Book1"),
	}
}

func (s *server) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

type checkoutBody struct {
	ID    uuid.UUID `json:"id"`
	Items []struct {
		Book struct {
			ID    uuid.UUID `json:"id"`
			Title string    `json:"title"`
		} `json:"book"`
		DueDate    string     `json:"due_date"`
		ReturnedAt *time.Time `json:"returned_at"`
		Status     string     `json:"status"`
	} `json:"items"`
	IssuedToUserID uuid.UUID `json:"issued_to_user_id"`
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()

	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v))
	return v
}

func TestBooks(t *testing.T) {
	s := newServer(t)

	w := s.do(t, http.MethodPost, "/api/books", gin.H{"author": "Author2"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, http.MethodPost, "/api/books", gin.H{"author": "Author2", "title": "Book2"})
	require.Equal(t, http.StatusCreated, w.Code)
	created := decode[map[string]string](t, w)
	assert.Equal(t, "/api/books/"+created["id"], w.Header().Get("Location"))

	w = s.do(t, http.MethodGet, "/api/books", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]map[string]string](t, w), 2)

	w = s.do(t, http.MethodPut, "/api/books/"+created["id"], gin.H{"author": "Author2", "title": "Book2b"})
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = s.do(t, http.MethodGet, "/api/books/not-a-uuid", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, http.MethodDelete, "/api/books/"+created["id"], nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = s.do(t, http.MethodGet, "/api/books/"+created["id"], nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestUsers(t *testing.T) {
	s := newServer(t)

	w := s.do(t, http.MethodPost, "/api/users", gin.H{"full_name": "User3", "email": "nope"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, http.MethodPost, "/api/users", gin.H{"full_name": "User3", "email": "abc1@def.com"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "already exists")

	w = s.do(t, http.MethodPost, "/api/users", gin.H{"full_name": "User3", "email": "abc3@def.com"})
	assert.Equal(t, http.StatusCreated, w.Code)

	w = s.do(t, http.MethodGet, "/api/users/"+s.user.ID.String(), nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "User1", decode[map[string]string](t, w)["full_name"])

	w = s.do(t, http.MethodDelete, "/api/users/"+uuid.NewString(), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCreateCheckout(t *testing.T) {
	s := newServer(t)

	tests := []struct {
		name string
		body gin.H
		want int
	}{
		{"missing user", gin.H{"book_ids": []uuid.UUID{s.book.ID}}, http.StatusBadRequest},
		{"no books", gin.H{"user_id": s.user.ID, "book_ids": []uuid.UUID{}}, http.StatusBadRequest},
		{"unknown user", gin.H{"user_id": uuid.New(), "book_ids": []uuid.UUID{s.book.ID}}, http.StatusNotFound},
		{"unknown book", gin.H{"user_id": s.user.ID, "book_ids": []uuid.UUID{uuid.New()}}, http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := s.do(t, http.MethodPost, "/api/checkouts", tt.body)
			assert.Equal(t, tt.want, w.Code, w.Body.String())
		})
	}

	w := s.do(t, http.MethodPost, "/api/checkouts", gin.H{"user_id": s.user.ID, "book_ids": []uuid.UUID{s.book.ID}})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	checkout := decode[checkoutBody](t, w)
	assert.Equal(t, "/api/checkouts/"+checkout.ID.String(), w.Header().Get("Location"))
	assert.Equal(t, s.user.ID, checkout.IssuedToUserID)
	require.Len(t, checkout.Items, 1)
	assert.Equal(t, "Book1", checkout.Items[0].Book.Title)
	assert.Equal(t, "2026-10-29", checkout.Items[0].DueDate)
	assert.Equal(t, string(models.CheckoutStatusCheckedOut), checkout.Items[0].Status)
	assert.Nil(t, checkout.Items[0].ReturnedAt)

	w = s.do(t, http.MethodPost, "/api/checkouts", gin.H{"user_id": s.other.ID, "book_ids": []uuid.UUID{s.book.ID}})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "currently checked out")
}

func TestCheckoutQueriesAndReturn(t *testing.T) {
	s := newServer(t)

	w := s.do(t, http.MethodPost, "/api/checkouts", gin.H{"user_id": s.user.ID, "book_ids": []uuid.UUID{s.book.ID}})
	require.Equal(t, http.StatusCreated, w.Code)
	id := decode[checkoutBody](t, w).ID.String()

	w = s.do(t, http.MethodGet, "/api/checkouts/"+id, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = s.do(t, http.MethodGet, "/api/checkouts/"+uuid.NewString(), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = s.do(t, http.MethodGet, "/api/checkouts?user_id="+s.user.ID.String(), nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]checkoutBody](t, w), 1)

	w = s.do(t, http.MethodGet, "/api/checkouts?user_id=bogus", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	returnPath := "/api/checkouts/" + id + "/return"
	books := []uuid.UUID{s.book.ID}

	w = s.do(t, http.MethodPost, returnPath, gin.H{"user_id": s.other.ID, "book_ids": books})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = s.do(t, http.MethodPost, returnPath, gin.H{"user_id": s.user.ID, "book_ids": books})
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = s.do(t, http.MethodPost, returnPath, gin.H{"user_id": s.user.ID, "book_ids": books})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "already returned")

	w = s.do(t, http.MethodGet, "/api/checkouts/"+id, nil)
	require.Equal(t, http.StatusOK, w.Code)
	fetched := decode[checkoutBody](t, w)
	assert.Equal(t, string(models.CheckoutStatusReturned), fetched.Items[0].Status)
	assert.NotNil(t, fetched.Items[0].ReturnedAt)
}
