package services_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"datalib/internal/services"
	"datalib/internal/testutil"
)

func TestBookService_CRUD(t *testing.T) {
	db := testutil.OpenDB(t)
	svc := services.NewBookService(db, testutil.NewRepos(db).Books)
	ctx := context.Background()

	created, err := svc.CreateBook(ctx, services.BookRequest{Author: "Author2", Title: "Book2"})
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, created.ID)
	_, err = svc.CreateBook(ctx, services.BookRequest{Author: "Author1", Title: "Book1"})
	require.NoError(t, err)

	books, err := svc.ListBooks(ctx)
	require.NoError(t, err)
	require.Len(t, books, 2)
	assert.Equal(t, "Book1", books[0].Title)

	updated, err := svc.UpdateBook(ctx, created.ID, services.BookRequest{Author: "Author2", Title: "Book2, 2nd edition"})
	require.NoError(t, err)
	assert.Equal(t, "Book2, 2nd edition", updated.Title)

	fetched, err := svc.GetBook(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Book2, 2nd edition", fetched.Title)

	require.NoError(t, svc.DeleteBook(ctx, created.ID))
	_, err = svc.GetBook(ctx, created.ID)
	assert.ErrorIs(t, err, services.ErrNotFound)
}

func TestBookService_Failures(t *testing.T) {
	db := testutil.OpenDB(t)
	svc := services.NewBookService(db, testutil.NewRepos(db).Books)
	ctx := context.Background()

	_, err := svc.CreateBook(ctx, services.BookRequest{Author: " ", Title: "Book"})
	assert.ErrorIs(t, err, services.ErrValidation)

	_, err = svc.CreateBook(ctx, services.BookRequest{Author: "Author"})
	assert.ErrorIs(t, err, services.ErrValidation)

	_, err = svc.UpdateBook(ctx, uuid.New(), services.BookRequest{Author: "Author", Title: "Book"})
	assert.ErrorIs(t, err, services.ErrNotFound)

	err = svc.DeleteBook(ctx, uuid.New())
	assert.ErrorIs(t, err, services.ErrNotFound)
}
