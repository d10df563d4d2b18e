// Package testutil provides helpers shared by the package tests.
package testutil

import (
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"datalib/internal/config"
	"datalib/internal/database"
	"datalib/internal/models"
	"datalib/internal/repositories"
)

// OpenDB returns a migrated in-memory sqlite database that lives for the
// duration of the test. The pool is limited to one connection because every
// new sqlite memory connection starts from an empty database.
func OpenDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := database.Open(config.DriverSQLite, ":memory:", database.Options{
		MaxOpenConns: 1,
		Logger:       logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close(db) })
	return db
}

// Repos bundles the repositories over one database.
type Repos struct {
	Users     repositories.UserRepository
	Books     repositories.BookRepository
	Checkouts repositories.CheckoutRepository
	Items     repositories.CheckoutItemRepository
}

func NewRepos(db *gorm.DB) Repos {
	return Repos{
		Users:     repositories.NewUserRepository(db),
		Books:     repositories.NewBookRepository(db),
		Checkouts: repositories.NewCheckoutRepository(db),
		Items:     repositories.NewCheckoutItemRepository(db),
	}
}

// CreateUser inserts a user with the given email.
func CreateUser(t *testing.T, db *gorm.DB, fullName, email string) models.User {
	t.Helper()

	user := models.User{FullName: fullName, Email: email}
	require.NoError(t, db.Create(&user).Error)
	return user
}

// CreateBook inserts a book.
func CreateBook(t *testing.T, db *gorm.DB, author, title string) models.Book {
	t.Helper()

	book := models.Book{Author: author, Title: title}
	require.NoError(t, db.Create(&book).Error)
	return book
}
