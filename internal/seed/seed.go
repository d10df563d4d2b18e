// Package seed fills an empty database with development data.
package seed

import (
	"errors"
	"fmt"
	"log"
	"time"

	"gorm.io/gorm"

	"datalib/internal/models"
	"datalib/internal/repositories"
)

// Seeder knows the seed data of one record type and how to recognise a
// record that already exists.
type Seeder[T any] interface {
	// FindExisting returns the stored record equal to entity, or nil.
	FindExisting(tx *gorm.DB, entity T) (*T, error)
	SeedData(tx *gorm.DB) ([]T, error)
	Create(tx *gorm.DB, entity *T) error
}

// Run seeds the records of s unless their table already has rows. It reports
// how many records were created.
func Run[T any](db *gorm.DB, s Seeder[T]) (int, error) {
	var created int
	err := db.Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(new(T)).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return nil
		}

		data, err := s.SeedData(tx)
		if err != nil {
			return err
		}
		for i := range data {
			existing, err := s.FindExisting(tx, data[i])
			if err != nil {
				return err
			}
			if existing != nil {
				continue
			}
			if err := s.Create(tx, &data[i]); err != nil {
				return err
			}
			created++
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("seed %T: %w", *new(T), err)
	}
	return created, nil
}

// All seeds books, users and checkouts, in that order.
func All(db *gorm.DB, period time.Duration) error {
	userRepo := repositories.NewUserRepository(db)
	bookRepo := repositories.NewBookRepository(db)
	checkoutRepo := repositories.NewCheckoutRepository(db)

	n, err := Run[models.Book](db, bookSeeder{repo: bookRepo})
	if err != nil {
		return err
	}
	log.Printf("[INFO] Seed: created %d book(s)", n)

	n, err = Run[models.User](db, userSeeder{repo: userRepo})
	if err != nil {
		return err
	}
	log.Printf("[INFO] Seed: created %d user(s)", n)

	n, err = Run[models.Checkout](db, checkoutSeeder{
		users:     userRepo,
		books:     bookRepo,
		checkouts: checkoutRepo,
		period:    period,
		now:       time.Now,
	})
	if err != nil {
		return err
	}
	log.Printf("[INFO] Seed: created %d checkout(s)", n)
	return nil
}

// notFoundAsNil maps a missing record to (nil, nil).
func notFoundAsNil[T any](v *T, err error) (*T, error) {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return v, err
}

type bookSeeder struct {
	repo repositories.BookRepository
}

func (s bookSeeder) FindExisting(tx *gorm.DB, book models.Book) (*models.Book, error) {
	return notFoundAsNil(s.repo.GetByTitle(tx, book.Title))
}

func (s bookSeeder) SeedData(*gorm.DB) ([]models.Book, error) {
	books := make([]models.Book, 0, 9)
	for i := 1; i <= 9; i++ {
		books = append(books, models.Book{
			Author: fmt.Sprintf("Author%d", i),
			Title:  fmt.Sprintf("Book%d", i),
		})
	}
	return books, nil
}

func (s bookSeeder) Create(tx *gorm.DB, book *models.Book) error {
	return s.repo.Create(tx, book)
}

type userSeeder struct {
	repo repositories.UserRepository
}

func (s userSeeder) FindExisting(tx *gorm.DB, user models.User) (*models.User, error) {
	return notFoundAsNil(s.repo.GetByFullName(tx, user.FullName))
}

func (s userSeeder) SeedData(*gorm.DB) ([]models.User, error) {
	return []models.User{
		{FullName: "Admin", Email: "abc0@def.com", IsAdmin: true},
		{FullName: "User1", Email: "abc1@def.com"},
		{FullName: "User2", Email: "abc2@def.com"},
		{FullName: "User3", Email: "abc3@def.com"},
	}, nil
}

func (s userSeeder) Create(tx *gorm.DB, user *models.User) error {
	return s.repo.Create(tx, user)
}

type checkoutSeeder struct {
	users     repositories.UserRepository
	books     repositories.BookRepository
	checkouts repositories.CheckoutRepository
	period    time.Duration
	now       func() time.Time
}

func (s checkoutSeeder) FindExisting(tx *gorm.DB, checkout models.Checkout) (*models.Checkout, error) {
	return notFoundAsNil(s.checkouts.GetByID(tx, checkout.ID))
}

// SeedData lends books to the first two non-admin users. It yields nothing if
// there are not enough users or books.
func (s checkoutSeeder) SeedData(tx *gorm.DB) ([]models.Checkout, error) {
	users, err := s.users.List(tx)
	if err != nil {
		return nil, err
	}
	books, err := s.books.List(tx)
	if err != nil {
		return nil, err
	}
	if len(users) < 3 || len(books) < 5 {
		return nil, nil
	}

	now := s.now()
	user1, user2 := users[1], users[2]
	return []models.Checkout{
		*user1.CheckoutBooks(s.period, now, books[0], books[1]),
		*user1.CheckoutBooks(s.period, now, books[2]),
		*user2.CheckoutBooks(s.period, now, books[3], books[4]),
	}, nil
}

func (s checkoutSeeder) Create(tx *gorm.DB, checkout *models.Checkout) error {
	return s.checkouts.Create(tx, checkout)
}
