package services

import (
	"context"
	"log"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"datalib/internal/models"
	"datalib/internal/repositories"
)

// BookRequest carries the editable fields of a book.
type BookRequest struct {
	Author string
	Title  string
}

func (r BookRequest) validate() error {
	if strings.TrimSpace(r.Author) == "" {
		return validationf("Non empty author is required.")
	}
	if strings.TrimSpace(r.Title) == "" {
		return validationf("Non empty title is required.")
	}
	return nil
}

// BookService manages the catalogue. Book records carry no lifecycle state of
// their own; availability is derived from checkout items.
type BookService interface {
	CreateBook(ctx context.Context, req BookRequest) (*models.Book, error)
	ListBooks(ctx context.Context) ([]models.Book, error)
	GetBook(ctx context.Context, id uuid.UUID) (*models.Book, error)
	UpdateBook(ctx context.Context, id uuid.UUID, req BookRequest) (*models.Book, error)
	DeleteBook(ctx context.Context, id uuid.UUID) error
}

type bookService struct {
	db       *gorm.DB
	bookRepo repositories.BookRepository
}

// NewBookService returns a BookService backed by bookRepo.
func NewBookService(db *gorm.DB, bookRepo repositories.BookRepository) BookService {
	return &bookService{db: db, bookRepo: bookRepo}
}

func (s *bookService) CreateBook(ctx context.Context, req BookRequest) (*models.Book, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}
	book := &models.Book{Author: req.Author, Title: req.Title}
	if err := s.bookRepo.Create(s.db.WithContext(ctx), book); err != nil {
		log.Printf("[ERROR] CreateBook: failed to create book record: %v", err)
		return nil, err
	}
	log.Printf("[INFO] CreateBook: created book %q (id=%s)", book.Title, book.ID)
	return book, nil
}

// ListBooks returns all books ordered by title.
func (s *bookService) ListBooks(ctx context.Context) ([]models.Book, error) {
	return s.bookRepo.List(s.db.WithContext(ctx))
}

func (s *bookService) GetBook(ctx context.Context, id uuid.UUID) (*models.Book, error) {
	book, err := s.bookRepo.GetByID(s.db.WithContext(ctx), id)
	if err != nil {
		return nil, lookupErr(err, "Book with Id=%s not found.", id)
	}
	return book, nil
}

func (s *bookService) UpdateBook(ctx context.Context, id uuid.UUID, req BookRequest) (*models.Book, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}

	var book *models.Book
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		book, err = s.bookRepo.GetByID(tx, id)
		if err != nil {
			return lookupErr(err, "Book with Id=%s not found.", id)
		}
		book.Update(req.Author, req.Title)
		return s.bookRepo.Update(tx, book)
	})
	if err != nil {
		return nil, err
	}
	log.Printf("[INFO] UpdateBook: updated book %s", id)
	return book, nil
}

// DeleteBook removes a book record. Checkout items referencing it are kept as
// history.
func (s *bookService) DeleteBook(ctx context.Context, id uuid.UUID) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := s.bookRepo.GetByID(tx, id); err != nil {
			return lookupErr(err, "Book with Id=%s not found.", id)
		}
		return s.bookRepo.Delete(tx, id)
	})
	if err != nil {
		return err
	}
	log.Printf("[INFO] DeleteBook: deleted book %s", id)
	return nil
}
