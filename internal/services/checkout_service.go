package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"datalib/internal/models"
	"datalib/internal/repositories"
)

// DefaultReminderWindowDays is how far ahead of their due date items are
// picked up by GetItemsToRemind. It has to cover at least one reminder period
// so nothing falls due between two scans unnoticed.
const DefaultReminderWindowDays = 2

// CheckoutConfig carries the tunables of the checkout lifecycle.
type CheckoutConfig struct {
	// Period is how long books are lent for. Defaults to models.DefaultCheckoutPeriod.
	Period time.Duration

	// ReminderWindowDays is the look-ahead of GetItemsToRemind. Defaults to
	// DefaultReminderWindowDays.
	ReminderWindowDays int

	// Now returns the current time. Defaults to time.Now.
	Now func() time.Time
}

func (c CheckoutConfig) withDefaults() CheckoutConfig {
	if c.Period <= 0 {
		c.Period = models.DefaultCheckoutPeriod
	}
	if c.ReminderWindowDays <= 0 {
		c.ReminderWindowDays = DefaultReminderWindowDays
	}
	if c.Now == nil {
		c.Now = time.Now
	}
	return c
}

// ReturnRequest names the books a user hands back from one checkout.
type ReturnRequest struct {
	UserID  uuid.UUID
	BookIDs []uuid.UUID
}

// ─── Service Interface ────────────────────────────────────────────────────────

// CheckoutService is the only place where checkouts and their items are
// created or changed.
type CheckoutService interface {
	CheckOutBooks(ctx context.Context, userID uuid.UUID, bookIDs []uuid.UUID) (*models.Checkout, error)
	ReturnBooks(ctx context.Context, checkoutID uuid.UUID, req ReturnRequest) error

	GetCheckoutsForUser(ctx context.Context, userID uuid.UUID) ([]models.Checkout, error)
	GetCheckout(ctx context.Context, id uuid.UUID) (*models.Checkout, error)

	GetItemsToRemind(ctx context.Context) ([]models.ReminderInfo, error)
}

// ─── Implementation ───────────────────────────────────────────────────────────

type checkoutService struct {
	db           *gorm.DB
	userRepo     repositories.UserRepository
	bookRepo     repositories.BookRepository
	checkoutRepo repositories.CheckoutRepository
	itemRepo     repositories.CheckoutItemRepository
	cfg          CheckoutConfig
}

// NewCheckoutService wires up all dependencies and returns a CheckoutService.
func NewCheckoutService(
	db *gorm.DB,
	userRepo repositories.UserRepository,
	bookRepo repositories.BookRepository,
	checkoutRepo repositories.CheckoutRepository,
	itemRepo repositories.CheckoutItemRepository,
	cfg CheckoutConfig,
) CheckoutService {
	return &checkoutService{
		db:           db,
		userRepo:     userRepo,
		bookRepo:     bookRepo,
		checkoutRepo: checkoutRepo,
		itemRepo:     itemRepo,
		cfg:          cfg.withDefaults(),
	}
}

// ─── Checkout ─────────────────────────────────────────────────────────────────

// CheckOutBooks issues the requested books to a user in a single checkout.
//
// Every book is resolved and checked for availability before anything is
// written, so a failure on any of them leaves storage untouched. Books
// requested twice end up as a single item.
func (s *checkoutService) CheckOutBooks(ctx context.Context, userID uuid.UUID, bookIDs []uuid.UUID) (_ *models.Checkout, err error) {
	ctx, span := tracer.Start(ctx, "CheckoutService.CheckOutBooks", trace.WithAttributes(
		attribute.String("user.id", userID.String()),
		attribute.Int("books.count", len(bookIDs)),
	))
	defer func() { endSpan(span, err) }()

	if len(bookIDs) == 0 {
		return nil, validationf("Book ids list must not be empty.")
	}

	var checkout *models.Checkout
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		user, err := s.userRepo.GetByID(tx, userID)
		if err != nil {
			return lookupErr(err, "User with Id=%s not found.", userID)
		}

		books := make([]models.Book, 0, len(bookIDs))
		for _, bookID := range bookIDs {
			book, err := s.bookRepo.GetByID(tx, bookID)
			if err != nil {
				return lookupErr(err, "Book with Id=%s not found.", bookID)
			}

			items, err := s.itemRepo.ListByBook(tx, book.ID)
			if err != nil {
				return fmt.Errorf("list items of book %s: %w", book.ID, err)
			}
			for _, item := range items {
				if !item.CanCheckOut() {
					log.Printf("[WARN] CheckOutBooks: book %s is held by checkout %s", book.ID, item.CheckoutID)
					return conflictf("Cannot check out Book with Id=%s, it is currently checked out.", book.ID)
				}
			}

			books = append(books, *book)
		}

		checkout = user.CheckoutBooks(s.cfg.Period, s.cfg.Now(), books...)
		if err := s.checkoutRepo.Create(tx, checkout); err != nil {
			if isUniqueViolation(err) {
				log.Printf("[WARN] CheckOutBooks: lost a concurrent checkout race for user %s: %v", userID, err)
				return conflictf("Cannot check out the requested books, at least one of them is currently checked out.")
			}
			log.Printf("[ERROR] CheckOutBooks: failed to create checkout for user %s: %v", userID, err)
			return err
		}
		return nil
	})
	if err != nil {
		if !IsFailure(err) {
			log.Printf("[ERROR] CheckOutBooks: transaction failed for user %s: %v", userID, err)
		}
		return nil, err
	}

	log.Printf("[INFO] CheckOutBooks: checkout created (id=%s) for user %s with %d item(s), due %s",
		checkout.ID, userID, len(checkout.Items), checkout.Items[0].DueDate.Format(time.DateOnly))
	return checkout, nil
}

// ─── Return ───────────────────────────────────────────────────────────────────

// ReturnBooks marks the requested books of one checkout as returned.
//
// All steps run in one transaction:
//  1. Resolve the checkout and the user, and make sure the checkout was issued to that user.
//  2. For every requested book, resolve it, find its item on the checkout and
//     guard against returning it twice.
//  3. Persist each returned item with a conditional update, so a concurrent
//     return of the same item is reported as a conflict as well.
//
// Any failure rolls back the whole request; no item is returned partially.
func (s *checkoutService) ReturnBooks(ctx context.Context, checkoutID uuid.UUID, req ReturnRequest) (err error) {
	ctx, span := tracer.Start(ctx, "CheckoutService.ReturnBooks", trace.WithAttributes(
		attribute.String("checkout.id", checkoutID.String()),
		attribute.String("user.id", req.UserID.String()),
		attribute.Int("books.count", len(req.BookIDs)),
	))
	defer func() { endSpan(span, err) }()

	if len(req.BookIDs) == 0 {
		return validationf("Book ids list must not be empty.")
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		checkout, err := s.checkoutRepo.GetByID(tx, checkoutID)
		if err != nil {
			return lookupErr(err, "Checkout with Id=%s not found.", checkoutID)
		}

		user, err := s.userRepo.GetByID(tx, req.UserID)
		if err != nil {
			return lookupErr(err, "The specified user with Id=%s was not found.", req.UserID)
		}

		if checkout.IssuedToUserID != user.ID {
			log.Printf("[WARN] ReturnBooks: user %s tried to return books of checkout %s issued to %s", user.ID, checkout.ID, checkout.IssuedToUserID)
			return unauthorizedf("This checkout was not issued to the user with Id=%s", user.ID)
		}

		items, err := s.itemRepo.ListByCheckout(tx, checkout.ID)
		if err != nil {
			return fmt.Errorf("list items of checkout %s: %w", checkout.ID, err)
		}

		now := s.cfg.Now()
		returned := make([]*models.CheckoutItem, 0, len(req.BookIDs))
		for _, bookID := range req.BookIDs {
			book, err := s.bookRepo.GetByID(tx, bookID)
			if err != nil {
				return lookupErr(err, "Book with Id=%s not found.", bookID)
			}

			item := findItemForBook(items, book.ID)
			if item == nil {
				return notFoundf("Book with Id=%s not found on the checkout.", book.ID)
			}
			if !item.CanReturn() {
				return conflictf("Cannot return Book with Id=%s, it is already returned.", book.ID)
			}

			item.Return(now)
			returned = append(returned, item)
		}

		for _, item := range returned {
			ok, err := s.itemRepo.MarkReturned(tx, item.ID, *item.ReturnedAt)
			if err != nil {
				log.Printf("[ERROR] ReturnBooks: failed to mark item %s returned: %v", item.ID, err)
				return err
			}
			if !ok {
				log.Printf("[WARN] ReturnBooks: item %s was returned concurrently", item.ID)
				return conflictf("Cannot return Book with Id=%s, it is already returned.", item.BookID)
			}
		}
		return nil
	})
	if err != nil {
		if !IsFailure(err) {
			log.Printf("[ERROR] ReturnBooks: transaction failed for checkout %s: %v", checkoutID, err)
		}
		return err
	}

	log.Printf("[INFO] ReturnBooks: user %s returned %d book(s) of checkout %s", req.UserID, len(req.BookIDs), checkoutID)
	return nil
}

func findItemForBook(items []models.CheckoutItem, bookID uuid.UUID) *models.CheckoutItem {
	for i := range items {
		if items[i].BookID == bookID {
			return &items[i]
		}
	}
	return nil
}

// ─── Queries ──────────────────────────────────────────────────────────────────

// GetCheckoutsForUser returns all checkouts (active and past) issued to a user.
func (s *checkoutService) GetCheckoutsForUser(ctx context.Context, userID uuid.UUID) ([]models.Checkout, error) {
	db := s.db.WithContext(ctx)
	if _, err := s.userRepo.GetByID(db, userID); err != nil {
		return nil, lookupErr(err, "User with Id=%s not found.", userID)
	}
	return s.checkoutRepo.ListByUser(db, userID)
}

// GetCheckout returns a checkout together with its items and their books.
func (s *checkoutService) GetCheckout(ctx context.Context, id uuid.UUID) (*models.Checkout, error) {
	checkout, err := s.checkoutRepo.GetByID(s.db.WithContext(ctx), id)
	if err != nil {
		return nil, lookupErr(err, "Checkout with Id=%s not found.", id)
	}
	return checkout, nil
}

// ─── Reminders ────────────────────────────────────────────────────────────────

// GetItemsToRemind collects the outstanding items due within the reminder
// window, overdue ones included, and builds one ReminderInfo per checkout.
//
// Checkouts or users that no longer resolve are skipped, as are single books
// that no longer resolve; the rest of their checkout is still reported.
func (s *checkoutService) GetItemsToRemind(ctx context.Context) (_ []models.ReminderInfo, err error) {
	ctx, span := tracer.Start(ctx, "CheckoutService.GetItemsToRemind")
	defer func() { endSpan(span, err) }()

	db := s.db.WithContext(ctx)
	target := models.DateOf(s.cfg.Now()).AddDate(0, 0, s.cfg.ReminderWindowDays)

	items, err := s.itemRepo.ListCheckedOutDueBefore(db, target)
	if err != nil {
		return nil, fmt.Errorf("list items due before %s: %w", target.Format(time.DateOnly), err)
	}

	var order []uuid.UUID
	groups := make(map[uuid.UUID][]models.CheckoutItem)
	for _, item := range items {
		if _, ok := groups[item.CheckoutID]; !ok {
			order = append(order, item.CheckoutID)
		}
		groups[item.CheckoutID] = append(groups[item.CheckoutID], item)
	}

	result := make([]models.ReminderInfo, 0, len(order))
	for _, checkoutID := range order {
		info, ok, err := s.reminderFor(db, checkoutID, groups[checkoutID])
		if err != nil {
			return nil, err
		}
		if ok {
			result = append(result, info)
		}
	}

	span.SetAttributes(attribute.Int("reminders.count", len(result)))
	return result, nil
}

func (s *checkoutService) reminderFor(db *gorm.DB, checkoutID uuid.UUID, items []models.CheckoutItem) (models.ReminderInfo, bool, error) {
	checkout, err := s.checkoutRepo.GetByID(db, checkoutID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			log.Printf("[WARN] GetItemsToRemind: checkout %s not found, skipping", checkoutID)
			return models.ReminderInfo{}, false, nil
		}
		return models.ReminderInfo{}, false, fmt.Errorf("load checkout %s: %w", checkoutID, err)
	}

	user, err := s.userRepo.GetByID(db, checkout.IssuedToUserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			log.Printf("[WARN] GetItemsToRemind: user %s of checkout %s not found, skipping", checkout.IssuedToUserID, checkoutID)
			return models.ReminderInfo{}, false, nil
		}
		return models.ReminderInfo{}, false, fmt.Errorf("load user %s: %w", checkout.IssuedToUserID, err)
	}

	info := models.ReminderInfo{
		Email:            user.Email,
		IssuedOn:         checkout.IssuedOn,
		AuthorsAndTitles: make([]string, 0, len(items)),
	}
	for _, item := range items {
		book, err := s.bookRepo.GetByID(db, item.BookID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				continue
			}
			return models.ReminderInfo{}, false, fmt.Errorf("load book %s: %w", item.BookID, err)
		}
		info.AuthorsAndTitles = append(info.AuthorsAndTitles, fmt.Sprintf("%s: %s", book.Author, book.Title))
	}
	return info, true, nil
}
