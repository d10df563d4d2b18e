package repositories

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"datalib/internal/models"
)

// Every method takes the *gorm.DB to run against so that callers can pass a
// transaction. A nil db falls back to the repository's own handle.

type UserRepository interface {
	Create(db *gorm.DB, user *models.User) error
	List(db *gorm.DB) ([]models.User, error)
	GetByID(db *gorm.DB, id uuid.UUID) (*models.User, error)
	GetByEmail(db *gorm.DB, email string) (*models.User, error)
	GetByFullName(db *gorm.DB, fullName string) (*models.User, error)
	Update(db *gorm.DB, user *models.User) error
	Delete(db *gorm.DB, id uuid.UUID) error
}

type BookRepository interface {
	Create(db *gorm.DB, book *models.Book) error
	List(db *gorm.DB) ([]models.Book, error)
	GetByID(db *gorm.DB, id uuid.UUID) (*models.Book, error)
	GetByTitle(db *gorm.DB, title string) (*models.Book, error)
	Update(db *gorm.DB, book *models.Book) error
	Delete(db *gorm.DB, id uuid.UUID) error
}

type CheckoutRepository interface {
	Create(db *gorm.DB, checkout *models.Checkout) error
	GetByID(db *gorm.DB, id uuid.UUID) (*models.Checkout, error)
	ListByUser(db *gorm.DB, userID uuid.UUID) ([]models.Checkout, error)
}

type CheckoutItemRepository interface {
	ListByBook(db *gorm.DB, bookID uuid.UUID) ([]models.CheckoutItem, error)
	ListByCheckout(db *gorm.DB, checkoutID uuid.UUID) ([]models.CheckoutItem, error)
	ListCheckedOutDueBefore(db *gorm.DB, date time.Time) ([]models.CheckoutItem, error)
	MarkReturned(db *gorm.DB, itemID uuid.UUID, returnedAt time.Time) (bool, error)
}

// concrete implementations

type userRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) Create(db *gorm.DB, user *models.User) error {
	if db == nil {
		db = r.db
	}
	return db.Create(user).Error
}

func (r *userRepository) List(db *gorm.DB) ([]models.User, error) {
	if db == nil {
		db = r.db
	}
	var users []models.User
	if err := db.Order("full_name").Find(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}

func (r *userRepository) GetByID(db *gorm.DB, id uuid.UUID) (*models.User, error) {
	if db == nil {
		db = r.db
	}
	var user models.User
	if err := db.First(&user, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) GetByEmail(db *gorm.DB, email string) (*models.User, error) {
	if db == nil {
		db = r.db
	}
	var user models.User
	if err := db.First(&user, "email = ?", email).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) GetByFullName(db *gorm.DB, fullName string) (*models.User, error) {
	if db == nil {
		db = r.db
	}
	var user models.User
	if err := db.First(&user, "full_name = ?", fullName).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) Update(db *gorm.DB, user *models.User) error {
	if db == nil {
		db = r.db
	}
	return db.Model(user).
		Select("full_name", "email").
		Updates(user).
		Error
}

func (r *userRepository) Delete(db *gorm.DB, id uuid.UUID) error {
	if db == nil {
		db = r.db
	}
	return db.Delete(&models.User{}, "id = ?", id).Error
}

type bookRepository struct {
	db *gorm.DB
}

func NewBookRepository(db *gorm.DB) BookRepository {
	return &bookRepository{db: db}
}

func (r *bookRepository) Create(db *gorm.DB, book *models.Book) error {
	if db == nil {
		db = r.db
	}
	return db.Create(book).Error
}

func (r *bookRepository) List(db *gorm.DB) ([]models.Book, error) {
	if db == nil {
		db = r.db
	}
	var books []models.Book
	if err := db.Order("title").Find(&books).Error; err != nil {
		return nil, err
	}
	return books, nil
}

func (r *bookRepository) GetByID(db *gorm.DB, id uuid.UUID) (*models.Book, error) {
	if db == nil {
		db = r.db
	}
	var book models.Book
	if err := db.First(&book, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &book, nil
}

func (r *bookRepository) GetByTitle(db *gorm.DB, title string) (*models.Book, error) {
	if db == nil {
		db = r.db
	}
	var book models.Book
	if err := db.First(&book, "title = ?", title).Error; err != nil {
		return nil, err
	}
	return &book, nil
}

func (r *bookRepository) Update(db *gorm.DB, book *models.Book) error {
	if db == nil {
		db = r.db
	}
	return db.Model(book).
		Select("author", "title").
		Updates(book).
		Error
}

func (r *bookRepository) Delete(db *gorm.DB, id uuid.UUID) error {
	if db == nil {
		db = r.db
	}
	return db.Delete(&models.Book{}, "id = ?", id).Error
}

type checkoutRepository struct {
	db *gorm.DB
}

func NewCheckoutRepository(db *gorm.DB) CheckoutRepository {
	return &checkoutRepository{db: db}
}

// Create inserts the checkout and all of its items. Books referenced by the
// items are expected to exist and are never written.
func (r *checkoutRepository) Create(db *gorm.DB, checkout *models.Checkout) error {
	if db == nil {
		db = r.db
	}
	if err := db.Omit(clause.Associations).Create(checkout).Error; err != nil {
		return err
	}
	if len(checkout.Items) == 0 {
		return nil
	}
	return db.Omit(clause.Associations).Create(&checkout.Items).Error
}

func (r *checkoutRepository) GetByID(db *gorm.DB, id uuid.UUID) (*models.Checkout, error) {
	if db == nil {
		db = r.db
	}
	var checkout models.Checkout
	err := withItems(db).First(&checkout, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &checkout, nil
}

func (r *checkoutRepository) ListByUser(db *gorm.DB, userID uuid.UUID) ([]models.Checkout, error) {
	if db == nil {
		db = r.db
	}
	var checkouts []models.Checkout
	if err := withItems(db).
		Where("issued_to_user_id = ?", userID).
		Order("issued_on").
		Find(&checkouts).Error; err != nil {
		return nil, err
	}
	return checkouts, nil
}

// withItems eagerly loads the items of a checkout, in creation order, together
// with their books.
func withItems(db *gorm.DB) *gorm.DB {
	return db.
		Preload("Items", func(db *gorm.DB) *gorm.DB {
			return db.Order("position")
		}).
		Preload("Items.Book")
}

type checkoutItemRepository struct {
	db *gorm.DB
}

func NewCheckoutItemRepository(db *gorm.DB) CheckoutItemRepository {
	return &checkoutItemRepository{db: db}
}

func (r *checkoutItemRepository) ListByBook(db *gorm.DB, bookID uuid.UUID) ([]models.CheckoutItem, error) {
	if db == nil {
		db = r.db
	}
	var items []models.CheckoutItem
	if err := db.Where("book_id = ?", bookID).Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (r *checkoutItemRepository) ListByCheckout(db *gorm.DB, checkoutID uuid.UUID) ([]models.CheckoutItem, error) {
	if db == nil {
		db = r.db
	}
	var items []models.CheckoutItem
	if err := db.Where("checkout_id = ?", checkoutID).
		Order("position").
		Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// ListCheckedOutDueBefore returns outstanding items whose due date is strictly
// before date, ordered by checkout then position.
func (r *checkoutItemRepository) ListCheckedOutDueBefore(db *gorm.DB, date time.Time) ([]models.CheckoutItem, error) {
	if db == nil {
		db = r.db
	}
	var items []models.CheckoutItem
	if err := db.
		Where("status = ? AND returned_at IS NULL AND due_date < ?", models.CheckoutStatusCheckedOut, date).
		Order("checkout_id, position").
		Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// MarkReturned flips a checked out item to returned. It reports false when the
// item was already returned, which leaves the row untouched.
func (r *checkoutItemRepository) MarkReturned(db *gorm.DB, itemID uuid.UUID, returnedAt time.Time) (bool, error) {
	if db == nil {
		db = r.db
	}
	res := db.Model(&models.CheckoutItem{}).
		Where("id = ? AND returned_at IS NULL", itemID).
		Updates(map[string]interface{}{
			"status":      models.CheckoutStatusReturned,
			"returned_at": returnedAt,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}
