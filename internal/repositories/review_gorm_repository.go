package repositories

import (
	"errors"
	"fmt"

	"ulasan/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GORMReviewRepository is a GORM implementation of ReviewRepository.
type GORMReviewRepository struct {
	db *gorm.DB
}

// NewGORMReviewRepository creates a new instance of GORMReviewRepository.
func NewGORMReviewRepository(db *gorm.DB) *GORMReviewRepository {
	return &GORMReviewRepository{
		db: db,
	}
}

// GetAll retrieves all reviews, oldest first.
func (r *GORMReviewRepository) GetAll() ([]models.Review, error) {
	var reviews []models.Review
	if err := r.db.Order("created_at asc").Find(&reviews).Error; err != nil {
		return nil, fmt.Errorf("failed to get all reviews: %w", err)
	}
	return reviews, nil
}

// GetByID retrieves a single review by its ID.
func (r *GORMReviewRepository) GetByID(id string) (*models.Review, error) {
	var review models.Review
	if err := r.db.First(&review, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("review with ID %s not found: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get review by ID %s: %w", id, err)
	}
	return &review, nil
}

// Create inserts a new review.
func (r *GORMReviewRepository) Create(review *models.Review) error {
	if review.ID == "" {
		review.ID = uuid.New().String()
	}
	if err := r.db.Create(review).Error; err != nil {
		return fmt.Errorf("failed to create review: %w", err)
	}
	return nil
}

// Update replaces the editable fields of an existing review.
// A review that does not exist is reported as ErrNotFound.
func (r *GORMReviewRepository) Update(review *models.Review) error {
	res := r.db.Model(review).
		Select("title", "content", "star", "file", "updated_at").
		Updates(review)
	if res.Error != nil {
		return fmt.Errorf("failed to update review: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("review with ID %s not found for update: %w", review.ID, ErrNotFound)
	}
	return nil
}

// Delete deletes a review by its ID.
func (r *GORMReviewRepository) Delete(id string) error {
	res := r.db.Delete(&models.Review{}, "id = ?", id)
	if res.Error != nil {
		return fmt.Errorf("failed to delete review: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("review with ID %s not found for deletion: %w", id, ErrNotFound)
	}
	return nil
}
