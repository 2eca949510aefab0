package repositories

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"ulasan/internal/models"

	"github.com/google/uuid"
)

// MockReviewRepository is an in-memory implementation of ReviewRepository.
type MockReviewRepository struct {
	reviews map[string]models.Review
	mu      sync.RWMutex
}

// NewMockReviewRepository creates a new instance of MockReviewRepository.
func NewMockReviewRepository() *MockReviewRepository {
	return &MockReviewRepository{
		reviews: make(map[string]models.Review),
	}
}

// GetAll returns all reviews, oldest first.
func (r *MockReviewRepository) GetAll() ([]models.Review, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	reviewList := make([]models.Review, 0, len(r.reviews))
	for _, rv := range r.reviews {
		reviewList = append(reviewList, rv)
	}
	sort.SliceStable(reviewList, func(i, j int) bool {
		return reviewList[i].CreatedAt.Before(reviewList[j].CreatedAt)
	})
	return reviewList, nil
}

// GetByID returns a review by its ID.
func (r *MockReviewRepository) GetByID(id string) (*models.Review, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	review, ok := r.reviews[id]
	if !ok {
		return nil, fmt.Errorf("review with ID %s not found: %w", id, ErrNotFound)
	}
	return &review, nil
}

// Create adds a new review.
func (r *MockReviewRepository) Create(review *models.Review) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if review.ID == "" {
		review.ID = uuid.New().String()
	}
	review.CreatedAt = time.Now()
	review.UpdatedAt = review.CreatedAt
	r.reviews[review.ID] = *review
	return nil
}

// Update replaces the editable fields of an existing review.
func (r *MockReviewRepository) Update(review *models.Review) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.reviews[review.ID]
	if !ok {
		return fmt.Errorf("review with ID %s not found for update: %w", review.ID, ErrNotFound)
	}
	existing.Title = review.Title
	existing.Content = review.Content
	existing.Star = review.Star
	existing.File = review.File
	existing.UpdatedAt = time.Now()
	r.reviews[review.ID] = existing
	return nil
}

// Delete removes a review by its ID.
func (r *MockReviewRepository) Delete(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.reviews[id]; !ok {
		return fmt.Errorf("review with ID %s not found for deletion: %w", id, ErrNotFound)
	}
	delete(r.reviews, id)
	return nil
}
