package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"ulasan/internal/models"
	"ulasan/internal/observability"
	"ulasan/internal/repositories"
	"ulasan/internal/storage"
	"ulasan/pkg/rabbitmq"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"
)

// EventPublisher sends review events to interested consumers.
type EventPublisher interface {
	PublishReviewEvent(event rabbitmq.ReviewEvent) error
}

// Upload is a file attached to a review form.
type Upload struct {
	Filename string
	Content  io.Reader
}

// ReviewInput carries the raw form values of a review submission.
type ReviewInput struct {
	Title   string `validate:"required"`
	Content string `validate:"required"`
	Star    string `validate:"required"`
	File    *Upload
}

// ReviewService handles business logic related to reviews.
type ReviewService struct {
	repo      repositories.ReviewRepository
	files     storage.FileStore
	publisher EventPublisher // optional
	validate  *validator.Validate
	now       func() time.Time
}

// NewReviewService creates a new ReviewService. publisher may be nil.
func NewReviewService(repo repositories.ReviewRepository, files storage.FileStore, publisher EventPublisher) *ReviewService {
	return &ReviewService{
		repo:      repo,
		files:     files,
		publisher: publisher,
		validate:  validator.New(),
		now:       time.Now,
	}
}

// ListReviews retrieves all reviews.
func (s *ReviewService) ListReviews() ([]models.Review, error) {
	return s.repo.GetAll()
}

// parseInput checks the required fields and the rating. The file is only
// checked when requireFile is set.
func (s *ReviewService) parseInput(input ReviewInput, requireFile bool) (int, error) {
	if err := s.validate.Struct(input); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return 0, fmt.Errorf("%w: %s", ErrMissingField, verrs[0].Field())
		}
		return 0, fmt.Errorf("failed to validate review: %w", err)
	}

	star, err := strconv.Atoi(strings.TrimSpace(input.Star))
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidRating, input.Star)
	}

	if requireFile && (input.File == nil || input.File.Content == nil) {
		return 0, ErrMissingFile
	}
	return star, nil
}

func (s *ReviewService) storeUpload(ctx context.Context, upload *Upload, now time.Time) (string, error) {
	name := storage.GenerateFilename(now, upload.Filename)
	if err := s.files.Save(ctx, name, upload.Content); err != nil {
		return "", fmt.Errorf("failed to store upload: %w", err)
	}
	return name, nil
}

// CreateReview validates input, stores the attached file and inserts a review
// owned by author.
func (s *ReviewService) CreateReview(ctx context.Context, input ReviewInput, author *models.User) (*models.Review, error) {
	review, err := s.createReview(ctx, input, author)
	observability.ObserveReview("create", outcome(err))
	return review, err
}

func (s *ReviewService) createReview(ctx context.Context, input ReviewInput, author *models.User) (*models.Review, error) {
	if author == nil {
		return nil, ErrUnauthenticated
	}
	star, err := s.parseInput(input, true)
	if err != nil {
		return nil, err
	}

	now := s.now()
	filename, err := s.storeUpload(ctx, input.File, now)
	if err != nil {
		return nil, err
	}

	review := &models.Review{
		Title:    input.Title,
		Content:  input.Content,
		Star:     star,
		File:     filename,
		Time:     now.Format(models.DateLayout),
		Username: author.Username,
	}
	if err := s.repo.Create(review); err != nil {
		if rmErr := s.files.Remove(ctx, filename); rmErr != nil {
			log.Warn().Err(rmErr).Str("file", filename).Msg("could not remove upload of failed review")
		}
		return nil, fmt.Errorf("failed to create review: %w", err)
	}

	s.publish(rabbitmq.ReviewCreated, review, author)
	return review, nil
}

// findReview loads id and applies the owner-or-admin rule for actor.
func (s *ReviewService) findReview(id string, actor *models.User) (*models.Review, error) {
	review, err := s.repo.GetByID(id)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, fmt.Errorf("%w: review %s", ErrNotFound, id)
		}
		return nil, fmt.Errorf("failed to load review %s: %w", id, err)
	}
	if !CanModify(actor, review) {
		return nil, fmt.Errorf("%w: review %s", ErrForbidden, id)
	}
	return review, nil
}

// GetReviewForEdit returns the review behind the edit form.
func (s *ReviewService) GetReviewForEdit(id string, actor *models.User) (*models.Review, error) {
	return s.findReview(id, actor)
}

// UpdateReview replaces title, content and star of review id. The file is
// replaced only when input carries one; the previous file stays in storage.
func (s *ReviewService) UpdateReview(ctx context.Context, id string, input ReviewInput, actor *models.User) (*models.Review, error) {
	review, err := s.updateReview(ctx, id, input, actor)
	observability.ObserveReview("update", outcome(err))
	return review, err
}

func (s *ReviewService) updateReview(ctx context.Context, id string, input ReviewInput, actor *models.User) (*models.Review, error) {
	star, err := s.parseInput(input, false)
	if err != nil {
		return nil, err
	}

	review, err := s.findReview(id, actor)
	if err != nil {
		return nil, err
	}

	review.Title = input.Title
	review.Content = input.Content
	review.Star = star
	if input.File != nil && input.File.Content != nil {
		filename, err := s.storeUpload(ctx, input.File, s.now())
		if err != nil {
			return nil, err
		}
		review.File = filename
	}

	if err := s.repo.Update(review); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, fmt.Errorf("%w: review %s", ErrNotFound, id)
		}
		return nil, fmt.Errorf("failed to update review: %w", err)
	}

	s.publish(rabbitmq.ReviewUpdated, review, actor)
	return review, nil
}

// DeleteReview removes review id and then its file. Failures other than
// ErrNotFound and ErrForbidden are reported as ErrDeletionFailed.
func (s *ReviewService) DeleteReview(ctx context.Context, id string, actor *models.User) error {
	err := s.deleteReview(ctx, id, actor)
	observability.ObserveReview("delete", outcome(err))
	return err
}

func (s *ReviewService) deleteReview(ctx context.Context, id string, actor *models.User) error {
	review, err := s.findReview(id, actor)
	if err != nil {
		if errors.Is(err, ErrNotFound) || errors.Is(err, ErrForbidden) {
			return err
		}
		return fmt.Errorf("%w: %v", ErrDeletionFailed, err)
	}

	if err := s.repo.Delete(review.ID); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return fmt.Errorf("%w: review %s", ErrNotFound, id)
		}
		return fmt.Errorf("%w: %v", ErrDeletionFailed, err)
	}

	if review.File != "" {
		if err := s.files.Remove(ctx, review.File); err != nil {
			return fmt.Errorf("%w: %v", ErrDeletionFailed, err)
		}
		log.Info().Str("file", review.File).Msg("review file removed")
	}
	log.Info().Str("review_id", id).Msg("review deleted")

	s.publish(rabbitmq.ReviewDeleted, review, actor)
	return nil
}

// CheckEditPermission reports whether actor may edit review id. A missing
// review is reported as not allowed rather than as an error.
func (s *ReviewService) CheckEditPermission(id string, actor *models.User) (bool, error) {
	_, err := s.findReview(id, actor)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrForbidden):
		return false, nil
	default:
		return false, err
	}
}

func (s *ReviewService) publish(eventType string, review *models.Review, actor *models.User) {
	if s.publisher == nil {
		return
	}
	event := rabbitmq.ReviewEvent{
		Type:     eventType,
		ReviewID: review.ID,
		Owner:    review.Username,
		Star:     review.Star,
		File:     review.File,
		At:       s.now(),
	}
	if actor != nil {
		event.Actor = actor.Username
	}
	if err := s.publisher.PublishReviewEvent(event); err != nil {
		log.Warn().Err(err).Str("type", eventType).Str("review_id", review.ID).Msg("failed to publish review event")
	}
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrMissingField), errors.Is(err, ErrInvalidRating):
		return "invalid"
	case errors.Is(err, ErrUnauthenticated), errors.Is(err, ErrForbidden):
		return "forbidden"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	default:
		return "error"
	}
}
