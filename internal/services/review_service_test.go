package services

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"ulasan/internal/models"
	"ulasan/internal/repositories"
	"ulasan/internal/storage"
	"ulasan/pkg/rabbitmq"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockPublisher struct {
	mock.Mock
}

func (m *mockPublisher) PublishReviewEvent(event rabbitmq.ReviewEvent) error {
	args := m.Called(event)
	return args.Error(0)
}

// failingReviewRepo wraps the in-memory repository and fails selected calls.
type failingReviewRepo struct {
	*repositories.MockReviewRepository
	createErr error
	deleteErr error
}

func (r *failingReviewRepo) Create(review *models.Review) error {
	if r.createErr != nil {
		return r.createErr
	}
	return r.MockReviewRepository.Create(review)
}

func (r *failingReviewRepo) Delete(id string) error {
	if r.deleteErr != nil {
		return r.deleteErr
	}
	return r.MockReviewRepository.Delete(id)
}

var fixedNow = time.Date(2024, 3, 9, 14, 5, 7, 0, time.UTC)

type reviewFixture struct {
	svc   *ReviewService
	repo  *repositories.MockReviewRepository
	files *storage.LocalFileStore
	pub   *mockPublisher
}

func newReviewFixture(t *testing.T) reviewFixture {
	t.Helper()
	repo := repositories.NewMockReviewRepository()
	files := storage.NewLocalFileStoreFs(afero.NewMemMapFs(), "static")
	pub := new(mockPublisher)
	pub.On("PublishReviewEvent", mock.Anything).Return(nil).Maybe()

	svc := NewReviewService(repo, files, pub)
	svc.now = func() time.Time { return fixedNow }
	return reviewFixture{svc: svc, repo: repo, files: files, pub: pub}
}

var (
	alice = &models.User{ID: "u-alice", Username: "alice", Role: models.RoleUser}
	bob   = &models.User{ID: "u-bob", Username: "bob", Role: models.RoleUser}
	admin = &models.User{ID: "u-admin", Username: "root", Role: models.RoleAdmin}
)

func validInput(body string) ReviewInput {
	return ReviewInput{
		Title:   "Great",
		Content: "Loved it",
		Star:    "5",
		File:    &Upload{Filename: "photo.JPG", Content: strings.NewReader(body)},
	}
}

func readFile(t *testing.T, files storage.FileStore, name string) string {
	t.Helper()
	rc, err := files.Open(context.Background(), name)
	require.NoError(t, err)
	defer rc.Close()
	b, err := io.ReadAll(rc)
	require.NoError(t, err)
	return string(b)
}

func TestReviewService_CreateAndList(t *testing.T) {
	f := newReviewFixture(t)
	ctx := context.Background()

	review, err := f.svc.CreateReview(ctx, validInput("image-bytes"), alice)
	require.NoError(t, err)
	assert.NotEmpty(t, review.ID)
	assert.Equal(t, 5, review.Star)
	assert.Equal(t, "alice", review.Username)
	assert.Equal(t, "2024-03-09", review.Time)
	assert.True(t, strings.HasPrefix(review.File, "file-2024-03-09-14-05-07-"), review.File)
	assert.True(t, strings.HasSuffix(review.File, ".jpg"), review.File)
	assert.Equal(t, "image-bytes", readFile(t, f.files, review.File))

	reviews, err := f.svc.ListReviews()
	require.NoError(t, err)
	require.Len(t, reviews, 1)
	assert.Equal(t, review.ID, reviews[0].ID)

	f.pub.AssertCalled(t, "PublishReviewEvent", mock.MatchedBy(func(e rabbitmq.ReviewEvent) bool {
		return e.Type == rabbitmq.ReviewCreated && e.ReviewID == review.ID && e.Actor == "alice"
	}))
}

func TestReviewService_CreateSameSecondGetsDistinctFiles(t *testing.T) {
	f := newReviewFixture(t)
	ctx := context.Background()

	first, err := f.svc.CreateReview(ctx, validInput("one"), alice)
	require.NoError(t, err)
	second, err := f.svc.CreateReview(ctx, validInput("two"), alice)
	require.NoError(t, err)

	assert.NotEqual(t, first.File, second.File)
	assert.Equal(t, "one", readFile(t, f.files, first.File))
	assert.Equal(t, "two", readFile(t, f.files, second.File))
}

func TestReviewService_CreateValidation(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(in *ReviewInput)
		author  *models.User
		wantErr error
	}{
		{"anonymous", func(in *ReviewInput) {}, nil, ErrUnauthenticated},
		{"missing title", func(in *ReviewInput) { in.Title = "" }, alice, ErrMissingField},
		{"missing content", func(in *ReviewInput) { in.Content = "" }, alice, ErrMissingField},
		{"missing star", func(in *ReviewInput) { in.Star = "" }, alice, ErrMissingField},
		{"non numeric star", func(in *ReviewInput) { in.Star = "five" }, alice, ErrInvalidRating},
		{"missing file", func(in *ReviewInput) { in.File = nil }, alice, ErrMissingFile},
		{"rating checked before file", func(in *ReviewInput) { in.Star = "x"; in.File = nil }, alice, ErrInvalidRating},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newReviewFixture(t)
			in := validInput("data")
			tt.mutate(&in)

			_, err := f.svc.CreateReview(context.Background(), in, tt.author)
			assert.ErrorIs(t, err, tt.wantErr)

			reviews, err := f.svc.ListReviews()
			require.NoError(t, err)
			assert.Empty(t, reviews)
			f.pub.AssertNotCalled(t, "PublishReviewEvent", mock.Anything)
		})
	}
}

func TestReviewService_CreateAcceptsAnyInteger(t *testing.T) {
	f := newReviewFixture(t)
	in := validInput("data")
	in.Star = "-3"

	review, err := f.svc.CreateReview(context.Background(), in, alice)
	require.NoError(t, err)
	assert.Equal(t, -3, review.Star)
}

func TestReviewService_CreateTrimsRating(t *testing.T) {
	f := newReviewFixture(t)
	in := validInput("data")
	in.Star = " 5\n"

	review, err := f.svc.CreateReview(context.Background(), in, alice)
	require.NoError(t, err)
	assert.Equal(t, 5, review.Star)

	in.Star = "   "
	_, err = f.svc.CreateReview(context.Background(), in, alice)
	assert.ErrorIs(t, err, ErrInvalidRating)
}

func TestReviewService_CreateRemovesFileWhenInsertFails(t *testing.T) {
	fs := afero.NewMemMapFs()
	files := storage.NewLocalFileStoreFs(fs, "static")
	repo := &failingReviewRepo{
		MockReviewRepository: repositories.NewMockReviewRepository(),
		createErr:            errors.New("disk full"),
	}
	svc := NewReviewService(repo, files, nil)

	_, err := svc.CreateReview(context.Background(), validInput("data"), alice)
	require.Error(t, err)

	entries, err := afero.ReadDir(fs, "static")
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestReviewService_Delete(t *testing.T) {
	ctx := context.Background()

	t.Run("not found", func(t *testing.T) {
		f := newReviewFixture(t)
		err := f.svc.DeleteReview(ctx, "missing", alice)
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("forbidden for another user", func(t *testing.T) {
		f := newReviewFixture(t)
		review, err := f.svc.CreateReview(ctx, validInput("data"), alice)
		require.NoError(t, err)

		err = f.svc.DeleteReview(ctx, review.ID, bob)
		assert.ErrorIs(t, err, ErrForbidden)

		_, err = f.repo.GetByID(review.ID)
		assert.NoError(t, err)
		ok, err := f.files.Exists(review.File)
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("forbidden for anonymous", func(t *testing.T) {
		f := newReviewFixture(t)
		review, err := f.svc.CreateReview(ctx, validInput("data"), alice)
		require.NoError(t, err)

		assert.ErrorIs(t, f.svc.DeleteReview(ctx, review.ID, nil), ErrForbidden)
	})

	t.Run("owner removes document and file", func(t *testing.T) {
		f := newReviewFixture(t)
		review, err := f.svc.CreateReview(ctx, validInput("data"), alice)
		require.NoError(t, err)

		require.NoError(t, f.svc.DeleteReview(ctx, review.ID, alice))

		reviews, err := f.svc.ListReviews()
		require.NoError(t, err)
		assert.Empty(t, reviews)
		ok, err := f.files.Exists(review.File)
		require.NoError(t, err)
		assert.False(t, ok)
		f.pub.AssertCalled(t, "PublishReviewEvent", mock.MatchedBy(func(e rabbitmq.ReviewEvent) bool {
			return e.Type == rabbitmq.ReviewDeleted && e.ReviewID == review.ID
		}))
	})

	t.Run("admin removes any review", func(t *testing.T) {
		f := newReviewFixture(t)
		review, err := f.svc.CreateReview(ctx, validInput("data"), alice)
		require.NoError(t, err)

		require.NoError(t, f.svc.DeleteReview(ctx, review.ID, admin))
	})

	t.Run("missing file is tolerated", func(t *testing.T) {
		f := newReviewFixture(t)
		review, err := f.svc.CreateReview(ctx, validInput("data"), alice)
		require.NoError(t, err)
		require.NoError(t, f.files.Remove(ctx, review.File))

		assert.NoError(t, f.svc.DeleteReview(ctx, review.ID, alice))
	})

	t.Run("unexpected failure", func(t *testing.T) {
		repo := &failingReviewRepo{MockReviewRepository: repositories.NewMockReviewRepository()}
		svc := NewReviewService(repo, storage.NewLocalFileStoreFs(afero.NewMemMapFs(), "static"), nil)
		review, err := svc.CreateReview(ctx, validInput("data"), alice)
		require.NoError(t, err)

		repo.deleteErr = errors.New("connection lost")
		err = svc.DeleteReview(ctx, review.ID, alice)
		assert.ErrorIs(t, err, ErrDeletionFailed)
	})
}

func TestReviewService_Update(t *testing.T) {
	ctx := context.Background()

	t.Run("without new file keeps file", func(t *testing.T) {
		f := newReviewFixture(t)
		review, err := f.svc.CreateReview(ctx, validInput("data"), alice)
		require.NoError(t, err)

		updated, err := f.svc.UpdateReview(ctx, review.ID, ReviewInput{Title: "Okay", Content: "Changed my mind", Star: "3"}, alice)
		require.NoError(t, err)
		assert.Equal(t, review.File, updated.File)

		stored, err := f.repo.GetByID(review.ID)
		require.NoError(t, err)
		assert.Equal(t, "Okay", stored.Title)
		assert.Equal(t, "Changed my mind", stored.Content)
		assert.Equal(t, 3, stored.Star)
		assert.Equal(t, "alice", stored.Username)
	})

	t.Run("with new file leaves old file in storage", func(t *testing.T) {
		f := newReviewFixture(t)
		review, err := f.svc.CreateReview(ctx, validInput("old"), alice)
		require.NoError(t, err)

		in := validInput("new")
		in.File.Filename = "doc.pdf"
		updated, err := f.svc.UpdateReview(ctx, review.ID, in, admin)
		require.NoError(t, err)
		assert.NotEqual(t, review.File, updated.File)
		assert.True(t, strings.HasSuffix(updated.File, ".pdf"))
		assert.Equal(t, "new", readFile(t, f.files, updated.File))
		assert.Equal(t, "old", readFile(t, f.files, review.File))
	})

	t.Run("forbidden leaves review untouched", func(t *testing.T) {
		f := newReviewFixture(t)
		review, err := f.svc.CreateReview(ctx, validInput("data"), alice)
		require.NoError(t, err)

		_, err = f.svc.UpdateReview(ctx, review.ID, ReviewInput{Title: "Bad", Content: "Bad", Star: "1"}, bob)
		assert.ErrorIs(t, err, ErrForbidden)

		stored, err := f.repo.GetByID(review.ID)
		require.NoError(t, err)
		assert.Equal(t, "Great", stored.Title)
	})

	t.Run("not found", func(t *testing.T) {
		f := newReviewFixture(t)
		_, err := f.svc.UpdateReview(ctx, "missing", ReviewInput{Title: "a", Content: "b", Star: "1"}, admin)
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("validation runs first", func(t *testing.T) {
		f := newReviewFixture(t)
		_, err := f.svc.UpdateReview(ctx, "missing", ReviewInput{Title: "a", Content: "b", Star: "x"}, admin)
		assert.ErrorIs(t, err, ErrInvalidRating)
		_, err = f.svc.UpdateReview(ctx, "missing", ReviewInput{Content: "b", Star: "1"}, admin)
		assert.ErrorIs(t, err, ErrMissingField)
	})
}

func TestReviewService_EditPermission(t *testing.T) {
	f := newReviewFixture(t)
	ctx := context.Background()
	review, err := f.svc.CreateReview(ctx, validInput("data"), alice)
	require.NoError(t, err)

	allowed, err := f.svc.CheckEditPermission(review.ID, alice)
	require.NoError(t, err)
	assert.True(t, allowed)

	allowed, err = f.svc.CheckEditPermission(review.ID, bob)
	require.NoError(t, err)
	assert.False(t, allowed)

	allowed, err = f.svc.CheckEditPermission(review.ID, admin)
	require.NoError(t, err)
	assert.True(t, allowed)

	allowed, err = f.svc.CheckEditPermission("missing", admin)
	require.NoError(t, err)
	assert.False(t, allowed)

	_, err = f.svc.GetReviewForEdit(review.ID, bob)
	assert.ErrorIs(t, err, ErrForbidden)
	_, err = f.svc.GetReviewForEdit("missing", alice)
	assert.ErrorIs(t, err, ErrNotFound)
	got, err := f.svc.GetReviewForEdit(review.ID, alice)
	require.NoError(t, err)
	assert.Equal(t, review.ID, got.ID)
}

func TestReviewService_PublishFailureIsNotReturned(t *testing.T) {
	repo := repositories.NewMockReviewRepository()
	pub := new(mockPublisher)
	pub.On("PublishReviewEvent", mock.Anything).Return(errors.New("broker down"))
	svc := NewReviewService(repo, storage.NewLocalFileStoreFs(afero.NewMemMapFs(), "static"), pub)

	_, err := svc.CreateReview(context.Background(), validInput("data"), alice)
	assert.NoError(t, err)
	pub.AssertNumberOfCalls(t, "PublishReviewEvent", 1)
}

func TestOutcome(t *testing.T) {
	assert.Equal(t, "ok", outcome(nil))
	assert.Equal(t, "invalid", outcome(ErrMissingFile))
	assert.Equal(t, "invalid", outcome(ErrInvalidRating))
	assert.Equal(t, "forbidden", outcome(ErrUnauthenticated))
	assert.Equal(t, "not_found", outcome(ErrNotFound))
	assert.Equal(t, "error", outcome(ErrDeletionFailed))
}
