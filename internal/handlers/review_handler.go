package handlers

import (
	"errors"
	"mime/multipart"
	"path/filepath"
	"strings"

	"ulasan/internal/middleware"
	"ulasan/internal/services"
	"ulasan/internal/storage"
	"ulasan/internal/views"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
)

// ReviewHandler handles HTTP requests for reviews and their files.
type ReviewHandler struct {
	service *services.ReviewService
	files   storage.FileStore
	pages   *Pages
}

// NewReviewHandler creates a new ReviewHandler.
func NewReviewHandler(service *services.ReviewService, files storage.FileStore, pages *Pages) *ReviewHandler {
	return &ReviewHandler{
		service: service,
		files:   files,
		pages:   pages,
	}
}

// RegisterRoutes registers the review routes with the Fiber app.
func (h *ReviewHandler) RegisterRoutes(router fiber.Router) {
	router.Get("/ulasan", func(c *fiber.Ctx) error {
		return c.Redirect("/ulas", fiber.StatusFound)
	})
	router.Get("/ulas", middleware.RequireSession("/login"), h.ShowReviews)

	router.Get("/rate", h.HandleListReviews)
	router.Post("/rate", h.HandleCreateReview)
	router.Post("/delete/:id", h.HandleDeleteReview)
	router.Get("/edit/:id", h.ShowEditForm)
	router.Post("/edit/:id", h.HandleEditReview)
	router.Get("/edit_permission/:id", h.HandleEditPermission)

	router.Get("/static/:filename", h.ServeFile)
}

// ShowReviews renders every review.
func (h *ReviewHandler) ShowReviews(c *fiber.Ctx) error {
	reviews, err := h.service.ListReviews()
	if err != nil {
		return err
	}
	return h.pages.Render(c, "ulasan", views.Page{Title: "Ulasan", Articles: reviews})
}

// HandleListReviews returns every review as {"articles": [...]}.
func (h *ReviewHandler) HandleListReviews(c *fiber.Ctx) error {
	reviews, err := h.service.ListReviews()
	if err != nil {
		log.Error().Err(err).Msg("error listing reviews")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"msg": msgInternal})
	}
	return c.JSON(fiber.Map{"articles": reviews})
}

// formUpload returns the file posted under field, or nil when none was sent.
// The returned closer must always be called.
func formUpload(c *fiber.Ctx, field string) (*services.Upload, func(), error) {
	noop := func() {}

	fh, err := c.FormFile(field)
	if err != nil || fh == nil || fh.Filename == "" {
		return nil, noop, nil
	}
	f, err := fh.Open()
	if err != nil {
		return nil, noop, err
	}
	return &services.Upload{Filename: fh.Filename, Content: f}, closer(f), nil
}

func closer(f multipart.File) func() {
	return func() {
		if err := f.Close(); err != nil {
			log.Warn().Err(err).Msg("error closing upload")
		}
	}
}

// HandleCreateReview stores a review posted from the reviews page.
func (h *ReviewHandler) HandleCreateReview(c *fiber.Ctx) error {
	input := services.ReviewInput{
		Title:   c.FormValue("title_give"),
		Content: c.FormValue("content_give"),
		Star:    c.FormValue("star_give"),
	}
	upload, closeUpload, err := formUpload(c, "file_give")
	if err != nil {
		return respondJSON(c, err, opCreate)
	}
	defer closeUpload()
	input.File = upload

	review, err := h.service.CreateReview(c.UserContext(), input, middleware.Identity(c))
	if err != nil {
		return respondJSON(c, err, opCreate)
	}
	log.Info().Str("review_id", review.ID).Str("username", review.Username).Msg("review created")
	return c.JSON(fiber.Map{"msg": msgCreated})
}

// HandleDeleteReview deletes a review and its file.
func (h *ReviewHandler) HandleDeleteReview(c *fiber.Ctx) error {
	if err := h.service.DeleteReview(c.UserContext(), c.Params("id"), middleware.Identity(c)); err != nil {
		return respondJSON(c, err, opDelete)
	}
	return c.JSON(fiber.Map{"msg": msgDeleted})
}

// ShowEditForm renders the edit form for a review the caller may modify.
func (h *ReviewHandler) ShowEditForm(c *fiber.Ctx) error {
	review, err := h.service.GetReviewForEdit(c.Params("id"), middleware.Identity(c))
	if err != nil {
		status, msg := classify(err, opUpdate)
		if status == fiber.StatusInternalServerError {
			return err
		}
		return h.pages.Redirect(c, "/ulasan", "error", msg)
	}
	return h.pages.Render(c, "edit", views.Page{Title: "Edit Ulasan", Article: review})
}

// HandleEditReview applies the edit form. The id in the path wins over the
// hidden form field.
func (h *ReviewHandler) HandleEditReview(c *fiber.Ctx) error {
	id := c.Params("id")
	if formID := c.FormValue("id"); formID != "" && formID != id {
		log.Warn().Str("path_id", id).Str("form_id", formID).Msg("edit form id does not match path")
	}

	input := services.ReviewInput{
		Title:   c.FormValue("title"),
		Content: c.FormValue("content"),
		Star:    c.FormValue("star"),
	}
	upload, closeUpload, err := formUpload(c, "file")
	if err != nil {
		return err
	}
	defer closeUpload()
	input.File = upload

	if _, err := h.service.UpdateReview(c.UserContext(), id, input, middleware.Identity(c)); err != nil {
		status, msg := classify(err, opUpdate)
		switch {
		case isValidation(status):
			return h.pages.Redirect(c, "/edit/"+id, "error", msg)
		case status == fiber.StatusInternalServerError:
			return err
		default:
			return h.pages.Redirect(c, "/ulasan", "error", msg)
		}
	}
	return h.pages.Redirect(c, "/ulasan", "success", msgUpdated)
}

// HandleEditPermission reports whether the caller may edit a review.
func (h *ReviewHandler) HandleEditPermission(c *fiber.Ctx) error {
	allowed, err := h.service.CheckEditPermission(c.Params("id"), middleware.Identity(c))
	if err != nil {
		log.Error().Err(err).Str("review_id", c.Params("id")).Msg("error checking edit permission")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"allowed": false})
	}
	return c.JSON(fiber.Map{"allowed": allowed})
}

// inlineTypes are the upload extensions a browser may display in place.
// Everything else is sent as a download.
var inlineTypes = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".gif":  true,
	".webp": true,
}

// ServeFile streams an uploaded review file.
func (h *ReviewHandler) ServeFile(c *fiber.Ctx) error {
	name := c.Params("filename")
	if !storage.ValidName(name) {
		return fiber.ErrNotFound
	}
	rc, err := h.files.Open(c.UserContext(), name)
	if err != nil {
		if errors.Is(err, storage.ErrFileNotFound) || errors.Is(err, storage.ErrInvalidName) {
			return fiber.ErrNotFound
		}
		return err
	}

	c.Set(fiber.HeaderXContentTypeOptions, "nosniff")
	if ext := strings.ToLower(filepath.Ext(name)); inlineTypes[ext] {
		c.Type(ext)
	} else {
		c.Attachment(name)
		c.Set(fiber.HeaderContentType, fiber.MIMEOctetStream)
	}
	return c.SendStream(rc)
}
