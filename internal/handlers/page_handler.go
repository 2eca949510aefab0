package handlers

import (
	"ulasan/internal/views"

	"github.com/gofiber/fiber/v2"
)

// PageHandler serves the static informational pages.
type PageHandler struct {
	pages *Pages
}

// NewPageHandler creates a new PageHandler.
func NewPageHandler(pages *Pages) *PageHandler {
	return &PageHandler{pages: pages}
}

// RegisterRoutes registers the informational pages.
func (h *PageHandler) RegisterRoutes(router fiber.Router) {
	router.Get("/", h.page("home", "Home"))
	router.Get("/aboutus", h.page("aboutus", "About Us"))
	router.Get("/products", h.page("products", "Products"))
	router.Get("/faq", h.page("faq", "FAQ"))
	router.Get("/contact", h.page("contact", "Contact"))
}

func (h *PageHandler) page(name, title string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		return h.pages.Render(c, name, views.Page{Title: title})
	}
}
