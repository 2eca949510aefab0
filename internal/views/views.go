// Package views renders the site's HTML pages for Fiber.
package views

import (
	"embed"
	"io/fs"
	"net/http"

	"ulasan/internal/models"
	"ulasan/internal/services"

	"github.com/gofiber/template/html/v2"
)

//go:embed templates
var templateFS embed.FS

// Layout is the name of the template wrapping every page. Pages are
// inserted where the layout calls embed.
const Layout = "layout"

// Flash is a one-shot message shown on the next rendered page.
type Flash struct {
	Category string // "error" or "success"
	Message  string
}

// Page is the data every template receives.
type Page struct {
	Title    string
	Identity *models.User
	Flashes  []Flash
	Error    string
	Username string
	Articles []models.Review
	Article  *models.Review
}

func canModify(identity *models.User, review models.Review) bool {
	return services.CanModify(identity, &review)
}

// New returns an html engine over the embedded templates, named by file
// name without extension.
func New() *html.Engine {
	pages, err := fs.Sub(templateFS, "templates")
	if err != nil {
		panic(err)
	}
	engine := html.NewFileSystem(http.FS(pages), ".html")
	engine.AddFunc("canModify", canModify)
	return engine
}
