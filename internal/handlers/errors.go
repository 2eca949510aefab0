package handlers

import (
	"errors"

	"ulasan/internal/services"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
)

// User facing messages.
const (
	msgMissingField    = "Ada field yang belum diisi"
	msgMissingFile     = "File belum diupload"
	msgInvalidRating   = "Rating tidak valid"
	msgUnauthenticated = "Silakan login terlebih dahulu!"
	msgNotFound        = "Ulasan tidak ditemukan!"
	msgForbiddenDelete = "Anda tidak memiliki izin untuk menghapus ulasan ini! Hanya admin dan pembuat ulasan yang dapat menghapus ulasan ini"
	msgForbiddenEdit   = "Anda tidak memiliki izin untuk mengedit ulasan ini! Hanya admin dan pembuat ulasan yang dapat mengedit ulasan ini"
	msgCreated         = "Upload selesai!"
	msgUpdated         = "Ulasan berhasil diubah"
	msgDeleted         = "Hapus ulasan berhasil!"
	msgBadCredentials  = "Username atau Password salah!"
	msgUsernameTaken   = "Username sudah ada!"
	msgTooManyAttempts = "Terlalu banyak percobaan, coba lagi nanti."
	msgInternal        = "Terjadi kesalahan pada server"
)

// operation selects the wording used for authorization and internal
// failures of one review action.
type operation struct {
	name      string
	forbidden string
	failed    string
}

var (
	opCreate = operation{name: "create", forbidden: msgForbiddenEdit, failed: "Gagal menyimpan ulasan!"}
	opUpdate = operation{name: "update", forbidden: msgForbiddenEdit, failed: "Gagal mengubah ulasan!"}
	opDelete = operation{name: "delete", forbidden: msgForbiddenDelete, failed: "Gagal menghapus ulasan!"}
)

// classify maps a service error to a status code and message.
func classify(err error, op operation) (int, string) {
	switch {
	case errors.Is(err, services.ErrMissingFile):
		return fiber.StatusBadRequest, msgMissingFile
	case errors.Is(err, services.ErrMissingField):
		return fiber.StatusBadRequest, msgMissingField
	case errors.Is(err, services.ErrInvalidRating):
		return fiber.StatusBadRequest, msgInvalidRating
	case errors.Is(err, services.ErrUnauthenticated):
		return fiber.StatusUnauthorized, msgUnauthenticated
	case errors.Is(err, services.ErrForbidden):
		return fiber.StatusForbidden, op.forbidden
	case errors.Is(err, services.ErrNotFound):
		return fiber.StatusNotFound, msgNotFound
	default:
		log.Error().Err(err).Str("operation", op.name).Msg("review operation failed")
		return fiber.StatusInternalServerError, op.failed
	}
}

func isValidation(status int) bool {
	return status == fiber.StatusBadRequest
}

// respondJSON writes err as {"msg": ...} with the matching status.
func respondJSON(c *fiber.Ctx, err error, op operation) error {
	status, msg := classify(err, op)
	return c.Status(status).JSON(fiber.Map{"msg": msg})
}

// ErrorHandler handles errors that escape a route handler.
func ErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	msg := msgInternal

	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
		msg = fe.Message
	} else {
		log.Error().Err(err).Str("path", c.Path()).Str("method", c.Method()).Msg("unhandled error")
	}

	if c.Accepts(fiber.MIMETextHTML, fiber.MIMEApplicationJSON) == fiber.MIMEApplicationJSON {
		return c.Status(code).JSON(fiber.Map{"msg": msg})
	}
	c.Set(fiber.HeaderContentType, fiber.MIMETextPlainCharsetUTF8)
	return c.Status(code).SendString(msg)
}
