package services

import "ulasan/internal/models"

// CanModify reports whether identity may edit or delete review: admins may
// touch any review, everybody else only their own. A nil identity is anonymous.
func CanModify(identity *models.User, review *models.Review) bool {
	if identity == nil || review == nil {
		return false
	}
	if identity.IsAdmin() {
		return true
	}
	return review.Username != "" && identity.Username == review.Username
}
