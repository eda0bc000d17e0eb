package stores

import (
	"log"

	"github.com/Desarso/datarex/models"
)

// SanitizeHistory drops stored messages a provider cannot accept before the
// history is sent out: unknown roles (corrupted or hand-edited records) and
// entries with neither text nor an inline image. The stored thread itself is
// never modified.
func SanitizeHistory(msgs []models.Message) []models.Message {
	if len(msgs) == 0 {
		return msgs
	}

	sanitized := make([]models.Message, 0, len(msgs))
	for i, msg := range msgs {
		if !msg.Role.Valid() {
			log.Printf("[HISTORY_SANITIZER] Dropping message %d with unknown role %q", i, msg.Role)
			continue
		}
		if _, isImage := msg.ImagePath(); msg.Text() == "" && !isImage {
			log.Printf("[HISTORY_SANITIZER] Dropping empty %s message %d", msg.Role, i)
			continue
		}
		sanitized = append(sanitized, msg)
	}

	if len(sanitized) != len(msgs) {
		log.Printf("[HISTORY_SANITIZER] Removed %d of %d messages", len(msgs)-len(sanitized), len(msgs))
	}
	return sanitized
}
