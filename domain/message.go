// Package domain contains core concepts of the room server.
// No runtime, network, or UI logic should be added here.
package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Message represents one chat utterance. Everything except Risk is immutable
// after creation; Risk transitions from pending to a terminal state exactly
// once, on the owning room's loop.
type Message struct {
	ID       string
	AuthorID string
	Author   string
	Text     string
	At       time.Time
	Risk     RiskAssessment
}

// NewMessageID builds a message id from the submission time plus a random
// suffix, so ids sort roughly by time and never collide in practice.
func NewMessageID(at time.Time) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:9]
	return fmt.Sprintf("msg_%d_%s", at.UnixMilli(), suffix)
}
