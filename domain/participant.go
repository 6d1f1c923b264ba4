package domain

import (
	"fmt"
	"math/rand/v2"
	"strings"
)

// Participant is one connected client within a room. The session id is
// scoped to the connection, not globally persistent.
type Participant struct {
	SessionID string
	Username  string
	Online    bool
}

// DisplayName returns the requested name when non-empty, otherwise a
// generated placeholder of the form User<0-999>.
func DisplayName(requested string) string {
	if name := strings.TrimSpace(requested); name != "" {
		return name
	}
	return fmt.Sprintf("User%d", rand.IntN(1000))
}
