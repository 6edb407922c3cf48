// package shared holds cross-cutting helpers: logging, configuration,
// the match-cache database, token storage, and id generation.
package shared

import (
	"io"
	"os"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
)

// NewLogger builds the application logger writing to w, with timestamps
// and caller reporting enabled. A nil writer falls back to [os.Stderr].
func NewLogger(w io.Writer) *log.Logger {
	if w == nil {
		w = os.Stderr
	}
	return log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		ReportCaller:    true,
	})
}

// GenerateID returns a fresh v4 UUID string, used for match-cache row ids.
func GenerateID() string {
	return uuid.New().String()
}
