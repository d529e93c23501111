package vaultfile

import (
	"os"

	"github.com/vaultkeep/vaultkeep/internal/frontmatter"
)

// NewUTCTimeFromInfo derives a UTCTime from a FileInfo's modification
// time. The Go standard library has no portable file-creation-time
// accessor, so both fs_created and fs_modified are seeded from ModTime;
// callers that need a true birth time should layer a platform-specific
// stat on top of this.
func NewUTCTimeFromInfo(info os.FileInfo) UTCTime {
	return frontmatter.NewUTCTime(info.ModTime())
}
