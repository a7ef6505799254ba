package daemon

import (
	"regexp"
	"strings"
)

// PhotoSlot identifies which of the three measurement photo references
// a file fills.
type PhotoSlot string

const (
	PhotoSlotFront PhotoSlot = "front"
	PhotoSlotSide  PhotoSlot = "side"
	PhotoSlotBack  PhotoSlot = "back"
)

// Photo files dropped into the watch directory are named
// {date}_{slot}.{ext}, e.g. 2026-01-06_front.jpg.
var photoFilePattern = regexp.MustCompile(`^(\d{4}-\d{2}-\d{2})_(front|side|back)\.(jpe?g|png|heic)$`)

// ParsePhotoFilename extracts the day key and photo slot from a drop
// file name. Returns ok=false for files that don't follow the naming
// convention; those are ignored, not errors.
func ParsePhotoFilename(name string) (dateKey string, slot PhotoSlot, ok bool) {
	matches := photoFilePattern.FindStringSubmatch(strings.ToLower(name))
	if matches == nil {
		return "", "", false
	}
	return matches[1], PhotoSlot(matches[2]), true
}
