package ids

import "github.com/segmentio/ksuid"

// New returns a globally unique, time-sortable identifier.
func New() string {
	return ksuid.New().String()
}
