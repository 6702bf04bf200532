package sidebar

import (
	"errors"
	"fmt"
)

// Sentinel errors.
var (
	ErrInvalidTab      = errors.New("invalid tab")
	ErrUnknownHistory  = errors.New("unknown history entry")
	ErrUnknownItem     = errors.New("unknown item")
	ErrNoSnapshot      = errors.New("history entry has no pipeline snapshot")
	ErrNoPullRequest   = errors.New("history entry has no pull request link")
	ErrDuplicateTabIDs = errors.New("duplicate tab id")
)

// InvalidTabError is returned when a tab id is not one of the configured tabs.
type InvalidTabError struct {
	TabID string
}

func (e *InvalidTabError) Error() string {
	return fmt.Sprintf("invalid tab %q", e.TabID)
}

// Unwrap lets errors.Is match ErrInvalidTab.
func (e *InvalidTabError) Unwrap() error {
	return ErrInvalidTab
}
