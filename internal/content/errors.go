package content

import (
	"errors"
	"fmt"

	"github.com/rotisserie/eris"
)

var (
	// ErrNotFound indicates the referenced content item does not exist.
	ErrNotFound = eris.New("content not found")
	// ErrSlugTaken indicates another live item already owns the slug.
	ErrSlugTaken = eris.New("slug already in use")
	// ErrInvalidSlug indicates a title that yields an empty slug.
	ErrInvalidSlug = eris.New("title does not produce a usable slug")
	// ErrInvalidContentType indicates a content type outside the supported set.
	ErrInvalidContentType = eris.New("invalid content type")
	// ErrTitleRequired indicates an empty title.
	ErrTitleRequired = eris.New("title is required")
	// ErrTagRequired indicates an empty tag label.
	ErrTagRequired = eris.New("tag label is required")
	// ErrInvalidImage indicates missing image paths or an out-of-range focal point.
	ErrInvalidImage = eris.New("invalid image")
	// ErrInvalidSystem indicates a system name outside the accepted length.
	ErrInvalidSystem = eris.New("invalid system name")
	// ErrCampaignOnly indicates campaign details supplied for a non-campaign item.
	ErrCampaignOnly = eris.New("campaign details require a campaign item")
)

// IndexError reports a search index write that failed inside a content transaction.
// The enclosing write is always rolled back when one is returned.
type IndexError struct {
	ContentID uint
	Op        string
	Err       error
}

func (e *IndexError) Error() string {
	return fmt.Sprintf("search index %s for content %d: %v", e.Op, e.ContentID, e.Err)
}

func (e *IndexError) Unwrap() error {
	return e.Err
}

// IsIndexError reports whether err carries an *IndexError.
func IsIndexError(err error) bool {
	var target *IndexError
	return errors.As(err, &target)
}
