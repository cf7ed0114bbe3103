package service

import (
	"errors"

	"gorm.io/gorm"
)

var (
	// ErrNotFound covers missing rows and rows owned by another user; the
	// two are indistinguishable to callers by design.
	ErrNotFound = errors.New("not found")

	// ErrArchivedTemplate rejects lifecycle changes on a terminal template.
	ErrArchivedTemplate = errors.New("template is archived")

	// ErrNotRecurringInstance rejects series-scoped operations on tasks
	// that do not belong to a recurring series.
	ErrNotRecurringInstance = errors.New("task is not part of a recurring series")
)

// notFoundOr translates gorm's record-not-found into the service taxonomy.
func notFoundOr(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}
