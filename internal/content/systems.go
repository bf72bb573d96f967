package content

import (
	"context"
	"errors"
	"strings"
	"unicode/utf8"

	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

const (
	minSystemNameLength = 2
	maxSystemNameLength = 100
)

// GetOrCreateSystem returns the game system called name, creating it on first use.
func (r *GormRepository) GetOrCreateSystem(ctx context.Context, name string) (*System, error) {
	trimmed := strings.TrimSpace(name)
	if length := utf8.RuneCountInString(trimmed); length < minSystemNameLength || length > maxSystemNameLength {
		return nil, eris.Wrapf(ErrInvalidSystem, "name %q must be %d-%d characters", trimmed, minSystemNameLength, maxSystemNameLength)
	}

	var system System
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.First(&system, "name = ?", trimmed).Error
		if err == nil {
			return nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return eris.Wrapf(err, "loading system %q", trimmed)
		}

		slug := Slugify(trimmed)
		if strings.Trim(slug, "-") == "" {
			return eris.Wrapf(ErrInvalidSystem, "name %q does not produce a usable slug", trimmed)
		}

		system = System{Name: trimmed, Slug: slug}
		if err := tx.Create(&system).Error; err != nil {
			return eris.Wrapf(err, "creating system %q", trimmed)
		}
		return nil
	})
	if err != nil {
		r.logError(logrus.Fields{"system": trimmed}, err, "resolving system")
		return nil, eris.Wrapf(err, "resolving system %q", trimmed)
	}

	return &system, nil
}

// ListSystems returns every game system ordered by name.
func (r *GormRepository) ListSystems(ctx context.Context) ([]System, error) {
	var systems []System
	if err := r.db.WithContext(ctx).Order("name ASC").Find(&systems).Error; err != nil {
		r.logError(nil, err, "listing systems")
		return nil, eris.Wrap(err, "listing systems")
	}
	return systems, nil
}
