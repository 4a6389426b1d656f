package service

import (
	"errors"

	"github.com/jb-platform/maintenance-service/internal/repository"
	apperrors "github.com/jb-platform/maintenance-service/pkg/util/errorutil"
)

// mapRepoError turns repository sentinels into domain errors for resource.
func mapRepoError(err error, resource string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repository.ErrNotFound):
		return apperrors.NewNotFound(resource, nil)
	case errors.Is(err, repository.ErrVersionConflict):
		return apperrors.NewConflict(resource+" was modified concurrently; reload and retry", nil)
	case errors.Is(err, repository.ErrDuplicate):
		return apperrors.NewConflict(resource+" already exists", nil)
	}
	var de *apperrors.DomainError
	if errors.As(err, &de) {
		return err
	}
	return apperrors.NewInternalError(err)
}
