package repositories

import (
	appErr "skillswap/pkg/errors"
)

func notFound(entity, id string) error {
	return appErr.Newf(appErr.CodeNotFound, "%s with ID %s not found", entity, id)
}

func emailTaken(email string) error {
	return appErr.Newf(appErr.CodeConflict, "user with email %s already exists", email)
}
