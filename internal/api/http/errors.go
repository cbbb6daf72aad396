package http

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/catalog-gate/internal/catalog"
	"github.com/spec-kit/catalog-gate/internal/identity"
	"github.com/spec-kit/catalog-gate/internal/service"
	"github.com/spec-kit/catalog-gate/internal/session"
	apperrors "github.com/spec-kit/catalog-gate/pkg/util/errorutil"
)

// translateError maps service and transport errors onto the DomainError
// taxonomy. Unknown errors become INTERNAL_ERROR.
func translateError(err error) *apperrors.DomainError {
	var (
		domainErr   *apperrors.DomainError
		fiberErr    *fiber.Error
		persistErr  *session.PersistenceError
		exchangeErr *identity.ExchangeError
	)

	switch {
	case errors.As(err, &domainErr):
		return domainErr
	case errors.As(err, &fiberErr):
		return apperrors.NewDomainError(statusCode(fiberErr.Code), fiberErr.Message, fiberErr.Code, nil)
	case errors.As(err, &persistErr):
		return apperrors.ToDomainError(apperrors.NewStoreUnavailable("", err))
	case errors.Is(err, identity.ErrCancelled):
		de := apperrors.NewDomainError("IDENTITY_CANCELLED", "sign-in was cancelled", http.StatusUnauthorized, nil)
		de.Err = err
		return de
	case errors.Is(err, identity.ErrInvalidEmail):
		return apperrors.ToDomainError(apperrors.NewValidationError("email is missing or malformed", map[string]any{"field": "email"}))
	case errors.Is(err, identity.ErrInvalidCredentials):
		return apperrors.ToDomainError(apperrors.NewUnauthorized("invalid credentials"))
	case errors.As(err, &exchangeErr):
		return apperrors.ToDomainError(apperrors.NewUpstreamError("IDENTITY_EXCHANGE_FAILED", "identity provider exchange failed", err))
	case errors.Is(err, service.ErrProviderDisabled):
		return apperrors.ToDomainError(apperrors.NewNotFound("identity provider", nil))
	case errors.Is(err, catalog.ErrNotFound):
		return apperrors.ToDomainError(apperrors.NewNotFound("product", nil))
	case errors.Is(err, catalog.ErrInvalidArgument):
		return apperrors.ToDomainError(apperrors.NewValidationError("invalid paging or product id", nil))
	}
	return apperrors.ToDomainError(err)
}

func statusCode(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "BAD_REQUEST"
	case http.StatusNotFound:
		return "NOT_FOUND"
	case http.StatusMethodNotAllowed:
		return "METHOD_NOT_ALLOWED"
	case http.StatusRequestTimeout:
		return "REQUEST_TIMEOUT"
	case http.StatusRequestEntityTooLarge:
		return "PAYLOAD_TOO_LARGE"
	}
	if status >= 500 {
		return "INTERNAL_ERROR"
	}
	return "REQUEST_FAILED"
}
