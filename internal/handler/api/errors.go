package api

import (
	"errors"
	"net/http"

	"StockHolo/internal/domain/models"
	xhttp "StockHolo/pkg/http"
)

// toAppError maps domain errors onto HTTP errors.
func toAppError(err error) *xhttp.AppError {
	var appErr *xhttp.AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	switch {
	case errors.Is(err, models.ErrInvalidSymbol):
		return xhttp.NewAppError("ERR_INVALID_SYMBOL", "symbol", err.Error(), http.StatusBadRequest).WithError(err)
	case errors.Is(err, models.ErrSymbolNotFound):
		return xhttp.NotFoundError(err.Error()).WithError(err)
	case models.IsSourceFailure(err):
		return xhttp.ServiceUnavailableError("market data source unavailable").WithError(err)
	default:
		return xhttp.InternalError("internal error").WithError(err)
	}
}
