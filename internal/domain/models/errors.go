package models

import "errors"

var (
	// ErrInvalidSymbol is returned for empty, too long or duplicate symbols.
	ErrInvalidSymbol = errors.New("invalid symbol")
	// ErrSymbolNotFound is returned when a symbol is not in the store.
	ErrSymbolNotFound = errors.New("symbol not found")
	// ErrDataSourceUnavailable covers transport, auth and upstream failures.
	ErrDataSourceUnavailable = errors.New("data source unavailable")
	// ErrMalformedQuote is a quote that cannot be applied. It is handled
	// like ErrDataSourceUnavailable by callers.
	ErrMalformedQuote = errors.New("malformed quote")
)

// IsSourceFailure reports whether err should keep the previous snapshot value.
func IsSourceFailure(err error) bool {
	return errors.Is(err, ErrDataSourceUnavailable) || errors.Is(err, ErrMalformedQuote)
}
