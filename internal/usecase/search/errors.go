package search

import "errors"

// ErrInvalidRequest marks a search request that cannot be mapped to a query.
var ErrInvalidRequest = errors.New("invalid search request")
