// Package catalog defines the external catalog-lookup boundary: the coarse
// first stage of the two-stage search. A lookup resolves free text, location,
// stay window, and guest count into a candidate set whose order encodes
// relevance; all remaining facets are refined locally by the rank package.
package catalog

import (
	"context"
	"errors"

	"github.com/hyperjump/sumika/internal/models"
)

// ErrCatalogLookup marks a failed lookup against the catalog. Callers can
// match it with errors.Is; the wrapped cause carries the transport detail.
var ErrCatalogLookup = errors.New("catalog lookup failed")

// Catalog resolves a coarse lookup request into a candidate set.
type Catalog interface {
	Search(ctx context.Context, req models.LookupRequest) (*models.LookupResult, error)
}
