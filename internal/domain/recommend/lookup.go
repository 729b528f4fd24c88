package recommend

import (
	"context"
	"fmt"

	"github.com/okian/stylematch/internal/domain/model"
)

// Catalog is the read-only offering source.
type Catalog interface {
	FindOfferingsByStyleName(ctx context.Context, styleName string) ([]model.ServiceOffering, error)
	FindAllOfferings(ctx context.Context) ([]model.ServiceOffering, error)
}

// Lookup is the result of the two-stage catalog query.
type Lookup struct {
	Offerings    []model.ServiceOffering
	UsedFallback bool
}

// LookupOfferings returns offerings for styleName, or the whole catalog when
// no offering has that exact style.
func LookupOfferings(ctx context.Context, catalog Catalog, styleName string) (Lookup, error) {
	exact, err := catalog.FindOfferingsByStyleName(ctx, styleName)
	if err != nil {
		return Lookup{}, fmt.Errorf("%w: by style %q: %w", ErrCatalog, styleName, err)
	}
	if len(exact) > 0 {
		return Lookup{Offerings: exact}, nil
	}

	all, err := catalog.FindAllOfferings(ctx)
	if err != nil {
		return Lookup{}, fmt.Errorf("%w: all offerings: %w", ErrCatalog, err)
	}
	return Lookup{Offerings: all, UsedFallback: true}, nil
}
