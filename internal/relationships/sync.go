package relationships

import (
	"context"

	"github.com/Beaulewis1977/synthesis-sub002/internal/domain"
	"github.com/Beaulewis1977/synthesis-sub002/internal/storage"
)

// Sync upserts every derived edge. storage.Gateway.UpsertRelationship is
// unique on (collection, source, target, type), so repeated calls across
// re-ingestions are idempotent.
func Sync(ctx context.Context, gateway storage.Gateway, edges []domain.FileRelationship) error {
	for _, e := range edges {
		if err := gateway.UpsertRelationship(ctx, e); err != nil {
			return err
		}
	}
	return nil
}

// Related is the §4.11 query response shape.
type Related struct {
	Imports    []string
	ImportedBy []string
	Uses       []string
	UsedBy     []string
	Tests      []string
	TestedBy   []string
	Siblings   []string
	Parent     []string
}

// Query wraps storage.Gateway.RelatedFiles into the named Related shape,
// combining forward edges (imports/uses/tests/siblings/parent) with
// reverse edges (imported_by/used_by/tested_by) into the §4.11 response.
func Query(ctx context.Context, gateway storage.Gateway, collectionID, filePath string) (Related, error) {
	forward, reverse, err := gateway.RelatedFiles(ctx, collectionID, filePath)
	if err != nil {
		return Related{}, err
	}
	return Related{
		Imports:    forward[domain.RelImport],
		ImportedBy: reverse[domain.RelImport],
		Uses:       forward[domain.RelUsage],
		UsedBy:     reverse[domain.RelUsage],
		Tests:      forward[domain.RelTest],
		TestedBy:   reverse[domain.RelTest],
		Siblings:   forward[domain.RelSibling],
		Parent:     forward[domain.RelParent],
	}, nil
}
