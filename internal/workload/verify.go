package workload

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"
	log "github.com/sirupsen/logrus"

	"github.com/Azure/cosmosdb-emulator-recipes/internal/database"
)

// Verify queries every id and checks that it is a valid UUID matching
// exactly one document. All failures are collected before returning.
func Verify(ctx context.Context, store database.Store, ids []string) error {
	var result *multierror.Error
	seen := make(map[string]struct{}, len(ids))
	for i, id := range ids {
		if _, err := uuid.Parse(id); err != nil {
			result = multierror.Append(result, fmt.Errorf("id %q is not a valid uuid: %w", id, err))
		}
		if _, dup := seen[id]; dup {
			result = multierror.Append(result, fmt.Errorf("id %s generated twice", id))
		}
		seen[id] = struct{}{}

		docs, err := store.Query(ctx, database.Equal("id", id))
		if err != nil {
			// A service failure will hit every remaining id as well.
			return multierror.Append(result, fmt.Errorf("failed to query id %s: %w", id, err))
		}
		if len(docs) != 1 {
			result = multierror.Append(result, fmt.Errorf("id %s: expected 1 document, found %d", id, len(docs)))
		}
		if (i+1)%progressEvery == 0 {
			log.Infof("Verified %d/%d documents...", i+1, len(ids))
		}
	}
	return result.ErrorOrNil()
}

// ContainerIDs lists the id of every document in the container.
func ContainerIDs(ctx context.Context, store database.Store) ([]string, error) {
	var ids []string
	err := store.Scan(ctx, func(d database.Document) error {
		ids = append(ids, d.ID())
		return nil
	})
	return ids, err
}
