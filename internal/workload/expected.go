package workload

import (
	"fmt"

	"github.com/Azure/cosmosdb-emulator-recipes/internal/database"
)

const (
	ageThreshold  = 35
	sizeThreshold = 50
)

// Queries are the fixed filters every run issues, in order.
func Queries() []database.Filter {
	return []database.Filter{
		database.Prefix("name", NamePrefix),
		database.GreaterThan("age", ageThreshold),
		database.LessOrEqual("size", sizeThreshold),
	}
}

// Expected returns the counts Queries should yield against a clean
// container holding n generated documents.
func Expected(n int) []int {
	older := 0
	for i := 0; i < n; i++ {
		if Age(i) > ageThreshold {
			older++
		}
	}
	return []int{n, older, min(sizeThreshold, n)}
}

// Check compares actual query counts to Expected(n).
func Check(n int, results []QueryResult) error {
	want := Expected(n)
	if len(results) != len(want) {
		return fmt.Errorf("expected %d query results, got %d", len(want), len(results))
	}
	for i, r := range results {
		if r.Count != want[i] {
			return fmt.Errorf("query %q: expected %d items, found %d", r.Filter, want[i], r.Count)
		}
	}
	return nil
}
