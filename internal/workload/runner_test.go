package workload

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Azure/cosmosdb-emulator-recipes/internal/database"
)

func testConfig(n int) Config {
	return Config{Database: "SampleDatabase", Container: "SampleContainer", Count: n, ExtraFields: DefaultExtraFields, Seed: 1}
}

func TestRunnerCounts(t *testing.T) {
	store := database.NewMemoryStore()
	var out bytes.Buffer

	res, err := NewRunner(store, testConfig(120), &out).Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, 120, res.Inserted())
	require.Len(t, res.Queries, 3)
	require.NoError(t, Check(120, res.Queries))

	assert.Equal(t, 120, res.Queries[0].Count)
	assert.Equal(t, 48, res.Queries[1].Count)
	assert.Equal(t, 50, res.Queries[2].Count)

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Equal(t, []string{
		"Database 'SampleDatabase' created or already exists",
		"Container 'SampleContainer' created or already exists",
		"Queried items: 120 items found",
		"Queried items: 48 items found",
		"Queried items: 50 items found",
	}, lines)
}

func TestRunnerTwiceDoublesDocuments(t *testing.T) {
	store := database.NewMemoryStore()
	ctx := context.Background()

	_, err := NewRunner(store, testConfig(30), &bytes.Buffer{}).Run(ctx)
	require.NoError(t, err)
	res, err := NewRunner(store, testConfig(30), &bytes.Buffer{}).Run(ctx)
	require.NoError(t, err)

	require.Equal(t, 60, store.Len())
	assert.Equal(t, 60, res.Queries[0].Count)
	// both runs wrote sizes 1..30
	assert.Equal(t, 60, res.Queries[2].Count)
}

func TestRunnerIDsAreUnique(t *testing.T) {
	store := database.NewMemoryStore()
	ctx := context.Background()

	res, err := NewRunner(store, testConfig(200), &bytes.Buffer{}).Run(ctx)
	require.NoError(t, err)
	require.NoError(t, Verify(ctx, store, res.IDs))

	all, err := ContainerIDs(ctx, store)
	require.NoError(t, err)
	require.ElementsMatch(t, res.IDs, all)
}

func TestRunnerInvalidCredential(t *testing.T) {
	store := database.NewMemoryStore(database.WithAcceptedKey("good"), database.WithPresentedKey("bad"))
	var out bytes.Buffer

	res, err := NewRunner(store, testConfig(10), &out).Run(context.Background())
	require.Error(t, err)
	require.True(t, database.IsServiceError(err))
	require.ErrorIs(t, err, database.ErrUnauthorized)
	require.Zero(t, res.Inserted())
	require.Empty(t, out.String())
}

type failingStore struct {
	*database.MemoryStore
	failAt int
	calls  int
}

func (f *failingStore) Insert(ctx context.Context, doc database.Document) error {
	f.calls++
	if f.calls == f.failAt {
		return &database.ServiceError{StatusCode: 503, Code: "ServiceUnavailable", Err: assert.AnError}
	}
	return f.MemoryStore.Insert(ctx, doc)
}

type containerFailingStore struct {
	*database.MemoryStore
}

func (containerFailingStore) EnsureContainer(ctx context.Context) error {
	return &database.ServiceError{StatusCode: 403, Code: "Forbidden", Err: assert.AnError}
}

func TestRunnerContainerFailureAfterDatabase(t *testing.T) {
	var out bytes.Buffer
	store := containerFailingStore{database.NewMemoryStore()}

	_, err := NewRunner(store, testConfig(10), &out).Run(context.Background())
	require.Error(t, err)
	require.True(t, database.IsServiceError(err))
	require.Contains(t, err.Error(), "SampleContainer")
	require.Equal(t, "Database 'SampleDatabase' created or already exists\n", out.String())
}

func TestRunnerInsertFailureAborts(t *testing.T) {
	store := &failingStore{MemoryStore: database.NewMemoryStore(), failAt: 5}

	res, err := NewRunner(store, testConfig(10), &bytes.Buffer{}).Run(context.Background())
	require.Error(t, err)
	require.True(t, database.IsServiceError(err))
	require.Equal(t, 4, res.Inserted())
	require.Nil(t, res.Queries)
	require.Equal(t, 4, store.Len())
	require.Equal(t, 5, store.calls)
}

func TestRunnerProgress(t *testing.T) {
	r := NewRunner(database.NewMemoryStore(), testConfig(5), &bytes.Buffer{})
	var seen []int
	r.OnProgress(func(done, total int) {
		require.Equal(t, 5, total)
		seen = append(seen, done)
	})
	_, err := r.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, []int{1, 2, 3, 4, 5}, seen)
}

func TestVerifyReportsMissingDocuments(t *testing.T) {
	store := database.NewMemoryStore()
	ctx := context.Background()
	res, err := NewRunner(store, testConfig(3), &bytes.Buffer{}).Run(ctx)
	require.NoError(t, err)

	require.NoError(t, store.Delete(ctx, res.IDs[1]))
	err = Verify(ctx, store, append(res.IDs, "not-a-uuid"))
	require.Error(t, err)
	require.Contains(t, err.Error(), "expected 1 document, found 0")
	require.Contains(t, err.Error(), "not a valid uuid")
}

func TestCheckMismatch(t *testing.T) {
	results := []QueryResult{
		{Filter: Queries()[0], Count: 10},
		{Filter: Queries()[1], Count: 4},
		{Filter: Queries()[2], Count: 10},
	}
	require.NoError(t, Check(10, results))

	results[1].Count = 5
	require.ErrorContains(t, Check(10, results), "age > 35")
	require.Error(t, Check(10, results[:2]))
}
