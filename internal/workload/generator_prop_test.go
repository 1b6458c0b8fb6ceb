package workload

import (
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

func TestGeneratorProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("document shape follows its index", prop.ForAll(
		func(i, extra int, seed int64) bool {
			d := NewGenerator(extra, seed).Document(i)
			if _, err := uuid.Parse(d.ID()); err != nil {
				return false
			}
			if d["name"] != fmt.Sprintf("Test Item %d", i+1) || d["size"] != i+1 {
				return false
			}
			age, ok := d["age"].(int)
			if !ok || age < 30 || age > 39 || age != 30+i%10 {
				return false
			}
			if len(d) != 4+extra {
				return false
			}
			for j := 1; j <= extra; j++ {
				v, ok := d[fmt.Sprintf("field%d", j)].(int)
				if !ok || v < 1 || v > 100 {
					return false
				}
			}
			return true
		},
		gen.IntRange(0, 100000),
		gen.IntRange(0, 20),
		gen.Int64(),
	))

	properties.Property("same seed yields same extra fields", prop.ForAll(
		func(i int, seed int64) bool {
			a := NewGenerator(DefaultExtraFields, seed).Document(i)
			b := NewGenerator(DefaultExtraFields, seed).Document(i)
			for j := 1; j <= DefaultExtraFields; j++ {
				k := fmt.Sprintf("field%d", j)
				if a[k] != b[k] {
					return false
				}
			}
			return a.ID() != b.ID()
		},
		gen.IntRange(0, 1000),
		gen.Int64(),
	))

	properties.Property("expected counts", prop.ForAll(
		func(n int) bool {
			want := Expected(n)
			if want[0] != n || want[2] != min(50, n) {
				return false
			}
			older := (n / 10) * 4
			if rem := n % 10; rem > 6 {
				older += rem - 6
			}
			return want[1] == older
		},
		gen.IntRange(0, 20000),
	))

	properties.TestingRun(t)
}
