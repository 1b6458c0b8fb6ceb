package workload

import (
	"fmt"
	"math/rand"

	"github.com/google/uuid"

	"github.com/Azure/cosmosdb-emulator-recipes/internal/database"
)

const (
	NamePrefix         = "Test Item"
	DefaultCount       = 10000
	DefaultExtraFields = 10
	baseAge            = 30
	ageSpread          = 10
	maxFieldValue      = 100
)

// Generator produces the synthetic documents of a run.
type Generator struct {
	ExtraFields int
	rnd         *rand.Rand
	newID       func() string
}

func NewGenerator(extraFields int, seed int64) *Generator {
	return &Generator{
		ExtraFields: extraFields,
		rnd:         rand.New(rand.NewSource(seed)),
		newID:       uuid.NewString,
	}
}

// Age is the age of the i-th document (zero based).
func Age(i int) int {
	return baseAge + i%ageSpread
}

// Document builds the i-th document (zero based).
func (g *Generator) Document(i int) database.Document {
	doc := database.Document{
		"id":   g.newID(),
		"name": fmt.Sprintf("%s %d", NamePrefix, i+1),
		"age":  Age(i),
		"size": i + 1,
	}
	for j := 0; j < g.ExtraFields; j++ {
		doc[fmt.Sprintf("field%d", j+1)] = g.rnd.Intn(maxFieldValue) + 1
	}
	return doc
}
