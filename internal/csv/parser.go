package csv

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/jszwec/csvutil"

	"github.com/Azure/cosmosdb-emulator-recipes/internal/database"
	"github.com/Azure/cosmosdb-emulator-recipes/internal/models"
)

type Parser struct {
	filename string
}

func NewParser(filename string) *Parser {
	return &Parser{filename: filename}
}

func (p *Parser) ParseDocuments() ([]database.Document, error) {
	file, err := os.Open(p.filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open CSV file: %w", err)
	}
	defer file.Close()

	return Decode(file)
}

// Decode reads rows into documents. Header names are matched
// case-insensitively; rows without an id get a generated one.
func Decode(r io.Reader) ([]database.Document, error) {
	reader := csv.NewReader(r)
	raw, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV headers: %w", err)
	}
	header := make([]string, len(raw))
	for i, h := range raw {
		raw[i] = strings.TrimSpace(h)
		header[i] = strings.ToLower(raw[i])
	}

	decoder, err := csvutil.NewDecoder(reader, header...)
	if err != nil {
		return nil, fmt.Errorf("failed to create CSV decoder: %w", err)
	}

	var docs []database.Document
	for {
		var row models.ItemRow
		if err := decoder.Decode(&row); errors.Is(err, io.EOF) {
			break
		} else if err != nil {
			return nil, fmt.Errorf("failed to decode CSV row %d: %w", len(docs)+1, err)
		}

		if row.ID == "" {
			row.ID = uuid.NewString()
		}
		doc := database.Document{
			"id":   row.ID,
			"name": row.Name,
			"age":  row.Age,
			"size": row.Size,
		}
		record := decoder.Record()
		for _, i := range decoder.Unused() {
			doc[raw[i]] = parseValue(record[i])
		}
		docs = append(docs, doc)
	}

	return docs, nil
}

func parseValue(s string) any {
	s = strings.TrimSpace(s)
	if n, err := strconv.Atoi(s); err == nil {
		return n
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	return s
}
