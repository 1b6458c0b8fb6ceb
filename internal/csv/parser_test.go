package csv

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestDecode(t *testing.T) {
	in := "ID,Name,Age,Size,field1,Color\n" +
		"a1,Test Item 1,30,1,42,red\n" +
		",Test Item 2,,2,3.5,\n"

	docs, err := Decode(strings.NewReader(in))
	require.NoError(t, err)
	require.Len(t, docs, 2)

	require.Equal(t, "a1", docs[0].ID())
	require.Equal(t, "Test Item 1", docs[0]["name"])
	require.Equal(t, 30, docs[0]["age"])
	require.Equal(t, 1, docs[0]["size"])
	require.Equal(t, 42, docs[0]["field1"])
	require.Equal(t, "red", docs[0]["Color"])

	_, err = uuid.Parse(docs[1].ID())
	require.NoError(t, err)
	require.Equal(t, 0, docs[1]["age"])
	require.Equal(t, 3.5, docs[1]["field1"])
	require.Equal(t, "", docs[1]["Color"])
}

func TestDecodeErrors(t *testing.T) {
	_, err := Decode(strings.NewReader(""))
	require.Error(t, err)

	_, err = Decode(strings.NewReader("id,age\nx,notanumber\n"))
	require.Error(t, err)
}

func TestParserFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "items.csv")
	require.NoError(t, os.WriteFile(path, []byte("id,name\nx,Test Item 1\n"), 0o600))

	docs, err := NewParser(path).ParseDocuments()
	require.NoError(t, err)
	require.Len(t, docs, 1)

	_, err = NewParser(filepath.Join(t.TempDir(), "missing.csv")).ParseDocuments()
	require.Error(t, err)
}
