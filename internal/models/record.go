package models

// ItemRow is one CSV row of an import. Columns without a matching field
// become extra document fields.
type ItemRow struct {
	ID   string `csv:"id"`
	Name string `csv:"name"`
	Age  int    `csv:"age,omitempty"`
	Size int    `csv:"size,omitempty"`
}

// Note is the document served by the notes API.
type Note struct {
	ID      string `json:"id"`
	Content string `json:"content"`
}
