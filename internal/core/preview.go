package core

// DefaultPreviewRows is how many leading rows a preview returns.
const DefaultPreviewRows = 10

// PreviewRow is one source row as shown in a preview.
type PreviewRow struct {
	Line  int                `json:"line"`
	Cells map[string]*string `json:"cells"`
}

// PreviewResponse is the result of previewing a staged file against a schema.
type PreviewResponse struct {
	Handle            string             `json:"handle"`
	State             SessionState       `json:"state"`
	EntityType        string             `json:"entityType"`
	Stats             TableStats         `json:"stats"`
	Preview           []PreviewRow       `json:"preview"`
	SuggestedMapping  FieldMapping       `json:"suggestedMapping"`
	MappingConfidence map[string]float64 `json:"mappingConfidence"`
	Fields            []FieldDef         `json:"fields"`
}

// buildPreview assembles the preview payload from a parsed table.
func buildPreview(s Session, schema EntitySchema, table *ParsedTable, suggestion Suggestion, rows int) *PreviewResponse {
	if rows <= 0 {
		rows = DefaultPreviewRows
	}
	if rows > len(table.Rows) {
		rows = len(table.Rows)
	}

	preview := make([]PreviewRow, rows)
	for i := 0; i < rows; i++ {
		preview[i] = PreviewRow{Line: table.Rows[i].Line, Cells: table.Rows[i].Cells}
	}

	return &PreviewResponse{
		Handle:            s.Handle,
		State:             s.State,
		EntityType:        schema.EntityType,
		Stats:             table.Stats(),
		Preview:           preview,
		SuggestedMapping:  suggestion.Mapping,
		MappingConfidence: suggestion.Confidence,
		Fields:            schema.Fields,
	}
}
