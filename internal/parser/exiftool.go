package parser

import "encoding/json"

// ExifRow is one tag/content pair extracted from exiftool's output.
type ExifRow struct {
	Tag     string
	Content string
}

// ParseExiftool decodes exiftool output produced with `-S -j -P`: a JSON
// array of single-key objects. Keys merge into one flat tag->value map (a
// later duplicate key overwrites an earlier one), then each pair becomes one
// row.
func ParseExiftool(out []byte) ([]ExifRow, error) {
	var objs []map[string]json.RawMessage
	if err := json.Unmarshal(out, &objs); err != nil {
		return nil, err
	}

	merged := make(map[string]string)
	var order []string
	for _, obj := range objs {
		for tag, raw := range obj {
			if _, seen := merged[tag]; !seen {
				order = append(order, tag)
			}
			merged[tag] = rawToString(raw)
		}
	}

	rows := make([]ExifRow, 0, len(order))
	for _, tag := range order {
		rows = append(rows, ExifRow{Tag: tag, Content: merged[tag]})
	}
	return rows, nil
}

// rawToString renders an exiftool JSON scalar as its string form. Values may
// arrive as JSON strings, numbers, or booleans; all are stored as text.
func rawToString(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(raw)
}
