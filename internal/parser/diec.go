package parser

import "encoding/json"

// DiecEntropyRow is one per-section entropy record from `diec -je`.
type DiecEntropyRow struct {
	Entropy float64
	Name    string
	Offset  int64
	Size    int64
	Status  string
}

// DiecMetaRow is the single whole-file entropy summary row from `diec -je`.
type DiecMetaRow struct {
	Entropy float64
	Status  string
}

// DiecDetectRow is one detected-file-type row from `diec -jd`.
type DiecDetectRow struct {
	Info    string
	Name    string
	String  string
	Type    string
	Version string
}

type diecEntropyDoc struct {
	Records []struct {
		Entropy float64 `json:"entropy"`
		Name    string  `json:"name"`
		Offset  int64   `json:"offset"`
		Size    int64   `json:"size"`
		Status  string  `json:"status"`
	} `json:"records"`
	Total  float64 `json:"total"`
	Status string  `json:"status"`
}

// ParseDiecEntropy decodes `diec -je` output: a records[] array plus a
// top-level total/status pair. Each record becomes one DiecEntropyRow; the
// top-level pair becomes the single DiecMetaRow.
func ParseDiecEntropy(out []byte) ([]DiecEntropyRow, DiecMetaRow, error) {
	var doc diecEntropyDoc
	if err := json.Unmarshal(out, &doc); err != nil {
		return nil, DiecMetaRow{}, err
	}

	rows := make([]DiecEntropyRow, 0, len(doc.Records))
	for _, r := range doc.Records {
		rows = append(rows, DiecEntropyRow{
			Entropy: r.Entropy,
			Name:    r.Name,
			Offset:  r.Offset,
			Size:    r.Size,
			Status:  r.Status,
		})
	}

	meta := DiecMetaRow{Entropy: doc.Total, Status: doc.Status}
	return rows, meta, nil
}

type diecDetectDoc struct {
	Detects []struct {
		String string `json:"string"`
		Values []struct {
			Info    string `json:"info"`
			Name    string `json:"name"`
			String  string `json:"string"`
			Type    string `json:"type"`
			Version string `json:"version"`
		} `json:"values"`
	} `json:"detects"`
}

// ParseDiecDetect decodes `diec -jd` output: detects[0].values[] becomes one
// row per entry (mala_dao.insert_diec_json reads only diec_data['detects'][0],
// never later entries). When detects[0] has no values (detection failed), a
// single placeholder row is emitted with "broken" in info/name/type/version
// and the entry's own string field carried through. An empty detects array
// yields no rows.
func ParseDiecDetect(out []byte) ([]DiecDetectRow, error) {
	var doc diecDetectDoc
	if err := json.Unmarshal(out, &doc); err != nil {
		return nil, err
	}

	if len(doc.Detects) == 0 {
		return nil, nil
	}
	d := doc.Detects[0]

	if len(d.Values) == 0 {
		return []DiecDetectRow{{
			Info:    "broken",
			Name:    "broken",
			String:  d.String,
			Type:    "broken",
			Version: "broken",
		}}, nil
	}

	rows := make([]DiecDetectRow, 0, len(d.Values))
	for _, v := range d.Values {
		rows = append(rows, DiecDetectRow{
			Info:    v.Info,
			Name:    v.Name,
			String:  v.String,
			Type:    v.Type,
			Version: v.Version,
		})
	}
	return rows, nil
}
