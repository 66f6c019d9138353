package parser

import "testing"

func TestParseExiftoolMergesSingleKeyObjects(t *testing.T) {
	out := []byte(`[{"FileType":"PE32"},{"MIMEType":"application/x-msdownload"},{"EntryPoint":"0x1000"}]`)

	rows, err := ParseExiftool(out)
	if err != nil {
		t.Fatalf("ParseExiftool returned error: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("got %d rows, want 3: %+v", len(rows), rows)
	}

	byTag := make(map[string]string, len(rows))
	for _, r := range rows {
		byTag[r.Tag] = r.Content
	}
	if byTag["FileType"] != "PE32" {
		t.Errorf("FileType = %q, want PE32", byTag["FileType"])
	}
	if byTag["MIMEType"] != "application/x-msdownload" {
		t.Errorf("MIMEType = %q", byTag["MIMEType"])
	}
}

func TestParseExiftoolEmptyArray(t *testing.T) {
	rows, err := ParseExiftool([]byte(`[]`))
	if err != nil {
		t.Fatalf("ParseExiftool returned error: %v", err)
	}
	if len(rows) != 0 {
		t.Errorf("got %d rows, want 0", len(rows))
	}
}

func TestParseExiftoolInvalidJSON(t *testing.T) {
	if _, err := ParseExiftool([]byte("not json")); err == nil {
		t.Error("expected error for invalid JSON")
	}
}
