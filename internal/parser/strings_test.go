package parser

import "testing"

func TestParseStringsGatesShortAndUngatedLines(t *testing.T) {
	out := []byte(
		"     12 short\n" + // too short after the offset
			"     34 Hello, world! This is readable text\n" +
			"noSpaceAtAllHereNoSpace\n" + // no embedded space after offset split attempt
			"     56 eeeeeeeeeeeeeeeeeeeeeeeeeeee\n", // fails readability gating
	)

	rows := ParseStrings(out)
	if len(rows) != 1 {
		t.Fatalf("got %d rows, want 1: %+v", len(rows), rows)
	}
	if rows[0].Offset != 34 {
		t.Errorf("Offset = %d, want 34", rows[0].Offset)
	}
	if rows[0].Value != "Hello, world! This is readable text" {
		t.Errorf("Value = %q", rows[0].Value)
	}
}

func TestParseStringsEmptyProducesNoRows(t *testing.T) {
	rows := ParseStrings([]byte(""))
	if len(rows) != 0 {
		t.Errorf("got %d rows, want 0", len(rows))
	}
}
