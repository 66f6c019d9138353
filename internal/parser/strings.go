package parser

import (
	"bufio"
	"bytes"
	"strconv"
	"strings"

	"github.com/jsharp6968/mala/internal/readability"
)

// StringRow is one gated string extracted from a sample's strings output,
// ready for a batched insert_strings / insert_string_instances call.
type StringRow struct {
	Value  string
	Score  int
	Offset int64
}

// ParseStrings parses GNU strings output produced with `-t d` (decimal
// offsets). Each line with fewer than 9 characters after trimming leading
// whitespace, or with no embedded space, is skipped outright. The remainder
// is split once on the first space into (offset, text); text is scored by
// readability and only kept if it passes the default cutoff.
func ParseStrings(out []byte) []StringRow {
	var rows []StringRow

	scanner := bufio.NewScanner(bytes.NewReader(out))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimLeft(scanner.Text(), " ")
		if len(line) < 9 {
			continue
		}

		i := strings.IndexByte(line, ' ')
		if i < 0 {
			continue
		}

		offsetText, text := line[:i], strings.TrimLeft(line[i+1:], " ")
		offset, err := strconv.ParseInt(offsetText, 10, 64)
		if err != nil {
			continue
		}

		score := readability.Score(text)
		if score <= readability.DefaultCutoff {
			continue
		}

		rows = append(rows, StringRow{Value: text, Score: score, Offset: offset})
	}

	return rows
}
