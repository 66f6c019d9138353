package parser

import (
	"bufio"
	"bytes"
	"errors"
	"strings"
)

// ErrNoHash is returned when ssdeep's output has fewer than two lines.
var ErrNoHash = errors.New("parser: ssdeep output missing hash line")

// ParseSSDeep decodes `ssdeep -sbc` plaintext output. The hash is the first
// comma-delimited field on the second line (the first line is a header).
func ParseSSDeep(out []byte) (string, error) {
	scanner := bufio.NewScanner(bytes.NewReader(out))

	if !scanner.Scan() {
		return "", ErrNoHash
	}
	if !scanner.Scan() {
		return "", ErrNoHash
	}

	line := scanner.Text()
	i := strings.IndexByte(line, ',')
	if i < 0 {
		return line, nil
	}
	return line[:i], nil
}
