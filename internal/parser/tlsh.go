package parser

import (
	"encoding/json"
	"errors"
)

// ErrNoDigest is returned when tlsh's output contains no digests entry, which
// happens for inputs too small or too uniform for TLSH to fingerprint.
var ErrNoDigest = errors.New("parser: tlsh output has no digest")

type tlshDoc struct {
	Digests []struct {
		TLSH string `json:"tlsh"`
	} `json:"digests"`
}

// ParseTLSH decodes `tlsh -ojson -f` output and returns the digest at
// digests[0].tlsh.
func ParseTLSH(out []byte) (string, error) {
	var doc tlshDoc
	if err := json.Unmarshal(out, &doc); err != nil {
		return "", err
	}
	if len(doc.Digests) == 0 {
		return "", ErrNoDigest
	}
	return doc.Digests[0].TLSH, nil
}
