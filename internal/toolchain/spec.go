// Package toolchain parses tool specifications, spawns the external analysis
// binaries, and describes the closed set of tools mala knows how to run.
//
// A tool specification is a comma-delimited string: the head is the
// executable, the tail (possibly empty) is the argv after the executable.
// The absolute sample path is appended as the final argv element at
// invocation time, never stored in the Spec itself.
package toolchain

import (
	"fmt"
	"strings"
)

// Kind identifies one of the closed set of tools mala supports. Unlike the
// Python original's string-keyed dispatch, an unrecognized executable name
// is rejected when the Spec is parsed, not at invocation time.
type Kind int

const (
	KindUnknown Kind = iota
	KindExiftool
	KindStrings
	KindDiec
	KindTLSH
	KindSSDeep
)

func (k Kind) String() string {
	switch k {
	case KindExiftool:
		return "exiftool"
	case KindStrings:
		return "strings"
	case KindDiec:
		return "diec"
	case KindTLSH:
		return "tlsh"
	case KindSSDeep:
		return "ssdeep"
	default:
		return "unknown"
	}
}

func kindForExecutable(exe string) Kind {
	switch exe {
	case "exiftool":
		return KindExiftool
	case "strings":
		return KindStrings
	case "diec":
		return KindDiec
	case "tlsh":
		return KindTLSH
	case "ssdeep":
		return KindSSDeep
	default:
		return KindUnknown
	}
}

// Spec is a parsed tool specification: an executable and the argv that
// precedes the sample path.
type Spec struct {
	Raw  string // original specification string, used for display/logging
	Kind Kind
	Exe  string
	Args []string
}

// ParseSpec splits a toolchain entry ("exiftool,-S,-j,-P") into a Spec.
// Rejects specifications naming an executable outside the closed tool set.
func ParseSpec(raw string) (Spec, error) {
	parts := strings.Split(raw, ",")
	exe := parts[0]
	var args []string
	if len(parts) > 1 {
		args = parts[1:]
	}

	kind := kindForExecutable(exe)
	if kind == KindUnknown {
		return Spec{}, fmt.Errorf("toolchain: unrecognized tool executable %q in spec %q", exe, raw)
	}

	return Spec{Raw: raw, Kind: kind, Exe: exe, Args: args}, nil
}

// ParseChain parses every entry of a toolchain, in order, stopping at the
// first invalid specification.
func ParseChain(raws []string) ([]Spec, error) {
	specs := make([]Spec, 0, len(raws))
	for _, raw := range raws {
		spec, err := ParseSpec(raw)
		if err != nil {
			return nil, err
		}
		specs = append(specs, spec)
	}
	return specs, nil
}

// Tables returns the persisted tables associated with a tool Kind, used by
// the verifier to check coverage. "strings" is intentionally excluded from
// verification by the caller (its table is too large to probe per-sample),
// not by omitting it here.
func Tables(k Kind) []string {
	switch k {
	case KindStrings:
		return []string{"t_stringinstance", "t_strings"}
	case KindExiftool:
		return []string{"t_exiftool"}
	case KindTLSH:
		return []string{"t_tlsh"}
	case KindSSDeep:
		return []string{"t_ssdeep"}
	case KindDiec:
		return []string{"t_diec", "t_diec_meta", "t_diec_ent"}
	default:
		return nil
	}
}

// DefaultChain is the toolchain run when a run configuration does not
// override it with a single tool. Mirrors the Python original's
// constants.TOOLCHAIN.
var DefaultChain = []string{
	"exiftool,-S,-j,-P",
	"strings,-t,d,-a,-n,6",
	"strings,-t,d,-a,-n,6,-e,l",
	"diec,-je",
	"diec,-jd",
	"tlsh,-ojson,-f",
	"ssdeep,-sbc",
}
