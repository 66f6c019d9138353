// Package readability scores candidate strings extracted from a sample
// against an empirical character-frequency profile, gating which strings
// are worth persisting.
//
// # Scoring
//
// EMERGENT is a fixed 95-character reference sequence ordered by empirical
// rank in common English-plus-code text (most frequent first). The
// reference weight vector is [len(EMERGENT), len(EMERGENT)-1, ..., 1] — the
// most frequent character gets the highest weight.
//
// For input text s:
//  1. len(s) == 0 or len(s) > MaxStringCharLimit → score 0.
//  2. Build a frequency vector f over EMERGENT's alphabet (characters
//     outside EMERGENT contribute nothing).
//  3. similarity = 1 - cosine_distance(f, weights).
//  4. diversity = distinct chars in s / len(s).
//  5. score = floor(similarity*100 + diversity*50).
//
// A degenerate string of a single common character scores low even though
// that character carries the highest weight: "eeeeeeeeeeee" has one
// non-zero frequency entry, so its similarity term is about 17.6, and its
// diversity term adds 50/12 ≈ 4.2, for a score of 21.
package readability

import "math"

// MaxStringCharLimit caps the length of strings scored; anything longer
// scores 0 without computing similarity/diversity.
const MaxStringCharLimit = 2600

// DefaultCutoff is the score a string must exceed to pass gating.
const DefaultCutoff = 40

// EMERGENT is the fixed reference alphabet, most frequent character first.
const EMERGENT = "e t1|oarinsl23dc87064m9u5pESACgfThby\"IvLDRw-_PO.NFx\\MW%VUkGHB:@,q?=];[(<Q'jX>)YKz$/Z*J+`^!&#~}{"

var weights [len(EMERGENT)]float64
var charIndex map[rune]int

func init() {
	n := len(EMERGENT)
	charIndex = make(map[rune]int, n)
	for i, c := range EMERGENT {
		weights[i] = float64(n - i)
		charIndex[c] = i
	}
}

// Score computes the readability score of s. Deterministic: identical input
// always yields identical output.
func Score(s string) int {
	if len(s) == 0 || len(s) > MaxStringCharLimit {
		return 0
	}

	var freq [len(EMERGENT)]float64
	distinct := make(map[rune]struct{}, len(s))
	for _, c := range s {
		distinct[c] = struct{}{}
		if i, ok := charIndex[c]; ok {
			freq[i]++
		}
	}

	similarity := 1 - cosineDistance(freq[:], weights[:])
	diversity := float64(len(distinct)) / float64(len([]rune(s)))

	combined := similarity*100 + diversity*50
	return int(math.Floor(combined))
}

// Passes reports whether s's score exceeds cutoff.
func Passes(s string, cutoff int) bool {
	return Score(s) > cutoff
}

// cosineDistance returns 1 - cosine_similarity(a, b). If either vector has
// zero magnitude, similarity is defined as 0 (maximal distance), matching
// scipy.spatial.distance.cosine's behavior on an all-zero vector.
func cosineDistance(a, b []float64) float64 {
	var dot, magA, magB float64
	for i := range a {
		dot += a[i] * b[i]
		magA += a[i] * a[i]
		magB += b[i] * b[i]
	}
	if magA == 0 || magB == 0 {
		return 1
	}
	similarity := dot / (math.Sqrt(magA) * math.Sqrt(magB))
	return 1 - similarity
}
