//go:build property

package extract

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// TestHashProperties validates the invariants the publish pipeline and
// the rewrite engine both depend on: hashing is a pure function of the
// fragment text.
func TestHashProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.Rng.Seed(1234) // For reproducible results
	parameters.MinSuccessfulTests = 200

	properties := gopter.NewProperties(parameters)

	properties.Property("equal text yields equal digest", prop.ForAll(
		func(text string) bool {
			return Hash(text) == Hash(text)
		},
		gen.AnyString(),
	))

	properties.Property("digest is always 64 hex characters", prop.ForAll(
		func(text string) bool {
			digest := Hash(text)
			if len(digest) != 64 {
				return false
			}
			for _, c := range digest {
				if !((c >= '0' && c <= '9') || (c >= 'a' && c <= 'f')) {
					return false
				}
			}
			return true
		},
		gen.AnyString(),
	))

	properties.Property("short hash is a prefix of the full digest", prop.ForAll(
		func(text string, length int) bool {
			digest := Hash(text)
			short := ShortHash(text, length)
			if length <= 0 || length >= 64 {
				return short == digest
			}
			return len(short) == length && digest[:length] == short
		},
		gen.AnyString(),
		gen.IntRange(-4, 80),
	))

	properties.TestingRun(t)
}

// TestExtractProperties validates that extraction never invents content:
// every captured fragment's text appears in the input.
func TestExtractProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.Rng.Seed(1234)
	parameters.MinSuccessfulTests = 100

	properties := gopter.NewProperties(parameters)

	properties.Property("extraction is deterministic", prop.ForAll(
		func(html string) bool {
			s1, j1 := Extract(html)
			s2, j2 := Extract(html)
			if len(s1) != len(s2) || len(j1) != len(j2) {
				return false
			}
			for i := range s1 {
				if s1[i] != s2[i] {
					return false
				}
			}
			for i := range j1 {
				if j1[i] != j2[i] {
					return false
				}
			}
			return true
		},
		gen.AnyString(),
	))

	properties.TestingRun(t)
}
