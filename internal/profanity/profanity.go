// Package profanity screens chat text before it reaches speech synthesis.
package profanity

import (
	goaway "github.com/TwiN/go-away"
)

// Filter reports whether text contains disallowed words.
type Filter interface {
	Matches(text string) bool
}

type detector struct {
	d *goaway.ProfanityDetector
}

// New returns a Filter backed by the go-away default dictionaries,
// with leet-speak and special-character normalization enabled.
func New() Filter {
	return &detector{d: goaway.NewProfanityDetector()}
}

func (f *detector) Matches(text string) bool {
	if text == "" {
		return false
	}
	return f.d.IsProfane(text)
}

// Allow is a Filter that matches nothing. Used when filtering is disabled.
type Allow struct{}

func (Allow) Matches(string) bool { return false }
