// Package sanitize cleans user-submitted report descriptions before
// they are stored or displayed: whitespace normalization, PII removal,
// high-risk term flagging and length capping.
package sanitize

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// MaxDescriptionLength caps descriptions after sanitization, counted
// in runes so multibyte text is not cut mid-character.
const MaxDescriptionLength = 200

const replacement = "[removed]"

var (
	whitespaceRe = regexp.MustCompile(`\s+`)
	emailRe      = regexp.MustCompile(`[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}`)
	phoneRe      = regexp.MustCompile(`\+?\d[\d\s\-().]{6,}\d`)
	urlRe        = regexp.MustCompile(`(?i)\b(?:https?://|www\.)\S+`)
	handleRe     = regexp.MustCompile(`@[a-zA-Z0-9_]{2,}`)
)

// Flagged but never rejected: a report that mentions violence is
// exactly the kind moderators need to see.
var highRiskTerms = []string{"kill", "bomb", "stab", "shoot", "gun"}

type Result struct {
	IsValid   bool     `json:"is_valid"`
	Sanitized string   `json:"sanitized"`
	Errors    []string `json:"errors,omitempty"`
	Warnings  []string `json:"warnings,omitempty"`
}

// Description runs the full pipeline. The only hard rejection is an
// input that normalizes to empty; everything after that point alters
// content and records a warning, but the result stays valid.
func Description(input string) Result {
	text := collapse(input)
	if text == "" {
		return Result{
			IsValid: false,
			Errors:  []string{"Description cannot be empty"},
		}
	}

	var warnings []string

	strip := func(re *regexp.Regexp, warning string) {
		if re.MatchString(text) {
			text = re.ReplaceAllString(text, replacement)
			warnings = append(warnings, warning)
		}
	}

	// Order matters: emails before handles, so the user part of an
	// address is not half-eaten by the @handle pattern first.
	strip(emailRe, "Email address removed for privacy")
	strip(phoneRe, "Phone number removed for privacy")
	strip(urlRe, "Link removed")
	strip(handleRe, "Social media handle removed for privacy")

	lower := strings.ToLower(text)
	for _, term := range highRiskTerms {
		if strings.Contains(lower, term) {
			warnings = append(warnings, "Description contains terms that may be reviewed by moderators")
			break
		}
	}

	if utf8.RuneCountInString(text) > MaxDescriptionLength {
		text = string([]rune(text)[:MaxDescriptionLength])
		warnings = append(warnings, "Description was shortened to 200 characters")
	}

	return Result{
		IsValid:   true,
		Sanitized: text,
		Warnings:  warnings,
	}
}

type CharCount struct {
	Current   int `json:"current"`
	Max       int `json:"max"`
	Remaining int `json:"remaining"`
}

// DescriptionCharCount reports the post-normalization length for live
// character counters. Same trim/collapse rule as Description, no side
// effects.
func DescriptionCharCount(input string) CharCount {
	n := utf8.RuneCountInString(collapse(input))
	return CharCount{
		Current:   n,
		Max:       MaxDescriptionLength,
		Remaining: MaxDescriptionLength - n,
	}
}

func collapse(s string) string {
	return strings.TrimSpace(whitespaceRe.ReplaceAllString(s, " "))
}
