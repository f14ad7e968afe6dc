// Package detect implements the detector library (C1): a set of pure,
// deterministic functions from a text buffer to an ordered sequence of
// finding records. Detectors never touch the network or the store.
package detect

import (
	"strings"

	regexp "github.com/wasilibs/go-re2"
)

// windowRadius is the number of bytes examined on either side of a match
// offset for the context gate and the stored context snippet.
const windowRadius = 100

// maxContextLen bounds the stored context snippet.
const maxContextLen = 500

// Match is a single pattern hit with its raw text, masked form, and context
// snippet. Scan reports hits as Finding values and does not use this type.
type Match struct {
	Detector    string
	ByteOffset  int
	Raw         string
	MaskedMatch string
	Context     string
}

// Validator inspects a raw match and reports whether it should be kept.
// A detector with no validator always keeps its matches.
type Validator func(raw string) bool

// Masker redacts a raw match into its stored representation.
type Masker func(raw string) string

// Detector is one entry in the static catalogue: a compiled pattern, an
// optional context gate, an optional validator, and a masker. Detectors are
// never looked up by name in a map — the catalogue is a plain slice applied
// in declaration order, per the fixed-shape design the spec calls for.
type Detector struct {
	Name string
	// Patterns holds one or more compiled patterns applied in declaration
	// order. Every detector but US_PHONE has exactly one; phone numbers are
	// matched against several distinct shapes whose results are
	// concatenated pattern-by-pattern rather than interleaved by offset,
	// per the spec's emission rule.
	Patterns  []*regexp.Regexp
	Gate      []string // lowercase keywords; empty means "always admit"
	Validator Validator
	Mask      Masker
}

// admits reports whether the ±windowRadius window around offset o in text
// contains any of the detector's gate keywords. Detectors with no gate
// keywords always admit.
func (d Detector) admits(text string, o, end int) bool {
	if len(d.Gate) == 0 {
		return true
	}
	window := strings.ToLower(sliceWindow(text, o, end))
	for _, kw := range d.Gate {
		if strings.Contains(window, kw) {
			return true
		}
	}
	return false
}

func sliceWindow(text string, start, _ int) string {
	lo := start - windowRadius
	if lo < 0 {
		lo = 0
	}
	hi := start + windowRadius
	if hi > len(text) {
		hi = len(text)
	}
	return text[lo:hi]
}

// snippet builds the stored context snippet for a match: the ±windowRadius
// window, newlines collapsed to spaces, trimmed, and capped to maxContextLen.
func snippet(text string, start, end int) string {
	w := sliceWindow(text, start, end)
	w = strings.ReplaceAll(w, "\r\n", " ")
	w = strings.ReplaceAll(w, "\n", " ")
	w = strings.ReplaceAll(w, "\r", " ")
	w = strings.TrimSpace(w)
	if len(w) > maxContextLen {
		w = w[:maxContextLen]
	}
	return w
}

// Catalogue returns the six-detector catalogue in the declaration order the
// spec requires: SSN, CREDIT_CARD, AWS_ACCESS_KEY, AWS_SECRET_KEY, EMAIL,
// US_PHONE. Built fresh per call since *regexp.Regexp from go-re2 is safe
// for concurrent use but cheap to construct once at package init in
// practice; callers typically hold on to the result for the process
// lifetime via NewScanner.
func Catalogue() []Detector {
	return []Detector{
		ssnDetector(),
		creditCardDetector(),
		awsAccessKeyDetector(),
		awsSecretKeyDetector(),
		emailDetector(),
		usPhoneDetector(),
	}
}

// Scanner runs the full catalogue against buffers. It holds the compiled
// catalogue so repeated Scan calls avoid recompiling patterns.
type Scanner struct {
	catalogue []Detector
}

// NewScanner constructs a Scanner with the standard six-detector catalogue.
func NewScanner() *Scanner {
	return &Scanner{catalogue: Catalogue()}
}

// Finding mirrors job.Finding's detector-relevant fields without importing
// the job package, keeping this package free of store/identity concerns.
type Finding struct {
	Detector    string
	MaskedMatch string
	Context     string
	ByteOffset  int
}

// Scan applies every detector in the catalogue to text and returns the
// ordered, possibly empty, sequence of findings. Scan is pure: calling it
// twice on the same text yields identical results.
func (s *Scanner) Scan(text string) []Finding {
	if text == "" {
		return nil
	}

	var out []Finding
	for _, d := range s.catalogue {
		for _, pattern := range d.Patterns {
			for _, loc := range pattern.FindAllStringIndex(text, -1) {
				start, end := loc[0], loc[1]
				raw := text[start:end]

				if d.Validator != nil && !d.Validator(raw) {
					continue
				}
				if !d.admits(text, start, end) {
					continue
				}

				out = append(out, Finding{
					Detector:    d.Name,
					MaskedMatch: d.Mask(raw),
					Context:     snippet(text, start, end),
					ByteOffset:  start,
				})
			}
		}
	}
	return out
}
