package detect

import regexp "github.com/wasilibs/go-re2"

// usPhonePatterns covers the five accepted shapes, in the declared order
// the spec requires for emission: dashed, parenthesized, dotted, bare
// 10-digit, and leading-1 dashed. Patterns are allowed to overlap (notably
// the bare 10-digit shape against CREDIT_CARD); downstream deduplication on
// (detector, byte_offset) is what keeps the store correct.
var usPhonePatterns = []*regexp.Regexp{
	regexp.MustCompile(`\b\d{3}-\d{3}-\d{4}\b`),
	regexp.MustCompile(`\(\d{3}\) \d{3}-\d{4}`),
	regexp.MustCompile(`\b\d{3}\.\d{3}\.\d{4}\b`),
	regexp.MustCompile(`\b\d{10}\b`),
	regexp.MustCompile(`\b1-\d{3}-\d{3}-\d{4}\b`),
}

var usPhoneGateKeywords = []string{"phone", "tel", "telephone", "mobile", "cell"}

func usPhoneDetector() Detector {
	return Detector{
		Name:     "US_PHONE",
		Patterns: usPhonePatterns,
		Gate:     usPhoneGateKeywords,
		Mask: func(raw string) string {
			return "***-***-" + lastN(digitsOnly(raw), 4)
		},
	}
}
