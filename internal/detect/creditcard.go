package detect

import regexp "github.com/wasilibs/go-re2"

// creditCardPattern matches 13-19 digits with optional single spaces or
// dashes separating individual digits, anchored on word boundaries.
var creditCardPattern = regexp.MustCompile(`\b\d(?:[ -]?\d){12,18}\b`)

var creditCardGateKeywords = []string{"card", "credit", "visa", "mastercard", "amex", "discover", "payment"}

func creditCardDetector() Detector {
	return Detector{
		Name:     "CREDIT_CARD",
		Patterns: []*regexp.Regexp{creditCardPattern},
		Gate:     creditCardGateKeywords,
		Validator: func(raw string) bool {
			return luhnValid(digitsOnly(raw))
		},
		Mask: func(raw string) string {
			return "****-****-****-" + lastN(digitsOnly(raw), 4)
		},
	}
}
