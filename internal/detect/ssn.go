package detect

import regexp "github.com/wasilibs/go-re2"

var ssnPattern = regexp.MustCompile(`\b\d{3}-\d{2}-\d{4}\b`)

var ssnGateKeywords = []string{"ssn", "social security", "social-security", "ss#", "ss #"}

func ssnDetector() Detector {
	return Detector{
		Name:     "SSN",
		Patterns: []*regexp.Regexp{ssnPattern},
		Gate:     ssnGateKeywords,
		Mask: func(raw string) string {
			return "***-**-" + lastN(digitsOnly(raw), 4)
		},
	}
}
