package detect

import (
	"strings"

	regexp "github.com/wasilibs/go-re2"
)

var awsAccessKeyPattern = regexp.MustCompile(`\bAKIA[0-9A-Z]{16}\b`)

func awsAccessKeyDetector() Detector {
	return Detector{
		Name:     "AWS_ACCESS_KEY",
		Patterns: []*regexp.Regexp{awsAccessKeyPattern},
		Mask: func(raw string) string {
			return "AKIA" + strings.Repeat("*", 16)
		},
	}
}

var awsSecretKeyPattern = regexp.MustCompile(`\b[A-Za-z0-9/+=]{40}\b`)

var awsSecretKeyGateKeywords = []string{"secret", "aws_secret", "secret_access_key"}

func awsSecretKeyDetector() Detector {
	return Detector{
		Name:     "AWS_SECRET_KEY",
		Patterns: []*regexp.Regexp{awsSecretKeyPattern},
		Gate:     awsSecretKeyGateKeywords,
		Mask: func(raw string) string {
			return strings.Repeat("*", 36) + lastN(raw, 4)
		},
	}
}
