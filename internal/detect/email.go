package detect

import regexp "github.com/wasilibs/go-re2"

var emailPattern = regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`)

func emailDetector() Detector {
	return Detector{
		Name:     "EMAIL",
		Patterns: []*regexp.Regexp{emailPattern},
		Mask: func(raw string) string {
			at := indexByte(raw, '@')
			if at < 0 {
				return raw
			}
			local, domain := raw[:at], raw[at+1:]
			prefix := local
			if len(prefix) > 2 {
				prefix = prefix[:2]
			}
			return prefix + "***@" + domain
		},
	}
}

func indexByte(s string, b byte) int {
	for i := 0; i < len(s); i++ {
		if s[i] == b {
			return i
		}
	}
	return -1
}
