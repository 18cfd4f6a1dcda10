// Package contact validates the operator contact address that is embedded
// in outgoing User-Agent headers.
package contact

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"golang.org/x/net/idna"
)

var (
	spaceRun  = regexp.MustCompile(`\s+`)
	username  = regexp.MustCompile(`^[a-zA-Zа-яА-ЯёЁ0-9.!#$%&'*+/=?^_{|}~-]+$`)
	dnsLabel  = regexp.MustCompile(`^[a-z0-9-]+$`)
	allDigits = regexp.MustCompile(`^[0-9]+$`)
)

// ValidEmail reports whether s looks like a usable address. Internal runs of
// whitespace are collapsed and the ends trimmed before checking.
func ValidEmail(s string) bool {
	s = strings.TrimSpace(spaceRun.ReplaceAllString(s, " "))
	if utf8.RuneCountInString(s) > 254 {
		return false
	}
	at := strings.LastIndex(s, "@")
	if at < 0 {
		return false
	}
	return validUsername(s[:at]) && validDomain(s[at+1:])
}

func validUsername(u string) bool {
	if u == "" {
		return false
	}
	if strings.HasPrefix(u, ".") || strings.HasSuffix(u, ".") || strings.Contains(u, "..") {
		return false
	}
	return username.MatchString(u)
}

func validDomain(d string) bool {
	if d == "" || !strings.Contains(d, ".") || utf8.RuneCountInString(d) > 253 {
		return false
	}
	d = strings.TrimSuffix(d, ".")
	ascii, err := idna.ToASCII(d)
	if err != nil {
		return false
	}
	labels := strings.Split(strings.ToLower(ascii), ".")
	tld := labels[len(labels)-1]
	if len(tld) < 2 || allDigits.MatchString(tld) {
		return false
	}
	for _, l := range labels {
		if len(l) < 1 || len(l) > 63 {
			return false
		}
		if !dnsLabel.MatchString(l) {
			return false
		}
		if strings.HasPrefix(l, "-") || strings.HasSuffix(l, "-") {
			return false
		}
	}
	return true
}
