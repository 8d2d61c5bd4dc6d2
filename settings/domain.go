package settings

import (
	"net/mail"
	"strings"

	"golang.org/x/net/idna"
)

// DomainPolicy restricts which email domains may receive codes or register.
type DomainPolicy struct {
	EnableAllowlist bool     `json:"enable_whitelist"`
	Allowed         []string `json:"whitelisted_domains"`
	EnableDenylist  bool     `json:"enable_blacklist"`
	Denied          []string `json:"blacklisted_domains"`
}

// Allows reports whether addr is a bare, well-formed address whose domain
// passes the allow and deny lists. Domains compare in their ASCII (punycode)
// form, case-insensitively.
func (p DomainPolicy) Allows(addr string) bool {
	domain, ok := EmailDomain(addr)
	if !ok {
		return false
	}
	if p.EnableAllowlist && !containsDomain(p.Allowed, domain) {
		return false
	}
	if p.EnableDenylist && containsDomain(p.Denied, domain) {
		return false
	}
	return true
}

// EmailDomain validates addr and returns its normalized domain.
func EmailDomain(addr string) (string, bool) {
	parsed, err := mail.ParseAddress(addr)
	if err != nil || parsed.Name != "" || parsed.Address != addr {
		return "", false
	}
	at := strings.LastIndexByte(parsed.Address, '@')
	if at <= 0 || at == len(parsed.Address)-1 {
		return "", false
	}
	domain, ok := normalizeDomain(parsed.Address[at+1:])
	if !ok || !strings.Contains(domain, ".") {
		return "", false
	}
	return domain, true
}

func normalizeDomain(d string) (string, bool) {
	ascii, err := idna.Lookup.ToASCII(strings.TrimSuffix(d, "."))
	if err != nil || ascii == "" {
		return "", false
	}
	return strings.ToLower(ascii), true
}

func containsDomain(list []string, domain string) bool {
	for _, entry := range list {
		if n, ok := normalizeDomain(entry); ok && n == domain {
			return true
		}
	}
	return false
}
