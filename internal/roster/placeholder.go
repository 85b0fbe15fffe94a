package roster

import (
	"context"
	"fmt"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"gymaccess/internal/member"
)

// maxPlaceholderAttempts bounds the numeric suffix search.
const maxPlaceholderAttempts = 1000

// asciiLocal strips accents and keeps characters valid in an email local part.
func asciiLocal(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, strings.ToLower(strings.TrimSpace(s)))
	if err != nil {
		folded = strings.ToLower(s)
	}
	var b strings.Builder
	for _, r := range folded {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		}
	}
	return b.String()
}

// PlaceholderEmail builds first.last@placeholder.local, adding a numeric
// suffix until the address is free.
func PlaceholderEmail(ctx context.Context, reg Registry, first, last string) (string, error) {
	local := strings.Trim(asciiLocal(first)+"."+asciiLocal(last), ".")
	if local == "" {
		local = "member"
	}
	for i := 0; i < maxPlaceholderAttempts; i++ {
		candidate := local
		if i > 0 {
			candidate = fmt.Sprintf("%s%d", local, i)
		}
		email := candidate + "@" + member.PlaceholderDomain
		taken, err := reg.EmailTaken(ctx, email, 0)
		if err != nil {
			return "", err
		}
		if !taken {
			return email, nil
		}
	}
	return "", fmt.Errorf("%w: no free placeholder email for %s %s", member.ErrDuplicateKey, first, last)
}
