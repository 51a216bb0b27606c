package gallery

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// foldName normalizes a name for collision warnings (lowercase, diacritics
// stripped). Deletion always matches the exact stored name; folding is only
// used to flag likely duplicates like "Jiri" vs "Jiří" at enrollment time.
func foldName(name string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, _ := transform.String(t, name)
	return strings.ToLower(strings.TrimSpace(folded))
}

// nameCollisionLocked reports an already-enrolled name that folds to the
// same form as name but is not byte-identical. Caller holds g.mu.
func (g *Gallery) nameCollisionLocked(name string) (string, bool) {
	folded := foldName(name)
	for _, identity := range g.identities {
		if identity.Name != name && foldName(identity.Name) == folded {
			return identity.Name, true
		}
	}
	return "", false
}
