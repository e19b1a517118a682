package engine

import "github.com/rshade/pricehound/internal/engine/cache"

// keywordLength is the number of letters in a synthesized keyword. The remote
// search rejects empty keywords, so price-only queries use a random one.
const keywordLength = 2

// MakeKeyword returns keywordLength independent uniform lowercase letters.
func MakeKeyword(r cache.Rand) string {
	b := make([]byte, keywordLength)
	for i := range b {
		b[i] = 'a' + byte(r.IntN(26))
	}
	return string(b)
}
