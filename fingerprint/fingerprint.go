package fingerprint

import (
	"hash/fnv"
	"strings"
)

// Of computes a 64-bit SimHash of the given text.
// Uses FNV-64a hash on word-level tokens with bit vector accumulation.
func Of(text string) uint64 {
	words := strings.Fields(text)
	if len(words) == 0 {
		return 0
	}

	var vector [64]int

	for _, word := range words {
		h := fnv.New64a()
		h.Write([]byte(word))
		hash := h.Sum64()

		for i := 0; i < 64; i++ {
			if hash&(1<<uint(i)) != 0 {
				vector[i]++
			} else {
				vector[i]--
			}
		}
	}

	var fp uint64
	for i := 0; i < 64; i++ {
		if vector[i] > 0 {
			fp |= 1 << uint(i)
		}
	}

	return fp
}

// Article computes the content fingerprint used as an article's secondary
// identity: a SimHash over the lowercased title, author and URL. Two
// listings of the same piece hash identically even when the feed renders
// them with cosmetic case or whitespace differences. Matching is by exact
// equality only; articles with formulaic titles legitimately differ in a
// single token, which puts them within trivial Hamming distance of each
// other, so distance-based matching would merge distinct pieces.
func Article(title, author, url string) uint64 {
	parts := []string{
		strings.ToLower(strings.TrimSpace(title)),
		strings.ToLower(strings.TrimSpace(author)),
		strings.ToLower(strings.TrimSpace(url)),
	}
	return Of(strings.Join(parts, " "))
}
