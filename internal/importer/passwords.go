package importer

import "math/rand"

// genRandPassword picks length characters uniformly from chars. Not
// cryptographically strong; accounts get throwaway passwords users are
// expected to reset.
func genRandPassword(r *rand.Rand, length int, chars string) string {
	if length <= 0 || chars == "" {
		return ""
	}
	runes := []rune(chars)
	out := make([]rune, length)
	for i := range out {
		out[i] = runes[r.Intn(len(runes))]
	}
	return string(out)
}
