package artifacts

import "strings"

// Filter selects artifact URLs.
type Filter func(url string) bool

// All matches every URL.
func All(string) bool { return true }

// HasSuffix matches URLs ending with any of suffixes.
func HasSuffix(suffixes ...string) Filter {
	return func(url string) bool {
		for _, s := range suffixes {
			if strings.HasSuffix(url, s) {
				return true
			}
		}
		return false
	}
}

const (
	debSuffix         = ".deb"
	unitTestsBundle   = "unit_tests_dbms"
	performanceSuffix = "performance.tar.zst"
)

var fuzzerSuffixes = []string{"_fuzzer", ".dict", ".options", "_seed_corpus.zip"}

// fileName turns an artifact URL into the local file name.
func fileName(url string) string {
	url = strings.ReplaceAll(url, "%2B", "+")
	url = strings.ReplaceAll(url, "%20", " ")

	if i := strings.LastIndexByte(url, '/'); i >= 0 {
		return url[i+1:]
	}
	return url
}
