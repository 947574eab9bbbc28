package marketplace

import (
	"strings"

	"github.com/NebulousLabs/errors"
)

// ErrKeyHasSlash is returned when content material itself contains '/',
// which would make the namespace prefix ambiguous to parse back out.
var ErrKeyHasSlash = errors.New("content key must not contain '/'")

// BuildKey constructs a namespaced DHT key: "<namespace>/<content>". content
// must not itself contain '/' (file-info hashes are hex, so this always
// holds for HoldersNamespace keys).
func BuildKey(namespace, content string) (string, error) {
	if strings.Contains(content, "/") {
		return "", ErrKeyHasSlash
	}
	return namespace + "/" + content, nil
}

// SplitKey parses a namespaced DHT key back into its namespace and content
// parts, splitting at the first '/'. It returns false only if key contains
// no '/' at all; any further '/' characters stay in content.
func SplitKey(key string) (namespace, content string, ok bool) {
	i := strings.Index(key, "/")
	if i < 0 {
		return "", "", false
	}
	return key[:i], key[i+1:], true
}
