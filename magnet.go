package transmission

import (
	"net/url"
	"strings"

	"github.com/pkg/errors"
)

const magnetPrefix = "magnet:?"

// IsMagnetLink reports whether s looks like a magnet URI.
func IsMagnetLink(s string) bool {
	return strings.HasPrefix(strings.ToLower(s), magnetPrefix)
}

// ParseMagnetLink extracts the info hash, name and trackers of a magnet URI.
// Hash is the v1 info hash (xt=urn:btih:) or, for v2-only magnets, the
// multihash (xt=urn:btmh:). A magnet with neither is rejected.
func ParseMagnetLink(magnetURI string) (*MagnetLink, error) {
	if !IsMagnetLink(magnetURI) {
		return nil, errors.New("invalid magnet link format")
	}

	values, err := url.ParseQuery(magnetURI[len(magnetPrefix):])
	if err != nil {
		return nil, errors.Wrap(err, "failed to parse magnet link query")
	}

	magnet := &MagnetLink{
		DisplayName:      values.Get("dn"),
		Trackers:         values["tr"],
		ExactLength:      values.Get("xl"),
		ExactSource:      values.Get("xs"),
		Keywords:         values.Get("kt"),
		AcceptableSource: values.Get("as"),
	}

	var v2Hash string
	for _, xt := range values["xt"] {
		if hash, ok := cutPrefixFold(xt, "urn:btih:"); ok && hash != "" {
			magnet.Hash = strings.ToLower(hash)
			break
		}
		if hash, ok := cutPrefixFold(xt, "urn:btmh:"); ok && hash != "" && v2Hash == "" {
			v2Hash = strings.ToLower(hash)
		}
	}
	if magnet.Hash == "" {
		magnet.Hash = v2Hash
	}
	if magnet.Hash == "" {
		return nil, errors.Errorf("magnet link has no btih or btmh exact topic: %q", magnetURI)
	}

	return magnet, nil
}

func cutPrefixFold(s, prefix string) (string, bool) {
	if len(s) < len(prefix) || !strings.EqualFold(s[:len(prefix)], prefix) {
		return s, false
	}
	return s[len(prefix):], true
}
