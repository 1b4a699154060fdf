package restclient

import (
	"net/url"
	"sort"
	"strings"
)

// AppendQuery appends the url-encoded pairs of q to baseURL. Keys are sorted,
// a key with several values yields one pair per value. When baseURL already
// carries a query the pairs are joined to it with "&". An empty q returns
// baseURL unchanged.
func AppendQuery(baseURL string, q url.Values) string {
	if len(q) == 0 {
		return baseURL
	}

	keys := make([]string, 0, len(q))
	for k := range q {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString(baseURL)

	switch {
	case strings.HasSuffix(baseURL, "&"):
		// nothing
	case strings.Contains(baseURL, "?"):
		if !strings.HasSuffix(baseURL, "?") {
			b.WriteByte('&')
		}
	default:
		b.WriteByte('?')
	}

	first := true
	for _, k := range keys {
		ek := url.QueryEscape(k)
		for _, v := range q[k] {
			if !first {
				b.WriteByte('&')
			}
			first = false
			b.WriteString(ek)
			b.WriteByte('=')
			b.WriteString(url.QueryEscape(v))
		}
	}
	return b.String()
}
