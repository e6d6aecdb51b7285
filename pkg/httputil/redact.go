package httputil

import "net/url"

// secretParams are query parameters never written to logs
var secretParams = []string{"apikey", "api_key", "token"}

// redactURL renders u with credential query values masked
func redactURL(u *url.URL) string {
	if u == nil {
		return ""
	}
	q := u.Query()
	changed := false
	for _, p := range secretParams {
		if q.Has(p) {
			q.Set(p, "***")
			changed = true
		}
	}
	if !changed {
		return u.String()
	}
	clone := *u
	clone.RawQuery = q.Encode()
	return clone.String()
}
