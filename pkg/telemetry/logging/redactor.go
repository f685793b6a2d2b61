package logging

import (
	"log/slog"
	"net/url"
	"regexp"
	"strings"
)

const mask = "****"

// Redactor masks credentials in log attributes.
type Redactor struct {
	secretKeys []string
	urlKeys    []string
	keyValue   *regexp.Regexp
}

// NewRedactor creates a Redactor with the built-in key lists.
func NewRedactor() *Redactor {
	return &Redactor{
		secretKeys: []string{"password", "secret", "token", "api_key"},
		urlKeys:    []string{"dsn", "url", "endpoint", "repository"},
		// key=value DSN form, e.g. "host=db password=hunter2"
		keyValue: regexp.MustCompile(`(?i)(password\s*=\s*)('[^']*'|\S+)`),
	}
}

// ReplaceAttr is a slog.HandlerOptions.ReplaceAttr hook.
func (r *Redactor) ReplaceAttr(groups []string, a slog.Attr) slog.Attr {
	if a.Value.Kind() != slog.KindString {
		return a
	}
	key := strings.ToLower(a.Key)

	for _, k := range r.secretKeys {
		if strings.Contains(key, k) {
			if a.Value.String() == "" {
				return a
			}
			return slog.String(a.Key, mask)
		}
	}
	for _, k := range r.urlKeys {
		if strings.Contains(key, k) {
			return slog.String(a.Key, r.RedactURL(a.Value.String()))
		}
	}
	return a
}

// RedactURL masks the password of a URL or key=value connection string.
func (r *Redactor) RedactURL(s string) string {
	if u, err := url.Parse(s); err == nil && u.User != nil {
		if _, ok := u.User.Password(); !ok {
			return s
		}
		// url.UserPassword would percent-encode the mask, so the userinfo
		// is spliced back in after the authority prefix.
		user := url.User(u.User.Username()).String()
		u.User = nil
		prefix := "//"
		if u.Scheme != "" {
			prefix = u.Scheme + "://"
		}
		rest := u.String()
		if !strings.HasPrefix(rest, prefix) {
			return u.Redacted()
		}
		return prefix + user + ":" + mask + "@" + rest[len(prefix):]
	}
	return r.keyValue.ReplaceAllString(s, "${1}"+mask)
}
