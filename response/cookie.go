package response

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

// SameSite is the `SameSite` cookie attribute value.
type SameSite string

const (
	SameSiteDefault SameSite = ""
	SameSiteLax     SameSite = "Lax"
	SameSiteStrict  SameSite = "Strict"
	SameSiteNone    SameSite = "None"
)

// Cookie describes one Set-Cookie header to append to a response. Name
// and Value are URL-encoded at serialization time.
type Cookie struct {
	Name     string
	Value    string
	Domain   string
	Path     string
	Expires  time.Time
	MaxAge   int // seconds; 0 means unset
	HttpOnly bool
	Secure   bool
	SameSite SameSite
}

// Serialize renders the cookie as a Set-Cookie header value. Attributes
// are appended in the fixed order the spec requires: Domain, Path,
// Expires (RFC-1123 GMT), Max-Age, HttpOnly, Secure, SameSite.
func (c Cookie) Serialize() string {
	var b strings.Builder
	b.WriteString(url.QueryEscape(c.Name))
	b.WriteByte('=')
	b.WriteString(url.QueryEscape(c.Value))

	if c.Domain != "" {
		fmt.Fprintf(&b, "; Domain=%s", c.Domain)
	}
	if c.Path != "" {
		fmt.Fprintf(&b, "; Path=%s", c.Path)
	}
	if !c.Expires.IsZero() {
		fmt.Fprintf(&b, "; Expires=%s", c.Expires.UTC().Format("Mon, 02 Jan 2006 15:04:05 GMT"))
	}
	if c.MaxAge != 0 {
		fmt.Fprintf(&b, "; Max-Age=%d", c.MaxAge)
	}
	if c.HttpOnly {
		b.WriteString("; HttpOnly")
	}
	if c.Secure {
		b.WriteString("; Secure")
	}
	if c.SameSite != SameSiteDefault {
		fmt.Fprintf(&b, "; SameSite=%s", c.SameSite)
	}
	return b.String()
}
