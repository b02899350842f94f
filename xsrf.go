package datalayer

import (
	"context"
	"net/url"
	"regexp"
	"strings"
)

// XSRFOptions configures WithXSRF.
type XSRFOptions struct {
	// Cookie is the cookie the token is read from. Default "XSRF-TOKEN".
	Cookie string
	// Header is the request header the token is injected as.
	// Default "x-xsrf-token".
	Header string
	// Origin is the application's own origin, e.g. "https://app.example.com".
	// Targets on this origin always receive the token.
	Origin string
	// Hosts whitelists additional target hostnames; '*' wildcards a single
	// label ("*.example.com"). Whitelisted targets must still match the
	// origin's port and protocol.
	Hosts []string
	// Token resolves the current token for the named cookie. A nil Token
	// or empty result disables injection.
	Token func(cookie string) string
}

type xsrfTarget struct {
	protocol string
	hostname string
	port     string
}

// WithXSRF injects an anti-forgery token header on requests whose target
// is the application's own origin or a whitelisted hostname with matching
// port and protocol. Cross-origin targets outside the whitelist dispatch
// untouched even when a token is available.
func WithXSRF(next Fetch, options XSRFOptions) Fetch {
	cookie := options.Cookie
	if cookie == "" {
		cookie = "XSRF-TOKEN"
	}
	header := options.Header
	if header == "" {
		header = "x-xsrf-token"
	}
	origin, originOK := parseXSRFTarget(options.Origin)
	patterns := make([]*regexp.Regexp, 0, len(options.Hosts))
	for _, host := range options.Hosts {
		if re := hostPattern(host); re != nil {
			patterns = append(patterns, re)
		}
	}

	return func(ctx context.Context, req *Request) (*Response, error) {
		if options.Token == nil {
			return next(ctx, req)
		}
		token := options.Token(cookie)
		if token == "" {
			return next(ctx, req)
		}

		target, absolute := parseXSRFTarget(req.URL)
		inject := !absolute // relative URLs are same-origin by definition
		if absolute && originOK {
			switch {
			case target == origin:
				inject = true
			case target.port == origin.port && target.protocol == origin.protocol:
				for _, re := range patterns {
					if re.MatchString(target.hostname) {
						inject = true
						break
					}
				}
			}
		}
		if !inject {
			return next(ctx, req)
		}

		r := req.Clone()
		if r.Headers == nil {
			r.Headers = Headers{}
		}
		r.Headers.Set(header, token)
		return next(ctx, r)
	}
}

func parseXSRFTarget(raw string) (xsrfTarget, bool) {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return xsrfTarget{}, false
	}
	port := u.Port()
	if port == "" {
		switch u.Scheme {
		case "http":
			port = "80"
		case "https":
			port = "443"
		}
	}
	return xsrfTarget{
		protocol: strings.ToLower(u.Scheme),
		hostname: strings.ToLower(u.Hostname()),
		port:     port,
	}, true
}

func hostPattern(host string) *regexp.Regexp {
	expr := "^" + strings.ReplaceAll(regexp.QuoteMeta(strings.ToLower(host)), `\*`, `[^.]+`) + "$"
	re, err := regexp.Compile(expr)
	if err != nil {
		return nil
	}
	return re
}
