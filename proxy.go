package datalayer

import (
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"
)

const defaultPort = 80

// Rule is a conditional override applied to requests and URLs. Match maps
// field names to regex patterns tested case-insensitively against the
// like-named request field; a rule with no Match always applies. Match
// itself never lands on a request. All other fields are overrides folded
// onto whatever matched, in registration order: scalar fields last-wins,
// header values and ignore sets accumulate.
type Rule struct {
	Match map[string]string

	Protocol string
	Host     string
	Port     int
	Origin   string

	Adapter         string
	Method          string
	Version         string
	ResponseType    string
	Headers         Headers
	Timeout         time.Duration
	WithCredentials *bool
	Ignore          map[string]bool
}

// Proxy is the rule engine: an ordered, append-only rule list plus the
// matching and merge machinery. Registration order is the only ordering.
// A single Proxy is safe for concurrent use.
type Proxy struct {
	mu    sync.RWMutex
	rules []Rule

	patternMu sync.Mutex
	patterns  map[string]*regexp.Regexp
}

// NewProxy returns an empty rule engine.
func NewProxy() *Proxy {
	return &Proxy{patterns: make(map[string]*regexp.Regexp)}
}

// Use appends rules. There is no priority field and no way to remove a
// rule; later rules win scalar conflicts against earlier ones.
func (p *Proxy) Use(rules ...Rule) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.rules = append(p.rules, rules...)
}

// Rules returns a snapshot of the registered rules.
func (p *Proxy) Rules() []Rule {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return append([]Rule(nil), p.rules...)
}

// URL resolves base plus path segments into a fully qualified URL by
// folding every rule matching {base, path} in registration order. With no
// protocol or host merged in, the result is a bare relative path. A merged
// origin overrides the discrete protocol/host/port fields; an origin that
// does not parse is a fatal error.
func (p *Proxy) URL(base string, paths ...string) (string, error) {
	path := joinPath(paths)

	var protocol, host, origin string
	port := defaultPort
	for _, r := range p.matching(map[string]string{"base": base, "path": path}) {
		if r.Protocol != "" {
			protocol = r.Protocol
		}
		if r.Host != "" {
			host = r.Host
		}
		if r.Port > 0 {
			port = r.Port
		}
		if r.Origin != "" {
			origin = r.Origin
		}
	}

	if origin != "" {
		u, err := url.Parse(origin)
		if err != nil || u.Host == "" {
			return "", &DataError{
				Kind:     KindOrigin,
				Severity: SeverityFatal,
				Message:  fmt.Sprintf("invalid origin %q", origin),
				Cause:    err,
			}
		}
		protocol = u.Scheme
		host = u.Hostname()
		port = defaultPort
		if ps := u.Port(); ps != "" {
			if n, err := strconv.Atoi(ps); err == nil {
				port = n
			}
		}
	}

	return renderURL(protocol, host, port, path), nil
}

// Apply folds every rule matching the request onto it, in registration
// order, and returns the same request. This is how versions, custom
// headers, or alternate adapters get attached.
func (p *Proxy) Apply(req *Request) *Request {
	if req == nil {
		return nil
	}
	fields := map[string]string{
		"base":         req.Base,
		"path":         req.Path,
		"adapter":      req.Adapter,
		"method":       req.Method,
		"version":      req.Version,
		"responsetype": req.ResponseType,
	}
	for _, r := range p.matching(fields) {
		mergeRule(req, r)
	}
	return req
}

// matching returns the rules whose Match map is satisfied by fields, in
// registration order. Every Match key must regex-test against the
// like-named field; keys naming fields the target does not carry are
// vacuously true.
func (p *Proxy) matching(fields map[string]string) []Rule {
	p.mu.RLock()
	defer p.mu.RUnlock()

	var out []Rule
	for _, r := range p.rules {
		if p.ruleMatches(r, fields) {
			out = append(out, r)
		}
	}
	return out
}

func (p *Proxy) ruleMatches(r Rule, fields map[string]string) bool {
	for key, expr := range r.Match {
		val, ok := fields[strings.ToLower(key)]
		if !ok {
			continue
		}
		re := p.pattern(expr)
		if re == nil || !re.MatchString(val) {
			return false
		}
	}
	return true
}

// pattern compiles expr case-insensitively, caching the result. An invalid
// pattern never matches.
func (p *Proxy) pattern(expr string) *regexp.Regexp {
	p.patternMu.Lock()
	defer p.patternMu.Unlock()

	if re, ok := p.patterns[expr]; ok {
		return re
	}
	re, err := regexp.Compile("(?i)" + expr)
	if err != nil {
		re = nil
	}
	p.patterns[expr] = re
	return re
}

func mergeRule(req *Request, r Rule) {
	if r.Adapter != "" {
		req.Adapter = r.Adapter
	}
	if r.Method != "" {
		req.Method = r.Method
	}
	if r.Version != "" {
		req.Version = r.Version
	}
	if r.ResponseType != "" {
		req.ResponseType = r.ResponseType
	}
	if r.Timeout > 0 {
		req.Timeout = r.Timeout
	}
	if r.WithCredentials != nil {
		req.WithCredentials = *r.WithCredentials
	}
	if len(r.Headers) > 0 {
		if req.Headers == nil {
			req.Headers = Headers{}
		}
		for k, vs := range r.Headers {
			for _, v := range vs {
				req.Headers.Add(k, v)
			}
		}
	}
	if len(r.Ignore) > 0 {
		if req.Ignore == nil {
			req.Ignore = make(map[string]bool, len(r.Ignore))
		}
		for k, v := range r.Ignore {
			req.Ignore[k] = v
		}
	}
}

var multiSlash = regexp.MustCompile(`/{2,}`)

func joinPath(paths []string) string {
	joined := strings.Join(paths, "/")
	joined = multiSlash.ReplaceAllString(joined, "/")
	return strings.TrimPrefix(joined, "/")
}

func renderURL(protocol, host string, port int, path string) string {
	if protocol == "" && host == "" {
		return path
	}

	var b strings.Builder
	switch protocol {
	case "":
		b.WriteString("//")
	case "file":
		// file URLs render with a triple slash
		b.WriteString("file://")
	default:
		b.WriteString(protocol)
		b.WriteString("://")
	}
	b.WriteString(host)
	if port != defaultPort && protocol != "file" {
		b.WriteString(":")
		b.WriteString(strconv.Itoa(port))
	}
	if protocol == "file" {
		b.WriteString("/")
		b.WriteString(path)
	} else if path != "" {
		b.WriteString("/")
		b.WriteString(path)
	}
	return b.String()
}
