package datalayer

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// RuleFile is the on-disk shape of a proxy rule set.
type RuleFile struct {
	Version string `yaml:"version"`
	Rules   []Rule `yaml:"rules"`
}

// LoadRules reads proxy rules from a YAML file, in file order. Header
// values may be written as a scalar or a list; timeouts use Go duration
// syntax ("30s", "1m"). Parse failures are fatal configuration errors.
func LoadRules(path string) ([]Rule, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, &DataError{
			Kind:     KindValidation,
			Severity: SeverityFatal,
			Message:  fmt.Sprintf("reading rule file %q", path),
			Cause:    err,
		}
	}

	var file RuleFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, &DataError{
			Kind:     KindValidation,
			Severity: SeverityFatal,
			Message:  fmt.Sprintf("parsing rule file %q", path),
			Cause:    err,
		}
	}
	return file.Rules, nil
}

// UnmarshalYAML decodes a rule, accepting Go duration syntax for timeout.
func (r *Rule) UnmarshalYAML(node *yaml.Node) error {
	var aux struct {
		Match           map[string]string `yaml:"match"`
		Protocol        string            `yaml:"protocol"`
		Host            string            `yaml:"host"`
		Port            int               `yaml:"port"`
		Origin          string            `yaml:"origin"`
		Adapter         string            `yaml:"adapter"`
		Method          string            `yaml:"method"`
		Version         string            `yaml:"version"`
		ResponseType    string            `yaml:"responseType"`
		Headers         Headers           `yaml:"headers"`
		Timeout         string            `yaml:"timeout"`
		WithCredentials *bool             `yaml:"withCredentials"`
		Ignore          map[string]bool   `yaml:"ignore"`
	}
	if err := node.Decode(&aux); err != nil {
		return err
	}

	*r = Rule{
		Match:           aux.Match,
		Protocol:        aux.Protocol,
		Host:            aux.Host,
		Port:            aux.Port,
		Origin:          aux.Origin,
		Adapter:         aux.Adapter,
		Method:          aux.Method,
		Version:         aux.Version,
		ResponseType:    aux.ResponseType,
		Headers:         aux.Headers,
		WithCredentials: aux.WithCredentials,
		Ignore:          aux.Ignore,
	}
	if aux.Timeout != "" {
		d, err := time.ParseDuration(aux.Timeout)
		if err != nil {
			return fmt.Errorf("invalid timeout %q: %w", aux.Timeout, err)
		}
		r.Timeout = d
	}
	return nil
}

// UnmarshalYAML decodes headers whose values are either a scalar or a
// list of scalars.
func (h *Headers) UnmarshalYAML(node *yaml.Node) error {
	var raw map[string]any
	if err := node.Decode(&raw); err != nil {
		return err
	}

	out := make(Headers, len(raw))
	for k, v := range raw {
		switch values := v.(type) {
		case []any:
			for _, item := range values {
				out.Add(k, fmt.Sprintf("%v", item))
			}
		default:
			out.Add(k, fmt.Sprintf("%v", v))
		}
	}
	*h = out
	return nil
}
