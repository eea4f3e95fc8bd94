package ratelimit

import (
	"errors"
	"fmt"
	"strings"

	"github.com/rogertalk/roger-api-sub001/pkg/config"
)

// DefaultRules returns the built-in rule table for challenge codes.
func DefaultRules() Rules {
	return Rules{
		"challenge:call_code":  {Size: 5, Rate: 0.1},
		"challenge:email_code": {Size: 100, Rate: 5},
		"challenge:ip:*":       {Size: 20, Rate: 0.001},
		"challenge:sms_code":   {Size: 100, Rate: 5},
		DefaultRuleKey:         {Size: 100, Rate: 10},
	}
}

// Resolve returns the bucket key and rule for parts. The exact key is tried
// first, then the key with its last part replaced by "*". The bucket key is
// always the exact key so each wildcard match gets its own bucket.
func (r Rules) Resolve(parts ...string) (string, Rule, bool) {
	key := Key(parts...)
	if rule, ok := r[key]; ok {
		return key, rule, true
	}
	if len(parts) == 0 {
		return key, Rule{}, false
	}
	wildcard := strings.Join(append(parts[:len(parts)-1:len(parts)-1], "*"), ":")
	if rule, ok := r[wildcard]; ok {
		return key, rule, true
	}
	return key, Rule{}, false
}

// Validate checks every rule in the table.
func (r Rules) Validate() error {
	for key, rule := range r {
		if err := rule.Validate(); err != nil {
			return fmt.Errorf("rule %q: %w", key, err)
		}
	}
	return nil
}

// LoadRules reads a YAML rule table from path:
//
//	"challenge:sms_code": {size: 100, rate: 5}
//	"challenge:ip:*": {size: 20, rate: 0.001}
//	default: {size: 100, rate: 10}
func LoadRules(path string) (Rules, error) {
	var rules Rules
	if err := config.LoadFile(path, &rules); err != nil {
		return nil, errors.Join(ErrLoadingRules, err)
	}
	if err := rules.Validate(); err != nil {
		return nil, err
	}
	return rules, nil
}
