package validation

import (
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/goliatone/go-signin/pkg/model"
)

// Kind identifies the check a rule performs.
type Kind string

const (
	KindRequired Kind = "required"
	KindPattern  Kind = "pattern"
)

// DefaultRequiredMessage is reported by required rules without a message.
const DefaultRequiredMessage = "必填"

// DefaultPatternMessage is reported by pattern rules without a message.
const DefaultPatternMessage = "格式不正确"

// EmailPattern matches "<text>@<text>".
var EmailPattern = regexp.MustCompile(`.+@.+`)

// Rule is a single named check against one key of the form state.
type Rule struct {
	Key      string
	Kind     Kind
	Required bool
	Pattern  *regexp.Regexp
	Message  string
}

// Required builds a rule failing on empty values.
func Required(key, message string) Rule {
	return Rule{Key: key, Kind: KindRequired, Required: true, Message: message}
}

// Pattern builds a rule failing when the value does not match expr.
func Pattern(key string, expr *regexp.Regexp, message string) Rule {
	return Rule{Key: key, Kind: KindPattern, Pattern: expr, Message: message}
}

// State is the form-state record rules read from.
type State interface {
	Lookup(key string) (any, bool)
}

// Values adapts a plain map to State.
type Values map[string]any

// Lookup implements State.
func (v Values) Lookup(key string) (any, bool) {
	value, ok := v[key]
	return value, ok
}

// Validate evaluates rules in order and collects the messages of every
// failing rule, keyed by rule key. Keys without failures are absent.
func Validate(rules []Rule, state State) Errors {
	errs := Errors{}
	for _, rule := range rules {
		var value any
		if state != nil && !isNilState(state) {
			value, _ = state.Lookup(rule.Key)
		}
		if rule.passes(value) {
			continue
		}
		errs[rule.Key] = append(errs[rule.Key], rule.message())
	}
	return errs
}

func (r Rule) passes(value any) bool {
	switch r.Kind {
	case KindRequired:
		if !r.Required {
			return true
		}
		return !model.IsEmpty(value)
	case KindPattern:
		if r.Pattern == nil {
			return true
		}
		return r.Pattern.MatchString(model.FormatValue(value))
	default:
		return true
	}
}

func (r Rule) message() string {
	if msg := strings.TrimSpace(r.Message); msg != "" {
		return msg
	}
	switch r.Kind {
	case KindRequired:
		return DefaultRequiredMessage
	case KindPattern:
		return DefaultPatternMessage
	default:
		return fmt.Sprintf("%s is invalid", r.Key)
	}
}

func isNilState(state State) bool {
	rv := reflect.ValueOf(state)
	switch rv.Kind() {
	case reflect.Map, reflect.Pointer:
		return rv.IsNil()
	default:
		return false
	}
}
