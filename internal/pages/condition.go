package pages

import (
	"fmt"

	"github.com/jakelee-bot/google-form-automation/internal/formdata"
)

// ConditionKind tags a page inclusion rule.
type ConditionKind string

const (
	Always           ConditionKind = "always"
	UserCountAtLeast ConditionKind = "user_count_at_least"
	UserCountEquals  ConditionKind = "user_count_equals"
)

// Condition is a serializable inclusion predicate over the user count.
// The zero value always applies.
type Condition struct {
	Kind  ConditionKind `yaml:"kind,omitempty"`
	Value int           `yaml:"value,omitempty"`
}

// AtLeast includes a page when num_premium_users >= n.
func AtLeast(n int) Condition { return Condition{Kind: UserCountAtLeast, Value: n} }

// Equals includes a page when num_premium_users == n.
func Equals(n int) Condition { return Condition{Kind: UserCountEquals, Value: n} }

// Eval interprets the condition against d.
func (c Condition) Eval(d *formdata.FormData) bool {
	switch c.Kind {
	case UserCountAtLeast:
		return d.NumPremiumUsers >= c.Value
	case UserCountEquals:
		return d.NumPremiumUsers == c.Value
	default:
		return true
	}
}

// IsZero lets yaml omit unconditional pages.
func (c Condition) IsZero() bool {
	return c.Kind == "" || c.Kind == Always
}

func (c Condition) String() string {
	switch c.Kind {
	case UserCountAtLeast:
		return fmt.Sprintf("users >= %d", c.Value)
	case UserCountEquals:
		return fmt.Sprintf("users == %d", c.Value)
	default:
		return "always"
	}
}

func (c Condition) validate() error {
	switch c.Kind {
	case "", Always:
		return nil
	case UserCountAtLeast, UserCountEquals:
		if c.Value < 1 {
			return fmt.Errorf("condition %s needs a positive value", c.Kind)
		}
		return nil
	default:
		return fmt.Errorf("unknown condition kind %q", c.Kind)
	}
}
