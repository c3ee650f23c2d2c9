package subscription

import "time"

// Status values stored in the subscriptions table.
const (
	StatusActive   = "active"
	StatusCanceled = "canceled"
)

// Plan is a subscription tier with the features it unlocks.
type Plan struct {
	ID       string   `json:"id" yaml:"id"`
	Name     string   `json:"name" yaml:"name"`
	Price    float64  `json:"price" yaml:"price"`
	Features []string `json:"features" yaml:"features"`
	Color    string   `json:"color" yaml:"color"`
	Popular  bool     `json:"popular" yaml:"popular"`
}

// HasFeature reports whether the plan lists feature verbatim.
func (p Plan) HasFeature(feature string) bool {
	for _, f := range p.Features {
		if f == feature {
			return true
		}
	}
	return false
}

// Subscription is the single per-user row of the subscriptions table.
type Subscription struct {
	ID               string     `json:"id,omitempty" db:"id"`
	UserID           string     `json:"user_id" db:"user_id"`
	PlanID           string     `json:"plan_id" db:"plan_id"`
	Amount           float64    `json:"amount" db:"amount"`
	Status           string     `json:"status" db:"status"`
	CreatedAt        time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at" db:"updated_at"`
	CurrentPeriodEnd *time.Time `json:"current_period_end,omitempty" db:"current_period_end"`
}

// Active reports whether s is present and active.
func (s *Subscription) Active() bool {
	return s != nil && s.Status == StatusActive
}
