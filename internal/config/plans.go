package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/R3E-Network/video_portal/internal/app/domain/subscription"
)

// Plan identifiers shipped with the service.
const (
	PlanBasic   = "basic"
	PlanPremium = "premium"
	PlanCreator = "creator"
)

// PlansFile is the YAML layout of a plan catalog override.
type PlansFile struct {
	Plans []subscription.Plan `yaml:"plans"`
}

// DefaultPlans returns the built-in plan catalog.
func DefaultPlans() []subscription.Plan {
	return []subscription.Plan{
		{
			ID:    PlanBasic,
			Name:  "Basic",
			Price: 0,
			Features: []string{
				"Limited access to content",
				"Standard video quality",
				"Ad-supported experience",
				"Basic analytics",
			},
			Color: "bg-gray-600",
		},
		{
			ID:    PlanPremium,
			Name:  "Premium",
			Price: 9.99,
			Features: []string{
				"Full access to all videos",
				"Ad-free experience",
				"HD video quality",
				"Download videos for offline viewing",
				"Enhanced analytics",
			},
			Color:   "bg-blue-600",
			Popular: true,
		},
		{
			ID:    PlanCreator,
			Name:  "Creator Pro",
			Price: 19.99,
			Features: []string{
				"All Premium features",
				"Advanced analytics dashboard",
				"Priority support",
				"Monetization options",
				"Custom channel branding",
			},
			Color: "bg-purple-600",
		},
	}
}

// LoadPlans reads a plan catalog from path. An empty path yields the defaults.
func LoadPlans(path string) ([]subscription.Plan, error) {
	if path == "" {
		return DefaultPlans(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read plans file: %w", err)
	}
	return ParsePlans(data)
}

// ParsePlans decodes and validates a YAML plan catalog. The basic plan must
// be present since it backs users without a subscription.
func ParsePlans(data []byte) ([]subscription.Plan, error) {
	var file PlansFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse plans file: %w", err)
	}
	if len(file.Plans) == 0 {
		return DefaultPlans(), nil
	}
	seen := make(map[string]bool, len(file.Plans))
	for i, p := range file.Plans {
		if p.ID == "" {
			return nil, fmt.Errorf("plan %d: id is required", i)
		}
		if p.Name == "" {
			return nil, fmt.Errorf("plan %q: name is required", p.ID)
		}
		if p.Price < 0 {
			return nil, fmt.Errorf("plan %q: price must not be negative", p.ID)
		}
		if seen[p.ID] {
			return nil, fmt.Errorf("plan %q: duplicate id", p.ID)
		}
		seen[p.ID] = true
	}
	if !seen[PlanBasic] {
		return nil, fmt.Errorf("plan %q is required", PlanBasic)
	}
	return file.Plans, nil
}
