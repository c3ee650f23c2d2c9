package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultPlans(t *testing.T) {
	plans := DefaultPlans()
	require.Len(t, plans, 3)
	assert.Equal(t, PlanBasic, plans[0].ID)
	assert.Equal(t, 0.0, plans[0].Price)
	assert.True(t, plans[1].Popular)
	assert.Equal(t, 9.99, plans[1].Price)
	assert.Equal(t, "Creator Pro", plans[2].Name)
	assert.True(t, plans[2].HasFeature("Advanced analytics dashboard"))
}

func TestLoadPlansFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plans.yaml")
	doc := `plans:
  - id: basic
    name: Basic
    price: 0
    features: ["Limited access to content"]
  - id: team
    name: Team
    price: 49
    popular: true
`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o600))

	plans, err := LoadPlans(path)
	require.NoError(t, err)
	require.Len(t, plans, 2)
	assert.Equal(t, "team", plans[1].ID)
	assert.True(t, plans[1].Popular)
}

func TestLoadPlansDefaultsAndValidation(t *testing.T) {
	plans, err := LoadPlans("")
	require.NoError(t, err)
	assert.Len(t, plans, 3)

	_, err = ParsePlans([]byte("plans:\n  - name: NoID\n"))
	assert.Error(t, err)
	_, err = ParsePlans([]byte("plans:\n  - id: a\n    name: A\n  - id: a\n    name: B\n"))
	assert.Error(t, err)
	_, err = ParsePlans([]byte("plans:\n  - id: premium\n    name: Premium\n    price: 9.99\n"))
	assert.ErrorContains(t, err, `"basic" is required`)
	_, err = LoadPlans(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}
