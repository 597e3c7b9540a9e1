package plans

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prashantdesale0219/withoutplan-fx-sub000/internal/models"
)

func TestAll_CoversEveryPlan(t *testing.T) {
	all := All()
	require.Len(t, all, len(models.Plans))

	for i, p := range all {
		assert.Equal(t, models.Plans[i], p.Name)
		assert.Equal(t, Currency, p.Currency)
		assert.NotEmpty(t, p.Features)
	}
}

func TestCreditsMatchLedger(t *testing.T) {
	want := map[models.Plan]int{
		models.PlanFree:       3,
		models.PlanBasic:      50,
		models.PlanPro:        200,
		models.PlanEnterprise: 1000,
	}
	for name, credits := range want {
		p, ok := Get(name)
		require.True(t, ok, name)
		assert.Equal(t, credits, p.Credits, name)
	}
}

func TestPrice(t *testing.T) {
	assert.Equal(t, 0, Price(models.PlanFree))
	assert.Equal(t, 1499, Price(models.PlanPro))
	assert.Equal(t, 0, Price("gold"))
}

func TestAll_ReturnsCopies(t *testing.T) {
	first := All()
	first[0].Features[0] = "changed"

	assert.NotEqual(t, "changed", All()[0].Features[0])
}
