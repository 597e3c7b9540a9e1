package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPlanChangeDirection(t *testing.T) {
	tests := []struct {
		from, to Plan
		want     string
	}{
		{PlanNone, PlanFree, PlanUpgrade},
		{PlanFree, PlanPro, PlanUpgrade},
		{PlanEnterprise, PlanBasic, PlanDowngrade},
		{PlanPro, PlanPro, PlanRenewal},
		{PlanFree, PlanFree, PlanRenewal},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.want, PlanChangeDirection(tt.from, tt.to))
		})
	}
}

func TestNormalizeEmail(t *testing.T) {
	assert.Equal(t, "a@b.com", NormalizeEmail("  A@B.Com "))
}
