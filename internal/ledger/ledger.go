// Package ledger holds the credit accounting rules: how many credits a plan
// grants and how generations, plan changes and first logins move a balance.
//
// Every function here is pure with respect to I/O; callers persist the result
// through repository.UserStore.Modify so it applies to the latest record.
package ledger

import (
	"errors"
	"time"

	"github.com/prashantdesale0219/withoutplan-fx-sub000/internal/models"
)

const (
	// FreeCredits is the allotment of the free plan and of every new account
	FreeCredits = 3
	// HistoryLimit caps each generation history list
	HistoryLimit = 50
)

var (
	// ErrInsufficientCredits is returned when a balance cannot cover a charge
	ErrInsufficientCredits = errors.New("insufficient credits")
	// ErrInvalidAmount is returned for non-positive charges
	ErrInvalidAmount = errors.New("credit amount must be positive")
)

var planCredits = map[models.Plan]int{
	models.PlanFree:       FreeCredits,
	models.PlanBasic:      50,
	models.PlanPro:        200,
	models.PlanEnterprise: 1000,
}

// CreditsForPlan returns the credit allotment of a plan.
// Unknown or empty names get the free allotment.
func CreditsForPlan(name string) int {
	plan, ok := models.ParsePlan(name)
	if !ok {
		return FreeCredits
	}
	return planCredits[plan]
}

// Clamp never lets a credit figure go below zero
func Clamp(n int) int {
	if n < 0 {
		return 0
	}
	return n
}

// Balance derives the balance from the purchased and used totals
func Balance(c models.Credits) int {
	return Clamp(c.TotalPurchased - c.TotalUsed)
}

// View returns a copy of the credits safe to show a client
func View(c models.Credits) models.Credits {
	c.Balance = Clamp(c.Balance)
	c.TotalPurchased = Clamp(c.TotalPurchased)
	c.TotalUsed = Clamp(c.TotalUsed)
	return c
}

// NewAccountCredits is the credit state of a freshly created account
func NewAccountCredits() models.Credits {
	return models.Credits{
		Balance:        FreeCredits,
		TotalPurchased: FreeCredits,
	}
}

// ApplyPlanChange moves the user onto plan and adds the plan's allotment to
// the purchased total. The grant is additive: selecting a plan again tops up.
func ApplyPlanChange(u *models.User, plan models.Plan, now time.Time) {
	activated := now.UTC()
	if u.PlanActivatedAt != nil && u.PlanActivatedAt.After(activated) {
		activated = *u.PlanActivatedAt
	}

	u.Plan = plan
	u.PlanActivatedAt = &activated
	u.Credits.TotalPurchased += CreditsForPlan(string(plan))
	u.Credits.Balance = Balance(u.Credits)
}

// ConsumeCredit charges amount credits. On failure the user is left untouched.
func ConsumeCredit(u *models.User, amount int) error {
	if amount < 1 {
		return ErrInvalidAmount
	}
	if u.Credits.Balance < amount {
		return ErrInsufficientCredits
	}
	u.Credits.Balance -= amount
	u.Credits.TotalUsed += amount
	return nil
}

// GrantFreeOnFirstLogin initializes accounts that predate plans or credits.
// A missing plan becomes free; a free account with nothing ever granted
// receives the free allotment. Returns true when the user was changed.
//
// A zero balance alone is not enough: TotalPurchased must be zero as well,
// so a free user who spent their allotment is not topped up on every login.
func GrantFreeOnFirstLogin(u *models.User, now time.Time) bool {
	changed := false

	if u.Plan == models.PlanNone {
		activated := now.UTC()
		u.Plan = models.PlanFree
		u.PlanActivatedAt = &activated
		changed = true
	}

	if u.Plan == models.PlanFree && u.Credits.Balance == 0 && u.Credits.TotalPurchased == 0 {
		u.Credits.TotalPurchased += FreeCredits
		u.Credits.Balance = Balance(u.Credits)
		changed = true
	}

	return changed
}

// AppendHistory appends rec and evicts the oldest entries beyond HistoryLimit
func AppendHistory(list []models.GenerationRecord, rec models.GenerationRecord) []models.GenerationRecord {
	list = append(list, rec)
	if over := len(list) - HistoryLimit; over > 0 {
		trimmed := make([]models.GenerationRecord, HistoryLimit)
		copy(trimmed, list[over:])
		list = trimmed
	}
	return list
}

// RecordGeneration bumps the per-kind counter and appends the history entry
func RecordGeneration(u *models.User, kind models.MediaKind, rec models.GenerationRecord) {
	switch kind {
	case models.MediaVideo:
		u.Credits.VideosGenerated++
		u.GeneratedVideos = AppendHistory(u.GeneratedVideos, rec)
	default:
		u.Credits.ImagesGenerated++
		u.GeneratedImages = AppendHistory(u.GeneratedImages, rec)
	}
}
