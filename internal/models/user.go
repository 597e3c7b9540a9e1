package models

import (
	"strings"
	"time"
)

// Plan is a subscription tier. The zero value means no plan has been selected yet.
type Plan string

// Plan constants
const (
	PlanNone       Plan = ""
	PlanFree       Plan = "free"
	PlanBasic      Plan = "basic"
	PlanPro        Plan = "pro"
	PlanEnterprise Plan = "enterprise"
)

// Plans lists every selectable plan in catalog order
var Plans = []Plan{PlanFree, PlanBasic, PlanPro, PlanEnterprise}

// ParsePlan converts a user supplied plan name into a Plan.
// Matching is case-insensitive and ignores surrounding whitespace.
func ParsePlan(name string) (Plan, bool) {
	p := Plan(strings.ToLower(strings.TrimSpace(name)))
	if !p.IsValid() {
		return PlanNone, false
	}
	return p, true
}

// IsValid checks if a plan belongs to the closed plan enumeration
func (p Plan) IsValid() bool {
	switch p {
	case PlanFree, PlanBasic, PlanPro, PlanEnterprise:
		return true
	default:
		return false
	}
}

// PlanRank returns the ordering of a plan (higher = bigger allotment)
func PlanRank(p Plan) int {
	switch p {
	case PlanEnterprise:
		return 4
	case PlanPro:
		return 3
	case PlanBasic:
		return 2
	case PlanFree:
		return 1
	default:
		return 0
	}
}

// Plan change directions
const (
	PlanUpgrade   = "upgrade"
	PlanDowngrade = "downgrade"
	PlanRenewal   = "renewal"
)

// PlanChangeDirection classifies a move between two plans by rank
func PlanChangeDirection(from, to Plan) string {
	switch {
	case PlanRank(to) > PlanRank(from):
		return PlanUpgrade
	case PlanRank(to) < PlanRank(from):
		return PlanDowngrade
	default:
		return PlanRenewal
	}
}

// Role is the authorization role of a user
type Role string

// Role constants
const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// ParseRole converts a stored role string into a Role, defaulting to RoleUser
func ParseRole(s string) Role {
	if Role(strings.ToLower(strings.TrimSpace(s))) == RoleAdmin {
		return RoleAdmin
	}
	return RoleUser
}

// Capability is an action gated by role
type Capability string

// Capabilities
const (
	CapGenerate       Capability = "generate"
	CapSelectPlan     Capability = "select_plan"
	CapManageUsers    Capability = "manage_users"
	CapManagePayments Capability = "manage_payments"
)

var roleCapabilities = map[Role][]Capability{
	RoleUser:  {CapGenerate, CapSelectPlan},
	RoleAdmin: {CapGenerate, CapSelectPlan, CapManageUsers, CapManagePayments},
}

// Can reports whether the role grants a capability
func (r Role) Can(c Capability) bool {
	for _, granted := range roleCapabilities[r] {
		if granted == c {
			return true
		}
	}
	return false
}

// MediaKind identifies which generation history a record belongs to
type MediaKind string

// Media kinds
const (
	MediaImage MediaKind = "image"
	MediaVideo MediaKind = "video"
)

// Credits is the metering aggregate embedded in a user
type Credits struct {
	Balance         int `json:"balance" bson:"balance"`
	TotalPurchased  int `json:"totalPurchased" bson:"total_purchased"`
	TotalUsed       int `json:"totalUsed" bson:"total_used"`
	ImagesGenerated int `json:"imagesGenerated" bson:"images_generated"`
	VideosGenerated int `json:"videosGenerated" bson:"videos_generated"`
	ScenesGenerated int `json:"scenesGenerated" bson:"scenes_generated"`
}

// GenerationRecord is one completed generation kept in a user's history
type GenerationRecord struct {
	ID         string    `json:"id" bson:"id"`
	Mode       string    `json:"mode" bson:"mode"`
	SourceURLs []string  `json:"sourceUrls,omitempty" bson:"source_urls,omitempty"`
	ResultURL  string    `json:"resultUrl" bson:"result_url"`
	Prompt     string    `json:"prompt,omitempty" bson:"prompt,omitempty"`
	CreatedAt  time.Time `json:"createdAt" bson:"created_at"`
}

// TermsAcceptance records which version of the terms a user accepted
type TermsAcceptance struct {
	Status     bool       `json:"status" bson:"status"`
	AcceptedAt *time.Time `json:"acceptedAt,omitempty" bson:"accepted_at,omitempty"`
	Version    string     `json:"version,omitempty" bson:"version,omitempty"`
}

// User is the identity and billing aggregate
type User struct {
	ID              string             `json:"id" bson:"_id"`
	Email           string             `json:"email" bson:"email"`
	PasswordHash    string             `json:"-" bson:"password_hash,omitempty"`
	Name            string             `json:"name" bson:"name"`
	GoogleID        string             `json:"-" bson:"google_id,omitempty"`
	Role            Role               `json:"role" bson:"role"`
	Plan            Plan               `json:"plan" bson:"plan"`
	PlanPrice       int                `json:"planPrice" bson:"plan_price"`
	PlanActivatedAt *time.Time         `json:"planActivatedAt,omitempty" bson:"plan_activated_at,omitempty"`
	Credits         Credits            `json:"credits" bson:"credits"`
	GeneratedImages []GenerationRecord `json:"generatedImages" bson:"generated_images"`
	GeneratedVideos []GenerationRecord `json:"generatedVideos" bson:"generated_videos"`
	TermsAccepted   TermsAcceptance    `json:"termsAccepted" bson:"terms_accepted"`
	IsVerified      bool               `json:"isVerified" bson:"is_verified"`
	IsActive        bool               `json:"isActive" bson:"is_active"`
	IsBlocked       bool               `json:"isBlocked" bson:"is_blocked"`
	LastLoginAt     *time.Time         `json:"lastLoginAt,omitempty" bson:"last_login_at,omitempty"`
	CreatedAt       time.Time          `json:"createdAt" bson:"created_at"`
	UpdatedAt       time.Time          `json:"updatedAt" bson:"updated_at"`

	// Version is bumped by every document store write
	Version int64 `json:"-" bson:"version"`
}

// NormalizeEmail lower-cases and trims an email so lookups are case-insensitive
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// HasRole reports whether the user holds exactly the given role
func (u *User) HasRole(r Role) bool {
	return u != nil && u.Role == r
}

// Can reports whether the user's role grants a capability
func (u *User) Can(c Capability) bool {
	return u != nil && u.Role.Can(c)
}

// History returns the generation history for a media kind
func (u *User) History(kind MediaKind) []GenerationRecord {
	if kind == MediaVideo {
		return u.GeneratedVideos
	}
	return u.GeneratedImages
}
