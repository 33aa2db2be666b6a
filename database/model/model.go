// Package model defines the club's domain records and the rows persisted in
// the local database.
package model

import "time"

type UserRole string

const (
	RoleVisitor    UserRole = "VISITOR"
	RoleMember     UserRole = "MEMBER"
	RoleAdmin      UserRole = "ADMIN"
	RoleSuperAdmin UserRole = "SUPER_ADMIN"
)

type MembershipPlan string

const (
	PlanFree    MembershipPlan = "FREE"
	PlanPremium MembershipPlan = "PREMIUM"
	PlanVIP     MembershipPlan = "VIP"
)

type ExperienceLevel string

const (
	ExperienceNovice       ExperienceLevel = "Novice"
	ExperienceIntermediate ExperienceLevel = "Intermediate"
	ExperienceExpert       ExperienceLevel = "Expert"
	ExperienceVeteran      ExperienceLevel = "Veteran"
)

type NotificationType string

const (
	NotificationEvent  NotificationType = "EVENT"
	NotificationSystem NotificationType = "SYSTEM"
	NotificationInvite NotificationType = "INVITE"
	NotificationAlert  NotificationType = "ALERT"
)

// BroadcastScope is the sentinel notification target visible to every member.
const BroadcastScope = "global"

type User struct {
	ID              string          `json:"id"`
	Email           string          `json:"email"`
	Name            string          `json:"name"`
	Nickname        string          `json:"nickname"`
	Role            UserRole        `json:"role"`
	MembershipPlan  MembershipPlan  `json:"membershipPlan"`
	MotorcycleModel string          `json:"motorcycleModel"`
	ExperienceLevel ExperienceLevel `json:"experienceLevel"`
	Avatar          string          `json:"avatar"`
	Bio             string          `json:"bio"`
	Points          int             `json:"points"`
	Badges          []string        `json:"badges"`
}

type Notification struct {
	ID        string           `json:"id"`
	UserID    string           `json:"userId"`
	Type      NotificationType `json:"type"`
	Title     string           `json:"title"`
	Message   string           `json:"message"`
	Read      bool             `json:"read"`
	CreatedAt time.Time        `json:"createdAt"`
}

// VisibleTo reports whether the notification targets the given viewer, either
// directly or through the broadcast scope.
func (n *Notification) VisibleTo(viewerID string) bool {
	return n.UserID == viewerID || n.UserID == BroadcastScope
}

// KV is a row of the local key-value table. The mock store keeps its two
// JSON-encoded documents here.
type KV struct {
	Key   string `json:"key" gorm:"primaryKey"`
	Value string `json:"value"`
}

// Setting is a panel configuration row, one key-value pair per setting.
type Setting struct {
	Id    int    `json:"id" form:"id" gorm:"primaryKey;autoIncrement"`
	Key   string `json:"key" form:"key"`
	Value string `json:"value" form:"value"`
}
