package dto

import (
	"time"

	domainuser "padicrib/internal/domain/user"
)

type UserProfile struct {
	ID               int64      `json:"id"`
	Name             string     `json:"name"`
	Email            string     `json:"email"`
	Phone            string     `json:"phone,omitempty"`
	Role             string     `json:"role"`
	Status           string     `json:"status"`
	SuspendedUntil   *time.Time `json:"suspended_until,omitempty"`
	SuspensionReason string     `json:"suspension_reason,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
}

type UserList struct {
	Items []UserProfile `json:"items"`
	Total int           `json:"total"`
}

type Session struct {
	User      UserProfile `json:"user"`
	Token     string      `json:"token"`
	ExpiresAt time.Time   `json:"expires_at"`
}

func MapUser(u *domainuser.User) UserProfile {
	return UserProfile{
		ID:               int64(u.ID),
		Name:             u.Name,
		Email:            u.Email,
		Phone:            u.Phone,
		Role:             string(u.Role),
		Status:           string(u.Status),
		SuspendedUntil:   u.SuspendedUntil,
		SuspensionReason: u.SuspensionReason,
		CreatedAt:        u.CreatedAt,
	}
}
