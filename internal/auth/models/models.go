package models

import (
	"time"
)

type Role string

const (
	RoleClient Role = "client"
	RoleAdmin  Role = "admin"
)

func (r Role) Valid() bool {
	return r == RoleClient || r == RoleAdmin
}

type Status string

const (
	StatusActive    Status = "active"
	StatusInactive  Status = "inactive"
	StatusSuspended Status = "suspended"
)

func (s Status) Valid() bool {
	switch s {
	case StatusActive, StatusInactive, StatusSuspended:
		return true
	}
	return false
}

// User is the identity record owned by the credential store.
type User struct {
	ID                  int64      `json:"id"`
	Email               string     `json:"email"`
	PasswordHash        string     `json:"-"`
	FirstName           string     `json:"firstName"`
	LastName            string     `json:"lastName"`
	Phone               string     `json:"phone,omitempty"`
	Company             string     `json:"company,omitempty"`
	Role                Role       `json:"role"`
	Status              Status     `json:"status"`
	FailedLoginAttempts int        `json:"failedLoginAttempts"`
	LastLoginAt         *time.Time `json:"lastLoginAt"`
	CreatedAt           time.Time  `json:"createdAt"`
	UpdatedAt           time.Time  `json:"updatedAt"`
}

// Identity is the subset of a user attached to an authenticated request.
type Identity struct {
	ID        int64  `json:"id"`
	Email     string `json:"email"`
	Role      Role   `json:"role"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

func (u *User) Identity() Identity {
	return Identity{
		ID:        u.ID,
		Email:     u.Email,
		Role:      u.Role,
		FirstName: u.FirstName,
		LastName:  u.LastName,
	}
}

type UserFilter struct {
	Role   Role
	Status Status
	Search string
}

type RequestStatus string

const (
	RequestPending    RequestStatus = "pending"
	RequestInReview   RequestStatus = "in_review"
	RequestInProgress RequestStatus = "in_progress"
	RequestCompleted  RequestStatus = "completed"
	RequestCancelled  RequestStatus = "cancelled"
)

func (s RequestStatus) Valid() bool {
	switch s {
	case RequestPending, RequestInReview, RequestInProgress, RequestCompleted, RequestCancelled:
		return true
	}
	return false
}

var ServiceTypes = []string{"consulting", "audit", "implementation", "training", "support"}

type ServiceRequest struct {
	ID          int64         `json:"id"`
	Reference   string        `json:"reference"`
	ClientID    int64         `json:"clientId"`
	ClientEmail string        `json:"clientEmail,omitempty"`
	Title       string        `json:"title"`
	Description string        `json:"description"`
	ServiceType string        `json:"serviceType"`
	Budget      *float64      `json:"budget,omitempty"`
	Status      RequestStatus `json:"status"`
	AdminNotes  string        `json:"adminNotes,omitempty"`
	CreatedAt   time.Time     `json:"createdAt"`
	UpdatedAt   time.Time     `json:"updatedAt"`
}

type RequestFilter struct {
	ClientID int64
	Status   RequestStatus
}

type Notification struct {
	ID        int64      `json:"id"`
	UserID    int64      `json:"userId"`
	Kind      string     `json:"kind"`
	Title     string     `json:"title"`
	Message   string     `json:"message"`
	ReadAt    *time.Time `json:"readAt"`
	CreatedAt time.Time  `json:"createdAt"`
}

type PageStatus string

const (
	PageDraft     PageStatus = "draft"
	PagePublished PageStatus = "published"
)

func (s PageStatus) Valid() bool {
	return s == PageDraft || s == PagePublished
}

type ContentPage struct {
	ID        int64      `json:"id"`
	Slug      string     `json:"slug"`
	Title     string     `json:"title"`
	Body      string     `json:"body"`
	Status    PageStatus `json:"status"`
	UpdatedBy int64      `json:"updatedBy"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
}

type AuditLog struct {
	ID        int64     `json:"id"`
	UserID    *int64    `json:"userId"`
	Action    string    `json:"action"`
	Detail    string    `json:"detail"`
	IP        string    `json:"ip"`
	CreatedAt time.Time `json:"createdAt"`
}

// Page describes one slice of a paginated listing.
type Page struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	Total      int `json:"total"`
	TotalPages int `json:"totalPages"`
}

func NewPage(page, limit, total int) Page {
	pages := 0
	if limit > 0 {
		pages = (total + limit - 1) / limit
	}
	return Page{Page: page, Limit: limit, Total: total, TotalPages: pages}
}

func (p Page) Offset() int {
	if p.Page < 1 {
		return 0
	}
	return (p.Page - 1) * p.Limit
}

// Paged is the data of a list response.
type Paged[T any] struct {
	Items      []T  `json:"items"`
	Pagination Page `json:"pagination"`
}
