// Package models defines the wire-level domain types exchanged with the
// repairdesk backend. All records are owned by the backend; the bot never
// constructs them locally except as part of a create/edit draft.
package models

import "time"

// Request statuses as reported by the backend.
const (
	StatusNew    = "New"
	StatusInWork = "In work"
	StatusDone   = "Done"
	StatusClosed = "Closed"
)

// RequestStatuses lists every status the backend can report, in the order
// the status picker presents them.
var RequestStatuses = []string{StatusNew, StatusInWork, StatusDone, StatusClosed}

// Request is a single service request as returned by the backend.
// DaysRemaining is nil when the request has no deadline.
type Request struct {
	RequestID              int64     `json:"requestID"`
	Description            string    `json:"description"`
	ShopID                 int64     `json:"shopID"`
	ShopName               string    `json:"shopName"`
	AssignedContractorID   int64     `json:"assignedContractorID"`
	AssignedContractorName string    `json:"assignedContractorName"`
	WorkCategoryID         int64     `json:"workCategoryID"`
	WorkCategoryName       string    `json:"workCategoryName"`
	UrgencyID              int64     `json:"urgencyID"`
	UrgencyName            string    `json:"urgencyName"`
	DaysForTask            int       `json:"daysForTask"`
	Status                 string    `json:"status"`
	CreatedAt              time.Time `json:"createdAt"`
	CreatedByUserID        int64     `json:"createdByUserID"`
	DaysRemaining          *int      `json:"daysRemaining"`
	IsOverdue              bool      `json:"isOverdue"`
	CommentCount           int       `json:"commentCount"`
	PhotoCount             int       `json:"photoCount"`
	Archived               bool      `json:"archived"`
}

// CreateRequest is the payload for creating a new request.
type CreateRequest struct {
	Description          string `json:"description"`
	ShopID               int64  `json:"shopID"`
	WorkCategoryID       int64  `json:"workCategoryID"`
	UrgencyID            int64  `json:"urgencyID"`
	AssignedContractorID int64  `json:"assignedContractorID"`
	CreatedByUserID      int64  `json:"createdByUserID"`
	CustomDays           *int   `json:"customDays,omitempty"`
}

// UpdateRequest is the payload for editing an existing request. Zero-valued
// ID fields mean "leave unchanged" on the backend side, so the bot always
// sends the full draft.
type UpdateRequest struct {
	Description          string  `json:"description"`
	ShopID               int64   `json:"shopID"`
	WorkCategoryID       int64   `json:"workCategoryID"`
	UrgencyID            int64   `json:"urgencyID"`
	AssignedContractorID int64   `json:"assignedContractorID"`
	Status               *string `json:"status,omitempty"`
	CustomDays           *int    `json:"customDays,omitempty"`
}
