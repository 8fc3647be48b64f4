package models

import "time"

// Comment is an append-only note on a request.
type Comment struct {
	CommentID   int64     `json:"commentID"`
	UserLogin   string    `json:"userLogin"`
	CommentText string    `json:"commentText"`
	CreatedAt   time.Time `json:"createdAt"`
}
