// Package backend is the typed client for the repairdesk backend REST API.
// Every call returns a parsed value or an error; callers treat any error
// uniformly as "operation failed" — no finer-grained classification is
// surfaced past this package.
package backend

import (
	"context"

	"github.com/vodchyts/repairdesk/internal/models"
)

// API is the backend surface consumed by the conversation engine. It exists
// so handlers can be tested against a mock without a live backend.
type API interface {
	// User and chat resolution.
	GetUserByTelegramID(ctx context.Context, telegramID int64) (*models.UserInfo, error)
	GetChatInfo(ctx context.Context, chatID int64) (*models.ChatInfo, error)

	// Requests.
	ListRequests(ctx context.Context, q ListQuery) (*models.RequestPage, error)
	GetRequest(ctx context.Context, telegramID, requestID int64) (*models.Request, error)
	CreateRequest(ctx context.Context, payload models.CreateRequest) (*models.Request, error)
	UpdateRequest(ctx context.Context, requestID int64, payload models.UpdateRequest) (*models.Request, error)
	CompleteRequest(ctx context.Context, telegramID, requestID int64) (*models.Request, error)

	// Comments.
	ListComments(ctx context.Context, requestID int64) ([]models.Comment, error)
	AddComment(ctx context.Context, requestID, telegramID int64, text string) (*models.Comment, error)
	DeleteComment(ctx context.Context, requestID, commentID int64) error

	// Photos.
	ListPhotoIDs(ctx context.Context, requestID int64) ([]int64, error)
	GetPhoto(ctx context.Context, photoID int64) ([]byte, error)
	UploadPhotos(ctx context.Context, requestID, telegramID int64, photos [][]byte) error
	DeletePhoto(ctx context.Context, requestID, photoID int64) error

	// Reference dictionaries.
	ListShops(ctx context.Context) ([]models.Shop, error)
	ListContractors(ctx context.Context) ([]models.Contractor, error)
	ListWorkCategories(ctx context.Context) ([]models.WorkCategory, error)
	ListUrgencies(ctx context.Context) ([]models.Urgency, error)
}

// ListQuery carries the filter parameters for the paged request list.
// Encoded with go-querystring; the sort list is order-sensitive.
type ListQuery struct {
	TelegramID int64    `url:"telegramId"`
	Archived   bool     `url:"archived"`
	SearchTerm string   `url:"searchTerm,omitempty"`
	Sort       []string `url:"sort,omitempty"`
	Page       int      `url:"page"`
	Size       int      `url:"size"`
}
