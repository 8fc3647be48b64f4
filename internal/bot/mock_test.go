package bot

import (
	"context"
	"fmt"
	"testing"

	"github.com/vodchyts/repairdesk/internal/backend"
	"github.com/vodchyts/repairdesk/internal/chat"
	"github.com/vodchyts/repairdesk/internal/models"
)

// mockAPI implements backend.API in memory for handler tests.
type mockAPI struct {
	user    *models.UserInfo
	userErr error

	chatInfo    *models.ChatInfo
	chatInfoErr error

	listFn func(q backend.ListQuery) (models.RequestPage, error)

	requests map[int64]*models.Request
	created  []models.CreateRequest
	updated  map[int64]models.UpdateRequest

	comments      []models.Comment
	addedComments []string

	photoIDs []int64
	photos   map[int64][]byte
	uploads  [][][]byte

	shops       []models.Shop
	contractors []models.Contractor
	works       []models.WorkCategory
	urgencies   []models.Urgency
}

var _ backend.API = (*mockAPI)(nil)

func newMockAPI() *mockAPI {
	return &mockAPI{
		user:     &models.UserInfo{UserID: 1, Login: "admin", RoleName: models.RoleRetailAdmin, TelegramID: 42},
		requests: make(map[int64]*models.Request),
		updated:  make(map[int64]models.UpdateRequest),
		photos:   make(map[int64][]byte),
		listFn: func(q backend.ListQuery) (models.RequestPage, error) {
			return models.RequestPage{Last: true}, nil
		},
		shops:       []models.Shop{{ShopID: 1, ShopName: "North"}, {ShopID: 2, ShopName: "South"}},
		contractors: []models.Contractor{{UserID: 7, Login: "jdoe"}},
		works:       []models.WorkCategory{{WorkCategoryID: 3, WorkCategoryName: "Plumbing"}},
		urgencies: []models.Urgency{
			{UrgencyID: 4, UrgencyName: "High", DaysForTask: 2},
			{UrgencyID: 5, UrgencyName: "Custom", Customizable: true},
		},
	}
}

func (m *mockAPI) GetUserByTelegramID(ctx context.Context, telegramID int64) (*models.UserInfo, error) {
	if m.userErr != nil {
		return nil, m.userErr
	}
	return m.user, nil
}

func (m *mockAPI) GetChatInfo(ctx context.Context, chatID int64) (*models.ChatInfo, error) {
	if m.chatInfoErr != nil {
		return nil, m.chatInfoErr
	}
	if m.chatInfo == nil {
		return nil, fmt.Errorf("chat %d not bound", chatID)
	}
	return m.chatInfo, nil
}

func (m *mockAPI) ListRequests(ctx context.Context, q backend.ListQuery) (*models.RequestPage, error) {
	page, err := m.listFn(q)
	if err != nil {
		return nil, err
	}
	return &page, nil
}

func (m *mockAPI) GetRequest(ctx context.Context, telegramID, requestID int64) (*models.Request, error) {
	r, ok := m.requests[requestID]
	if !ok {
		return nil, fmt.Errorf("request %d not found", requestID)
	}
	return r, nil
}

func (m *mockAPI) CreateRequest(ctx context.Context, payload models.CreateRequest) (*models.Request, error) {
	m.created = append(m.created, payload)
	r := &models.Request{
		RequestID:   int64(1000 + len(m.created)),
		Description: payload.Description,
		ShopID:      payload.ShopID,
		Status:      models.StatusNew,
	}
	m.requests[r.RequestID] = r
	return r, nil
}

func (m *mockAPI) UpdateRequest(ctx context.Context, requestID int64, payload models.UpdateRequest) (*models.Request, error) {
	r, ok := m.requests[requestID]
	if !ok {
		return nil, fmt.Errorf("request %d not found", requestID)
	}
	m.updated[requestID] = payload
	return r, nil
}

func (m *mockAPI) CompleteRequest(ctx context.Context, telegramID, requestID int64) (*models.Request, error) {
	r, ok := m.requests[requestID]
	if !ok {
		return nil, fmt.Errorf("request %d not found", requestID)
	}
	r.Status = models.StatusDone
	return r, nil
}

func (m *mockAPI) ListComments(ctx context.Context, requestID int64) ([]models.Comment, error) {
	return m.comments, nil
}

func (m *mockAPI) AddComment(ctx context.Context, requestID, telegramID int64, text string) (*models.Comment, error) {
	m.addedComments = append(m.addedComments, text)
	return &models.Comment{CommentID: int64(len(m.addedComments)), CommentText: text}, nil
}

func (m *mockAPI) DeleteComment(ctx context.Context, requestID, commentID int64) error {
	return nil
}

func (m *mockAPI) ListPhotoIDs(ctx context.Context, requestID int64) ([]int64, error) {
	return m.photoIDs, nil
}

func (m *mockAPI) GetPhoto(ctx context.Context, photoID int64) ([]byte, error) {
	data, ok := m.photos[photoID]
	if !ok {
		return nil, fmt.Errorf("photo %d not found", photoID)
	}
	return data, nil
}

func (m *mockAPI) UploadPhotos(ctx context.Context, requestID, telegramID int64, photos [][]byte) error {
	m.uploads = append(m.uploads, photos)
	return nil
}

func (m *mockAPI) DeletePhoto(ctx context.Context, requestID, photoID int64) error {
	return nil
}

func (m *mockAPI) ListShops(ctx context.Context) ([]models.Shop, error) {
	return m.shops, nil
}

func (m *mockAPI) ListContractors(ctx context.Context) ([]models.Contractor, error) {
	return m.contractors, nil
}

func (m *mockAPI) ListWorkCategories(ctx context.Context) ([]models.WorkCategory, error) {
	return m.works, nil
}

func (m *mockAPI) ListUrgencies(ctx context.Context) ([]models.Urgency, error) {
	return m.urgencies, nil
}

// newTestBot wires a Bot to the mock API and a MockGateway.
func newTestBot(t *testing.T, api *mockAPI) *Bot {
	t.Helper()
	b, err := New(Opts{API: api, Gateway: chat.NewMockGateway(), Out: discard{}})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return b
}

// gwOf unwraps the mock gateway behind a test bot.
func gwOf(b *Bot) *chat.MockGateway {
	return b.gw.(*chat.MockGateway)
}

type discard struct{}

func (discard) Write(p []byte) (int, error) { return len(p), nil }
