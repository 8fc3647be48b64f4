package models

// Role names recognized by the bot when gating actions.
const (
	RoleRetailAdmin = "RetailAdmin"
	RoleContractor  = "Contractor"
)

// UserInfo is the backend's view of a bot user, resolved from the chat
// platform user ID.
type UserInfo struct {
	UserID     int64  `json:"userID"`
	Login      string `json:"login"`
	RoleName   string `json:"roleName"`
	TelegramID int64  `json:"telegramID"`
}

// ChatInfo binds a group chat to a shop/contractor pair. Requests created
// from a bound group chat inherit both references.
type ChatInfo struct {
	ChatID          int64  `json:"chatID"`
	ShopID          int64  `json:"shopID"`
	ShopName        string `json:"shopName"`
	ContractorID    int64  `json:"contractorID"`
	ContractorLogin string `json:"contractorLogin"`
}
