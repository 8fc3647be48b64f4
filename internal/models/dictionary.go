package models

// Shop is a retail location a request can be filed for.
type Shop struct {
	ShopID   int64  `json:"shopID"`
	ShopName string `json:"shopName"`
}

// Contractor is a user who executes requests.
type Contractor struct {
	UserID int64  `json:"userID"`
	Login  string `json:"login"`
}

// WorkCategory classifies the kind of work requested.
type WorkCategory struct {
	WorkCategoryID   int64  `json:"workCategoryID"`
	WorkCategoryName string `json:"workCategoryName"`
}

// Urgency is a deadline category. Customizable urgencies carry no fixed
// day count; the user supplies one when selecting them.
type Urgency struct {
	UrgencyID    int64  `json:"urgencyID"`
	UrgencyName  string `json:"urgencyName"`
	DaysForTask  int    `json:"daysForTask"`
	Customizable bool   `json:"customizable"`
}
