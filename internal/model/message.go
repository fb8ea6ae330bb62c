package model

// APIResponse is the envelope every brokerage API endpoint returns
type APIResponse[T any] struct {
	Status  bool   `json:"status"`
	Message string `json:"message"`
	Data    T      `json:"data"`
}

// ApiMessage is an inbound message as the backend returns it
type ApiMessage struct {
	ID        int      `json:"id"`
	Phone     string   `json:"phone"`
	Username  string   `json:"username"`
	Type      string   `json:"type"`
	Message   string   `json:"message"`
	MediaType string   `json:"media_type"`
	MediaURLs []string `json:"media_urls"`
	SentAt    *string  `json:"sent_at"`
	CreatedAt string   `json:"created_at"`
	User      *User    `json:"user"`
}

// Message is the inbox row shown to staff
type Message struct {
	ID           int      `json:"id"`
	ContactName  string   `json:"contactName"`
	ContactPhone string   `json:"contactPhone"`
	Message      string   `json:"message"`
	SentAt       string   `json:"sentAt"`
	IsRead       bool     `json:"isRead"`
	Source       string   `json:"source"`   // WAP | Website
	Type         string   `json:"type"`     // Inventory | Request
	UserType     string   `json:"userType"` // New | Existing
	UserID       string   `json:"userId"`
	Replied      string   `json:"replied"` // Yes | No
	Status       string   `json:"status"`  // Listed | Not Listed
	MediaURLs    []string `json:"mediaUrls,omitempty"`
	MediaType    string   `json:"mediaType,omitempty"`
}

// PaginationMeta describes one page of messages
type PaginationMeta struct {
	CurrentPage int `json:"current_page"`
	TotalPages  int `json:"total_pages"`
	TotalCount  int `json:"total_count"`
	PerPage     int `json:"per_page"`
}

// MessagesResponse is one page of the inbox
type MessagesResponse struct {
	Messages []Message     `json:"messages"`
	Meta     PaginationMeta `json:"meta"`
}

// SortDirection orders the inbox
type SortDirection string

const (
	SortAsc  SortDirection = "asc"
	SortDesc SortDirection = "desc"
)

// MessageQuery holds column filters, sort and page for listing messages
type MessageQuery struct {
	ID          string        `form:"id"`
	ContactName string        `form:"contactName"`
	Message     string        `form:"message"`
	SentAt      string        `form:"sentAt"`
	Type        string        `form:"type"`
	UserID      string        `form:"userId"`
	SortColumn  string        `form:"sort"`
	SortDir     SortDirection `form:"direction"`
	Page        int           `form:"page"`
}

// BulkDeleteRequest lists messages to delete
type BulkDeleteRequest struct {
	IDs []int `json:"ids" binding:"required,min=1"`
}

// ReplyRequest is the text sent back to a contact
type ReplyRequest struct {
	Reply string `json:"reply" binding:"required"`
}

// MessageUpdateRequest edits the text of a stored message
type MessageUpdateRequest struct {
	Message string `json:"message" binding:"required"`
}
