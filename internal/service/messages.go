package service

import (
	"context"
	"fmt"
	"net/http"
	"slices"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"intake/internal/config"
	apperrors "intake/internal/errors"
	"intake/internal/logging"
	"intake/internal/model"
)

const messagesPath = "/migrate/messages"

// sortable inbox columns
var messageColumns = map[string]func(m model.Message) string{
	"id":          func(m model.Message) string { return fmt.Sprintf("%012d", m.ID) },
	"contactName": func(m model.Message) string { return m.ContactName },
	"message":     func(m model.Message) string { return m.Message },
	"sentAt":      func(m model.Message) string { return m.SentAt },
	"source":      func(m model.Message) string { return m.Source },
	"type":        func(m model.Message) string { return m.Type },
	"userType":    func(m model.Message) string { return m.UserType },
	"userId":      func(m model.Message) string { return m.UserID },
	"replied":     func(m model.Message) string { return m.Replied },
	"status":      func(m model.Message) string { return m.Status },
}

// user created_at comes in either of these
var userTimeLayouts = []string{time.RFC3339Nano, "2006-01-02 15:04:05", "2006-01-02"}

// MessageService serves the inbound message inbox
type MessageService struct {
	backend     *BackendClient
	perPage     int
	newUserDays int
	now         func() time.Time
}

// NewMessageService creates the inbox service
func NewMessageService(backend *BackendClient, cfg *config.MessagesConfig) *MessageService {
	perPage := cfg.PerPage
	if perPage <= 0 {
		perPage = 20
	}
	days := cfg.NewUserDays
	if days <= 0 {
		days = 30
	}
	return &MessageService{backend: backend, perPage: perPage, newUserDays: days, now: time.Now}
}

// List fetches all messages, then filters, sorts and pages them
func (s *MessageService) List(ctx context.Context, q model.MessageQuery) (*model.MessagesResponse, error) {
	column, dir := q.SortColumn, q.SortDir
	if column == "" {
		column = "sentAt"
		if dir == "" {
			dir = model.SortDesc
		}
	}
	key, ok := messageColumns[column]
	if !ok {
		return nil, apperrors.NewValidationError("sort", column, "unknown sort column")
	}
	switch dir {
	case "":
		dir = model.SortAsc
	case model.SortAsc, model.SortDesc:
	default:
		return nil, apperrors.NewValidationError("direction", dir, "direction must be asc or desc")
	}

	var raw []model.ApiMessage
	if err := s.backend.Get(ctx, messagesPath, nil, &raw); err != nil {
		logging.FromContext(ctx).Error().Err(err).Msg("❌ Failed to fetch messages")
		return nil, err
	}

	messages := make([]model.Message, 0, len(raw))
	for _, m := range raw {
		msg := s.toMessage(m)
		if matchesQuery(msg, q) {
			messages = append(messages, msg)
		}
	}

	col := collate.New(language.English, collate.IgnoreCase)
	slices.SortStableFunc(messages, func(a, b model.Message) int {
		c := col.CompareString(key(a), key(b))
		if dir == model.SortDesc {
			return -c
		}
		return c
	})

	return s.page(messages, q.Page), nil
}

func (s *MessageService) page(messages []model.Message, page int) *model.MessagesResponse {
	if page < 1 {
		page = 1
	}
	total := len(messages)
	meta := model.PaginationMeta{
		CurrentPage: page,
		TotalPages:  (total + s.perPage - 1) / s.perPage,
		TotalCount:  total,
		PerPage:     s.perPage,
	}
	start := (page - 1) * s.perPage
	if start >= total {
		return &model.MessagesResponse{Messages: []model.Message{}, Meta: meta}
	}
	end := min(start+s.perPage, total)
	return &model.MessagesResponse{Messages: messages[start:end], Meta: meta}
}

// Get fetches one message
func (s *MessageService) Get(ctx context.Context, id int) (*model.Message, error) {
	var raw model.ApiMessage
	if err := s.backend.Get(ctx, fmt.Sprintf("%s/%d", messagesPath, id), nil, &raw); err != nil {
		if apperrors.IsNotFound(err) {
			return nil, apperrors.NewNotFoundError("message", strconv.Itoa(id))
		}
		return nil, err
	}
	msg := s.toMessage(raw)
	return &msg, nil
}

// Update replaces the text of a message
func (s *MessageService) Update(ctx context.Context, id int, text string) (*model.Message, error) {
	if strings.TrimSpace(text) == "" {
		return nil, apperrors.NewValidationError("message", text, "message is required")
	}
	var raw model.ApiMessage
	body := map[string]string{"message": text}
	if err := s.backend.Do(ctx, http.MethodPatch, fmt.Sprintf("/messages/%d", id), body, &raw); err != nil {
		return nil, err
	}
	msg := s.toMessage(raw)
	return &msg, nil
}

// Delete removes one message
func (s *MessageService) Delete(ctx context.Context, id int) error {
	if err := s.backend.Delete(ctx, fmt.Sprintf("/messages/%d", id), nil); err != nil {
		return err
	}
	logging.FromContext(ctx).Info().Int("id", id).Msg("🔧 Message deleted")
	return nil
}

// DeleteBulk removes several messages in one call
func (s *MessageService) DeleteBulk(ctx context.Context, ids []int) error {
	if len(ids) == 0 {
		return apperrors.NewValidationError("ids", ids, "no messages selected")
	}
	if err := s.backend.Post(ctx, "/messages/bulk-delete", map[string][]int{"ids": ids}, nil); err != nil {
		return err
	}
	logging.FromContext(ctx).Info().Ints("ids", ids).Msg("🔧 Messages deleted")
	return nil
}

// MarkRead flags a message as read
func (s *MessageService) MarkRead(ctx context.Context, id int) error {
	return s.backend.Post(ctx, fmt.Sprintf("/messages/%d/read", id), nil, nil)
}

// Reply sends text back to the contact of a message
func (s *MessageService) Reply(ctx context.Context, id int, text string) error {
	if strings.TrimSpace(text) == "" {
		return apperrors.NewValidationError("reply", text, "reply is required")
	}
	return s.backend.Post(ctx, fmt.Sprintf("/messages/%d/reply", id), map[string]string{"reply": text}, nil)
}

// toMessage derives the inbox row from a backend message
func (s *MessageService) toMessage(m model.ApiMessage) model.Message {
	msg := model.Message{
		ID:           m.ID,
		ContactName:  "Unknown User",
		ContactPhone: m.Phone,
		Message:      m.Message,
		SentAt:       m.CreatedAt,
		Source:       "Website",
		Type:         "Request",
		UserType:     "Existing",
		Replied:      "No",
		Status:       "Not Listed",
		MediaURLs:    m.MediaURLs,
		MediaType:    m.MediaType,
	}
	if strings.Contains(m.Phone, "+20") {
		msg.Source = "WAP"
	}
	if m.Type == "inventory" {
		msg.Type = "Inventory"
		msg.Status = "Listed"
	}
	if m.SentAt != nil && *m.SentAt != "" {
		msg.SentAt = *m.SentAt
	}
	text := strings.ToLower(m.Message)
	if strings.Contains(text, "replied") || strings.Contains(text, "contacted") {
		msg.Replied = "Yes"
	}

	switch {
	case m.User != nil && m.User.Name != "":
		msg.ContactName = m.User.Name
	case m.Username != "":
		msg.ContactName = m.Username
	}
	if m.User != nil {
		msg.UserID = "u" + strconv.Itoa(m.User.ID)
		if created, ok := parseUserTime(m.User.CreatedAt); ok && created.After(s.now().AddDate(0, 0, -s.newUserDays)) {
			msg.UserType = "New"
		}
	}
	return msg
}

func parseUserTime(s string) (time.Time, bool) {
	for _, layout := range userTimeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// matchesQuery applies the column filters: case-insensitive contains, with
// the contact filter also matching the phone number
func matchesQuery(m model.Message, q model.MessageQuery) bool {
	contains := func(value, filter string) bool {
		return filter == "" || strings.Contains(strings.ToLower(value), strings.ToLower(filter))
	}
	if !contains(strconv.Itoa(m.ID), q.ID) {
		return false
	}
	if q.ContactName != "" && !contains(m.ContactName, q.ContactName) && !strings.Contains(m.ContactPhone, q.ContactName) {
		return false
	}
	return contains(m.Message, q.Message) &&
		contains(m.SentAt, q.SentAt) &&
		contains(m.Type, q.Type) &&
		contains(m.UserID, q.UserID)
}
