package service

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"intake/internal/config"
	apperrors "intake/internal/errors"
	"intake/internal/model"
)

const inboxFixture = `{"status":true,"message":"ok","data":[
	{"id":1,"phone":"+201001234567","username":"sara","type":"inventory","message":"Villa for rent, owner contacted",
	 "sent_at":"2025-02-10T09:00:00Z","created_at":"2025-02-10T08:59:00Z",
	 "user":{"id":7,"name":"Sara Ali","created_at":"2025-02-20T10:00:00Z"}},
	{"id":2,"phone":"01112223334","username":"mo","type":"request","message":"Need apartment in Maadi",
	 "sent_at":null,"created_at":"2025-02-12T12:00:00Z","user":null},
	{"id":3,"phone":"+447700900000","username":"","type":"request","message":"Studio wanted",
	 "sent_at":"2025-02-11T15:30:00Z","created_at":"2025-02-11T15:30:00Z",
	 "user":{"id":9,"name":"","created_at":"2023-06-01 10:00:00"}}
]}`

func newTestMessages(rt roundTripperFunc) *MessageService {
	svc := NewMessageService(newTestBackend(rt), &config.MessagesConfig{PerPage: 2, NewUserDays: 30})
	svc.now = func() time.Time { return time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC) }
	return svc
}

func inboxBackend(t *testing.T) roundTripperFunc {
	return func(req *http.Request) (*http.Response, error) {
		assert.Equal(t, "/api/migrate/messages", req.URL.Path)
		return jsonResponse(http.StatusOK, inboxFixture), nil
	}
}

func TestMessageMapping(t *testing.T) {
	svc := newTestMessages(inboxBackend(t))

	resp, err := svc.List(context.Background(), model.MessageQuery{SortColumn: "id", SortDir: model.SortAsc})
	require.NoError(t, err)
	require.Len(t, resp.Messages, 2)

	first := resp.Messages[0]
	assert.Equal(t, "Sara Ali", first.ContactName)
	assert.Equal(t, "WAP", first.Source)
	assert.Equal(t, "Inventory", first.Type)
	assert.Equal(t, "Listed", first.Status)
	assert.Equal(t, "Yes", first.Replied)
	assert.Equal(t, "New", first.UserType)
	assert.Equal(t, "u7", first.UserID)
	assert.Equal(t, "2025-02-10T09:00:00Z", first.SentAt)

	second := resp.Messages[1]
	assert.Equal(t, "mo", second.ContactName)
	assert.Equal(t, "Website", second.Source)
	assert.Equal(t, "Request", second.Type)
	assert.Equal(t, "Not Listed", second.Status)
	assert.Equal(t, "No", second.Replied)
	assert.Equal(t, "Existing", second.UserType)
	assert.Empty(t, second.UserID)
	assert.Equal(t, "2025-02-12T12:00:00Z", second.SentAt, "falls back to created_at")

	assert.Equal(t, model.PaginationMeta{CurrentPage: 1, TotalPages: 2, TotalCount: 3, PerPage: 2}, resp.Meta)

	resp, err = svc.List(context.Background(), model.MessageQuery{SortColumn: "id", SortDir: model.SortAsc, Page: 2})
	require.NoError(t, err)
	require.Len(t, resp.Messages, 1)
	third := resp.Messages[0]
	assert.Equal(t, "Unknown User", third.ContactName)
	assert.Equal(t, "Existing", third.UserType)
	assert.Equal(t, "u9", third.UserID)
}

func TestMessageListDefaultSort(t *testing.T) {
	svc := newTestMessages(inboxBackend(t))

	resp, err := svc.List(context.Background(), model.MessageQuery{})
	require.NoError(t, err)
	require.Len(t, resp.Messages, 2)
	assert.Equal(t, 2, resp.Messages[0].ID)
	assert.Equal(t, 3, resp.Messages[1].ID)
}

func TestMessageFilters(t *testing.T) {
	tests := []struct {
		name  string
		query model.MessageQuery
		want  []int
	}{
		{name: "contact name", query: model.MessageQuery{ContactName: "sara"}, want: []int{1}},
		{name: "contact phone", query: model.MessageQuery{ContactName: "0111"}, want: []int{2}},
		{name: "message text", query: model.MessageQuery{Message: "STUDIO"}, want: []int{3}},
		{name: "type", query: model.MessageQuery{Type: "request"}, want: []int{2, 3}},
		{name: "user id", query: model.MessageQuery{UserID: "u9"}, want: []int{3}},
		{name: "sent date", query: model.MessageQuery{SentAt: "2025-02-1"}, want: []int{1, 2, 3}},
		{name: "id", query: model.MessageQuery{ID: "2"}, want: []int{2}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newTestMessages(inboxBackend(t))
			svc.perPage = 20
			tt.query.SortColumn = "id"
			tt.query.SortDir = model.SortAsc

			resp, err := svc.List(context.Background(), tt.query)
			require.NoError(t, err)
			var ids []int
			for _, m := range resp.Messages {
				ids = append(ids, m.ID)
			}
			assert.Equal(t, tt.want, ids)
		})
	}
}

func TestMessageListRejectsBadSort(t *testing.T) {
	svc := newTestMessages(inboxBackend(t))
	_, err := svc.List(context.Background(), model.MessageQuery{SortColumn: "colour"})
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
	_, err = svc.List(context.Background(), model.MessageQuery{SortColumn: "id", SortDir: "sideways"})
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
}

func TestMessageActions(t *testing.T) {
	type call struct {
		method string
		path   string
		body   map[string]any
	}
	var calls []call
	svc := newTestMessages(func(req *http.Request) (*http.Response, error) {
		c := call{method: req.Method, path: req.URL.Path}
		if req.Body != nil {
			raw, _ := io.ReadAll(req.Body)
			_ = json.Unmarshal(raw, &c.body)
		}
		calls = append(calls, c)
		return jsonResponse(http.StatusOK, `{"status":true,"data":null}`), nil
	})
	ctx := context.Background()

	require.NoError(t, svc.Delete(ctx, 4))
	require.NoError(t, svc.DeleteBulk(ctx, []int{4, 5}))
	require.NoError(t, svc.MarkRead(ctx, 6))
	require.NoError(t, svc.Reply(ctx, 6, "Thanks, we will call you"))

	require.Len(t, calls, 4)
	assert.Equal(t, call{method: http.MethodDelete, path: "/api/messages/4"}, calls[0])
	assert.Equal(t, "/api/messages/bulk-delete", calls[1].path)
	assert.Equal(t, []any{float64(4), float64(5)}, calls[1].body["ids"])
	assert.Equal(t, "/api/messages/6/read", calls[2].path)
	assert.Equal(t, "Thanks, we will call you", calls[3].body["reply"])

	assert.ErrorIs(t, svc.Reply(ctx, 6, "  "), apperrors.ErrInvalidInput)
	assert.ErrorIs(t, svc.DeleteBulk(ctx, nil), apperrors.ErrInvalidInput)
	assert.Len(t, calls, 4)
}

func TestMessageGet(t *testing.T) {
	svc := newTestMessages(func(req *http.Request) (*http.Response, error) {
		if req.URL.Path == "/api/migrate/messages/1" {
			return jsonResponse(http.StatusOK, `{"status":true,"data":{"id":1,"phone":"+20100","type":"inventory","message":"hi","created_at":"2025-01-01"}}`), nil
		}
		return jsonResponse(http.StatusNotFound, `{"status":false,"message":"Message not found"}`), nil
	})

	msg, err := svc.Get(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, "WAP", msg.Source)
	assert.Equal(t, "Unknown User", msg.ContactName)

	_, err = svc.Get(context.Background(), 2)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}
