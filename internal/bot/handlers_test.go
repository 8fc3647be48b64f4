package bot

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/vodchyts/repairdesk/internal/backend"
	"github.com/vodchyts/repairdesk/internal/chat"
	"github.com/vodchyts/repairdesk/internal/models"
)

func textUpdate(text string) chat.Update {
	return chat.Update{ChatID: 100, ChatType: chat.ChatPrivate, UserID: 42, MessageID: 10, Text: text}
}

func callbackUpdate(data string) chat.Update {
	return chat.Update{
		ChatID: 100, ChatType: chat.ChatPrivate, UserID: 42, MessageID: 11,
		Callback: &chat.Callback{ID: "cb-1", Data: data, MessageID: 11},
	}
}

func TestHandle_RequestsCommandRendersList(t *testing.T) {
	api := newMockAPI()
	api.listFn = func(q backend.ListQuery) (models.RequestPage, error) {
		return models.RequestPage{Content: makeRequests(1, 3), Last: true}, nil
	}
	b := newTestBot(t, api)

	b.Handle(context.Background(), textUpdate("/requests"))

	sent, ok := gwOf(b).LastSent()
	if !ok {
		t.Fatal("expected a list message")
	}
	if !strings.Contains(sent.Text, "Service requests") {
		t.Errorf("missing header: %q", sent.Text)
	}
	if !hasData(sent.Opts.Keyboard, "view_open_1") {
		t.Error("missing open button for request 1")
	}
	sess, _ := b.store.Peek(100)
	if sess.State != StateMainMenu {
		t.Errorf("state = %v, want StateMainMenu", sess.State)
	}
}

func TestHandle_EmptyListShowsMessageAndFilters(t *testing.T) {
	api := newMockAPI()
	b := newTestBot(t, api)

	b.Handle(context.Background(), textUpdate("/requests"))

	sent, _ := gwOf(b).LastSent()
	if !strings.Contains(sent.Text, "No requests found") {
		t.Errorf("missing empty message: %q", sent.Text)
	}
	if !strings.Contains(sent.Text, "requestID,desc") {
		t.Errorf("missing filter summary: %q", sent.Text)
	}
	for _, d := range flattenData(sent.Opts.Keyboard) {
		if strings.HasPrefix(d, "view_open_") {
			t.Errorf("empty list carries an open button %q", d)
		}
	}
}

func TestHandle_UnregisteredUserRejected(t *testing.T) {
	api := newMockAPI()
	api.userErr = fmt.Errorf("no such user")
	b := newTestBot(t, api)

	b.Handle(context.Background(), textUpdate("/requests"))

	sent, _ := gwOf(b).LastSent()
	if !strings.Contains(sent.Text, "not registered") {
		t.Errorf("expected a rejection, got %q", sent.Text)
	}
}

func TestHandle_QuickOpenCommand(t *testing.T) {
	api := newMockAPI()
	api.requests[17] = &models.Request{RequestID: 17, ShopName: "North", Status: models.StatusNew}
	b := newTestBot(t, api)

	b.Handle(context.Background(), textUpdate("/17"))

	sent, _ := gwOf(b).LastSent()
	if !strings.Contains(sent.Text, "17") || !strings.Contains(sent.Text, "North") {
		t.Errorf("expected the request card, got %q", sent.Text)
	}
	sess, _ := b.store.Peek(100)
	if sess.State != StateDetails || sess.CurrentRequestID != 17 {
		t.Errorf("state = %v id = %d, want details of 17", sess.State, sess.CurrentRequestID)
	}
}

func TestHandle_CancelClearsSession(t *testing.T) {
	api := newMockAPI()
	b := newTestBot(t, api)

	b.Handle(context.Background(), textUpdate("/requests"))
	if b.store.Len() != 1 {
		t.Fatal("expected an active session")
	}

	b.Handle(context.Background(), textUpdate("/cancel"))
	if b.store.Len() != 0 {
		t.Error("cancel must clear the session")
	}
}

func TestHandle_PageNavigationEditsInPlace(t *testing.T) {
	api := newMockAPI()
	api.listFn = func(q backend.ListQuery) (models.RequestPage, error) {
		return models.RequestPage{Content: makeRequests(1, 13), Last: true}, nil
	}
	b := newTestBot(t, api)

	b.Handle(context.Background(), textUpdate("/requests"))
	b.Handle(context.Background(), callbackUpdate("view_page_next"))

	edit, ok := gwOf(b).LastEdit()
	if !ok {
		t.Fatal("page turn must edit the existing message")
	}
	if !strings.Contains(edit.Text, "Page 2 of 3") {
		t.Errorf("expected page 2, got %q", edit.Text)
	}
	if len(gwOf(b).Sent()) != 1 {
		t.Errorf("page turn must not send a new message, sent %d", len(gwOf(b).Sent()))
	}
}

func TestHandle_PagePrevClampsAtZero(t *testing.T) {
	api := newMockAPI()
	api.listFn = func(q backend.ListQuery) (models.RequestPage, error) {
		return models.RequestPage{Content: makeRequests(1, 13), Last: true}, nil
	}
	b := newTestBot(t, api)

	b.Handle(context.Background(), textUpdate("/requests"))
	b.Handle(context.Background(), callbackUpdate("view_page_prev"))

	sess, _ := b.store.Peek(100)
	if sess.Filters.Page != 0 {
		t.Errorf("page = %d, want clamp at 0", sess.Filters.Page)
	}
}

func TestHandle_SearchFlow(t *testing.T) {
	api := newMockAPI()
	calls := 0
	api.listFn = func(q backend.ListQuery) (models.RequestPage, error) {
		calls++
		if calls > 1 && q.SearchTerm != "door" {
			t.Errorf("SearchTerm = %q, want door", q.SearchTerm)
		}
		return models.RequestPage{Last: true}, nil
	}
	b := newTestBot(t, api)

	b.Handle(context.Background(), textUpdate("/requests"))
	b.Handle(context.Background(), callbackUpdate("view_search_-"))

	sess, _ := b.store.Peek(100)
	if sess.State != StateSetSearchTerm {
		t.Fatalf("state = %v, want StateSetSearchTerm", sess.State)
	}
	prompt, _ := gwOf(b).LastSent()
	if !strings.Contains(prompt.Text, "search term") {
		t.Errorf("expected a prompt, got %q", prompt.Text)
	}

	b.Handle(context.Background(), textUpdate("door"))

	if sess.Filters.SearchTerm != "door" {
		t.Errorf("SearchTerm = %q, want door", sess.Filters.SearchTerm)
	}
	if calls != 2 {
		t.Errorf("backend calls = %d, want a refetch after the term changed", calls)
	}
	if len(gwOf(b).Deleted()) != 2 {
		t.Errorf("deleted %d messages, want the prompt and the user's input", len(gwOf(b).Deleted()))
	}
}

func TestHandle_ArchiveToggleResetsPageAndCache(t *testing.T) {
	api := newMockAPI()
	var lastQuery backend.ListQuery
	api.listFn = func(q backend.ListQuery) (models.RequestPage, error) {
		lastQuery = q
		return models.RequestPage{Content: makeRequests(1, 13), Last: true}, nil
	}
	b := newTestBot(t, api)

	b.Handle(context.Background(), textUpdate("/requests"))
	b.Handle(context.Background(), callbackUpdate("view_page_next"))
	b.Handle(context.Background(), callbackUpdate("view_archive_-"))

	sess, _ := b.store.Peek(100)
	if !sess.Filters.Archived {
		t.Error("archive toggle did not flip")
	}
	if sess.Filters.Page != 0 {
		t.Errorf("page = %d, want reset to 0 on filter change", sess.Filters.Page)
	}
	if !lastQuery.Archived {
		t.Error("refetch did not carry the archived flag")
	}
}

func TestHandle_SortFlowAddsSecondKey(t *testing.T) {
	api := newMockAPI()
	b := newTestBot(t, api)

	b.Handle(context.Background(), textUpdate("/requests"))
	b.Handle(context.Background(), callbackUpdate("view_sort_-"))
	b.Handle(context.Background(), callbackUpdate("sort_field_shopName"))
	b.Handle(context.Background(), callbackUpdate("sort_asc_shopName"))

	sess, _ := b.store.Peek(100)
	if len(sess.Filters.Sort) != 2 {
		t.Fatalf("sort keys = %d, want default plus shopName", len(sess.Filters.Sort))
	}
	if sess.Filters.Sort[1].Field != "shopName" || sess.Filters.Sort[1].Desc {
		t.Errorf("second key = %+v, want shopName ascending", sess.Filters.Sort[1])
	}

	// Re-picking the same field replaces in place, never duplicates.
	b.Handle(context.Background(), callbackUpdate("sort_field_shopName"))
	b.Handle(context.Background(), callbackUpdate("sort_desc_shopName"))
	if len(sess.Filters.Sort) != 2 {
		t.Errorf("sort keys = %d after re-pick, want 2", len(sess.Filters.Sort))
	}
	if !sess.Filters.Sort[1].Desc {
		t.Error("direction change did not apply")
	}

	b.Handle(context.Background(), callbackUpdate("sort_done_-"))
	if sess.State != StateMainMenu {
		t.Errorf("state = %v, want back in the list", sess.State)
	}
}

func TestHandle_SortRemoveRestoresDefault(t *testing.T) {
	api := newMockAPI()
	b := newTestBot(t, api)

	b.Handle(context.Background(), textUpdate("/requests"))
	b.Handle(context.Background(), callbackUpdate("view_sort_-"))
	b.Handle(context.Background(), callbackUpdate("sort_remove_requestID"))

	sess, _ := b.store.Peek(100)
	if len(sess.Filters.Sort) != 1 || sess.Filters.Sort[0].Field != defaultSortField {
		t.Errorf("sort = %+v, want the default key restored", sess.Filters.Sort)
	}
}

func TestHandle_CompleteGatedByRole(t *testing.T) {
	api := newMockAPI()
	api.user = &models.UserInfo{UserID: 7, Login: "jdoe", RoleName: models.RoleContractor, TelegramID: 42}
	api.requests[5] = &models.Request{
		RequestID: 5, Status: models.StatusInWork, AssignedContractorID: 7,
	}
	b := newTestBot(t, api)

	b.Handle(context.Background(), textUpdate("/5"))
	b.Handle(context.Background(), callbackUpdate("act_complete_5"))

	if api.requests[5].Status != models.StatusDone {
		t.Errorf("status = %q, want Done", api.requests[5].Status)
	}
}

func TestHandle_CompleteRejectedForUnassigned(t *testing.T) {
	api := newMockAPI()
	api.user = &models.UserInfo{UserID: 99, Login: "other", RoleName: models.RoleContractor, TelegramID: 42}
	api.requests[5] = &models.Request{
		RequestID: 5, Status: models.StatusInWork, AssignedContractorID: 7,
	}
	b := newTestBot(t, api)

	b.Handle(context.Background(), textUpdate("/5"))
	b.Handle(context.Background(), callbackUpdate("act_complete_5"))

	if api.requests[5].Status != models.StatusInWork {
		t.Error("unassigned contractor must not complete the request")
	}
	cbs := gwOf(b).Callbacks()
	last := cbs[len(cbs)-1]
	if !last.Alert || !strings.Contains(last.Text, "cannot") {
		t.Errorf("expected an alert rejection, got %+v", last)
	}
}

func TestHandle_AddCommentFlow(t *testing.T) {
	api := newMockAPI()
	api.requests[5] = &models.Request{RequestID: 5, Status: models.StatusNew}
	b := newTestBot(t, api)

	b.Handle(context.Background(), textUpdate("/5"))
	b.Handle(context.Background(), callbackUpdate("act_addcomment_5"))

	sess, _ := b.store.Peek(100)
	if sess.State != StateAddComment {
		t.Fatalf("state = %v, want StateAddComment", sess.State)
	}

	b.Handle(context.Background(), textUpdate("will fix tomorrow"))

	if len(api.addedComments) != 1 || api.addedComments[0] != "will fix tomorrow" {
		t.Errorf("comments = %v, want the posted text", api.addedComments)
	}
	if sess.State != StateDetails {
		t.Errorf("state = %v, want back on the card", sess.State)
	}
	if len(gwOf(b).Deleted()) != 2 {
		t.Errorf("deleted %d messages, want prompt and input gone", len(gwOf(b).Deleted()))
	}
}

func TestHandle_NewRequestDeniedForContractor(t *testing.T) {
	api := newMockAPI()
	api.user = &models.UserInfo{UserID: 7, RoleName: models.RoleContractor, TelegramID: 42}
	b := newTestBot(t, api)

	b.Handle(context.Background(), textUpdate("/newrequest"))

	sent, _ := gwOf(b).LastSent()
	if !strings.Contains(sent.Text, "retail administrators") {
		t.Errorf("expected a role rejection, got %q", sent.Text)
	}
}

func TestHandle_CreateFlowEndToEnd(t *testing.T) {
	api := newMockAPI()
	b := newTestBot(t, api)
	ctx := context.Background()

	b.Handle(ctx, textUpdate("/newrequest"))

	sess, _ := b.store.Peek(100)
	if sess.State != StateEditorMain || sess.Mode != ModeCreate {
		t.Fatalf("state = %v mode = %v, want create editor", sess.State, sess.Mode)
	}

	b.Handle(ctx, callbackUpdate("edit_field_shop"))
	b.Handle(ctx, callbackUpdate("shop_select_1"))
	b.Handle(ctx, callbackUpdate("edit_field_contractor"))
	b.Handle(ctx, callbackUpdate("contractor_select_7"))
	b.Handle(ctx, callbackUpdate("edit_field_work"))
	b.Handle(ctx, callbackUpdate("work_select_3"))
	b.Handle(ctx, callbackUpdate("edit_field_urgency"))
	b.Handle(ctx, callbackUpdate("urgency_select_4"))
	b.Handle(ctx, callbackUpdate("edit_field_desc"))
	b.Handle(ctx, textUpdate("door is broken"))

	if !sess.Draft.Ready() {
		t.Fatalf("draft not ready: %+v", sess.Draft)
	}

	b.Handle(ctx, callbackUpdate("edit_save_-"))

	if len(api.created) != 1 {
		t.Fatalf("created %d requests, want 1", len(api.created))
	}
	got := api.created[0]
	if got.ShopID != 1 || got.AssignedContractorID != 7 || got.WorkCategoryID != 3 ||
		got.UrgencyID != 4 || got.Description != "door is broken" {
		t.Errorf("payload = %+v", got)
	}
	if got.CustomDays != nil {
		t.Error("fixed urgency must not carry custom days")
	}
	if sess.State != StateDetails {
		t.Errorf("state = %v, want the new request's card", sess.State)
	}
}

func TestHandle_CustomUrgencyChainsDaysPrompt(t *testing.T) {
	api := newMockAPI()
	b := newTestBot(t, api)
	ctx := context.Background()

	b.Handle(ctx, textUpdate("/newrequest"))
	b.Handle(ctx, callbackUpdate("edit_field_urgency"))
	b.Handle(ctx, callbackUpdate("urgency_select_5"))

	sess, _ := b.store.Peek(100)
	if sess.State != StateInputText || sess.Input != InputCustomDays {
		t.Fatalf("state = %v input = %v, want custom-days prompt", sess.State, sess.Input)
	}

	// Out-of-range input re-prompts without losing the editor.
	b.Handle(ctx, textUpdate("999"))
	if sess.State != StateInputText {
		t.Fatal("invalid days must keep prompting")
	}
	prompt, _ := gwOf(b).LastSent()
	if !strings.Contains(prompt.Text, "not a valid number") {
		t.Errorf("expected a re-prompt, got %q", prompt.Text)
	}

	b.Handle(ctx, textUpdate("14"))
	if sess.State != StateEditorMain {
		t.Fatalf("state = %v, want back in the editor", sess.State)
	}
	if sess.Draft.CustomDays == nil || *sess.Draft.CustomDays != 14 {
		t.Errorf("CustomDays = %v, want 14", sess.Draft.CustomDays)
	}
}

func TestHandle_GroupChatPrefillsDraft(t *testing.T) {
	api := newMockAPI()
	api.chatInfo = &models.ChatInfo{
		ChatID: -200, ShopID: 2, ShopName: "South", ContractorID: 7, ContractorLogin: "jdoe",
	}
	b := newTestBot(t, api)

	b.Handle(context.Background(), chat.Update{
		ChatID: -200, ChatType: chat.ChatSupergroup, UserID: 42, Text: "/newrequest",
	})

	sess, _ := b.store.Peek(-200)
	if sess.Draft.ShopID != 2 || sess.Draft.ContractorID != 7 {
		t.Errorf("draft = %+v, want shop and contractor prefilled", sess.Draft)
	}
}

func TestHandle_UnboundGroupChatRefused(t *testing.T) {
	api := newMockAPI()
	b := newTestBot(t, api)

	b.Handle(context.Background(), chat.Update{
		ChatID: -200, ChatType: chat.ChatGroup, UserID: 42, Text: "/newrequest",
	})

	sent, _ := gwOf(b).LastSent()
	if !strings.Contains(sent.Text, "not linked") {
		t.Errorf("expected a refusal, got %q", sent.Text)
	}
	sess, _ := b.store.Peek(-200)
	if sess.State == StateEditorMain {
		t.Error("unbound group chat must not enter the editor")
	}
}

func TestHandle_EditFlowSeedsAndSaves(t *testing.T) {
	api := newMockAPI()
	api.requests[5] = &models.Request{
		RequestID: 5, Description: "old", ShopID: 1, ShopName: "North",
		AssignedContractorID: 7, AssignedContractorName: "jdoe",
		WorkCategoryID: 3, WorkCategoryName: "Plumbing",
		UrgencyID: 4, UrgencyName: "High", Status: models.StatusNew,
	}
	b := newTestBot(t, api)
	ctx := context.Background()

	b.Handle(ctx, textUpdate("/5"))
	b.Handle(ctx, callbackUpdate("act_edit_5"))

	sess, _ := b.store.Peek(100)
	if sess.Mode != ModeEdit || sess.Draft.Description != "old" {
		t.Fatalf("draft = %+v, want seeded from the request", sess.Draft)
	}

	b.Handle(ctx, callbackUpdate("edit_field_status"))
	b.Handle(ctx, callbackUpdate("status_select_1"))
	b.Handle(ctx, callbackUpdate("edit_save_-"))

	payload, ok := api.updated[5]
	if !ok {
		t.Fatal("update was not sent")
	}
	if payload.Status == nil || *payload.Status != models.StatusInWork {
		t.Errorf("status = %v, want In work", payload.Status)
	}
}

func TestHandle_EditorCancelReturnsToCard(t *testing.T) {
	api := newMockAPI()
	api.requests[5] = &models.Request{RequestID: 5, Status: models.StatusNew}
	b := newTestBot(t, api)
	ctx := context.Background()

	b.Handle(ctx, textUpdate("/5"))
	b.Handle(ctx, callbackUpdate("act_edit_5"))
	b.Handle(ctx, callbackUpdate("edit_cancel_-"))

	sess, _ := b.store.Peek(100)
	if sess.State != StateDetails || sess.Draft != nil {
		t.Errorf("state = %v draft = %v, want back on the card with no draft", sess.State, sess.Draft)
	}
}

func TestHandle_FreeTextOutsideFlowIgnored(t *testing.T) {
	api := newMockAPI()
	b := newTestBot(t, api)

	b.Handle(context.Background(), textUpdate("hello there"))

	if len(gwOf(b).Sent()) != 0 {
		t.Error("free text with no session must be ignored")
	}
	if b.store.Len() != 0 {
		t.Error("free text must not create a session")
	}
}

func TestHandle_ChatIDCommand(t *testing.T) {
	api := newMockAPI()
	b := newTestBot(t, api)

	b.Handle(context.Background(), textUpdate("/chatid"))

	sent, _ := gwOf(b).LastSent()
	if !strings.Contains(sent.Text, "100") {
		t.Errorf("expected the chat ID, got %q", sent.Text)
	}
}

func TestParseCallback(t *testing.T) {
	cases := []struct {
		data                  string
		prefix, action, value string
	}{
		{"view_page_next", "view", "page", "next"},
		{"view_open_17", "view", "open", "17"},
		{"sort_field_shopName", "sort", "field", "shopName"},
		{"edit_save_-", "edit", "save", "-"},
		{"act_back_list", "act", "back", "list"},
		{"noop", "noop", "", ""},
	}
	for _, tc := range cases {
		p, a, v := parseCallback(tc.data)
		if p != tc.prefix || a != tc.action || v != tc.value {
			t.Errorf("parseCallback(%q) = (%q, %q, %q), want (%q, %q, %q)",
				tc.data, p, a, v, tc.prefix, tc.action, tc.value)
		}
	}
}
