package bot

import (
	"fmt"
	"strings"
	"testing"

	"github.com/vodchyts/repairdesk/internal/chat"
	"github.com/vodchyts/repairdesk/internal/models"
)

func flattenData(kb chat.Keyboard) []string {
	var out []string
	for _, row := range kb {
		for _, b := range row {
			out = append(out, b.Data)
		}
	}
	return out
}

func hasData(kb chat.Keyboard, data string) bool {
	for _, d := range flattenData(kb) {
		if d == data {
			return true
		}
	}
	return false
}

func TestMainMenuKeyboard_NavOnlyWhenApplicable(t *testing.T) {
	page := makeRequests(1, 6)

	kb := mainMenuKeyboard(page, 0, 3, DefaultFilters())
	if hasData(kb, "view_page_prev") {
		t.Error("first page must not offer prev")
	}
	if !hasData(kb, "view_page_next") {
		t.Error("first of three pages must offer next")
	}

	kb = mainMenuKeyboard(page, 2, 3, DefaultFilters())
	if !hasData(kb, "view_page_prev") {
		t.Error("last page must offer prev")
	}
	if hasData(kb, "view_page_next") {
		t.Error("last page must not offer next")
	}
}

func TestMainMenuKeyboard_DetailButtonsPerRequest(t *testing.T) {
	page := makeRequests(10, 3)
	kb := mainMenuKeyboard(page, 0, 1, DefaultFilters())
	for _, id := range []int64{10, 11, 12} {
		if !hasData(kb, fmt.Sprintf("view_open_%d", id)) {
			t.Errorf("missing open button for request %d", id)
		}
	}
}

func TestMainMenuKeyboard_EmptyListHasNoDetailButtons(t *testing.T) {
	kb := mainMenuKeyboard(nil, 0, 0, DefaultFilters())
	for _, d := range flattenData(kb) {
		if strings.HasPrefix(d, "view_open_") {
			t.Errorf("empty list must have no open buttons, found %q", d)
		}
	}
	if !hasData(kb, "view_search_-") || !hasData(kb, "view_reset_-") {
		t.Error("filter controls must remain on an empty list")
	}
}

func TestMainMenuKeyboard_ArchiveToggleLabel(t *testing.T) {
	f := DefaultFilters()
	kb := mainMenuKeyboard(nil, 0, 0, f)
	found := false
	for _, row := range kb {
		for _, b := range row {
			if b.Data == "view_archive_-" && strings.Contains(b.Text, "Archive") {
				found = true
			}
		}
	}
	if !found {
		t.Error("unarchived view should offer the Archive toggle")
	}
}

func TestSortFieldKeyboard_Markers(t *testing.T) {
	f := DefaultFilters()
	f.SetSort("shopName", false)

	kb := sortFieldKeyboard(f)
	var labels []string
	for _, row := range kb {
		for _, b := range row {
			labels = append(labels, b.Text)
		}
	}
	joined := strings.Join(labels, "|")
	if !strings.Contains(joined, "1. Number ↓") {
		t.Errorf("default sort should show as position 1 descending: %s", joined)
	}
	if !strings.Contains(joined, "2. Shop ↑") {
		t.Errorf("added sort should show as position 2 ascending: %s", joined)
	}
}

func TestPickerKeyboard_Layout(t *testing.T) {
	items := make([]pickerItem, 11)
	for i := range items {
		items[i] = pickerItem{ID: int64(i + 1), Label: fmt.Sprintf("item %d", i+1)}
	}

	kb := pickerKeyboard("shop", items, 0)
	// 8 items in rows of 2 plus nav plus back.
	var selects int
	for _, d := range flattenData(kb) {
		if strings.HasPrefix(d, "shop_select_") {
			selects++
		}
	}
	if selects != 8 {
		t.Errorf("page 0 shows %d items, want 8", selects)
	}
	for _, row := range kb {
		if strings.HasPrefix(row[0].Data, "shop_select_") && len(row) > 2 {
			t.Errorf("picker rows hold at most 2 items, got %d", len(row))
		}
	}
	if !hasData(kb, "shop_page_1") {
		t.Error("page 0 of 2 must offer next")
	}
	if hasData(kb, "shop_page_-1") {
		t.Error("page 0 must not offer prev")
	}

	kb = pickerKeyboard("shop", items, 1)
	selects = 0
	for _, d := range flattenData(kb) {
		if strings.HasPrefix(d, "shop_select_") {
			selects++
		}
	}
	if selects != 3 {
		t.Errorf("page 1 shows %d items, want the trailing 3", selects)
	}
	if !hasData(kb, "shop_page_0") {
		t.Error("page 1 must offer prev")
	}
	if !hasData(kb, "shop_back_-") {
		t.Error("picker must always offer back")
	}
}

func TestDetailsKeyboard_RoleGating(t *testing.T) {
	r := models.Request{RequestID: 7, Status: models.StatusInWork, AssignedContractorID: 42}

	admin := &models.UserInfo{UserID: 1, RoleName: models.RoleRetailAdmin}
	kb := detailsKeyboard(r, admin)
	if !hasData(kb, "act_edit_7") {
		t.Error("admin must see the edit button")
	}
	if hasData(kb, "act_complete_7") {
		t.Error("admin must not see the complete button")
	}

	assigned := &models.UserInfo{UserID: 42, RoleName: models.RoleContractor}
	kb = detailsKeyboard(r, assigned)
	if !hasData(kb, "act_complete_7") {
		t.Error("assigned contractor must see complete on an in-work request")
	}
	if hasData(kb, "act_edit_7") {
		t.Error("contractor must not see edit")
	}

	other := &models.UserInfo{UserID: 99, RoleName: models.RoleContractor}
	if hasData(detailsKeyboard(r, other), "act_complete_7") {
		t.Error("unassigned contractor must not see complete")
	}

	done := r
	done.Status = models.StatusDone
	if hasData(detailsKeyboard(done, assigned), "act_complete_7") {
		t.Error("complete only applies to in-work requests")
	}
}

func TestEditorKeyboard_SaveGatedOnReady(t *testing.T) {
	d := &EditorDraft{}
	if hasData(editorKeyboard(d, ModeCreate), "edit_save_-") {
		t.Error("empty draft must not offer save")
	}

	d = &EditorDraft{
		ShopID: 1, ContractorID: 2, WorkID: 3, UrgencyID: 4, Description: "x",
	}
	if !hasData(editorKeyboard(d, ModeCreate), "edit_save_-") {
		t.Error("complete draft must offer save")
	}
}

func TestEditorKeyboard_StatusOnlyInEditMode(t *testing.T) {
	d := &EditorDraft{}
	if hasData(editorKeyboard(d, ModeCreate), "edit_field_status") {
		t.Error("create mode must not offer status")
	}
	if !hasData(editorKeyboard(d, ModeEdit), "edit_field_status") {
		t.Error("edit mode must offer status")
	}
}

func TestStatusKeyboard_IndexPayloads(t *testing.T) {
	kb := statusKeyboard()
	for i := range models.RequestStatuses {
		if !hasData(kb, fmt.Sprintf("status_select_%d", i)) {
			t.Errorf("missing status button for index %d", i)
		}
	}
}
