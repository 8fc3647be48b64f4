package bot

import (
	"fmt"

	"github.com/vodchyts/repairdesk/internal/chat"
	"github.com/vodchyts/repairdesk/internal/models"
)

const (
	// pickerPageSize is how many dictionary entries one picker page shows.
	pickerPageSize = 8
	// pickerRowSize is how many buttons a picker row holds.
	pickerRowSize = 2
)

// Sortable fields offered by the sort menu, in display order.
var sortFields = []struct {
	Field string
	Label string
}{
	{"requestID", "Number"},
	{"createdAt", "Created"},
	{"daysRemaining", "Days left"},
	{"status", "Status"},
	{"shopName", "Shop"},
}

func btn(text, data string) chat.Button {
	return chat.Button{Text: text, Data: data}
}

// mainMenuKeyboard builds the list-view keyboard: one open button per
// visible request, a nav row with prev/next only when they apply, and the
// filter control rows.
func mainMenuKeyboard(page []models.Request, pageNum, totalPages int, f ViewFilters) chat.Keyboard {
	var kb chat.Keyboard

	for _, r := range page {
		kb = append(kb, []chat.Button{
			btn(fmt.Sprintf("%s #%d %s", statusGlyph(r), r.RequestID, r.ShopName),
				fmt.Sprintf("view_open_%d", r.RequestID)),
		})
	}

	var nav []chat.Button
	if pageNum > 0 {
		nav = append(nav, btn("⬅️", "view_page_prev"))
	}
	if totalPages > 0 {
		nav = append(nav, btn(fmt.Sprintf("%d/%d", pageNum+1, totalPages), "noop"))
	}
	if pageNum < totalPages-1 {
		nav = append(nav, btn("➡️", "view_page_next"))
	}
	if len(nav) > 0 {
		kb = append(kb, nav)
	}

	archiveLabel := "📦 Archive"
	if f.Archived {
		archiveLabel = "📂 Active"
	}
	kb = append(kb,
		[]chat.Button{btn("🔍 Search", "view_search_-"), btn("↕️ Sort", "view_sort_-")},
		[]chat.Button{btn(archiveLabel, "view_archive_-"), btn("♻️ Reset", "view_reset_-")},
		[]chat.Button{btn("❌ Close", "view_exit_-")},
	)
	return kb
}

// sortFieldKeyboard builds the sort menu: one row per sortable field with
// its position and direction when active, plus clear/done/back controls.
func sortFieldKeyboard(f ViewFilters) chat.Keyboard {
	var kb chat.Keyboard
	for _, sf := range sortFields {
		label := sf.Label
		if pos, desc := f.SortPosition(sf.Field); pos > 0 {
			arrow := "↑"
			if desc {
				arrow = "↓"
			}
			label = fmt.Sprintf("%d. %s %s", pos, sf.Label, arrow)
		}
		kb = append(kb, []chat.Button{btn(label, "sort_field_"+sf.Field)})
	}
	kb = append(kb, []chat.Button{btn("🧹 Clear", "sort_clear_-"), btn("✅ Done", "sort_done_-")})
	return kb
}

// sortDirectionKeyboard offers asc/desc/remove for one field.
func sortDirectionKeyboard(field string) chat.Keyboard {
	return chat.Keyboard{
		{btn("↑ Ascending", "sort_asc_"+field), btn("↓ Descending", "sort_desc_"+field)},
		{btn("➖ Remove", "sort_remove_"+field)},
		{btn("⬅️ Back", "sort_back_-")},
	}
}

// detailsKeyboard builds the request-card keyboard, gated by what the
// caller may do with the request.
func detailsKeyboard(r models.Request, user *models.UserInfo) chat.Keyboard {
	id := r.RequestID
	kb := chat.Keyboard{
		{btn(fmt.Sprintf("💬 Comments (%d)", r.CommentCount), fmt.Sprintf("act_comments_%d", id)),
			btn(fmt.Sprintf("📷 Photos (%d)", r.PhotoCount), fmt.Sprintf("act_photos_%d", id))},
		{btn("➕ Comment", fmt.Sprintf("act_addcomment_%d", id)),
			btn("➕ Photo", fmt.Sprintf("act_addphoto_%d", id))},
	}
	if canComplete(r, user) {
		kb = append(kb, []chat.Button{btn("✔️ Complete", fmt.Sprintf("act_complete_%d", id))})
	}
	if user != nil && user.RoleName == models.RoleRetailAdmin {
		kb = append(kb, []chat.Button{btn("✏️ Edit", fmt.Sprintf("act_edit_%d", id))})
	}
	kb = append(kb, []chat.Button{btn("⬅️ Back to list", "act_back_list")})
	return kb
}

// canComplete reports whether user may mark r done: contractors complete
// their own in-work requests.
func canComplete(r models.Request, user *models.UserInfo) bool {
	return user != nil &&
		user.RoleName == models.RoleContractor &&
		r.Status == models.StatusInWork &&
		r.AssignedContractorID == user.UserID
}

// pickerItem is one selectable dictionary entry.
type pickerItem struct {
	ID    int64
	Label string
}

// pickerKeyboard lays out dictionary entries as a paged grid: up to
// pickerPageSize items per page, pickerRowSize per row, with nav and back
// rows. prefix names the flow ("shop", "contractor", ...).
func pickerKeyboard(prefix string, items []pickerItem, page int) chat.Keyboard {
	totalPages := (len(items) + pickerPageSize - 1) / pickerPageSize
	if totalPages == 0 {
		totalPages = 1
	}
	if page < 0 {
		page = 0
	}
	if page > totalPages-1 {
		page = totalPages - 1
	}
	start := page * pickerPageSize
	end := start + pickerPageSize
	if end > len(items) {
		end = len(items)
	}

	var kb chat.Keyboard
	var row []chat.Button
	for _, it := range items[start:end] {
		row = append(row, btn(it.Label, fmt.Sprintf("%s_select_%d", prefix, it.ID)))
		if len(row) == pickerRowSize {
			kb = append(kb, row)
			row = nil
		}
	}
	if len(row) > 0 {
		kb = append(kb, row)
	}

	var nav []chat.Button
	if page > 0 {
		nav = append(nav, btn("⬅️", fmt.Sprintf("%s_page_%d", prefix, page-1)))
	}
	if totalPages > 1 {
		nav = append(nav, btn(fmt.Sprintf("%d/%d", page+1, totalPages), "noop"))
	}
	if page < totalPages-1 {
		nav = append(nav, btn("➡️", fmt.Sprintf("%s_page_%d", prefix, page+1)))
	}
	if len(nav) > 0 {
		kb = append(kb, nav)
	}

	kb = append(kb, []chat.Button{btn("⬅️ Back", prefix+"_back_-")})
	return kb
}

// statusKeyboard lists every status by its index so the payload stays
// free of spaces.
func statusKeyboard() chat.Keyboard {
	var kb chat.Keyboard
	for i, s := range models.RequestStatuses {
		kb = append(kb, []chat.Button{btn(s, fmt.Sprintf("status_select_%d", i))})
	}
	kb = append(kb, []chat.Button{btn("⬅️ Back", "status_back_-")})
	return kb
}

// editorKeyboard builds the editor checklist keyboard; the save button
// only appears once the draft is complete.
func editorKeyboard(d *EditorDraft, mode EditorMode) chat.Keyboard {
	kb := chat.Keyboard{
		{btn("🏬 Shop", "edit_field_shop"), btn("👷 Contractor", "edit_field_contractor")},
		{btn("🔧 Work", "edit_field_work"), btn("⏱ Urgency", "edit_field_urgency")},
		{btn("📝 Description", "edit_field_desc")},
	}
	if mode == ModeEdit {
		kb = append(kb, []chat.Button{btn("🚦 Status", "edit_field_status")})
	}
	var last []chat.Button
	if d.Ready() {
		last = append(last, btn("💾 Save", "edit_save_-"))
	}
	last = append(last, btn("❌ Cancel", "edit_cancel_-"))
	kb = append(kb, last)
	return kb
}
