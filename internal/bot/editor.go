package bot

import (
	"context"
	"fmt"
	"log"
	"strconv"

	"github.com/vodchyts/repairdesk/internal/chat"
	"github.com/vodchyts/repairdesk/internal/models"
)

const (
	// Custom urgency deadlines must fall in this range, inclusive.
	customDaysMin = 1
	customDaysMax = 365
)

// startCreate enters the editor in create mode. Only retail admins may
// create; in a bound group chat the shop and contractor are prefilled.
func (b *Bot) startCreate(ctx context.Context, sess *Session, upd chat.Update) {
	if sess.User == nil || sess.User.RoleName != models.RoleRetailAdmin {
		b.reply(ctx, sess.ChatID, "Only retail administrators can create requests.")
		return
	}
	if err := b.loadDictionaries(ctx, sess); err != nil {
		log.Printf("bot: load dictionaries for chat %d: %v", sess.ChatID, err)
		b.reply(ctx, sess.ChatID, "Failed to load reference data. Try again later.")
		return
	}

	draft := &EditorDraft{}
	if upd.ChatType == chat.ChatGroup || upd.ChatType == chat.ChatSupergroup {
		info, err := b.api.GetChatInfo(ctx, sess.ChatID)
		if err != nil {
			log.Printf("bot: chat %d is not bound to a shop: %v", sess.ChatID, err)
			b.reply(ctx, sess.ChatID, "This group chat is not linked to a shop. Use /chatid and ask your administrator to link it.")
			return
		}
		draft.ShopID = info.ShopID
		draft.ShopName = info.ShopName
		draft.ContractorID = info.ContractorID
		draft.ContractorName = info.ContractorLogin
	}

	sess.Mode = ModeCreate
	sess.Draft = draft
	sess.State = StateEditorMain
	sess.MainMessageID = 0
	b.renderEditor(ctx, sess)
}

// startEdit enters the editor in edit mode, seeding the draft from the
// stored request.
func (b *Bot) startEdit(ctx context.Context, sess *Session, cb *chat.Callback, requestID int64) {
	if sess.User == nil || sess.User.RoleName != models.RoleRetailAdmin {
		b.answer(ctx, cb.ID, "Only retail administrators can edit requests.", true)
		return
	}
	req, err := b.api.GetRequest(ctx, sess.UserID, requestID)
	if err != nil {
		log.Printf("bot: load request %d for edit: %v", requestID, err)
		b.answer(ctx, cb.ID, "Failed to load the request.", true)
		return
	}
	if err := b.loadDictionaries(ctx, sess); err != nil {
		log.Printf("bot: load dictionaries for chat %d: %v", sess.ChatID, err)
		b.answer(ctx, cb.ID, "Failed to load reference data.", true)
		return
	}
	b.answer(ctx, cb.ID, "", false)

	sess.Mode = ModeEdit
	sess.Draft = &EditorDraft{
		RequestID:      req.RequestID,
		ShopID:         req.ShopID,
		ShopName:       req.ShopName,
		ContractorID:   req.AssignedContractorID,
		ContractorName: req.AssignedContractorName,
		WorkID:         req.WorkCategoryID,
		WorkName:       req.WorkCategoryName,
		UrgencyID:      req.UrgencyID,
		UrgencyName:    req.UrgencyName,
		Description:    req.Description,
		Status:         req.Status,
	}
	sess.CurrentRequestID = requestID
	sess.State = StateEditorMain
	b.renderEditor(ctx, sess)
}

// loadDictionaries snapshots the four reference lists once per editor
// entry. Staleness over a long-lived editor session is accepted.
func (b *Bot) loadDictionaries(ctx context.Context, sess *Session) error {
	shops, err := b.api.ListShops(ctx)
	if err != nil {
		return fmt.Errorf("shops: %w", err)
	}
	contractors, err := b.api.ListContractors(ctx)
	if err != nil {
		return fmt.Errorf("contractors: %w", err)
	}
	works, err := b.api.ListWorkCategories(ctx)
	if err != nil {
		return fmt.Errorf("work categories: %w", err)
	}
	urgencies, err := b.api.ListUrgencies(ctx)
	if err != nil {
		return fmt.Errorf("urgencies: %w", err)
	}
	sess.Dicts = &Dictionaries{
		Shops:       shops,
		Contractors: contractors,
		Works:       works,
		Urgencies:   urgencies,
	}
	return nil
}

// renderEditor draws the draft checklist into the main message.
func (b *Bot) renderEditor(ctx context.Context, sess *Session) {
	b.showMain(ctx, sess, FormatDraft(sess.Draft, sess.Mode), chat.SendOpts{
		Markdown: true,
		Keyboard: editorKeyboard(sess.Draft, sess.Mode),
	})
}

// handleEditorCallback dispatches checklist button presses.
func (b *Bot) handleEditorCallback(ctx context.Context, sess *Session, cb *chat.Callback, action, value string) {
	if sess.Draft == nil || sess.Dicts == nil {
		b.answer(ctx, cb.ID, "No editor in progress.", true)
		return
	}

	switch action {
	case "field":
		b.answer(ctx, cb.ID, "", false)
		b.openField(ctx, sess, value)
	case "save":
		b.saveDraft(ctx, sess, cb)
	case "cancel":
		b.answer(ctx, cb.ID, "", false)
		b.cancelEditor(ctx, sess)
	default:
		b.answer(ctx, cb.ID, "", false)
	}
}

// openField shows the picker or prompt for one draft field.
func (b *Bot) openField(ctx context.Context, sess *Session, field string) {
	sess.PickerPage = 0
	switch field {
	case "shop":
		sess.State = StateSelectShop
		b.renderPicker(ctx, sess, "shop")
	case "contractor":
		sess.State = StateSelectContractor
		b.renderPicker(ctx, sess, "contractor")
	case "work":
		sess.State = StateSelectWork
		b.renderPicker(ctx, sess, "work")
	case "urgency":
		sess.State = StateSelectUrgency
		b.renderPicker(ctx, sess, "urgency")
	case "desc":
		sess.State = StateInputText
		sess.Input = InputDescription
		b.promptText(ctx, sess, "Send the request description, or /cancel.")
	case "status":
		if sess.Mode != ModeEdit {
			return
		}
		sess.State = StateSelectStatus
		b.showMain(ctx, sess, "*Pick a status*", chat.SendOpts{
			Markdown: true,
			Keyboard: statusKeyboard(),
		})
	}
}

// pickerItems maps the dictionary behind one picker flow to its entries.
func pickerItems(dicts *Dictionaries, prefix string) []pickerItem {
	switch prefix {
	case "shop":
		out := make([]pickerItem, len(dicts.Shops))
		for i, s := range dicts.Shops {
			out[i] = pickerItem{ID: s.ShopID, Label: s.ShopName}
		}
		return out
	case "contractor":
		out := make([]pickerItem, len(dicts.Contractors))
		for i, c := range dicts.Contractors {
			out[i] = pickerItem{ID: c.UserID, Label: c.Login}
		}
		return out
	case "work":
		out := make([]pickerItem, len(dicts.Works))
		for i, w := range dicts.Works {
			out[i] = pickerItem{ID: w.WorkCategoryID, Label: w.WorkCategoryName}
		}
		return out
	case "urgency":
		out := make([]pickerItem, len(dicts.Urgencies))
		for i, u := range dicts.Urgencies {
			label := u.UrgencyName
			if !u.Customizable {
				label = fmt.Sprintf("%s (%d d)", u.UrgencyName, u.DaysForTask)
			}
			out[i] = pickerItem{ID: u.UrgencyID, Label: label}
		}
		return out
	}
	return nil
}

// pickerTitle names each picker flow.
var pickerTitle = map[string]string{
	"shop":       "Pick a shop",
	"contractor": "Pick a contractor",
	"work":       "Pick a work category",
	"urgency":    "Pick an urgency",
}

// renderPicker draws one picker page into the main message.
func (b *Bot) renderPicker(ctx context.Context, sess *Session, prefix string) {
	items := pickerItems(sess.Dicts, prefix)
	b.showMain(ctx, sess, "*"+Escape(pickerTitle[prefix])+"*", chat.SendOpts{
		Markdown: true,
		Keyboard: pickerKeyboard(prefix, items, sess.PickerPage),
	})
}

// handlePickerCallback dispatches select/page/back presses in any of the
// four dictionary pickers.
func (b *Bot) handlePickerCallback(ctx context.Context, sess *Session, cb *chat.Callback, prefix, action, value string) {
	if sess.Draft == nil || sess.Dicts == nil {
		b.answer(ctx, cb.ID, "No editor in progress.", true)
		return
	}
	b.answer(ctx, cb.ID, "", false)

	switch action {
	case "page":
		page, err := strconv.Atoi(value)
		if err != nil {
			return
		}
		sess.PickerPage = page
		b.renderPicker(ctx, sess, prefix)

	case "back":
		sess.State = StateEditorMain
		b.renderEditor(ctx, sess)

	case "select":
		id, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return
		}
		b.applyPick(ctx, sess, prefix, id)
	}
}

// applyPick writes the selected dictionary entry into the draft. Picking
// a customizable urgency chains into the custom-days prompt.
func (b *Bot) applyPick(ctx context.Context, sess *Session, prefix string, id int64) {
	d := sess.Draft
	switch prefix {
	case "shop":
		for _, s := range sess.Dicts.Shops {
			if s.ShopID == id {
				d.ShopID, d.ShopName = s.ShopID, s.ShopName
			}
		}
	case "contractor":
		for _, c := range sess.Dicts.Contractors {
			if c.UserID == id {
				d.ContractorID, d.ContractorName = c.UserID, c.Login
			}
		}
	case "work":
		for _, w := range sess.Dicts.Works {
			if w.WorkCategoryID == id {
				d.WorkID, d.WorkName = w.WorkCategoryID, w.WorkCategoryName
			}
		}
	case "urgency":
		for _, u := range sess.Dicts.Urgencies {
			if u.UrgencyID != id {
				continue
			}
			d.UrgencyID, d.UrgencyName = u.UrgencyID, u.UrgencyName
			d.CustomDays = nil
			if u.Customizable {
				sess.State = StateInputText
				sess.Input = InputCustomDays
				b.promptText(ctx, sess, fmt.Sprintf(
					"Send the number of days for the task (%d-%d), or /cancel.",
					customDaysMin, customDaysMax))
				return
			}
		}
	}
	sess.State = StateEditorMain
	b.renderEditor(ctx, sess)
}

// handleStatusCallback dispatches status-picker presses (edit mode only).
func (b *Bot) handleStatusCallback(ctx context.Context, sess *Session, cb *chat.Callback, action, value string) {
	if sess.Draft == nil {
		b.answer(ctx, cb.ID, "No editor in progress.", true)
		return
	}
	b.answer(ctx, cb.ID, "", false)

	if action == "select" {
		i, err := strconv.Atoi(value)
		if err != nil || i < 0 || i >= len(models.RequestStatuses) {
			return
		}
		sess.Draft.Status = models.RequestStatuses[i]
	}
	sess.State = StateEditorMain
	b.renderEditor(ctx, sess)
}

// promptText sends a free-text prompt and tracks it for deletion.
func (b *Bot) promptText(ctx context.Context, sess *Session, text string) {
	id, err := b.gw.SendMessage(ctx, sess.ChatID, text, chat.SendOpts{})
	if err != nil {
		log.Printf("bot: send prompt to chat %d: %v", sess.ChatID, err)
		return
	}
	sess.PromptMessageID = id
}

// handleTextInput consumes free text for whichever field the editor is
// collecting. Invalid custom-day input re-prompts without losing state.
func (b *Bot) handleTextInput(ctx context.Context, sess *Session, upd chat.Update) {
	if sess.Draft == nil {
		return
	}
	b.deleteQuiet(ctx, sess.ChatID, upd.MessageID)

	switch sess.Input {
	case InputDescription:
		b.deleteQuiet(ctx, sess.ChatID, sess.PromptMessageID)
		sess.PromptMessageID = 0
		sess.Draft.Description = upd.Text

	case InputCustomDays:
		days, err := strconv.Atoi(upd.Text)
		if err != nil || days < customDaysMin || days > customDaysMax {
			b.deleteQuiet(ctx, sess.ChatID, sess.PromptMessageID)
			b.promptText(ctx, sess, fmt.Sprintf(
				"That is not a valid number of days. Send a number between %d and %d, or /cancel.",
				customDaysMin, customDaysMax))
			return
		}
		b.deleteQuiet(ctx, sess.ChatID, sess.PromptMessageID)
		sess.PromptMessageID = 0
		sess.Draft.CustomDays = &days

	default:
		return
	}

	sess.Input = InputNone
	sess.State = StateEditorMain
	b.renderEditor(ctx, sess)
}

// saveDraft persists the draft. On failure the editor stays open so
// nothing the user entered is lost.
func (b *Bot) saveDraft(ctx context.Context, sess *Session, cb *chat.Callback) {
	d := sess.Draft
	if !d.Ready() {
		b.answer(ctx, cb.ID, "Fill in every field before saving.", true)
		return
	}

	var saved *models.Request
	var err error
	if sess.Mode == ModeEdit {
		payload := models.UpdateRequest{
			Description:          d.Description,
			ShopID:               d.ShopID,
			WorkCategoryID:       d.WorkID,
			UrgencyID:            d.UrgencyID,
			AssignedContractorID: d.ContractorID,
			CustomDays:           d.CustomDays,
		}
		if d.Status != "" {
			payload.Status = &d.Status
		}
		saved, err = b.api.UpdateRequest(ctx, d.RequestID, payload)
	} else {
		saved, err = b.api.CreateRequest(ctx, models.CreateRequest{
			Description:          d.Description,
			ShopID:               d.ShopID,
			WorkCategoryID:       d.WorkID,
			UrgencyID:            d.UrgencyID,
			AssignedContractorID: d.ContractorID,
			CreatedByUserID:      sess.User.UserID,
			CustomDays:           d.CustomDays,
		})
	}
	if err != nil {
		log.Printf("bot: save draft in chat %d: %v", sess.ChatID, err)
		b.answer(ctx, cb.ID, "Saving failed. Your draft is unchanged.", true)
		return
	}

	b.answer(ctx, cb.ID, "Saved.", false)
	sess.Draft = nil
	sess.Dicts = nil
	sess.Input = InputNone
	sess.InvalidateCache()
	sess.State = StateDetails
	b.renderDetails(ctx, sess, saved.RequestID)
	b.notice(ctx, sess, fmt.Sprintf("Request #%d saved.", saved.RequestID))
}

// cancelEditor discards the draft: back to the request card in edit
// mode, back to idle in create mode.
func (b *Bot) cancelEditor(ctx context.Context, sess *Session) {
	wasEdit := sess.Mode == ModeEdit
	requestID := sess.CurrentRequestID
	sess.Draft = nil
	sess.Dicts = nil
	sess.Input = InputNone

	if wasEdit && requestID != 0 {
		sess.State = StateDetails
		b.renderDetails(ctx, sess, requestID)
		return
	}
	b.deleteQuiet(ctx, sess.ChatID, sess.MainMessageID)
	sess.MainMessageID = 0
	sess.State = StateIdle
}
