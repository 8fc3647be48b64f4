package bot

import (
	"fmt"
	"strings"

	"github.com/vodchyts/repairdesk/internal/models"
)

// Status glyphs for list rows.
const (
	glyphDone    = "🟢"
	glyphInWork  = "⚪️"
	glyphOther   = "⚫️"
	glyphOverdue = "❗️"
)

// descriptionPreviewLen caps the description shown in list rows.
const descriptionPreviewLen = 50

// escapeSet is every character MarkdownV2 requires a backslash for.
const escapeSet = "_*[]()~`>#+-=|{}.!"

// Escape backslash-escapes v for MarkdownV2 output. Non-string values
// yield the empty string, so optional fields render safely.
func Escape(v any) string {
	s, ok := v.(string)
	if !ok {
		return ""
	}
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if strings.ContainsRune(escapeSet, r) {
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}

// statusGlyph maps a request to its list-row marker.
func statusGlyph(r models.Request) string {
	switch r.Status {
	case models.StatusDone:
		return glyphDone
	case models.StatusInWork:
		return glyphInWork
	default:
		return glyphOther
	}
}

// FormatListItem renders one request as a list row: status glyph, a
// /{id} quick-open command, the shop, an overdue marker, and a truncated
// description.
func FormatListItem(r models.Request) string {
	var b strings.Builder
	b.WriteString(statusGlyph(r))
	b.WriteString(fmt.Sprintf(" /%d ", r.RequestID))
	b.WriteString(Escape(r.ShopName))
	if r.IsOverdue {
		b.WriteString(" " + glyphOverdue)
	}
	desc := r.Description
	if len([]rune(desc)) > descriptionPreviewLen {
		desc = string([]rune(desc)[:descriptionPreviewLen]) + "…"
	}
	b.WriteString("\n")
	b.WriteString(Escape(desc))
	return b.String()
}

// FormatFilterSummary renders the active filters for the list header.
func FormatFilterSummary(f ViewFilters) string {
	var parts []string
	if f.Archived {
		parts = append(parts, "archive")
	} else {
		parts = append(parts, "active")
	}
	if f.SearchTerm != "" {
		parts = append(parts, "search: "+f.SearchTerm)
	}
	sorts := make([]string, 0, len(f.Sort))
	for _, k := range f.Sort {
		sorts = append(sorts, k.String())
	}
	parts = append(parts, "sort: "+strings.Join(sorts, ", "))
	return Escape(strings.Join(parts, " | "))
}

// FormatRequestList renders the full list message body for one display
// page.
func FormatRequestList(page []models.Request, pageNum, totalPages int, f ViewFilters) string {
	var b strings.Builder
	b.WriteString("*Service requests*\n")
	b.WriteString(FormatFilterSummary(f))
	b.WriteString("\n\n")
	if len(page) == 0 {
		b.WriteString("No requests found\\.")
		return b.String()
	}
	for _, r := range page {
		b.WriteString(FormatListItem(r))
		b.WriteString("\n\n")
	}
	b.WriteString(Escape(fmt.Sprintf("Page %d of %d", pageNum+1, totalPages)))
	return b.String()
}

// FormatDetails renders the full request card.
func FormatDetails(r models.Request) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("*Request \\#%d*\n\n", r.RequestID))
	b.WriteString("Shop: " + Escape(r.ShopName) + "\n")
	b.WriteString("Contractor: " + Escape(r.AssignedContractorName) + "\n")
	b.WriteString("Work: " + Escape(r.WorkCategoryName) + "\n")
	b.WriteString("Urgency: " + Escape(r.UrgencyName) + "\n")
	b.WriteString("Status: " + Escape(r.Status) + "\n")

	if r.DaysRemaining == nil {
		b.WriteString("Days remaining: —\n")
	} else if r.IsOverdue {
		b.WriteString(fmt.Sprintf("Days remaining: %d %s Overdue\\!\n", *r.DaysRemaining, glyphOverdue))
	} else {
		b.WriteString(fmt.Sprintf("Days remaining: %d\n", *r.DaysRemaining))
	}

	b.WriteString("Created: " + Escape(r.CreatedAt.Format("02.01.2006 15:04")) + "\n")
	b.WriteString(fmt.Sprintf("Comments: %d, photos: %d\n\n", r.CommentCount, r.PhotoCount))
	b.WriteString(Escape(r.Description))
	return b.String()
}

// FormatComments renders the comment thread of a request.
func FormatComments(r models.Request, comments []models.Comment) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("*Comments for request \\#%d*\n\n", r.RequestID))
	if len(comments) == 0 {
		b.WriteString("No comments yet\\.")
		return b.String()
	}
	for _, c := range comments {
		b.WriteString(fmt.Sprintf("*%s* %s\n%s\n\n",
			Escape(c.UserLogin),
			Escape(c.CreatedAt.Format("02.01.2006 15:04")),
			Escape(c.CommentText)))
	}
	return strings.TrimRight(b.String(), "\n")
}

// draftLine renders one checklist row of the editor card.
func draftLine(label, value string) string {
	marker := "➖"
	if value != "" {
		marker = "✅"
	}
	if value == "" {
		value = "not set"
	}
	return fmt.Sprintf("%s %s: %s\n", marker, label, Escape(value))
}

// FormatDraft renders the editor checklist with per-field markers.
func FormatDraft(d *EditorDraft, mode EditorMode) string {
	var b strings.Builder
	if mode == ModeEdit {
		b.WriteString(fmt.Sprintf("*Editing request \\#%d*\n\n", d.RequestID))
	} else {
		b.WriteString("*New request*\n\n")
	}
	b.WriteString(draftLine("Shop", d.ShopName))
	b.WriteString(draftLine("Contractor", d.ContractorName))
	b.WriteString(draftLine("Work", d.WorkName))

	urgency := d.UrgencyName
	if urgency != "" && d.CustomDays != nil {
		urgency = fmt.Sprintf("%s (%d days)", urgency, *d.CustomDays)
	}
	b.WriteString(draftLine("Urgency", urgency))

	desc := d.Description
	if len([]rune(desc)) > descriptionPreviewLen {
		desc = string([]rune(desc)[:descriptionPreviewLen]) + "…"
	}
	b.WriteString(draftLine("Description", desc))

	if mode == ModeEdit && d.Status != "" {
		b.WriteString(draftLine("Status", d.Status))
	}
	if !d.Ready() {
		b.WriteString("\nFill in the remaining fields to save\\.")
	}
	return b.String()
}
