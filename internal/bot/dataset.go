package bot

import (
	"context"
	"log"
	"math"
	"sort"
	"strings"

	"github.com/vodchyts/repairdesk/internal/backend"
	"github.com/vodchyts/repairdesk/internal/models"
)

const (
	// fetchPageSize is the page size requested from the backend while
	// accumulating the full working set.
	fetchPageSize = 50
	// maxFetchPages caps accumulation; hitting it returns the partial set
	// with a warning rather than failing.
	maxFetchPages = 500
	// displayPageSize is the chat-facing page size.
	displayPageSize = 6
)

// sortedDataset returns the full working set for the session's filters,
// fetching and sorting it unless the cache is still valid. Any backend
// failure aborts without storing a partial cache.
func (b *Bot) sortedDataset(ctx context.Context, sess *Session) ([]models.Request, error) {
	key := sess.Filters.CacheKey()
	if sess.Cache != nil && sess.Cache.Key == key {
		return sess.Cache.Records, nil
	}

	records, err := fetchAllRequests(ctx, b.api, sess.UserID, sess.Filters)
	if err != nil {
		return nil, err
	}
	sortRequests(records, sess.Filters.Sort)

	sess.Cache = &DatasetCache{Key: key, Records: records}
	return records, nil
}

// fetchAllRequests pulls the filtered dataset page by page until the
// backend reports the last page or the safety ceiling is reached.
func fetchAllRequests(ctx context.Context, api backend.API, telegramID int64, filters ViewFilters) ([]models.Request, error) {
	var all []models.Request
	for page := 0; ; page++ {
		if page >= maxFetchPages {
			log.Printf("bot: dataset fetch hit page ceiling (%d), returning partial set of %d records",
				maxFetchPages, len(all))
			return all, nil
		}
		resp, err := api.ListRequests(ctx, backend.ListQuery{
			TelegramID: telegramID,
			Archived:   filters.Archived,
			SearchTerm: filters.SearchTerm,
			Sort:       filters.SortStrings(),
			Page:       page,
			Size:       fetchPageSize,
		})
		if err != nil {
			return nil, err
		}
		all = append(all, resp.Content...)
		if resp.Last || len(resp.Content) == 0 {
			return all, nil
		}
	}
}

// sortRequests applies a stable multi-key sort in place. Keys are
// processed in reverse declaration order with a stable pass each, so the
// first declared key dominates tie-breaking.
func sortRequests(records []models.Request, keys []SortKey) {
	for i := len(keys) - 1; i >= 0; i-- {
		key := keys[i]
		numeric, known := sortFieldNumeric(key.Field)
		if !known {
			log.Printf("bot: ignoring unknown sort field %q", key.Field)
			continue
		}
		if numeric {
			sort.SliceStable(records, func(a, b int) bool {
				va, vb := numericSortValue(records[a], key.Field), numericSortValue(records[b], key.Field)
				if key.Desc {
					return va > vb
				}
				return va < vb
			})
		} else {
			sort.SliceStable(records, func(a, b int) bool {
				va, vb := stringSortValue(records[a], key.Field), stringSortValue(records[b], key.Field)
				if key.Desc {
					return va > vb
				}
				return va < vb
			})
		}
	}
}

// sortFieldNumeric reports whether field sorts numerically, and whether it
// is a known sortable field at all.
func sortFieldNumeric(field string) (numeric, known bool) {
	switch field {
	case "requestID", "daysRemaining", "createdAt":
		return true, true
	case "status", "shopName":
		return false, true
	default:
		return false, false
	}
}

// numericSortValue extracts a numeric sort key. Missing values sort as
// positive infinity: last ascending, first descending.
func numericSortValue(r models.Request, field string) float64 {
	switch field {
	case "requestID":
		return float64(r.RequestID)
	case "daysRemaining":
		if r.DaysRemaining == nil {
			return math.Inf(1)
		}
		return float64(*r.DaysRemaining)
	case "createdAt":
		if r.CreatedAt.IsZero() {
			return math.Inf(1)
		}
		return float64(r.CreatedAt.UnixNano())
	}
	return math.Inf(1)
}

// stringSortValue extracts a case-folded string sort key.
func stringSortValue(r models.Request, field string) string {
	switch field {
	case "status":
		return strings.ToLower(r.Status)
	case "shopName":
		return strings.ToLower(r.ShopName)
	}
	return ""
}

// totalDisplayPages returns how many chat pages a dataset of size n yields.
func totalDisplayPages(n int) int {
	return (n + displayPageSize - 1) / displayPageSize
}

// pageSlice cuts one display page out of the full dataset. Out-of-range
// pages clamp to the last valid page; an empty dataset yields page 0 of 0.
func pageSlice(records []models.Request, page int) (slice []models.Request, clamped, totalPages int) {
	totalPages = totalDisplayPages(len(records))
	if totalPages == 0 {
		return nil, 0, 0
	}
	if page < 0 {
		page = 0
	}
	if page > totalPages-1 {
		page = totalPages - 1
	}
	start := page * displayPageSize
	end := start + displayPageSize
	if end > len(records) {
		end = len(records)
	}
	return records[start:end], page, totalPages
}
