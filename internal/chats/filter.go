package chats

import "strings"

type Category string

const (
	FilterAll        Category = "all"
	FilterUnread     Category = "unread"
	FilterGroups     Category = "groups"
	FilterFavourites Category = "favourites"
)

// ApplyFilters narrows a chat list by free-text query and category. Search
// matches the chat name, the counterpart's display name and the last
// message's content, case-insensitive substring. The favourites category has
// no server-side backing and always yields an empty list; clients keep
// pinned state locally.
func ApplyFilters(items []ChatSummary, query string, category Category) []ChatSummary {
	result := items

	if q := strings.ToLower(strings.TrimSpace(query)); q != "" {
		filtered := make([]ChatSummary, 0, len(result))
		for _, item := range result {
			if matchesQuery(item, q) {
				filtered = append(filtered, item)
			}
		}
		result = filtered
	}

	switch category {
	case FilterUnread:
		filtered := make([]ChatSummary, 0, len(result))
		for _, item := range result {
			if item.UnreadCount > 0 {
				filtered = append(filtered, item)
			}
		}
		result = filtered
	case FilterGroups:
		filtered := make([]ChatSummary, 0, len(result))
		for _, item := range result {
			if item.IsGroup {
				filtered = append(filtered, item)
			}
		}
		result = filtered
	case FilterFavourites:
		result = []ChatSummary{}
	}

	if result == nil {
		result = []ChatSummary{}
	}

	return result
}

func matchesQuery(item ChatSummary, q string) bool {
	if strings.Contains(strings.ToLower(item.Name), q) {
		return true
	}
	if item.Counterpart != nil && strings.Contains(strings.ToLower(item.Counterpart.DisplayName), q) {
		return true
	}
	if item.LastMessage != nil && strings.Contains(strings.ToLower(item.LastMessage.Content), q) {
		return true
	}
	return false
}
