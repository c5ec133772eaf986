package job

import "strings"

// ListSeparator joins multi-valued fields before persistence.
const ListSeparator = ", "

// JoinList joins non-blank items with ListSeparator.
func JoinList(items []string) string {
	kept := make([]string, 0, len(items))
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item != "" {
			kept = append(kept, item)
		}
	}
	return strings.Join(kept, ListSeparator)
}

// SplitList is the inverse of JoinList for lists JoinList produced. Items
// are trimmed and blank ones dropped, so other input is normalized:
// JoinList(SplitList(s)) is the canonical form of s.
func SplitList(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	parts := strings.Split(s, ListSeparator)
	items := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part != "" {
			items = append(items, part)
		}
	}
	return items
}
