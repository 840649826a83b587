package ui

import (
	"github.com/charmbracelet/bubbles/list"
)

var _ list.Item = subjectItem{}

// subjectItem wraps a subject name to implement [list.Item].
type subjectItem struct {
	name     string
	selected bool
}

func (i subjectItem) FilterValue() string { return i.name }
func (i subjectItem) Title() string       { return i.name }
func (i subjectItem) Description() string {
	if i.selected {
		return "current subject"
	}
	return ""
}

func subjectItems(subjects []string, current string) []list.Item {
	items := make([]list.Item, len(subjects))
	for i, s := range subjects {
		items[i] = subjectItem{name: s, selected: s == current}
	}
	return items
}
