package ui

import "github.com/charmbracelet/bubbles/key"

// keyMap defines the [key.Binding] mapping for the TUI.
type keyMap struct {
	toggle   key.Binding
	reset    key.Binding
	mode     key.Binding
	subject  key.Binding
	record   key.Binding
	sync     key.Binding
	more     key.Binding
	less     key.Binding
	moreAlt  key.Binding
	lessAlt  key.Binding
	moreSets key.Binding
	lessSets key.Binding
	enter    key.Binding
	back     key.Binding
	yes      key.Binding
	no       key.Binding
	help     key.Binding
	quit     key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		toggle:   key.NewBinding(key.WithKeys(" "), key.WithHelp("space", "start/stop")),
		reset:    key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "reset")),
		mode:     key.NewBinding(key.WithKeys("m", "tab"), key.WithHelp("m", "mode")),
		subject:  key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "subject")),
		record:   key.NewBinding(key.WithKeys("w"), key.WithHelp("w", "save record")),
		sync:     key.NewBinding(key.WithKeys("u"), key.WithHelp("u", "sync now")),
		more:     key.NewBinding(key.WithKeys("+", "="), key.WithHelp("+/-", "hours or focus")),
		less:     key.NewBinding(key.WithKeys("-", "_")),
		moreAlt:  key.NewBinding(key.WithKeys("]"), key.WithHelp("[/]", "minutes or break")),
		lessAlt:  key.NewBinding(key.WithKeys("[")),
		moreSets: key.NewBinding(key.WithKeys(">", "."), key.WithHelp("</>", "sets")),
		lessSets: key.NewBinding(key.WithKeys("<", ",")),
		enter:    key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "select")),
		back:     key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "back")),
		yes:      key.NewBinding(key.WithKeys("y"), key.WithHelp("y", "yes")),
		no:       key.NewBinding(key.WithKeys("n", "esc"), key.WithHelp("n", "no")),
		help:     key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "more keys")),
		quit:     key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.toggle, k.mode, k.subject, k.record, k.help, k.quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.toggle, k.reset, k.mode, k.subject},
		{k.more, k.moreAlt, k.moreSets},
		{k.record, k.sync, k.help, k.quit},
	}
}
