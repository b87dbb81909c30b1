package ui

import tea "github.com/charmbracelet/bubbletea"

type KeyMap struct {
	Files       tea.Key
	Filter      tea.Key
	ClearFilter tea.Key
	Ask         tea.Key
	Sort        tea.Key
	ClearSort   tea.Key
	Values      tea.Key
	SaveFilter  tea.Key
	SavedList   tea.Key
	HideColumn  tea.Key
	MoveLeft    tea.Key
	MoveRight   tea.Key
	NextPage    tea.Key
	PrevPage    tea.Key
	FirstPage   tea.Key
	LastPage    tea.Key
	Inspect     tea.Key
	CopyRow     tea.Key
	Export      tea.Key
	AppLogs     tea.Key
	Help        tea.Key
	Quit        tea.Key
}

func DefaultKeyMap() KeyMap {
	return KeyMap{
		Files:       tea.Key{Type: tea.KeyTab},
		Filter:      tea.Key{Type: tea.KeyRunes, Runes: []rune{'f'}},
		ClearFilter: tea.Key{Type: tea.KeyRunes, Runes: []rune{'F'}},
		Ask:         tea.Key{Type: tea.KeyRunes, Runes: []rune{'a'}},
		Sort:        tea.Key{Type: tea.KeyRunes, Runes: []rune{'s'}},
		ClearSort:   tea.Key{Type: tea.KeyRunes, Runes: []rune{'S'}},
		Values:      tea.Key{Type: tea.KeyRunes, Runes: []rune{'v'}},
		SaveFilter:  tea.Key{Type: tea.KeyRunes, Runes: []rune{'w'}},
		SavedList:   tea.Key{Type: tea.KeyRunes, Runes: []rune{'W'}},
		HideColumn:  tea.Key{Type: tea.KeyRunes, Runes: []rune{'h'}},
		MoveLeft:    tea.Key{Type: tea.KeyRunes, Runes: []rune{'<'}},
		MoveRight:   tea.Key{Type: tea.KeyRunes, Runes: []rune{'>'}},
		NextPage:    tea.Key{Type: tea.KeyRunes, Runes: []rune{'n'}},
		PrevPage:    tea.Key{Type: tea.KeyRunes, Runes: []rune{'p'}},
		FirstPage:   tea.Key{Type: tea.KeyRunes, Runes: []rune{'g'}},
		LastPage:    tea.Key{Type: tea.KeyRunes, Runes: []rune{'G'}},
		Inspect:     tea.Key{Type: tea.KeyEnter},
		CopyRow:     tea.Key{Type: tea.KeyRunes, Runes: []rune{'c'}},
		Export:      tea.Key{Type: tea.KeyRunes, Runes: []rune{'e'}},
		AppLogs:     tea.Key{Type: tea.KeyRunes, Runes: []rune{'L'}},
		Help:        tea.Key{Type: tea.KeyRunes, Runes: []rune{'?'}},
		Quit:        tea.Key{Type: tea.KeyRunes, Runes: []rune{'q'}},
	}
}

func keyMatches(msg tea.KeyMsg, k tea.Key) bool {
	if k.Type != tea.KeyRunes {
		return msg.Type == k.Type
	}
	if len(k.Runes) > 0 {
		return msg.String() == string(k.Runes)
	}
	return false
}
