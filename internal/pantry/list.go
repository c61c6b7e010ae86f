// Copyright 2026 The geladeira Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package pantry

// IngredientList is an ordered set of normalized ingredient names.
// Insertion order is preserved and drives display order. Not safe for concurrent use.
type IngredientList struct {
	items []string
	index map[string]struct{}
}

// NewIngredientList builds a list from raw items, normalizing them and
// dropping empty entries and later duplicates.
func NewIngredientList(items ...string) *IngredientList {
	l := &IngredientList{
		items: make([]string, 0, len(items)),
		index: make(map[string]struct{}, len(items)),
	}
	for _, item := range items {
		l.Add(item)
	}
	return l
}

// Add appends the normalized text. It returns the normalized value and
// whether the list changed.
func (l *IngredientList) Add(text string) (string, bool) {
	name := Normalize(text)
	if name == "" {
		return "", false
	}
	if _, ok := l.index[name]; ok {
		return name, false
	}
	l.items = append(l.items, name)
	l.index[name] = struct{}{}
	return name, true
}

// Remove deletes the element matching the normalized text, if present.
func (l *IngredientList) Remove(text string) bool {
	name := Normalize(text)
	if _, ok := l.index[name]; !ok {
		return false
	}
	delete(l.index, name)
	for i, item := range l.items {
		if item == name {
			l.items = append(l.items[:i], l.items[i+1:]...)
			break
		}
	}
	return true
}

// Clear empties the list. It reports false when the list was already empty.
func (l *IngredientList) Clear() bool {
	if len(l.items) == 0 {
		return false
	}
	l.items = l.items[:0]
	l.index = make(map[string]struct{})
	return true
}

// Contains reports whether the normalized text is present.
func (l *IngredientList) Contains(text string) bool {
	_, ok := l.index[Normalize(text)]
	return ok
}

func (l *IngredientList) Len() int { return len(l.items) }

// Items returns a copy of the ordered elements. It is never nil.
func (l *IngredientList) Items() []string {
	out := make([]string, len(l.items))
	copy(out, l.items)
	return out
}
