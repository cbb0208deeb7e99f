// SPDX-License-Identifier: MPL-2.0

// Package render presents code-button runs in the terminal: per-block status
// labels, the annotated document view and the diagnostics channel.
package render

import (
	"sync"
)

// Label is the status surface of one block. It is safe for concurrent use.
type Label struct {
	mu       sync.Mutex
	text     string
	onChange func(text string)
}

// NewLabel returns an empty Label. onChange, when non-nil, is called with
// the new text after every change, outside the label's lock.
func NewLabel(onChange func(text string)) *Label {
	return &Label{onChange: onChange}
}

// SetText replaces the label text.
func (l *Label) SetText(text string) {
	l.mu.Lock()
	l.text = text
	l.mu.Unlock()

	if l.onChange != nil {
		l.onChange(text)
	}
}

// Clear empties the label.
func (l *Label) Clear() {
	l.SetText("")
}

// Text returns the current label text.
func (l *Label) Text() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.text
}
