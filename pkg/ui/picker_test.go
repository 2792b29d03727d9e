package ui

import (
	"strings"
	"testing"

	"github.com/vanderheijden86/topicmap/pkg/model"
)

func TestNewKindPicker(t *testing.T) {
	picker := NewKindPicker(model.DefaultKinds(), model.KindClaim, newTestTheme())

	if len(picker.items) != 6 {
		t.Errorf("expected 6 kinds, got %d", len(picker.items))
	}
	if picker.Selected() != string(model.KindClaim) {
		t.Errorf("expected current kind claim to be selected, got %q", picker.Selected())
	}
	if picker.items[0] != string(model.KindTopic) {
		t.Errorf("expected topic first, got %q", picker.items[0])
	}
}

func TestNewPickerModelUnknownCurrent(t *testing.T) {
	picker := NewPickerModel("Layout", []string{"grouped", "force"}, "nope", newTestTheme())
	if picker.selectedIndex != 0 {
		t.Errorf("expected selectedIndex 0 for unknown current, got %d", picker.selectedIndex)
	}
	if picker.Selected() != "grouped" {
		t.Errorf("expected default to 'grouped', got %q", picker.Selected())
	}
}

func TestPickerNavigation(t *testing.T) {
	picker := NewKindPicker(model.DefaultKinds(), model.KindTopic, newTestTheme())

	picker.MoveDown()
	if picker.Selected() != string(model.KindProblem) {
		t.Errorf("after MoveDown, expected problem, got %q", picker.Selected())
	}
	picker.MoveUp()
	picker.MoveUp()
	if picker.selectedIndex != 0 {
		t.Errorf("MoveUp at start should stay at 0, got %d", picker.selectedIndex)
	}
	for i := 0; i < 10; i++ {
		picker.MoveDown()
	}
	if picker.selectedIndex != len(picker.items)-1 {
		t.Errorf("MoveDown at end should stay at last, got %d", picker.selectedIndex)
	}
}

func TestPickerView(t *testing.T) {
	picker := NewPickerModel("Layout", []string{"grouped", "layered-tree"}, "layered-tree", newTestTheme())
	picker.SetSize(80, 24)
	view := picker.View()
	for _, want := range []string{"Layout", "Grouped", "Layered Tree", "✓", "esc: cancel"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q", want)
		}
	}
}

func TestFormatItemName(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"topic", "Topic"},
		{"relatesTo", "Relates To"},
		{"criterionFor", "Criterion For"},
		{"layered-tree", "Layered Tree"},
		{"in_progress", "In Progress"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := formatItemName(tt.in); got != tt.want {
			t.Errorf("formatItemName(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
