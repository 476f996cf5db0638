package emoji

import (
	"strings"
	"testing"
)

func TestPicker_RenderHighlightsSelection(t *testing.T) {
	picker, err := NewPicker(Group{Name: "食物", Emojis: []string{"🍎", "🍜"}})
	if err != nil {
		t.Fatalf("new picker: %v", err)
	}

	out, err := picker.RenderPicker("sign", "🍜", true)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	for _, want := range []string{
		`data-emoji-picker="sign"`,
		`emojiList error`,
		`<li class="selected"><button type="submit" name="_action" value="emoji:sign:🍜">🍜</button></li>`,
		`<li><button type="submit" name="_action" value="emoji:sign:🍎">🍎</button></li>`,
		`<span>食物</span>`,
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in output:\n%s", want, out)
		}
	}
}

func TestPicker_DefaultsAndContains(t *testing.T) {
	picker, err := NewPicker()
	if err != nil {
		t.Fatalf("new picker: %v", err)
	}
	if len(picker.Groups()) != len(DefaultGroups) {
		t.Fatalf("expected default groups")
	}
	if !picker.Contains("🐼") {
		t.Fatal("expected panda in catalogue")
	}
	if picker.Contains("x") {
		t.Fatal("unexpected sign in catalogue")
	}
}
