package views

import (
	"bytes"
	"html"
	"strings"
	"testing"
)

func render(t *testing.T, name string, data any) string {
	t.Helper()
	var buf bytes.Buffer
	if err := Templates().ExecuteTemplate(&buf, name, data); err != nil {
		t.Fatalf("execute %s: %v", name, err)
	}
	return buf.String()
}

func TestAlert_EscapesMessage(t *testing.T) {
	got := render(t, Alert, AlertData{ID: NotificationArea, Level: LevelWarning, Message: "<b>x</b>"})
	want := `<div id="notification-area" class="alert alert-warning">&lt;b&gt;x&lt;/b&gt;</div>`
	if got != want {
		t.Fatalf("got %q", got)
	}
}

func TestProfile(t *testing.T) {
	got := render(t, Profile, ProfileData{Name: "Zoë", Phone: "+48111", PhoneConfirmed: true})
	// html/template escapes '+' in text, so compare against the decoded page
	// and check the escaped form separately.
	if !strings.Contains(got, "&#43;48111") {
		t.Errorf("phone not escaped: %s", got)
	}
	text := html.UnescapeString(got)
	for _, s := range []string{`id="profile-view"`, "Hello, Zoë!", "+48111", "verified"} {
		if !strings.Contains(text, s) {
			t.Errorf("missing %q in %s", s, got)
		}
	}
	if strings.Contains(render(t, Profile, ProfileData{Name: "User"}), "Phone:") {
		t.Error("phone line rendered without a phone")
	}
}

func TestHistory_LoadMoreOnlyWithNextURL(t *testing.T) {
	data := HistoryData{
		Items:   []HistoryItem{{ImageURL: "/functions/v1/mms-image?id=a", Prompt: "cat & dog", Alt: "cat & dog"}},
		NextURL: "/functions/v1/history-items?limit=1&offset=1",
	}
	got := render(t, History, data)
	if !strings.Contains(got, `src="/functions/v1/mms-image?id=a"`) || !strings.Contains(got, "cat &amp; dog") {
		t.Fatalf("tile not rendered: %s", got)
	}
	if !strings.Contains(got, `hx-get="/functions/v1/history-items?limit=1&amp;offset=1"`) {
		t.Fatalf("load more missing: %s", got)
	}

	data.NextURL = ""
	if strings.Contains(render(t, History, data), "load-more-container") {
		t.Fatal("load more rendered on last page")
	}
}
