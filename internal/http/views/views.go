// Package views holds the HTML fragments rendered for the hypermedia front
// end. Templates are embedded and parsed once; the router installs them on
// the Gin engine with SetHTMLTemplate and handlers render them with c.HTML.
package views

import (
	"embed"
	"html/template"
	"sync"
)

//go:embed templates/*.html
var files embed.FS

// Template names.
const (
	Alert   = "alert"
	Profile = "profile"
	History = "history"
)

// Alert levels used as CSS modifiers.
const (
	LevelInfo    = "info"
	LevelSuccess = "success"
	LevelWarning = "warning"
	LevelError   = "error"
)

// Fragment target ids.
const (
	NotificationArea   = "notification-area"
	ProfileView        = "profile-view"
	ProfileUpdateError = "profile-update-error"
)

// AlertData fills the "alert" template.
type AlertData struct {
	ID      string
	Level   string
	Message string
}

// ProfileData fills the "profile" template.
type ProfileData struct {
	Name           string
	Phone          string
	PhoneConfirmed bool
}

// HistoryItem is one gallery tile.
type HistoryItem struct {
	ImageURL string
	Prompt   string
	Alt      string
}

// HistoryData fills the "history" template. NextURL is empty on the last page.
type HistoryData struct {
	Items   []HistoryItem
	NextURL string
}

var (
	once sync.Once
	tmpl *template.Template
)

// Templates returns the parsed fragment set.
func Templates() *template.Template {
	once.Do(func() {
		tmpl = template.Must(template.New("fragments").ParseFS(files, "templates/*.html"))
	})
	return tmpl
}
