package views

import "github.com/collegeportal/web/internal/session"

// User is the signed-in account shown in the navigation.
type User struct {
	Username string
	Email    string
}

// Layout captures shared chrome metadata (titles, navigation state, auth flags).
type Layout struct {
	Title           string
	CurrentPage     string
	CSRFToken       string
	IsAuthenticated bool
	User            *User
	Flash           *session.Flash
	Debug           bool
}

// LayoutData implements LayoutProvider.
func (l *Layout) LayoutData() *Layout {
	return l
}

// LayoutProvider exposes layout metadata for the renderer.
type LayoutProvider interface {
	LayoutData() *Layout
}

// HomePage is the landing page.
type HomePage struct {
	Layout
}

// College is one row of the institution list.
type College struct {
	ID      int
	Name    string
	Address string
}

// CollegesPage lists partner institutions, or explains why it could not.
type CollegesPage struct {
	Layout
	Colleges []College
	Error    string
}

// LoginPage is the sign-in form.
type LoginPage struct {
	Layout
	Username string
	From     string
	Errors   map[string]string
	Message  string
}

// RegisterPage is the account creation form.
type RegisterPage struct {
	Layout
	Username string
	Email    string
	Errors   map[string]string
	Message  string
}

// Video is one playable entry in the profile's video list.
type Video struct {
	ID          int
	Title       string
	Description string
	URL         string
	Active      bool
}

// ProfilePage shows the account and its videos.
type ProfilePage struct {
	Layout
	Username    string
	Email       string
	Videos      []Video
	Active      *Video
	VideosError string
}

// UploadPage is the video upload form.
type UploadPage struct {
	Layout
	VideoTitle  string
	Description string
	Errors      map[string]string
	Message     string
	MaxMB       int64
	Extensions  []string
	FileField   string
}

// DebugCookie describes one credential cookie without revealing its value.
type DebugCookie struct {
	Name    string
	Present bool
	Preview string
}

// DebugPage reports what the front-end knows about the browser's session.
type DebugPage struct {
	Layout
	VisitorKey   string
	TrackedState string
	Cookies      []DebugCookie
	CheckState   string
	CheckUser    string
	ProfileURL   string
	Hints        []string
}

// ErrorPage is shown when a page cannot be produced.
type ErrorPage struct {
	Layout
	Status  int
	Message string
}
