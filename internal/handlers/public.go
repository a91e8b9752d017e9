package handlers

import (
	"net/http"

	"github.com/collegeportal/web/internal/logging"
	"github.com/collegeportal/web/internal/views"
)

// HomeHandler renders the landing page.
type HomeHandler struct {
	Pages *Pages
}

// Show handles GET /.
func (h HomeHandler) Show(w http.ResponseWriter, r *http.Request) {
	data := &views.HomePage{Layout: h.Pages.layout(w, r, views.PageHome, "")}
	h.Pages.render(w, r, http.StatusOK, views.PageHome, data)
}

// CollegesHandler renders the partner institution list.
type CollegesHandler struct {
	Pages    *Pages
	Colleges CollegeDirectory
}

// List handles GET /colleges. A failure still renders the page, with the
// reason and a retry link in place of the list.
func (h CollegesHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	data := &views.CollegesPage{Layout: h.Pages.layout(w, r, views.PageColleges, "Colleges")}

	if h.Colleges == nil {
		logger.Error("college directory unavailable")
		data.Error = "The college list is not available right now."
		h.Pages.render(w, r, http.StatusServiceUnavailable, views.PageColleges, data)
		return
	}

	colleges, err := h.Colleges.Colleges(ctx)
	if err != nil {
		logger.Warn("load colleges failed", "error", err)
		data.Error = upstreamMessage(err)
		h.Pages.render(w, r, http.StatusBadGateway, views.PageColleges, data)
		return
	}

	data.Colleges = make([]views.College, 0, len(colleges))
	for _, c := range colleges {
		data.Colleges = append(data.Colleges, views.College{ID: c.ID, Name: c.Name, Address: c.Address})
	}
	h.Pages.render(w, r, http.StatusOK, views.PageColleges, data)
}
