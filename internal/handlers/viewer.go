package handlers

import (
	"context"
	"net/http"

	"jobs-viewer/config"
	"jobs-viewer/internal/middleware"
	"jobs-viewer/internal/render"
	"jobs-viewer/internal/viewstate"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type ViewerHandler struct {
	sessions *viewstate.Sessions
	renderer *render.Renderer
	cookie   config.SessionConfig
	logger   *zap.Logger
}

func NewViewerHandler(sessions *viewstate.Sessions, renderer *render.Renderer, cookie config.SessionConfig, logger *zap.Logger) *ViewerHandler {
	return &ViewerHandler{
		sessions: sessions,
		renderer: renderer,
		cookie:   cookie,
		logger:   logger,
	}
}

// DateRequest is the date selector change.
type DateRequest struct {
	Date string `form:"date" binding:"required"`
}

// InternshipsRequest is the internship checkbox change.
type InternshipsRequest struct {
	IncludeInternships bool `form:"include_internships"`
}

// SelectRequest is a job card click.
type SelectRequest struct {
	JobID string `form:"job_id" binding:"required"`
}

// FiltersRequest is the filter form submitted without the browser script.
type FiltersRequest struct {
	Date               string `form:"date"`
	IncludeInternships bool   `form:"include_internships"`
}

// Index starts a new page session: the previous session of this browser is
// dropped, dates are loaded and the full page is rendered.
func (h *ViewerHandler) Index(c *gin.Context) {
	if old, err := c.Cookie(h.cookie.CookieName); err == nil {
		h.sessions.Delete(old)
	}

	id, ctrl := h.sessions.Create()
	c.Set(middleware.SessionIDKey, id)
	h.setSessionCookie(c, id)

	st := ctrl.LoadDates(detach(c))
	c.HTML(http.StatusOK, "page", BuildPage(st))
}

// View renders the current session's page without reloading anything.
func (h *ViewerHandler) View(c *gin.Context) {
	ctrl, ok := h.session(c)
	if !ok {
		c.Redirect(http.StatusSeeOther, "/")
		return
	}
	c.HTML(http.StatusOK, "page", BuildPage(ctrl.Snapshot()))
}

// Panes returns the current session's panes as JSON.
func (h *ViewerHandler) Panes(c *gin.Context) {
	ctrl, ok := h.session(c)
	if !ok {
		h.gone(c)
		return
	}
	h.writePanes(c, ctrl.Snapshot())
}

// ChangeDate loads the jobs of the selected date.
func (h *ViewerHandler) ChangeDate(c *gin.Context) {
	ctrl, ok := h.session(c)
	if !ok {
		h.gone(c)
		return
	}

	var req DateRequest
	if !h.bind(c, &req) {
		return
	}

	h.respond(c, ctrl.LoadJobs(detach(c), req.Date))
}

// ToggleInternships changes the internship filter and reloads the jobs.
func (h *ViewerHandler) ToggleInternships(c *gin.Context) {
	ctrl, ok := h.session(c)
	if !ok {
		h.gone(c)
		return
	}

	var req InternshipsRequest
	if !h.bind(c, &req) {
		return
	}

	h.respond(c, ctrl.SetIncludeInternships(detach(c), req.IncludeInternships))
}

// SelectJob shows a job in the detail pane.
func (h *ViewerHandler) SelectJob(c *gin.Context) {
	ctrl, ok := h.session(c)
	if !ok {
		h.gone(c)
		return
	}

	var req SelectRequest
	if !h.bind(c, &req) {
		return
	}

	h.respond(c, ctrl.Select(req.JobID))
}

// ChangeFilters applies the date and the internship filter together.
func (h *ViewerHandler) ChangeFilters(c *gin.Context) {
	ctrl, ok := h.session(c)
	if !ok {
		h.gone(c)
		return
	}

	var req FiltersRequest
	if !h.bind(c, &req) {
		return
	}

	if req.Date == "" {
		h.respond(c, ctrl.SetIncludeInternships(detach(c), req.IncludeInternships))
		return
	}
	h.respond(c, ctrl.ApplyFilters(detach(c), req.Date, req.IncludeInternships))
}

func (h *ViewerHandler) session(c *gin.Context) (*viewstate.Controller, bool) {
	id, err := c.Cookie(h.cookie.CookieName)
	if err != nil {
		return nil, false
	}
	c.Set(middleware.SessionIDKey, id)
	return h.sessions.Get(id)
}

func (h *ViewerHandler) setSessionCookie(c *gin.Context, id string) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(h.cookie.CookieName, id, int(h.cookie.TTL.Seconds()), "/", "", c.Request.TLS != nil, true)
}

func (h *ViewerHandler) bind(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBind(req); err != nil {
		h.logger.Warn("Invalid event request",
			zap.String("path", c.Request.URL.Path),
			zap.Error(err),
		)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request data", "details": err.Error()})
		return false
	}
	return true
}

// respond answers an event with the new panes, or redirects browsers that
// posted the form without the script back to the page.
func (h *ViewerHandler) respond(c *gin.Context, st viewstate.State) {
	if c.NegotiateFormat(gin.MIMEHTML, gin.MIMEJSON) == gin.MIMEJSON {
		h.writePanes(c, st)
		return
	}
	c.Redirect(http.StatusSeeOther, "/view")
}

func (h *ViewerHandler) writePanes(c *gin.Context, st viewstate.State) {
	panes, err := h.renderer.Panes(BuildPage(st))
	if err != nil {
		h.logger.Error("Failed to render panes", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to render view"})
		return
	}
	c.JSON(http.StatusOK, panes)
}

func (h *ViewerHandler) gone(c *gin.Context) {
	if c.NegotiateFormat(gin.MIMEHTML, gin.MIMEJSON) == gin.MIMEJSON {
		c.JSON(http.StatusGone, gin.H{"error": "Session expired", "code": "SESSION_EXPIRED"})
		return
	}
	c.Redirect(http.StatusSeeOther, "/")
}

// detach keeps the request's values but not its cancellation: a fetch runs to
// completion (bounded by the client timeout) even if the browser goes away.
func detach(c *gin.Context) context.Context {
	return context.WithoutCancel(c.Request.Context())
}

// BuildPage maps a view state snapshot onto the page view model.
func BuildPage(st viewstate.State) render.Page {
	page := render.Page{
		Dates:              st.Dates,
		SelectedDate:       st.SelectedDate,
		IncludeInternships: st.IncludeInternships,
		Loaded:             st.Loaded,
		List: render.ListPane{
			Jobs:       st.Jobs,
			SelectedID: st.SelectedJobID,
			Loading:    st.Loading,
			Error:      st.ListError,
		},
		Detail: render.DetailPane{Empty: st.Empty()},
	}
	if job, ok := st.SelectedJob(); ok {
		page.Detail.Job = &job
	}
	return page
}
