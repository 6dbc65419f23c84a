package server

import (
	"bytes"
	"context"
	"net/http"
	"strconv"

	"resumaker/internal/client"
	"resumaker/internal/errors"
	"resumaker/internal/resume"
	"resumaker/internal/session"
	"resumaker/internal/web"

	"github.com/go-chi/chi/v5"
)

type sessionKey struct{}

// UI serves the résumé builder page and its exports.
type UI struct {
	*Server
	generator client.Generator
	store     *session.Store
	renderer  *web.Renderer
	examples  []string
}

// NewUI builds the UI server. Generation goes through gen, which is
// normally a *client.Client pointed at the backend.
func NewUI(opts Options, gen client.Generator, store *session.Store) (*UI, error) {
	renderer, err := web.NewRenderer()
	if err != nil {
		return nil, err
	}

	ui := &UI{
		Server:    newServer("resumaker-ui", opts.Config.Server.Port, opts),
		generator: gen,
		store:     store,
		renderer:  renderer,
		examples:  opts.Config.App.ExamplePrompts,
	}
	ui.closers = append(ui.closers, store.Close)

	if err := ui.metrics.ObserveSessions(store.Len); err != nil {
		ui.logger.Warn("Failed to register session gauge", "error", err)
	}

	ui.routes()
	return ui, nil
}

func (ui *UI) routes() {
	r := ui.newRouter()

	r.Handle("/static/*", http.StripPrefix("/static/", web.StaticHandler()))
	r.Get("/health", ui.handleHealth)
	r.Get("/stats", ui.handleStats)
	ui.mountMetrics(r)

	r.Group(func(r chi.Router) {
		r.Use(ui.withSession)

		r.Get("/", ui.handleIndex)
		r.With(ui.rateLimit).Post("/generate", ui.handleGenerate)
		r.Post("/section", ui.handleSection)
		r.Post("/theme", ui.handleTheme)
		r.Post("/sidebar", ui.handleSidebar)
		r.Get("/example/{n}", ui.handleExample)

		r.Route("/export", func(r chi.Router) {
			r.Use(ui.requireResult)
			r.Get("/resume.txt", ui.handleExportText)
			r.Get("/copy", ui.handleExportCopy)
			r.Get("/print", ui.handleExportPrint)
			r.Get("/resume.md", ui.handleExportMarkdown)
			r.Get("/resume.html", ui.handleExportHTML)
		})
	})

	r.Route("/api", func(r chi.Router) {
		r.Use(ui.corsHandler())
		r.With(ui.authenticate, ui.rateLimit).Post("/format", ui.handleFormat)
		r.With(ui.withSession).Get("/state", ui.handleState)
	})

	ui.finish(r)
}

// withSession attaches the caller's state, creating a session and
// setting its cookie on first contact.
func (ui *UI) withSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookieName := ui.cfg.Session.CookieName

		var id string
		if c, err := r.Cookie(cookieName); err == nil {
			id = c.Value
		}

		id, st, created := ui.store.GetOrCreate(id)
		if created {
			http.SetCookie(w, &http.Cookie{
				Name:     cookieName,
				Value:    id,
				Path:     "/",
				MaxAge:   int(ui.cfg.Session.TTL.Seconds()),
				HttpOnly: true,
				Secure:   ui.cfg.Session.SecureCookie,
				SameSite: http.SameSiteLaxMode,
			})
			ui.logger.Debug("Session created", "sessions", ui.store.Len())
		}

		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), sessionKey{}, st)))
	})
}

func stateFrom(r *http.Request) *session.State {
	return r.Context().Value(sessionKey{}).(*session.State)
}

func redirectHome(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (ui *UI) handleIndex(w http.ResponseWriter, r *http.Request) {
	st := stateFrom(r)
	snap := st.Snapshot()

	data := web.PageData{
		State:    snap,
		Examples: web.Examples(ui.examples),
		Preview:  web.Preview(snap.Prompt),
	}
	if len(ui.examples) > 0 {
		data.Placeholder = ui.examples[0]
	}
	if res := st.Result(); res != nil {
		if snap.ActiveSection == resume.AllSections {
			data.Formatted = res.Formatted
		} else {
			data.SectionLines = res.Sections.FormattedLines(snap.ActiveSection)
		}
	}

	var buf bytes.Buffer
	if err := ui.renderer.RenderPage(&buf, data); err != nil {
		ui.logger.LogError(err, "Failed to render page")
		ui.writeError(w, "Internal error", "Failed to render page", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	_, _ = buf.WriteTo(w)
}

// handleGenerate runs the submission to completion, then redirects so a
// refresh does not resubmit.
func (ui *UI) handleGenerate(w http.ResponseWriter, r *http.Request) {
	st := stateFrom(r)
	st.SetPrompt(r.PostFormValue("prompt"))

	if err := st.Submit(r.Context(), ui.generator); err != nil {
		if errors.IsType(err, errors.ErrorTypeValidation) {
			ui.logger.Debug("Submission rejected", "reason", err.Error())
		} else {
			ui.logger.LogError(err, "Resume generation failed")
		}
	}
	redirectHome(w, r)
}

func (ui *UI) handleSection(w http.ResponseWriter, r *http.Request) {
	active := stateFrom(r).SelectSection(r.PostFormValue("section"))
	ui.metrics.RecordSectionView(r.Context(), active)
	redirectHome(w, r)
}

func (ui *UI) handleTheme(w http.ResponseWriter, r *http.Request) {
	stateFrom(r).ToggleTheme()
	redirectHome(w, r)
}

func (ui *UI) handleSidebar(w http.ResponseWriter, r *http.Request) {
	stateFrom(r).ToggleSidebar()
	redirectHome(w, r)
}

func (ui *UI) handleExample(w http.ResponseWriter, r *http.Request) {
	n, err := strconv.Atoi(chi.URLParam(r, "n"))
	if err != nil || n < 0 || n >= len(ui.examples) {
		ui.writeError(w, "Not found", "Unknown example prompt", http.StatusNotFound)
		return
	}
	stateFrom(r).SetPrompt(ui.examples[n])
	redirectHome(w, r)
}

func (ui *UI) handleHealth(w http.ResponseWriter, r *http.Request) {
	response := map[string]any{
		"status":   "healthy",
		"service":  "resumaker-ui",
		"version":  ui.version,
		"sessions": ui.store.Len(),
	}

	if h, ok := ui.generator.(interface{ Healthy() bool }); ok && !h.Healthy() {
		response["status"] = "degraded"
		response["backend"] = "circuit open"
		writeJSON(w, http.StatusServiceUnavailable, response)
		return
	}
	writeJSON(w, http.StatusOK, response)
}

func (ui *UI) handleStats(w http.ResponseWriter, r *http.Request) {
	stats := map[string]any{
		"service":  "resumaker-ui",
		"version":  ui.version,
		"sessions": ui.store.Len(),
	}
	if ui.limiter != nil {
		stats["rate_limiter"] = ui.limiter.Stats()
	}
	if s, ok := ui.generator.(interface{ Stats() map[string]any }); ok {
		stats["generator"] = s.Stats()
	}
	writeJSON(w, http.StatusOK, stats)
}
