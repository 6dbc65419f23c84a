package server

import (
	"bytes"
	"context"
	"fmt"
	"net/http"

	"resumaker/internal/errors"
	"resumaker/internal/resume"
	"resumaker/internal/types"
	"resumaker/internal/web"
)

type resultKey struct{}

// requireResult answers 404 until the session has a generated résumé.
func (ui *UI) requireResult(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		res := stateFrom(r).Result()
		if res == nil {
			ui.writeError(w, errors.ErrCodeNoResult, errors.MsgNoResult, http.StatusNotFound)
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), resultKey{}, res)))
	})
}

func resultFrom(r *http.Request) *resume.Result {
	return r.Context().Value(resultKey{}).(*resume.Result)
}

func writeDownload(w http.ResponseWriter, contentType, filename, body string) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	_, _ = w.Write([]byte(body))
}

func (ui *UI) handleExportText(w http.ResponseWriter, r *http.Request) {
	ui.metrics.RecordExport(r.Context(), "txt")
	writeDownload(w, "text/plain; charset=utf-8", "resume.txt", resultFrom(r).Text())
}

// handleExportCopy returns the export text inline for the clipboard script.
func (ui *UI) handleExportCopy(w http.ResponseWriter, r *http.Request) {
	ui.metrics.RecordExport(r.Context(), "copy")
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	_, _ = w.Write([]byte(resultFrom(r).Text()))
}

func (ui *UI) handleExportPrint(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	if err := ui.renderer.RenderPrint(&buf, web.PrintData{Formatted: resultFrom(r).Formatted}); err != nil {
		ui.logger.LogError(err, "Failed to render print page")
		ui.writeError(w, "Internal error", "Failed to render print page", http.StatusInternalServerError)
		return
	}
	ui.metrics.RecordExport(r.Context(), "print")
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = buf.WriteTo(w)
}

func (ui *UI) handleExportMarkdown(w http.ResponseWriter, r *http.Request) {
	ui.metrics.RecordExport(r.Context(), "markdown")
	writeDownload(w, "text/markdown; charset=utf-8", "resume.md", resultFrom(r).Sections.ExportMarkdown())
}

func (ui *UI) handleExportHTML(w http.ResponseWriter, r *http.Request) {
	fragment, err := resultFrom(r).Sections.RenderHTML()
	if err != nil {
		ui.logger.LogError(err, "Failed to render HTML export")
		ui.writeError(w, "Internal error", "Failed to render HTML export", http.StatusInternalServerError)
		return
	}
	ui.metrics.RecordExport(r.Context(), "html")
	doc := "<!DOCTYPE html>\n<html lang=\"en\">\n<head><meta charset=\"utf-8\"><title>Resume</title></head>\n<body>\n" +
		string(fragment) + "</body>\n</html>\n"
	writeDownload(w, "text/html; charset=utf-8", "resume.html", doc)
}

func (ui *UI) handleFormat(w http.ResponseWriter, r *http.Request) {
	var req types.FormatRequest
	if appErr, status := decodeJSON(r, &req); appErr != nil {
		ui.writeError(w, "Invalid request", appErr.Message, status)
		return
	}

	res := resume.NewResult(req.Text)
	writeJSON(w, http.StatusOK, types.FormatResponse{
		Formatted: string(res.Formatted),
		Sections:  res.Sections.Sections(),
	})
}

func (ui *UI) handleState(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Cache-Control", "no-store")
	writeJSON(w, http.StatusOK, stateFrom(r).Snapshot())
}
