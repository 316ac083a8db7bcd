// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 ExamReg Contributors

// Package web serves the ExamReg HTML form surface: signup, login,
// forgot/reset password, and logout.
package web

import (
	"embed"
	"html/template"
	"log/slog"
	"net/http"
)

//go:embed templates/*.html
var templatesFS embed.FS

// pages holds all parsed page templates. Pages are executed by file
// name and share the "head"/"foot" partials from layout.html.
var pages = template.Must(template.ParseFS(templatesFS, "templates/*.html"))

// pageData is the data passed to every page template.
type pageData struct {
	Title    string
	UserName string // signed-in student's display name, empty otherwise
	Flash    *Flash
	Name     string // reset page: greeting for the token's owner
	Token    string // reset page: raw token for the form action
}

// render executes the named page template. Render failures after the
// header is written can't be recovered, so they are only logged.
func render(w http.ResponseWriter, name string, data pageData) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := pages.ExecuteTemplate(w, name, data); err != nil {
		slog.Error("template render failed", "template", name, "error", err)
	}
}
