// Package web holds the server-rendered pages and their static assets.
package web

import "embed"

// TemplatesFS embeds the page and partial templates.
//
//go:embed templates/*.html
var TemplatesFS embed.FS

// StaticFS embeds stylesheets and scripts served under /static/.
//
//go:embed static/*
var StaticFS embed.FS
