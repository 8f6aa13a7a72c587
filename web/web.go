// Package web embeds the landing page template and its static assets.
package web

import (
	"embed"
	"html/template"
	"io/fs"
)

//go:embed templates/*.html static/*
var files embed.FS

// Templates parses every page template.
func Templates() (*template.Template, error) {
	return template.ParseFS(files, "templates/*.html")
}

// Static returns the asset tree served under /static.
func Static() fs.FS {
	sub, err := fs.Sub(files, "static")
	if err != nil {
		// The directory is embedded at build time.
		panic(err)
	}
	return sub
}
