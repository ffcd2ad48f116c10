package config

import "github.com/handiism/soundcloud-downloader/internal/model"

// ExampleTokens is the fixed track used to preview a naming format.
var ExampleTokens = map[string]string{
	"artist":   "Daft Punk",
	"title":    "Around The World",
	"year":     "1997",
	"genre":    "Electronic",
	"album":    "Homework",
	"username": "daftpunkofficial",
	"comment":  "Classic track",
}

// Preview renders the file name the naming settings would give the
// example track, extension included.
func Preview(naming model.NamingTemplate) string {
	return naming.Render(ExampleTokens) + model.FileExtension
}
