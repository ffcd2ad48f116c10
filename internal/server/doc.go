// Package server exposes the resolution pipeline over HTTP so a browser
// extension can hand over a track URL and receive the tagged MP3.
//
//	POST /download  {"url": "https://soundcloud.com/artist/track"}
//	GET  /healthz
//	GET  /metrics
package server
