package swaggerui

import (
	"net/http"

	swgui "github.com/swaggest/swgui/v5"
)

// Handler returns a Swagger UI handler mounted at basePath that renders the
// document served at specPath (assets embedded, no CDN).
func Handler(specPath, basePath string) http.Handler {
	return swgui.New("Singora API", specPath, basePath)
}
