// Package routes wires every HTTP operation into the API.
package routes

import (
	"github.com/danielgtaylor/huma/v2"

	"github.com/janisto/huma-hello/internal/http/index"
)

// Register wires all HTTP routes into the provided API router.
func Register(api huma.API) {
	index.Register(api)
}
