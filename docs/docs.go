// Package docs содержит описание JSON API портала для Swagger UI.
package docs

import _ "embed"

//go:embed swagger.json
var SwaggerJSON []byte
