package swagger

import _ "embed"

// OpenAPI contains the embedded OpenAPI YAML template. Render fills in the
// title and server base path.
//
//go:embed openapi.yaml
var OpenAPI []byte
