package swagger

import _ "embed"

// OpenAPI is the gridcast API document served at /openapi.yaml.
//
//go:embed openapi.yaml
var OpenAPI []byte
