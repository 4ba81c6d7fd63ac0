// Package data bundles the default API directory dataset.
package data

import _ "embed"

//go:embed apis.json
var APIs []byte
