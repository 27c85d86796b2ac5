// Package api holds the HTTP contract served by cmd/orders.
package api

import _ "embed"

//go:embed openapi.yaml
var Contract []byte
