// Package web holds the landing page served at "/".
package web

import _ "embed"

//go:embed index.html
var IndexHTML string
