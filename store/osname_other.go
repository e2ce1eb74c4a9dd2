//go:build !unix

package store

import "runtime"

var osName = runtime.GOOS
