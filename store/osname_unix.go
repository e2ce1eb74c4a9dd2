//go:build unix

package store

import (
	"strings"

	"golang.org/x/sys/unix"
)

var osName = unameString()

func unameString() string {
	var uts unix.Utsname
	if err := unix.Uname(&uts); err != nil {
		return "unix"
	}
	sys := unix.ByteSliceToString(uts.Sysname[:])
	release := unix.ByteSliceToString(uts.Release[:])
	return strings.ToLower(strings.TrimSpace(sys + " " + release))
}
