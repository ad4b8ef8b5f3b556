//go:build !(linux || darwin || freebsd || netbsd || openbsd)

package app

func raiseFileLimit() {}
