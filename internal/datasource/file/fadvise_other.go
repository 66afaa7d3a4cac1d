//go:build !linux

package file

import "os"

func adviseSequential(*os.File) error { return nil }
