//go:build !unix

package cli

import "syscall"

func detachAttr() *syscall.SysProcAttr {
	return nil
}
