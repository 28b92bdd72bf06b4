//go:build unix

package contents

import "golang.org/x/sys/unix"

// canWrite asks the kernel whether this process may write path, which takes
// ownership and group membership into account.
func canWrite(path string) bool {
	return unix.Access(path, unix.W_OK) == nil
}
