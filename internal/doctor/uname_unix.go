//go:build linux || darwin

package doctor

import "golang.org/x/sys/unix"

func kernelVersion() string {
	var uts unix.Utsname
	if err := unix.Uname(&uts); err != nil {
		return ""
	}
	return unix.ByteSliceToString(uts.Release[:]) + " (" + unix.ByteSliceToString(uts.Machine[:]) + ")"
}
