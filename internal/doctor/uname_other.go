//go:build !linux && !darwin

package doctor

func kernelVersion() string {
	return ""
}
