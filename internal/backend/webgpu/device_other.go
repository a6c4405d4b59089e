//go:build !windows

package webgpu

import "fmt"

// device is never opened on this platform.
type device struct{}

func openDevice() (*device, error) {
	return nil, fmt.Errorf("%w: the go-webgpu bindings are built for windows only", ErrUnavailable)
}

func (*device) dispatch(kernel, [][]byte, int, []uint32, [3]uint32) ([]byte, error) {
	return nil, ErrUnavailable
}

func (*device) release() {}
