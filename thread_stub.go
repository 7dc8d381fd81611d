// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

//go:build !linux

package trace

import "errors"

var errThreadNamesUnsupported = errors.New("trace: thread names unsupported on this platform")

// CurrentThreadID returns a synthetic thread id. Platforms without a
// thread-id syscall attribute all samples to one synthetic thread.
func CurrentThreadID() ThreadID {
	return 1
}

// SetCurrentThreadName is unsupported on this platform.
func SetCurrentThreadName(string) error {
	return errThreadNamesUnsupported
}

func currentThreadName() (string, error) {
	return "", errThreadNamesUnsupported
}

func threadNameForID(ThreadID) (string, error) {
	return "", errThreadNamesUnsupported
}
