// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

//go:build linux

package trace

import (
	"bytes"
	"os"
	"strconv"
	"unsafe"

	"golang.org/x/sys/unix"
)

// taskCommLen is the kernel's TASK_COMM_LEN: 15 name bytes plus NUL.
const taskCommLen = 16

// CurrentThreadID returns the OS thread id of the calling thread.
func CurrentThreadID() ThreadID {
	return ThreadID(unix.Gettid())
}

// SetCurrentThreadName sets the OS-level name of the calling thread.
// Names longer than 15 bytes are truncated by the kernel's limit.
func SetCurrentThreadName(name string) error {
	var buf [taskCommLen]byte
	n := copy(buf[:taskCommLen-1], name)
	buf[n] = 0
	return unix.Prctl(unix.PR_SET_NAME, uintptr(unsafe.Pointer(&buf[0])), 0, 0, 0)
}

// currentThreadName reads the calling thread's own name.
func currentThreadName() (string, error) {
	var buf [taskCommLen]byte
	if err := unix.Prctl(unix.PR_GET_NAME, uintptr(unsafe.Pointer(&buf[0])), 0, 0, 0); err != nil {
		return "", err
	}
	if i := bytes.IndexByte(buf[:], 0); i >= 0 {
		return string(buf[:i]), nil
	}
	return string(buf[:]), nil
}

// threadNameForID reads the name of a live thread in this process.
// Fails once the thread has exited.
func threadNameForID(id ThreadID) (string, error) {
	comm, err := os.ReadFile("/proc/self/task/" + strconv.FormatInt(int64(id), 10) + "/comm")
	if err != nil {
		return "", err
	}
	return string(bytes.TrimRight(comm, "\n")), nil
}
