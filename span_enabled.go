// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

//go:build !tracedisabled

package trace

// SpanRecordingEnabled is true unless the tracedisabled build tag is
// set. With the tag, StartSpan and End compile to nothing.
const SpanRecordingEnabled = true
