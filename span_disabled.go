// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

//go:build tracedisabled

package trace

// SpanRecordingEnabled is false when the tracedisabled build tag is
// set.
const SpanRecordingEnabled = false
