// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package trace

import (
	"code.hybscloud.com/iox"
	"code.hybscloud.com/spin"
)

// retryBackoff is the bounded backoff used by storage retry loops:
// a few CPU pauses first, since contention on a sample push is
// usually a single racing producer, then adaptive waits.
type retryBackoff struct {
	spin     spin.Wait
	backoff  iox.Backoff
	attempts int
}

// spinAttempts is how many failures are absorbed by pause
// instructions before the loop starts yielding.
const spinAttempts = 4

func (b *retryBackoff) wait() {
	b.attempts++
	if b.attempts <= spinAttempts {
		b.spin.Once()
		return
	}
	b.backoff.Wait()
}

func (b *retryBackoff) reset() {
	b.attempts = 0
	b.backoff.Reset()
}
