// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package trace

import "code.hybscloud.com/atomix"

// fenceCell is the shared cell behind seqCstFence. A sequentially
// consistent read-modify-write on one shared cell gives every fence a
// place in the single total order of seq-cst operations.
var fenceCell atomix.Uint64

// seqCstFence is a full sequentially consistent fence.
//
// The ring queues pair a producer fence after reserving write_end with
// a consumer fence after copying cells; the pairing bounds how many
// trailing items the consumer must discard when a push raced with the
// drain.
func seqCstFence() {
	fenceCell.Add(1)
}
