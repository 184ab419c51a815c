package bridge

import (
	"context"

	"github.com/sundeepg98/colab-bridge/internal/protocol"
)

// BatchItem is the per-command outcome of a batch submission. Exactly one
// of Result and Err is set.
type BatchItem struct {
	ID     string
	Result *protocol.Result
	Err    error
}

// SubmitBatch submits each command independently and aggregates per-item
// outcomes. There is no atomicity across the batch: partial success is
// expected and reported item by item, and an early failure does not roll
// back commands already submitted.
func (b *Bridge) SubmitBatch(ctx context.Context, cmds []*protocol.Command) []BatchItem {
	items := make([]BatchItem, 0, len(cmds))
	for _, cmd := range cmds {
		result, err := b.Submit(ctx, cmd)
		item := BatchItem{Result: result, Err: err}
		if cmd != nil {
			item.ID = cmd.ID
		}
		items = append(items, item)

		// A cancelled context fails every remaining item the same way;
		// stop early rather than spinning through them.
		if ctx.Err() != nil {
			for _, rest := range cmds[len(items):] {
				restItem := BatchItem{Err: ctx.Err()}
				if rest != nil {
					restItem.ID = rest.ID
				}
				items = append(items, restItem)
			}
			break
		}
	}
	return items
}
