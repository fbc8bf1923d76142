package sm3

import (
	"context"

	"github.com/opentoys/sm3/gopool"
)

// SumAll hashes every input on its own Digest, running at most limit
// digests at once (limit <= 0 means one per input). sums[i] belongs to
// inputs[i]. It stops early when ctx is canceled.
func SumAll(ctx context.Context, limit int, inputs ...[]byte) (sums [][Size]byte, e error) {
	sums = make([][Size]byte, len(inputs))
	if limit <= 0 {
		limit = len(inputs)
	}
	g, ctx := gopool.WithContext(ctx)
	g.SetLimit(limit)
	for i := range inputs {
		if e = ctx.Err(); e != nil {
			break
		}
		i := i // per-iteration copy; go.mod targets go 1.21 (pre-1.22 loop semantics)
		g.Go(func() (e error) {
			if e = ctx.Err(); e != nil {
				return
			}
			d := New()
			if _, e = d.Write(inputs[i]); e != nil {
				return
			}
			sums[i], e = d.Finalize()
			return
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if e != nil {
		return nil, e
	}
	return
}
