package builder

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// ParallelBuildConfig configures parallel build operations. The zero value
// builds sequentially.
type ParallelBuildConfig struct {
	Workers int // Number of fields built at once
}

// ParallelBuild builds each field's tree on its own goroutine. A tree is
// owned by exactly one goroutine until the build completes.
// Accepts a context for cancellation support.
func (b *IndexBuilder) ParallelBuild(ctx context.Context, config ParallelBuildConfig) (*Index, error) {
	if config.Workers <= 1 || len(b.opts.Fields) <= 1 {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return b.Build(), nil // Fall back to sequential
	}

	trees := make([]*Tree, len(b.opts.Fields))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(config.Workers)

	for i, field := range b.opts.Fields {
		i, field := i, field
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			trees[i] = b.buildTree(field)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return b.assemble(trees), nil
}
