package engine

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/goodnatureofminers/blockinsight7000-indexer/internal/chain"
	"github.com/goodnatureofminers/blockinsight7000-indexer/internal/store"
)

// ReorgResolver locates the deepest block the local index and the remote
// chain still agree on.
type ReorgResolver struct {
	source   ChainSource
	reader   store.Reader
	maxDepth uint64
	log      *zap.Logger
}

func NewReorgResolver(source ChainSource, reader store.Reader, maxDepth uint64, log *zap.Logger) *ReorgResolver {
	if maxDepth == 0 {
		maxDepth = defaultMaxReorgDepth
	}
	return &ReorgResolver{source: source, reader: reader, maxDepth: maxDepth, log: log}
}

// ForkPoint is the last height on which both sides agree. Depth counts the
// local blocks above it that must be revoked; zero means the local chain is
// a clean prefix of the remote one.
type ForkPoint struct {
	Height uint64
	Hash   string
	Depth  uint64
}

// Resolve walks backwards from the lower of the two tips, comparing the
// local hash against the remote hash height by height. A walk that would
// require revoking more than maxDepth blocks fails with ErrReorgTooDeep, as
// does divergence all the way down to height zero.
func (r *ReorgResolver) Resolve(ctx context.Context, localBest uint64, remoteTip chain.Tip) (ForkPoint, error) {
	height := localBest
	if remoteTip.Height < height {
		height = remoteTip.Height
	}

	for {
		if err := ctx.Err(); err != nil {
			return ForkPoint{}, err
		}
		if localBest-height > r.maxDepth {
			return ForkPoint{}, fmt.Errorf("no common block within %d blocks below height %d: %w", r.maxDepth, localBest, ErrReorgTooDeep)
		}

		local, err := r.reader.BlockByHeight(ctx, height)
		if err != nil {
			return ForkPoint{}, fmt.Errorf("local block at height %d: %w", height, err)
		}
		remoteHash, err := r.source.HashAtHeight(ctx, height)
		if err != nil {
			return ForkPoint{}, fmt.Errorf("remote hash at height %d: %w", height, err)
		}
		if local.Hash == remoteHash {
			fork := ForkPoint{Height: height, Hash: remoteHash, Depth: localBest - height}
			if fork.Depth > 0 {
				r.log.Info("fork point located",
					zap.Uint64("height", fork.Height),
					zap.Uint64("depth", fork.Depth))
			}
			return fork, nil
		}
		if height == 0 {
			return ForkPoint{}, fmt.Errorf("chains diverge at height 0: %w", ErrReorgTooDeep)
		}
		height--
	}
}
