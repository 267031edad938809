package geolib

import (
	"context"
	"fmt"
	"sync"

	"github.com/panjf2000/ants/v2"
)

type resolveRequest struct {
	ctx      context.Context
	snapshot *Snapshot
	address  string
	result   *ResolveResult
	wg       *sync.WaitGroup
}

type poolGroupRequest struct {
	ctx      context.Context
	cancel   context.CancelFunc
	snapshot *Snapshot
	wg       *sync.WaitGroup
	pool     *ants.PoolWithFunc
}

func (p *poolGroupRequest) Do(ctx context.Context, address string, result *ResolveResult) error {
	select {
	case <-ctx.Done():
		return ErrContextIsClosed
	case <-p.ctx.Done():
		return ErrContextIsClosed
	default:
	}

	p.wg.Add(1)

	req := &resolveRequest{
		ctx:      p.ctx,
		snapshot: p.snapshot,
		address:  address,
		result:   result,
		wg:       p.wg,
	}

	if err := p.pool.Invoke(req); err != nil {
		p.wg.Done()
		p.cancel()

		return fmt.Errorf("cannot schedule a task: %w", err)
	}

	return nil
}

// Wait blocks until all scheduled tasks are finished.
func (p *poolGroupRequest) Wait() {
	p.wg.Wait()
	p.cancel()
}

func newPoolGroupRequest(ctx context.Context, snapshot *Snapshot, pool *ants.PoolWithFunc) *poolGroupRequest {
	ctx, cancel := context.WithCancel(ctx)

	return &poolGroupRequest{
		ctx:      ctx,
		cancel:   cancel,
		snapshot: snapshot,
		wg:       &sync.WaitGroup{},
		pool:     pool,
	}
}
