package geolib

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/panjf2000/ants/v2"
)

const (
	DefaultWorkerPoolSize = 4096

	workerPoolExpireTime = time.Minute
)

// Resolver is an entry point for IP resolving. It holds a current
// snapshot which is replaced with Swap when dataset is refreshed.
//
// Each query loads the current snapshot exactly once, so a query which
// has started before Swap is finished with an old snapshot.
type Resolver struct {
	logger      Logger
	httpHandler http.Handler
	snapshot    atomic.Pointer[Snapshot]
	stats       *UsageStats
	workerPool  *ants.PoolWithFunc
	closed      atomic.Bool
	closeOnce   sync.Once
}

func (r *Resolver) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.httpHandler.ServeHTTP(w, req)
}

// Resolve parses a text representation of IPv4 address and returns
// a location of the most specific network which contains it.
func (r *Resolver) Resolve(ctx context.Context, address string) (ResolvedLocation, error) {
	snapshot, err := r.currentSnapshot()
	if err != nil {
		return ResolvedLocation{}, err
	}

	return r.resolveOn(ctx, snapshot, address)
}

// ResolveAll resolves a batch of addresses. All addresses are resolved
// against the same snapshot. Results have the same order as addresses.
// Failure to resolve a single address is reported in its result, not
// as a returned error.
func (r *Resolver) ResolveAll(ctx context.Context, addresses []string) ([]ResolveResult, error) {
	snapshot, err := r.currentSnapshot()
	if err != nil {
		return nil, err
	}

	rv := make([]ResolveResult, len(addresses))
	groupRequest := newPoolGroupRequest(ctx, snapshot, r.workerPool)

	for i, v := range addresses {
		rv[i].Address = v

		if err := groupRequest.Do(ctx, v, &rv[i]); err != nil {
			groupRequest.Wait()

			return nil, err
		}
	}

	groupRequest.Wait()

	return rv, nil
}

// Swap installs a new snapshot and returns a previous one (nil if there
// was none).
func (r *Resolver) Swap(snapshot *Snapshot) *Snapshot {
	old := r.snapshot.Swap(snapshot)

	r.stats.Updated(snapshot)

	return old
}

// Snapshot returns a current snapshot or nil.
func (r *Resolver) Snapshot() *Snapshot {
	return r.snapshot.Load()
}

func (r *Resolver) Stats() *UsageStats {
	return r.stats
}

func (r *Resolver) Shutdown() {
	r.closed.Store(true)

	r.closeOnce.Do(func() {
		r.workerPool.Release()
	})
}

func (r *Resolver) currentSnapshot() (*Snapshot, error) {
	if r.closed.Load() {
		return nil, ErrResolverShutdown
	}

	snapshot := r.snapshot.Load()
	if snapshot == nil {
		return nil, ErrNotReady
	}

	return snapshot, nil
}

func (r *Resolver) resolveOn(ctx context.Context, snapshot *Snapshot, address string) (ResolvedLocation, error) {
	ip, err := ParseIPv4(address)
	if err != nil {
		err = fmt.Errorf("%w: %q", err, address)

		r.stats.Used(err, false)

		return ResolvedLocation{}, err
	}

	location, ambiguous, err := snapshot.resolve(ctx, ip)

	r.stats.Used(err, ambiguous)

	if err != nil && !errors.Is(err, ErrNoMatch) {
		r.logger.LookupError(address, err)
	}

	return location, err
}

func (r *Resolver) resolveTask(args interface{}) {
	req := args.(*resolveRequest)
	defer req.wg.Done()

	req.result.Location, req.result.Err = r.resolveOn(req.ctx, req.snapshot, req.address)
}

func NewResolver(logger Logger, workerPoolSize int) *Resolver {
	rv := &Resolver{
		logger: logger,
		stats:  &UsageStats{},
	}
	rv.httpHandler = NewHTTPHandler(rv)

	poolSize := workerPoolSize
	if poolSize <= 0 {
		poolSize = DefaultWorkerPoolSize
	}

	pool, err := ants.NewPoolWithFunc(poolSize, rv.resolveTask,
		ants.WithExpiryDuration(workerPoolExpireTime))
	if err != nil {
		panic(err)
	}

	rv.workerPool = pool

	return rv
}
