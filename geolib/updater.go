package geolib

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"
)

// Updater keeps a resolver in sync with a source. Each update builds a
// brand new snapshot and swaps it into the resolver; a failed update
// keeps the previous snapshot in place.
type Updater struct {
	ctx         context.Context
	cancel      context.CancelFunc
	logger      Logger
	source      Source
	resolver    *Resolver
	updateEvery time.Duration
	wg          sync.WaitGroup
	closeOnce   sync.Once
}

func (u *Updater) Name() string {
	return u.source.Name()
}

// Start loads an initial snapshot and starts background updates. If
// initial load fails, nothing is started.
func (u *Updater) Start() error {
	if err := u.Update(); err != nil {
		return fmt.Errorf("cannot load initial dataset of %s: %w", u.Name(), err)
	}

	u.logger.UpdateInfo(u.Name(), "initial dataset has been loaded")

	if u.updateEvery > 0 {
		u.wg.Add(1)

		go u.bgUpdate()
	}

	return nil
}

// Update synchronously loads a dataset and installs a new snapshot.
func (u *Updater) Update() error {
	dataset, err := u.source.Load(u.ctx)
	if err != nil {
		return fmt.Errorf("cannot load dataset: %w", err)
	}

	u.resolver.Swap(NewSnapshot(u.Name(), dataset, u.logger))

	return nil
}

func (u *Updater) Shutdown() {
	u.closeOnce.Do(func() {
		u.cancel()
		u.wg.Wait()

		if closer, ok := u.source.(io.Closer); ok {
			if err := closer.Close(); err != nil {
				u.logger.UpdateError(u.Name(), fmt.Errorf("cannot close source: %w", err))
			}
		}
	})
}

func (u *Updater) bgUpdate() {
	defer u.wg.Done()

	timer := time.NewTicker(u.updateEvery)
	defer timer.Stop()

	for {
		select {
		case <-u.ctx.Done():
			return
		case <-timer.C:
			if err := u.Update(); err != nil {
				u.logger.UpdateError(u.Name(), err)
			} else {
				u.logger.UpdateInfo(u.Name(), "dataset has been updated")
			}
		}
	}
}

// NewUpdater creates a new updater. If updateEvery is not positive,
// only initial dataset is loaded.
func NewUpdater(source Source, resolver *Resolver, logger Logger, updateEvery time.Duration) *Updater {
	ctx, cancel := context.WithCancel(context.Background())

	return &Updater{
		ctx:         ctx,
		cancel:      cancel,
		logger:      logger,
		source:      source,
		resolver:    resolver,
		updateEvery: updateEvery,
	}
}
