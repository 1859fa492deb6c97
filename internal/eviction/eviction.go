// Package eviction implements the TTL/eviction controller (spec
// §4.4): an hourly-boundary-triggered background task that runs
// clean_object when the active placement policy is skystore, plus
// the clean_object operation itself shared with the on-demand
// /clean_object endpoint.
package eviction

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/skystorehq/geogw/internal/log"
	"github.com/skystorehq/geogw/internal/metrics"
	"github.com/skystorehq/geogw/internal/policy/placement"
	"github.com/skystorehq/geogw/internal/remotestore"
	"github.com/skystorehq/geogw/internal/store"
)

// ActivePolicyName is satisfied by the policy registry; the
// controller only fires its hourly sweep when the active put policy
// is skystore (spec §4.4). Under any other policy, expired locators
// are removed only when clean_object is called on demand.
type ActivePolicyName func() string

// Controller runs CleanObject on an hourly cadence and exposes it for
// the on-demand clean_object/clean_out_remaining endpoints too.
type Controller struct {
	st          *store.Store
	remote      remotestore.Client
	activeName  ActivePolicyName
	batchLimit  int
	logger      zerolog.Logger
	stopCh      chan struct{}
}

func New(st *store.Store, remote remotestore.Client, activeName ActivePolicyName, batchLimit int) *Controller {
	if batchLimit <= 0 {
		batchLimit = 500
	}
	return &Controller{
		st:         st,
		remote:     remote,
		activeName: activeName,
		batchLimit: batchLimit,
		logger:     log.WithComponent("eviction"),
		stopCh:     make(chan struct{}),
	}
}

// Start launches the hourly-boundary trigger loop in its own
// goroutine.
func (c *Controller) Start() { go c.run() }

// Stop signals the loop to exit.
func (c *Controller) Stop() { close(c.stopCh) }

func (c *Controller) run() {
	c.logger.Info().Msg("eviction controller started")
	for {
		wait := timeUntilNextHour(time.Now())
		select {
		case <-time.After(wait):
			if c.activeName() == placement.NameSkystore {
				if err := c.CleanObject(context.Background()); err != nil {
					c.logger.Error().Err(err).Msg("hourly clean_object failed")
				}
			}
		case <-c.stopCh:
			c.logger.Info().Msg("eviction controller stopped")
			return
		}
	}
}

func timeUntilNextHour(now time.Time) time.Duration {
	next := now.Truncate(time.Hour).Add(time.Hour)
	return next.Sub(now)
}

// CleanObject runs one TTL garbage-collection pass (spec §4.1
// clean_object, §4.4): find expired non-primary locators, mark them
// pending_deletion, ask the remote store to delete the underlying
// objects, and either commit the deletion or roll back on failure.
func (c *Controller) CleanObject(ctx context.Context) error {
	expired, err := c.st.FindExpiredLocators(ctx, time.Now(), c.batchLimit)
	if err != nil {
		return err
	}
	if len(expired) == 0 {
		return nil
	}
	metrics.EvictionLocatorsExpired.Add(float64(len(expired)))

	ids := make([]uint, 0, len(expired))
	refs := make([]remotestore.ObjectRef, 0, len(expired))
	for _, e := range expired {
		ids = append(ids, e.ID)
		refs = append(refs, remotestore.ObjectRef{
			LocationTag: e.LocationTag,
			Bucket:      e.Bucket,
			Key:         e.Key,
			VersionID:   e.VersionID,
		})
	}

	if err := c.st.MarkLocatorsPending(ctx, ids); err != nil {
		return err
	}

	if err := c.remote.DeleteObjects(ctx, refs); err != nil {
		c.logger.Error().Err(err).Int("count", len(ids)).Msg("remote delete failed, rolling back")
		metrics.EvictionRollbacks.Inc()
		if rerr := c.st.RollbackCleanObject(ctx, ids); rerr != nil {
			c.logger.Error().Err(rerr).Msg("rollback after remote failure also failed")
			return rerr
		}
		return err
	}

	if err := c.st.CompleteCleanObject(ctx, ids); err != nil {
		return err
	}
	metrics.EvictionLocatorsDeleted.Add(float64(len(ids)))
	return nil
}

// CleanOutRemaining force-removes every remaining physical locator of
// a logical object, used once its logical row itself is headed for
// deletion (spec §6 clean_out_remaining).
func (c *Controller) CleanOutRemaining(ctx context.Context, logicalID uint) error {
	locs, err := c.st.CleanOutRemaining(ctx, logicalID)
	if err != nil {
		return err
	}
	if len(locs) == 0 {
		return nil
	}
	refs := make([]remotestore.ObjectRef, 0, len(locs))
	for _, l := range locs {
		refs = append(refs, remotestore.ObjectRef{LocationTag: l.LocationTag, Bucket: l.Bucket, Key: l.Key, VersionID: l.VersionID})
	}
	return c.remote.DeleteObjects(ctx, refs)
}
