// Package outbox queues remote mutations durably and drains them in order.
//
// Every intent is persisted before the call is attempted, so a mutation
// made while offline (or interrupted by a restart) is retried on the next
// drain. Deletes also enter the pending deletion set in the same
// transaction; reconciliation hides those records until the delete is
// acknowledged. The queue lives in the store only, so a CLI process can
// enqueue while a daemon drains.
package outbox

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"lockin/internal/logging"
	"lockin/internal/metrics"
	"lockin/internal/retry"
	"lockin/internal/service"
	"lockin/internal/store"
)

// Kind is the kind of mutation an intent carries.
type Kind string

const (
	// KindUpsert creates or updates a saved task from its current local record.
	KindUpsert Kind = "upsert"
	// KindDelete deletes a record by backend id.
	KindDelete Kind = "delete"
)

// Intent is one queued remote mutation.
type Intent struct {
	ID          uuid.UUID        `json:"id"`
	Kind        Kind             `json:"kind"`
	Resource    service.Resource `json:"resource"`
	FrontendKey int64            `json:"frontendKey"`
	BackendID   int64            `json:"backendId"`
	Seq         uint64           `json:"seq"`
	CreatedAt   time.Time        `json:"createdAt"`
}

func (i Intent) key() string {
	return intentKey(i.Kind, i.Resource, i.FrontendKey)
}

func intentKey(kind Kind, res service.Resource, frontendKey int64) string {
	return fmt.Sprintf("%s/%s/%d", kind, res, frontendKey)
}

// queue is the persisted form of the outbox.
type queue struct {
	Seq     uint64   `json:"seq"`
	Intents []Intent `json:"intents"`
}

func (q *queue) index(key string) int {
	for i, in := range q.Intents {
		if in.key() == key {
			return i
		}
	}
	return -1
}

func (q *queue) remove(i int) {
	q.Intents = append(q.Intents[:i:i], q.Intents[i+1:]...)
}

// Resolver gives the outbox access to local saved tasks.
type Resolver interface {
	// ResolveSavedTask returns the current local template for frontendKey.
	ResolveSavedTask(frontendKey int64) (service.SavedTask, bool, error)
	// SavedTaskSynced records the backend id echoed for frontendKey.
	// Returns false if the template no longer exists locally.
	SavedTaskSynced(frontendKey, backendID int64) (bool, error)
}

// Outbox is the durable intent queue.
type Outbox struct {
	store    *store.Store
	remote   service.Remote
	retry    *retry.Driver
	resolver Resolver
	now      func() time.Time
	log      zerolog.Logger

	mu       sync.Mutex
	inflight map[string]context.CancelFunc
}

// New creates an outbox over st. remote may be nil, in which case intents
// are queued but Drain does nothing.
func New(st *store.Store, remote service.Remote, driver *retry.Driver, resolver Resolver) *Outbox {
	return &Outbox{
		store:    st,
		remote:   remote,
		retry:    driver,
		resolver: resolver,
		now:      time.Now,
		log:      logging.WithComponent("outbox"),
		inflight: make(map[string]context.CancelFunc),
	}
}

// Pending returns the queued intents in drain order.
func (o *Outbox) Pending() ([]Intent, error) {
	var q queue
	if _, err := o.store.Get(store.KeyOutbox, &q); err != nil {
		return nil, fmt.Errorf("failed to load outbox: %w", err)
	}
	return q.Intents, nil
}

// Len returns the number of queued intents.
func (o *Outbox) Len() (int, error) {
	intents, err := o.Pending()
	return len(intents), err
}

// QueuedUpserts returns the frontend keys with a queued upsert for res.
func (o *Outbox) QueuedUpserts(tx *store.Tx, res service.Resource) (map[int64]bool, error) {
	q, err := o.load(tx)
	if err != nil {
		return nil, err
	}
	keys := make(map[int64]bool)
	for _, in := range q.Intents {
		if in.Kind == KindUpsert && in.Resource == res {
			keys[in.FrontendKey] = true
		}
	}
	return keys, nil
}

// EnqueueUpsertTx queues an upsert inside tx. An upsert already queued for
// the same record is bumped instead of duplicated; a call in flight for it
// is abandoned at its next attempt so the latest content is sent.
func (o *Outbox) EnqueueUpsertTx(tx *store.Tx, res service.Resource, frontendKey int64) error {
	q, err := o.load(tx)
	if err != nil {
		return err
	}
	o.push(&q, Intent{Kind: KindUpsert, Resource: res, FrontendKey: frontendKey, BackendID: service.UnassignedID})
	return o.save(tx, q)
}

// EnqueueDelete queues a delete in its own transaction.
func (o *Outbox) EnqueueDelete(res service.Resource, frontendKey, backendID int64) error {
	return o.store.Update(func(tx *store.Tx) error {
		return o.EnqueueDeleteTx(tx, res, frontendKey, backendID)
	})
}

// EnqueueDeleteTx queues a delete of backendID inside tx and marks it
// pending. Any upsert queued for the same record is dropped. When
// backendID is unassigned the record never reached the backend, so only
// the upsert is dropped.
func (o *Outbox) EnqueueDeleteTx(tx *store.Tx, res service.Resource, frontendKey, backendID int64) error {
	q, err := o.load(tx)
	if err != nil {
		return err
	}

	upsertKey := intentKey(KindUpsert, res, frontendKey)
	if i := q.index(upsertKey); i >= 0 {
		q.remove(i)
		o.abandon(upsertKey)
	}

	if backendID >= 0 {
		o.push(&q, Intent{Kind: KindDelete, Resource: res, FrontendKey: frontendKey, BackendID: backendID})

		p, err := tx.PendingDeletions()
		if err != nil {
			return err
		}
		p.Add(res, backendID)
		if err := tx.Put(store.KeyPendingDeletions, p); err != nil {
			return err
		}
	}
	return o.save(tx, q)
}

func (o *Outbox) push(q *queue, in Intent) {
	q.Seq++
	k := in.key()
	if i := q.index(k); i >= 0 {
		q.Intents[i].Seq = q.Seq
		if in.BackendID >= 0 {
			q.Intents[i].BackendID = in.BackendID
		}
		o.abandon(k)
		return
	}
	in.ID = uuid.New()
	in.Seq = q.Seq
	in.CreatedAt = o.now()
	q.Intents = append(q.Intents, in)
}

// abandon cancels the retry loop of an in-flight call for key.
func (o *Outbox) abandon(key string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if cancel, ok := o.inflight[key]; ok {
		cancel()
		delete(o.inflight, key)
	}
}

func (o *Outbox) load(tx *store.Tx) (queue, error) {
	var q queue
	if _, err := tx.Get(store.KeyOutbox, &q); err != nil {
		return queue{}, fmt.Errorf("failed to load outbox: %w", err)
	}
	return q, nil
}

func (o *Outbox) save(tx *store.Tx, q queue) error {
	if err := tx.Put(store.KeyOutbox, q); err != nil {
		return fmt.Errorf("failed to persist outbox: %w", err)
	}
	metrics.OutboxPending.Set(float64(len(q.Intents)))
	return nil
}

// Drain executes queued intents in order until the queue is empty or ctx
// is done. Each call goes through the retry driver, so Drain blocks while
// the backend is unreachable.
func (o *Outbox) Drain(ctx context.Context) error {
	if o.remote == nil {
		return nil
	}

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		intents, err := o.Pending()
		if err != nil {
			return err
		}
		if len(intents) == 0 {
			return nil
		}
		in := intents[0]

		// Superseding an intent cancels attemptCtx, which stops the retry
		// loop between attempts. A request already sent is not aborted.
		attemptCtx, cancel := context.WithCancel(ctx)
		o.mu.Lock()
		o.inflight[in.key()] = cancel
		o.mu.Unlock()

		err = o.execute(ctx, attemptCtx, in)

		o.mu.Lock()
		delete(o.inflight, in.key())
		o.mu.Unlock()
		cancel()

		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			if errors.Is(err, context.Canceled) {
				o.log.Debug().Str("intent", in.ID.String()).Msg("intent superseded")
				continue
			}
			return err
		}

		if err := o.ack(in); err != nil {
			return err
		}
	}
}

// ack removes in from the queue unless it was re-enqueued meanwhile.
func (o *Outbox) ack(in Intent) error {
	return o.store.Update(func(tx *store.Tx) error {
		q, err := o.load(tx)
		if err != nil {
			return err
		}
		i := q.index(in.key())
		if i < 0 || q.Intents[i].Seq != in.Seq {
			return nil
		}
		q.remove(i)

		if in.Kind == KindDelete {
			p, err := tx.PendingDeletions()
			if err != nil {
				return err
			}
			p.Remove(in.Resource, in.BackendID)
			if err := tx.Put(store.KeyPendingDeletions, p); err != nil {
				return err
			}
		}
		return o.save(tx, q)
	})
}

func (o *Outbox) execute(ctx, attemptCtx context.Context, in Intent) error {
	log := o.log.With().
		Str("intent", in.ID.String()).
		Str("kind", string(in.Kind)).
		Str("resource", string(in.Resource)).
		Int64("frontendKey", in.FrontendKey).
		Logger()

	switch in.Kind {
	case KindDelete:
		log.Debug().Int64("backendId", in.BackendID).Msg("deleting remote record")
		return retry.Exec(attemptCtx, o.retry, "delete-"+string(in.Resource), func(context.Context) error {
			if in.Resource == service.ResourceSavedTasks {
				return o.remote.DeleteSavedTask(ctx, in.BackendID)
			}
			return o.remote.DeleteTask(ctx, in.BackendID)
		})
	case KindUpsert:
		return o.upsertSavedTask(ctx, attemptCtx, in, log)
	default:
		log.Warn().Msg("dropping intent of unknown kind")
		return nil
	}
}

func (o *Outbox) upsertSavedTask(ctx, attemptCtx context.Context, in Intent, log zerolog.Logger) error {
	current, ok, err := o.resolver.ResolveSavedTask(in.FrontendKey)
	if err != nil {
		return err
	}
	if !ok {
		log.Debug().Msg("saved task gone, dropping upsert")
		return nil
	}

	created := !current.HasBackendID()
	result, err := retry.Do(attemptCtx, o.retry, "upsert-saved-task", func(context.Context) (*service.SavedTask, error) {
		if created {
			return o.remote.CreateSavedTask(ctx, current)
		}
		return o.remote.UpdateSavedTask(ctx, current.BackendID, current)
	})
	if err != nil {
		return err
	}
	log.Debug().Int64("backendId", result.BackendID).Bool("created", created).Msg("saved task synced")

	if !result.HasBackendID() {
		return nil
	}
	stillLocal, err := o.resolver.SavedTaskSynced(in.FrontendKey, result.BackendID)
	if err != nil {
		return err
	}
	if !stillLocal && created {
		// deleted locally while the create was in flight
		return o.EnqueueDelete(in.Resource, in.FrontendKey, result.BackendID)
	}
	return nil
}
