package bot

import (
	"context"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Dispatcher hands updates to the bot concurrently across owners and in
// the order Dispatch was called for each owner. An owner's worker exits
// once its queue is empty.
type Dispatcher struct {
	bot     *Bot
	base    context.Context
	timeout time.Duration

	mu     sync.Mutex
	queues map[int64][]tgbotapi.Update
	wg     sync.WaitGroup
}

// NewDispatcher runs every update on a child of base limited by timeout.
// A zero timeout means no limit.
func NewDispatcher(b *Bot, base context.Context, timeout time.Duration) *Dispatcher {
	return &Dispatcher{bot: b, base: base, timeout: timeout, queues: make(map[int64][]tgbotapi.Update)}
}

func (d *Dispatcher) Dispatch(u tgbotapi.Update) {
	var owner int64
	if in, ok := Normalize(u); ok {
		owner = in.Event().OwnerID
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	q, running := d.queues[owner]
	d.queues[owner] = append(q, u)
	if !running {
		d.wg.Add(1)
		go d.drain(owner)
	}
}

func (d *Dispatcher) drain(owner int64) {
	defer d.wg.Done()
	for {
		d.mu.Lock()
		q := d.queues[owner]
		if len(q) == 0 {
			delete(d.queues, owner)
			d.mu.Unlock()
			return
		}
		u := q[0]
		d.queues[owner] = q[1:]
		d.mu.Unlock()

		d.handle(u)
	}
}

func (d *Dispatcher) handle(u tgbotapi.Update) {
	ctx, cancel := d.base, context.CancelFunc(func() {})
	if d.timeout > 0 {
		ctx, cancel = context.WithTimeout(d.base, d.timeout)
	}
	defer cancel()
	d.bot.HandleUpdate(ctx, u)
}

// Wait blocks until every dispatched update has been handled.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

func (d *Dispatcher) pending() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.queues)
}
