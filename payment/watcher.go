package payment

import (
	"context"
	"math/big"
	"net/http"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

type Gateway interface {
	CreatePayment(ctx context.Context, amount *big.Rat, adminID int64) (*Invoice, error)
	Status(ctx context.Context, paymentID string) (*Invoice, error)
}

// Expirer сообщает плательщику, что счёт закрыт без оплаты
type Expirer interface {
	PaymentExpired(ctx context.Context, adminID int64, paymentID string)
}

type watched struct {
	adminID  int64
	deadline time.Time
}

// Watcher опрашивает созданные счета, пока платёж не зачислен или не истёк срок.
// Зачисление идёт через Server.Process, поэтому IPN и опрос не начисляют дважды.
type Watcher struct {
	gateway  Gateway
	server   *Server
	expirer  Expirer
	ttl      time.Duration
	interval time.Duration
	log      *zap.Logger
	now      func() time.Time

	mu      sync.Mutex
	pending map[string]watched
}

func NewWatcher(gateway Gateway, server *Server, expirer Expirer, ttl, interval time.Duration, log *zap.Logger) *Watcher {
	return &Watcher{
		gateway:  gateway,
		server:   server,
		expirer:  expirer,
		ttl:      ttl,
		interval: interval,
		log:      log.Named("payment_watcher"),
		now:      time.Now,
		pending:  make(map[string]watched),
	}
}

// Open выставляет счёт и ставит его на опрос
func (w *Watcher) Open(ctx context.Context, amount *big.Rat, adminID int64) (*Invoice, error) {
	inv, err := w.gateway.CreatePayment(ctx, amount, adminID)
	if err != nil {
		return nil, err
	}

	w.mu.Lock()
	w.pending[inv.PaymentID.String()] = watched{adminID: adminID, deadline: w.now().Add(w.ttl)}
	w.mu.Unlock()

	w.log.Info("payment created",
		zap.String("payment_id", inv.PaymentID.String()),
		zap.Int64("admin_id", adminID),
		zap.String("amount", amount.FloatString(2)))
	return inv, nil
}

func (w *Watcher) Pending() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.pending)
}

// Run опрашивает счета раз в interval до отмены ctx
func (w *Watcher) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			w.Poll(ctx)
		}
	}
}

// Poll — один проход по ожидающим счетам
func (w *Watcher) Poll(ctx context.Context) {
	w.mu.Lock()
	snapshot := make(map[string]watched, len(w.pending))
	for id, it := range w.pending {
		snapshot[id] = it
	}
	w.mu.Unlock()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for id, it := range snapshot {
		id, it := id, it
		g.Go(func() error {
			w.check(gctx, id, it)
			return nil
		})
	}
	_ = g.Wait()
}

func (w *Watcher) check(ctx context.Context, id string, it watched) {
	log := w.log.With(zap.String("payment_id", id), zap.Int64("admin_id", it.adminID))
	expired := w.now().After(it.deadline)

	inv, err := w.gateway.Status(ctx, id)
	if err != nil {
		log.Warn("payment status failed", zap.Error(err))
		if expired {
			w.expire(ctx, id, it)
		}
		return
	}

	switch {
	case inv.Completed():
		n := inv.Notification
		if n.OrderDescription == "" {
			n.OrderDescription = orderPrefix + strconv.FormatInt(it.adminID, 10)
		}
		status, err := w.server.Process(ctx, n)
		if err != nil {
			log.Error("payment processing failed", zap.Int("status", status), zap.Error(err))
			if status >= http.StatusInternalServerError {
				// повторим на следующем проходе
				return
			}
		}
		w.drop(id)

	case inv.Failed() || expired:
		log.Info("payment closed unpaid", zap.String("status", inv.PaymentStatus))
		w.expire(ctx, id, it)
	}
}

func (w *Watcher) drop(id string) {
	w.mu.Lock()
	delete(w.pending, id)
	w.mu.Unlock()
}

func (w *Watcher) expire(ctx context.Context, id string, it watched) {
	w.drop(id)
	w.expirer.PaymentExpired(ctx, it.adminID, id)
}
