// alerts — рабочий набор алертов аномального доступа.
//
// Board хранит видимые алерты, обновляет их из /dashboard/alerts и
// подтверждает оптимистично: алерт убирается сразу, подтверждение уходит
// на бэкенд в фоне. Ошибка подтверждения только логируется, алерт не
// возвращается, в том числе при последующих обновлениях.
package alerts

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	apierrors "github.com/mydata-ng/privacy-client/internal/errors"
	"github.com/mydata-ng/privacy-client/internal/models"
	logctx "github.com/mydata-ng/privacy-client/internal/pkg/log"
)

// DefaultPollInterval — период обновления по умолчанию.
const DefaultPollInterval = 30 * time.Second

// Source — откуда берутся алерты (api.DashboardAPI).
type Source interface {
	GetAlerts(ctx context.Context) (models.Envelope[[]models.Alert], error)
}

// Acker — куда уходят подтверждения (api.AlertsAPI).
type Acker interface {
	Acknowledge(ctx context.Context, id string, action models.AlertAction) (models.Envelope[json.RawMessage], error)
}

// Board — набор алертов. Безопасен для конкурентного использования.
type Board struct {
	src Source
	ack Acker

	mu        sync.Mutex
	alerts    []models.Alert
	dismissed map[string]struct{}

	pending sync.WaitGroup
}

// NewBoard создаёт пустой набор.
func NewBoard(src Source, ack Acker) *Board {
	return &Board{
		src:       src,
		ack:       ack,
		dismissed: make(map[string]struct{}),
	}
}

// Alerts возвращает копию видимых алертов.
func (b *Board) Alerts() []models.Alert {
	b.mu.Lock()
	defer b.mu.Unlock()

	return append([]models.Alert(nil), b.alerts...)
}

// Refresh заменяет набор свежими данными. При ошибке набор не меняется.
func (b *Board) Refresh(ctx context.Context) error {
	env, err := b.src.GetAlerts(ctx)
	if err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	visible := make([]models.Alert, 0, len(env.Data))
	for _, a := range env.Data {
		if _, gone := b.dismissed[a.ID]; !gone {
			visible = append(visible, a)
		}
	}
	b.alerts = visible

	return nil
}

// Acknowledge убирает алерт из набора и отправляет подтверждение в фоне.
// Ошибку возвращает только локальная валидация действия.
func (b *Board) Acknowledge(ctx context.Context, id string, action models.AlertAction) error {
	if !action.Valid() {
		return apierrors.ErrInvalidAction
	}

	if id == "" {
		return apierrors.MissingField("alertId")
	}

	b.mu.Lock()
	b.dismissed[id] = struct{}{}
	for i, a := range b.alerts {
		if a.ID == id {
			b.alerts = append(b.alerts[:i:i], b.alerts[i+1:]...)
			break
		}
	}
	b.mu.Unlock()

	// Подтверждение переживает отмену контекста вызывающего.
	bg := context.WithoutCancel(ctx)
	log := logctx.From(ctx)

	b.pending.Add(1)
	go func() {
		defer b.pending.Done()

		if _, err := b.ack.Acknowledge(bg, id, action); err != nil {
			log.Warn("alert_ack_failed",
				"alert_id", id,
				"action", action,
				"err", apierrors.Message(err),
			)
			return
		}

		log.Debug("alert_acked", "alert_id", id, "action", action)
	}()

	return nil
}

// Wait ждёт завершения отправленных подтверждений.
func (b *Board) Wait() { b.pending.Wait() }

// Watch обновляет набор сразу и затем каждые every, пока ctx не отменён.
// После каждого успешного обновления вызывает onUpdate (если задан).
// Ошибки обновления логируются, наблюдение продолжается.
func (b *Board) Watch(ctx context.Context, every time.Duration, onUpdate func([]models.Alert)) error {
	if every <= 0 {
		every = DefaultPollInterval
	}

	log := logctx.From(ctx)

	tick := func() {
		if err := b.Refresh(ctx); err != nil {
			if ctx.Err() == nil {
				log.Warn("alerts_refresh_failed", "err", apierrors.Message(err))
			}
			return
		}

		if onUpdate != nil {
			onUpdate(b.Alerts())
		}
	}

	tick()

	t := time.NewTicker(every)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
			tick()
		}
	}
}
