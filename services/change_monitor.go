package services

import (
	"context"
	"sync"
	"time"

	"github.com/yeremiapane/restaurant-orders/kds"
	"github.com/yeremiapane/restaurant-orders/models"
	"github.com/yeremiapane/restaurant-orders/utils"
)

// ChangeSource is the db_changes outbox.
type ChangeSource interface {
	UnprocessedChanges(ctx context.Context, limit int) ([]models.DBChange, error)
	MarkChangesProcessed(ctx context.Context, ids []uint) error
}

type Publisher interface {
	Publish(change kds.Change)
}

// ChangeMonitor polls the outbox and publishes every change to the hub. A change is
// marked processed only after it was published, so a crash in between re-delivers
// it; subscribers reload on every notification and tolerate duplicates.
type ChangeMonitor struct {
	Source    ChangeSource
	Hub       Publisher
	StopChan  chan struct{}
	Interval  time.Duration
	BatchSize int

	stopOnce sync.Once
	wg       sync.WaitGroup
}

func NewChangeMonitor(source ChangeSource, hub Publisher) *ChangeMonitor {
	return &ChangeMonitor{
		Source:    source,
		Hub:       hub,
		StopChan:  make(chan struct{}),
		Interval:  1 * time.Second,
		BatchSize: 100,
	}
}

func (cm *ChangeMonitor) Start() {
	cm.wg.Add(1)
	go func() {
		defer cm.wg.Done()
		ticker := time.NewTicker(cm.Interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				if _, err := cm.CheckChanges(context.Background()); err != nil {
					utils.ErrorLogger.WithError(err).Error("change monitor poll failed")
				}
			case <-cm.StopChan:
				return
			}
		}
	}()
}

// Stop ends the polling loop and waits for it. Safe to call more than once.
func (cm *ChangeMonitor) Stop() {
	cm.stopOnce.Do(func() {
		close(cm.StopChan)
	})
	cm.wg.Wait()
}

// CheckChanges publishes one batch and returns how many changes it handled.
func (cm *ChangeMonitor) CheckChanges(ctx context.Context) (int, error) {
	changes, err := cm.Source.UnprocessedChanges(ctx, cm.BatchSize)
	if err != nil {
		return 0, err
	}
	if len(changes) == 0 {
		return 0, nil
	}

	ids := make([]uint, 0, len(changes))
	for _, change := range changes {
		utils.InfoLogger.Debugf("Processing change: table=%s, action=%s, record_id=%d",
			change.TableName, change.ActionType, change.RecordID)

		cm.Hub.Publish(kds.Change{
			MerchantID: change.MerchantID,
			Table:      change.TableName,
			Action:     change.ActionType,
			RecordID:   change.RecordID,
		})
		ids = append(ids, change.ID)
	}

	if err := cm.Source.MarkChangesProcessed(ctx, ids); err != nil {
		return 0, err
	}
	utils.InfoLogger.Debugf("Successfully processed %d changes", len(changes))
	return len(changes), nil
}
