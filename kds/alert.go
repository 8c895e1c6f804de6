package kds

import (
	"context"
	"errors"
)

// ErrNoDisplay means no staff display is connected to play the alert.
var ErrNoDisplay = errors.New("no staff display connected")

// HubAlerter asks the merchant's connected displays to play the new-order sound.
type HubAlerter struct {
	hub *Hub
}

func NewHubAlerter(hub *Hub) *HubAlerter {
	return &HubAlerter{hub: hub}
}

func (a *HubAlerter) Play(ctx context.Context, merchantID uint, orderID uint) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if a.hub.ClientCount(merchantID) == 0 {
		return ErrNoDisplay
	}
	a.hub.Broadcast(merchantID, Message{
		Event: EventNewOrderAlert,
		Data:  map[string]uint{"order_id": orderID},
	})
	return nil
}
