package store

import (
	"encoding/json"
	"fmt"

	"github.com/xraph/portal/subscription"
)

// EncodeSnapshot serializes a snapshot for backends that keep the full
// document next to their index columns.
func EncodeSnapshot(sub *subscription.Subscription) ([]byte, error) {
	data, err := json.Marshal(sub)
	if err != nil {
		return nil, fmt.Errorf("store: encode snapshot %s: %w", sub.ID, err)
	}
	return data, nil
}

// DecodeSnapshot is the inverse of EncodeSnapshot.
func DecodeSnapshot(data []byte) (*subscription.Subscription, error) {
	sub := new(subscription.Subscription)
	if err := json.Unmarshal(data, sub); err != nil {
		return nil, fmt.Errorf("store: decode snapshot: %w", err)
	}
	return sub, nil
}
