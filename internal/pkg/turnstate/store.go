// internal/pkg/turnstate/store.go
package turnstate

import (
	"context"
	"hash/fnv"
	"strconv"
	"strings"
	"time"
)

// Flow is an in-progress multi-step staff command (vehicle upload, price
// edit). It lives outside the request so the next inbound turn can resume
// it.
type Flow struct {
	Type string            `json:"type"`
	Step string            `json:"step"`
	Data map[string]string `json:"data,omitempty"`
}

// Store holds short-lived per-conversation turn state: the duplicate
// delivery window and pending staff flows.
type Store interface {
	// FirstDelivery marks (tenant, phone, text) as seen and reports whether
	// this delivery is the first one inside the window. Retried webhook
	// deliveries of the same message return false.
	FirstDelivery(ctx context.Context, tenantID, phone, text string, window time.Duration) (bool, error)

	// Flow returns the pending flow for the sender, or nil.
	Flow(ctx context.Context, tenantID, phone string) (*Flow, error)

	// SetFlow stores or replaces the pending flow.
	SetFlow(ctx context.Context, tenantID, phone string, f *Flow, ttl time.Duration) error

	// ClearFlow removes the pending flow.
	ClearFlow(ctx context.Context, tenantID, phone string) error
}

// dedupKey collapses the message text so that whitespace-only retry
// variants hash identically.
func dedupKey(tenantID, phone, text string) string {
	h := fnv.New64a()
	h.Write([]byte(strings.Join(strings.Fields(strings.ToLower(text)), " ")))
	return "turn:dedup:" + tenantID + ":" + phone + ":" + strconv.FormatUint(h.Sum64(), 36)
}

func flowKey(tenantID, phone string) string {
	return "turn:flow:" + tenantID + ":" + phone
}
