package httpx

import (
	"context"
	"encoding/json"
	"time"

	"github.com/JunaYa/ferriskey/internal/esx"
	"github.com/JunaYa/ferriskey/internal/identity"
	"github.com/JunaYa/ferriskey/internal/mqx"
)

const authEventsIndex = "auth-events"

// eventSink fans provisioning events out to MQ and the audit index. Both
// sinks are optional and failures never affect the request.
type eventSink struct {
	mq mqx.Publisher
	es *esx.Client
}

func newEventSink(p *Providers) *eventSink {
	if p == nil {
		return &eventSink{}
	}
	return &eventSink{mq: p.MQ, es: p.ES}
}

func (s *eventSink) DeviceProvisioned(ctx context.Context, profile identity.DeviceProfile) {
	at := time.Now().UTC().Format(time.RFC3339Nano)
	if s.mq != nil {
		evt := map[string]any{
			"type":      "device.provisioned",
			"id":        profile.ID,
			"realm_id":  profile.RealmID,
			"device_id": profile.DeviceID,
			"user_id":   profile.UserID,
			"at":        at,
		}
		b, _ := json.Marshal(evt)
		_ = s.mq.Publish(ctx, "device.provisioned", b)
	}
	if s.es != nil {
		_ = esx.IndexAuthEvent(ctx, s.es, authEventsIndex, esx.AuthEventDoc{
			ID:       profile.ID.String(),
			Type:     "device.provisioned",
			RealmID:  profile.RealmID.String(),
			DeviceID: profile.DeviceID,
			UserID:   profile.UserID.String(),
			At:       at,
		})
	}
}
