package push

import (
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/inboxhq/support-inbox/internal/model"
	"github.com/inboxhq/support-inbox/pkg/logger"
)

// SubjectPrefix is the prefix for all inbox push subjects.
const SubjectPrefix = "inbox"

// TenantSubject returns the wildcard subject covering every event for
// one tenant.
func TenantSubject(tenantID string) string {
	return fmt.Sprintf("%s.%s.events.>", SubjectPrefix, tenantID)
}

// Subscriber decodes push payloads and hands them to the engine in
// arrival order. NATS delivers per-subscription messages in order, so
// no local reordering happens here.
type Subscriber struct {
	client *Client
	log    *logger.Logger
	sub    *nats.Subscription
}

// NewSubscriber creates a subscriber on an established connection.
func NewSubscriber(client *Client, log *logger.Logger) *Subscriber {
	return &Subscriber{client: client, log: log}
}

// Subscribe starts delivering the tenant's push events to handle.
// Undecodable payloads are logged and skipped.
func (s *Subscriber) Subscribe(tenantID string, handle func(model.PushEvent)) error {
	sub, err := s.client.Conn().Subscribe(TenantSubject(tenantID), func(msg *nats.Msg) {
		var ev model.PushEvent
		if err := json.Unmarshal(msg.Data, &ev); err != nil {
			s.log.Warn("skipping undecodable push payload",
				zap.String("subject", msg.Subject),
				zap.Error(err),
			)
			return
		}
		handle(ev)
	})
	if err != nil {
		return fmt.Errorf("subscribe to push events: %w", err)
	}
	s.sub = sub
	return nil
}

// Unsubscribe stops delivery. Part of engine teardown: after this no
// dangling callback can reach a torn-down store.
func (s *Subscriber) Unsubscribe() error {
	if s.sub == nil {
		return nil
	}
	if err := s.sub.Unsubscribe(); err != nil {
		return fmt.Errorf("unsubscribe from push events: %w", err)
	}
	s.sub = nil
	return nil
}
