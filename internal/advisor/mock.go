package advisor

import (
	"context"

	"github.com/droidsweep/backend/internal/shared/types"
)

// Mock is a Querier for tests and for running without a device backend
type Mock struct {
	SendQueryFunc func(ctx context.Context, text string, history []types.Message) (string, error)
}

// SendQuery delegates to SendQueryFunc, or echoes a canned reply
func (m *Mock) SendQuery(ctx context.Context, text string, history []types.Message) (string, error) {
	if m.SendQueryFunc != nil {
		return m.SendQueryFunc(ctx, text, history)
	}
	return "This is a mock advisor reply. Configure ADVISOR_URL to talk to a real backend.", nil
}
