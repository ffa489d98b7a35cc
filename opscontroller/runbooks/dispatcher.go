package runbooks

import (
	"context"
	"fmt"

	"github.com/opsplatform/core/opscontroller/domain"
)

// NoopDispatcher marks every action as completed without doing anything,
// the default for tests and for deployments that only track approvals and
// cooldowns without a wired action backend. Concrete actions are left
// undefined by design; this is the simplest conforming implementation.
type NoopDispatcher struct{}

func (NoopDispatcher) Dispatch(_ context.Context, action domain.RunbookAction, params map[string]any) (string, error) {
	return fmt.Sprintf("executed %s with params %v", action.ID, params), nil
}
