package notify

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"portal-service/internal/domain/notification"
	apperrors "portal-service/pkg/errors"
)

const (
	StrategyPrivileged    = "privileged"
	StrategyAuthenticated = "authenticated"

	msgStrategyErrorFmt = "%s: %v"
	strategySeparator   = "; "
)

var errNoStrategies = errors.New("no delivery strategies configured")

// Inserter writes a single notification row.
type Inserter interface {
	Insert(ctx context.Context, n *notification.Notification) error
}

// Strategy is one delivery path, tried in order by Failover.
type Strategy struct {
	Name     string
	Inserter Inserter
}

// Failover tries each strategy in turn and stops at the first success.
// It returns the name of the strategy that delivered the row.
func Failover(ctx context.Context, n *notification.Notification, strategies []Strategy) (string, error) {
	if len(strategies) == 0 {
		return "", apperrors.NotificationDeliveryFailed(errNoStrategies)
	}

	var messages []string
	for _, s := range strategies {
		if err := ctx.Err(); err != nil {
			messages = append(messages, err.Error())
			break
		}

		err := s.Inserter.Insert(ctx, n)
		if err == nil {
			return s.Name, nil
		}
		messages = append(messages, fmt.Sprintf(msgStrategyErrorFmt, s.Name, err))
	}

	return "", apperrors.NotificationDeliveryFailed(errors.New(strings.Join(messages, strategySeparator)))
}

// BuildStrategies orders the delivery paths. A nil privileged inserter is skipped.
func BuildStrategies(privileged, authenticated Inserter) []Strategy {
	var out []Strategy
	if privileged != nil {
		out = append(out, Strategy{Name: StrategyPrivileged, Inserter: privileged})
	}
	if authenticated != nil {
		out = append(out, Strategy{Name: StrategyAuthenticated, Inserter: authenticated})
	}
	return out
}
