package orders

import (
	"context"
	"strings"
)

type actionFunc func(context.Context, Event) error

// actionFactory maps an order status to what the delivery side does about it.
// A status mapped to nil is known but needs nothing from us.
type actionFactory struct {
	actions map[string]actionFunc
}

func newActionFactory(register actionFunc) *actionFactory {
	return &actionFactory{actions: map[string]actionFunc{
		"created": register,
		"placed":  register,
		// отмена и завершение приходят из самой доставки
		"canceled":  nil,
		"cancelled": nil,
		"completed": nil,
	}}
}

// get returns the action for status; known is false for statuses we have never heard of.
func (f *actionFactory) get(status string) (fn actionFunc, known bool) {
	fn, known = f.actions[normalizeStatus(status)]
	return fn, known
}

func normalizeStatus(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
