package ports

import "context"

// Notifier envía eventos de trading al operador (fills, exits, pausas de
// riesgo). Las fallas del notifier nunca afectan el tick.
type Notifier interface {
	Notify(ctx context.Context, text string)
}
