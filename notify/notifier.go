//go:generate go run go.uber.org/mock/mockgen -source=notifier.go -destination=../mocks/mock_notifier.go -package=mocks
package notify

import "log/slog"

// INotifier dispatches out-of-band account notifications. From the core's
// point of view it is fire-and-forget: a delivery failure is logged by the
// caller and never fails the triggering operation.
type INotifier interface {
	SendVerification(email, token string) error
}

// LogNotifier is the dev and test stand-in: it only records that a
// dispatch would have happened.
type LogNotifier struct {
	log *slog.Logger
}

func NewLogNotifier(log *slog.Logger) *LogNotifier {
	return &LogNotifier{log: log}
}

func (n *LogNotifier) SendVerification(email, token string) error {
	n.log.Info("verification token issued", "email", email, "token", token)
	return nil
}
