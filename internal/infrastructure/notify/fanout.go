package notify

import "github.com/vitos/token_swap_level/internal/domain"

// Fanout forwards each message to every sink.
type Fanout []domain.Notifier

func (f Fanout) Send(text string) {
	for _, n := range f {
		n.Send(text)
	}
}

// Discard drops every message. Used when no chat is configured.
type Discard struct{}

func (Discard) Send(string) {}
