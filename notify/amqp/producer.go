package amqp

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	amqp "github.com/Azure/go-amqp"

	"github.com/MrEthical07/goIdentity/faults"
	"github.com/MrEthical07/goIdentity/notify"
)

const component = "amqp"

// Producer publishes notify events as durable JSON messages, one AMQP link per
// event address. Links are opened lazily and reopened after a failed send.
type Producer struct {
	address  string
	dialOpts []amqp.ConnOption

	mu      sync.Mutex
	client  *amqp.Client
	session *amqp.Session
	senders map[string]*amqp.Sender
}

var _ notify.Producer = (*Producer)(nil)

// NewProducer dials address ("amqp://host:5672") and authenticates with SASL
// PLAIN when username is set.
func NewProducer(address, username, password string) (*Producer, error) {
	p := &Producer{
		address: address,
		senders: map[string]*amqp.Sender{},
	}
	if username != "" {
		p.dialOpts = append(p.dialOpts, amqp.ConnSASLPlain(username, password))
	}
	if err := p.connect(); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *Producer) connect() error {
	if p.client != nil {
		_ = p.client.Close()
		p.client, p.session = nil, nil
		p.senders = map[string]*amqp.Sender{}
	}
	client, err := amqp.Dial(p.address, p.dialOpts...)
	if err != nil {
		return faults.Unavailable(component, fmt.Errorf("dial %s: %w", p.address, err))
	}
	session, err := client.NewSession()
	if err != nil {
		_ = client.Close()
		return faults.Unavailable(component, fmt.Errorf("open session: %w", err))
	}
	p.client, p.session = client, session
	return nil
}

func (p *Producer) sender(address string) (*amqp.Sender, error) {
	if s, ok := p.senders[address]; ok {
		return s, nil
	}
	if p.session == nil {
		if err := p.connect(); err != nil {
			return nil, err
		}
	}
	s, err := p.session.NewSender(amqp.LinkTargetAddress(address))
	if err != nil {
		return nil, faults.Unavailable(component, fmt.Errorf("open sender for %q: %w", address, err))
	}
	p.senders[address] = s
	return s, nil
}

// Publish sends event to its address. A failed send reconnects and retries
// once before reporting a retryable error.
func (p *Producer) Publish(ctx context.Context, event notify.Event) error {
	msg, err := newMessage(event)
	if err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	var lastErr error
	for attempt := 0; attempt < 2; attempt++ {
		if attempt > 0 {
			if err := p.connect(); err != nil {
				return err
			}
		}
		s, err := p.sender(event.Address())
		if err != nil {
			lastErr = err
			continue
		}
		if err := s.Send(ctx, msg); err != nil {
			lastErr = faults.Unavailable(component, fmt.Errorf("send to %q: %w", event.Address(), err))
			continue
		}
		return nil
	}
	return lastErr
}

func newMessage(event notify.Event) (*amqp.Message, error) {
	body, err := json.Marshal(event)
	if err != nil {
		return nil, faults.Invariant("encode %T: %v", event, err)
	}
	return &amqp.Message{
		Header: &amqp.MessageHeader{
			Durable: true,
		},
		ApplicationProperties: map[string]interface{}{
			"event": fmt.Sprintf("%T", event),
		},
		Data: [][]byte{body},
	}, nil
}

// Close shuts every link, the session and the connection.
func (p *Producer) Close(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	for address, s := range p.senders {
		if err := s.Close(ctx); err != nil {
			return fmt.Errorf("close sender for %q: %w", address, err)
		}
	}
	p.senders = map[string]*amqp.Sender{}
	if p.session != nil {
		if err := p.session.Close(ctx); err != nil {
			return fmt.Errorf("close session: %w", err)
		}
	}
	if p.client != nil {
		if err := p.client.Close(); err != nil {
			return fmt.Errorf("close client: %w", err)
		}
	}
	p.client, p.session = nil, nil
	return nil
}
