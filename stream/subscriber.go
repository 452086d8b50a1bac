package stream

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/gorilla/websocket"
)

// DefaultStreamPort is the port of the device stream feed.
const DefaultStreamPort = 7667

const (
	// handshakeTimeout bounds the websocket dial.
	handshakeTimeout = 10 * time.Second
	// readLimit caps one stream message; RGB frames dominate and stay well
	// under this.
	readLimit = 8 << 20
)

// SubscriptionConfig configures a stream subscription.
type SubscriptionConfig struct {
	// Host of the streaming device.
	Host string
	// Port of the stream feed, DefaultStreamPort when zero.
	Port int
	// DataTypes selects which streams to receive.
	DataTypes DataType
	// QueueSize bounds the per-data-type queue between the socket and the
	// observer. When full, the oldest record is dropped so the observer
	// always sees the most recent data. Defaults to 1.
	QueueSize int
}

// Subscriber reads a device stream and dispatches records to an observer.
type Subscriber struct {
	cfg      SubscriptionConfig
	observer Observer
}

// NewSubscriber creates a Subscriber with the given config.
func NewSubscriber(cfg SubscriptionConfig) *Subscriber {
	if cfg.Port == 0 {
		cfg.Port = DefaultStreamPort
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 1
	}
	if cfg.DataTypes == 0 {
		cfg.DataTypes = DataTypeAll
	}

	return &Subscriber{cfg: cfg, observer: BaseObserver{}}
}

// SetObserver attaches the observer that receives decoded records. Must be
// called before Run.
func (s *Subscriber) SetObserver(obs Observer) {
	if obs != nil {
		s.observer = obs
	}
}

// Run connects to the device and pumps records to the observer until the
// context is canceled or the connection fails. Connection failure is
// reported both through OnFailure and the returned error; Run does not
// reconnect.
func (s *Subscriber) Run(ctx context.Context) error {
	u := url.URL{
		Scheme:   "ws",
		Host:     fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port),
		Path:     "/stream",
		RawQuery: url.Values{"types": {s.cfg.DataTypes.String()}}.Encode(),
	}

	dialer := websocket.Dialer{HandshakeTimeout: handshakeTimeout}
	conn, _, err := dialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", u.Host, err)
	}
	defer func() { _ = conn.Close() }()
	conn.SetReadLimit(readLimit)

	queues := s.makeQueues()
	dispatchDone := make(chan struct{})
	go func() {
		defer close(dispatchDone)
		s.dispatch(ctx, queues)
	}()

	// Unblock the read loop when the context ends
	go func() {
		<-ctx.Done()
		_ = conn.Close()
	}()

	var runErr error
	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() == nil {
				runErr = fmt.Errorf("stream connection lost: %w", err)
				s.observer.OnFailure(runErr)
			}
			break
		}

		rec, err := DecodeRecord(message)
		if err != nil {
			// A malformed record is logged through the observer but does
			// not end the subscription.
			s.observer.OnFailure(err)
			continue
		}

		if q, ok := queues[dataTypeOf(rec)]; ok {
			enqueueDroppingOldest(q, rec)
		}
	}

	for _, q := range queues {
		close(q)
	}
	<-dispatchDone

	return runErr
}

// makeQueues builds one bounded queue per subscribed data type.
func (s *Subscriber) makeQueues() map[DataType]chan Record {
	queues := make(map[DataType]chan Record)
	for _, entry := range dataTypeNames {
		if s.cfg.DataTypes&entry.t != 0 {
			queues[entry.t] = make(chan Record, s.cfg.QueueSize)
		}
	}
	return queues
}

// dispatch drains the queues into observer callbacks until all queues close.
func (s *Subscriber) dispatch(ctx context.Context, queues map[DataType]chan Record) {
	merged := make(chan Record)
	done := make(chan struct{}, len(queues))

	for _, q := range queues {
		go func(q chan Record) {
			for rec := range q {
				select {
				case merged <- rec:
				case <-ctx.Done():
					// drain so the read loop's close can complete
				}
			}
			done <- struct{}{}
		}(q)
	}

	go func() {
		for range queues {
			<-done
		}
		close(merged)
	}()

	for rec := range merged {
		switch r := rec.(type) {
		case *ImageRecord:
			s.observer.OnImage(r)
		case *IMUBatch:
			s.observer.OnIMU(r)
		case *MagnetoSample:
			s.observer.OnMagneto(r)
		case *BaroSample:
			s.observer.OnBaro(r)
		}
	}
}

// enqueueDroppingOldest inserts rec, evicting the oldest queued record when
// the queue is full. The consumer therefore always sees recent data.
func enqueueDroppingOldest(q chan Record, rec Record) {
	for {
		select {
		case q <- rec:
			return
		default:
		}
		select {
		case <-q:
		default:
		}
	}
}
