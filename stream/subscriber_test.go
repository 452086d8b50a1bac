package stream

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// collectingObserver gathers callbacks for assertions.
type collectingObserver struct {
	BaseObserver
	mu       sync.Mutex
	images   []*ImageRecord
	imu      []*IMUBatch
	failures []error
	gotAll   chan struct{}
	want     int
}

func newCollectingObserver(want int) *collectingObserver {
	return &collectingObserver{gotAll: make(chan struct{}), want: want}
}

func (o *collectingObserver) OnImage(rec *ImageRecord) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.images = append(o.images, rec)
	o.checkDone()
}

func (o *collectingObserver) OnIMU(batch *IMUBatch) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.imu = append(o.imu, batch)
	o.checkDone()
}

func (o *collectingObserver) OnFailure(err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.failures = append(o.failures, err)
}

func (o *collectingObserver) checkDone() {
	if len(o.images)+len(o.imu) == o.want {
		close(o.gotAll)
	}
}

// startStreamServer runs a websocket endpoint that sends the given records
// and then holds the connection open.
func startStreamServer(t *testing.T, records []Record, gotTypes *string) (host string, port int) {
	t.Helper()

	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/stream" {
			http.NotFound(w, r)
			return
		}
		if gotTypes != nil {
			*gotTypes = r.URL.Query().Get("types")
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer func() { _ = conn.Close() }()

		for _, rec := range records {
			wire, err := EncodeRecord(rec)
			if err != nil {
				return
			}
			if err := conn.WriteMessage(websocket.BinaryMessage, wire); err != nil {
				return
			}
		}

		// Hold the connection until the client goes away
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	t.Cleanup(srv.Close)

	u, err := url.Parse(srv.URL)
	require.NoError(t, err)
	port, err = strconv.Atoi(u.Port())
	require.NoError(t, err)
	return u.Hostname(), port
}

func TestSubscriber_ReceivesRecords(t *testing.T) {
	records := []Record{
		&ImageRecord{CameraID: CameraRgb, Seq: 1, TimestampNS: 100, Data: []byte{0xff}},
		&ImageRecord{CameraID: CameraSlamLeft, Seq: 1, TimestampNS: 101, Data: []byte{0xfe}},
		&IMUBatch{ImuIdx: 0, Samples: []IMUSample{{TimestampNS: 102}}},
	}

	var gotTypes string
	host, port := startStreamServer(t, records, &gotTypes)

	obs := newCollectingObserver(len(records))
	sub := NewSubscriber(SubscriptionConfig{
		Host:      host,
		Port:      port,
		DataTypes: DataTypeRgb | DataTypeSlam | DataTypeImu,
		QueueSize: 16,
	})
	sub.SetObserver(obs)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	runDone := make(chan error, 1)
	go func() { runDone <- sub.Run(ctx) }()

	select {
	case <-obs.gotAll:
	case <-time.After(5 * time.Second):
		t.Fatal("Timed out waiting for stream records")
	}

	cancel()
	select {
	case err := <-runDone:
		assert.NoError(t, err, "cancellation is a clean shutdown")
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancellation")
	}

	assert.Equal(t, "rgb,slam,imu", gotTypes)

	obs.mu.Lock()
	defer obs.mu.Unlock()
	assert.Len(t, obs.images, 2)
	assert.Len(t, obs.imu, 1)
	assert.Empty(t, obs.failures)
}

func TestSubscriber_DialFailure(t *testing.T) {
	sub := NewSubscriber(SubscriptionConfig{Host: "127.0.0.1", Port: 1})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	err := sub.Run(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to subscribe")
}

func TestSubscriber_MalformedRecordDoesNotStop(t *testing.T) {
	upgrader := websocket.Upgrader{}
	good := &BaroSample{TimestampNS: 5, Pressure: 1013.25}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer func() { _ = conn.Close() }()

		_ = conn.WriteMessage(websocket.BinaryMessage, []byte{0x01, 0x02})
		wire, _ := EncodeRecord(good)
		_ = conn.WriteMessage(websocket.BinaryMessage, wire)

		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	t.Cleanup(srv.Close)

	u, err := url.Parse(srv.URL)
	require.NoError(t, err)
	port, err := strconv.Atoi(u.Port())
	require.NoError(t, err)

	gotBaro := make(chan *BaroSample, 1)
	gotFailure := make(chan error, 1)

	obs := &funcObserver{
		onBaro:    func(s *BaroSample) { gotBaro <- s },
		onFailure: func(err error) { gotFailure <- err },
	}

	sub := NewSubscriber(SubscriptionConfig{Host: u.Hostname(), Port: port, DataTypes: DataTypeBaro})
	sub.SetObserver(obs)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = sub.Run(ctx) }()

	select {
	case err := <-gotFailure:
		assert.Contains(t, err.Error(), "decode")
	case <-time.After(5 * time.Second):
		t.Fatal("Timed out waiting for decode failure")
	}

	select {
	case sample := <-gotBaro:
		assert.Equal(t, 1013.25, sample.Pressure)
	case <-time.After(5 * time.Second):
		t.Fatal("Timed out waiting for the record after the bad one")
	}
}

// funcObserver adapts callbacks for tests.
type funcObserver struct {
	BaseObserver
	onBaro    func(*BaroSample)
	onFailure func(error)
}

func (o *funcObserver) OnBaro(s *BaroSample) {
	if o.onBaro != nil {
		o.onBaro(s)
	}
}

func (o *funcObserver) OnFailure(err error) {
	if o.onFailure != nil {
		o.onFailure(err)
	}
}

func TestEnqueueDroppingOldest(t *testing.T) {
	q := make(chan Record, 1)

	first := &BaroSample{TimestampNS: 1}
	second := &BaroSample{TimestampNS: 2}

	enqueueDroppingOldest(q, first)
	enqueueDroppingOldest(q, second)

	got := <-q
	assert.Equal(t, second, got, "oldest record should have been evicted")
	assert.Empty(t, q)
}

func TestNewSubscriber_Defaults(t *testing.T) {
	sub := NewSubscriber(SubscriptionConfig{Host: "device"})
	assert.Equal(t, DefaultStreamPort, sub.cfg.Port)
	assert.Equal(t, 1, sub.cfg.QueueSize)
	assert.Equal(t, DataTypeAll, sub.cfg.DataTypes)
}
