package relay

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AdamHev/Object-Detection-Bakery/internal/adapters/confirmlog"
	"github.com/AdamHev/Object-Detection-Bakery/internal/adapters/observability"
	"github.com/AdamHev/Object-Detection-Bakery/internal/adapters/registry"
	"github.com/AdamHev/Object-Detection-Bakery/internal/adapters/state"
	"github.com/AdamHev/Object-Detection-Bakery/internal/domain"
	"github.com/AdamHev/Object-Detection-Bakery/internal/ports"
)

type mockObs struct {
	mu       sync.Mutex
	counters map[string]float64
	gauges   map[string]float64
	errors   []string
}

func newMockObs() *mockObs {
	return &mockObs{counters: map[string]float64{}, gauges: map[string]float64{}}
}

func (m *mockObs) LogInfo(string, ...ports.Field) {}
func (m *mockObs) LogError(msg string, _ error, _ ...ports.Field) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errors = append(m.errors, msg)
}
func (m *mockObs) LogCritical(msg string, err error, fields ...ports.Field) {
	m.LogError(msg, err, fields...)
}
func (m *mockObs) IncCounter(name string, v float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counters[name] += v
}
func (m *mockObs) ObserveLatency(string, float64) {}
func (m *mockObs) SetGauge(name string, v float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.gauges[name] = v
}

func (m *mockObs) counter(name string) float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.counters[name]
}

type failingArchiver struct{ calls int }

func (f *failingArchiver) Archive(context.Context, domain.ConfirmationRecord) error {
	f.calls++
	return errors.New("connection refused")
}
func (f *failingArchiver) Name() string { return "failing" }

type fixture struct {
	svc *Service
	reg *registry.Registry
	log *confirmlog.MemLog
	obs *mockObs
	pol ports.Policy
}

func newFixture(opts ...Option) *fixture {
	pol := ports.Policy{MaxSubscribers: 8, SubscriberBuffer: 4, MaxInitials: 5}
	reg := registry.New(pol.MaxSubscribers)
	log := confirmlog.NewMemLog(0)
	obs := newMockObs()
	return &fixture{
		svc: New(state.NewMemStore(), reg, log, pol, obs, opts...),
		reg: reg,
		log: log,
		obs: obs,
		pol: pol,
	}
}

func drain(t *testing.T, s *registry.ChanSender) []string {
	t.Helper()
	var frames []string
	for {
		select {
		case f := <-s.Frames():
			frames = append(frames, string(f))
		default:
			return frames
		}
	}
}

func TestIngestThenCurrentRoundTrip(t *testing.T) {
	f := newFixture()

	_, err := f.svc.Current()
	require.ErrorIs(t, err, domain.ErrNotFound)

	_, err = f.svc.Ingest([]byte(`{"timestamp":"10:15","object_count":3,"labels":["croissant","bagel"]}`))
	require.NoError(t, err)

	rec, err := f.svc.Current()
	require.NoError(t, err)
	assert.Equal(t, "10:15", rec.Timestamp.String())
	assert.Equal(t, int64(3), rec.ObjectCount)
	assert.Equal(t, []string{"croissant", "bagel"}, rec.Labels)
	assert.Equal(t, float64(1), f.obs.counter(observability.DetectionsIngested))
}

func TestIngestKeepsNumericTimestamp(t *testing.T) {
	f := newFixture()

	_, err := f.svc.Ingest([]byte(`{"timestamp":1700000000,"object_count":0,"labels":[]}`))
	require.NoError(t, err)

	rec, err := f.svc.Current()
	require.NoError(t, err)
	frame, err := rec.Frame()
	require.NoError(t, err)
	assert.JSONEq(t, `{"timestamp":1700000000,"object_count":0,"labels":[]}`, string(frame))
}

func TestIngestBroadcastsOneFramePerSubscriber(t *testing.T) {
	f := newFixture()

	senders := make([]*registry.ChanSender, 3)
	for i := range senders {
		senders[i] = registry.NewChanSender(4)
		_, err := f.svc.Subscribe(senders[i])
		require.NoError(t, err)
	}

	_, err := f.svc.Ingest([]byte(`{"timestamp":"08:00","object_count":2,"labels":["rye"]}`))
	require.NoError(t, err)

	for _, s := range senders {
		frames := drain(t, s)
		require.Len(t, frames, 1)
		assert.JSONEq(t, `{"timestamp":"08:00","object_count":2,"labels":["rye"]}`, frames[0])
	}
	assert.Equal(t, float64(3), f.obs.counter(observability.BroadcastFrames))
}

func TestLateSubscriberGetsSingleReplay(t *testing.T) {
	f := newFixture()

	_, err := f.svc.Ingest([]byte(`{"timestamp":"T0","object_count":1,"labels":["a"]}`))
	require.NoError(t, err)
	_, err = f.svc.Ingest([]byte(`{"timestamp":"T1","object_count":2,"labels":["b"]}`))
	require.NoError(t, err)

	s := registry.NewChanSender(4)
	_, err = f.svc.Subscribe(s)
	require.NoError(t, err)

	frames := drain(t, s)
	require.Len(t, frames, 1)
	assert.JSONEq(t, `{"timestamp":"T1","object_count":2,"labels":["b"]}`, frames[0])
}

func TestSubscribeBeforeAnyIngestReceivesNothing(t *testing.T) {
	f := newFixture()

	s := registry.NewChanSender(4)
	_, err := f.svc.Subscribe(s)
	require.NoError(t, err)
	assert.Empty(t, drain(t, s))
	assert.Equal(t, 1, f.svc.Subscribers())
}

func TestSubscribeRespectsLimit(t *testing.T) {
	f := newFixture()
	for i := 0; i < f.pol.MaxSubscribers; i++ {
		_, err := f.svc.Subscribe(registry.NewChanSender(1))
		require.NoError(t, err)
	}
	_, err := f.svc.Subscribe(registry.NewChanSender(1))
	assert.ErrorIs(t, err, registry.ErrRegistryFull)
}

func TestUnsubscribeIsIdempotent(t *testing.T) {
	f := newFixture()
	s := registry.NewChanSender(1)
	id, err := f.svc.Subscribe(s)
	require.NoError(t, err)

	f.svc.Unsubscribe(id)
	f.svc.Unsubscribe(id)

	assert.Equal(t, 0, f.svc.Subscribers())
	select {
	case <-s.Done():
	default:
		t.Fatalf("expected sender to be closed after unsubscribe")
	}
}

func TestSlowSubscriberIsEvicted(t *testing.T) {
	f := newFixture()
	slow := registry.NewChanSender(1)
	fast := registry.NewChanSender(8)
	_, err := f.svc.Subscribe(slow)
	require.NoError(t, err)
	_, err = f.svc.Subscribe(fast)
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		_, err := f.svc.Ingest([]byte(`{"timestamp":"x","object_count":1,"labels":["a"]}`))
		require.NoError(t, err)
	}

	assert.Len(t, drain(t, fast), 3)
	assert.Equal(t, 1, f.svc.Subscribers())
	assert.Equal(t, float64(1), f.obs.counter(observability.SubscribersEvicted))
}

func TestMalformedIngestLeavesStateUnchanged(t *testing.T) {
	cases := map[string]struct {
		body   string
		reason string
	}{
		"not json":          {`{"timestamp":`, domain.ReasonInvalidJSON},
		"array body":        {`[1,2]`, domain.ReasonInvalidJSON},
		"missing count":     {`{"timestamp":"t","labels":[]}`, domain.ReasonMissingField},
		"missing labels":    {`{"timestamp":"t","object_count":1}`, domain.ReasonMissingField},
		"missing timestamp": {`{"object_count":1,"labels":[]}`, domain.ReasonMissingField},
		"bool timestamp":    {`{"timestamp":true,"object_count":1,"labels":[]}`, domain.ReasonInvalidType},
		"string count":      {`{"timestamp":"t","object_count":"3","labels":[]}`, domain.ReasonInvalidType},
		"negative count":    {`{"timestamp":"t","object_count":-1,"labels":[]}`, domain.ReasonNegativeValue},
		"fractional count":  {`{"timestamp":"t","object_count":1.5,"labels":[]}`, domain.ReasonNotInteger},
		"overflow count":    {`{"timestamp":"t","object_count":9223372036854775808,"labels":[]}`, domain.ReasonInvalidType},
		"huge float count":  {`{"timestamp":"t","object_count":1e300,"labels":[]}`, domain.ReasonInvalidType},
		"labels not array":  {`{"timestamp":"t","object_count":1,"labels":"a"}`, domain.ReasonInvalidType},
		"non-string label":  {`{"timestamp":"t","object_count":1,"labels":["a",2]}`, domain.ReasonInvalidType},
		"null labels":       {`{"timestamp":"t","object_count":1,"labels":null}`, domain.ReasonInvalidType},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			f := newFixture()
			_, err := f.svc.Ingest([]byte(`{"timestamp":"T0","object_count":1,"labels":["seed"]}`))
			require.NoError(t, err)

			s := registry.NewChanSender(4)
			_, err = f.svc.Subscribe(s)
			require.NoError(t, err)
			drain(t, s)

			_, err = f.svc.Ingest([]byte(tc.body))
			require.ErrorIs(t, err, domain.ErrValidation)
			var verr *domain.ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tc.reason, verr.Reason)

			rec, err := f.svc.Current()
			require.NoError(t, err)
			assert.Equal(t, "T0", rec.Timestamp.String())
			assert.Empty(t, drain(t, s))
			assert.Equal(t, float64(1), f.obs.counter(observability.IngestRejected))
		})
	}
}

func TestLargestCountAccepted(t *testing.T) {
	f := newFixture()
	rec, err := f.svc.Ingest([]byte(`{"timestamp":"t","object_count":9223372036854775807,"labels":[]}`))
	require.NoError(t, err)
	assert.Equal(t, int64(math.MaxInt64), rec.ObjectCount)
}

func TestIntegralFloatCountAccepted(t *testing.T) {
	f := newFixture()
	rec, err := f.svc.Ingest([]byte(`{"timestamp":"t","object_count":4.0,"labels":[]}`))
	require.NoError(t, err)
	assert.Equal(t, int64(4), rec.ObjectCount)
	assert.NotNil(t, rec.Labels)
}

func TestConfirmAppendsAndStampsTime(t *testing.T) {
	fixed := time.Date(2024, 5, 1, 9, 30, 0, 0, time.FixedZone("CEST", 2*3600))
	f := newFixture(WithClock(func() time.Time { return fixed }))

	rec, err := f.svc.Confirm(context.Background(), []byte(`{"product":"bagel","quantity":"4","time":"10:15","initials":"JD"}`))
	require.NoError(t, err)
	assert.Equal(t, 4.0, rec.Quantity)
	assert.Equal(t, fixed.UTC(), rec.SubmittedAt)
	assert.Equal(t, time.UTC, rec.SubmittedAt.Location())

	list := f.svc.Confirmations()
	require.Len(t, list, 1)
	assert.Equal(t, rec, list[0])
}

func TestMalformedConfirmDoesNotAppend(t *testing.T) {
	cases := map[string]struct {
		body   string
		reason string
	}{
		"missing product":   {`{"quantity":1,"time":"t","initials":"AB"}`, domain.ReasonMissingField},
		"empty product":     {`{"product":"","quantity":1,"time":"t","initials":"AB"}`, domain.ReasonEmptyField},
		"empty initials":    {`{"product":"p","quantity":1,"time":"t","initials":""}`, domain.ReasonEmptyField},
		"missing quantity":  {`{"product":"p","time":"t","initials":"AB"}`, domain.ReasonMissingField},
		"text quantity":     {`{"product":"p","quantity":"lots","time":"t","initials":"AB"}`, domain.ReasonNotNumeric},
		"negative quantity": {`{"product":"p","quantity":-2,"time":"t","initials":"AB"}`, domain.ReasonNegativeValue},
		"bool quantity":     {`{"product":"p","quantity":true,"time":"t","initials":"AB"}`, domain.ReasonInvalidType},
		"numeric product":   {`{"product":5,"quantity":1,"time":"t","initials":"AB"}`, domain.ReasonInvalidType},
		"long initials":     {`{"product":"p","quantity":1,"time":"t","initials":"ABCDEF"}`, domain.ReasonTooLong},
		"not an object":     {`"hello"`, domain.ReasonInvalidJSON},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			f := newFixture()
			_, err := f.svc.Confirm(context.Background(), []byte(tc.body))
			require.ErrorIs(t, err, domain.ErrValidation)
			var verr *domain.ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tc.reason, verr.Reason)
			assert.Equal(t, 0, f.log.Len())
			assert.Equal(t, float64(1), f.obs.counter(observability.ConfirmRejected))
		})
	}
}

func TestConfirmSurvivesArchiveFailure(t *testing.T) {
	arch := &failingArchiver{}
	f := newFixture(WithArchiver(arch))

	_, err := f.svc.Confirm(context.Background(), []byte(`{"product":"p","quantity":1,"time":"t","initials":"AB"}`))
	require.NoError(t, err)
	assert.Equal(t, 1, arch.calls)
	assert.Equal(t, 1, f.log.Len())
	assert.Equal(t, float64(1), f.obs.counter(observability.ArchiveFailures))
	assert.Contains(t, f.obs.errors, "archive_failed")
}

// One full counter cycle: late subscriber replay, live frame, confirmation.
func TestDetectionConfirmationScenario(t *testing.T) {
	f := newFixture()

	_, err := f.svc.Ingest([]byte(`{"timestamp":"T1","object_count":3,"labels":["apple","pear"]}`))
	require.NoError(t, err)

	s := registry.NewChanSender(4)
	_, err = f.svc.Subscribe(s)
	require.NoError(t, err)
	frames := drain(t, s)
	require.Len(t, frames, 1)
	assert.JSONEq(t, `{"timestamp":"T1","object_count":3,"labels":["apple","pear"]}`, frames[0])

	cur, err := f.svc.Current()
	require.NoError(t, err)
	assert.Equal(t, "apple", cur.PrimaryLabel())

	rec, err := f.svc.Confirm(context.Background(), []byte(`{"product":"apple","quantity":3,"time":"T1","initials":"AB"}`))
	require.NoError(t, err)
	assert.Equal(t, "apple", rec.Product)
	assert.Equal(t, "T1", rec.Time)
	assert.Equal(t, 1, f.log.Len())
}

func TestConcurrentIngestAndSubscribeSeesEachRecordOnce(t *testing.T) {
	f := newFixture()
	const ingests = 50

	started := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < ingests; i++ {
			if i == ingests/2 {
				close(started)
			}
			body := fmt.Sprintf(`{"timestamp":%d,"object_count":1,"labels":["a"]}`, i)
			_, _ = f.svc.Ingest([]byte(body))
		}
	}()

	<-started
	s := registry.NewChanSender(ingests + 1)
	_, err := f.svc.Subscribe(s)
	require.NoError(t, err)
	wg.Wait()

	frames := drain(t, s)
	require.NotEmpty(t, frames)

	var first domain.DetectionRecord
	require.NoError(t, json.Unmarshal([]byte(frames[0]), &first))
	start, err := strconv.Atoi(first.Timestamp.String())
	require.NoError(t, err)

	// Replay followed by every later ingest, each exactly once and in order.
	require.Len(t, frames, ingests-start)
	for i, frame := range frames {
		var rec domain.DetectionRecord
		require.NoError(t, json.Unmarshal([]byte(frame), &rec))
		assert.Equal(t, strconv.Itoa(start+i), rec.Timestamp.String())
	}
}

func TestCloseEndsSubscriptions(t *testing.T) {
	f := newFixture()
	s := registry.NewChanSender(1)
	_, err := f.svc.Subscribe(s)
	require.NoError(t, err)

	f.svc.Close()

	select {
	case <-s.Done():
	case <-time.After(time.Second):
		t.Fatalf("sender not closed on shutdown")
	}
	assert.Equal(t, 0, f.svc.Subscribers())
}
