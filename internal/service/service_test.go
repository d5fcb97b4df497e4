package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"topflow/internal/alerting"
	"topflow/internal/config"
	"topflow/internal/flow"
	"topflow/internal/quote"
)

type stubFetcher struct {
	bodies map[string]string
	errs   map[string]error
	calls  []string
}

func (f *stubFetcher) FetchQuote(ctx context.Context, symbol string) (string, error) {
	f.calls = append(f.calls, symbol)
	if err, ok := f.errs[symbol]; ok {
		return "", err
	}
	return f.bodies[symbol], nil
}

type recordingNotifier struct {
	notes []alerting.Notification
	err   error
}

func (r *recordingNotifier) Notify(ctx context.Context, note alerting.Notification) error {
	r.notes = append(r.notes, note)
	return r.err
}

type stubLocker struct {
	acquired bool
	err      error
	released int
}

func (l *stubLocker) TryAdvisoryLock(ctx context.Context, key int64) (func(), bool, error) {
	if l.err != nil || !l.acquired {
		return nil, false, l.err
	}
	return func() { l.released++ }, true, nil
}

// quoteBody builds a flat payload whose flow score equals pct * volume / avg.
func quoteBody(symbol string, pct, volume, avg float64) string {
	return fmt.Sprintf(`{"symbol":"%s","exchange":"NASDAQ","previous_close":"100.00000","change":"1.50000","percent_change":"%g","volume":"%g","average_volume":"%g","is_market_open":true}`,
		symbol, pct, volume, avg)
}

func newTestService(t *testing.T, f *stubFetcher, n alerting.Notifier, watchlist []string, logger zerolog.Logger) *Service {
	t.Helper()
	svc := New(&config.Config{}, nil, f, n, nil, logger)
	if watchlist != nil {
		svc.watchlist = watchlist
	}
	return svc
}

func TestRunCycleSelectsLargestMagnitude(t *testing.T) {
	f := &stubFetcher{bodies: map[string]string{
		"A": quoteBody("A", -5.0, 1000, 1000),
		"B": quoteBody("B", 2.0, 1000, 1000),
		"C": quoteBody("C", 4.9, 1000, 1000),
	}}
	n := &recordingNotifier{}
	svc := newTestService(t, f, n, []string{"A", "B", "C"}, zerolog.Nop())

	report := svc.RunCycle(context.Background())

	if report.Top == nil || report.Top.Ticker != "A" {
		t.Fatalf("expected A to win, got %+v", report.Top)
	}
	if report.Top.Direction != flow.Bearish {
		t.Fatalf("expected bearish, got %s", report.Top.Direction)
	}
	if len(n.notes) != 1 {
		t.Fatalf("expected exactly one delivery, got %d", len(n.notes))
	}
	if !strings.HasPrefix(n.notes[0].Message, "TOP BEAR FLOW\nTicker: A\nPrice: 101.50\n") {
		t.Fatalf("unexpected alert text %q", n.notes[0].Message)
	}
	if !report.Delivered {
		t.Fatal("report should mark delivery")
	}
	if strings.Join(f.calls, ",") != "A,B,C" {
		t.Fatalf("symbols must be visited in watchlist order, got %v", f.calls)
	}
}

func TestRunCycleTieKeepsEarlierSymbol(t *testing.T) {
	f := &stubFetcher{bodies: map[string]string{
		"A": quoteBody("A", 1.0, 500, 1000),
		"B": quoteBody("B", 3.0, 1000, 1000),
		"C": quoteBody("C", -1.5, 2000, 1000),
	}}
	n := &recordingNotifier{}
	svc := newTestService(t, f, n, []string{"A", "B", "C"}, zerolog.Nop())

	report := svc.RunCycle(context.Background())
	if report.Top == nil || report.Top.Ticker != "B" {
		t.Fatalf("earlier symbol should win the tie, got %+v", report.Top)
	}
	if report.Top.Direction != flow.Bullish {
		t.Fatalf("expected bullish, got %s", report.Top.Direction)
	}
}

func TestRunCycleSkipsNonPositiveAverageVolume(t *testing.T) {
	f := &stubFetcher{bodies: map[string]string{
		"A": quoteBody("A", 90, 1e9, 0),
		"B": quoteBody("B", 80, 1e9, -1),
		"C": quoteBody("C", 0.1, 10, 1000),
	}}
	n := &recordingNotifier{}
	svc := newTestService(t, f, n, []string{"A", "B", "C"}, zerolog.Nop())

	report := svc.RunCycle(context.Background())
	if report.Top == nil || report.Top.Ticker != "C" {
		t.Fatalf("only C is usable, got %+v", report.Top)
	}
	if len(report.Snapshots) != 1 || len(report.Skipped) != 2 {
		t.Fatalf("unexpected snapshots/skips: %d/%d", len(report.Snapshots), len(report.Skipped))
	}
	for _, skip := range report.Skipped {
		if !errors.Is(skip.Err, quote.ErrNoAverageVolume) {
			t.Fatalf("unexpected skip reason for %s: %v", skip.Symbol, skip.Err)
		}
	}
}

func TestRunCycleAllFailuresSendNothing(t *testing.T) {
	watchlist := flow.Watchlist()
	f := &stubFetcher{bodies: map[string]string{}, errs: map[string]error{}}
	for i, symbol := range watchlist {
		switch i % 3 {
		case 0:
			f.errs[symbol] = errors.New("connection refused")
		case 1:
			f.bodies[symbol] = `{"code":429,"message":"run out of API credits","status":"error"}`
		default:
			f.bodies[symbol] = ""
		}
	}
	n := &recordingNotifier{}
	svc := newTestService(t, f, n, nil, zerolog.Nop())

	report := svc.RunCycle(context.Background())
	if report.Top != nil {
		t.Fatalf("no winner expected, got %+v", report.Top)
	}
	if len(n.notes) != 0 {
		t.Fatalf("no delivery expected, got %d", len(n.notes))
	}
	if len(f.calls) != len(watchlist) || len(report.Skipped) != len(watchlist) {
		t.Fatalf("every symbol should be attempted and skipped: calls=%d skipped=%d", len(f.calls), len(report.Skipped))
	}
}

func TestRunCycleDeliveryFailureIsContained(t *testing.T) {
	f := &stubFetcher{bodies: map[string]string{"A": quoteBody("A", 1, 1, 1)}}
	n := &recordingNotifier{err: errors.New("webhook down")}
	svc := newTestService(t, f, n, []string{"A"}, zerolog.Nop())

	first := svc.RunCycle(context.Background())
	second := svc.RunCycle(context.Background())

	if first.Delivered || second.Delivered {
		t.Fatal("failed delivery must not be reported as delivered")
	}
	if len(n.notes) != 2 {
		t.Fatalf("each cycle should attempt exactly once, got %d", len(n.notes))
	}
}

func TestRunCycleWithoutNotifier(t *testing.T) {
	f := &stubFetcher{bodies: map[string]string{"A": quoteBody("A", 1, 1, 1)}}
	svc := newTestService(t, f, nil, []string{"A"}, zerolog.Nop())

	report := svc.RunCycle(context.Background())
	if report.Top == nil || report.Message == "" {
		t.Fatal("winner and message should still be produced")
	}
	if report.Delivered {
		t.Fatal("nothing should be delivered without a notifier")
	}
}

func TestRunCycleIsDeterministic(t *testing.T) {
	f := &stubFetcher{bodies: map[string]string{}}
	for i, symbol := range flow.DefaultWatchlist {
		f.bodies[symbol] = quoteBody(symbol, float64(i)-3.25, float64(1000*(i+1)), 1500)
	}
	n := &recordingNotifier{}

	var buf bytes.Buffer
	svc := newTestService(t, f, n, nil, zerolog.New(&buf))

	svc.RunCycle(context.Background())
	firstLog := buf.String()
	buf.Reset()
	svc.RunCycle(context.Background())
	secondLog := buf.String()

	if firstLog == "" || firstLog != secondLog {
		t.Fatalf("diagnostics differ between identical cycles:\n%s\n---\n%s", firstLog, secondLog)
	}
	if len(n.notes) != 2 || n.notes[0].Message != n.notes[1].Message {
		t.Fatalf("alert text differs between identical cycles")
	}
	if strings.Count(firstLog, `"message":"symbol sampled"`) != len(flow.DefaultWatchlist) {
		t.Fatalf("expected one diagnostic line per symbol:\n%s", firstLog)
	}
}

func TestProcessCycleRespectsAdvisoryLock(t *testing.T) {
	f := &stubFetcher{bodies: map[string]string{"A": quoteBody("A", 1, 1, 1)}}
	n := &recordingNotifier{}
	locker := &stubLocker{}

	cfg := &config.Config{Scheduler: config.SchedulerConfig{AdvisoryLockKey: 42}}
	svc := New(cfg, nil, f, n, locker, zerolog.Nop())
	svc.watchlist = []string{"A"}

	if err := svc.ProcessCycle(context.Background(), time.Now()); err != nil {
		t.Fatalf("lock held elsewhere is not an error: %v", err)
	}
	if len(f.calls) != 0 {
		t.Fatal("cycle must not run while the lock is held elsewhere")
	}

	locker.acquired = true
	if err := svc.ProcessCycle(context.Background(), time.Now()); err != nil {
		t.Fatalf("process cycle: %v", err)
	}
	if len(n.notes) != 1 || locker.released != 1 {
		t.Fatalf("expected one alert and one release, got %d/%d", len(n.notes), locker.released)
	}

	locker.err = errors.New("db down")
	if err := svc.ProcessCycle(context.Background(), time.Now()); err == nil {
		t.Fatal("lock errors should surface to the scheduler")
	}
}

func TestProcessCycleIgnoresCancellation(t *testing.T) {
	f := &stubFetcher{bodies: map[string]string{"A": quoteBody("A", 1, 1, 1)}}
	n := &recordingNotifier{}
	svc := newTestService(t, f, n, []string{"A"}, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := svc.ProcessCycle(ctx, time.Now()); err != nil {
		t.Fatalf("process cycle: %v", err)
	}
	if len(n.notes) != 1 {
		t.Fatal("a started cycle should run to completion")
	}
}

func TestRunRequiresScheduler(t *testing.T) {
	svc := newTestService(t, &stubFetcher{}, nil, nil, zerolog.Nop())
	if err := svc.Run(context.Background()); err == nil {
		t.Fatal("run without scheduler should fail")
	}
}
