package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
	"go.uber.org/dig"

	"service-delivery/internal/logx"
	testlog "service-delivery/internal/testutil"
)

func loggerContainer(t *testing.T, rec *testlog.Recorder) *dig.Container {
	t.Helper()
	container := dig.New()
	require.NoError(t, container.Provide(func() logx.Logger {
		return rec.Logger()
	}))
	return container
}

func TestRunner_MustRun(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name     string
		err      error
		wantMsg  string
		wantExit int
	}{
		{name: "clean stop", err: nil, wantExit: -1},
		{name: "signal", err: fmt.Errorf("serve: %w", context.Canceled), wantMsg: "shutdown requested, exiting", wantExit: -1},
		{name: "startup timeout", err: context.DeadlineExceeded, wantMsg: "startup aborted: startup timeout exceeded", wantExit: -1},
		{name: "failure", err: errors.New("listen tcp: address in use"), wantMsg: "run error", wantExit: 1},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			rec := testlog.New()
			exitCode := -1
			r := &Runner{
				runFn: func(*dig.Container) error { return tc.err },
				exit:  func(c int) { exitCode = c },
			}
			r.MustRun(loggerContainer(t, rec))

			require.Equal(t, tc.wantExit, exitCode)
			if tc.wantMsg == "" {
				require.Empty(t, rec.Entries())
				return
			}
			require.True(t, rec.Has(tc.wantMsg))
		})
	}
}

func TestNewRunner_DefaultFields(t *testing.T) {
	t.Parallel()

	r := NewRunner()
	require.NotNil(t, r)

	require.NotNil(t, r.runFn)
	require.NotNil(t, r.exit)
	require.Equal(t, fmt.Sprintf("%p", run), fmt.Sprintf("%p", r.runFn))
}

func TestGracefulShutdown_DoesNotPanic(t *testing.T) {
	t.Parallel()

	srv := &http.Server{
		Addr:    "127.0.0.1:0",
		Handler: http.NewServeMux(),
	}
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	require.NotPanics(t, func() {
		gracefulShutdown(ctx, srv, logx.Nop())
	})
}

func TestGoRun_LogsUnexpectedErrors(t *testing.T) {
	t.Parallel()

	rec := testlog.New()
	<-goRun("w1", rec.Logger(), func() error { return context.Canceled })
	require.Empty(t, rec.Entries())

	<-goRun("w2", rec.Logger(), func() error { return errors.New("broken") })
	require.True(t, rec.Has("background worker stopped"))
}

func TestRun_StartsAndStopsOnCancel(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg := testConfig()
	cfg.Port = 0
	c, err := NewContainerBuilder().
		WithConfig(cfg).
		WithRegistry(prometheus.NewRegistry()).
		build(ctx)
	require.NoError(t, err)

	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	err = run(c)
	require.ErrorIs(t, err, context.Canceled)
}
