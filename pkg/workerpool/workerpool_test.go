package workerpool

import (
	"context"
	"errors"
	"fmt"
	"io"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func TestDoReturnsResult(t *testing.T) {
	p := New(2, 4, quietLogger())
	defer p.Close()

	v, err := Do(context.Background(), p, func(context.Context) (int, error) {
		return 42, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 42, v)

	_, err = Do(context.Background(), p, func(context.Context) (int, error) {
		return 0, errors.New("boom")
	})
	assert.EqualError(t, err, "boom")
}

func TestDoShedsWhenFull(t *testing.T) {
	p := New(1, 1, quietLogger())
	defer p.Close()

	started := make(chan struct{})
	release := make(chan struct{})
	block := func(context.Context) (struct{}, error) {
		close(started)
		<-release
		return struct{}{}, nil
	}

	var g errgroup.Group
	g.Go(func() error {
		_, err := Do(context.Background(), p, block)
		return err
	})
	<-started

	// occupies the single queue slot
	g.Go(func() error {
		_, err := Do(context.Background(), p, func(context.Context) (int, error) { return 1, nil })
		return err
	})
	require.Eventually(t, func() bool { return p.Stats().Queued == 1 }, time.Second, time.Millisecond)

	_, err := Do(context.Background(), p, func(context.Context) (int, error) { return 2, nil })
	assert.ErrorIs(t, err, ErrOverloaded)

	stats := p.Stats()
	assert.Equal(t, int64(1), stats.InFlight)
	assert.Equal(t, int64(1), stats.Shed)
	assert.Equal(t, 1, stats.Workers)
	assert.Equal(t, 1, stats.Queue)

	close(release)
	assert.NoError(t, g.Wait())
}

func TestDoHonorsContext(t *testing.T) {
	p := New(1, 1, quietLogger())
	defer p.Close()

	release := make(chan struct{})
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := Do(ctx, p, func(context.Context) (int, error) {
		<-release
		return 0, nil
	})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestDoSkipsTasksWhoseCallerLeft(t *testing.T) {
	p := New(1, 1, quietLogger())
	defer p.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	ran := false
	_, err := Do(ctx, p, func(context.Context) (int, error) {
		ran = true
		return 0, nil
	})
	assert.ErrorIs(t, err, context.Canceled)

	// flush the queue so the cancelled task has been seen by the worker
	_, err = Do(context.Background(), p, func(context.Context) (int, error) { return 0, nil })
	require.NoError(t, err)
	assert.False(t, ran)
}

func TestDoRecoversPanics(t *testing.T) {
	p := New(1, 1, quietLogger())
	defer p.Close()

	_, err := Do(context.Background(), p, func(context.Context) (int, error) {
		panic("bad tensor")
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad tensor")

	// the worker survived
	v, err := Do(context.Background(), p, func(context.Context) (int, error) { return 7, nil })
	require.NoError(t, err)
	assert.Equal(t, 7, v)
}

func TestClose(t *testing.T) {
	p := New(2, 2, quietLogger())
	p.Close()
	p.Close()

	_, err := Do(context.Background(), p, func(context.Context) (int, error) { return 0, nil })
	assert.ErrorIs(t, err, ErrClosed)
}

func TestConcurrentCallsGetTheirOwnResults(t *testing.T) {
	p := New(4, 64, quietLogger())
	defer p.Close()

	var g errgroup.Group
	for i := 0; i < 64; i++ {
		g.Go(func() error {
			v, err := Do(context.Background(), p, func(context.Context) (string, error) {
				time.Sleep(time.Millisecond)
				return fmt.Sprintf("job-%d", i), nil
			})
			if err != nil {
				return err
			}
			if v != fmt.Sprintf("job-%d", i) {
				return fmt.Errorf("job %d got %q", i, v)
			}
			return nil
		})
	}
	assert.NoError(t, g.Wait())
}
