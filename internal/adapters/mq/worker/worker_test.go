package worker_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	queue "github.com/okian/gridcast/internal/adapters/mq/queue"
	worker "github.com/okian/gridcast/internal/adapters/mq/worker"
	"github.com/okian/gridcast/internal/adapters/repository"
	model "github.com/okian/gridcast/internal/domain/model"
	logging "github.com/okian/gridcast/pkg/logger"
	"github.com/smartystreets/goconvey/convey"
)

type mockQueue struct {
	ch chan queue.Request
}

func newMockQueue() *mockQueue { return &mockQueue{ch: make(chan queue.Request, 16)} }

func (m *mockQueue) Dequeue(ctx context.Context) <-chan queue.Request { return m.ch }
func (m *mockQueue) Close() error                                     { close(m.ch); return nil }
func (m *mockQueue) add(r queue.Request)                              { m.ch <- r }

type mockBuilder struct {
	mu     sync.Mutex
	calls  int
	errFor map[uint64]error
}

func (b *mockBuilder) Build(ctx context.Context, r queue.Request) (*repository.Snapshot, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.calls++
	if err := b.errFor[r.Version]; err != nil {
		return nil, err
	}
	return &repository.Snapshot{Scoring: r.Scoring, Version: r.Version}, nil
}

func (b *mockBuilder) count() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.calls
}

type mockPublisher struct {
	mu      sync.Mutex
	stored  map[uint64]*repository.Snapshot
	failPut bool
}

func newMockPublisher() *mockPublisher {
	return &mockPublisher{stored: make(map[uint64]*repository.Snapshot)}
}

func (p *mockPublisher) Get(ctx context.Context, s model.ScoringSystem, v uint64) (*repository.Snapshot, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if snap, ok := p.stored[v]; ok {
		return snap, nil
	}
	return nil, repository.ErrNotFound
}

func (p *mockPublisher) Put(ctx context.Context, s *repository.Snapshot) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.failPut {
		return errors.New("store down")
	}
	p.stored[s.Version] = s
	return nil
}

func (p *mockPublisher) size() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.stored)
}

func request(v uint64) queue.Request {
	return queue.Request{ID: "r", Scoring: model.PPR, Version: v, Reason: "test"}
}

func TestInMemoryWorker(t *testing.T) {
	convey.Convey("Given a new InMemoryWorker", t, func() {
		convey.So(logging.Init(), convey.ShouldBeNil)
		q := newMockQueue()
		b := &mockBuilder{errFor: map[uint64]error{}}
		p := newMockPublisher()
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		w := worker.NewInMemoryWorker(q, b, p, worker.WithName("w-test"))
		go w.Run(ctx)

		convey.Convey("When a request arrives", func() {
			q.add(request(1))

			convey.Convey("Then the snapshot is built and published", func() {
				convey.So(waitFor(func() bool { return p.size() == 1 }), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When the snapshot already exists", func() {
			_ = p.Put(ctx, &repository.Snapshot{Scoring: model.PPR, Version: 2})
			q.add(request(2))
			q.add(request(3))

			convey.Convey("Then it is not rebuilt", func() {
				convey.So(waitFor(func() bool { return p.size() == 2 }), convey.ShouldBeTrue)
				convey.So(b.count(), convey.ShouldEqual, 1)
			})
		})

		convey.Convey("When the request is stale or the build fails", func() {
			b.errFor[4] = worker.ErrStale
			b.errFor[5] = errors.New("bad data")
			q.add(request(4))
			q.add(request(5))
			q.add(request(6))

			convey.Convey("Then nothing is published for them and the worker keeps going", func() {
				convey.So(waitFor(func() bool { return p.size() == 1 }), convey.ShouldBeTrue)
				_, err := p.Get(ctx, model.PPR, 6)
				convey.So(err, convey.ShouldBeNil)
				convey.So(b.count(), convey.ShouldEqual, 3)
			})
		})

		convey.Convey("When publishing fails", func() {
			p.failPut = true
			q.add(request(7))

			convey.Convey("Then the worker survives", func() {
				convey.So(waitFor(func() bool { return b.count() == 1 }), convey.ShouldBeTrue)
				convey.So(p.size(), convey.ShouldEqual, 0)
			})
		})

		convey.Convey("When shutting down", func() {
			sctx, scancel := context.WithTimeout(context.Background(), time.Second)
			defer scancel()
			convey.So(w.Shutdown(sctx), convey.ShouldBeNil)
		})
	})
}

func TestWorkerPool(t *testing.T) {
	convey.Convey("Given a started pool", t, func() {
		convey.So(logging.Init(), convey.ShouldBeNil)
		q := newMockQueue()
		b := &mockBuilder{errFor: map[uint64]error{}}
		p := newMockPublisher()
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		pool := worker.NewPool(3, q, b, p)
		convey.So(pool.Size(), convey.ShouldEqual, 3)
		pool.Start(ctx)

		convey.Convey("When many requests arrive", func() {
			for v := uint64(1); v <= 10; v++ {
				q.add(request(v))
			}

			convey.Convey("Then every one is published", func() {
				convey.So(waitFor(func() bool { return p.size() == 10 }), convey.ShouldBeTrue)
				convey.So(pool.Active(), convey.ShouldBeBetweenOrEqual, 0, 3)
			})
		})

		convey.Convey("When shutting down", func() {
			convey.So(pool.Shutdown(context.Background()), convey.ShouldBeNil)

			convey.Convey("Then a second stop is harmless", func() {
				convey.So(func() { pool.Stop() }, convey.ShouldNotPanic)
			})
		})

		convey.Convey("When stopping", func() {
			pool.Stop()
			convey.So(pool.Shutdown(context.Background()), convey.ShouldBeNil)
		})
	})

	convey.Convey("Given a non-positive worker count", t, func() {
		convey.So(logging.Init(), convey.ShouldBeNil)
		pool := worker.NewPool(0, newMockQueue(), &mockBuilder{}, newMockPublisher())
		convey.So(pool.Size(), convey.ShouldBeGreaterThan, 0)
	})
}

func waitFor(cond func() bool) bool {
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return cond()
}
