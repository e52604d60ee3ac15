// Package engine serializes storage requests through a single worker.
//
// Callers on any goroutine submit reads, writes and deletes; the worker
// started with Run collects whatever is queued into a batch and serves it
// against the one Storage it owns: reads first, then writes, then deletes.
package engine

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	logging "github.com/op/go-logging"

	"github.com/viert/slotstore/storage"
)

const (
	defaultQueueSize = 1024
	defaultMaxBatch  = 64
)

var (
	log = logging.MustGetLogger("engine")

	// ErrStopped is returned for requests the worker will never serve
	ErrStopped = errors.New("engine stopped")
	// ErrRunning is returned by Run when a worker is already running
	ErrRunning = errors.New("engine is already running")
	// ErrEmptyWrite is returned when writing zero bytes
	ErrEmptyWrite = errors.New("nothing to write")
)

// Options configures an Engine. Zero values take defaults.
type Options struct {
	// QueueSize is the number of requests that can wait for the worker
	QueueSize int
	// MaxBatch caps the number of requests served per cycle
	MaxBatch int
	// SyncWrites syncs the storage after every cycle that wrote or deleted
	SyncWrites bool
}

// Info is a snapshot of the storage state
type Info struct {
	SlotCapacity uint32
	EndSlotCount uint32
	FreeSlots    int
}

type opKind int

const (
	opRead opKind = iota
	opWrite
	opDelete
	opInfo
)

// serving order within a batch
var cycle = [...]opKind{opRead, opWrite, opDelete, opInfo}

type request struct {
	ctx     context.Context
	kind    opKind
	indexes []uint32
	data    []byte
	hard    bool
	reply   chan result
}

type result struct {
	data    []byte
	indexes []uint32
	info    Info
	err     error
}

// Engine owns a Storage and serves requests against it from a single goroutine
type Engine struct {
	storage  *storage.Storage
	requests chan *request
	maxBatch int
	sync     bool
	running  atomic.Bool
	done     chan struct{}
}

// New creates an Engine for st. The engine takes ownership of st:
// nothing else may call st until Run has returned.
func New(st *storage.Storage, opts Options) *Engine {
	if opts.QueueSize < 1 {
		opts.QueueSize = defaultQueueSize
	}
	if opts.MaxBatch < 1 {
		opts.MaxBatch = defaultMaxBatch
	}
	return &Engine{
		storage:  st,
		requests: make(chan *request, opts.QueueSize),
		maxBatch: opts.MaxBatch,
		sync:     opts.SyncWrites,
		done:     make(chan struct{}),
	}
}

// Run serves requests until ctx is done. Requests still queued
// at that point fail with ErrStopped. Run returns ctx.Err().
func (e *Engine) Run(ctx context.Context) error {
	if !e.running.CompareAndSwap(false, true) {
		return ErrRunning
	}
	defer close(e.done)

	log.Infof("engine started, batch size %d", e.maxBatch)
	batch := make([]*request, 0, e.maxBatch)
	for {
		select {
		case <-ctx.Done():
			n := e.drain()
			log.Infof("engine stopped, %d queued requests dropped", n)
			return ctx.Err()
		case req := <-e.requests:
			batch = e.collect(append(batch[:0], req))
			e.serve(batch)
		}
	}
}

// Done is closed once Run has returned
func (e *Engine) Done() <-chan struct{} {
	return e.done
}

func (e *Engine) collect(batch []*request) []*request {
	for len(batch) < e.maxBatch {
		select {
		case req := <-e.requests:
			batch = append(batch, req)
		default:
			return batch
		}
	}
	return batch
}

func (e *Engine) drain() (n int) {
	for {
		select {
		case req := <-e.requests:
			req.reply <- result{err: ErrStopped}
			n++
		default:
			return
		}
	}
}

func (e *Engine) serve(batch []*request) {
	log.Debugf("serving batch of %d requests", len(batch))
	mutated := false
	for _, kind := range cycle {
		for _, req := range batch {
			if req.kind != kind {
				continue
			}
			// the caller gave up while queued, nobody would learn the result
			if err := req.ctx.Err(); err != nil {
				log.Debugf("skipping cancelled request: %s", err)
				req.reply <- result{err: err}
				continue
			}
			if kind == opWrite || kind == opDelete {
				mutated = true
			}
			req.reply <- e.handle(req)
		}
	}

	if mutated && e.sync {
		if err := e.storage.Sync(); err != nil {
			log.Errorf("error syncing storage: %s", err)
		}
	}
}

func (e *Engine) handle(req *request) result {
	switch req.kind {
	case opRead:
		return e.read(req.indexes)
	case opWrite:
		return e.write(req.data)
	case opDelete:
		return e.delete(req.indexes, req.hard)
	case opInfo:
		return result{info: Info{
			SlotCapacity: e.storage.SlotCapacity(),
			EndSlotCount: e.storage.EndSlotCount(),
			FreeSlots:    e.storage.NumFree(),
		}}
	}
	return result{err: fmt.Errorf("unknown request kind %d", req.kind)}
}

func (e *Engine) read(indexes []uint32) result {
	var out []byte
	for _, idx := range indexes {
		_, data, err := e.storage.ReadBlock(idx)
		if err != nil {
			log.Errorf("error reading slot %d: %s", idx, err)
			return result{err: fmt.Errorf("read slot %d: %w", idx, err)}
		}
		out = append(out, data...)
	}
	return result{data: out}
}

func (e *Engine) write(data []byte) result {
	if len(data) == 0 {
		return result{err: ErrEmptyWrite}
	}

	plan := e.storage.PlanWrite(len(data))
	if plan == nil {
		return result{err: fmt.Errorf("no slots left for %d bytes: %w", len(data), storage.ErrCapacity)}
	}
	for i, chunk := range e.storage.Chunks(data) {
		_, err := e.storage.WriteBlock(plan[i], chunk)
		if err != nil {
			log.Warningf("write of %d bytes failed at slot %d (%d of %d written), storage may need a reopen: %s",
				len(data), plan[i], i, len(plan), err)
			return result{err: fmt.Errorf("write slot %d: %w", plan[i], err)}
		}
	}
	log.Debugf("wrote %d bytes to slots %v", len(data), plan)
	return result{indexes: plan}
}

func (e *Engine) delete(indexes []uint32, hard bool) result {
	for i, idx := range indexes {
		_, err := e.storage.DeleteBlock(idx, hard)
		if err != nil {
			log.Warningf("delete failed at slot %d (%d of %d deleted), storage may need a reopen: %s",
				idx, i, len(indexes), err)
			return result{err: fmt.Errorf("delete slot %d: %w", idx, err)}
		}
	}
	return result{}
}

func (e *Engine) submit(ctx context.Context, req *request) (result, error) {
	req.ctx = ctx
	req.reply = make(chan result, 1)

	select {
	case e.requests <- req:
	case <-e.done:
		return result{}, ErrStopped
	case <-ctx.Done():
		return result{}, ctx.Err()
	}

	select {
	case res := <-req.reply:
		return res, res.err
	case <-e.done:
		// the worker may have answered right before stopping
		select {
		case res := <-req.reply:
			return res, res.err
		default:
			return result{}, ErrStopped
		}
	case <-ctx.Done():
		return result{}, ctx.Err()
	}
}

// Read returns the concatenated payloads of the given slots in order.
// Free or never written slots contribute nothing.
func (e *Engine) Read(ctx context.Context, indexes []uint32) ([]byte, error) {
	res, err := e.submit(ctx, &request{kind: opRead, indexes: indexes})
	return res.data, err
}

// Write stores data across as many slots as needed and returns them in order
func (e *Engine) Write(ctx context.Context, data []byte) ([]uint32, error) {
	res, err := e.submit(ctx, &request{kind: opWrite, data: data})
	return res.indexes, err
}

// Delete frees the given slots, scrubbing their payloads when hard is set
func (e *Engine) Delete(ctx context.Context, indexes []uint32, hard bool) error {
	_, err := e.submit(ctx, &request{kind: opDelete, indexes: indexes, hard: hard})
	return err
}

// Info returns a snapshot of the storage state
func (e *Engine) Info(ctx context.Context) (Info, error) {
	res, err := e.submit(ctx, &request{kind: opInfo})
	return res.info, err
}
