package engine

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/viert/slotstore/storage"
)

func newStorage(t *testing.T, capacity uint32) (*storage.Storage, *storage.MemBackend) {
	t.Helper()
	mb := storage.NewMemBackend()
	st, err := storage.CreateOn(mb, capacity)
	require.NoError(t, err)
	return st, mb
}

// startEngine runs the worker until the test ends
func startEngine(t *testing.T, eng *Engine) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- eng.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		require.ErrorIs(t, <-errc, context.Canceled)
	})
}

func TestWriteReadDelete(t *testing.T) {
	st, _ := newStorage(t, 8)
	eng := New(st, Options{})
	startEngine(t, eng)
	ctx := context.Background()

	record := []byte("twenty bytes of data")
	slots, err := eng.Write(ctx, record)
	require.NoError(t, err)
	require.Equal(t, []uint32{0, 1, 2}, slots)

	data, err := eng.Read(ctx, slots)
	require.NoError(t, err)
	require.Equal(t, record, data)

	require.NoError(t, eng.Delete(ctx, slots[:2], false))

	info, err := eng.Info(ctx)
	require.NoError(t, err)
	require.Equal(t, Info{SlotCapacity: 8, EndSlotCount: 3, FreeSlots: 2}, info)

	// freed slots are reused first
	slots, err = eng.Write(ctx, []byte("0123456789"))
	require.NoError(t, err)
	require.Equal(t, []uint32{0, 1}, slots)

	data, err = eng.Read(ctx, []uint32{0, 1, 2, 7})
	require.NoError(t, err)
	require.Equal(t, "0123456789data", string(data))
}

func TestEmptyWrite(t *testing.T) {
	st, _ := newStorage(t, 8)
	eng := New(st, Options{})
	startEngine(t, eng)

	_, err := eng.Write(context.Background(), nil)
	require.ErrorIs(t, err, ErrEmptyWrite)
}

func TestConcurrentClients(t *testing.T) {
	st, mb := newStorage(t, 16)
	eng := New(st, Options{QueueSize: 4, MaxBatch: 8})

	ctx, cancel := context.WithCancel(context.Background())
	var worker errgroup.Group
	worker.Go(func() error { return eng.Run(ctx) })

	const clients = 16
	records := make([][]uint32, clients)
	var g errgroup.Group
	for i := range clients {
		g.Go(func() error {
			record := bytes.Repeat([]byte{byte('a' + i)}, 10+i*7)
			slots, err := eng.Write(ctx, record)
			if err != nil {
				return err
			}
			data, err := eng.Read(ctx, slots)
			if err != nil {
				return err
			}
			if !bytes.Equal(record, data) {
				return fmt.Errorf("client %d read back %q", i, data)
			}
			records[i] = slots
			return nil
		})
	}
	require.NoError(t, g.Wait())

	seen := map[uint32]bool{}
	for _, slots := range records {
		for _, idx := range slots {
			require.False(t, seen[idx], "slot %d handed out twice", idx)
			seen[idx] = true
		}
	}

	for i := 0; i < clients; i += 2 {
		require.NoError(t, eng.Delete(ctx, records[i], i%4 == 0))
	}
	info, err := eng.Info(ctx)
	require.NoError(t, err)

	cancel()
	require.ErrorIs(t, worker.Wait(), context.Canceled)

	reopened, err := storage.OpenOn(mb)
	require.NoError(t, err)
	require.Equal(t, info.EndSlotCount, reopened.EndSlotCount())
	require.Equal(t, info.FreeSlots, reopened.NumFree())
	require.Equal(t, st.FreeSlots(), reopened.FreeSlots())
}

func TestBatchServesReadsBeforeWrites(t *testing.T) {
	st, _ := newStorage(t, 8)
	eng := New(st, Options{MaxBatch: 8})
	ctx := context.Background()

	writeDone := make(chan []uint32, 1)
	go func() {
		slots, err := eng.Write(ctx, []byte("abc"))
		if err != nil {
			slots = nil
		}
		writeDone <- slots
	}()
	require.Eventually(t, func() bool { return len(eng.requests) == 1 }, time.Second, time.Millisecond)

	readDone := make(chan []byte, 1)
	go func() {
		data, _ := eng.Read(ctx, []uint32{0})
		readDone <- data
	}()
	require.Eventually(t, func() bool { return len(eng.requests) == 2 }, time.Second, time.Millisecond)

	startEngine(t, eng)

	require.Equal(t, []uint32{0}, <-writeDone)
	require.Empty(t, <-readDone, "read queued in the same batch is served before the write")

	data, err := eng.Read(ctx, []uint32{0})
	require.NoError(t, err)
	require.Equal(t, "abc", string(data))
}

func TestFailureIsolated(t *testing.T) {
	st, mb := newStorage(t, 8)
	eng := New(st, Options{})
	startEngine(t, eng)
	ctx := context.Background()

	slots, err := eng.Write(ctx, []byte("kept"))
	require.NoError(t, err)

	mb.LimitWrites(6)
	_, err = eng.Write(ctx, []byte("does not fit in budget"))
	require.ErrorIs(t, err, storage.ErrIO)
	mb.LimitWrites(-1)

	data, err := eng.Read(ctx, slots)
	require.NoError(t, err)
	require.Equal(t, "kept", string(data))

	err = eng.Delete(ctx, []uint32{0}, true)
	require.NoError(t, err)
}

func TestCancelledWriteNotServed(t *testing.T) {
	st, mb := newStorage(t, 8)
	eng := New(st, Options{})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := eng.Write(ctx, []byte("abandoned"))
	require.ErrorIs(t, err, context.DeadlineExceeded)
	require.Len(t, eng.requests, 1)

	startEngine(t, eng)

	info, err := eng.Info(context.Background())
	require.NoError(t, err)
	require.Equal(t, Info{SlotCapacity: 8}, info)
	require.Equal(t, 4, mb.Len())

	slots, err := eng.Write(context.Background(), []byte("kept"))
	require.NoError(t, err)
	require.Equal(t, []uint32{0}, slots)
}

func TestStopped(t *testing.T) {
	st, _ := newStorage(t, 8)
	eng := New(st, Options{SyncWrites: true})

	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- eng.Run(ctx) }()

	_, err := eng.Write(context.Background(), []byte("x"))
	require.NoError(t, err)

	require.ErrorIs(t, eng.Run(context.Background()), ErrRunning)

	cancel()
	require.ErrorIs(t, <-errc, context.Canceled)
	<-eng.Done()

	_, err = eng.Read(context.Background(), []uint32{0})
	require.ErrorIs(t, err, ErrStopped)
}

func TestSubmitCancelled(t *testing.T) {
	st, _ := newStorage(t, 8)
	eng := New(st, Options{QueueSize: 1})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	// nobody runs the worker: the first request waits for a reply,
	// the second can not even be queued
	errc := make(chan error, 2)
	for range 2 {
		go func() {
			_, err := eng.Info(ctx)
			errc <- err
		}()
	}
	for range 2 {
		err := <-errc
		require.True(t, errors.Is(err, context.DeadlineExceeded), "got %v", err)
	}
}
