package logger

import (
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap/zapcore"
)

type logEntry struct {
	core   zapcore.Core
	entry  zapcore.Entry
	fields []zapcore.Field
}

// asyncState is shared by an AsyncCore and every core derived from it with With.
type asyncState struct {
	entries       chan logEntry
	quit          chan struct{}
	stopOnce      sync.Once
	wg            sync.WaitGroup
	batchSize     int
	flushInterval time.Duration
	dropped       atomic.Uint64
}

// AsyncCore queues entries on a buffered channel and writes them in batches from one
// goroutine. Entries are dropped (and counted) when the buffer is full.
type AsyncCore struct {
	core  zapcore.Core
	state *asyncState
}

func NewAsyncCore(core zapcore.Core, bufferSize, batchSize int, flushInterval time.Duration) *AsyncCore {
	if bufferSize <= 0 {
		bufferSize = 10000
	}
	if batchSize <= 0 || batchSize > bufferSize {
		batchSize = bufferSize / 10
	}
	if flushInterval <= 0 {
		flushInterval = time.Second
	}

	st := &asyncState{
		entries:       make(chan logEntry, bufferSize),
		quit:          make(chan struct{}),
		batchSize:     batchSize,
		flushInterval: flushInterval,
	}

	ac := &AsyncCore{core: core, state: st}
	st.wg.Add(1)
	go ac.run()

	return ac
}

func (ac *AsyncCore) run() {
	st := ac.state
	defer st.wg.Done()

	ticker := time.NewTicker(st.flushInterval)
	defer ticker.Stop()

	batch := make([]logEntry, 0, st.batchSize)
	flush := func() {
		for _, e := range batch {
			if err := e.core.Write(e.entry, e.fields); err != nil {
				fmt.Fprintf(os.Stderr, "async logger: write failed: %v\n", err)
			}
		}
		batch = batch[:0]
	}

	for {
		select {
		case e := <-st.entries:
			batch = append(batch, e)
			if len(batch) >= st.batchSize {
				flush()
			}
		case <-ticker.C:
			if n := st.dropped.Swap(0); n > 0 {
				batch = append(batch, logEntry{
					core: ac.core,
					entry: zapcore.Entry{
						Level:   zapcore.WarnLevel,
						Time:    time.Now(),
						Message: fmt.Sprintf("dropped %d log entries due to full buffer", n),
					},
				})
			}
			flush()
		case <-st.quit:
			for {
				select {
				case e := <-st.entries:
					batch = append(batch, e)
				default:
					flush()
					return
				}
			}
		}
	}
}

func (ac *AsyncCore) Enabled(level zapcore.Level) bool {
	return ac.core.Enabled(level)
}

func (ac *AsyncCore) With(fields []zapcore.Field) zapcore.Core {
	return &AsyncCore{core: ac.core.With(fields), state: ac.state}
}

func (ac *AsyncCore) Check(entry zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if ac.Enabled(entry.Level) {
		return ce.AddCore(entry, ac)
	}
	return ce
}

func (ac *AsyncCore) Write(entry zapcore.Entry, fields []zapcore.Field) error {
	select {
	case <-ac.state.quit:
		return ac.core.Write(entry, fields)
	default:
	}

	select {
	case ac.state.entries <- logEntry{core: ac.core, entry: entry, fields: fields}:
	default:
		ac.state.dropped.Add(1)
	}
	return nil
}

// Sync drains the queue, stops the writer goroutine and syncs the wrapped core.
// After Sync, writes go straight to the wrapped core.
func (ac *AsyncCore) Sync() error {
	ac.state.stopOnce.Do(func() {
		close(ac.state.quit)
	})
	ac.state.wg.Wait()
	return ac.core.Sync()
}
