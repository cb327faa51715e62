// Package hammer runs a test body from many goroutines at once, to shake out
// data races between guests sharing a Runtime.
package hammer

import (
	"runtime"
	"sync"
	"testing"
)

// Hammer invokes a test concurrently in P goroutines N times per goroutine.
//
// Ex.
//
//	P, N := 8, 100
//	if testing.Short() {
//		P, N = 4, 10
//	}
//	hammer.NewHammer(t, P, N).Run(func(p, n int) {
//		// p identifies the goroutine, n the iteration.
//	}, nil)
//	if t.Failed() {
//		return
//	}
type Hammer interface {
	// Run releases P goroutines at once, each calling test N times.
	//
	// onRunning, if not nil, is called after all goroutines started, but
	// before any calls test.
	Run(test func(p, n int), onRunning func())
}

// NewHammer returns a Hammer of P goroutines, each doing N iterations.
func NewHammer(t *testing.T, P, N int) Hammer {
	return &hammer{t: t, P: P, N: N}
}

type hammer struct {
	t    *testing.T
	P, N int
}

// Run implements Hammer.Run
func (h *hammer) Run(test func(p, n int), onRunning func()) {
	// Fewer cores than goroutines forces them to switch.
	defer runtime.GOMAXPROCS(runtime.GOMAXPROCS(max(1, h.P/2)))

	var running, finished sync.WaitGroup
	release := make(chan struct{})

	running.Add(h.P)
	finished.Add(h.P)
	for p := 0; p < h.P; p++ {
		go func(p int) {
			defer finished.Done()
			defer func() {
				// Surface panics, such as a nil result, as a failure of this test.
				if recovered := recover(); recovered != nil {
					h.t.Error(recovered)
				}
			}()

			running.Done()
			<-release
			for n := 0; n < h.N; n++ {
				test(p, n)
			}
		}(p)
	}

	running.Wait()
	if onRunning != nil {
		onRunning()
	}
	close(release)
	finished.Wait()
}
