package session

import "time"

// loadingTicker calls tick every interval until stopped. It is acquired on
// entering Processing and released on every exit from it.
type loadingTicker struct {
	stop chan struct{}
	done chan struct{}
}

func startTicker(interval time.Duration, tick func()) *loadingTicker {
	t := &loadingTicker{
		stop: make(chan struct{}),
		done: make(chan struct{}),
	}
	go func() {
		defer close(t.done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-t.stop:
				return
			case <-ticker.C:
				select {
				case <-t.stop:
					return
				default:
				}
				tick()
			}
		}
	}()
	return t
}

// Stop ends the ticker and waits for its goroutine to exit. It must not be
// called while holding a lock that tick acquires.
func (t *loadingTicker) Stop() {
	close(t.stop)
	<-t.done
}
