// Package pipe provides a bounded channel whose producer side never
// panics and never blocks indefinitely.
//
// A [Pipe] is owned by the consumer, which reads from [Pipe.C] and calls
// [Pipe.Close] when it is no longer interested. Producers running on a
// transfer goroutine use [Pipe.TrySend] or [Pipe.SendTimeout], both of
// which report [ErrFull] or [ErrClosed] instead of blocking or panicking:
//
//	speeds := pipe.New[collector.TransferSpeed](8)
//	go func() {
//		for s := range speeds.C() {
//			fmt.Println(s)
//		}
//	}()
//	defer speeds.Close()
package pipe
