// Command corodemo is a small runnable demonstration of a Scheduler driving
// a timer, an Async producer, and a Generator side by side.
//
// Run with: go run ./cmd/corodemo
package main

import (
	"context"
	"fmt"
	"time"

	coro "github.com/ondra-novak/gocoro"
)

func main() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	sched := coro.NewScheduler(coro.WithWorkers(2))
	defer sched.Close()

	start := time.Now()
	if _, err := coro.Await(sched, sched.SleepFor(ctx, 20*time.Millisecond)); err != nil {
		fmt.Printf("sleep failed: %v\n", err)
	} else {
		fmt.Printf("slept for %s\n", time.Since(start).Round(time.Millisecond))
	}

	fetch := coro.NewAsync(func(p *coro.Promise[string], yield coro.Yield) (string, error) {
		return "fetched", nil
	})

	gen := coro.NewGenerator(ctx, func(yield func(int)) {
		for i := 1; i <= 3; i++ {
			yield(i * i)
		}
	})

	err := sched.Run(ctx, func() {
		v, err := fetch.Run()
		if err != nil {
			fmt.Printf("fetch failed: %v\n", err)
		} else {
			fmt.Printf("async result: %s\n", v)
		}

		for v := range gen.All(ctx) {
			fmt.Printf("generator value: %d\n", v)
		}
	})
	if err != nil {
		fmt.Printf("scheduler exited with: %v\n", err)
	}
	fmt.Println("done")
}
