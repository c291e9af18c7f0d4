package predict

import (
	"context"
	"sync"
)

// runSteps executes fn(i) for i in [0, steps) across a fixed pool of
// goroutines. Step computations are independent and write only their own
// slot, so results reassemble in ascending order by index. Cancellation is
// cooperative at step granularity: pending indices are abandoned, completed
// ones keep their output.
func runSteps(ctx context.Context, workers, steps int, fn func(i int)) {
	if steps <= 0 {
		return
	}
	if workers > steps {
		workers = steps
	}

	jobs := make(chan int, workers*2)

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				fn(i)
			}
		}()
	}

	go func() {
		defer close(jobs)
		for i := 0; i < steps; i++ {
			select {
			case jobs <- i:
			case <-ctx.Done():
				return
			}
		}
	}()

	wg.Wait()
}
