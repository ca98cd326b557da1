/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package taskqueue_test

import (
	"context"
	"fmt"
	"log"

	taskqueue "github.com/acronis/go-taskqueue"
)

func Example() {
	// Make, configure and register Prometheus metrics collector.
	metricsCollector := taskqueue.NewPrometheusMetricsWithOpts(taskqueue.PrometheusMetricsOpts{
		Namespace: "myservice",
	})
	metricsCollector.MustRegister()
	defer metricsCollector.Unregister()

	// Make a queue that runs at most 2 tasks at once.
	queue, err := taskqueue.New[string](2, metricsCollector)
	if err != nil {
		log.Fatal(err)
	}

	// Submit tasks. The first two are admitted immediately,
	// the rest wait in the FIFO backlog for a free slot.
	var handles []*taskqueue.Handle[string]
	for _, name := range []string{"alpha", "beta", "gamma", "delta"} {
		name := name
		handles = append(handles, queue.Submit(context.Background(), func(ctx context.Context) (string, error) {
			return "processed " + name, nil
		}))
	}

	// Await the results, each handle carries its own task's outcome.
	for _, h := range handles {
		res, err := h.Wait(context.Background())
		if err != nil {
			log.Fatal(err)
		}
		fmt.Println(res)
	}

	// Output:
	// processed alpha
	// processed beta
	// processed gamma
	// processed delta
}
