/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

// Package taskqueue provides an in-process bounded-concurrency task queue with FIFO backlog
// draining and Prometheus metrics.
package taskqueue
