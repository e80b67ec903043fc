// ChatAlytics - Realtime Chat Analytics Relay
// Copyright 2026 OpenChatAlytics
// SPDX-License-Identifier: Apache-2.0
// https://github.com/OpenChatAlytics/ChatAlytics

package connector

import (
	"sync"

	"github.com/OpenChatAlytics/ChatAlytics/internal/models"
)

// messageQueue is an internally-synchronized unbounded FIFO bridging the
// transport's inbound callback and the pipeline's pull side. Append and
// drain are safe to call concurrently from different goroutines.
type messageQueue struct {
	mu    sync.Mutex
	items []models.FatMessage
}

// append adds a message to the tail of the queue.
func (q *messageQueue) append(m models.FatMessage) {
	q.mu.Lock()
	q.items = append(q.items, m)
	q.mu.Unlock()
}

// drain removes and returns the entire current contents in FIFO order.
// Returns nil when the queue is empty; never blocks.
func (q *messageQueue) drain() []models.FatMessage {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.items) == 0 {
		return nil
	}
	drained := q.items
	q.items = nil
	return drained
}

// depth returns the current number of queued messages.
func (q *messageQueue) depth() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}
