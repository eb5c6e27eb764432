// Package scannertest содержит тестовую камеру для пакета scanner.
package scannertest

import (
	"context"
	"sync"
)

// FeedCamera подставляет синтетические кадры и ошибки в сеанс сканирования.
type FeedCamera struct {
	// StartErr, если задан, возвращается из Start.
	StartErr error

	mu       sync.Mutex
	onDecode func(string)
	onError  func(error)
	starts   int
	stops    int
	active   bool
}

// Start запоминает обработчики или возвращает StartErr.
func (c *FeedCamera) Start(_ context.Context, onDecode func(string), onError func(error)) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.starts++
	if c.StartErr != nil {
		return c.StartErr
	}
	c.onDecode = onDecode
	c.onError = onError
	c.active = true
	return nil
}

// Stop отмечает освобождение камеры.
func (c *FeedCamera) Stop() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stops++
	c.active = false
	return nil
}

// Frame передаёт распознанное содержимое, если камера активна.
func (c *FeedCamera) Frame(payload string) {
	c.mu.Lock()
	fn, active := c.onDecode, c.active
	c.mu.Unlock()
	if active && fn != nil {
		fn(payload)
	}
}

// Fail сообщает об ошибке камеры во время сканирования.
func (c *FeedCamera) Fail(err error) {
	c.mu.Lock()
	fn, active := c.onError, c.active
	c.mu.Unlock()
	if active && fn != nil {
		fn(err)
	}
}

// Starts возвращает число вызовов Start.
func (c *FeedCamera) Starts() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.starts
}

// Stops возвращает число вызовов Stop.
func (c *FeedCamera) Stops() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stops
}

// Active сообщает, захвачена ли камера.
func (c *FeedCamera) Active() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.active
}
