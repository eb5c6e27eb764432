package scanner

import (
	"context"
	"errors"
	"sync"
)

// ErrCameraInactive возвращается при передаче кадра в неактивную камеру.
var ErrCameraInactive = errors.New("camera is not active")

// PushCamera принимает содержимое, распознанное вне процесса
// (например, декодером в браузере консоли).
type PushCamera struct {
	mu       sync.Mutex
	onDecode func(string)
}

// NewPushCamera создаёт камеру, в которую кадры передаются через Push.
func NewPushCamera() *PushCamera {
	return &PushCamera{}
}

// Start запоминает обработчик кадров.
func (c *PushCamera) Start(_ context.Context, onDecode func(string), _ func(error)) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onDecode = onDecode
	return nil
}

// Stop отключает обработчик кадров.
func (c *PushCamera) Stop() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onDecode = nil
	return nil
}

// Push передаёт распознанное содержимое активному сеансу.
func (c *PushCamera) Push(payload string) error {
	c.mu.Lock()
	fn := c.onDecode
	c.mu.Unlock()

	if fn == nil {
		return ErrCameraInactive
	}
	fn(payload)
	return nil
}
