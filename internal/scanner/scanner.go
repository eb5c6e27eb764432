// Package scanner управляет сеансом камеры и извлекает коды доставки
// из распознанных кадров, а также принимает коды, введённые вручную.
package scanner

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/mmeshcher/livreur-console/internal/validation"
)

// ErrCameraUnavailable возвращается, если камеру не удалось захватить.
var ErrCameraUnavailable = errors.New("camera unavailable")

// Camera описывает источник распознанных кодов.
// Start захватывает камеру и вызывает onDecode для каждого распознанного кадра;
// Stop освобождает камеру.
type Camera interface {
	Start(ctx context.Context, onDecode func(payload string), onError func(err error)) error
	Stop() error
}

// State описывает состояние сеанса сканирования.
type State int

const (
	StateIdle State = iota
	StateStarting
	StateScanning
	StateMatched
	StateFailed
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateStarting:
		return "starting"
	case StateScanning:
		return "scanning"
	case StateMatched:
		return "matched"
	case StateFailed:
		return "failed"
	case StateClosed:
		return "closed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// MarshalText кодирует состояние строкой.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Scanner ведёт один сеанс сканирования за активацию.
type Scanner struct {
	mu        sync.Mutex
	camera    Camera
	state     State
	held      bool
	session   uint64
	cameraErr error
	ctx       context.Context
	onScan    ScanFunc
	onClose   func()
}

// ScanFunc получает код доставки. Ошибка возвращается вызывающему
// SubmitManual; для кодов с камеры она только сохраняется владельцем.
type ScanFunc func(ctx context.Context, code string) error

// New создаёт сканер. onScan получает каждый найденный или введённый код,
// onClose вызывается после явного закрытия.
func New(camera Camera, onScan ScanFunc, onClose func()) *Scanner {
	if onScan == nil {
		onScan = func(context.Context, string) error { return nil }
	}
	if onClose == nil {
		onClose = func() {}
	}
	return &Scanner{
		camera:  camera,
		onScan:  onScan,
		onClose: onClose,
	}
}

// State возвращает текущее состояние.
func (s *Scanner) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// CameraError возвращает причину, по которой камера недоступна, или nil.
func (s *Scanner) CameraError() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cameraErr
}

// Open запускает сеанс сканирования. Повторный вызов во время активного
// сеанса ничего не делает. Ошибка камеры переводит сканер в StateFailed,
// ручной ввод при этом остаётся доступен.
func (s *Scanner) Open(ctx context.Context) error {
	s.mu.Lock()
	if s.state == StateStarting || s.state == StateScanning {
		s.mu.Unlock()
		return nil
	}
	s.session++
	id := s.session
	s.state = StateStarting
	s.cameraErr = nil
	// Кадры приходят уже после возврата из Open, поэтому отмена ctx
	// не должна обрывать поиск заказа по найденному коду.
	s.ctx = context.WithoutCancel(ctx)
	s.mu.Unlock()

	if s.camera == nil {
		return s.fail(id, errors.New("no camera configured"))
	}

	err := s.camera.Start(ctx,
		func(payload string) { s.handleDecode(id, payload) },
		func(err error) { s.fail(id, err) },
	)
	if err != nil {
		return s.fail(id, err)
	}

	s.mu.Lock()
	if s.session != id || s.state != StateStarting {
		// Сеанс завершился, пока камера запускалась.
		s.mu.Unlock()
		_ = s.camera.Stop()
		return nil
	}
	s.held = true
	s.state = StateScanning
	s.mu.Unlock()

	return nil
}

func (s *Scanner) handleDecode(id uint64, payload string) {
	if strings.TrimSpace(payload) == "" {
		return
	}

	s.mu.Lock()
	if s.session != id || (s.state != StateScanning && s.state != StateStarting) {
		s.mu.Unlock()
		return
	}
	s.state = StateMatched
	ctx := s.ctx
	release := s.takeCameraLocked()
	s.mu.Unlock()

	if release {
		_ = s.camera.Stop()
	}
	_ = s.onScan(ctx, validation.ExtractDeliveryCode(payload))
}

func (s *Scanner) fail(id uint64, cause error) error {
	s.mu.Lock()
	if s.session != id || (s.state != StateScanning && s.state != StateStarting) {
		s.mu.Unlock()
		return nil
	}
	s.state = StateFailed
	s.cameraErr = fmt.Errorf("%w: %v", ErrCameraUnavailable, cause)
	err := s.cameraErr
	release := s.takeCameraLocked()
	s.mu.Unlock()

	if release {
		_ = s.camera.Stop()
	}
	return err
}

func (s *Scanner) takeCameraLocked() bool {
	release := s.held
	s.held = false
	return release
}

// SubmitManual нормализует введённый код и передаёт его в onScan.
// Работает в любом состоянии, в том числе после отказа камеры.
// Пустой ввод отклоняется до вызова onScan.
func (s *Scanner) SubmitManual(ctx context.Context, input string) (string, error) {
	code, err := validation.NormalizeManualCode(input)
	if err != nil {
		return "", err
	}
	return code, s.onScan(ctx, code)
}

// Close освобождает камеру и только затем вызывает onClose.
func (s *Scanner) Close() error {
	err := s.release(StateClosed)
	s.onClose()
	return err
}

// Release освобождает камеру без вызова onClose; используется при
// завершении работы владельца сканера.
func (s *Scanner) Release() error {
	return s.release(StateClosed)
}

func (s *Scanner) release(next State) error {
	s.mu.Lock()
	s.session++
	if s.state != StateIdle {
		s.state = next
	}
	release := s.takeCameraLocked()
	s.mu.Unlock()

	if release {
		if err := s.camera.Stop(); err != nil {
			return fmt.Errorf("stop camera: %w", err)
		}
	}
	return nil
}
