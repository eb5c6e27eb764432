// Package theme хранит выбранную палитру и признак тёмного режима.
package theme

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"sync"

	"github.com/mmeshcher/livreur-console/internal/model"
	"github.com/mmeshcher/livreur-console/internal/storage"
)

// DefaultPalette используется, пока пользователь не выбрал палитру.
const DefaultPalette = "purple"

// ErrUnknownPalette возвращается при выборе палитры, которой нет в таблице.
var ErrUnknownPalette = errors.New("unknown palette")

// Colors описывает набор цветов палитры.
type Colors struct {
	Primary    string `json:"primary"`
	Secondary  string `json:"secondary"`
	Accent     string `json:"accent"`
	Background string `json:"background"`
	Surface    string `json:"surface"`
	Text       string `json:"text"`
	TextMuted  string `json:"textMuted"`
	Border     string `json:"border"`
}

// Palettes содержит именованные палитры.
var Palettes = map[string]Colors{
	"purple": {
		Primary: "#7C3AED", Secondary: "#A78BFA", Accent: "#F59E0B",
		Background: "#FFFFFF", Surface: "#F5F3FF", Text: "#1F2937", TextMuted: "#6B7280", Border: "#E5E7EB",
	},
	"blue": {
		Primary: "#2563EB", Secondary: "#60A5FA", Accent: "#F97316",
		Background: "#FFFFFF", Surface: "#EFF6FF", Text: "#1F2937", TextMuted: "#6B7280", Border: "#E5E7EB",
	},
	"green": {
		Primary: "#059669", Secondary: "#34D399", Accent: "#F59E0B",
		Background: "#FFFFFF", Surface: "#ECFDF5", Text: "#1F2937", TextMuted: "#6B7280", Border: "#E5E7EB",
	},
	"orange": {
		Primary: "#EA580C", Secondary: "#FB923C", Accent: "#0EA5E9",
		Background: "#FFFFFF", Surface: "#FFF7ED", Text: "#1F2937", TextMuted: "#6B7280", Border: "#E5E7EB",
	},
	"pink": {
		Primary: "#DB2777", Secondary: "#F472B6", Accent: "#8B5CF6",
		Background: "#FFFFFF", Surface: "#FDF2F8", Text: "#1F2937", TextMuted: "#6B7280", Border: "#E5E7EB",
	},
}

// DarkPalette заменяет именованную палитру в тёмном режиме.
var DarkPalette = Colors{
	Primary: "#A78BFA", Secondary: "#7C3AED", Accent: "#FBBF24",
	Background: "#111827", Surface: "#1F2937", Text: "#F9FAFB", TextMuted: "#9CA3AF", Border: "#374151",
}

// PaletteNames возвращает имена палитр в алфавитном порядке.
func PaletteNames() []string {
	names := make([]string, 0, len(Palettes))
	for name := range Palettes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Applier применяет вычисленные цвета к слою отображения.
type Applier interface {
	Apply(colors Colors, dark bool)
}

// Store хранит выбор темы, сохраняет его и применяет цвета при каждом изменении.
type Store struct {
	mu      sync.RWMutex
	palette string
	dark    bool
	kv      storage.Store
	applier Applier
}

// NewStore создаёт хранилище темы со значениями по умолчанию.
func NewStore(kv storage.Store, applier Applier) *Store {
	return &Store{
		palette: DefaultPalette,
		kv:      kv,
		applier: applier,
	}
}

// Load читает сохранённый выбор и применяет его.
// Неизвестная сохранённая палитра заменяется палитрой по умолчанию.
func (s *Store) Load(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	name, ok, err := s.kv.Get(ctx, storage.KeyTheme)
	if err != nil {
		return fmt.Errorf("read theme: %w", err)
	}
	if ok {
		if _, known := Palettes[name]; known {
			s.palette = name
		}
	}

	dark, ok, err := s.kv.Get(ctx, storage.KeyDarkMode)
	if err != nil {
		return fmt.Errorf("read dark mode: %w", err)
	}
	if ok {
		s.dark, _ = strconv.ParseBool(dark)
	}

	s.applyLocked()
	return nil
}

// Selection возвращает текущий выбор.
func (s *Store) Selection() model.ThemeSelection {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return model.ThemeSelection{Palette: s.palette, Dark: s.dark}
}

// ActiveColors возвращает действующие цвета: в тёмном режиме это всегда DarkPalette.
func (s *Store) ActiveColors() Colors {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.activeLocked()
}

// ChangeTheme выбирает именованную палитру. Выбор меняется и применяется
// только после успешного сохранения.
func (s *Store) ChangeTheme(ctx context.Context, name string) error {
	if _, ok := Palettes[name]; !ok {
		return fmt.Errorf("%w: %s", ErrUnknownPalette, name)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.kv.Set(ctx, storage.KeyTheme, name); err != nil {
		return fmt.Errorf("save theme: %w", err)
	}
	s.palette = name
	s.applyLocked()
	return nil
}

// ToggleDarkMode переключает тёмный режим и возвращает действующее значение.
// При ошибке сохранения режим не меняется.
func (s *Store) ToggleDarkMode(ctx context.Context) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := !s.dark
	if err := s.kv.Set(ctx, storage.KeyDarkMode, strconv.FormatBool(next)); err != nil {
		return s.dark, fmt.Errorf("save dark mode: %w", err)
	}
	s.dark = next
	s.applyLocked()
	return s.dark, nil
}

func (s *Store) activeLocked() Colors {
	if s.dark {
		return DarkPalette
	}
	return Palettes[s.palette]
}

func (s *Store) applyLocked() {
	if s.applier != nil {
		s.applier.Apply(s.activeLocked(), s.dark)
	}
}
