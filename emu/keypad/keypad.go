// Package keypad holds the state of the 16 key hex keypad.
package keypad

import (
	"sync"
	"time"
	"unicode"
)

// Size is the number of keys on the keypad.
const Size = 16

// State is written by the host input layer and read by the executor.
type State struct {
	mu   sync.RWMutex
	keys [Size]bool
}

func New() *State {
	return &State{}
}

// Set records a key transition. Indexes outside the keypad are ignored.
func (s *State) Set(key int, pressed bool) {
	if key < 0 || key >= Size {
		return
	}
	s.mu.Lock()
	s.keys[key] = pressed
	s.mu.Unlock()
}

// Pressed reports whether the key is held. Only the low nibble of key
// is used, matching the 16 entry keypad.
func (s *State) Pressed(key uint8) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.keys[key&0xF]
}

func (s *State) Snapshot() [Size]bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.keys
}

// Reset releases all keys.
func (s *State) Reset() {
	s.mu.Lock()
	s.keys = [Size]bool{}
	s.mu.Unlock()
}

// layout maps the left hand block of a QWERTY keyboard onto the COSMAC
// VIP keypad:
//
//	1 2 3 4    1 2 3 C
//	Q W E R    4 5 6 D
//	A S D F    7 8 9 E
//	Z X C V    A 0 B F
var layout = map[rune]uint8{
	'1': 0x1, '2': 0x2, '3': 0x3, '4': 0xC,
	'q': 0x4, 'w': 0x5, 'e': 0x6, 'r': 0xD,
	'a': 0x7, 's': 0x8, 'd': 0x9, 'f': 0xE,
	'z': 0xA, 'x': 0x0, 'c': 0xB, 'v': 0xF,
}

// Lookup returns the keypad index for a host keyboard character.
func Lookup(r rune) (uint8, bool) {
	key, ok := layout[unicode.ToLower(r)]
	return key, ok
}

// Hold keeps keys pressed for a fixed duration after each press, for
// hosts that report key presses but no releases. It is used from a
// single goroutine.
type Hold struct {
	state     *State
	duration  time.Duration
	deadlines [Size]time.Time
}

func NewHold(state *State, duration time.Duration) *Hold {
	return &Hold{state: state, duration: duration}
}

// Press presses the key and extends its deadline.
func (h *Hold) Press(key uint8, now time.Time) {
	key &= 0xF
	h.state.Set(int(key), true)
	h.deadlines[key] = now.Add(h.duration)
}

// Expire releases every key whose deadline has passed.
func (h *Hold) Expire(now time.Time) {
	for key, deadline := range h.deadlines {
		if deadline.IsZero() || now.Before(deadline) {
			continue
		}
		h.state.Set(key, false)
		h.deadlines[key] = time.Time{}
	}
}
