package state

import (
	"errors"
	"fmt"
	"sync"
)

// ErrTransitionNotAllowed is returned when a state transition is not allowed.
var ErrTransitionNotAllowed = errors.New("state transition not allowed")

// Hook 在进入或离开某个状态时调用
type Hook[S comparable] func(from, to S)

// Machine 是有限状态机：只允许显式注册过的状态转换
type Machine[S comparable] struct {
	current     S
	transitions map[S]map[S]func() bool // fromState -> toState -> condition
	onEnter     map[S][]Hook[S]
	onExit      map[S][]Hook[S]
	mutex       sync.RWMutex
}

func NewMachine[S comparable](initial S) *Machine[S] {
	return &Machine[S]{
		current:     initial,
		transitions: make(map[S]map[S]func() bool),
		onEnter:     make(map[S][]Hook[S]),
		onExit:      make(map[S][]Hook[S]),
	}
}

// Allow registers from -> to. A nil condition always passes.
func (m *Machine[S]) Allow(from, to S, condition func() bool) *Machine[S] {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if _, exists := m.transitions[from]; !exists {
		m.transitions[from] = make(map[S]func() bool)
	}
	m.transitions[from][to] = condition
	return m
}

func (m *Machine[S]) OnEnter(s S, hook Hook[S]) *Machine[S] {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.onEnter[s] = append(m.onEnter[s], hook)
	return m
}

func (m *Machine[S]) OnExit(s S, hook Hook[S]) *Machine[S] {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.onExit[s] = append(m.onExit[s], hook)
	return m
}

// CanTransition reports whether a transition to `to` would be accepted now.
func (m *Machine[S]) CanTransition(to S) bool {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return m.allowed(to)
}

func (m *Machine[S]) allowed(to S) bool {
	conditions, exists := m.transitions[m.current]
	if !exists {
		return false
	}
	condition, exists := conditions[to]
	if !exists {
		return false
	}
	return condition == nil || condition()
}

// Transition moves the machine to `to`, running exit hooks of the old state
// and enter hooks of the new one. Hooks run without the lock held.
func (m *Machine[S]) Transition(to S) error {
	m.mutex.Lock()
	from := m.current
	if !m.allowed(to) {
		m.mutex.Unlock()
		return fmt.Errorf("%w: %v -> %v", ErrTransitionNotAllowed, from, to)
	}
	m.current = to
	exit := append([]Hook[S](nil), m.onExit[from]...)
	enter := append([]Hook[S](nil), m.onEnter[to]...)
	m.mutex.Unlock()

	for _, h := range exit {
		h(from, to)
	}
	for _, h := range enter {
		h(from, to)
	}
	return nil
}

func (m *Machine[S]) Current() S {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return m.current
}

// Is reports whether the machine is in any of the given states.
func (m *Machine[S]) Is(states ...S) bool {
	cur := m.Current()
	for _, s := range states {
		if s == cur {
			return true
		}
	}
	return false
}
