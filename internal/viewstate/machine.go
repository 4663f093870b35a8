// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package viewstate drives navigation between the home, chapter-list and reader
views and keeps it in step with a URL query string.

Callers send intent events (OPEN_SERIES, OPEN_CHAPTER, GO_CHAPTERS, GO_HOME)
instead of naming target views. The query string is the source of truth for
the position: [Machine.SyncFromURL] rebuilds the state from it on start and on
every back or forward navigation.
*/
package viewstate

import (
	"context"
	"log/slog"
)

// # States and Events

// State is a top-level view.
type State string

const (
	StateHome        State = "home"
	StateChapterList State = "chapter-list"
	StateReader      State = "reader"
)

// Event is a navigation intent.
type Event string

const (
	EventOpenSeries  Event = "OPEN_SERIES"
	EventOpenChapter Event = "OPEN_CHAPTER"
	EventGoChapters  Event = "GO_CHAPTERS"
	EventGoHome      Event = "GO_HOME"
)

var transitions = map[State]map[Event]State{
	StateHome: {
		EventOpenSeries: StateChapterList,
	},
	StateChapterList: {
		EventOpenChapter: StateReader,
		EventGoHome:      StateHome,
	},
	StateReader: {
		EventGoChapters:  StateChapterList,
		EventGoHome:      StateHome,
		EventOpenChapter: StateReader,
	},
}

// Next returns the target of event from state.
func Next(state State, event Event) (State, bool) {
	target, ok := transitions[state][event]
	return target, ok
}

// Valid reports whether state is a known view.
func Valid(state State) bool {
	_, ok := transitions[state]
	return ok
}

// # Collaborators

// View shows exactly one section.
type View interface {
	Show(state State)
}

// Hooks run when a state is entered or left.
type Hooks struct {
	Enter func(context context.Context, position Position)
	Exit  func(context context.Context)
}

// # Machine

// Machine is the navigation state machine. It is not safe for concurrent use
// and hooks must not call back into the machine synchronously.
type Machine struct {
	current  State
	position Position
	hooks    map[State]Hooks
	view     View
	history  History
	logger   *slog.Logger
}

// Option customizes a [Machine].
type Option func(*Machine)

// WithHooks registers the enter and exit hooks of state.
func WithHooks(state State, hooks Hooks) Option {
	return func(machine *Machine) { machine.hooks[state] = hooks }
}

// WithLogger sets the logger used for ignored events.
func WithLogger(logger *slog.Logger) Option {
	return func(machine *Machine) { machine.logger = logger }
}

// New builds a machine at home. view and history may be nil.
func New(view View, history History, opts ...Option) *Machine {
	machine := &Machine{
		current: StateHome,
		hooks:   map[State]Hooks{},
		view:    view,
		history: history,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(machine)
	}
	return machine
}

// Current returns the active state.
func (machine *Machine) Current() State { return machine.current }

// Position returns the position of the active state.
func (machine *Machine) Position() Position { return machine.position }

/*
Send applies an event.

Description: An event with no transition from the current state is logged
and ignored. Otherwise the transition runs and a history entry is pushed.

Returns:
  - bool: Whether a transition happened
*/
func (machine *Machine) Send(context context.Context, event Event, position Position) bool {
	target, ok := Next(machine.current, event)
	if !ok {
		machine.logger.WarnContext(context, "view_transition_ignored",
			slog.String("event", string(event)),
			slog.String("state", string(machine.current)),
		)
		return false
	}

	machine.transition(context, target, position, true)
	return true
}

// GoTo moves to state without pushing history. Unknown states are ignored.
func (machine *Machine) GoTo(context context.Context, state State, position Position) bool {
	if !Valid(state) {
		machine.logger.WarnContext(context, "view_unknown", slog.String("state", string(state)))
		return false
	}

	machine.transition(context, state, position, false)
	return true
}

// SyncFromURL rebuilds the state from a query string without pushing history.
// A malformed query is treated as empty.
func (machine *Machine) SyncFromURL(context context.Context, query string) State {
	position, err := Parse(query)
	if err != nil {
		machine.logger.DebugContext(context, "view_query_malformed", slog.String("error", err.Error()))
	}

	state := position.State()
	machine.GoTo(context, state, position.Trim(state))
	return state
}

// Back navigates one history entry back and resynchronizes from its URL.
func (machine *Machine) Back(context context.Context) bool {
	navigator, ok := machine.history.(Navigator)
	if !ok {
		return false
	}
	entry, ok := navigator.Back()
	if !ok {
		return false
	}
	machine.SyncFromURL(context, entry.Query)
	return true
}

// Forward navigates one history entry forward and resynchronizes from its URL.
func (machine *Machine) Forward(context context.Context) bool {
	navigator, ok := machine.history.(Navigator)
	if !ok {
		return false
	}
	entry, ok := navigator.Forward()
	if !ok {
		return false
	}
	machine.SyncFromURL(context, entry.Query)
	return true
}

// transition runs exit, view swap, state change, history push and enter in order.
func (machine *Machine) transition(context context.Context, target State, position Position, push bool) {
	if exit := machine.hooks[machine.current].Exit; exit != nil {
		exit(context)
	}

	if machine.view != nil {
		machine.view.Show(target)
	}

	machine.current = target
	machine.position = position

	if push && machine.history != nil {
		machine.history.Push(Entry{State: target, Position: position, Query: position.Encode()})
	}

	if enter := machine.hooks[target].Enter; enter != nil {
		enter(context, position)
	}
}
