// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package viewstate_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/mangashelf/internal/viewstate"
)

type recordingView struct {
	shown []viewstate.State
	log   *[]string
}

func (view *recordingView) Show(state viewstate.State) {
	view.shown = append(view.shown, state)
	*view.log = append(*view.log, "show:"+string(state))
}

func newMachine(t *testing.T) (*viewstate.Machine, *viewstate.MemoryHistory, *[]string) {
	t.Helper()

	log := &[]string{}
	history := viewstate.NewMemoryHistory("")
	hooks := func(state viewstate.State) viewstate.Option {
		return viewstate.WithHooks(state, viewstate.Hooks{
			Enter: func(_ context.Context, position viewstate.Position) {
				*log = append(*log, "enter:"+string(state)+position.Encode())
			},
			Exit: func(context.Context) { *log = append(*log, "exit:"+string(state)) },
		})
	}

	machine := viewstate.New(&recordingView{log: log}, history,
		hooks(viewstate.StateHome),
		hooks(viewstate.StateChapterList),
		hooks(viewstate.StateReader),
	)
	return machine, history, log
}

/*
TestTransitions verifies the full transition table, including ignored events.
*/
func TestTransitions(t *testing.T) {
	tests := []struct {
		from  viewstate.State
		event viewstate.Event
		want  viewstate.State
		ok    bool
	}{
		{viewstate.StateHome, viewstate.EventOpenSeries, viewstate.StateChapterList, true},
		{viewstate.StateHome, viewstate.EventOpenChapter, "", false},
		{viewstate.StateHome, viewstate.EventGoHome, "", false},
		{viewstate.StateChapterList, viewstate.EventOpenChapter, viewstate.StateReader, true},
		{viewstate.StateChapterList, viewstate.EventGoHome, viewstate.StateHome, true},
		{viewstate.StateChapterList, viewstate.EventGoChapters, "", false},
		{viewstate.StateReader, viewstate.EventGoChapters, viewstate.StateChapterList, true},
		{viewstate.StateReader, viewstate.EventGoHome, viewstate.StateHome, true},
		{viewstate.StateReader, viewstate.EventOpenChapter, viewstate.StateReader, true},
		{viewstate.StateReader, viewstate.EventOpenSeries, "", false},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"/"+string(tt.event), func(t *testing.T) {
			got, ok := viewstate.Next(tt.from, tt.event)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

/*
TestMachine_SendOrder verifies exit, view swap, history push and enter run in order.
*/
func TestMachine_SendOrder(t *testing.T) {
	machine, history, log := newMachine(t)
	ctx := context.Background()

	require.True(t, machine.Send(ctx, viewstate.EventOpenSeries, viewstate.Position{SeriesID: "foo"}))
	require.True(t, machine.Send(ctx, viewstate.EventOpenChapter, viewstate.Position{SeriesID: "foo", ChapterID: "3"}))

	assert.Equal(t, []string{
		"exit:home", "show:chapter-list", "enter:chapter-list?series=foo",
		"exit:chapter-list", "show:reader", "enter:reader?series=foo&ch=3",
	}, *log)
	assert.Equal(t, viewstate.StateReader, machine.Current())
	assert.Equal(t, 3, history.Len())
	assert.Equal(t, "?series=foo&ch=3", history.Current().Query)
}

/*
TestMachine_IgnoredEvent verifies an undefined event changes nothing.
*/
func TestMachine_IgnoredEvent(t *testing.T) {
	machine, history, log := newMachine(t)

	assert.False(t, machine.Send(context.Background(), viewstate.EventGoChapters, viewstate.Position{}))
	assert.Equal(t, viewstate.StateHome, machine.Current())
	assert.Empty(t, *log)
	assert.Equal(t, 1, history.Len())
}

/*
TestMachine_SyncFromURL verifies the state derived from each query shape.
*/
func TestMachine_SyncFromURL(t *testing.T) {
	tests := []struct {
		name  string
		query string
		want  viewstate.State
		pos   viewstate.Position
	}{
		{"Reader", "?series=foo&ch=3", viewstate.StateReader, viewstate.Position{SeriesID: "foo", ChapterID: "3"}},
		{"ReaderReordered", "ch=3&series=foo", viewstate.StateReader, viewstate.Position{SeriesID: "foo", ChapterID: "3"}},
		{"ChapterList", "?series=foo", viewstate.StateChapterList, viewstate.Position{SeriesID: "foo"}},
		{"ChapterOnly", "?ch=3", viewstate.StateHome, viewstate.Position{}},
		{"Empty", "", viewstate.StateHome, viewstate.Position{}},
		{"Malformed", "?series=%zz", viewstate.StateHome, viewstate.Position{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			machine, history, _ := newMachine(t)

			assert.Equal(t, tt.want, machine.SyncFromURL(context.Background(), tt.query))
			assert.Equal(t, tt.want, machine.Current())
			assert.Equal(t, tt.pos, machine.Position())
			assert.Equal(t, 1, history.Len(), "sync never pushes history")
		})
	}
}

/*
TestMachine_BackForward verifies history navigation resynchronizes without pushing.
*/
func TestMachine_BackForward(t *testing.T) {
	machine, history, _ := newMachine(t)
	ctx := context.Background()

	machine.Send(ctx, viewstate.EventOpenSeries, viewstate.Position{SeriesID: "foo"})
	machine.Send(ctx, viewstate.EventOpenChapter, viewstate.Position{SeriesID: "foo", ChapterID: "3"})

	require.True(t, machine.Back(ctx))
	assert.Equal(t, viewstate.StateChapterList, machine.Current())
	require.True(t, machine.Back(ctx))
	assert.Equal(t, viewstate.StateHome, machine.Current())
	assert.False(t, machine.Back(ctx))

	require.True(t, machine.Forward(ctx))
	assert.Equal(t, viewstate.StateChapterList, machine.Current())
	assert.Equal(t, 3, history.Len())

	// A new navigation drops the forward entries.
	machine.Send(ctx, viewstate.EventGoHome, viewstate.Position{})
	assert.Equal(t, 3, history.Len())
	assert.False(t, machine.Forward(ctx))
}

/*
TestMachine_GoToUnknown verifies unknown target states are rejected.
*/
func TestMachine_GoToUnknown(t *testing.T) {
	machine, _, log := newMachine(t)

	assert.False(t, machine.GoTo(context.Background(), "settings", viewstate.Position{}))
	assert.Equal(t, viewstate.StateHome, machine.Current())
	assert.Empty(t, *log)
}
