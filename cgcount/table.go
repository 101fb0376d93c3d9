// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package cgcount implements counter tables: per-key event count
// vectors accumulated from a cachegrind-style profile.
//
// A Table maps an instruction key, conventionally "file:function", to
// a vector with one count per declared event. All vectors in a Table
// have the same length as its event list.
package cgcount

import (
	"fmt"
	"sort"
)

// A Table accumulates event counts by instruction key.
//
// The zero Table is not usable; construct one with New.
type Table struct {
	events []string
	index  map[string]int
	counts map[string][]int64
}

// An UnknownEventError reports a lookup of an event that the table
// does not declare.
type UnknownEventError struct {
	Event  string
	Events []string
}

func (e *UnknownEventError) Error() string {
	return fmt.Sprintf("unknown event %q (have %v)", e.Event, e.Events)
}

// New returns an empty Table with the given event list.
func New(events []string) *Table {
	t := &Table{
		events: append([]string(nil), events...),
		index:  make(map[string]int, len(events)),
		counts: make(map[string][]int64),
	}
	for i, ev := range t.events {
		// The first declaration of a duplicated event wins.
		if _, ok := t.index[ev]; !ok {
			t.index[ev] = i
		}
	}
	return t
}

// Events returns the table's event list. The caller must not modify
// the result.
func (t *Table) Events() []string {
	return t.events
}

// EventIndex returns the position of event in the event list.
func (t *Table) EventIndex(event string) (int, error) {
	i, ok := t.index[event]
	if !ok {
		return -1, &UnknownEventError{event, t.events}
	}
	return i, nil
}

// Len returns the number of distinct keys in t.
func (t *Table) Len() int {
	return len(t.counts)
}

// Keys returns the keys of t in sorted order.
func (t *Table) Keys() []string {
	keys := make([]string, 0, len(t.counts))
	for k := range t.counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Has reports whether any counts were added for key.
func (t *Table) Has(key string) bool {
	_, ok := t.counts[key]
	return ok
}

// Counts returns a copy of the count vector for key, or nil if key is
// absent.
func (t *Table) Counts(key string) []int64 {
	c, ok := t.counts[key]
	if !ok {
		return nil
	}
	return append([]int64(nil), c...)
}

// Add accumulates counts into the vector for key.
//
// len(counts) must equal the number of events; Add panics otherwise.
func (t *Table) Add(key string, counts []int64) {
	if len(counts) != len(t.events) {
		panic(fmt.Sprintf("cgcount: %d counts for %d events", len(counts), len(t.events)))
	}
	have, ok := t.counts[key]
	if !ok {
		t.counts[key] = append([]int64(nil), counts...)
		return
	}
	for i, c := range counts {
		have[i] += c
	}
}

// Count returns the count of event for key, or 0 if key is absent.
func (t *Table) Count(key, event string) (int64, error) {
	i, err := t.EventIndex(event)
	if err != nil {
		return 0, err
	}
	if c, ok := t.counts[key]; ok {
		return c[i], nil
	}
	return 0, nil
}

// Aggregate returns the element-wise sum of all count vectors. The
// result always has one entry per event.
func (t *Table) Aggregate() []int64 {
	sum := make([]int64, len(t.events))
	for _, c := range t.counts {
		for i, v := range c {
			sum[i] += v
		}
	}
	return sum
}

// AggregateByEvent returns the total count of event over all keys.
func (t *Table) AggregateByEvent(event string) (int64, error) {
	i, err := t.EventIndex(event)
	if err != nil {
		return 0, err
	}
	return t.AggregateByIndex(i), nil
}

// AggregateByIndex returns the total count of the i'th event over all
// keys.
func (t *Table) AggregateByIndex(i int) int64 {
	var sum int64
	for _, c := range t.counts {
		sum += c[i]
	}
	return sum
}
