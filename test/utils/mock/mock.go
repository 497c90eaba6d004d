/*
 * Copyright 2020 Guardtime, Inc.
 *
 * This file is part of the Guardtime client SDK.
 *
 * Licensed under the Apache License, Version 2.0 (the "License").
 * You may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *     http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES, CONDITIONS, OR OTHER LICENSES OF ANY KIND, either
 * express or implied. See the License for the specific language governing
 * permissions and limitations under the License.
 * "Guardtime" and "KSI" are trademarks or registered trademarks of
 * Guardtime, Inc., and no license to trademarks is granted; Guardtime
 * reserves and retains all trademark rights.
 */

// Package mock implements verification collaborators for tests.
package mock

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/guardtime/ksicore/log"
	"github.com/guardtime/ksicore/pdu"
	"github.com/guardtime/ksicore/publications"
)

// CalendarFunc builds the calendar hash chain returned by the Extender.
type CalendarFunc func(from, to time.Time) (*pdu.CalendarChain, error)

// Extender implements verify.(Extender) interface.
// Counts the requests and records the requested calendar root times.
type Extender struct {
	count uint64

	mu   sync.Mutex
	reqs []time.Time
	fn   CalendarFunc
	err  error
}

// NewExtender returns an extender responding with the chain built by fn.
func NewExtender(fn CalendarFunc) *Extender {
	return &Extender{fn: fn}
}

// NewFailingExtender returns an extender that always responds with err.
func NewFailingExtender(err error) *Extender {
	return &Extender{err: err}
}

func (e *Extender) ReceiveCalendar(from, to time.Time) (*pdu.CalendarChain, error) {
	atomic.AddUint64(&e.count, 1)
	e.mu.Lock()
	e.reqs = append(e.reqs, to)
	e.mu.Unlock()

	log.Debug("Mock extender request: ", from.Unix(), " -> ", to.Unix())
	if e.err != nil {
		return nil, e.err
	}
	if e.fn == nil {
		return nil, nil
	}
	return e.fn(from, to)
}

// RequestCount returns the number of received requests.
func (e *Extender) RequestCount() uint64 { return atomic.LoadUint64(&e.count) }

// Requests returns the requested calendar root times, in request order.
func (e *Extender) Requests() []time.Time {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]time.Time(nil), e.reqs...)
}

// PublicationsFileProvider implements verify.(PublicationsFileProvider) interface.
// Returns the given file or error, and counts the requests.
type PublicationsFileProvider struct {
	count uint64
	file  *publications.File
	err   error
}

// NewPublicationsFileProvider returns a provider responding with f.
func NewPublicationsFileProvider(f *publications.File) *PublicationsFileProvider {
	return &PublicationsFileProvider{file: f}
}

// NewFailingPublicationsFileProvider returns a provider that always responds with err.
func NewFailingPublicationsFileProvider(err error) *PublicationsFileProvider {
	return &PublicationsFileProvider{err: err}
}

func (p *PublicationsFileProvider) ReceiveFile() (*publications.File, error) {
	atomic.AddUint64(&p.count, 1)
	if p.err != nil {
		return nil, p.err
	}
	return p.file, nil
}

// RequestCount returns the number of received requests.
func (p *PublicationsFileProvider) RequestCount() uint64 { return atomic.LoadUint64(&p.count) }
