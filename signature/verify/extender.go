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

// Package verify holds the collaborator interfaces used by the signature verification rules.
package verify

import (
	"time"

	"github.com/guardtime/ksicore/pdu"
	"github.com/guardtime/ksicore/publications"
)

// Extender delivers calendar hash chains that connect an aggregation round to a later calendar root.
type Extender interface {
	// ReceiveCalendar returns a calendar hash chain starting from the aggregation round at from and ending at the
	// calendar root of to. A zero to requests the chain to the most recent calendar root.
	ReceiveCalendar(from, to time.Time) (*pdu.CalendarChain, error)
}

// PublicationsFileProvider delivers the trusted publications file.
type PublicationsFileProvider interface {
	// ReceiveFile returns a publications file which has already been verified by the provider.
	ReceiveFile() (*publications.File, error)
}

// ExtenderFunc adapts an ordinary function to the Extender interface.
type ExtenderFunc func(from, to time.Time) (*pdu.CalendarChain, error)

// ReceiveCalendar implements Extender.
func (f ExtenderFunc) ReceiveCalendar(from, to time.Time) (*pdu.CalendarChain, error) {
	return f(from, to)
}
