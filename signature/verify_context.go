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

package signature

import (
	"sync"
	"time"

	"github.com/guardtime/ksicore/errors"
	"github.com/guardtime/ksicore/hash"
	"github.com/guardtime/ksicore/log"
	"github.com/guardtime/ksicore/pdu"
	"github.com/guardtime/ksicore/publications"
	"github.com/guardtime/ksicore/signature/verify"
)

type calendarResult struct {
	chain *pdu.CalendarChain
	err   error
}

// verificationTemp holds the values computed or fetched while the rules are run. A memoised failure is reported
// again on every request.
type verificationTemp struct {
	sync.Mutex

	aggrOutput    *pdu.ChainResult
	aggrOutputErr error

	pubFileDone bool
	pubFile     *publications.File
	pubFileErr  error

	// Extended calendar hash chains by the requested calendar root time (Unix), 0 for the calendar head.
	calendars map[int64]calendarResult
}

func newVerificationTemp() *verificationTemp {
	return &verificationTemp{calendars: make(map[int64]calendarResult)}
}

// VerificationContext is a set of KSI signature verification parameters. The context is read-only for the rules
// and may be shared between goroutines.
type VerificationContext struct {
	/*
	   User input.
	*/
	// Signature being verified.
	signature *Signature
	// Document hash to be verified.
	documentHash hash.DataHash
	// Initial aggregation level.
	inputHashLvl byte
	// Indicates whether signature extension is allowed.
	extendingPerm bool
	// The extender used for receiving calendar hash chains.
	extender verify.Extender
	// Provider for downloading the publications file.
	pubFileProvider verify.PublicationsFileProvider
	// Publications file to be used. Takes precedence over the provider.
	pubFile *publications.File
	// Publication to be used.
	userPublication *pdu.PublicationData

	/*
		Verification runtime temporary data.
	*/
	temp *verificationTemp
}

// NewVerificationContext returns new VerificationContext instance, or error in case any input parameters are not valid.
// Optionally, additional data can be added for using while verification process via parameter opts.
func NewVerificationContext(sig *Signature, opts ...VerCtxOption) (*VerificationContext, error) {
	if sig == nil {
		return nil, errors.New(errors.KsiInvalidArgumentError)
	}

	tmp := context{obj: VerificationContext{
		signature: sig,
		temp:      newVerificationTemp(),
	}}
	for _, optSetter := range opts {
		if optSetter == nil {
			return nil, errors.New(errors.KsiInvalidArgumentError).AppendMessage("Provided option is nil.")
		}
		if err := optSetter(&tmp); err != nil {
			return nil, errors.KsiErr(err).AppendMessage("Unable to setup verification context.")
		}
	}
	return &tmp.obj, nil
}

// VerCtxOption is verification context option to be used when initializing VerificationContext.
type VerCtxOption func(*context) error
type context struct {
	obj VerificationContext
}

// VerCtxOptDocumentHash is for setting document hash for verification process.
func VerCtxOptDocumentHash(h hash.DataHash) VerCtxOption {
	return func(c *context) error {
		if h.IsZero() {
			return errors.New(errors.KsiInvalidArgumentError)
		}
		if c == nil {
			return errors.New(errors.KsiInvalidArgumentError).AppendMessage("Missing verification context base object.")
		}
		c.obj.documentHash = h
		return nil
	}
}

// VerCtxOptInputHashLevel is for setting data hash input level.
// See also VerCtxOptDocumentHash() for setting document hash.
func VerCtxOptInputHashLevel(level byte) VerCtxOption {
	return func(c *context) error {
		if c == nil {
			return errors.New(errors.KsiInvalidArgumentError).AppendMessage("Missing verification context base object.")
		}
		c.obj.inputHashLvl = level
		return nil
	}
}

// VerCtxOptExtendingPermitted option provides the ability to enable verification procedure based on signature extending.
func VerCtxOptExtendingPermitted(b bool) VerCtxOption {
	return func(c *context) error {
		if c == nil {
			return errors.New(errors.KsiInvalidArgumentError).AppendMessage("Missing verification context base object.")
		}
		c.obj.extendingPerm = b
		return nil
	}
}

// VerCtxOptExtender option specifies the extender to be used in verification process.
// See VerCtxOptExtendingPermitted() for enabling the use of the extender.
func VerCtxOptExtender(e verify.Extender) VerCtxOption {
	return func(c *context) error {
		if e == nil {
			return errors.New(errors.KsiInvalidArgumentError)
		}
		if c == nil {
			return errors.New(errors.KsiInvalidArgumentError).AppendMessage("Missing verification context base object.")
		}
		c.obj.extender = e
		return nil
	}
}

// VerCtxOptPublicationsFileProvider option specifies the publications file provider (eg. publications.FileHandler).
func VerCtxOptPublicationsFileProvider(p verify.PublicationsFileProvider) VerCtxOption {
	return func(c *context) error {
		if p == nil {
			return errors.New(errors.KsiInvalidArgumentError)
		}
		if c == nil {
			return errors.New(errors.KsiInvalidArgumentError).AppendMessage("Missing verification context base object.")
		}
		c.obj.pubFileProvider = p
		return nil
	}
}

// VerCtxOptUserPublication options enables verification process to be performed base on the provided publication.
func VerCtxOptUserPublication(pub *pdu.PublicationData) VerCtxOption {
	return func(c *context) error {
		if pub == nil {
			return errors.New(errors.KsiInvalidArgumentError)
		}
		if c == nil {
			return errors.New(errors.KsiInvalidArgumentError).AppendMessage("Missing verification context base object.")
		}
		c.obj.userPublication = pub
		return nil
	}
}

// VerCtxOptPublicationsFile options enables verification process to be performed base on the provided publications file.
// The file is considered trusted. If set, the VerCtxOptPublicationsFileProvider() option will be ignored.
func VerCtxOptPublicationsFile(pubFile *publications.File) VerCtxOption {
	return func(c *context) error {
		if pubFile == nil {
			return errors.New(errors.KsiInvalidArgumentError)
		}
		if c == nil {
			return errors.New(errors.KsiInvalidArgumentError).AppendMessage("Missing verification context base object.")
		}
		c.obj.pubFile = pubFile
		return nil
	}
}

// Signature returns the signature being verified.
func (c *VerificationContext) Signature() *Signature {
	if c == nil {
		return nil
	}
	return c.signature
}

// DocumentHash returns the document hash to be verified, or zero value if not set.
func (c *VerificationContext) DocumentHash() hash.DataHash {
	if c == nil {
		return hash.DataHash{}
	}
	return c.documentHash
}

// InputHashLevel returns the initial aggregation level.
func (c *VerificationContext) InputHashLevel() byte {
	if c == nil {
		return 0
	}
	return c.inputHashLvl
}

// ExtendingPermitted reports whether the rules may request calendar hash chains from the extender.
func (c *VerificationContext) ExtendingPermitted() bool {
	return c != nil && c.extendingPerm
}

// UserPublication returns the user provided publication, or nil if not set.
func (c *VerificationContext) UserPublication() *pdu.PublicationData {
	if c == nil {
		return nil
	}
	return c.userPublication
}

// aggregationOutput returns the root of the aggregation tree, computed from the signature input hash at the
// initial aggregation level.
func (c *VerificationContext) aggregationOutput() (pdu.ChainResult, error) {
	c.temp.Lock()
	defer c.temp.Unlock()

	if c.temp.aggrOutput == nil && c.temp.aggrOutputErr == nil {
		res, err := c.signature.AggregationOutput(c.inputHashLvl)
		if err != nil {
			c.temp.aggrOutputErr = err
		} else {
			c.temp.aggrOutput = &res
		}
	}
	if c.temp.aggrOutputErr != nil {
		return pdu.ChainResult{}, c.temp.aggrOutputErr
	}
	return *c.temp.aggrOutput, nil
}

// publicationsFile returns the publications file. The static file takes precedence over the provider, which is
// consulted at most once per context.
func (c *VerificationContext) publicationsFile() (*publications.File, error) {
	if c.pubFile != nil {
		return c.pubFile, nil
	}

	c.temp.Lock()
	defer c.temp.Unlock()

	if !c.temp.pubFileDone {
		c.temp.pubFileDone = true
		if c.pubFileProvider == nil {
			c.temp.pubFileErr = errors.New(errors.KsiInvalidStateError).
				AppendMessage("Publications file is not available.")
		} else {
			log.Debug("Requesting publications file.")
			f, err := c.pubFileProvider.ReceiveFile()
			switch {
			case err != nil:
				c.temp.pubFileErr = errors.KsiErr(err).AppendMessage("Failed to receive publications file.")
			case f == nil:
				c.temp.pubFileErr = errors.New(errors.KsiInvalidStateError).
					AppendMessage("Publications file provider returned no file.")
			default:
				c.temp.pubFile = f
			}
		}
	}
	return c.temp.pubFile, c.temp.pubFileErr
}

// extendedCalendar returns the calendar hash chain from the signature aggregation time to the calendar root of
// the given time. A zero to requests the chain to the calendar head.
func (c *VerificationContext) extendedCalendar(to time.Time) (*pdu.CalendarChain, error) {
	if c.extender == nil {
		return nil, errors.New(errors.KsiInvalidStateError).AppendMessage("Extender is not available.")
	}

	var key int64
	if !to.IsZero() {
		key = to.Unix()
	}

	c.temp.Lock()
	defer c.temp.Unlock()

	if r, ok := c.temp.calendars[key]; ok {
		return r.chain, r.err
	}

	from := c.signature.SigningTime()
	log.Debug("Requesting calendar hash chain from ", from.Unix(), " to ", key, ".")
	var r calendarResult
	cal, err := c.extender.ReceiveCalendar(from, to)
	switch {
	case err != nil:
		r.err = errors.KsiErr(err, errors.KsiExtenderError).AppendMessage("Failed to receive calendar hash chain.")
	case cal == nil:
		r.err = errors.New(errors.KsiExtenderError).AppendMessage("Extender returned no calendar hash chain.")
	default:
		r.chain = cal
	}
	c.temp.calendars[key] = r
	return r.chain, r.err
}

// deriveFallback returns a new context for running a fallback policy. The signature, document hash and input
// level are carried over. The collaborators are taken from pc, or from the receiver if pc is nil. The receiver is
// not modified.
func (c *VerificationContext) deriveFallback(pc *PolicyContext) *VerificationContext {
	n := &VerificationContext{
		signature:    c.signature,
		documentHash: c.documentHash,
		inputHashLvl: c.inputHashLvl,
		temp:         newVerificationTemp(),
	}
	if pc == nil {
		n.extendingPerm = c.extendingPerm
		n.extender = c.extender
		n.pubFileProvider = c.pubFileProvider
		n.pubFile = c.pubFile
		n.userPublication = c.userPublication
		return n
	}
	n.extendingPerm = pc.extendingAllowed
	n.extender = pc.extender
	n.pubFileProvider = pc.pubFileProvider
	n.userPublication = pc.userPublication
	return n
}
