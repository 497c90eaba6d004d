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

// Package signature implements decoding of KSI signatures and signature verification handling.
//
// At the highest level of abstraction, a KSI Blockchain signature consists of a hash chain linking the signed document
// to the root hash value of the aggregation tree, followed by another hash chain linking the root hash value of the
// aggregation tree to the published trust anchor.
//
// Verification is driven by a Policy: an ordered list of rules evaluated against a VerificationContext. A policy
// that is inconclusive (NA) may hand over to a fallback policy, see Verifier.
package signature

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/guardtime/ksicore/errors"
	"github.com/guardtime/ksicore/hash"
	"github.com/guardtime/ksicore/log"
	"github.com/guardtime/ksicore/pdu"
	"github.com/guardtime/ksicore/templates"
	"github.com/guardtime/ksicore/tlv"
)

// Signature is the KSI signature. Once constructed it is immutable and safe for concurrent use.
type Signature struct {
	// Flag for disabling the construction time consistency check.
	noVerify bool

	raw []byte

	// KSI elements.
	aggrChains  pdu.AggregationChainList
	calChain    *pdu.CalendarChain
	pubRec      *pdu.PublicationRec
	aggrAuthRec *pdu.AggregationAuthRec
	calAuthRec  *pdu.CalendarAuthRec
	rfc3161     *pdu.RFC3161

	identity string
}

// New returns a new signature which was constructed based on the provided builder option.
//
// During construction the structure of the signature is validated and the hash chains are recomputed. A failing
// recomputation is reported as KsiInvalidSignature error, unless BuildNoVerify is applied. Note that the
// recomputation is only a sanity check, the authoritative result is given by the verification rules.
func New(builder Builder) (*Signature, error) {
	if builder == nil {
		return nil, errors.New(errors.KsiInvalidArgumentError)
	}

	var tmp signature
	// Build signature.
	if err := builder(&tmp); err != nil {
		return nil, errors.KsiErr(err).AppendMessage("Unable to create KSI signature.")
	}
	if tmp.obj == nil {
		return nil, errors.New(errors.KsiInvalidStateError).AppendMessage("KSI signature was not constructed.")
	}
	if err := tmp.obj.initialize(); err != nil {
		return nil, errors.KsiErr(err).AppendMessage("Unable to create KSI signature.")
	}
	// Clear the no verify flag.
	tmp.obj.noVerify = false

	return tmp.obj, nil
}

type (
	// Builder is a signature initializer functional option.
	Builder func(*signature) error

	signature struct {
		obj *Signature
	}
)

// BuildNoVerify disables the hash chain recomputation during initialization process. The structural checks are
// still applied. Should be used with care!
func BuildNoVerify(builder Builder) Builder {
	return func(s *signature) error {
		if builder == nil {
			return errors.New(errors.KsiInvalidArgumentError)
		}
		if s == nil {
			return errors.New(errors.KsiInvalidArgumentError).AppendMessage("Missing signature base object.")
		}

		if err := builder(s); err != nil {
			return err
		}
		if s.obj == nil {
			return errors.New(errors.KsiInvalidStateError).AppendMessage("Missing KSI signature.")
		}

		log.Info("Using no-verify initializer.")
		s.obj.noVerify = true

		return nil
	}
}

// BuildFromTlv enables to initialize a signature from an already decoded TLV element.
func BuildFromTlv(t *tlv.Tlv) Builder {
	return func(s *signature) error {
		if t == nil {
			return errors.New(errors.KsiInvalidArgumentError)
		}
		if s == nil {
			return errors.New(errors.KsiInvalidArgumentError).AppendMessage("Missing signature base object.")
		}

		obj, err := fromTlv(t)
		if err != nil {
			return err
		}
		s.obj = obj
		return nil
	}
}

// BuildFromBytes enables to initialize a signature from its binary representation.
func BuildFromBytes(raw []byte) Builder {
	return func(s *signature) error {
		if len(raw) == 0 {
			return errors.New(errors.KsiInvalidArgumentError)
		}
		if s == nil {
			return errors.New(errors.KsiInvalidArgumentError).AppendMessage("Missing signature base object.")
		}

		t, err := tlv.Parse(raw)
		if err != nil {
			return errors.KsiErr(err).AppendMessage("Failed to decode KSI signature.")
		}
		return BuildFromTlv(t)(s)
	}
}

// BuildFromReader enables to initialize KSI signature from reader (binary stream). Exactly one TLV element is
// consumed from the stream.
func BuildFromReader(r io.Reader) Builder {
	return func(s *signature) error {
		if r == nil {
			return errors.New(errors.KsiInvalidArgumentError)
		}
		if s == nil {
			return errors.New(errors.KsiInvalidArgumentError).AppendMessage("Missing signature base object.")
		}

		t, err := tlv.ReadFrom(r)
		if err != nil {
			return errors.KsiErr(err, errors.KsiIoError).AppendMessage("Failed to read KSI signature.")
		}
		return BuildFromTlv(t)(s)
	}
}

// BuildFromFile enables to initialize a signature from file on the filesystem.
func BuildFromFile(path string) Builder {
	return func(s *signature) error {
		if path == "" {
			return errors.New(errors.KsiInvalidArgumentError)
		}
		if s == nil {
			return errors.New(errors.KsiInvalidArgumentError).AppendMessage("Missing signature base object.")
		}

		log.Debug("Load signature file: ", path)
		f, err := os.Open(path)
		if err != nil {
			return errors.New(errors.KsiIoError).SetExtError(err).
				AppendMessage(fmt.Sprintf("Failed to open signature file: %s", path))
		}
		defer func() {
			if err := f.Close(); err != nil {
				log.Error("Failed to close file: ", err)
			}
		}()

		return BuildFromReader(f)(s)
	}
}

const tmplSignature = "signature.Signature"

// signatureTlv is the layout of the KSI signature. Group 0 is the publication record, group 1 the calendar
// authentication record and group 2 the calendar hash chain that both of them authenticate.
type signatureTlv struct {
	base        *tlv.Tlv   `tlv:"basetlv"`
	aggrChains  []*tlv.Tlv `tlv:"801,tlvobj,C0_N"`
	calChain    *tlv.Tlv   `tlv:"802,tlvobj,C0_1,G2"`
	pubRec      *tlv.Tlv   `tlv:"803,tlvobj,C0_1,G0,!G1,&G2"`
	aggrAuthRec *tlv.Tlv   `tlv:"804,tlvobj,C0_1"`
	calAuthRec  *tlv.Tlv   `tlv:"805,tlvobj,C0_1,G1,!G0,&G2"`
	rfc3161     *tlv.Tlv   `tlv:"806,tlvobj,C0_1"`
}

func init() {
	if err := templates.Register(&signatureTlv{}, tmplSignature, pdu.TagSignature); err != nil {
		panic(err)
	}
}

func fromTlv(t *tlv.Tlv) (*Signature, error) {
	var d signatureTlv
	if err := templates.Decode(tmplSignature, t, &d); err != nil {
		return nil, errors.KsiErr(err).AppendMessage("Failed to decode KSI signature.")
	}

	sig := &Signature{raw: d.base.Bytes()}
	for _, c := range d.aggrChains {
		ac, err := pdu.NewAggregationChainFromTlv(c)
		if err != nil {
			return nil, err
		}
		sig.aggrChains = append(sig.aggrChains, ac)
	}

	var err error
	if d.calChain != nil {
		if sig.calChain, err = pdu.NewCalendarChainFromTlv(d.calChain); err != nil {
			return nil, err
		}
	}
	if d.pubRec != nil {
		if sig.pubRec, err = pdu.NewPublicationRecFromTlv(d.pubRec); err != nil {
			return nil, err
		}
	}
	if d.aggrAuthRec != nil {
		if sig.aggrAuthRec, err = pdu.NewAggregationAuthRecFromTlv(d.aggrAuthRec); err != nil {
			return nil, err
		}
	}
	if d.calAuthRec != nil {
		if sig.calAuthRec, err = pdu.NewCalendarAuthRecFromTlv(d.calAuthRec); err != nil {
			return nil, err
		}
	}
	if d.rfc3161 != nil {
		if sig.rfc3161, err = pdu.NewRFC3161FromTlv(d.rfc3161); err != nil {
			return nil, err
		}
	}
	return sig, nil
}

// initialize applies the structural checks, orders the aggregation hash chains and performs the sanity
// recomputation of the hash chains.
func (s *Signature) initialize() error {
	switch {
	case len(s.aggrChains) == 0:
		return errors.New(errors.KsiInvalidFormatError).AppendMessage("At least one aggregation chain required.")
	case s.calAuthRec != nil && s.pubRec != nil:
		return errors.New(errors.KsiInvalidFormatError).
			AppendMessage("Found calendar authentication record and publication record. Given elements can not coexist.")
	case s.calAuthRec != nil && s.calChain == nil:
		return errors.New(errors.KsiInvalidFormatError).
			AppendMessage("Found calendar authentication record without calendar hash chain.")
	case s.pubRec != nil && s.calChain == nil:
		return errors.New(errors.KsiInvalidFormatError).
			AppendMessage("Found publication record without calendar hash chain.")
	}
	for _, c := range s.aggrChains {
		if c == nil {
			return errors.New(errors.KsiInvalidArgumentError).AppendMessage("Nil aggregation hash chain.")
		}
	}

	s.aggrChains.Sort()

	if !s.noVerify {
		if err := s.recompute(); err != nil {
			return errors.New(errors.KsiInvalidSignature).SetExtError(err).
				AppendMessage("Signature hash chains could not be recomputed.")
		}
	}

	s.identity = s.aggrChains.Identity().String()
	return nil
}

// recompute folds every aggregation hash chain from its own input hash, feeding the level through, followed by the
// calendar hash chain. The continuity between the chains is left to the verification rules.
func (s *Signature) recompute() error {
	var level byte
	for i, c := range s.aggrChains {
		res, err := c.CalculateOutput(c.InputHash(), level)
		if err != nil {
			return errors.KsiErr(err).AppendMessage(fmt.Sprintf("Aggregation hash chain %d.", i))
		}
		level = res.Level
	}
	if s.calChain != nil {
		if _, err := s.calChain.CalculateOutput(); err != nil {
			return err
		}
	}
	return nil
}

// AggregationChains returns the aggregation hash chains, most specific chain first.
// The returned list must not be modified.
func (s *Signature) AggregationChains() pdu.AggregationChainList {
	if s == nil {
		return nil
	}
	return s.aggrChains
}

// CalendarChain returns the calendar hash chain, or nil if not present.
func (s *Signature) CalendarChain() *pdu.CalendarChain {
	if s == nil {
		return nil
	}
	return s.calChain
}

// PublicationRec returns the publication record, or nil if not present.
func (s *Signature) PublicationRec() *pdu.PublicationRec {
	if s == nil {
		return nil
	}
	return s.pubRec
}

// CalendarAuthRec returns the calendar authentication record, or nil if not present.
func (s *Signature) CalendarAuthRec() *pdu.CalendarAuthRec {
	if s == nil {
		return nil
	}
	return s.calAuthRec
}

// AggregationAuthRec returns the aggregation authentication record, or nil if not present.
func (s *Signature) AggregationAuthRec() *pdu.AggregationAuthRec {
	if s == nil {
		return nil
	}
	return s.aggrAuthRec
}

// RFC3161 returns the RFC3161 compatibility record, or nil if not present.
func (s *Signature) RFC3161() *pdu.RFC3161 {
	if s == nil {
		return nil
	}
	return s.rfc3161
}

// AggregationTime returns the aggregation time of the most specific aggregation hash chain.
func (s *Signature) AggregationTime() time.Time {
	if s == nil || len(s.aggrChains) == 0 {
		return time.Time{}
	}
	return s.aggrChains[0].AggregationTime()
}

// SigningTime returns the signing time: the aggregation time of the calendar hash chain if present, otherwise
// the aggregation time of the least specific aggregation hash chain.
func (s *Signature) SigningTime() time.Time {
	if s == nil || len(s.aggrChains) == 0 {
		return time.Time{}
	}
	if s.calChain != nil {
		return s.calChain.AggregationTime()
	}
	return s.aggrChains[len(s.aggrChains)-1].AggregationTime()
}

// PublicationTime returns the publication time of the calendar hash chain, or zero time if not present.
func (s *Signature) PublicationTime() time.Time {
	if s == nil || s.calChain == nil {
		return time.Time{}
	}
	return s.calChain.PublicationTime()
}

// InputHash returns the input hash of the most specific aggregation hash chain.
func (s *Signature) InputHash() hash.DataHash {
	if s == nil || len(s.aggrChains) == 0 {
		return hash.DataHash{}
	}
	return s.aggrChains[0].InputHash()
}

// DocumentHash returns the signed document hash. In case of a legacy signature converted from RFC3161 the input hash
// of the compatibility record is returned, otherwise the input hash of the most specific aggregation hash chain.
func (s *Signature) DocumentHash() hash.DataHash {
	if s == nil {
		return hash.DataHash{}
	}
	if s.rfc3161 != nil {
		return s.rfc3161.InputHash()
	}
	return s.InputHash()
}

// Identity returns the non-empty client identifiers of the aggregation hash chain links joined by " :: ", starting
// from the most specific chain.
func (s *Signature) Identity() string {
	if s == nil {
		return ""
	}
	return s.identity
}

// AggregationChainIdentity returns the link identities, starting from the most specific chain.
func (s *Signature) AggregationChainIdentity() pdu.IdentityList {
	if s == nil {
		return nil
	}
	return s.aggrChains.Identity()
}

// AggregationOutput folds all aggregation hash chains starting with the input hash of the most specific chain at
// the given input level. The input hash of every following chain must match the output of the preceding one.
func (s *Signature) AggregationOutput(level byte) (pdu.ChainResult, error) {
	if s == nil {
		return pdu.ChainResult{}, errors.New(errors.KsiInvalidArgumentError)
	}
	return s.aggrChains.CalculateOutput(s.InputHash(), level)
}

// IsExtended reports whether the signature carries a publication record.
func (s *Signature) IsExtended() bool {
	return s != nil && s.pubRec != nil
}

// Bytes returns the binary representation of the signature exactly as it was decoded.
func (s *Signature) Bytes() []byte {
	if s == nil {
		return nil
	}
	return append([]byte(nil), s.raw...)
}

// Verify verifies the signature against the given policy. The verification context is initialized with the
// provided options. Verification outcome is reported in the result, the returned error is reserved for invalid input
// parameters.
func (s *Signature) Verify(policy *Policy, opts ...VerCtxOption) (*VerificationResult, error) {
	if s == nil || policy == nil {
		return nil, errors.New(errors.KsiInvalidArgumentError)
	}
	ctx, err := NewVerificationContext(s, opts...)
	if err != nil {
		return nil, err
	}
	return NewVerifier().Verify(ctx, policy)
}
