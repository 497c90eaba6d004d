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
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/guardtime/ksicore/errors"
	"github.com/guardtime/ksicore/hash"
	"github.com/guardtime/ksicore/log"
	"github.com/guardtime/ksicore/pdu"
	"github.com/guardtime/ksicore/signature/verify/reserr"
	"github.com/guardtime/ksicore/signature/verify/result"
)

// Rule is the verification Rule common interface.
//
// A rule reports the verification outcome in the returned RuleResult. Failures to access a resource (eg. the
// extender) are reported as NA(GEN-02) result with the cause attached. The error return value is reserved for
// invalid input.
type Rule interface {
	fmt.Stringer
	// Verify performs Rule verification.
	Verify(*VerificationContext) (*RuleResult, error)
}

func getName(r interface{}) string {
	valueOf := reflect.ValueOf(r)
	if valueOf.Type().Kind() == reflect.Ptr {
		return reflect.Indirect(valueOf).Type().Name()
	}
	return valueOf.Type().Name()
}

// runRule executes the rule and converts a misbehaving rule into an inconclusive result.
func runRule(rule Rule, context *VerificationContext) *RuleResult {
	res, err := rule.Verify(context)
	if err != nil {
		log.Warning("Rule ", rule, " returned error: ", err)
		return newRuleResult(rule, result.NA).setErrCode(reserr.Gen02).setCause(err)
	}
	if res == nil {
		err := errors.New(errors.KsiInvalidStateError).AppendMessage("Missing rule result.")
		return newRuleResult(rule, result.NA).setErrCode(reserr.Gen02).setCause(err)
	}
	log.Debug(res)
	return res
}

func invalidContext(r Rule) (*RuleResult, error) {
	err := errors.New(errors.KsiInvalidArgumentError).AppendMessage("Missing verification context.")
	return newRuleResult(r, result.NA).setErrCode(reserr.Gen02).setCause(err), err
}

func inconclusive(r Rule, err error) (*RuleResult, error) {
	return newRuleResult(r, result.NA).setErrCode(reserr.Gen02).setCause(err), nil
}

func failed(r Rule, c reserr.Code) (*RuleResult, error) {
	return newRuleResult(r, result.FAIL).setErrCode(c), nil
}

func succeeded(r Rule) (*RuleResult, error) {
	return newRuleResult(r, result.OK), nil
}

// deprecatedAt reports whether the algorithm must not be relied upon for collision resistance at t.
func deprecatedAt(alg hash.Algorithm, t time.Time) bool {
	switch alg.StatusAt(t.Unix()) {
	case hash.Deprecated, hash.Obsolete:
		return true
	}
	return false
}

/*
----------------------------------------
Helper rules
----------------------------------------
*/

// OkRule always returns verification code 'OK'.
type OkRule struct{}

func (r OkRule) String() string { return getName(r) }
func (r OkRule) Verify(_ *VerificationContext) (*RuleResult, error) {
	return succeeded(r)
}

// NotRule inverts the result of the wrapped rule: OK becomes NA(GEN-02), FAIL and NA become OK.
type NotRule struct {
	Rule Rule
}

func (r NotRule) String() string { return "NOT(" + fmt.Sprint(r.Rule) + ")" }
func (r NotRule) Verify(context *VerificationContext) (*RuleResult, error) {
	if r.Rule == nil {
		err := errors.New(errors.KsiInvalidStateError).AppendMessage("Missing negated rule.")
		return newRuleResult(r, result.NA).setErrCode(reserr.Gen02).setCause(err), err
	}
	if context == nil {
		return invalidContext(r)
	}
	inner := runRule(r.Rule, context)
	res := newRuleResult(r, inner.resCode.Negate())
	if res.resCode == result.NA {
		res.errCode = reserr.Gen02
	}
	res.children = []*RuleResult{inner}
	return res, nil
}

// CompositeMode is the combination mode of a CompositeRule.
type CompositeMode byte

const (
	// ModeAnd requires all sub-rules to succeed. Evaluation stops at the first non-OK sub-rule.
	ModeAnd CompositeMode = iota
	// ModeOr requires any sub-rule to succeed. Evaluation stops at the first OK sub-rule, otherwise the result of
	// the last sub-rule is returned.
	ModeOr
)

func (m CompositeMode) String() string {
	if m == ModeOr {
		return "OR"
	}
	return "AND"
}

// CompositeRule combines sub-rules into a single rule. The result is the result of the last evaluated sub-rule,
// that is either the deciding sub-rule or the last one.
type CompositeRule struct {
	mode  CompositeMode
	rules []Rule
}

// NewAndRule returns a composite rule that succeeds if all rules succeed.
func NewAndRule(rules ...Rule) *CompositeRule {
	return &CompositeRule{mode: ModeAnd, rules: append([]Rule(nil), rules...)}
}

// NewOrRule returns a composite rule that succeeds if any of the rules succeeds.
func NewOrRule(rules ...Rule) *CompositeRule {
	return &CompositeRule{mode: ModeOr, rules: append([]Rule(nil), rules...)}
}

func (r *CompositeRule) String() string {
	if r == nil {
		return ""
	}
	names := make([]string, len(r.rules))
	for i, sub := range r.rules {
		names[i] = fmt.Sprint(sub)
	}
	return r.mode.String() + "(" + strings.Join(names, ", ") + ")"
}

func (r *CompositeRule) Verify(context *VerificationContext) (*RuleResult, error) {
	if r == nil || len(r.rules) == 0 {
		err := errors.New(errors.KsiInvalidStateError).AppendMessage("Composite rule without sub-rules.")
		return &RuleResult{resCode: result.NA, errCode: reserr.Gen02, cause: err}, err
	}
	if context == nil {
		return invalidContext(r)
	}

	var (
		last     *RuleResult
		children = make([]*RuleResult, 0, len(r.rules))
	)
	for _, sub := range r.rules {
		if sub == nil {
			err := errors.New(errors.KsiInvalidStateError).AppendMessage("Nil sub-rule in composite rule.")
			return newRuleResult(r, result.NA).setErrCode(reserr.Gen02).setCause(err), err
		}
		last = runRule(sub, context)
		children = append(children, last)

		if (r.mode == ModeAnd && last.resCode != result.OK) || (r.mode == ModeOr && last.resCode == result.OK) {
			break
		}
	}
	res := newRuleResult(r, last.resCode).setErrCode(last.errCode).setCause(last.cause)
	res.children = children
	return res, nil
}

/*
----------------------------------------
Internal verification rules
----------------------------------------
*/

// DocumentHashAlgorithmRule verifies that the provided document hash algorithm does match with the hash algorithm
// of the signature document hash. Returns OK if the document hash is not provided.
// Returns OK or FAIL(GEN-04).
type DocumentHashAlgorithmRule struct{}

func (r DocumentHashAlgorithmRule) String() string { return getName(r) }
func (r DocumentHashAlgorithmRule) Verify(context *VerificationContext) (*RuleResult, error) {
	if context == nil || context.signature == nil {
		return invalidContext(r)
	}
	if context.documentHash.IsZero() {
		return succeeded(r)
	}
	if context.documentHash.Algorithm() != context.signature.DocumentHash().Algorithm() {
		return failed(r, reserr.Gen04)
	}
	return succeeded(r)
}

// DocumentHashRule verifies that the provided document hash does match with the input hash of the first
// aggregation hash chain, or the RFC3161 record if present. Returns OK if the document hash is not provided.
// Returns OK or FAIL(GEN-01).
type DocumentHashRule struct{}

func (r DocumentHashRule) String() string { return getName(r) }
func (r DocumentHashRule) Verify(context *VerificationContext) (*RuleResult, error) {
	if context == nil || context.signature == nil {
		return invalidContext(r)
	}
	if context.documentHash.IsZero() {
		return succeeded(r)
	}
	if !context.documentHash.Equal(context.signature.DocumentHash()) {
		return failed(r, reserr.Gen01)
	}
	return succeeded(r)
}

// DocumentHashLevelRule verifies that the input level is not greater than the level correction of the first link
// of the first aggregation hash chain. In case of RFC3161 record the input level must be 0.
// Returns OK or FAIL(GEN-03).
type DocumentHashLevelRule struct{}

func (r DocumentHashLevelRule) String() string { return getName(r) }
func (r DocumentHashLevelRule) Verify(context *VerificationContext) (*RuleResult, error) {
	if context == nil || context.signature == nil {
		return invalidContext(r)
	}
	sig := context.signature

	if sig.rfc3161 != nil {
		if context.inputHashLvl > 0 {
			return failed(r, reserr.Gen03)
		}
		return succeeded(r)
	}

	links := sig.aggrChains[0].Links()
	if len(links) == 0 {
		if context.inputHashLvl > 0 {
			return failed(r, reserr.Gen03)
		}
		return succeeded(r)
	}
	if context.inputHashLvl > links[0].LevelCorrection() {
		return failed(r, reserr.Gen03)
	}
	return succeeded(r)
}

// DocumentHashAlgorithmDeprecatedRule verifies that the signature document hash algorithm was not deprecated at
// the aggregation time.
// Returns OK or FAIL(INT-13).
type DocumentHashAlgorithmDeprecatedRule struct{}

func (r DocumentHashAlgorithmDeprecatedRule) String() string { return getName(r) }
func (r DocumentHashAlgorithmDeprecatedRule) Verify(context *VerificationContext) (*RuleResult, error) {
	if context == nil || context.signature == nil {
		return invalidContext(r)
	}
	sig := context.signature
	if deprecatedAt(sig.DocumentHash().Algorithm(), sig.AggregationTime()) {
		return failed(r, reserr.Int13)
	}
	return succeeded(r)
}

// InputHashAlgorithmRule verifies that the input hash algorithm of the first aggregation hash chain was not
// deprecated at the aggregation time. In case of RFC3161 record the rule is skipped, see
// Rfc3161RecordOutputHashAlgorithmRule.
// Returns OK or FAIL(INT-13).
type InputHashAlgorithmRule struct{}

func (r InputHashAlgorithmRule) String() string { return getName(r) }
func (r InputHashAlgorithmRule) Verify(context *VerificationContext) (*RuleResult, error) {
	if context == nil || context.signature == nil {
		return invalidContext(r)
	}
	sig := context.signature
	if sig.rfc3161 != nil {
		return succeeded(r)
	}
	if deprecatedAt(sig.InputHash().Algorithm(), sig.AggregationTime()) {
		return failed(r, reserr.Int13)
	}
	return succeeded(r)
}

// Rfc3161RecordHashAlgorithmsRule verifies that the hash algorithms used for the RFC3161 record internal hashing
// were not deprecated at the aggregation time. Returns OK if the record is not present.
// Returns OK or FAIL(INT-14).
type Rfc3161RecordHashAlgorithmsRule struct{}

func (r Rfc3161RecordHashAlgorithmsRule) String() string { return getName(r) }
func (r Rfc3161RecordHashAlgorithmsRule) Verify(context *VerificationContext) (*RuleResult, error) {
	if context == nil || context.signature == nil {
		return invalidContext(r)
	}
	rec := context.signature.rfc3161
	if rec == nil {
		return succeeded(r)
	}
	at := rec.AggregationTime()
	if deprecatedAt(rec.TstInfoAlgo(), at) || deprecatedAt(rec.SigAttrAlgo(), at) {
		return failed(r, reserr.Int14)
	}
	return succeeded(r)
}

// Rfc3161RecordOutputHashAlgorithmRule verifies that the RFC3161 record output hash algorithm (the input hash
// algorithm of the first aggregation hash chain) was not deprecated at the aggregation time. Returns OK if the
// record is not present.
// Returns OK or FAIL(INT-17).
type Rfc3161RecordOutputHashAlgorithmRule struct{}

func (r Rfc3161RecordOutputHashAlgorithmRule) String() string { return getName(r) }
func (r Rfc3161RecordOutputHashAlgorithmRule) Verify(context *VerificationContext) (*RuleResult, error) {
	if context == nil || context.signature == nil {
		return invalidContext(r)
	}
	sig := context.signature
	if sig.rfc3161 == nil {
		return succeeded(r)
	}
	if deprecatedAt(sig.InputHash().Algorithm(), sig.rfc3161.AggregationTime()) {
		return failed(r, reserr.Int17)
	}
	return succeeded(r)
}

// Rfc3161RecordIndexRule verifies that the RFC3161 record chain index matches the chain index of the first
// aggregation hash chain. Returns OK if the record is not present.
// Returns OK or FAIL(INT-12).
type Rfc3161RecordIndexRule struct{}

func (r Rfc3161RecordIndexRule) String() string { return getName(r) }
func (r Rfc3161RecordIndexRule) Verify(context *VerificationContext) (*RuleResult, error) {
	if context == nil || context.signature == nil {
		return invalidContext(r)
	}
	sig := context.signature
	if sig.rfc3161 == nil {
		return succeeded(r)
	}
	if !equalIndex(sig.rfc3161.ChainIndex(), sig.aggrChains[0].ChainIndex()) {
		return failed(r, reserr.Int12)
	}
	return succeeded(r)
}

// Rfc3161RecordAggregationTimeRule verifies that the RFC3161 record aggregation time matches the aggregation time
// of the first aggregation hash chain. Returns OK if the record is not present.
// Returns OK or FAIL(INT-02).
type Rfc3161RecordAggregationTimeRule struct{}

func (r Rfc3161RecordAggregationTimeRule) String() string { return getName(r) }
func (r Rfc3161RecordAggregationTimeRule) Verify(context *VerificationContext) (*RuleResult, error) {
	if context == nil || context.signature == nil {
		return invalidContext(r)
	}
	sig := context.signature
	if sig.rfc3161 == nil {
		return succeeded(r)
	}
	if !sig.rfc3161.AggregationTime().Equal(sig.AggregationTime()) {
		return failed(r, reserr.Int02)
	}
	return succeeded(r)
}

func equalIndex(a, b []uint64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// AggregationChainInputHashRule verifies the input of the first aggregation hash chain. In case of RFC3161 record
// the record output hash must match the chain input hash. If the chain carries the input data, its hash must match
// the chain input hash.
// Returns OK or FAIL(INT-01).
type AggregationChainInputHashRule struct{}

func (r AggregationChainInputHashRule) String() string { return getName(r) }
func (r AggregationChainInputHashRule) Verify(context *VerificationContext) (*RuleResult, error) {
	if context == nil || context.signature == nil {
		return invalidContext(r)
	}
	sig := context.signature
	first := sig.aggrChains[0]

	if sig.rfc3161 != nil {
		out, err := sig.rfc3161.OutputHash(first.InputHash().Algorithm())
		if err != nil {
			return newRuleResult(r, result.FAIL).setErrCode(reserr.Int01).setCause(err), nil
		}
		if !out.Equal(first.InputHash()) {
			return failed(r, reserr.Int01)
		}
	}
	if data := first.InputData(); data != nil {
		h, err := first.InputHash().Algorithm().Sum(data)
		if err != nil {
			return newRuleResult(r, result.FAIL).setErrCode(reserr.Int01).setCause(err), nil
		}
		if !h.Equal(first.InputHash()) {
			return failed(r, reserr.Int01)
		}
	}
	return succeeded(r)
}

// AggregationChainTimeConsistencyRule verifies that all aggregation hash chains share the same aggregation time.
// Returns OK or FAIL(INT-02).
type AggregationChainTimeConsistencyRule struct{}

func (r AggregationChainTimeConsistencyRule) String() string { return getName(r) }
func (r AggregationChainTimeConsistencyRule) Verify(context *VerificationContext) (*RuleResult, error) {
	if context == nil || context.signature == nil {
		return invalidContext(r)
	}
	chains := context.signature.aggrChains
	for i := 1; i < len(chains); i++ {
		if !chains[i].AggregationTime().Equal(chains[0].AggregationTime()) {
			log.Debug(fmt.Sprintf("Aggregation hash chain %d time mismatch.", i))
			return failed(r, reserr.Int02)
		}
	}
	return succeeded(r)
}

// AggregationChainIndexContinuationRule verifies that the chain index of every aggregation hash chain is the
// chain index of the preceding chain without its last element.
// Returns OK or FAIL(INT-12).
type AggregationChainIndexContinuationRule struct{}

func (r AggregationChainIndexContinuationRule) String() string { return getName(r) }
func (r AggregationChainIndexContinuationRule) Verify(context *VerificationContext) (*RuleResult, error) {
	if context == nil || context.signature == nil {
		return invalidContext(r)
	}
	chains := context.signature.aggrChains
	for i := 1; i < len(chains); i++ {
		prev, cur := chains[i-1].ChainIndex(), chains[i].ChainIndex()
		if len(prev) != len(cur)+1 || !equalIndex(prev[:len(cur)], cur) {
			log.Debug(fmt.Sprintf("Aggregation hash chain %d index does not continue the previous chain.", i))
			return failed(r, reserr.Int12)
		}
	}
	return succeeded(r)
}

// AggregationChainIndexConsistencyRule verifies that the last element of the chain index of every aggregation
// hash chain matches the shape of the chain links.
// Returns OK or FAIL(INT-10).
type AggregationChainIndexConsistencyRule struct{}

func (r AggregationChainIndexConsistencyRule) String() string { return getName(r) }
func (r AggregationChainIndexConsistencyRule) Verify(context *VerificationContext) (*RuleResult, error) {
	if context == nil || context.signature == nil {
		return invalidContext(r)
	}
	for i, c := range context.signature.aggrChains {
		if !c.ChainIndexMatchesLinks() {
			log.Debug(fmt.Sprintf("Aggregation hash chain %d index does not match the link shape.", i))
			return failed(r, reserr.Int10)
		}
	}
	return succeeded(r)
}

// AggregationChainMetadataPaddingRule verifies that the metadata of the aggregation hash chain links is well
// formed and can not be interpreted as a hash imprint.
// Returns OK or FAIL(INT-11).
type AggregationChainMetadataPaddingRule struct{}

func (r AggregationChainMetadataPaddingRule) String() string { return getName(r) }
func (r AggregationChainMetadataPaddingRule) Verify(context *VerificationContext) (*RuleResult, error) {
	if context == nil || context.signature == nil {
		return invalidContext(r)
	}
	for _, c := range context.signature.aggrChains {
		for _, l := range c.Links() {
			if l.Kind() != pdu.KindMetadata {
				continue
			}
			if err := l.Metadata().VerifyPadding(); err != nil {
				return newRuleResult(r, result.FAIL).setErrCode(reserr.Int11).setCause(err), nil
			}
		}
	}
	return succeeded(r)
}

// AggregationChainHashAlgorithmRule verifies that the aggregation algorithm of every aggregation hash chain was
// not deprecated at the aggregation time.
// Returns OK or FAIL(INT-15).
type AggregationChainHashAlgorithmRule struct{}

func (r AggregationChainHashAlgorithmRule) String() string { return getName(r) }
func (r AggregationChainHashAlgorithmRule) Verify(context *VerificationContext) (*RuleResult, error) {
	if context == nil || context.signature == nil {
		return invalidContext(r)
	}
	for _, c := range context.signature.aggrChains {
		if deprecatedAt(c.Algorithm(), c.AggregationTime()) {
			return failed(r, reserr.Int15)
		}
	}
	return succeeded(r)
}

// AggregationChainConsistencyRule verifies that the aggregation hash chains can be folded into a single aggregation
// tree root, the output of every chain being the input of the next one.
// Returns OK or FAIL(INT-01).
type AggregationChainConsistencyRule struct{}

func (r AggregationChainConsistencyRule) String() string { return getName(r) }
func (r AggregationChainConsistencyRule) Verify(context *VerificationContext) (*RuleResult, error) {
	if context == nil || context.signature == nil {
		return invalidContext(r)
	}
	if _, err := context.aggregationOutput(); err != nil {
		return newRuleResult(r, result.FAIL).setErrCode(reserr.Int01).setCause(err), nil
	}
	return succeeded(r)
}

// CalendarChainInputHashRule verifies that the calendar hash chain input hash matches the aggregation tree root.
// Returns OK if the calendar hash chain is not present.
// Returns OK or FAIL(INT-03).
type CalendarChainInputHashRule struct{}

func (r CalendarChainInputHashRule) String() string { return getName(r) }
func (r CalendarChainInputHashRule) Verify(context *VerificationContext) (*RuleResult, error) {
	if context == nil || context.signature == nil {
		return invalidContext(r)
	}
	cal := context.signature.calChain
	if cal == nil {
		return succeeded(r)
	}
	out, err := context.aggregationOutput()
	if err != nil {
		return inconclusive(r, err)
	}
	if !out.Hash.Equal(cal.InputHash()) {
		return failed(r, reserr.Int03)
	}
	return succeeded(r)
}

// CalendarChainAggregationTimeRule verifies that the calendar hash chain aggregation time matches the aggregation
// time of the last aggregation hash chain. Returns OK if the calendar hash chain is not present.
// Returns OK or FAIL(INT-04).
type CalendarChainAggregationTimeRule struct{}

func (r CalendarChainAggregationTimeRule) String() string { return getName(r) }
func (r CalendarChainAggregationTimeRule) Verify(context *VerificationContext) (*RuleResult, error) {
	if context == nil || context.signature == nil {
		return invalidContext(r)
	}
	sig := context.signature
	if sig.calChain == nil {
		return succeeded(r)
	}
	last := sig.aggrChains[len(sig.aggrChains)-1]
	if !sig.calChain.AggregationTime().Equal(last.AggregationTime()) {
		return failed(r, reserr.Int04)
	}
	return succeeded(r)
}

// CalendarChainRegisteredTimeRule verifies that the calendar hash chain publication time is not before the
// aggregation time, and that the shape of the chain corresponds to the aggregation time. Returns OK if the
// calendar hash chain is not present.
// Returns OK or FAIL(INT-05).
type CalendarChainRegisteredTimeRule struct{}

func (r CalendarChainRegisteredTimeRule) String() string { return getName(r) }
func (r CalendarChainRegisteredTimeRule) Verify(context *VerificationContext) (*RuleResult, error) {
	if context == nil || context.signature == nil {
		return invalidContext(r)
	}
	cal := context.signature.calChain
	if cal == nil {
		return succeeded(r)
	}
	if cal.PublicationTime().Before(cal.AggregationTime()) {
		return failed(r, reserr.Int05)
	}
	calculated, err := cal.CalculateAggregationTime()
	if err != nil {
		return newRuleResult(r, result.FAIL).setErrCode(reserr.Int05).setCause(err), nil
	}
	if !calculated.Equal(cal.AggregationTime()) {
		return failed(r, reserr.Int05)
	}
	return succeeded(r)
}

// CalendarChainHashAlgorithmObsoleteRule verifies that the sibling hash algorithms of the calendar hash chain left
// links were not obsolete at the publication time. Returns OK if the calendar hash chain is not present.
// Returns OK or FAIL(INT-16).
type CalendarChainHashAlgorithmObsoleteRule struct{}

func (r CalendarChainHashAlgorithmObsoleteRule) String() string { return getName(r) }
func (r CalendarChainHashAlgorithmObsoleteRule) Verify(context *VerificationContext) (*RuleResult, error) {
	if context == nil || context.signature == nil {
		return invalidContext(r)
	}
	cal := context.signature.calChain
	if cal == nil {
		return succeeded(r)
	}
	at := cal.PublicationTime().Unix()
	for _, l := range cal.Links() {
		if l.IsLeft() && l.SiblingHash().Algorithm().IsObsoleteAt(at) {
			return failed(r, reserr.Int16)
		}
	}
	return succeeded(r)
}

// CalendarAuthRecordPublicationTimeRule verifies that the calendar authentication record publication time matches
// the calendar hash chain publication time. Returns OK if the record is not present.
// Returns OK or FAIL(INT-06).
type CalendarAuthRecordPublicationTimeRule struct{}

func (r CalendarAuthRecordPublicationTimeRule) String() string { return getName(r) }
func (r CalendarAuthRecordPublicationTimeRule) Verify(context *VerificationContext) (*RuleResult, error) {
	if context == nil || context.signature == nil {
		return invalidContext(r)
	}
	sig := context.signature
	if sig.calAuthRec == nil {
		return succeeded(r)
	}
	if !sig.calAuthRec.PublicationData().PublicationTime().Equal(sig.calChain.PublicationTime()) {
		return failed(r, reserr.Int06)
	}
	return succeeded(r)
}

// CalendarAuthRecordPublicationHashRule verifies that the calendar authentication record published hash matches
// the calendar hash chain root hash. Returns OK if the record is not present.
// Returns OK or FAIL(INT-08).
type CalendarAuthRecordPublicationHashRule struct{}

func (r CalendarAuthRecordPublicationHashRule) String() string { return getName(r) }
func (r CalendarAuthRecordPublicationHashRule) Verify(context *VerificationContext) (*RuleResult, error) {
	if context == nil || context.signature == nil {
		return invalidContext(r)
	}
	sig := context.signature
	if sig.calAuthRec == nil {
		return succeeded(r)
	}
	root, err := sig.calChain.CalculateOutput()
	if err != nil {
		return newRuleResult(r, result.FAIL).setErrCode(reserr.Int08).setCause(err), nil
	}
	if !root.Equal(sig.calAuthRec.PublicationData().PublishedHash()) {
		return failed(r, reserr.Int08)
	}
	return succeeded(r)
}

// PublicationRecordPublicationTimeRule verifies that the publication record publication time matches the calendar
// hash chain publication time. Returns OK if the record is not present.
// Returns OK or FAIL(INT-07).
type PublicationRecordPublicationTimeRule struct{}

func (r PublicationRecordPublicationTimeRule) String() string { return getName(r) }
func (r PublicationRecordPublicationTimeRule) Verify(context *VerificationContext) (*RuleResult, error) {
	if context == nil || context.signature == nil {
		return invalidContext(r)
	}
	sig := context.signature
	if sig.pubRec == nil {
		return succeeded(r)
	}
	if !sig.pubRec.PublicationData().PublicationTime().Equal(sig.calChain.PublicationTime()) {
		return failed(r, reserr.Int07)
	}
	return succeeded(r)
}

// PublicationRecordPublicationHashRule verifies that the publication record published hash matches the calendar
// hash chain root hash. Returns OK if the record is not present.
// Returns OK or FAIL(INT-09).
type PublicationRecordPublicationHashRule struct{}

func (r PublicationRecordPublicationHashRule) String() string { return getName(r) }
func (r PublicationRecordPublicationHashRule) Verify(context *VerificationContext) (*RuleResult, error) {
	if context == nil || context.signature == nil {
		return invalidContext(r)
	}
	sig := context.signature
	if sig.pubRec == nil {
		return succeeded(r)
	}
	root, err := sig.calChain.CalculateOutput()
	if err != nil {
		return newRuleResult(r, result.FAIL).setErrCode(reserr.Int09).setCause(err), nil
	}
	if !root.Equal(sig.pubRec.PublicationData().PublishedHash()) {
		return failed(r, reserr.Int09)
	}
	return succeeded(r)
}
