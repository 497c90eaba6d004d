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
	"time"

	"github.com/guardtime/ksicore/errors"
	"github.com/guardtime/ksicore/log"
	"github.com/guardtime/ksicore/pdu"
	"github.com/guardtime/ksicore/publications"
	"github.com/guardtime/ksicore/signature/verify/reserr"
	"github.com/guardtime/ksicore/signature/verify/result"
)

// ExtendTarget selects the calendar root the signature is extended to by the extending rules.
type ExtendTarget byte

const (
	// TargetCalendar extends to the publication time of the signature calendar hash chain, or to the calendar head
	// if the signature has no calendar hash chain.
	TargetCalendar ExtendTarget = iota
	// TargetPublicationsFile extends to the earliest publication of the publications file at or after the
	// signing time.
	TargetPublicationsFile
	// TargetUserPublication extends to the user provided publication.
	TargetUserPublication
)

func (t ExtendTarget) String() string {
	switch t {
	case TargetCalendar:
		return "Calendar"
	case TargetPublicationsFile:
		return "PublicationsFile"
	case TargetUserPublication:
		return "UserPublication"
	default:
		return fmt.Sprintf("ExtendTarget(%d)", byte(t))
	}
}

// targetPublication returns the publication the target refers to. For TargetCalendar nil is returned, unless the
// signature carries a publication record.
func (c *VerificationContext) targetPublication(t ExtendTarget) (*pdu.PublicationData, error) {
	switch t {
	case TargetCalendar:
		if rec := c.signature.pubRec; rec != nil {
			return rec.PublicationData(), nil
		}
		return nil, nil
	case TargetPublicationsFile:
		file, err := c.publicationsFile()
		if err != nil {
			return nil, err
		}
		rec, err := file.PublicationRec(publications.PubRecSearchNearest(c.signature.SigningTime()))
		if err != nil {
			return nil, err
		}
		if rec == nil {
			return nil, errors.New(errors.KsiInvalidStateError).
				AppendMessage("Publications file does not contain a publication after the signing time.")
		}
		return rec.PublicationData(), nil
	case TargetUserPublication:
		if c.userPublication == nil {
			return nil, errors.New(errors.KsiInvalidStateError).AppendMessage("User publication is not provided.")
		}
		return c.userPublication, nil
	default:
		return nil, errors.New(errors.KsiInvalidArgumentError).AppendMessage(fmt.Sprintf("Unknown target: %s.", t))
	}
}

// extendTo returns the calendar hash chain received from the extender for the given target.
func (c *VerificationContext) extendTo(t ExtendTarget) (*pdu.CalendarChain, error) {
	var to time.Time
	if t == TargetCalendar {
		if cal := c.signature.calChain; cal != nil {
			to = cal.PublicationTime()
		}
	} else {
		pub, err := c.targetPublication(t)
		if err != nil {
			return nil, err
		}
		to = pub.PublicationTime()
	}
	return c.extendedCalendar(to)
}

/*
----------------------------------------
Signature element presence rules
----------------------------------------
*/

// CalendarChainExistsRule verifies that the signature contains a calendar hash chain.
// Returns OK or NA(GEN-02).
type CalendarChainExistsRule struct{}

func (r CalendarChainExistsRule) String() string { return getName(r) }
func (r CalendarChainExistsRule) Verify(context *VerificationContext) (*RuleResult, error) {
	if context == nil || context.signature == nil {
		return invalidContext(r)
	}
	if context.signature.calChain == nil {
		return inconclusive(r, nil)
	}
	return succeeded(r)
}

// CalendarAuthRecordExistsRule verifies that the signature contains a calendar authentication record.
// Returns OK or NA(GEN-02).
type CalendarAuthRecordExistsRule struct{}

func (r CalendarAuthRecordExistsRule) String() string { return getName(r) }
func (r CalendarAuthRecordExistsRule) Verify(context *VerificationContext) (*RuleResult, error) {
	if context == nil || context.signature == nil {
		return invalidContext(r)
	}
	if context.signature.calAuthRec == nil {
		return inconclusive(r, nil)
	}
	return succeeded(r)
}

// SignaturePublicationRecordExistsRule verifies that the signature contains a publication record.
// Returns OK or NA(GEN-02).
type SignaturePublicationRecordExistsRule struct{}

func (r SignaturePublicationRecordExistsRule) String() string { return getName(r) }
func (r SignaturePublicationRecordExistsRule) Verify(context *VerificationContext) (*RuleResult, error) {
	if context == nil || context.signature == nil {
		return invalidContext(r)
	}
	if context.signature.pubRec == nil {
		return inconclusive(r, nil)
	}
	return succeeded(r)
}

// CalendarChainAlgorithmDeprecatedRule verifies that the hash algorithm of the signature published hash was not
// deprecated at the publication time. Returns OK if the signature has no calendar hash chain.
// Returns OK or NA(GEN-02).
type CalendarChainAlgorithmDeprecatedRule struct{}

func (r CalendarChainAlgorithmDeprecatedRule) String() string { return getName(r) }
func (r CalendarChainAlgorithmDeprecatedRule) Verify(context *VerificationContext) (*RuleResult, error) {
	if context == nil || context.signature == nil {
		return invalidContext(r)
	}
	cal := context.signature.calChain
	if cal == nil {
		return succeeded(r)
	}
	root, err := cal.CalculateOutput()
	if err != nil {
		return inconclusive(r, err)
	}
	if deprecatedAt(root.Algorithm(), cal.PublicationTime()) {
		return inconclusive(r, errors.New(errors.KsiHashAlgorithmNotTrusted).
			AppendMessage(fmt.Sprintf("Published hash algorithm %s deprecated at publication time.", root.Algorithm())))
	}
	return succeeded(r)
}

/*
----------------------------------------
Extending rules
----------------------------------------
*/

// ExtendingPermittedRule verifies that extending is permitted by the verification context.
// Returns OK or NA(GEN-02).
type ExtendingPermittedRule struct{}

func (r ExtendingPermittedRule) String() string { return getName(r) }
func (r ExtendingPermittedRule) Verify(context *VerificationContext) (*RuleResult, error) {
	if context == nil {
		return invalidContext(r)
	}
	if !context.extendingPerm {
		return inconclusive(r, errors.New(errors.KsiInvalidStateError).AppendMessage("Extending is not permitted."))
	}
	return succeeded(r)
}

// ExtenderResponseHashAlgorithmDeprecatedRule verifies that the sibling hash algorithms of the left links and the
// output hash algorithm of the received calendar hash chain were not deprecated at its publication time.
// Returns OK or NA(GEN-02).
type ExtenderResponseHashAlgorithmDeprecatedRule struct {
	Target ExtendTarget
}

func (r ExtenderResponseHashAlgorithmDeprecatedRule) String() string {
	return getName(r) + "(" + r.Target.String() + ")"
}
func (r ExtenderResponseHashAlgorithmDeprecatedRule) Verify(context *VerificationContext) (*RuleResult, error) {
	if context == nil || context.signature == nil {
		return invalidContext(r)
	}
	ext, err := context.extendTo(r.Target)
	if err != nil {
		return inconclusive(r, err)
	}
	for _, l := range ext.Links() {
		if l.IsLeft() && deprecatedAt(l.SiblingHash().Algorithm(), ext.PublicationTime()) {
			return inconclusive(r, errors.New(errors.KsiHashAlgorithmNotTrusted).
				AppendMessage("Extender response contains hash algorithm deprecated at publication time."))
		}
	}
	root, err := ext.CalculateOutput()
	if err != nil {
		return inconclusive(r, err)
	}
	if deprecatedAt(root.Algorithm(), ext.PublicationTime()) {
		return inconclusive(r, errors.New(errors.KsiHashAlgorithmNotTrusted).
			AppendMessage("Extender response published hash algorithm deprecated at publication time."))
	}
	return succeeded(r)
}

// ExtenderResponsePublicationHashRule verifies that the root hash of the received calendar hash chain matches the
// target publication. Returns OK if the target has no publication.
// Returns OK or FAIL(PUB-01).
type ExtenderResponsePublicationHashRule struct {
	Target ExtendTarget
}

func (r ExtenderResponsePublicationHashRule) String() string {
	return getName(r) + "(" + r.Target.String() + ")"
}
func (r ExtenderResponsePublicationHashRule) Verify(context *VerificationContext) (*RuleResult, error) {
	if context == nil || context.signature == nil {
		return invalidContext(r)
	}
	pub, err := context.targetPublication(r.Target)
	if err != nil {
		return inconclusive(r, err)
	}
	if pub == nil {
		return succeeded(r)
	}
	ext, err := context.extendTo(r.Target)
	if err != nil {
		return inconclusive(r, err)
	}
	root, err := ext.CalculateOutput()
	if err != nil {
		return newRuleResult(r, result.FAIL).setErrCode(reserr.Pub01).setCause(err), nil
	}
	if !root.Equal(pub.PublishedHash()) {
		return failed(r, reserr.Pub01)
	}
	return succeeded(r)
}

// ExtenderResponsePublicationTimeRule verifies that the publication time of the received calendar hash chain
// matches the target publication, and that the shape of the chain corresponds to the signing time. Returns OK if
// the target has no publication.
// Returns OK or FAIL(PUB-02).
type ExtenderResponsePublicationTimeRule struct {
	Target ExtendTarget
}

func (r ExtenderResponsePublicationTimeRule) String() string {
	return getName(r) + "(" + r.Target.String() + ")"
}
func (r ExtenderResponsePublicationTimeRule) Verify(context *VerificationContext) (*RuleResult, error) {
	if context == nil || context.signature == nil {
		return invalidContext(r)
	}
	pub, err := context.targetPublication(r.Target)
	if err != nil {
		return inconclusive(r, err)
	}
	if pub == nil {
		return succeeded(r)
	}
	ext, err := context.extendTo(r.Target)
	if err != nil {
		return inconclusive(r, err)
	}
	if !ext.PublicationTime().Equal(pub.PublicationTime()) {
		return failed(r, reserr.Pub02)
	}
	aggrTime, err := ext.CalculateAggregationTime()
	if err != nil {
		return newRuleResult(r, result.FAIL).setErrCode(reserr.Pub02).setCause(err), nil
	}
	if !aggrTime.Equal(context.signature.SigningTime()) {
		return failed(r, reserr.Pub02)
	}
	return succeeded(r)
}

func extendedErrCode(t ExtendTarget, calendar, publication reserr.Code) reserr.Code {
	if t == TargetCalendar {
		return calendar
	}
	return publication
}

// ExtendedSignatureCalendarChainInputHashRule verifies that the input hash of the received calendar hash chain
// matches the aggregation tree root of the signature.
// Returns OK or FAIL(CAL-02) for TargetCalendar, FAIL(PUB-03) otherwise.
type ExtendedSignatureCalendarChainInputHashRule struct {
	Target ExtendTarget
}

func (r ExtendedSignatureCalendarChainInputHashRule) String() string {
	return getName(r) + "(" + r.Target.String() + ")"
}
func (r ExtendedSignatureCalendarChainInputHashRule) Verify(context *VerificationContext) (*RuleResult, error) {
	if context == nil || context.signature == nil {
		return invalidContext(r)
	}
	ext, err := context.extendTo(r.Target)
	if err != nil {
		return inconclusive(r, err)
	}
	out, err := context.aggregationOutput()
	if err != nil {
		return inconclusive(r, err)
	}
	if !out.Hash.Equal(ext.InputHash()) {
		return failed(r, extendedErrCode(r.Target, reserr.Cal02, reserr.Pub03))
	}
	return succeeded(r)
}

// ExtendedSignatureCalendarChainAggregationTimeRule verifies that the aggregation time of the received calendar
// hash chain matches the signing time.
// Returns OK or FAIL(CAL-03) for TargetCalendar, FAIL(PUB-02) otherwise.
type ExtendedSignatureCalendarChainAggregationTimeRule struct {
	Target ExtendTarget
}

func (r ExtendedSignatureCalendarChainAggregationTimeRule) String() string {
	return getName(r) + "(" + r.Target.String() + ")"
}
func (r ExtendedSignatureCalendarChainAggregationTimeRule) Verify(context *VerificationContext) (*RuleResult, error) {
	if context == nil || context.signature == nil {
		return invalidContext(r)
	}
	ext, err := context.extendTo(r.Target)
	if err != nil {
		return inconclusive(r, err)
	}
	if !ext.AggregationTime().Equal(context.signature.SigningTime()) {
		return failed(r, extendedErrCode(r.Target, reserr.Cal03, reserr.Pub02))
	}
	return succeeded(r)
}

// ExtendedSignatureCalendarChainRootHashRule verifies that the root hash of the calendar hash chain received for
// the publication time of the signature calendar hash chain matches the signature calendar hash chain root hash.
// Returns OK if the signature has no calendar hash chain.
// Returns OK or FAIL(CAL-01).
type ExtendedSignatureCalendarChainRootHashRule struct{}

func (r ExtendedSignatureCalendarChainRootHashRule) String() string { return getName(r) }
func (r ExtendedSignatureCalendarChainRootHashRule) Verify(context *VerificationContext) (*RuleResult, error) {
	if context == nil || context.signature == nil {
		return invalidContext(r)
	}
	cal := context.signature.calChain
	if cal == nil {
		return succeeded(r)
	}
	ext, err := context.extendTo(TargetCalendar)
	if err != nil {
		return inconclusive(r, err)
	}
	sigRoot, err := cal.CalculateOutput()
	if err != nil {
		return newRuleResult(r, result.FAIL).setErrCode(reserr.Cal01).setCause(err), nil
	}
	extRoot, err := ext.CalculateOutput()
	if err != nil {
		return newRuleResult(r, result.FAIL).setErrCode(reserr.Cal01).setCause(err), nil
	}
	if !sigRoot.Equal(extRoot) {
		return failed(r, reserr.Cal01)
	}
	return succeeded(r)
}

// ExtendedSignatureCalendarChainRightLinksMatchRule verifies that the right links of the received calendar hash
// chain match the right links of the signature calendar hash chain. Returns OK if the signature has no calendar
// hash chain.
// Returns OK or FAIL(CAL-04).
type ExtendedSignatureCalendarChainRightLinksMatchRule struct{}

func (r ExtendedSignatureCalendarChainRightLinksMatchRule) String() string { return getName(r) }
func (r ExtendedSignatureCalendarChainRightLinksMatchRule) Verify(context *VerificationContext) (*RuleResult, error) {
	if context == nil || context.signature == nil {
		return invalidContext(r)
	}
	cal := context.signature.calChain
	if cal == nil {
		return succeeded(r)
	}
	ext, err := context.extendTo(TargetCalendar)
	if err != nil {
		return inconclusive(r, err)
	}
	if err := cal.RightLinksMatch(ext); err != nil {
		return newRuleResult(r, result.FAIL).setErrCode(reserr.Cal04).setCause(err), nil
	}
	return succeeded(r)
}

/*
----------------------------------------
Publications file rules
----------------------------------------
*/

// PublicationsFileContainsSignaturePublicationRule verifies that the publications file contains a publication
// with the publication time of the signature publication record.
// Returns OK or NA(GEN-02).
type PublicationsFileContainsSignaturePublicationRule struct{}

func (r PublicationsFileContainsSignaturePublicationRule) String() string { return getName(r) }
func (r PublicationsFileContainsSignaturePublicationRule) Verify(context *VerificationContext) (*RuleResult, error) {
	if context == nil || context.signature == nil {
		return invalidContext(r)
	}
	rec, err := signaturePublicationInFile(context)
	if err != nil {
		return inconclusive(r, err)
	}
	if rec == nil {
		return inconclusive(r, nil)
	}
	return succeeded(r)
}

func signaturePublicationInFile(context *VerificationContext) (*pdu.PublicationRec, error) {
	sigRec := context.signature.pubRec
	if sigRec == nil {
		return nil, errors.New(errors.KsiInvalidStateError).AppendMessage("Signature does not contain publication record.")
	}
	file, err := context.publicationsFile()
	if err != nil {
		return nil, err
	}
	return file.PublicationRec(publications.PubRecSearchByTime(sigRec.PublicationData().PublicationTime()))
}

// PublicationsFileSignaturePublicationHashRule verifies that the published hash of the signature publication
// record matches the publication of the publications file with the same publication time.
// Returns OK, NA(GEN-02) or FAIL(PUB-05).
type PublicationsFileSignaturePublicationHashRule struct{}

func (r PublicationsFileSignaturePublicationHashRule) String() string { return getName(r) }
func (r PublicationsFileSignaturePublicationHashRule) Verify(context *VerificationContext) (*RuleResult, error) {
	if context == nil || context.signature == nil {
		return invalidContext(r)
	}
	rec, err := signaturePublicationInFile(context)
	if err != nil {
		return inconclusive(r, err)
	}
	if rec == nil {
		return inconclusive(r, nil)
	}
	if !rec.PublicationData().PublishedHash().Equal(context.signature.pubRec.PublicationData().PublishedHash()) {
		return failed(r, reserr.Pub05)
	}
	return succeeded(r)
}

// PublicationsFileContainsPublicationRule verifies that the publications file contains a publication at or after
// the signing time, that is a publication the signature can be extended to.
// Returns OK or NA(GEN-02).
type PublicationsFileContainsPublicationRule struct{}

func (r PublicationsFileContainsPublicationRule) String() string { return getName(r) }
func (r PublicationsFileContainsPublicationRule) Verify(context *VerificationContext) (*RuleResult, error) {
	if context == nil || context.signature == nil {
		return invalidContext(r)
	}
	if _, err := context.targetPublication(TargetPublicationsFile); err != nil {
		return inconclusive(r, err)
	}
	return succeeded(r)
}

/*
----------------------------------------
User provided publication rules
----------------------------------------
*/

// UserProvidedPublicationExistsRule verifies that the user publication is provided.
// Returns OK or NA(GEN-02).
type UserProvidedPublicationExistsRule struct{}

func (r UserProvidedPublicationExistsRule) String() string { return getName(r) }
func (r UserProvidedPublicationExistsRule) Verify(context *VerificationContext) (*RuleResult, error) {
	if context == nil {
		return invalidContext(r)
	}
	if context.userPublication == nil {
		return inconclusive(r, nil)
	}
	return succeeded(r)
}

// UserProvidedPublicationTimeMatchesRule verifies that the signature publication record has the same publication
// time as the user publication.
// Returns OK or NA(GEN-02).
type UserProvidedPublicationTimeMatchesRule struct{}

func (r UserProvidedPublicationTimeMatchesRule) String() string { return getName(r) }
func (r UserProvidedPublicationTimeMatchesRule) Verify(context *VerificationContext) (*RuleResult, error) {
	if context == nil || context.signature == nil {
		return invalidContext(r)
	}
	if context.userPublication == nil || context.signature.pubRec == nil {
		return inconclusive(r, nil)
	}
	sigPub := context.signature.pubRec.PublicationData()
	if !sigPub.PublicationTime().Equal(context.userPublication.PublicationTime()) {
		return inconclusive(r, nil)
	}
	return succeeded(r)
}

// UserProvidedPublicationHashMatchesRule verifies that the signature publication record published hash matches
// the user publication. The publication times are expected to match, see UserProvidedPublicationTimeMatchesRule.
// Returns OK, NA(GEN-02) or FAIL(PUB-04).
type UserProvidedPublicationHashMatchesRule struct{}

func (r UserProvidedPublicationHashMatchesRule) String() string { return getName(r) }
func (r UserProvidedPublicationHashMatchesRule) Verify(context *VerificationContext) (*RuleResult, error) {
	if context == nil || context.signature == nil {
		return invalidContext(r)
	}
	if context.userPublication == nil || context.signature.pubRec == nil {
		return inconclusive(r, nil)
	}
	sigPub := context.signature.pubRec.PublicationData()
	if !sigPub.PublishedHash().Equal(context.userPublication.PublishedHash()) {
		return failed(r, reserr.Pub04)
	}
	return succeeded(r)
}

// UserProvidedPublicationCreationTimeRule verifies that the user publication is not older than the signature,
// that is the signature can be extended to it.
// Returns OK or NA(GEN-02).
type UserProvidedPublicationCreationTimeRule struct{}

func (r UserProvidedPublicationCreationTimeRule) String() string { return getName(r) }
func (r UserProvidedPublicationCreationTimeRule) Verify(context *VerificationContext) (*RuleResult, error) {
	if context == nil || context.signature == nil {
		return invalidContext(r)
	}
	if context.userPublication == nil {
		return inconclusive(r, nil)
	}
	if context.userPublication.PublicationTime().Before(context.signature.SigningTime()) {
		return inconclusive(r, errors.New(errors.KsiInvalidStateError).
			AppendMessage("User publication precedes the signing time."))
	}
	return succeeded(r)
}

// UserProvidedPublicationVerificationRule verifies that the signature publication record equals the user
// publication.
// Returns OK, NA(GEN-02) or FAIL(PUB-04).
type UserProvidedPublicationVerificationRule struct{}

func (r UserProvidedPublicationVerificationRule) String() string { return getName(r) }
func (r UserProvidedPublicationVerificationRule) Verify(context *VerificationContext) (*RuleResult, error) {
	if context == nil || context.signature == nil {
		return invalidContext(r)
	}
	if context.userPublication == nil || context.signature.pubRec == nil {
		return inconclusive(r, nil)
	}
	sigPub := context.signature.pubRec.PublicationData()
	switch {
	case sigPub.Equal(context.userPublication):
		return succeeded(r)
	case sigPub.PublicationTime().Equal(context.userPublication.PublicationTime()):
		return failed(r, reserr.Pub04)
	default:
		return inconclusive(r, nil)
	}
}

/*
----------------------------------------
Key-based rules
----------------------------------------
*/

func calAuthRecCertificate(context *VerificationContext) (*pdu.CertificateRecord, error) {
	rec := context.signature.calAuthRec
	if rec == nil || rec.SignatureData() == nil {
		return nil, errors.New(errors.KsiInvalidStateError).
			AppendMessage("Signature does not contain calendar authentication record.")
	}
	file, err := context.publicationsFile()
	if err != nil {
		return nil, err
	}
	return file.Certificate(rec.SignatureData().CertID())
}

// CertificateExistenceRule verifies that the certificate referenced by the calendar authentication record is
// present in the publications file.
// Returns OK, NA(GEN-02) or FAIL(KEY-01).
type CertificateExistenceRule struct{}

func (r CertificateExistenceRule) String() string { return getName(r) }
func (r CertificateExistenceRule) Verify(context *VerificationContext) (*RuleResult, error) {
	if context == nil || context.signature == nil {
		return invalidContext(r)
	}
	cert, err := calAuthRecCertificate(context)
	if err != nil {
		return inconclusive(r, err)
	}
	if cert == nil {
		return failed(r, reserr.Key01)
	}
	return succeeded(r)
}

// CertificateValidityRule verifies that the certificate referenced by the calendar authentication record was
// valid at the signing time.
// Returns OK, NA(GEN-02) or FAIL(KEY-03).
type CertificateValidityRule struct{}

func (r CertificateValidityRule) String() string { return getName(r) }
func (r CertificateValidityRule) Verify(context *VerificationContext) (*RuleResult, error) {
	if context == nil || context.signature == nil {
		return invalidContext(r)
	}
	cert, err := calAuthRecCertificate(context)
	if err != nil {
		return inconclusive(r, err)
	}
	if cert == nil {
		return failed(r, reserr.Key01)
	}
	valid, err := cert.IsValid(context.signature.SigningTime())
	if err != nil {
		return inconclusive(r, err)
	}
	if !valid {
		return failed(r, reserr.Key03)
	}
	return succeeded(r)
}

// CalendarAuthRecordSignatureVerificationRule verifies the PKI signature of the calendar authentication record with
// the certificate from the publications file.
// Returns OK, NA(GEN-02) or FAIL(KEY-02).
type CalendarAuthRecordSignatureVerificationRule struct{}

func (r CalendarAuthRecordSignatureVerificationRule) String() string { return getName(r) }
func (r CalendarAuthRecordSignatureVerificationRule) Verify(context *VerificationContext) (*RuleResult, error) {
	if context == nil || context.signature == nil {
		return invalidContext(r)
	}
	cert, err := calAuthRecCertificate(context)
	if err != nil {
		return inconclusive(r, err)
	}
	if cert == nil {
		return failed(r, reserr.Key01)
	}

	rec := context.signature.calAuthRec
	signed, err := rec.PublicationData().Bytes()
	if err != nil {
		return inconclusive(r, err)
	}
	sigData := rec.SignatureData()
	if err := cert.VerifySignature(sigData.SignatureType(), signed, sigData.SignatureValue()); err != nil {
		if errors.CodeOf(err) == errors.KsiInvalidPkiSignature {
			log.Debug("Calendar authentication record signature verification failed: ", err)
			return newRuleResult(r, result.FAIL).setErrCode(reserr.Key02).setCause(err), nil
		}
		return inconclusive(r, err)
	}
	return succeeded(r)
}
