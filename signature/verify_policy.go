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
	"github.com/guardtime/ksicore/errors"
	"github.com/guardtime/ksicore/pdu"
	"github.com/guardtime/ksicore/signature/verify"
)

// Policy is an ordered list of verification rules. The rules are executed in order until the first rule that does
// not succeed. A policy that ends inconclusive (NA) hands over to its fallback policy, if one is set.
//
// Policy values are immutable, use WithFallback for deriving a policy with a different fallback.
type Policy struct {
	name        string
	rules       []Rule
	fallback    *Policy
	fallbackCtx *PolicyContext
}

// NewPolicy returns a new policy with the given name and rules.
func NewPolicy(name string, rules ...Rule) *Policy {
	return &Policy{
		name:  name,
		rules: append([]Rule(nil), rules...),
	}
}

// WithFallback returns a copy of the receiver policy with the fallback policy set. If pc is not nil, the fallback
// policy is executed with a verification context built from pc, otherwise the collaborators of the original
// verification context are carried over.
func (p *Policy) WithFallback(fallback *Policy, pc *PolicyContext) *Policy {
	if p == nil {
		return nil
	}
	tmp := *p
	tmp.fallback = fallback
	tmp.fallbackCtx = pc
	return &tmp
}

func (p *Policy) String() string {
	if p == nil {
		return ""
	}
	return p.name
}

// Name returns the policy name.
func (p *Policy) Name() string {
	return p.String()
}

// Rules returns a copy of the policy rules.
func (p *Policy) Rules() []Rule {
	if p == nil {
		return nil
	}
	return append([]Rule(nil), p.rules...)
}

// Fallback returns the fallback policy, or nil if not set.
func (p *Policy) Fallback() *Policy {
	if p == nil {
		return nil
	}
	return p.fallback
}

// FallbackContext returns the context of the fallback policy, or nil if not set.
func (p *Policy) FallbackContext() *PolicyContext {
	if p == nil {
		return nil
	}
	return p.fallbackCtx
}

// PolicyContext holds the verification collaborators of a fallback policy.
type PolicyContext struct {
	extender         verify.Extender
	extendingAllowed bool
	pubFileProvider  verify.PublicationsFileProvider
	userPublication  *pdu.PublicationData
}

// PolicyCtxOption is an option for initializing a PolicyContext.
type PolicyCtxOption func(*PolicyContext) error

// NewPolicyContext returns a new policy context. By default extending is not allowed and all collaborators are
// unset.
func NewPolicyContext(opts ...PolicyCtxOption) (*PolicyContext, error) {
	var tmp PolicyContext
	for _, optSetter := range opts {
		if optSetter == nil {
			return nil, errors.New(errors.KsiInvalidArgumentError).AppendMessage("Provided option is nil.")
		}
		if err := optSetter(&tmp); err != nil {
			return nil, errors.KsiErr(err).AppendMessage("Unable to setup policy context.")
		}
	}
	return &tmp, nil
}

// PolicyCtxOptExtender sets the extender. Providing an extender also allows extending.
func PolicyCtxOptExtender(e verify.Extender) PolicyCtxOption {
	return func(c *PolicyContext) error {
		if e == nil {
			return errors.New(errors.KsiInvalidArgumentError).AppendMessage("Missing extender.")
		}
		c.extender = e
		c.extendingAllowed = true
		return nil
	}
}

// PolicyCtxOptExtendingAllowed sets whether extending is allowed.
func PolicyCtxOptExtendingAllowed(b bool) PolicyCtxOption {
	return func(c *PolicyContext) error {
		c.extendingAllowed = b
		return nil
	}
}

// PolicyCtxOptPublicationsFileProvider sets the publications file provider.
func PolicyCtxOptPublicationsFileProvider(p verify.PublicationsFileProvider) PolicyCtxOption {
	return func(c *PolicyContext) error {
		if p == nil {
			return errors.New(errors.KsiInvalidArgumentError).AppendMessage("Missing publications file provider.")
		}
		c.pubFileProvider = p
		return nil
	}
}

// PolicyCtxOptUserPublication sets the user publication.
func PolicyCtxOptUserPublication(pub *pdu.PublicationData) PolicyCtxOption {
	return func(c *PolicyContext) error {
		if pub == nil {
			return errors.New(errors.KsiInvalidArgumentError).AppendMessage("Missing user publication.")
		}
		c.userPublication = pub
		return nil
	}
}

// ExtendingAllowed reports whether extending is allowed.
func (c *PolicyContext) ExtendingAllowed() bool {
	return c != nil && c.extendingAllowed
}

func internalRules() []Rule {
	return []Rule{
		DocumentHashAlgorithmRule{},
		DocumentHashRule{},
		DocumentHashLevelRule{},
		DocumentHashAlgorithmDeprecatedRule{},
		InputHashAlgorithmRule{},

		Rfc3161RecordHashAlgorithmsRule{},
		Rfc3161RecordOutputHashAlgorithmRule{},
		Rfc3161RecordIndexRule{},
		Rfc3161RecordAggregationTimeRule{},

		AggregationChainInputHashRule{},
		AggregationChainIndexContinuationRule{},
		AggregationChainMetadataPaddingRule{},
		AggregationChainHashAlgorithmRule{},
		AggregationChainConsistencyRule{},
		AggregationChainTimeConsistencyRule{},
		AggregationChainIndexConsistencyRule{},

		CalendarChainInputHashRule{},
		CalendarChainAggregationTimeRule{},
		CalendarChainRegisteredTimeRule{},
		CalendarChainHashAlgorithmObsoleteRule{},

		CalendarAuthRecordPublicationTimeRule{},
		CalendarAuthRecordPublicationHashRule{},

		PublicationRecordPublicationTimeRule{},
		PublicationRecordPublicationHashRule{},
	}
}

func withInternal(rules ...Rule) []Rule {
	return append(internalRules(), rules...)
}

// extendingRules verifies the signature by extending it to the publication of the target.
func extendingRules(t ExtendTarget) []Rule {
	return []Rule{
		ExtendingPermittedRule{},
		ExtenderResponseHashAlgorithmDeprecatedRule{Target: t},
		ExtenderResponsePublicationHashRule{Target: t},
		ExtenderResponsePublicationTimeRule{Target: t},
		ExtendedSignatureCalendarChainInputHashRule{Target: t},
	}
}

var (
	// InternalPolicy verifies the consistency of the internal components of the signature without requiring any
	// additional data. If the document hash is provided, the signature is verified against it.
	//
	// Verification context options used:
	//   VerCtxOptDocumentHash   - Document hash (optional).
	//   VerCtxOptInputHashLevel - Input hash level (optional).
	InternalPolicy = NewPolicy("InternalPolicy", internalRules()...)

	// CalendarBasedPolicy verifies the signature against the calendar hash chain received from the extender. An
	// extended signature is compared with the calendar chain of its publication, a signature without calendar hash
	// chain is extended to the calendar head.
	//
	// Verification context options used:
	//   VerCtxOptExtendingPermitted - Must be permitted.
	//   VerCtxOptExtender           - Extender.
	CalendarBasedPolicy = NewPolicy("CalendarBasedPolicy", withInternal(
		ExtendingPermittedRule{},
		ExtendedSignatureCalendarChainInputHashRule{Target: TargetCalendar},
		ExtendedSignatureCalendarChainAggregationTimeRule{Target: TargetCalendar},
		ExtendedSignatureCalendarChainRootHashRule{},
		ExtendedSignatureCalendarChainRightLinksMatchRule{},
	)...)

	// KeyBasedPolicy verifies the PKI signature of the calendar authentication record with a certificate from
	// the publications file.
	//
	// Verification context options used:
	//   VerCtxOptPublicationsFile or VerCtxOptPublicationsFileProvider.
	KeyBasedPolicy = NewPolicy("KeyBasedPolicy", withInternal(
		CalendarChainExistsRule{},
		CalendarAuthRecordExistsRule{},
		CertificateExistenceRule{},
		CertificateValidityRule{},
		CalendarAuthRecordSignatureVerificationRule{},
	)...)

	// PublicationsFileBasedPolicy verifies the signature publication record against the publications file. If the
	// signature is not extended to a publication of the file, it is extended to the earliest publication of the
	// file following the signing time.
	//
	// Verification context options used:
	//   VerCtxOptPublicationsFile or VerCtxOptPublicationsFileProvider.
	//   VerCtxOptExtendingPermitted - Permit extending (optional).
	//   VerCtxOptExtender           - Extender (optional).
	PublicationsFileBasedPolicy = NewPolicy("PublicationsFileBasedPolicy", withInternal(
		NewOrRule(
			NewAndRule(
				SignaturePublicationRecordExistsRule{},
				PublicationsFileContainsSignaturePublicationRule{},
			),
			NewAndRule(append([]Rule{
				NotRule{Rule: PublicationsFileContainsSignaturePublicationRule{}},
				PublicationsFileContainsPublicationRule{},
			}, extendingRules(TargetPublicationsFile)...)...),
		),
		// Signature publication found in the file must match it.
		NewOrRule(
			NotRule{Rule: PublicationsFileContainsSignaturePublicationRule{}},
			NewAndRule(
				PublicationsFileSignaturePublicationHashRule{},
				CalendarChainAlgorithmDeprecatedRule{},
			),
		),
	)...)

	// UserProvidedPublicationBasedPolicy verifies the signature against the publication provided by the user. If
	// the signature is not extended to the given publication, it is extended to it.
	//
	// Verification context options used:
	//   VerCtxOptUserPublication    - User publication.
	//   VerCtxOptExtendingPermitted - Permit extending (optional).
	//   VerCtxOptExtender           - Extender (optional).
	UserProvidedPublicationBasedPolicy = NewPolicy("UserProvidedPublicationBasedPolicy", withInternal(
		UserProvidedPublicationExistsRule{},
		NewOrRule(
			UserProvidedPublicationTimeMatchesRule{},
			NewAndRule(append([]Rule{
				NotRule{Rule: UserProvidedPublicationTimeMatchesRule{}},
				UserProvidedPublicationCreationTimeRule{},
			}, extendingRules(TargetUserPublication)...)...),
		),
		// Signature publication at the user publication time must match it.
		NewOrRule(
			NotRule{Rule: UserProvidedPublicationTimeMatchesRule{}},
			NewAndRule(
				UserProvidedPublicationHashMatchesRule{},
				CalendarChainAlgorithmDeprecatedRule{},
			),
		),
	)...)

	// DefaultPolicy is the publications file based policy with fallback to the key based policy. It is the
	// recommended policy unless some restriction dictates the use of a specific one.
	DefaultPolicy = NewPolicy("DefaultPolicy", PublicationsFileBasedPolicy.Rules()...).
			WithFallback(KeyBasedPolicy, nil)
)
