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
	"github.com/google/uuid"

	"github.com/guardtime/ksicore/errors"
	"github.com/guardtime/ksicore/log"
	"github.com/guardtime/ksicore/signature/verify/reserr"
	"github.com/guardtime/ksicore/signature/verify/result"
)

// Verifier executes verification policies.
//
// A policy is run against the verification context. If the policy ends inconclusive (NA) and declares a fallback
// policy, a new verification context is derived for the fallback and the fallback is run. FAIL is final and never
// falls back. The outcome of every executed policy is collected into the VerificationResult.
type Verifier struct {
	// Limits the length of the fallback chain, guarding against cyclic policy graphs.
	maxPolicies int
}

const defaultMaxPolicies = 16

// NewVerifier returns a new verifier.
func NewVerifier() *Verifier {
	return &Verifier{maxPolicies: defaultMaxPolicies}
}

// Verify runs the policy p against the context ctx. The returned error is reserved for invalid input, the
// verification outcome is always reported in the result.
func (v *Verifier) Verify(ctx *VerificationContext, p *Policy) (*VerificationResult, error) {
	if v == nil || ctx == nil || ctx.signature == nil || p == nil {
		return nil, errors.New(errors.KsiInvalidArgumentError)
	}

	res := &VerificationResult{id: uuid.New()}
	log.Info("[", res.id, "] Verifying signature with policy ", p, ".")

	for policy := p; policy != nil; {
		polRes := v.runPolicy(res.id, ctx, policy)
		res.policyResult = append(res.policyResult, polRes)

		if polRes.resCode != result.NA || policy.fallback == nil {
			break
		}
		if len(res.policyResult) >= v.maxPolicies {
			log.Warning("[", res.id, "] Fallback chain too long, stopping at policy ", policy, ".")
			break
		}
		log.Info("[", res.id, "] Policy ", policy, " inconclusive, falling back to ", policy.fallback, ".")
		ctx = ctx.deriveFallback(policy.fallbackCtx)
		policy = policy.fallback
	}

	log.Info("[", res.id, "] Verification result: ", res.ResultCode(), "(", res.ErrorCode(), ").")
	return res, nil
}

func (v *Verifier) runPolicy(id uuid.UUID, ctx *VerificationContext, p *Policy) *PolicyResult {
	polRes := &PolicyResult{policyName: p.name, resCode: result.NA}
	if len(p.rules) == 0 {
		log.Debug("[", id, "] Policy ", p, " has no rules.")
		return polRes
	}

	for _, rule := range p.rules {
		var ruleRes *RuleResult
		if rule == nil {
			err := errors.New(errors.KsiInvalidStateError).AppendMessage("Nil rule in policy.")
			ruleRes = &RuleResult{resCode: result.NA, errCode: reserr.Gen02, ruleName: "<nil>", cause: err}
		} else {
			ruleRes = runRule(rule, ctx)
		}
		polRes.ruleResults = append(polRes.ruleResults, ruleRes)
		polRes.resCode = ruleRes.resCode
		if ruleRes.resCode != result.OK {
			break
		}
	}
	log.Debug("[", id, "] Policy ", p, " result: ", polRes.resCode, ".")
	return polRes
}
