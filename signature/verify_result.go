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
	"strings"

	"github.com/google/uuid"

	"github.com/guardtime/ksicore/errors"
	"github.com/guardtime/ksicore/log"
	"github.com/guardtime/ksicore/signature/verify/reserr"
	"github.com/guardtime/ksicore/signature/verify/result"
)

// RuleResult represents Rule result report.
type RuleResult struct {
	resCode  result.Code // Verification result code.
	errCode  reserr.Code // Verification error code.
	ruleName string      // Verification rule.
	// Error that might have occurred during verification causing the given rule result. Provides additional information
	// for further processing (e.g. in case of inconclusive result when fetching some resources).
	cause error
	// Results of the sub-rules of a composite rule, in evaluation order.
	children []*RuleResult
}

func newRuleResult(rule Rule, resCode result.Code) *RuleResult {
	return &RuleResult{
		resCode:  resCode,
		errCode:  reserr.ErrNA,
		ruleName: rule.String(),
	}
}

func (r *RuleResult) setCause(e error) *RuleResult {
	if r != nil {
		r.cause = e
	}
	return r
}

func (r *RuleResult) setErrCode(c reserr.Code) *RuleResult {
	if r != nil {
		r.errCode = c
	}
	return r
}

// String implements fmt.(Stringer) interface.
func (r *RuleResult) String() string {
	if r == nil {
		return ""
	}

	var b strings.Builder
	b.WriteString(fmt.Sprintf("%s: %s(%s)", r.ruleName, r.resCode, r.errCode))
	// Append additional status error info if present.
	if r.cause != nil {
		err := errors.KsiErr(r.cause)
		b.WriteString(fmt.Sprintf(" :: [%04x/%d]", uint16(err.Code()), err.ExtCode()))
		msg := err.Message()
		for i := len(msg); i > 0; i-- {
			b.WriteString(fmt.Sprintf(" %s", msg[i-1]))
		}
		if ext := err.ExtError(); ext != nil {
			b.WriteString(fmt.Sprintf(" (%s)", ext))
		}
	}
	return b.String()
}

// ResultCode returns verification result code for the given Rule.
func (r *RuleResult) ResultCode() result.Code {
	if r == nil {
		return result.NA
	}
	return r.resCode
}

// ErrorCode returns verification error code for the given Rule, or ErrNA if result is OK.
func (r *RuleResult) ErrorCode() reserr.Code {
	if r == nil {
		return reserr.ErrNA
	}
	return r.errCode
}

// Cause returns the error that caused the given rule result, if any (eg. failure to reach the extender).
func (r *RuleResult) Cause() error {
	if r == nil {
		return nil
	}
	return r.cause
}

// RuleName returns a string representation of the given verification Rule.
func (r *RuleResult) RuleName() string {
	if r == nil {
		return ""
	}
	return r.ruleName
}

// Children returns the results of the sub-rules in case of a composite rule.
func (r *RuleResult) Children() []*RuleResult {
	if r == nil {
		return nil
	}
	return r.children
}

// PolicyResult represents policy verification result report.
type PolicyResult struct {
	policyName  string
	resCode     result.Code
	ruleResults []*RuleResult
}

// PolicyName returns the policy name of the receiver policy verification report.
func (p *PolicyResult) PolicyName() string {
	if p == nil {
		return ""
	}
	return p.policyName
}

// ResultCode returns the policy verification result, that is the result of the last executed rule.
func (p *PolicyResult) ResultCode() result.Code {
	if p == nil {
		return result.NA
	}
	return p.resCode
}

// ErrorCode returns the error code of the last executed rule, or ErrNA if the policy succeeded.
func (p *PolicyResult) ErrorCode() reserr.Code {
	if fr := p.FinalResult(); fr != nil && p.resCode != result.OK {
		return fr.errCode
	}
	return reserr.ErrNA
}

// FinalResult returns the result of the last executed rule.
func (p *PolicyResult) FinalResult() *RuleResult {
	if p == nil || len(p.ruleResults) == 0 {
		return nil
	}
	return p.ruleResults[len(p.ruleResults)-1]
}

// RuleResults returns policy rules result report.
func (p *PolicyResult) RuleResults() []*RuleResult {
	if p == nil {
		return nil
	}
	return p.ruleResults
}

// VerificationResult represents signature verification result report.
type VerificationResult struct {
	id           uuid.UUID
	policyResult []*PolicyResult
}

// ID returns the identifier of the verification run. It is included into the log records of the run.
func (r *VerificationResult) ID() string {
	if r == nil {
		return ""
	}
	return r.id.String()
}

// PolicyResults returns policy results report, in the order the policies were executed.
func (r *VerificationResult) PolicyResults() []*PolicyResult {
	if r == nil {
		return nil
	}
	return r.policyResult
}

func (r *VerificationResult) lastPolicy() *PolicyResult {
	if r == nil || len(r.policyResult) == 0 {
		return nil
	}
	return r.policyResult[len(r.policyResult)-1]
}

// FinalResult returns verification result report conclusion: the result of the last executed rule.
func (r *VerificationResult) FinalResult() *RuleResult {
	return r.lastPolicy().FinalResult()
}

// ResultCode returns OK if any of the executed policies succeeded, otherwise the result of the last policy.
func (r *VerificationResult) ResultCode() result.Code {
	if r.IsOK() {
		return result.OK
	}
	return r.lastPolicy().ResultCode()
}

// IsOK reports whether any of the executed policies succeeded.
func (r *VerificationResult) IsOK() bool {
	if r == nil {
		return false
	}
	for _, p := range r.policyResult {
		if p.resCode == result.OK {
			return true
		}
	}
	return false
}

// ErrorCode returns the error code of the last executed policy, or ErrNA if the verification succeeded.
func (r *VerificationResult) ErrorCode() reserr.Code {
	if r.IsOK() {
		return reserr.ErrNA
	}
	return r.lastPolicy().ErrorCode()
}

// Error returns error if the verification has not succeeded, otherwise nil. The verification error code is
// returned as the extended error code of the KsiVerificationFailure error.
func (r *VerificationResult) Error() error {
	if r == nil {
		return errors.New(errors.KsiInvalidArgumentError)
	}
	if r.IsOK() {
		return nil
	}

	code := r.ErrorCode()
	err := errors.New(errors.KsiVerificationFailure).SetExtErrorCode(int(code)).
		AppendMessage(fmt.Sprintf("Signature verification failed: %s(%s).", r.ResultCode(), code)).
		AppendMessage(code.Message())
	log.Debug(err)
	return err
}

// String implements fmt.(Stringer) interface.
func (r *VerificationResult) String() string {
	if r == nil {
		return ""
	}
	var b strings.Builder
	for _, polRes := range r.policyResult {
		b.WriteString("Policy result: ")
		b.WriteString(polRes.policyName)
		b.WriteString("\n")
		for _, ruleRes := range polRes.ruleResults {
			writeRuleResult(&b, ruleRes, 1)
		}
	}
	b.WriteString("Final ")
	if fr := r.FinalResult(); fr != nil {
		b.WriteString(fr.String())
	} else {
		b.WriteString("<no final result>")
	}
	b.WriteString("\n")
	return b.String()
}

func writeRuleResult(b *strings.Builder, r *RuleResult, depth int) {
	b.WriteString(strings.Repeat("  ", depth))
	b.WriteString(r.String())
	b.WriteString("\n")
	for _, c := range r.children {
		writeRuleResult(b, c, depth+1)
	}
}
