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

package log

// Logger is the logger interface.
type Logger interface {
	// Debug for debug priority logging. Events generated to aid in debugging and
	// following the application flow.
	Debug(v ...interface{})
	// Info for info priority logging. Events that do not change the outcome of an operation,
	// but can aid in status and statistics monitoring.
	Info(v ...interface{})
	// Notice for notice priority logging. Normal but significant changes in state.
	Notice(v ...interface{})
	// Warning for warning priority logging. Failures that the caller can recover from.
	Warning(v ...interface{})
	// Error for error priority logging. Unrecoverable errors only.
	Error(v ...interface{})
}
