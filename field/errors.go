// Copyright 2026 streamgen Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package field

import "fmt"

// DomainError reports mathematically invalid input: a singular matrix where
// an invertible one is required, an unsupported field order, an index that
// falls outside a vector during permutation. It is raised eagerly and never
// retried.
type DomainError struct {
	Op  string // operation that rejected the input, e.g. "Inverse"
	Msg string
}

func (e *DomainError) Error() string {
	return fmt.Sprintf("field: %s: %s", e.Op, e.Msg)
}

// domainErrf builds a DomainError with a formatted message.
func domainErrf(op, format string, args ...any) *DomainError {
	return &DomainError{Op: op, Msg: fmt.Sprintf(format, args...)}
}
