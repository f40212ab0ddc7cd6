// Copyright 2025 walteh LLC
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

package discovery

import (
	"gitlab.com/tozd/go/errors"
)

var (
	ErrEmptyIndex     = errors.Base("proxy returned an empty index")
	ErrNoRepositories = errors.Base("proxy index lists no repositories")
)

// ❌ Error is a failed discovery. It aborts the run before any file is touched.
type Error struct {
	URL string
	Err error
}

func (e *Error) Error() string {
	return "discovering repositories at " + e.URL + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error {
	return e.Err
}
