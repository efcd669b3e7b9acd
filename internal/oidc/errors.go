// Copyright 2026 The Terrier Authors
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

package oidc

import (
	"errors"
	"fmt"
	"net/url"
)

// Client errors
var (
	ErrDiscovery      = errors.New("oidc discovery failed")
	ErrExchange       = errors.New("oidc code exchange failed")
	ErrMissingIDToken = errors.New("token response has no id_token")
	ErrInvalidIDToken = errors.New("invalid id_token")
	ErrNonceMismatch  = errors.New("id_token nonce mismatch")
)

// Error is an error response returned by the provider on the redirect back
// to the callback (OIDC Core 3.1.2.6).
type Error struct {
	Code        string `json:"error"`
	Description string `json:"error_description,omitempty"`
	URI         string `json:"error_uri,omitempty"`
	State       string `json:"state,omitempty"`
}

func (e *Error) Error() string {
	if e.Description == "" {
		return fmt.Sprintf("oidc error: %s", e.Code)
	}
	return fmt.Sprintf("oidc error: %s (%s)", e.Code, e.Description)
}

// Provider error codes the callback distinguishes
const (
	ErrCodeAccessDenied        = "access_denied"
	ErrCodeLoginRequired       = "login_required"
	ErrCodeConsentRequired     = "consent_required"
	ErrCodeInteractionRequired = "interaction_required"
)

// ErrorFromQuery returns the provider error carried in a callback query,
// or nil when there is none.
func ErrorFromQuery(q url.Values) *Error {
	code := q.Get("error")
	if code == "" {
		return nil
	}
	return &Error{
		Code:        code,
		Description: q.Get("error_description"),
		URI:         q.Get("error_uri"),
		State:       q.Get("state"),
	}
}
