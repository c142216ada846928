// Copyright 2025 Poiesic Systems
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

package core

import "errors"

// Domain validation errors
var (
	// ErrInvalidArticle indicates an Article failed validation.
	ErrInvalidArticle = errors.New("invalid article")

	// ErrInvalidKeyword indicates a Keyword failed validation.
	ErrInvalidKeyword = errors.New("invalid keyword")

	// ErrInvalidStatus indicates an unknown keyword status.
	ErrInvalidStatus = errors.New("invalid keyword status")

	// ErrInvalidTransition indicates a keyword status change that is not allowed.
	ErrInvalidTransition = errors.New("invalid keyword transition")

	// ErrInvalidID indicates a malformed article ID.
	ErrInvalidID = errors.New("invalid id")

	// ErrInvalidTimestamp indicates a timestamp is in the future.
	ErrInvalidTimestamp = errors.New("timestamp cannot be in the future")

	// ErrEmptyTitle indicates the article title is empty.
	ErrEmptyTitle = errors.New("title cannot be empty")

	// ErrInvalidURL indicates the article URL is not an absolute http(s) URL.
	ErrInvalidURL = errors.New("url must be absolute http or https")

	// ErrEmptyKeywordName indicates the keyword name is blank.
	ErrEmptyKeywordName = errors.New("keyword name cannot be empty")
)
