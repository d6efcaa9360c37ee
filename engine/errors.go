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


package engine

import "errors"

var (
	// ErrRepositoryRequired indicates no entity repository was provided.
	ErrRepositoryRequired = errors.New("entity repository is required")

	// ErrEmbedderRequired indicates no embedding provider was provided.
	ErrEmbedderRequired = errors.New("embedder is required")

	// ErrUpstreamFetch wraps entity-store and embedding-provider failures so
	// callers can tell them apart from ranking errors with errors.Is. The
	// engine does not retry; retry policy belongs to the request layer.
	ErrUpstreamFetch = errors.New("upstream fetch failed")
)
