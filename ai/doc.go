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

// Package ai provides abstractions for the AI services used by newswire.
//
// Two capabilities are consumed by the rest of the module:
//
//   - Completer: chat completions, with a JSON variant used to read
//     structured article evaluations
//   - Embedder: text embeddings for similarity scoring and retrieval
//
// AIProvider bundles both so they share configuration and lifecycle.
//
// # Implementation Packages
//
//   - ai/openai: production implementation using OpenAI-compatible APIs
//   - ai/mock: test doubles for unit testing without external services
//
// Public constructors in ai/openai return interface types. Mock constructors
// return concrete types so tests can inject behavior and read call counts.
//
// # Model Output
//
// Models frequently wrap JSON in markdown fences, surround it with prose, or
// drop the opening quote of a key. CleanJSON, DecodeObject and DecodeArray
// normalize these replies before decoding.
package ai
