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


// Package search answers retrieval queries with whole articles.
//
// The Searcher asks the retrieval index for matching chunks, keeps the best
// chunk of each article, loads the articles from the store and ranks them:
//   - Similarity of the best chunk to the query
//   - A boost when every non-stop-word of the query appears verbatim
//
// Articles that were purged or soft-deleted since the index was last
// rebuilt are left out.
package search
