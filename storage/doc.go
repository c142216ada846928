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


// Package storage defines the persistence contracts used by newswire.
//
// Relational data (keywords, articles and the URL ledger) lives behind
// KeywordRepository, ArticleRepository and URLLedger, implemented by the
// sqlite package. The retrieval index snapshot lives behind ChunkStore,
// implemented by the badger package.
//
// # URL ledger
//
// The ledger is append-only. Purging articles never touches it, so a URL
// that was ingested once is never ingested again.
//
// # Soft deletion
//
// Archiving a keyword marks its articles inactive with
// ReasonKeywordArchived. Reactivating the keyword restores exactly those
// rows. Rows soft-deleted for any other reason stay inactive.
//
// # Thread Safety
//
// All implementations must be safe for concurrent use.
package storage
