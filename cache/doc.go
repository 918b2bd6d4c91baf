// Copyright 2025 The Rivaas Authors
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

// Package cache stores rendered responses for handlers that opt into
// response caching.
//
// A [Store] holds opaque bytes with a TTL. [Memory] keeps entries in process
// (patrickmn/go-cache); [Redis] shares them across instances
// (go-redis/redis/v8). Responses are serialized as MessagePack [Entry]
// values under the key computed by [Key].
package cache
