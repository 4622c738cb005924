/*
 *
 * Copyright 2023 CubeFS authors.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 *
 */

/*

# bucketmetad: a bucket-scoped metadata daemon

bucketmetad fronts a single embedded RocksDB instance with a bucket/object shaped
metadata API, so that an S3-compatible layer running as several worker processes on
one host can share one ordered store without any of them opening it directly.

## Roles

* Master - owns the RocksDB instance and the on-disk manifest, serves the RPC
  transport. Exactly one master runs per host.

* Worker - holds one long-lived RPC session to the master, exposes the bucket and
  object operations to whatever sits above it (the S3 API layer, in the intended
  deployment).

## Data model

* Bucket, a name plus an opaque attributes blob (owner, creation time, ACL).

* Object, a (bucket, key) pair with an opaque JSON-serialized value, living inside
  its bucket's namespace.

* Namespace, a key-prefix partition of the shared store, one per bucket plus the
  reserved __metastore namespace.

* Manifest, a JSON file advertising the namespaces a worker may open, republished
  atomically every time a namespace is created.

## Building blocks

* RocksDB (gorocksdb)
* A length-framed gob RPC transport
* Prometheus client_golang

## Non-goals

Cross-host replication, consensus, cross-bucket transactions, secondary indexes,
and durability beyond a synchronous engine write.

*/

package bucketmetad
