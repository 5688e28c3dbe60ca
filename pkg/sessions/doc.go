// Package sessions persists the cookie state of logged in identities.
//
// Every backend implements Store and keys records by username:
//
//   - MemoryStore keeps records for the life of the process
//   - FileStore writes one JSON file per username
//   - EncryptedFileStore keeps all records in one AES-GCM encrypted file
//   - KeyringStore uses the system keychain
//   - RedisStore uses a redis server, expiring keys with the session TTL
//   - SQLiteStore uses a sqlite table
//   - EnvironmentStore serves cookies exported in IGFEED_SESSION_ID and
//     IGFEED_CSRF_TOKEN and cannot be written
//
// Open selects a backend from configuration and chains the environment store
// behind it.
package sessions
