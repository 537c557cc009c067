// Package tokenstore provides persistent key-value storage for authentication tokens.
//
// Supports four storage backends with different security and deployment tradeoffs:
//   - Keyring: OS-native credential storage (macOS Keychain, Windows Credential Manager, etc.)
//   - File: Unencrypted local JSON file with atomic writes and secure permissions
//   - Env: Read-only environment variable access (requires external secret management)
//   - Memory: Process-local storage, lost on exit
//
// The backend is chosen once at startup. Every backend stores the same two keys,
// AccessTokenKey and RefreshTokenKey, as opaque strings.
package tokenstore
