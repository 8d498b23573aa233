package secret

// SecretStore is a pluggable interface for sensitive data such as
// source database passwords. The default implementation keeps secrets
// in files; it can be swapped for Vault, a cloud secret manager, etc.
type SecretStore interface {
	// Set stores a secret value under the given key.
	Set(key string, value []byte) error

	// Get retrieves the secret value for the given key.
	// Returns empty slice and nil error if key does not exist.
	Get(key string) ([]byte, error)

	// Delete removes the secret for the given key.
	Delete(key string) error
}
