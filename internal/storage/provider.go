package storage

import "earthtour/internal/ports"

// Provider is the storage abstraction used by the scheduler and the HTTP
// layer. Adapters live under internal/adapters/storage.
type Provider = ports.StorageProvider
