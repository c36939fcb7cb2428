package config

type StoreConfig interface {
	GetProjectsTable() string
	GetStoreBackend() string
	GetStoreInMemory() bool
}

type Store struct{}

var _ StoreConfig = Store{}

func (Store) GetProjectsTable() string {
	return GetEnv("PROJECTS_TABLE", "")
}

// GetStoreBackend is either "badger" or "memory".
func (Store) GetStoreBackend() string {
	return GetEnv("STORE_BACKEND", "badger")
}

func (Store) GetStoreInMemory() bool {
	return GetEnvBool("STORE_IN_MEMORY", false)
}
