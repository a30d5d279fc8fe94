package cmd

import (
	"fmt"
	"strings"

	"github.com/zigral/zigral/pkg/contextstore"
	"github.com/zigral/zigral/pkg/contextstore/file"
	"github.com/zigral/zigral/pkg/contextstore/postgres"
)

var supportedStoreProviders = []string{"memory", "file", "postgres", "postgresql"}

func NewContextStore(databaseURL string) contextstore.Store {
	switch parseStoreProvider(databaseURL) {
	case "postgres", "postgresql":
		store, err := postgres.NewStore(databaseURL)
		if err != nil {
			panic(fmt.Errorf("failed to open postgres context store: %w", err))
		}

		return store
	case "file":
		return file.NewStore(databaseURL)
	default:
		return contextstore.NewMemoryStore()
	}
}

func parseStoreProvider(databaseURL string) string {
	provider, _, found := strings.Cut(databaseURL, "://")
	if !found {
		return "memory"
	}

	for _, supported := range supportedStoreProviders {
		if provider == supported {
			return provider
		}
	}

	return "memory"
}
