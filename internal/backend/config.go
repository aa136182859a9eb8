package backend

import (
	"errors"
	"fmt"
	"strings"

	"expense-tracker/internal/config"
)

// FromAppConfig picks the backend named by DATA_BACKEND and copies the
// settings it needs.
func FromAppConfig(appConfig *config.Config) (Config, error) {
	if appConfig == nil {
		return Config{}, errors.New("app config is nil")
	}
	c := Config{
		Type:          BackendType(appConfig.DataBackend),
		MongoURI:      appConfig.MongoURI,
		MongoDatabase: appConfig.MongoDatabase,
		SQLiteDBPath:  appConfig.SQLiteDBPath,
	}
	return c, c.Validate()
}

// Validate reports the environment variables the selected backend is
// missing.
func (c Config) Validate() error {
	if !c.Type.IsValid() {
		return fmt.Errorf("unknown backend %q, want mongo, sqlite or memory", c.Type)
	}

	var missing []string
	switch c.Type {
	case MongoBackend:
		if c.MongoURI == "" {
			missing = append(missing, "MONGO_URI")
		}
		if c.MongoDatabase == "" {
			missing = append(missing, "MONGO_DATABASE")
		}
	case SQLiteBackend:
		if c.SQLiteDBPath == "" {
			missing = append(missing, "SQLITE_DB_PATH")
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%s backend requires %s", c.Type, strings.Join(missing, ", "))
	}
	return nil
}
