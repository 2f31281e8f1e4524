package tenancy

import (
	"fmt"
	"regexp"
	"strings"
)

// Database naming policy. The prefix and the total length budget are fixed
// constants; a tenant key that blows the budget is a configuration error at
// onboarding, never a runtime-recoverable condition.
const (
	// DBNamePrefix prefixes every derived tenant database name.
	DBNamePrefix = "hops_t_"
	// MaxDBNameLen is the store's identifier length limit in bytes.
	MaxDBNameLen = 38
)

var dbNamePattern = regexp.MustCompile(`^` + DBNamePrefix + `[a-z0-9_-]+$`)

// ErrBadDatabaseName marks a registry record whose stored or derived database
// name violates the naming policy. This is fatal configuration, not user error.
type ErrBadDatabaseName struct {
	TenantKey string
	DBName    string
	Cause     string
}

func (e *ErrBadDatabaseName) Error() string {
	return fmt.Sprintf("bad database name %q for tenant %q: %s", e.DBName, e.TenantKey, e.Cause)
}

// DeriveDBName deterministically derives a database name from a tenant key.
func DeriveDBName(tenantKey string) (string, error) {
	key := strings.TrimSpace(tenantKey)
	if key == "" {
		return "", &ErrBadDatabaseName{TenantKey: tenantKey, Cause: "empty tenant key"}
	}
	name := DBNamePrefix + key
	return name, validateDBName(key, name)
}

// ResolveDBName applies the naming policy: the stored name wins when present,
// otherwise the name is derived from the tenant key. Either way the result
// must satisfy the prefix pattern and the length budget.
func ResolveDBName(tenantKey, stored string) (string, error) {
	if stored != "" {
		return stored, validateDBName(tenantKey, stored)
	}
	return DeriveDBName(tenantKey)
}

func validateDBName(tenantKey, name string) error {
	if len(name) > MaxDBNameLen {
		return &ErrBadDatabaseName{
			TenantKey: tenantKey,
			DBName:    name,
			Cause:     fmt.Sprintf("exceeds %d byte limit", MaxDBNameLen),
		}
	}
	if !dbNamePattern.MatchString(name) {
		return &ErrBadDatabaseName{
			TenantKey: tenantKey,
			DBName:    name,
			Cause:     fmt.Sprintf("does not match required prefix pattern %q", DBNamePrefix),
		}
	}
	return nil
}
