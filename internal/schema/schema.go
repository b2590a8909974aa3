package schema

import (
	"fmt"

	"github.com/yourbasic/graph"

	"github.com/avorren/murmur-mysql2sqlite/pkg/models"
)

// Tables lists every Murmur table in migration order. Children follow the
// parents they reference, so channels are migrated before their ACL entries,
// users before their user_info rows, and so on. The order is a heuristic
// based on the known Murmur schema; no referential integrity is enforced
// during the copy itself.
var Tables = []models.TableSpec{
	{
		Name:    "servers",
		Columns: []string{"server_id"},
	},
	{
		Name:      "channels",
		Columns:   []string{"server_id", "channel_id", "parent_id", "name", "inheritacl"},
		Parents:   []string{"servers"},
		LogColumn: "name",
	},
	{
		Name:      "users",
		Columns:   []string{"server_id", "user_id", "name", "pw", "lastchannel", "texture", "last_active"},
		Parents:   []string{"servers"},
		LogColumn: "name",
	},
	{
		Name:      "groups",
		Columns:   []string{"group_id", "server_id", "name", "channel_id", "inherit", "inheritable"},
		Parents:   []string{"servers", "channels"},
		LogColumn: "name",
	},
	{
		Name:    "acl",
		Columns: []string{"server_id", "channel_id", "priority", "user_id", "group_name", "apply_here", "apply_sub", "grantpriv", "revokepriv"},
		Parents: []string{"servers", "channels"},
	},
	{
		Name:    "bans",
		Columns: []string{"server_id", "base", "mask", "name", "hash", "reason", "start", "duration"},
		Parents: []string{"servers"},
	},
	{
		Name:    "channel_info",
		Columns: []string{"server_id", "channel_id", "key", "value"},
		Parents: []string{"channels"},
	},
	{
		Name:    "channel_links",
		Columns: []string{"server_id", "channel_id", "link_id"},
		Parents: []string{"channels"},
	},
	{
		Name:    "config",
		Columns: []string{"server_id", "key", "value"},
		Parents: []string{"servers"},
	},
	{
		Name:    "group_members",
		Columns: []string{"group_id", "server_id", "user_id", "addit"},
		Parents: []string{"groups", "users"},
	},
	{
		Name:    "meta",
		Columns: []string{"keystring", "value"},
	},
	{
		Name:    "slog",
		Columns: []string{"server_id", "msg", "msgtime"},
		Parents: []string{"servers"},
	},
	{
		Name:    "user_info",
		Columns: []string{"server_id", "user_id", "key", "value"},
		Parents: []string{"users"},
	},
}

// MigrationOrder returns the table names in the order they are migrated
func MigrationOrder() []string {
	names := make([]string, len(Tables))
	for i, spec := range Tables {
		names[i] = spec.Name
	}
	return names
}

// ExpectedTables returns the set of table names that must exist on both
// backends before a migration run
func ExpectedTables() []string {
	return MigrationOrder()
}

// Lookup returns the spec for a table name
func Lookup(name string) (models.TableSpec, bool) {
	for _, spec := range Tables {
		if spec.Name == name {
			return spec, true
		}
	}
	return models.TableSpec{}, false
}

// VerifyOrder checks that the declared parent relationships form an acyclic
// graph and that the fixed migration order is a valid topological order of
// it. A non-nil error means the table declarations above are inconsistent.
func VerifyOrder() error {
	index := make(map[string]int, len(Tables))
	for i, spec := range Tables {
		index[spec.Name] = i
	}

	g := graph.New(len(Tables))
	for i, spec := range Tables {
		for _, parent := range spec.Parents {
			j, ok := index[parent]
			if !ok {
				return fmt.Errorf("table %s references undeclared parent %s", spec.Name, parent)
			}
			g.Add(j, i)
		}
	}

	if _, ok := graph.TopSort(g); !ok {
		return fmt.Errorf("table dependencies contain a cycle")
	}

	for i, spec := range Tables {
		for _, parent := range spec.Parents {
			if index[parent] >= i {
				return fmt.Errorf("table %s is migrated before its parent %s", spec.Name, parent)
			}
		}
	}

	return nil
}
