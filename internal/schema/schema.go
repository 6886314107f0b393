// Package schema loads and renders the APDB logical schema: column and
// index definitions per table, CQL type mapping, and the DDL needed to
// create (and optionally pre-partition by time) the physical tables.
package schema

import (
	"context"
	"fmt"
	"os"

	"github.com/ap-survey/apdb/internal/apdberr"
	"gopkg.in/yaml.v3"
)

// ColumnDef mirrors the original engine's column description: a name,
// a catalog type name, nullability, and documentation fields carried
// through for operator tooling even though CQL DDL only needs name+type.
type ColumnDef struct {
	Name        string `yaml:"name"`
	Type        string `yaml:"type"`
	Nullable    bool   `yaml:"nullable"`
	Default     any    `yaml:"default,omitempty"`
	Description string `yaml:"description,omitempty"`
	Unit        string `yaml:"unit,omitempty"`
	UCD         string `yaml:"ucd,omitempty"`
}

// IndexKind distinguishes the partition key from the full primary key in
// the logical schema, matching the original's IndexDef.type values.
type IndexKind string

const (
	IndexPartition IndexKind = "PARTITION"
	IndexPrimary   IndexKind = "PRIMARY"
)

// IndexDef names the columns participating in one key.
type IndexDef struct {
	Name    string    `yaml:"name,omitempty"`
	Type    IndexKind `yaml:"type"`
	Columns []string  `yaml:"columns"`
}

// TableDef is one logical table: its columns and its partition/primary
// key definitions.
type TableDef struct {
	Name        string     `yaml:"name"`
	Description string     `yaml:"description,omitempty"`
	Columns     []ColumnDef `yaml:"columns"`
	Indices     []IndexDef  `yaml:"indices"`
}

// document is the top-level shape of the YAML schema file.
type document struct {
	Tables []TableDef `yaml:"tables"`
}

// Logical table names, matching the original's hardcoded constants.
const (
	TableObject       = "DiaObject"
	TableObjectLast   = "DiaObjectLast"
	TableSource       = "DiaSource"
	TableForcedSource = "DiaForcedSource"
	TableSSObject     = "SSObject"
	TableVisits       = "ApdbProtoVisits"
)

// cqlTypeMap mirrors ApdbCassandraSchema._type_map.
var cqlTypeMap = map[string]string{
	"DOUBLE":   "DOUBLE",
	"FLOAT":    "FLOAT",
	"DATETIME": "TIMESTAMP",
	"BIGINT":   "BIGINT",
	"INTEGER":  "INT",
	"INT":      "INT",
	"TINYINT":  "TINYINT",
	"BLOB":     "BLOB",
	"CHAR":     "TEXT",
	"BOOL":     "BOOLEAN",
}

// Catalog is the loaded, queryable logical schema for one keyspace.
type Catalog struct {
	prefix            string
	timePartitionTables bool
	timePartitionDays  int
	tables            map[string]TableDef
}

// Options configures Load.
type Options struct {
	// SchemaFile is the primary YAML schema document. If empty, the
	// embedded default (testdata/apdb.yaml) is used.
	SchemaFile string
	// ExtraSchemaFile optionally overlays additional tables/columns not
	// present in the default schema, matching extra_schema_file.
	ExtraSchemaFile string
	Prefix              string
	TimePartitionTables bool
	TimePartitionDays   int
}

// Load parses the logical schema from disk (or the embedded default) and
// returns a Catalog. A table missing its partition or primary index is
// rejected eagerly as a ConfigError rather than failing later at
// makeSchema or query-build time.
func Load(opts Options) (*Catalog, error) {
	var doc document
	raw, err := readSchemaFile(opts.SchemaFile)
	if err != nil {
		return nil, apdberr.NewConfigError("schema.Load", err)
	}
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, apdberr.NewConfigError("schema.Load", fmt.Errorf("parsing schema: %w", err))
	}

	tables := make(map[string]TableDef, len(doc.Tables))
	for _, t := range doc.Tables {
		tables[t.Name] = t
	}

	if opts.ExtraSchemaFile != "" {
		extraRaw, err := os.ReadFile(opts.ExtraSchemaFile)
		if err != nil {
			return nil, apdberr.NewConfigError("schema.Load", fmt.Errorf("reading extra_schema_file: %w", err))
		}
		var extra document
		if err := yaml.Unmarshal(extraRaw, &extra); err != nil {
			return nil, apdberr.NewConfigError("schema.Load", fmt.Errorf("parsing extra_schema_file: %w", err))
		}
		for _, t := range extra.Tables {
			if existing, ok := tables[t.Name]; ok {
				existing.Columns = append(existing.Columns, t.Columns...)
				tables[t.Name] = existing
			} else {
				tables[t.Name] = t
			}
		}
	}

	for name, t := range tables {
		if name == TableVisits {
			continue // internal visits table has a hardcoded key, not from YAML
		}
		if partitionColumns(t) == nil {
			return nil, apdberr.NewConfigError("schema.Load", fmt.Errorf("table %s is missing a PARTITION index", name))
		}
		if clusteringColumns(t) == nil {
			return nil, apdberr.NewConfigError("schema.Load", fmt.Errorf("table %s is missing a PRIMARY index", name))
		}
	}

	days := opts.TimePartitionDays
	if days == 0 {
		days = 30
	}
	return &Catalog{
		prefix:              opts.Prefix,
		timePartitionTables: opts.TimePartitionTables,
		timePartitionDays:   days,
		tables:              tables,
	}, nil
}

func readSchemaFile(path string) ([]byte, error) {
	if path == "" {
		return defaultSchemaYAML, nil
	}
	return os.ReadFile(path)
}

// TableSchemas returns the logical table definitions known to the
// catalog, keyed by unprefixed table name.
func (c *Catalog) TableSchemas() map[string]TableDef { return c.tables }

func partitionColumns(t TableDef) []string {
	for _, idx := range t.Indices {
		if idx.Type == IndexPartition {
			return idx.Columns
		}
	}
	return nil
}

func clusteringColumns(t TableDef) []string {
	for _, idx := range t.Indices {
		if idx.Type == IndexPrimary {
			return idx.Columns
		}
	}
	return nil
}

// PartitionColumns returns the partition-key column names for a table.
func (c *Catalog) PartitionColumns(table string) []string {
	return partitionColumns(c.tables[table])
}

// ClusteringColumns returns the primary-key (clustering) column names.
func (c *Catalog) ClusteringColumns(table string) []string {
	return clusteringColumns(c.tables[table])
}

// ColumnMap returns the table's columns keyed by name.
func (c *Catalog) ColumnMap(table string) map[string]ColumnDef {
	t := c.tables[table]
	m := make(map[string]ColumnDef, len(t.Columns))
	for _, col := range t.Columns {
		m[col.Name] = col
	}
	return m
}

// TableName returns the physical table name for a logical table,
// applying the configured prefix.
func (c *Catalog) TableName(table string) string {
	return c.prefix + table
}

// TimePartitionedTables reports whether table participates in
// time-partition-tables mode (only DiaSource/DiaForcedSource do).
func (c *Catalog) TimePartitionedTables(table string) bool {
	return c.timePartitionTables && (table == TableSource || table == TableForcedSource)
}

// PhysicalTableName returns the physical table name for a given time
// partition. For tables outside time-partition-tables mode, or when
// mode is off, this is identical to TableName.
func (c *Catalog) PhysicalTableName(table string, timePart int64) string {
	base := c.TableName(table)
	if !c.TimePartitionedTables(table) {
		return base
	}
	return fmt.Sprintf("%s_%d", base, timePart)
}

// DDLExecutor is the minimal session contract MakeSchema needs: execute
// one DDL statement, without a result set, honoring ctx cancellation.
// Implemented by the session package's Cluster wrapper.
type DDLExecutor interface {
	ExecDDL(ctx context.Context, cql string) error
}

// MakeSchema creates (optionally dropping first) every physical table,
// including the hardcoded ApdbProtoVisits table and, when
// TimePartitionedTables applies, the full table family spanning
// [timePartitionStart, timePartitionEnd]. DDL statements run one at a
// time through exec: with drop, every DROP first, then every CREATE, each
// completing before the next is issued. Statements are not issued
// concurrently, and the first failing statement ends the run.
func (c *Catalog) MakeSchema(ctx context.Context, exec DDLExecutor, drop bool, timePartitionStart, timePartitionEnd int64) error {
	physicalTables := make([]string, 0, len(c.tables)+1)
	ddlByTable := make(map[string]string, len(c.tables)+1)

	for name, t := range c.tables {
		if c.TimePartitionedTables(name) {
			for p := timePartitionStart; p <= timePartitionEnd; p++ {
				phys := c.PhysicalTableName(name, p)
				physicalTables = append(physicalTables, phys)
				ddlByTable[phys] = c.createTableDDL(phys, t)
			}
			continue
		}
		phys := c.TableName(name)
		physicalTables = append(physicalTables, phys)
		ddlByTable[phys] = c.createTableDDL(phys, t)
	}
	visitsTable := c.TableName(TableVisits)
	physicalTables = append(physicalTables, visitsTable)
	ddlByTable[visitsTable] = visitsTableDDL(visitsTable)

	if drop {
		for _, phys := range physicalTables {
			if err := exec.ExecDDL(ctx, fmt.Sprintf(`DROP TABLE IF EXISTS "%s"`, phys)); err != nil {
				return apdberr.WrapDriverError("schema.MakeSchema.drop", err)
			}
		}
	}
	for _, phys := range physicalTables {
		query := ddlByTable[phys]
		if !drop {
			query = withIfNotExists(query)
		}
		if err := exec.ExecDDL(ctx, query); err != nil {
			return apdberr.WrapDriverError("schema.MakeSchema.create", err)
		}
	}
	return nil
}

func withIfNotExists(createStmt string) string {
	const prefix = "CREATE TABLE "
	const prefixIfNot = "CREATE TABLE IF NOT EXISTS "
	if len(createStmt) >= len(prefix) && createStmt[:len(prefix)] == prefix {
		return prefixIfNot + createStmt[len(prefix):]
	}
	return createStmt
}

func (c *Catalog) createTableDDL(physicalName string, t TableDef) string {
	part := partitionColumns(t)
	if !c.timePartitionTables && (t.Name == TableObject || t.Name == TableSource || t.Name == TableForcedSource) {
		// In-row time partitioning: apdb_time_part joins the partition key.
		part = append(append([]string{}, part...), "apdb_time_part")
	}
	clust := clusteringColumns(t)

	defs := make([]string, 0, len(t.Columns)+1)
	for _, col := range t.Columns {
		cqlType, ok := cqlTypeMap[col.Type]
		if !ok {
			cqlType = col.Type
		}
		defs = append(defs, fmt.Sprintf(`"%s" %s`, col.Name, cqlType))
	}
	defs = append(defs, primaryKeyClause(part, clust))

	cql := fmt.Sprintf(`CREATE TABLE "%s" (`, physicalName)
	for i, d := range defs {
		if i > 0 {
			cql += ", "
		}
		cql += d
	}
	cql += ")"
	return cql
}

func primaryKeyClause(part, clust []string) string {
	clust = dedupClustering(part, clust)

	quoted := func(cols []string) []string {
		out := make([]string, len(cols))
		for i, c := range cols {
			out[i] = fmt.Sprintf(`"%s"`, c)
		}
		return out
	}
	partQ := quoted(part)
	clustQ := quoted(clust)

	if len(partQ) > 1 {
		partKey := "(" + joinComma(partQ) + ")"
		if len(clustQ) == 0 {
			return fmt.Sprintf("PRIMARY KEY (%s)", partKey)
		}
		return fmt.Sprintf("PRIMARY KEY (%s, %s)", partKey, joinComma(clustQ))
	}
	all := append(partQ, clustQ...)
	return fmt.Sprintf("PRIMARY KEY (%s)", joinComma(all))
}

// dedupClustering drops any clustering column already present in the
// partition key. A table whose PRIMARY index happens to repeat its
// PARTITION columns (e.g. a table with no true clustering column, where
// the schema author lists the partition key again under PRIMARY) would
// otherwise produce a CQL primary key with a duplicate column, which
// Cassandra rejects outright.
func dedupClustering(part, clust []string) []string {
	partSet := make(map[string]struct{}, len(part))
	for _, c := range part {
		partSet[c] = struct{}{}
	}
	out := make([]string, 0, len(clust))
	for _, c := range clust {
		if _, ok := partSet[c]; ok {
			continue
		}
		out = append(out, c)
	}
	return out
}

func joinComma(ss []string) string {
	out := ""
	for i, s := range ss {
		if i > 0 {
			out += ", "
		}
		out += s
	}
	return out
}

func visitsTableDDL(physicalName string) string {
	return fmt.Sprintf(`CREATE TABLE "%s" ("apdb_part" INT, "visitId" INT, "visitTime" TIMESTAMP, "lastObjectId" BIGINT, "lastSourceId" BIGINT, PRIMARY KEY ("apdb_part", "visitId"))`, physicalName)
}
