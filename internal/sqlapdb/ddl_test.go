package sqlapdb

import (
	"strings"
	"testing"

	"github.com/ap-survey/apdb/internal/schema"
)

func TestCreateTableDDLUsesClusteringColumnsOnlyAsPrimaryKey(t *testing.T) {
	def := schema.TableDef{
		Name: "DiaSource",
		Columns: []schema.ColumnDef{
			{Name: "diaSourceId", Type: "BIGINT"},
			{Name: "ra", Type: "DOUBLE"},
			{Name: "apdb_part", Type: "BIGINT"},
		},
		Indices: []schema.IndexDef{
			{Type: schema.IndexPartition, Columns: []string{"apdb_part"}},
			{Type: schema.IndexPrimary, Columns: []string{"diaSourceId"}},
		},
	}
	ddl := createTableDDL("DiaSource", def)
	if !strings.Contains(ddl, "PRIMARY KEY (`diaSourceId`)") {
		t.Errorf("createTableDDL() = %q, want clustering-only primary key", ddl)
	}
	if strings.Contains(ddl, "PRIMARY KEY (`apdb_part`") {
		t.Errorf("createTableDDL() = %q, must not key on partition column", ddl)
	}
	if !strings.Contains(ddl, "`ra` DOUBLE") {
		t.Errorf("createTableDDL() = %q, missing translated column type", ddl)
	}
}

func TestCreateTableDDLUnknownTypePassesThrough(t *testing.T) {
	def := schema.TableDef{
		Columns: []schema.ColumnDef{{Name: "x", Type: "SOME_UNKNOWN_TYPE"}},
	}
	ddl := createTableDDL("T", def)
	if !strings.Contains(ddl, "`x` SOME_UNKNOWN_TYPE") {
		t.Errorf("createTableDDL() = %q, want passthrough of unmapped type", ddl)
	}
}

func TestBacktickJoinAndPlaceholders(t *testing.T) {
	if got := backtickJoin([]string{"a", "b"}); got != "`a`, `b`" {
		t.Errorf("backtickJoin() = %q", got)
	}
	if got := placeholders(3); got != "?, ?, ?" {
		t.Errorf("placeholders(3) = %q", got)
	}
	if got := placeholders(0); got != "" {
		t.Errorf("placeholders(0) = %q, want empty", got)
	}
}
