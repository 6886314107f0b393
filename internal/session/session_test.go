package session

import (
	"testing"

	"github.com/gocql/gocql"
)

func TestParseConsistencyKnown(t *testing.T) {
	c, err := parseConsistency("LOCAL_QUORUM")
	if err != nil {
		t.Fatalf("parseConsistency: %v", err)
	}
	if c != gocql.LocalQuorum {
		t.Errorf("parseConsistency(LOCAL_QUORUM) = %v, want LocalQuorum", c)
	}
}

func TestParseConsistencyEmptyDefaultsToQuorum(t *testing.T) {
	c, err := parseConsistency("")
	if err != nil {
		t.Fatalf("parseConsistency: %v", err)
	}
	if c != gocql.Quorum {
		t.Errorf("parseConsistency('') = %v, want Quorum", c)
	}
}

func TestParseConsistencyUnknownIsError(t *testing.T) {
	if _, err := parseConsistency("NOT_A_LEVEL"); err == nil {
		t.Fatal("parseConsistency(NOT_A_LEVEL): want error, got nil")
	}
}

func TestAddressTranslatorFallsBackToOriginal(t *testing.T) {
	tr := &addressTranslator{privateToPublic: map[string]string{"10.0.0.1": "1.2.3.4"}}
	if got := tr.Translate("10.0.0.1"); got != "1.2.3.4" {
		t.Errorf("Translate(10.0.0.1) = %q, want 1.2.3.4", got)
	}
	if got := tr.Translate("10.0.0.2"); got != "10.0.0.2" {
		t.Errorf("Translate(unknown) = %q, want unchanged", got)
	}
}

func TestPreparedInsertCachesByFingerprint(t *testing.T) {
	c := &Cluster{prepared: make(map[string]string)}
	calls := 0
	build := func() string {
		calls++
		return "INSERT INTO x (a) VALUES (?)"
	}
	fp := PreparedFingerprint{Table: "DiaObject", Columns: "a,b"}

	first := c.PreparedInsert(fp, build)
	second := c.PreparedInsert(fp, build)

	if calls != 1 {
		t.Errorf("build called %d times, want 1 (cache hit on second call)", calls)
	}
	if first != second {
		t.Errorf("PreparedInsert returned %q then %q, want identical cached text", first, second)
	}
}
