package schema

import _ "embed"

//go:embed testdata/apdb.yaml
var defaultSchemaYAML []byte
