package obsv

import "go.opentelemetry.io/otel/attribute"

func tableAttr(table string) attribute.KeyValue {
	return attribute.String("apdb.table", table)
}

func profileAttr(profile string) attribute.KeyValue {
	return attribute.String("apdb.profile", profile)
}

func opAttr(op string) attribute.KeyValue {
	return attribute.String("apdb.op", op)
}
