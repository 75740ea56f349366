package odoo

// Model represents an Odoo model name.
type Model string

// DomainCondition is a single [field, operator, value] triple of an Odoo domain,
// or a single-element logical operator such as {"|"}.
//
// Examples:
//
//	{"token", "=", "abc123"} // a standard condition
//	{"|"}                    // a logical OR operator
type DomainCondition []interface{}

// Domain is the filter expression passed to search_read.
type Domain []DomainCondition

// ToRPC converts the Domain into the []interface{} layout Odoo expects.
// Single-element conditions holding a string are emitted as bare operators ("|", "&").
func (d Domain) ToRPC() []interface{} {
	rpcDomain := []interface{}{}
	for _, cond := range d {
		if len(cond) == 1 {
			if op, ok := cond[0].(string); ok {
				rpcDomain = append(rpcDomain, op)
				continue
			}
		}
		rpcDomain = append(rpcDomain, []interface{}(cond))
	}
	return rpcDomain
}

// Fields lists the field names to retrieve from Odoo.
type Fields []string

// ToRPC converts Fields to a plain []string. A nil Fields becomes an empty slice
// so it is serialized as [] rather than null.
func (f Fields) ToRPC() []string {
	if f == nil {
		return []string{}
	}
	return []string(f)
}

// Values holds the field-value pairs of a write. Keys are internal Odoo field names.
type Values map[string]interface{}

// ToRPC converts Values to the map layout used by the RPC encoders.
func (v Values) ToRPC() map[string]interface{} {
	return map[string]interface{}(v)
}

// Record is one row returned by search_read, keyed by internal field name.
// Odoo encodes empty scalar fields as false and many2one fields as [id, name].
type Record map[string]interface{}

// ID returns the record's numeric id, or 0 when it is missing or not an integer.
func (r Record) ID() int64 {
	id, _ := AsInt64(r["id"])
	return id
}

// AsInt64 converts the numeric representations produced by the JSON and XML-RPC
// decoders into an int64. Non-integral floats are rejected.
func AsInt64(v interface{}) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	case float64:
		if n != float64(int64(n)) {
			return 0, false
		}
		return int64(n), true
	default:
		return 0, false
	}
}
