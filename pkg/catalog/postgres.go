package catalog

import "github.com/leapstack-labs/sqltyper/pkg/types"

// PostgresName is the name the PostgreSQL catalog is registered under.
const PostgresName = "postgres"

func init() {
	Register(NewBuilder(PostgresName).
		Scalars(postgresScalars...).
		Casts(postgresCasts).
		Operators(postgresOperators()...).
		Functions(postgresFunctions()...).
		Build())
}

var postgresScalars = []string{
	"smallint", "integer", "bigint", "numeric", "real", "double precision", "money", "oid",
	"text", "character varying", "character", "name",
	"boolean", "bytea", "uuid", "json", "jsonb", "xml",
	"date", "time without time zone", "time with time zone",
	"timestamp without time zone", "timestamp with time zone", "interval",
	"inet", "cidr", "macaddr", "bit", "bit varying",
	"point", "line", "box", "circle", "polygon", "path", "lseg",
	"tsvector", "tsquery", "regclass", "regtype",
}

var (
	numericTypes = []types.Type{types.SmallInt, types.Integer, types.BigInt, types.Numeric, types.Real, types.Double}
	integerTypes = []types.Type{types.SmallInt, types.Integer, types.BigInt}
	textArray    = types.NewArray(types.Text)
)

func binop(name string, left, right, result types.Type) *Operator {
	return &Operator{Name: name, Left: left, Right: right, Result: result}
}

func prefix(name string, operand, result types.Type) *Operator {
	return &Operator{Name: name, Right: operand, Result: result}
}

func (o *Operator) nulls(p NullPolicy) *Operator {
	o.Null = p
	return o
}

func postgresOperators() []*Operator {
	var ops []*Operator

	for _, n := range numericTypes {
		for _, op := range []string{"+", "-", "*", "/"} {
			ops = append(ops, binop(op, n, n, n))
		}
		ops = append(ops, prefix("-", n, n), prefix("+", n, n))
	}
	for _, n := range integerTypes {
		ops = append(ops,
			binop("%", n, n, n),
			binop("&", n, n, n),
			binop("|", n, n, n),
			binop("#", n, n, n),
			binop("<<", n, types.Integer, n),
			binop(">>", n, types.Integer, n),
			prefix("~", n, n),
		)
	}
	ops = append(ops,
		binop("%", types.Numeric, types.Numeric, types.Numeric),
		binop("^", types.Double, types.Double, types.Double),
		binop("^", types.Numeric, types.Numeric, types.Numeric),
		prefix("|/", types.Double, types.Double),
		prefix("@", types.Numeric, types.Numeric),

		// date and time arithmetic
		binop("+", types.Date, types.Integer, types.Date),
		binop("+", types.Integer, types.Date, types.Date),
		binop("-", types.Date, types.Integer, types.Date),
		binop("-", types.Date, types.Date, types.Integer),
		binop("+", types.Date, types.Interval, types.Timestamp),
		binop("-", types.Date, types.Interval, types.Timestamp),
		binop("+", types.Date, types.Time, types.Timestamp),
		binop("+", types.Timestamp, types.Interval, types.Timestamp),
		binop("-", types.Timestamp, types.Interval, types.Timestamp),
		binop("-", types.Timestamp, types.Timestamp, types.Interval),
		binop("+", types.TimestampTZ, types.Interval, types.TimestampTZ),
		binop("-", types.TimestampTZ, types.Interval, types.TimestampTZ),
		binop("-", types.TimestampTZ, types.TimestampTZ, types.Interval),
		binop("+", types.Interval, types.Timestamp, types.Timestamp),
		binop("+", types.Interval, types.TimestampTZ, types.TimestampTZ),
		binop("+", types.Time, types.Interval, types.Time),
		binop("-", types.Time, types.Interval, types.Time),
		binop("-", types.Time, types.Time, types.Interval),
		binop("+", types.Interval, types.Interval, types.Interval),
		binop("-", types.Interval, types.Interval, types.Interval),
		binop("*", types.Interval, types.Double, types.Interval),
		binop("*", types.Double, types.Interval, types.Interval),
		binop("/", types.Interval, types.Double, types.Interval),
		prefix("-", types.Interval, types.Interval),

		// concatenation
		binop("||", types.Text, types.Text, types.Text),
		binop("||", AnyArray, AnyArray, AnyArray),
		binop("||", AnyArray, AnyElement, AnyArray),
		binop("||", AnyElement, AnyArray, AnyArray),
		binop("||", types.Text, AnyValue, types.Text),
		binop("||", AnyValue, types.Text, types.Text),
		binop("||", types.JSONB, types.JSONB, types.JSONB),
		binop("||", types.Bytea, types.Bytea, types.Bytea),

		// comparison
		binop("=", AnyElement, AnyElement, types.Boolean),
		binop("<>", AnyElement, AnyElement, types.Boolean),
		binop("<", AnyElement, AnyElement, types.Boolean),
		binop(">", AnyElement, AnyElement, types.Boolean),
		binop("<=", AnyElement, AnyElement, types.Boolean),
		binop(">=", AnyElement, AnyElement, types.Boolean),

		// boolean
		binop("AND", types.Boolean, types.Boolean, types.Boolean),
		binop("OR", types.Boolean, types.Boolean, types.Boolean),
		prefix("NOT", types.Boolean, types.Boolean),

		// pattern matching
		binop("~", types.Text, types.Text, types.Boolean),
		binop("~*", types.Text, types.Text, types.Boolean),
		binop("!~", types.Text, types.Text, types.Boolean),
		binop("!~*", types.Text, types.Text, types.Boolean),
		binop("^@", types.Text, types.Text, types.Boolean),

		// arrays
		binop("@>", AnyArray, AnyArray, types.Boolean),
		binop("<@", AnyArray, AnyArray, types.Boolean),
		binop("&&", AnyArray, AnyArray, types.Boolean),

		// json
		binop("->", types.JSON, types.Text, types.AnyScalar).nulls(NullAlways),
		binop("->", types.JSON, types.Integer, types.AnyScalar).nulls(NullAlways),
		binop("->", types.JSONB, types.Text, types.AnyScalar).nulls(NullAlways),
		binop("->", types.JSONB, types.Integer, types.AnyScalar).nulls(NullAlways),
		binop("->>", types.JSON, types.Text, types.Text).nulls(NullAlways),
		binop("->>", types.JSON, types.Integer, types.Text).nulls(NullAlways),
		binop("->>", types.JSONB, types.Text, types.Text).nulls(NullAlways),
		binop("->>", types.JSONB, types.Integer, types.Text).nulls(NullAlways),
		binop("#>", types.JSON, textArray, types.AnyScalar).nulls(NullAlways),
		binop("#>", types.JSONB, textArray, types.AnyScalar).nulls(NullAlways),
		binop("#>>", types.JSON, textArray, types.Text).nulls(NullAlways),
		binop("#>>", types.JSONB, textArray, types.Text).nulls(NullAlways),
		binop("@>", types.JSONB, types.JSONB, types.Boolean),
		binop("<@", types.JSONB, types.JSONB, types.Boolean),
		binop("?", types.JSONB, types.Text, types.Boolean),
		binop("?|", types.JSONB, textArray, types.Boolean),
		binop("?&", types.JSONB, textArray, types.Boolean),
		binop("-", types.JSONB, types.Text, types.JSONB),
		binop("-", types.JSONB, types.Integer, types.JSONB),
		binop("#-", types.JSONB, textArray, types.JSONB),

		// network and text search
		binop("<<", types.Inet, types.Inet, types.Boolean),
		binop(">>", types.Inet, types.Inet, types.Boolean),
		binop("<<=", types.Inet, types.Inet, types.Boolean),
		binop(">>=", types.Inet, types.Inet, types.Boolean),
		binop("@@", types.NewScalar("tsvector"), types.NewScalar("tsquery"), types.Boolean),
	)
	return ops
}

func fn(name string, result types.Type, args ...types.Type) *Function {
	return &Function{Name: name, Args: args, Result: result}
}

func agg(name string, result types.Type, args ...types.Type) *Function {
	return &Function{Name: name, Args: args, Result: result, Kind: FuncAggregate, Null: NullAlways}
}

func win(name string, result types.Type, args ...types.Type) *Function {
	return &Function{Name: name, Args: args, Result: result, Kind: FuncWindow, Null: NullNever}
}

func (f *Function) nulls(p NullPolicy) *Function {
	f.Null = p
	return f
}

func (f *Function) variadic() *Function {
	f.Variadic = true
	return f
}

func (f *Function) domainAware() *Function {
	f.DomainAware = true
	return f
}

func postgresFunctions() []*Function {
	var fns []*Function

	// string functions
	for _, name := range []string{"lower", "upper", "initcap", "reverse", "md5", "btrim", "ltrim", "rtrim", "quote_ident", "quote_literal"} {
		fns = append(fns, fn(name, types.Text, types.Text))
	}
	for _, name := range []string{"btrim", "ltrim", "rtrim", "trim"} {
		fns = append(fns, fn(name, types.Text, types.Text, types.Text))
	}
	for _, name := range []string{"length", "char_length", "character_length", "octet_length", "bit_length", "ascii"} {
		fns = append(fns, fn(name, types.Integer, types.Text))
	}
	fns = append(fns,
		fn("trim", types.Text, types.Text),
		fn("length", types.Integer, types.Bytea),
		fn("substring", types.Text, types.Text, types.Integer),
		fn("substring", types.Text, types.Text, types.Integer, types.Integer),
		fn("substring", types.Text, types.Text, types.Text).nulls(NullAlways),
		fn("substr", types.Text, types.Text, types.Integer),
		fn("substr", types.Text, types.Text, types.Integer, types.Integer),
		fn("replace", types.Text, types.Text, types.Text, types.Text),
		fn("translate", types.Text, types.Text, types.Text, types.Text),
		fn("split_part", types.Text, types.Text, types.Text, types.Integer),
		fn("left", types.Text, types.Text, types.Integer),
		fn("right", types.Text, types.Text, types.Integer),
		fn("lpad", types.Text, types.Text, types.Integer),
		fn("lpad", types.Text, types.Text, types.Integer, types.Text),
		fn("rpad", types.Text, types.Text, types.Integer),
		fn("rpad", types.Text, types.Text, types.Integer, types.Text),
		fn("repeat", types.Text, types.Text, types.Integer),
		fn("position", types.Integer, types.Text, types.Text),
		fn("strpos", types.Integer, types.Text, types.Text),
		fn("starts_with", types.Boolean, types.Text, types.Text),
		fn("chr", types.Text, types.Integer),
		fn("to_hex", types.Text, types.BigInt),
		fn("encode", types.Text, types.Bytea, types.Text),
		fn("decode", types.Bytea, types.Text, types.Text),
		fn("regexp_replace", types.Text, types.Text, types.Text, types.Text),
		fn("regexp_replace", types.Text, types.Text, types.Text, types.Text, types.Text),
		fn("regexp_match", textArray, types.Text, types.Text).nulls(NullAlways),
		fn("regexp_split_to_array", textArray, types.Text, types.Text),
		fn("string_to_array", textArray, types.Text, types.Text),
		fn("concat", types.Text, AnyValue).variadic().nulls(NullNever),
		fn("concat_ws", types.Text, types.Text, AnyValue).variadic(),
		fn("format", types.Text, types.Text, AnyValue).variadic(),
		fn("format", types.Text, types.Text),
		fn("to_number", types.Numeric, types.Text, types.Text),

		// conditional
		fn("coalesce", AnyElement, AnyElement).variadic().nulls(NullIfAll),
		fn("greatest", AnyElement, AnyElement).variadic().nulls(NullIfAll),
		fn("least", AnyElement, AnyElement).variadic().nulls(NullIfAll),
		fn("nullif", AnyElement, AnyElement, AnyElement).nulls(NullAlways),

		// date and time
		fn("now", types.TimestampTZ).nulls(NullNever),
		fn("current_timestamp", types.TimestampTZ).nulls(NullNever),
		fn("transaction_timestamp", types.TimestampTZ).nulls(NullNever),
		fn("statement_timestamp", types.TimestampTZ).nulls(NullNever),
		fn("clock_timestamp", types.TimestampTZ).nulls(NullNever),
		fn("current_date", types.Date).nulls(NullNever),
		fn("current_time", types.TimeTZ).nulls(NullNever),
		fn("localtimestamp", types.Timestamp).nulls(NullNever),
		fn("localtime", types.Time).nulls(NullNever),
		fn("date_trunc", types.Timestamp, types.Text, types.Timestamp),
		fn("date_trunc", types.TimestampTZ, types.Text, types.TimestampTZ),
		fn("date_trunc", types.Interval, types.Text, types.Interval),
		fn("date_part", types.Double, types.Text, types.Timestamp),
		fn("date_part", types.Double, types.Text, types.TimestampTZ),
		fn("date_part", types.Double, types.Text, types.Date),
		fn("date_part", types.Double, types.Text, types.Interval),
		fn("extract", types.Numeric, types.Text, types.Timestamp),
		fn("extract", types.Numeric, types.Text, types.TimestampTZ),
		fn("extract", types.Numeric, types.Text, types.Date),
		fn("extract", types.Numeric, types.Text, types.Time),
		fn("extract", types.Numeric, types.Text, types.Interval),
		fn("age", types.Interval, types.Timestamp, types.Timestamp),
		fn("age", types.Interval, types.TimestampTZ, types.TimestampTZ),
		fn("age", types.Interval, types.TimestampTZ),
		fn("to_char", types.Text, types.Timestamp, types.Text),
		fn("to_char", types.Text, types.TimestampTZ, types.Text),
		fn("to_char", types.Text, types.Interval, types.Text),
		fn("to_char", types.Text, types.Numeric, types.Text),
		fn("to_char", types.Text, types.Double, types.Text),
		fn("to_timestamp", types.TimestampTZ, types.Double),
		fn("to_timestamp", types.TimestampTZ, types.Text, types.Text),
		fn("to_date", types.Date, types.Text, types.Text),
		fn("make_date", types.Date, types.Integer, types.Integer, types.Integer),
		fn("make_interval", types.Interval, types.Integer),
		fn("justify_interval", types.Interval, types.Interval),
		fn("timezone", types.Timestamp, types.Text, types.TimestampTZ),
		fn("timezone", types.TimestampTZ, types.Text, types.Timestamp),

		// math
		fn("random", types.Double).nulls(NullNever),
		fn("pi", types.Double).nulls(NullNever),
		fn("round", types.Numeric, types.Numeric, types.Integer),
		fn("trunc", types.Numeric, types.Numeric, types.Integer),
		fn("power", types.Double, types.Double, types.Double),
		fn("power", types.Numeric, types.Numeric, types.Numeric),
		fn("mod", types.Numeric, types.Numeric, types.Numeric),
		fn("div", types.Numeric, types.Numeric, types.Numeric),
		fn("log", types.Numeric, types.Numeric, types.Numeric),
		fn("width_bucket", types.Integer, types.Double, types.Double, types.Double, types.Integer),
	)
	for _, n := range numericTypes {
		fns = append(fns, fn("abs", n, n).domainAware(), fn("sign", n, n))
	}
	for _, n := range integerTypes {
		fns = append(fns, fn("mod", n, n, n))
	}
	for _, name := range []string{"round", "ceil", "ceiling", "floor", "trunc", "sqrt", "cbrt", "exp", "ln", "log", "log10"} {
		fns = append(fns, fn(name, types.Numeric, types.Numeric), fn(name, types.Double, types.Double))
	}
	for _, name := range []string{"sin", "cos", "tan", "asin", "acos", "atan", "degrees", "radians"} {
		fns = append(fns, fn(name, types.Double, types.Double))
	}
	fns = append(fns, fn("atan2", types.Double, types.Double, types.Double))

	fns = append(fns,
		// identifiers and sequences
		fn("gen_random_uuid", types.UUID).nulls(NullNever),
		fn("uuid_generate_v4", types.UUID).nulls(NullNever),
		fn("nextval", types.BigInt, types.Text).nulls(NullNever),
		fn("currval", types.BigInt, types.Text).nulls(NullNever),
		fn("lastval", types.BigInt).nulls(NullNever),
		fn("setval", types.BigInt, types.Text, types.BigInt),
		fn("current_user", types.Name).nulls(NullNever),
		fn("session_user", types.Name).nulls(NullNever),
		fn("user", types.Name).nulls(NullNever),
		fn("current_role", types.Name).nulls(NullNever),
		fn("current_schema", types.Name).nulls(NullNever),
		fn("current_database", types.Name).nulls(NullNever),
		fn("version", types.Text).nulls(NullNever),
		fn("pg_typeof", types.NewScalar("regtype"), AnyValue).nulls(NullNever),

		// arrays
		fn("array_length", types.Integer, AnyArray, types.Integer).nulls(NullAlways),
		fn("array_lower", types.Integer, AnyArray, types.Integer).nulls(NullAlways),
		fn("array_upper", types.Integer, AnyArray, types.Integer).nulls(NullAlways),
		fn("array_ndims", types.Integer, AnyArray).nulls(NullAlways),
		fn("cardinality", types.Integer, AnyArray),
		fn("array_append", AnyArray, AnyArray, AnyElement).nulls(NullNever),
		fn("array_prepend", AnyArray, AnyElement, AnyArray).nulls(NullNever),
		fn("array_cat", AnyArray, AnyArray, AnyArray).nulls(NullIfAll),
		fn("array_remove", AnyArray, AnyArray, AnyElement),
		fn("array_replace", AnyArray, AnyArray, AnyElement, AnyElement),
		fn("array_position", types.Integer, AnyArray, AnyElement).nulls(NullAlways),
		fn("array_to_string", types.Text, AnyArray, types.Text),
		fn("array_to_string", types.Text, AnyArray, types.Text, types.Text),
		fn("unnest", AnyElement, AnyArray).nulls(NullAlways),
		fn("generate_series", types.Integer, types.Integer, types.Integer).nulls(NullNever),
		fn("generate_series", types.Integer, types.Integer, types.Integer, types.Integer).nulls(NullNever),
		fn("generate_series", types.BigInt, types.BigInt, types.BigInt).nulls(NullNever),
		fn("generate_series", types.BigInt, types.BigInt, types.BigInt, types.BigInt).nulls(NullNever),
		fn("generate_series", types.Numeric, types.Numeric, types.Numeric).nulls(NullNever),
		fn("generate_series", types.Timestamp, types.Timestamp, types.Timestamp, types.Interval).nulls(NullNever),
		fn("generate_series", types.TimestampTZ, types.TimestampTZ, types.TimestampTZ, types.Interval).nulls(NullNever),
		fn("generate_subscripts", types.Integer, AnyArray, types.Integer).nulls(NullNever),

		// json
		fn("to_json", types.JSON, AnyValue),
		fn("to_jsonb", types.JSONB, AnyValue),
		fn("row_to_json", types.JSON, AnyRecord),
		fn("array_to_json", types.JSON, AnyArray),
		fn("json_build_object", types.JSON, AnyValue).variadic().nulls(NullNever),
		fn("jsonb_build_object", types.JSONB, AnyValue).variadic().nulls(NullNever),
		fn("json_build_object", types.JSON).nulls(NullNever),
		fn("jsonb_build_object", types.JSONB).nulls(NullNever),
		fn("json_build_array", types.JSON, AnyValue).variadic().nulls(NullNever),
		fn("jsonb_build_array", types.JSONB, AnyValue).variadic().nulls(NullNever),
		fn("json_build_array", types.JSON).nulls(NullNever),
		fn("jsonb_build_array", types.JSONB).nulls(NullNever),
		fn("json_typeof", types.Text, types.JSON),
		fn("jsonb_typeof", types.Text, types.JSONB),
		fn("json_array_length", types.Integer, types.JSON),
		fn("jsonb_array_length", types.Integer, types.JSONB),
		fn("jsonb_set", types.JSONB, types.JSONB, textArray, types.JSONB),
		fn("jsonb_set", types.JSONB, types.JSONB, textArray, types.JSONB, types.Boolean),
		fn("jsonb_insert", types.JSONB, types.JSONB, textArray, types.JSONB),
		fn("jsonb_strip_nulls", types.JSONB, types.JSONB),
		fn("jsonb_pretty", types.Text, types.JSONB),
		fn("json_extract_path", types.JSON, types.JSON, types.Text).variadic().nulls(NullAlways),
		fn("jsonb_extract_path", types.JSONB, types.JSONB, types.Text).variadic().nulls(NullAlways),
		fn("json_extract_path_text", types.Text, types.JSON, types.Text).variadic().nulls(NullAlways),
		fn("jsonb_extract_path_text", types.Text, types.JSONB, types.Text).variadic().nulls(NullAlways),
		fn("jsonb_array_elements", types.JSONB, types.JSONB).nulls(NullNever),
		fn("json_array_elements", types.JSON, types.JSON).nulls(NullNever),
		fn("jsonb_array_elements_text", types.Text, types.JSONB).nulls(NullAlways),
		fn("json_array_elements_text", types.Text, types.JSON).nulls(NullAlways),
		fn("jsonb_object_keys", types.Text, types.JSONB).nulls(NullNever),
		fn("json_object_keys", types.Text, types.JSON).nulls(NullNever),

		// aggregates
		agg("count", types.BigInt).nulls(NullNever),
		agg("count", types.BigInt, AnyValue).nulls(NullNever),
		agg("sum", types.BigInt, types.SmallInt).domainAware(),
		agg("sum", types.BigInt, types.Integer).domainAware(),
		agg("sum", types.Numeric, types.BigInt).domainAware(),
		agg("sum", types.Numeric, types.Numeric).domainAware(),
		agg("sum", types.Real, types.Real).domainAware(),
		agg("sum", types.Double, types.Double).domainAware(),
		agg("sum", types.Interval, types.Interval).domainAware(),
		agg("sum", types.Money, types.Money).domainAware(),
		agg("avg", types.Numeric, types.SmallInt).domainAware(),
		agg("avg", types.Numeric, types.Integer).domainAware(),
		agg("avg", types.Numeric, types.BigInt).domainAware(),
		agg("avg", types.Numeric, types.Numeric).domainAware(),
		agg("avg", types.Double, types.Real).domainAware(),
		agg("avg", types.Double, types.Double).domainAware(),
		agg("avg", types.Interval, types.Interval).domainAware(),
		agg("min", AnyElement, AnyElement).domainAware(),
		agg("max", AnyElement, AnyElement).domainAware(),
		agg("array_agg", AnyArray, AnyElement),
		agg("string_agg", types.Text, types.Text, types.Text),
		agg("string_agg", types.Bytea, types.Bytea, types.Bytea),
		agg("json_agg", types.JSON, AnyValue),
		agg("jsonb_agg", types.JSONB, AnyValue),
		agg("json_object_agg", types.JSON, AnyValue, AnyValue),
		agg("jsonb_object_agg", types.JSONB, AnyValue, AnyValue),
		agg("bool_and", types.Boolean, types.Boolean),
		agg("bool_or", types.Boolean, types.Boolean),
		agg("every", types.Boolean, types.Boolean),
		agg("percentile_cont", types.Double, types.Double),
		agg("percentile_disc", AnyElement, types.Double),
		agg("mode", AnyElement),
	)
	for _, n := range integerTypes {
		fns = append(fns, agg("bit_and", n, n), agg("bit_or", n, n))
	}
	for _, name := range []string{"stddev", "stddev_pop", "stddev_samp", "variance", "var_pop", "var_samp"} {
		fns = append(fns,
			agg(name, types.Numeric, types.Integer),
			agg(name, types.Numeric, types.BigInt),
			agg(name, types.Numeric, types.Numeric),
			agg(name, types.Double, types.Double),
		)
	}

	// window functions
	fns = append(fns,
		win("row_number", types.BigInt),
		win("rank", types.BigInt),
		win("dense_rank", types.BigInt),
		win("percent_rank", types.Double),
		win("cume_dist", types.Double),
		win("ntile", types.Integer, types.Integer),
		win("lag", AnyElement, AnyElement).nulls(NullAlways),
		win("lag", AnyElement, AnyElement, types.Integer).nulls(NullAlways),
		win("lag", AnyElement, AnyElement, types.Integer, AnyElement).nulls(NullAlways),
		win("lead", AnyElement, AnyElement).nulls(NullAlways),
		win("lead", AnyElement, AnyElement, types.Integer).nulls(NullAlways),
		win("lead", AnyElement, AnyElement, types.Integer, AnyElement).nulls(NullAlways),
		win("first_value", AnyElement, AnyElement).nulls(NullAlways),
		win("last_value", AnyElement, AnyElement).nulls(NullAlways),
		win("nth_value", AnyElement, AnyElement, types.Integer).nulls(NullAlways),
	)
	return fns
}
