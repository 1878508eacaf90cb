package logging

// Standardized field names for structured logging.
// Keep these stable: log pipelines filter on them.
const (
	FieldRunID      = "run_id"
	FieldInputFile  = "input_file"
	FieldCount      = "count"
	FieldKept       = "kept"
	FieldDropped    = "dropped"
	FieldReason     = "reason"
	FieldTable      = "table"
	FieldTables     = "tables"
	FieldRows       = "rows"
	FieldStore      = "store"
	FieldOperation  = "operation"
	FieldError      = "error"
	FieldDuration   = "duration_ms"
	FieldDelimiter  = "delimiter"
	FieldAsOf       = "as_of"
	FieldAggregator = "aggregator"
	FieldMissing    = "missing_columns"
)
