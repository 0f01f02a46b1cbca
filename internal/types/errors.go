package types

import "errors"

// Sentinel errors for detbuilder operations.
var (
	// ErrUnbalancedQuotes indicates a condition with an unterminated quoted literal.
	ErrUnbalancedQuotes = errors.New("unbalanced quotes in condition")

	// ErrMalformedClause indicates a leaf clause with no relational operator
	// or no field reference.
	ErrMalformedClause = errors.New("malformed clause")

	// ErrExpressionTooDeep indicates nesting beyond MaxExpressionDepth.
	ErrExpressionTooDeep = errors.New("expression nesting exceeds maximum depth")

	// ErrConditionTooLong indicates a condition longer than MaxConditionLength.
	ErrConditionTooLong = errors.New("condition exceeds maximum length")

	// ErrEmptyCondition indicates a blank trigger condition.
	ErrEmptyCondition = errors.New("condition is empty")

	// ErrNoRecordData indicates evaluation against a record with no events.
	ErrNoRecordData = errors.New("record has no data")

	// ErrEventNotFound indicates a referenced event is absent from the record data.
	ErrEventNotFound = errors.New("event not found in record data")

	// ErrFieldNotFound indicates a referenced field is absent from the event's data.
	ErrFieldNotFound = errors.New("field not found in record data")

	// ErrMisalignedSettings indicates parallel mapping arrays of different lengths.
	ErrMisalignedSettings = errors.New("mapping arrays are not index-aligned")

	// ErrNoDestinationProject indicates settings without a destination project.
	ErrNoDestinationProject = errors.New("destination project not configured")

	// ErrMissingLinkValue indicates the source record has no value in its linking field.
	ErrMissingLinkValue = errors.New("source record has no linking value")

	// ErrAmbiguousLink indicates more than one destination record carries the link value.
	ErrAmbiguousLink = errors.New("more than one destination record matches the linking value")

	// ErrProjectNotFound indicates an unknown project id.
	ErrProjectNotFound = errors.New("project not found")

	// ErrInstrumentNotFound indicates an instrument with no fields in the project.
	ErrInstrumentNotFound = errors.New("instrument not found")

	// ErrSettingsNotFound indicates a project without DET settings.
	ErrSettingsNotFound = errors.New("settings not found")

	// ErrSettingsConflict indicates a settings write against a stale ETag.
	ErrSettingsConflict = errors.New("settings were modified concurrently")

	// ErrInvalidArgument indicates a request missing required values.
	ErrInvalidArgument = errors.New("invalid argument")
)
