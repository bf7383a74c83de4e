package compiler

import (
	"fmt"
	"slices"
	"strings"

	"github.com/warning-explosive/Core-sub004/internal/model"
)

// Validation error codes (E100-E199)
const (
	// General validation errors (E100)
	ErrUnsupportedType = "E100" // unsupported value for validation

	// Entity errors (E101-E109)
	ErrEntityNameEmpty    = "E101" // entity name is required
	ErrEntityNoColumns    = "E102" // at least one column required
	ErrPrimaryKey         = "E103" // exactly one primary key required
	ErrInvalidColumnType  = "E104" // unknown column type
	ErrDuplicateColumn    = "E105" // duplicate column name
	ErrInvalidVersion     = "E106" // more than one or non-integer version column
	ErrAmbiguousReference = "E107" // column declares both type and reference

	// Query errors (E110-E119)
	ErrQueryFromEmpty     = "E110" // from is required
	ErrUnknownOperator    = "E111" // unknown where operator
	ErrInvalidCondition   = "E112" // operator and value do not fit
	ErrDuplicateSelection = "E113" // column selected twice
	ErrInvalidLimit       = "E114" // limit must be positive
)

// ValidationError represents a schema validation error.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
	Line    int    `json:"line,omitempty"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("[%s] line %d: %s: %s", e.Code, e.Line, e.Field, e.Message)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

// Validate checks a compiled entity definition or query spec.
// Returns all errors found (does not fail-fast).
func Validate(v any) []ValidationError {
	switch v := v.(type) {
	case model.Definition:
		return validateDefinition(&v)
	case *model.Definition:
		return validateDefinition(v)
	case *QuerySpec:
		return validateQuerySpec(v)
	case QuerySpec:
		return validateQuerySpec(&v)
	default:
		return []ValidationError{{
			Field:   "type",
			Message: fmt.Sprintf("unsupported type: %T", v),
			Code:    ErrUnsupportedType,
		}}
	}
}

var integerTypes = []string{"int", "int64", "bigint", "int32", "integer"}

func validateDefinition(def *model.Definition) []ValidationError {
	var errs []ValidationError

	if strings.TrimSpace(def.Name) == "" {
		errs = append(errs, ValidationError{
			Field:   "name",
			Message: "entity name is required and must be non-empty",
			Code:    ErrEntityNameEmpty,
		})
	}
	if len(def.Columns) == 0 {
		errs = append(errs, ValidationError{
			Field:   "columns",
			Message: "at least one column is required",
			Code:    ErrEntityNoColumns,
		})
		return errs
	}

	known := model.ColumnTypes()
	seen := make(map[string]bool)
	keys, versions := 0, 0
	for i, col := range def.Columns {
		field := fmt.Sprintf("columns[%d]", i)

		if seen[col.Name] {
			errs = append(errs, ValidationError{
				Field:   field,
				Message: fmt.Sprintf("duplicate column name: %q", col.Name),
				Code:    ErrDuplicateColumn,
			})
		}
		seen[col.Name] = true

		if col.PrimaryKey {
			keys++
		}

		if col.Reference != "" {
			if col.Type != "" {
				errs = append(errs, ValidationError{
					Field:   field,
					Message: fmt.Sprintf("column %q declares both type %q and reference %q", col.Name, col.Type, col.Reference),
					Code:    ErrAmbiguousReference,
				})
			}
			continue
		}

		typ := strings.TrimSuffix(strings.ToLower(strings.TrimSpace(col.Type)), "[]")
		if !slices.Contains(known, typ) {
			errs = append(errs, ValidationError{
				Field:   field + ".type",
				Message: fmt.Sprintf("unknown column type %q", col.Type),
				Code:    ErrInvalidColumnType,
			})
		}

		if col.Version {
			versions++
			if !slices.Contains(integerTypes, typ) || col.Nullable {
				errs = append(errs, ValidationError{
					Field:   field,
					Message: fmt.Sprintf("version column %q must be a non-nullable integer", col.Name),
					Code:    ErrInvalidVersion,
				})
			}
		}
	}

	if keys != 1 {
		errs = append(errs, ValidationError{
			Field:   "columns",
			Message: fmt.Sprintf("entity %q needs exactly one primary key column, found %d", def.Name, keys),
			Code:    ErrPrimaryKey,
		})
	}
	if versions > 1 {
		errs = append(errs, ValidationError{
			Field:   "columns",
			Message: fmt.Sprintf("entity %q declares %d version columns", def.Name, versions),
			Code:    ErrInvalidVersion,
		})
	}
	return errs
}

func validateQuerySpec(spec *QuerySpec) []ValidationError {
	var errs []ValidationError

	if strings.TrimSpace(spec.From) == "" {
		errs = append(errs, ValidationError{
			Field:   "from",
			Message: "from is required and must name an entity",
			Code:    ErrQueryFromEmpty,
		})
	}

	for i, cond := range spec.Where {
		field := fmt.Sprintf("where[%d]", i)
		if msg := checkCondition(cond); msg != "" {
			code := ErrInvalidCondition
			if _, ok := comparisons[cond.Op]; !ok && !slices.Contains(valueOperators, cond.Op) {
				code = ErrUnknownOperator
			}
			errs = append(errs, ValidationError{Field: field, Message: msg, Code: code})
		}
	}

	seen := make(map[string]bool)
	for i, col := range spec.Select {
		if seen[col] {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("select[%d]", i),
				Message: fmt.Sprintf("column %q selected twice", col),
				Code:    ErrDuplicateSelection,
			})
		}
		seen[col] = true
	}

	if spec.Limit < 0 {
		errs = append(errs, ValidationError{
			Field:   "limit",
			Message: fmt.Sprintf("limit must be positive, got %d", spec.Limit),
			Code:    ErrInvalidLimit,
		})
	}
	return errs
}

var valueOperators = []string{OpLike, OpIn, OpNull, OpNotNull}

// checkCondition returns a message when cond cannot be built.
func checkCondition(cond Condition) string {
	switch cond.Op {
	case OpNull, OpNotNull:
		if cond.Value != nil {
			return fmt.Sprintf("%s takes no value", cond.Op)
		}
		return ""
	case OpIn:
		if _, ok := cond.Value.([]any); !ok {
			return "in needs a list value"
		}
		return ""
	case OpLike:
		if _, ok := cond.Value.(string); !ok {
			return "like needs a string pattern"
		}
		return ""
	}
	if _, ok := comparisons[cond.Op]; !ok {
		return fmt.Sprintf("unknown operator %q", cond.Op)
	}
	if cond.Value == nil {
		return fmt.Sprintf("%s needs a value, use null or notnull to test for NULL", cond.Op)
	}
	if _, ok := cond.Value.([]any); ok {
		return fmt.Sprintf("%s needs a scalar value", cond.Op)
	}
	return ""
}
