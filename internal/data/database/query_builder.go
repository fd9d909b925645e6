// Package database builds sanitized SELECT statements for repository list and count queries.
package database

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/jackc/pgx/v5"
)

type ConditionType string

const (
	Equal              ConditionType = "="
	NotEqual           ConditionType = "<>"
	GreaterThan        ConditionType = ">"
	LessThan           ConditionType = "<"
	LessThanOrEqual    ConditionType = "<="
	GreaterThanOrEqual ConditionType = ">="
	In                 ConditionType = "IN"
	IsNull             ConditionType = "IS NULL"
	IsNotNull          ConditionType = "IS NOT NULL"
	IsTrue             ConditionType = "IS TRUE"
	NotBlank           ConditionType = "NOT BLANK"
	defaultLimit                     = -1
)

type Condition struct {
	Field string
	Type  ConditionType
	Value any
}

func WhereCond(field string, condType ConditionType, value any) Condition {
	return Condition{
		Field: field,
		Type:  condType,
		Value: value,
	}
}

// WhereNull matches rows where field IS NULL.
func WhereNull(field string) Condition {
	return Condition{Field: field, Type: IsNull}
}

// WhereNotNull matches rows where field IS NOT NULL.
func WhereNotNull(field string) Condition {
	return Condition{Field: field, Type: IsNotNull}
}

// WhereTrue matches rows where a nullable boolean is strictly true.
func WhereTrue(field string) Condition {
	return Condition{Field: field, Type: IsTrue}
}

// WhereNotBlank matches rows where a text column is present and not only whitespace.
func WhereNotBlank(field string) Condition {
	return Condition{Field: field, Type: NotBlank}
}

// OrderSpec is one ORDER BY key.
type OrderSpec struct {
	Column    string
	Direction string
}

type ListQueryOptions struct {
	Table      string
	Columns    []string
	CountOnly  bool
	Conditions []Condition
	Order      []OrderSpec
	Limit      int
}

type ListQueryOption func(*ListQueryOptions)

func NewListQueryOptions(table string, opts ...ListQueryOption) *ListQueryOptions {
	options := &ListQueryOptions{
		Table:      table,
		Columns:    []string{},
		Conditions: []Condition{},
		Limit:      defaultLimit,
	}

	for _, opt := range opts {
		opt(options)
	}
	return options
}

// WithColumns sets the columns to select.
func WithColumns(cols ...string) ListQueryOption {
	return func(o *ListQueryOptions) {
		o.Columns = cols
	}
}

// WithCondition adds a single condition.
func WithCondition(cond Condition) ListQueryOption {
	return func(o *ListQueryOptions) {
		o.Conditions = append(o.Conditions, cond)
	}
}

// WithConditions appends several conditions.
func WithConditions(conds ...Condition) ListQueryOption {
	return func(o *ListQueryOptions) {
		o.Conditions = append(o.Conditions, conds...)
	}
}

// WithOrderBy appends an ordering key. Later calls act as tie-breakers.
func WithOrderBy(column, direction string) ListQueryOption {
	return func(o *ListQueryOptions) {
		o.Order = append(o.Order, OrderSpec{Column: column, Direction: direction})
	}
}

// WithLimit sets the limit. Accepts 0.
func WithLimit(limit int) ListQueryOption {
	return func(o *ListQueryOptions) {
		if limit >= 0 {
			o.Limit = limit
		}
	}
}

// WithCountOnly sets the query to count only.
func WithCountOnly() ListQueryOption {
	return func(o *ListQueryOptions) {
		o.CountOnly = true
	}
}

func sanitizeIdentifier(ident string) string {
	return pgx.Identifier{ident}.Sanitize()
}

// sanitizeQualifiedIdentifier sanitizes qualified identifiers like "table.column".
func sanitizeQualifiedIdentifier(ident string) string {
	return pgx.Identifier(strings.Split(ident, ".")).Sanitize()
}

func buildSelectClause(options *ListQueryOptions) string {
	if options.CountOnly {
		return "SELECT COUNT(*) "
	}
	if len(options.Columns) == 0 {
		return "SELECT * "
	}

	cols := make([]string, len(options.Columns))
	for i, col := range options.Columns {
		cols[i] = sanitizeQualifiedIdentifier(strings.TrimSpace(col))
	}
	return fmt.Sprintf("SELECT %s ", strings.Join(cols, ", "))
}

func buildOrderClause(order []OrderSpec) string {
	keys := make([]string, 0, len(order))
	for _, o := range order {
		if strings.TrimSpace(o.Column) == "" {
			continue
		}
		key := sanitizeQualifiedIdentifier(o.Column)
		dir := strings.ToUpper(strings.TrimSpace(o.Direction))
		if dir == "ASC" || dir == "DESC" {
			key += " " + dir
		}
		keys = append(keys, key)
	}
	if len(keys) == 0 {
		return ""
	}
	return " ORDER BY " + strings.Join(keys, ", ")
}

func buildLimitClause(options *ListQueryOptions, paramCount int, args []any) (string, []any) {
	if options.Limit == defaultLimit {
		return "", args
	}
	return fmt.Sprintf(" LIMIT $%d", paramCount), append(args, options.Limit)
}

// BuildListQuery constructs a SQL query string and arguments from options, sanitizing identifiers.
//
// Example usage:
//
//	options := NewListQueryOptions("posts",
//		WithColumns("id", "created_at"),
//		WithCondition(WhereNull("is_psyop")),
//		WithCondition(WhereCond("status", NotEqual, "archived")),
//		WithCondition(WhereNotBlank("content")),
//		WithOrderBy("created_at", "ASC"),
//		WithOrderBy("id", "ASC"),
//		WithLimit(20),
//	)
//
//	query, args := BuildListQuery(options)
func BuildListQuery(options *ListQueryOptions) (string, []any) {
	if options == nil {
		return "", nil
	}

	var query strings.Builder
	query.WriteString(buildSelectClause(options))
	query.WriteString("FROM ")
	query.WriteString(sanitizeIdentifier(options.Table))

	whereClause, args, next := buildWhereClause(options.Conditions, 1)
	if whereClause != "" {
		query.WriteString(" ")
		query.WriteString(whereClause)
	}

	if options.CountOnly {
		return query.String(), args
	}

	query.WriteString(buildOrderClause(options.Order))
	limit, args := buildLimitClause(options, next, args)
	query.WriteString(limit)

	return query.String(), args
}

func handleStandardCondition(cond Condition, field string, paramCount int) (string, []any, int) {
	return fmt.Sprintf("%s %s $%d", field, cond.Type, paramCount), []any{cond.Value}, paramCount + 1
}

func handleListCondition(cond Condition, field string, paramCount int) (string, []any, int) {
	rv := reflect.ValueOf(cond.Value)
	if rv.Kind() != reflect.Slice || rv.Len() == 0 {
		return "", nil, paramCount
	}

	placeholders := make([]string, rv.Len())
	args := make([]any, rv.Len())
	for i := range rv.Len() {
		placeholders[i] = fmt.Sprintf("$%d", paramCount)
		args[i] = rv.Index(i).Interface()
		paramCount++
	}

	return fmt.Sprintf("%s IN (%s)", field, strings.Join(placeholders, ", ")), args, paramCount
}

func processCondition(cond Condition, paramCount int) (string, []any, int) {
	if cond.Field == "" {
		return "", nil, paramCount
	}
	field := sanitizeQualifiedIdentifier(cond.Field)

	switch cond.Type {
	case IsNull, IsNotNull, IsTrue:
		return fmt.Sprintf("%s %s", field, cond.Type), nil, paramCount
	case NotBlank:
		return fmt.Sprintf("%s IS NOT NULL AND btrim(%s) <> ''", field, field), nil, paramCount
	case In:
		return handleListCondition(cond, field, paramCount)
	case Equal, NotEqual, GreaterThan, LessThan, LessThanOrEqual, GreaterThanOrEqual:
		return handleStandardCondition(cond, field, paramCount)
	}
	return "", nil, paramCount
}

func buildWhereClause(inputConditions []Condition, startParamIndex int) (string, []any, int) {
	conditions := make([]string, 0, len(inputConditions))
	args := []any{}
	paramCount := startParamIndex

	for _, cond := range inputConditions {
		conditionStr, newArgs, next := processCondition(cond, paramCount)
		if conditionStr != "" {
			conditions = append(conditions, conditionStr)
			args = append(args, newArgs...)
			paramCount = next
		}
	}

	if len(conditions) == 0 {
		return "", args, paramCount
	}
	return "WHERE " + strings.Join(conditions, " AND "), args, paramCount
}
