package database

import (
	"strings"
	"testing"
)

func TestBuildListQuery_BasicSelect(t *testing.T) {
	query, args := BuildListQuery(NewListQueryOptions("posts"))

	expected := `SELECT * FROM "posts"`
	if query != expected {
		t.Errorf("Expected query %q, got %q", expected, query)
	}
	if len(args) != 0 {
		t.Errorf("Expected 0 args, got %d", len(args))
	}
}

func TestBuildListQuery_WithQualifiedColumns(t *testing.T) {
	opts := NewListQueryOptions("posts",
		WithColumns("posts.id", "posts.status"),
	)
	query, _ := BuildListQuery(opts)

	expected := `SELECT "posts"."id", "posts"."status" FROM "posts"`
	if query != expected {
		t.Errorf("Expected query %q, got %q", expected, query)
	}
}

func TestBuildListQuery_CountOnlyIgnoresOrderAndLimit(t *testing.T) {
	opts := NewListQueryOptions("posts",
		WithCountOnly(),
		WithCondition(WhereCond("status", NotEqual, "archived")),
		WithOrderBy("created_at", "ASC"),
		WithLimit(5),
	)
	query, args := BuildListQuery(opts)

	expected := `SELECT COUNT(*) FROM "posts" WHERE "status" <> $1`
	if query != expected {
		t.Errorf("Expected query %q, got %q", expected, query)
	}
	if len(args) != 1 || args[0] != "archived" {
		t.Errorf("Expected args [archived], got %v", args)
	}
}

func TestBuildListQuery_NullConditionsTakeNoArgs(t *testing.T) {
	opts := NewListQueryOptions("posts",
		WithCondition(WhereTrue("is_psyop")),
		WithCondition(WhereNotNull("deep_analyzed_at")),
		WithCondition(WhereNull("deepest_analysis_completed_at")),
		WithCondition(WhereCond("status", NotEqual, "archived")),
	)
	query, args := BuildListQuery(opts)

	expected := `SELECT * FROM "posts" WHERE "is_psyop" IS TRUE AND "deep_analyzed_at" IS NOT NULL AND "deepest_analysis_completed_at" IS NULL AND "status" <> $1`
	if query != expected {
		t.Errorf("Expected query %q, got %q", expected, query)
	}
	if len(args) != 1 {
		t.Errorf("Expected 1 arg, got %v", args)
	}
}

func TestBuildListQuery_NotBlank(t *testing.T) {
	opts := NewListQueryOptions("posts", WithCondition(WhereNotBlank("content")))
	query, _ := BuildListQuery(opts)

	expected := `SELECT * FROM "posts" WHERE "content" IS NOT NULL AND btrim("content") <> ''`
	if query != expected {
		t.Errorf("Expected query %q, got %q", expected, query)
	}
}

func TestBuildListQuery_WhereIn(t *testing.T) {
	opts := NewListQueryOptions("posts",
		WithCondition(WhereCond("id", In, []string{"a", "b", "c"})),
	)
	query, args := BuildListQuery(opts)

	expected := `SELECT * FROM "posts" WHERE "id" IN ($1, $2, $3)`
	if query != expected {
		t.Errorf("Expected query %q, got %q", expected, query)
	}
	if len(args) != 3 || args[0] != "a" || args[2] != "c" {
		t.Errorf("Expected args [a b c], got %v", args)
	}
}

func TestBuildListQuery_WhereIn_EmptySliceDropped(t *testing.T) {
	opts := NewListQueryOptions("posts",
		WithCondition(WhereCond("id", In, []string{})),
	)
	query, args := BuildListQuery(opts)

	if query != `SELECT * FROM "posts"` {
		t.Errorf("Expected empty IN to be dropped, got %q", query)
	}
	if len(args) != 0 {
		t.Errorf("Expected 0 args, got %v", args)
	}
}

func TestBuildListQuery_MultiKeyOrder(t *testing.T) {
	opts := NewListQueryOptions("posts",
		WithOrderBy("created_at", "asc"),
		WithOrderBy("id", "ASC"),
		WithOrderBy("", "DESC"),
	)
	query, _ := BuildListQuery(opts)

	expected := `SELECT * FROM "posts" ORDER BY "created_at" ASC, "id" ASC`
	if query != expected {
		t.Errorf("Expected query %q, got %q", expected, query)
	}
}

func TestBuildListQuery_InvalidDirectionOmitted(t *testing.T) {
	opts := NewListQueryOptions("posts", WithOrderBy("created_at", "sideways"))
	query, _ := BuildListQuery(opts)

	expected := `SELECT * FROM "posts" ORDER BY "created_at"`
	if query != expected {
		t.Errorf("Expected query %q, got %q", expected, query)
	}
}

func TestBuildListQuery_QuickCandidates(t *testing.T) {
	opts := NewListQueryOptions("posts",
		WithColumns("id", "created_at"),
		WithCondition(WhereNull("is_psyop")),
		WithCondition(WhereCond("status", NotEqual, "archived")),
		WithCondition(WhereNotBlank("content")),
		WithOrderBy("created_at", "ASC"),
		WithOrderBy("id", "ASC"),
		WithLimit(20),
	)
	query, args := BuildListQuery(opts)

	expected := `SELECT "id", "created_at" FROM "posts" WHERE "is_psyop" IS NULL AND "status" <> $1 AND "content" IS NOT NULL AND btrim("content") <> '' ORDER BY "created_at" ASC, "id" ASC LIMIT $2`
	if query != expected {
		t.Errorf("Expected query %q, got %q", expected, query)
	}
	if len(args) != 2 || args[1] != 20 {
		t.Errorf("Expected args [archived 20], got %v", args)
	}
}

func TestBuildListQuery_ZeroLimitKept(t *testing.T) {
	opts := NewListQueryOptions("posts", WithLimit(0))
	query, args := BuildListQuery(opts)

	expected := `SELECT * FROM "posts" LIMIT $1`
	if query != expected {
		t.Errorf("Expected query %q, got %q", expected, query)
	}
	if len(args) != 1 || args[0] != 0 {
		t.Errorf("Expected args [0], got %v", args)
	}
}

func TestBuildListQuery_IdentifierInjection(t *testing.T) {
	opts := NewListQueryOptions("posts; DROP TABLE posts;--",
		WithCondition(WhereNull(`is_psyop" OR 1=1 --`)),
	)
	query, _ := BuildListQuery(opts)

	if !strings.Contains(query, `"posts; DROP TABLE posts;--"`) {
		t.Errorf("Table name not properly quoted: %q", query)
	}
	if !strings.Contains(query, `"is_psyop"" OR 1=1 --" IS NULL`) {
		t.Errorf("Field name not properly quoted: %q", query)
	}
}
