package store

import (
	"context"
	"fmt"
	"testing"

	"github.com/efreitasn/formrelay/internal/domain"
)

func newTestSQLStore(t *testing.T) *SQLStore {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	s, err := OpenSQLite(dsn)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })

	if err := s.EnsureTable(context.Background(), "formulario"); err != nil {
		t.Fatalf("ensure table: %v", err)
	}
	return s
}

func TestSQLStore_EnsureTableIsIdempotent(t *testing.T) {
	s := newTestSQLStore(t)
	if err := s.EnsureTable(context.Background(), "formulario"); err != nil {
		t.Fatalf("second ensure table: %v", err)
	}
}

func TestSQLStore_InsertReturning(t *testing.T) {
	s := newTestSQLStore(t)

	row := domain.Extract(domain.NewFieldSet(
		domain.FieldDescriptor{Label: "Nombre", Value: "Ana"},
		domain.FieldDescriptor{Label: "Número celular", Value: "+56 9 1111 2222"},
	), domain.LabelMatchExact)

	rows, err := s.Insert(context.Background(), "formulario", row, true)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected 1 returned row, got %d", len(rows))
	}
	got := rows[0]
	if got["Nombre"] != "Ana" {
		t.Errorf("Nombre = %v, want %q", got["Nombre"], "Ana")
	}
	if got["Numero celular"] != "+56 9 1111 2222" {
		t.Errorf("Numero celular = %v, want %q", got["Numero celular"], "+56 9 1111 2222")
	}
	if got["Apellido"] != nil {
		t.Errorf("Apellido = %v, want nil", got["Apellido"])
	}
	if got["id"] == nil {
		t.Error("expected generated id")
	}
}

func TestSQLStore_InsertWithoutReturning(t *testing.T) {
	s := newTestSQLStore(t)
	ctx := context.Background()

	if _, err := s.Insert(ctx, "formulario", testRow("Ana"), false); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	var count int
	if err := s.DB().NewRaw(`SELECT count(*) FROM "formulario"`).Scan(ctx, &count); err != nil {
		t.Fatalf("count rows: %v", err)
	}
	if count != 1 {
		t.Errorf("count = %d, want 1", count)
	}
}

func TestSQLStore_StructuredValuesStoredAsJSON(t *testing.T) {
	s := newTestSQLStore(t)

	row := domain.Extract(domain.NewFieldSet(
		domain.FieldDescriptor{Label: "Color Favorito", Value: []any{"Rojo", "Verde"}},
	), domain.LabelMatchExact)

	rows, err := s.Insert(context.Background(), "formulario", row, true)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if rows[0]["Color favorito"] != `["Rojo","Verde"]` {
		t.Errorf("Color favorito = %v, want JSON text", rows[0]["Color favorito"])
	}
}

func TestSQLStore_MissingTableFails(t *testing.T) {
	s := newTestSQLStore(t)

	if _, err := s.Insert(context.Background(), "no_such_table", testRow("Ana"), true); err == nil {
		t.Fatal("expected error for missing table")
	}
}

func TestScalarValue(t *testing.T) {
	tests := []struct {
		in   any
		want any
	}{
		{nil, nil},
		{"x", "x"},
		{true, true},
		{float64(3), float64(3)},
		{[]any{"a"}, `["a"]`},
		{map[string]any{"k": "v"}, `{"k":"v"}`},
	}
	for _, tt := range tests {
		got, err := scalarValue(tt.in)
		if err != nil {
			t.Fatalf("scalarValue(%v): %v", tt.in, err)
		}
		if got != tt.want {
			t.Errorf("scalarValue(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
