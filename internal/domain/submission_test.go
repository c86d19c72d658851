package domain

import (
	"encoding/json"
	"errors"
	"net/http"
	"reflect"
	"testing"

	goerrors "github.com/goliatone/go-errors"
)

func TestNormalizePayload_Descriptors(t *testing.T) {
	body := `{"data":{"fields":[{"label":"Nombre","value":"Ana"},{"label":"Fecha","value":"2024-01-01"}]}}`

	set, err := NormalizePayload([]byte(body), LabelMatchExact)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if set.Len() != 2 {
		t.Fatalf("Len = %d, want 2", set.Len())
	}

	row := Extract(set, LabelMatchExact)
	want := map[string]any{
		"Nombre":         "Ana",
		"Apellido":       nil,
		"Numero celular": nil,
		"Fecha":          "2024-01-01",
		"Hora":           nil,
		"Color favorito": nil,
	}
	if got := row.Map(); !reflect.DeepEqual(got, want) {
		t.Errorf("row = %v, want %v", got, want)
	}
}

func TestNormalizePayload_FlatFieldsObject(t *testing.T) {
	body := `{"data":{"fields":{"Nombre":"Luis","Número celular":"+56 9 1234 5678","Color Favorito":"Azul"}}}`

	set, err := NormalizePayload([]byte(body), LabelMatchExact)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	row := Extract(set, LabelMatchExact)

	if v, _ := row.Get("Numero celular"); v != "+56 9 1234 5678" {
		t.Errorf("Numero celular = %v, want %q", v, "+56 9 1234 5678")
	}
	if v, _ := row.Get("Color favorito"); v != "Azul" {
		t.Errorf("Color favorito = %v, want %q", v, "Azul")
	}
	if v, _ := row.Get("Hora"); v != nil {
		t.Errorf("Hora = %v, want nil", v)
	}
}

func TestNormalizePayload_FlatData(t *testing.T) {
	body := `{"data":{"Apellido":"Rojas","Hora":"10:30"}}`

	set, err := NormalizePayload([]byte(body), LabelMatchExact)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	row := Extract(set, LabelMatchExact)
	if v, _ := row.Get("Apellido"); v != "Rojas" {
		t.Errorf("Apellido = %v, want %q", v, "Rojas")
	}
	if v, _ := row.Get("Hora"); v != "10:30" {
		t.Errorf("Hora = %v, want %q", v, "10:30")
	}
}

func TestNormalizePayload_EmptyDescriptorList(t *testing.T) {
	set, err := NormalizePayload([]byte(`{"data":{"fields":[]}}`), LabelMatchExact)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, c := range Extract(set, LabelMatchExact) {
		if c.Value != nil {
			t.Errorf("%s = %v, want nil", c.Column, c.Value)
		}
	}
}

func TestNormalizePayload_Invalid(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"empty body", ``},
		{"not json", `not json`},
		{"null", `null`},
		{"array body", `[]`},
		{"missing data", `{"event":"FORM_RESPONSE"}`},
		{"data is string", `{"data":"x"}`},
		{"data is array", `{"data":[]}`},
		{"data is null", `{"data":null}`},
		{"fields is string", `{"data":{"fields":"Nombre"}}`},
		{"fields is null", `{"data":{"fields":null}}`},
		{"descriptor not object", `{"data":{"fields":["Nombre"]}}`},
		{"descriptor null", `{"data":{"fields":[null]}}`},
		{"flat data without known labels", `{"data":{"responseId":"abc","formName":"Contacto"}}`},
		{"empty data", `{"data":{}}`},
		{"empty fields object", `{"data":{"fields":{}}}`},
		{"fields object without known labels", `{"data":{"fields":{"responseId":"abc"}}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NormalizePayload([]byte(tt.body), LabelMatchExact)
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if !errors.Is(err, ErrInvalidPayload) {
				t.Errorf("error = %v, want ErrInvalidPayload", err)
			}
		})
	}
}

func TestNormalizePayload_SkipsDescriptorsWithoutStringLabel(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"missing label", `{"data":{"fields":[{"label":"Nombre","value":"Ana"},{"key":"hidden","value":"x"}]}}`},
		{"numeric label", `{"data":{"fields":[{"label":7,"value":"x"},{"label":"Nombre","value":"Ana"}]}}`},
		{"null label", `{"data":{"fields":[{"label":null,"value":"x"},{"label":"Nombre","value":"Ana"}]}}`},
		{"object label", `{"data":{"fields":[{"label":{"es":"Nombre"},"value":"x"},{"label":"Nombre","value":"Ana"}]}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			set, err := NormalizePayload([]byte(tt.body), LabelMatchExact)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if set.Len() != 1 {
				t.Errorf("Len = %d, want 1", set.Len())
			}
			if v, _ := Extract(set, LabelMatchExact).Get("Nombre"); v != "Ana" {
				t.Errorf("Nombre = %v, want %q", v, "Ana")
			}
		})
	}
}

func TestExtract_FirstMatchWins(t *testing.T) {
	set := NewFieldSet(
		FieldDescriptor{Label: "Nombre", Value: "Primero"},
		FieldDescriptor{Label: "Nombre", Value: "Segundo"},
	)
	row := Extract(set, LabelMatchExact)
	if v, _ := row.Get("Nombre"); v != "Primero" {
		t.Errorf("Nombre = %v, want %q", v, "Primero")
	}
}

func TestExtract_FlatObjectKeepsFirstDuplicate(t *testing.T) {
	set, err := NormalizePayload([]byte(`{"data":{"fields":{"Nombre":"Primero","Nombre":"Segundo"}}}`), LabelMatchExact)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v, _ := Extract(set, LabelMatchExact).Get("Nombre"); v != "Primero" {
		t.Errorf("Nombre = %v, want %q", v, "Primero")
	}
}

func TestExtract_LabelMatch(t *testing.T) {
	set := NewFieldSet(
		FieldDescriptor{Label: "NOMBRE", Value: "Ana"},
		FieldDescriptor{Label: "número CELULAR", Value: "123"},
		FieldDescriptor{Label: "color favorito", Value: "Rojo"},
	)

	t.Run("exact ignores case variants", func(t *testing.T) {
		row := Extract(set, LabelMatchExact)
		for _, c := range row {
			if c.Value != nil {
				t.Errorf("%s = %v, want nil", c.Column, c.Value)
			}
		}
	})

	t.Run("fold matches case variants", func(t *testing.T) {
		row := Extract(set, LabelMatchFold)
		if v, _ := row.Get("Nombre"); v != "Ana" {
			t.Errorf("Nombre = %v, want %q", v, "Ana")
		}
		if v, _ := row.Get("Numero celular"); v != "123" {
			t.Errorf("Numero celular = %v, want %q", v, "123")
		}
		if v, _ := row.Get("Color favorito"); v != "Rojo" {
			t.Errorf("Color favorito = %v, want %q", v, "Rojo")
		}
	})
}

func TestExtract_PreservesStructuredValues(t *testing.T) {
	body := `{"data":{"fields":[{"label":"Color Favorito","value":["Rojo","Verde"]},{"label":"Hora","value":null}]}}`
	set, err := NormalizePayload([]byte(body), LabelMatchExact)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	row := Extract(set, LabelMatchExact)

	v, _ := row.Get("Color favorito")
	if !reflect.DeepEqual(v, []any{"Rojo", "Verde"}) {
		t.Errorf("Color favorito = %#v, want [Rojo Verde]", v)
	}
	if v, _ := row.Get("Hora"); v != nil {
		t.Errorf("Hora = %v, want nil", v)
	}
}

func TestRow_MarshalJSONKeepsColumnOrder(t *testing.T) {
	row := Extract(NewFieldSet(FieldDescriptor{Label: "Número celular", Value: "5"}), LabelMatchExact)

	b, err := json.Marshal(row)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	want := `{"Nombre":null,"Apellido":null,"Numero celular":"5","Fecha":null,"Hora":null,"Color favorito":null}`
	if string(b) != want {
		t.Errorf("json = %s, want %s", b, want)
	}
}

func TestParseLabelMatch(t *testing.T) {
	for _, s := range []string{"exact", "fold"} {
		if _, err := ParseLabelMatch(s); err != nil {
			t.Errorf("ParseLabelMatch(%q) error: %v", s, err)
		}
	}
	if _, err := ParseLabelMatch("insensitive"); err == nil {
		t.Error("expected error for unknown label match")
	}
}

func TestSubmissionError_ToServiceError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		kind     error
		code     int
		textCode string
		category goerrors.Category
	}{
		{"invalid payload", InvalidPayload("bad"), ErrInvalidPayload, http.StatusBadRequest, TextCodeInvalidPayload, goerrors.CategoryBadInput},
		{"insert failed", InsertFailed(errors.New("duplicate key")), ErrInsertFailed, http.StatusInternalServerError, TextCodeInsertFailed, goerrors.CategoryExternal},
		{"insert timeout", InsertTimeout(nil), ErrInsertTimeout, http.StatusGatewayTimeout, TextCodeInsertTimeout, goerrors.CategoryExternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if !errors.Is(tt.err, tt.kind) {
				t.Fatalf("errors.Is(%v, %v) = false", tt.err, tt.kind)
			}
			var subErr *SubmissionError
			if !errors.As(tt.err, &subErr) {
				t.Fatalf("expected *SubmissionError, got %T", tt.err)
			}
			rich := subErr.ToServiceError()
			if rich.Code != tt.code {
				t.Errorf("Code = %d, want %d", rich.Code, tt.code)
			}
			if rich.TextCode != tt.textCode {
				t.Errorf("TextCode = %q, want %q", rich.TextCode, tt.textCode)
			}
			if rich.Category != tt.category {
				t.Errorf("Category = %q, want %q", rich.Category, tt.category)
			}
		})
	}
}

func TestInsertFailed_PreservesCause(t *testing.T) {
	cause := errors.New("connection refused")
	err := InsertFailed(cause)
	if !errors.Is(err, cause) {
		t.Error("expected cause to be reachable through errors.Is")
	}
	if err.Error() != "insert_failed: connection refused" {
		t.Errorf("Error() = %q", err.Error())
	}
}

func TestServiceError(t *testing.T) {
	t.Run("submission error keeps detail and severity", func(t *testing.T) {
		rich := ServiceError(InvalidPayload("data must be an object"))
		if Detail(rich) != "data must be an object" {
			t.Errorf("Detail = %q", Detail(rich))
		}
		if rich.Severity != goerrors.SeverityWarning {
			t.Errorf("Severity = %v, want warning", rich.Severity)
		}
	})

	t.Run("method not allowed", func(t *testing.T) {
		rich := ServiceError(&SubmissionError{Kind: ErrMethodNotAllowed})
		if rich.Code != http.StatusMethodNotAllowed || rich.Category != goerrors.CategoryMethodNotAllowed {
			t.Errorf("got code %d category %q", rich.Code, rich.Category)
		}
	})

	t.Run("unknown error becomes internal", func(t *testing.T) {
		rich := ServiceError(errors.New("boom"))
		if rich.Code != http.StatusInternalServerError {
			t.Errorf("Code = %d, want 500", rich.Code)
		}
		if rich.TextCode != TextCodeInternal {
			t.Errorf("TextCode = %q, want %q", rich.TextCode, TextCodeInternal)
		}
		if rich.Category != goerrors.CategoryInternal {
			t.Errorf("Category = %q, want internal", rich.Category)
		}
		if Detail(rich) != "boom" {
			t.Errorf("Detail = %q, want boom", Detail(rich))
		}
	})
}
