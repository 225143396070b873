package apierrgen

import (
	"go/token"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func variant(name string, line int, comments ...string) VariantDeclaration {
	pos := token.Position{Filename: "errors.go", Line: line, Column: 2}
	v := VariantDeclaration{Name: name, Pos: pos}
	for _, c := range comments {
		v.Directives = append(v.Directives, RawDirective{Text: c, Pos: pos})
	}
	return v
}

func enumOf(variants ...VariantDeclaration) *EnumDeclaration {
	return &EnumDeclaration{
		Name:        "E",
		PackageName: "errs",
		Pos:         token.Position{Filename: "errors.go", Line: 3, Column: 6},
		Kind:        DeclEnum,
		Variants:    variants,
	}
}

func TestFold_LastWriteWins(t *testing.T) {
	p := Fold(variant("A", 1), []Directive{
		{Kind: DirectiveStatusCode, Ident: "NotFound"},
		{Kind: DirectiveCustom, Text: "first"},
		{Kind: DirectiveStatusCode, Ident: "Conflict"},
		{Kind: DirectiveCustom, Text: "second"},
	})

	assert.True(t, p.Explicit)
	assert.False(t, p.Pass)
	require.NotNil(t, p.StatusCode)
	assert.Equal(t, http.StatusConflict, p.StatusCode.Code)
	require.NotNil(t, p.Label)
	assert.Equal(t, "second", *p.Label)
}

func TestFold_NoDirectives(t *testing.T) {
	p := Fold(variant("A", 1), nil)
	assert.False(t, p.Explicit)
	assert.Nil(t, p.StatusCode)
	assert.Nil(t, p.Label)
}

func TestResolve(t *testing.T) {
	tests := []struct {
		name       string
		directives []Directive
		want       Outcome
	}{
		{
			name: "默认策略",
			want: Outcome{StatusConst: "StatusInternalServerError", StatusCode: 500, Label: "InternalServerError", Default: true},
		},
		{
			name:       "只有状态码",
			directives: []Directive{{Kind: DirectiveStatusCode, Ident: "NotFound"}},
			want:       Outcome{StatusConst: "StatusNotFound", StatusCode: 404, Label: "V"},
		},
		{
			name:       "只有标签",
			directives: []Directive{{Kind: DirectiveCustom, Text: "oops"}},
			want:       Outcome{StatusConst: "StatusInternalServerError", StatusCode: 500, Label: "oops"},
		},
		{
			name: "状态码与标签",
			directives: []Directive{
				{Kind: DirectiveCustom, Text: "oops"},
				{Kind: DirectiveStatusCode, Ident: "NOT_FOUND"},
			},
			want: Outcome{StatusConst: "StatusNotFound", StatusCode: 404, Label: "oops"},
		},
		{
			name:       "Pass",
			directives: []Directive{{Kind: DirectivePass}},
			want:       Outcome{StatusConst: "StatusInternalServerError", StatusCode: 500, Label: "V"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Fold(variant("V", 1), tt.directives).Resolve())
		})
	}
}

func TestValidate_ReportsEveryVariant(t *testing.T) {
	policies := []VariantPolicy{
		Fold(variant("A", 1), []Directive{{Kind: DirectivePass}, {Kind: DirectiveCustom, Text: "x"}}),
		Fold(variant("B", 2), []Directive{{Kind: DirectiveStatusCode, Ident: "NotFound"}}),
		Fold(variant("C", 3), []Directive{{Kind: DirectiveStatusCode, Ident: "Nope"}}),
		Fold(variant("D", 4), []Directive{{Kind: DirectiveStatusCode, Ident: "Gone"}, {Kind: DirectivePass}}),
	}

	diags := Validate(policies)
	require.Len(t, diags, 3)
	assert.Equal(t, ConflictingAnnotations, diags[0].Kind)
	assert.Equal(t, "A", diags[0].Subject)
	assert.Equal(t, 1, diags[0].Pos.Line)
	assert.Equal(t, UnknownStatusCode, diags[1].Kind)
	assert.Equal(t, "C", diags[1].Subject)
	assert.Equal(t, ConflictingAnnotations, diags[2].Kind)
	assert.Equal(t, "D", diags[2].Subject)
}

func TestDerive(t *testing.T) {
	enum := enumOf(
		variant("A", 5),
		variant("B", 7, "@StatusCode(NotFound)\n"),
		variant("C", 9, "@Custom(\"oops\")\n"),
		variant("D", 11, "@StatusCode(NOT_FOUND) @Custom(\"oops\")\n"),
	)

	d, diags := Derive(enum)
	require.Empty(t, diags)
	require.Len(t, d.Policies, 4)

	var got []Outcome
	for _, p := range d.Policies {
		got = append(got, p.Resolve())
	}
	assert.Equal(t, []Outcome{
		{StatusConst: "StatusInternalServerError", StatusCode: 500, Label: "InternalServerError", Default: true},
		{StatusConst: "StatusNotFound", StatusCode: 404, Label: "B"},
		{StatusConst: "StatusInternalServerError", StatusCode: 500, Label: "oops"},
		{StatusConst: "StatusNotFound", StatusCode: 404, Label: "oops"},
	}, got)
}

func TestDerive_DirectivesAcrossComments(t *testing.T) {
	// 文档注释与行尾注释按顺序折叠
	d, diags := Derive(enumOf(variant("A", 1, "@Custom(\"doc\")\n", "@Custom(\"trailing\")\n")))
	require.Empty(t, diags)
	assert.Equal(t, "trailing", d.Policies[0].Resolve().Label)
}

func TestDerive_Conflict(t *testing.T) {
	d, diags := Derive(enumOf(variant("A", 4, "@Pass @Custom(\"x\")\n")))
	assert.Nil(t, d)
	require.Len(t, diags, 1)
	assert.Equal(t, ConflictingAnnotations, diags[0].Kind)
	assert.Equal(t, "A", diags[0].Subject)
	assert.Equal(t, 4, diags[0].Pos.Line)
}

func TestDerive_MalformedAbortsBeforeValidation(t *testing.T) {
	d, diags := Derive(enumOf(
		variant("A", 1, "@Pass @Custom(\"x\")\n"),
		variant("B", 2, "@StatusCode(404)\n"),
		variant("C", 3, "@Custom(oops)\n"),
	))
	assert.Nil(t, d)
	require.Len(t, diags, 2)
	assert.Len(t, diags.OfKind(MalformedAnnotationPayload), 2)
	assert.False(t, diags.Has(ConflictingAnnotations))
}

func TestDerive_UnsupportedKind(t *testing.T) {
	for _, kind := range []DeclKind{DeclStruct, DeclInterface, DeclAlias, DeclGeneric, DeclOther, DeclFunc, DeclMethod, DeclVar, DeclConst} {
		t.Run(kind.String(), func(t *testing.T) {
			enum := enumOf(variant("A", 1, "@Pass @Custom(\"x\")\n"))
			enum.Kind = kind

			d, diags := Derive(enum)
			assert.Nil(t, d)
			require.Len(t, diags, 1)
			assert.Equal(t, UnsupportedDeclarationKind, diags[0].Kind)
			assert.Equal(t, "E", diags[0].Subject)
			assert.Equal(t, 3, diags[0].Pos.Line)
		})
	}
}

func TestDerive_EmptyEnum(t *testing.T) {
	d, diags := Derive(enumOf())
	require.Empty(t, diags)
	assert.Empty(t, d.Policies)
}

func TestDiagnostics_Error(t *testing.T) {
	_, diags := Derive(enumOf(variant("A", 4, "@Pass @Custom(\"x\")\n")))
	assert.Equal(t, "errors.go:4:2: ConflictingAnnotations: A: @Pass 不能与 @StatusCode 或 @Custom 同时使用", diags.Error())
	assert.Equal(t, "conflicting_annotations", diags[0].Code())
	assert.NoError(t, Diagnostics(nil).Err())
}
