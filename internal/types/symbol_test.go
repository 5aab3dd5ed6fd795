package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSymbolKey(t *testing.T) {
	t.Run("member_with_enclosing_class", func(t *testing.T) {
		sym := &CodeSymbol{Name: "Update", EnclosingClass: "Player"}
		assert.Equal(t, "Player.Update", sym.Key())
	})

	t.Run("top_level_symbol", func(t *testing.T) {
		sym := &CodeSymbol{Name: "Player"}
		assert.Equal(t, "Player", sym.Key())
	})
}

func TestSymbolKindString(t *testing.T) {
	assert.Equal(t, "class", SymbolKindClass.String())
	assert.Equal(t, "method", SymbolKindMethod.String())
	assert.Equal(t, "unknown", SymbolKind(99).String())
}

func TestParseSymbolKind(t *testing.T) {
	assert.Equal(t, SymbolKindClass, ParseSymbolKind("class"))
	assert.Equal(t, SymbolKindField, ParseSymbolKind("Field"))
	assert.Equal(t, SymbolKindUnknown, ParseSymbolKind("widget"))
}

func TestIsTypeDeclaration(t *testing.T) {
	assert.True(t, SymbolKindClass.IsTypeDeclaration())
	assert.True(t, SymbolKindEnum.IsTypeDeclaration())
	assert.False(t, SymbolKindMethod.IsTypeDeclaration())
	assert.False(t, SymbolKindField.IsTypeDeclaration())
}

func TestModifiers(t *testing.T) {
	sym := &CodeSymbol{Modifiers: []string{"public", "static"}}
	assert.True(t, sym.HasModifier("public"))
	assert.True(t, sym.IsPublic())
	assert.False(t, sym.HasModifier("private"))

	private := &CodeSymbol{Modifiers: []string{"private"}}
	assert.False(t, private.IsPublic())
}

func TestRiskLevelMax(t *testing.T) {
	assert.Equal(t, RiskHigh, RiskLow.Max(RiskHigh))
	assert.Equal(t, RiskHigh, RiskHigh.Max(RiskMedium))
	assert.Equal(t, RiskMedium, RiskMedium.Max(RiskLow))
	assert.Equal(t, RiskLow, RiskLow.Max(RiskLow))
}

func TestSafetyReportCanProceed(t *testing.T) {
	report := &SafetyReport{}
	assert.True(t, report.CanProceed())

	report.Warnings = append(report.Warnings, "something advisory")
	assert.True(t, report.CanProceed(), "warnings alone must not block")

	report.Blockers = append(report.Blockers, "hard constraint")
	assert.False(t, report.CanProceed())
}

func TestSortSymbols(t *testing.T) {
	symbols := []*CodeSymbol{
		{Name: "Zeta", FilePath: "a.cs", StartLine: 1},
		{Name: "Alpha", FilePath: "b.cs", StartLine: 9},
		{Name: "Alpha", FilePath: "a.cs", StartLine: 3},
	}
	SortSymbols(symbols)
	assert.Equal(t, "Alpha", symbols[0].Name)
	assert.Equal(t, "a.cs", symbols[0].FilePath)
	assert.Equal(t, "b.cs", symbols[1].FilePath)
	assert.Equal(t, "Zeta", symbols[2].Name)
}
