package textnorm

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Leche Entera 1L", "leche entera 1l"},
		{"Léche  Éntera, 1L!", "leche entera 1l"},
		{"  Piña   en Conserva ", "pina en conserva"},
		{"Café-Molido (250g)", "cafemolido 250g"},
		{"", ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got := Normalize(tt.in)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, got, Normalize(got), "normalize should be idempotent")
		})
	}
}

func TestSlugify(t *testing.T) {
	assert.Equal(t, "santa-isabel", Slugify("Santa Isabel"))
	assert.Equal(t, "lider", Slugify("Líder"))
	assert.Equal(t, "jumbo-temuco", Slugify("  Jumbo -- Temuco! "))
}

func TestSimilarity(t *testing.T) {
	t.Run("identical", func(t *testing.T) {
		assert.Equal(t, 1.0, Similarity("leche entera 1l", "leche entera 1l"))
	})

	t.Run("symmetric", func(t *testing.T) {
		a, b := "arroz grado 1 1kg", "arroz grado uno 1 kg"
		assert.Equal(t, Similarity(a, b), Similarity(b, a))
	})

	t.Run("close variants above threshold", func(t *testing.T) {
		s := Similarity("leche entera 1l", "leche entera 1 litro")
		assert.GreaterOrEqual(t, s, 0.65)
		assert.LessOrEqual(t, s, 1.0)
	})

	t.Run("different products below threshold", func(t *testing.T) {
		assert.Less(t, Similarity("leche entera 1l", "leche descremada 1l"), 0.65)
		assert.Less(t, Similarity("leche entera 1l", "arroz grado 1 1kg"), 0.3)
	})

	t.Run("empty", func(t *testing.T) {
		assert.Equal(t, 0.0, Similarity("", "leche"))
	})
}

func TestSearchGrams(t *testing.T) {
	assert.Equal(t, []string{"1l", "che", "ech", "lec"}, SearchGrams("leche lec 1l"))
	assert.Empty(t, SearchGrams(""))
}

func TestParsePriceText(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{in: "$1.990", want: "1990"},
		{in: "1.990,50", want: "1990.5"},
		{in: "$ 12.345.678", want: "12345678"},
		{in: "990", want: "990"},
		{in: "sin precio", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParsePriceText(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.True(t, decimal.RequireFromString(tt.want).Equal(got), "got %s", got)
		})
	}
}
