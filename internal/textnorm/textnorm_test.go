package textnorm

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	assert.Equal(t, "елка", Normalize("Ёлка"))
	assert.Equal(t, "санкт-петербург", Normalize("Санкт-Петербург"))
}

func TestWords(t *testing.T) {
	assert.Equal(t, []string{"санкт", "петербург"}, Words("санкт-петербург"))
	assert.Equal(t, []string{"улица", "1905", "года"}, Words(Normalize("Улица 1905 года!")))
	assert.Empty(t, Words("?!, — «»"))
	assert.Empty(t, Words(""))
}

func TestCleanTitle(t *testing.T) {
	assert.Equal(t, "Ленинградская область", CleanTitle("Ленинградская_область\n"))
	assert.Equal(t, "Москва", CleanTitle("  Москва  "))
}

func TestValidTitle(t *testing.T) {
	valid := []string{
		"Ленинград",
		"Санкт-Петербург",
		"Ёжик в тумане",
		"«Спартак» (футбольный клуб)",
		"Война 1812 года",
		"Пушкин — поэт",
		"Бой под Лесной – сражение",
		"Что? Где? Когда?",
	}
	for _, s := range valid {
		assert.True(t, ValidTitle(s), s)
	}
	invalid := []string{
		"Paris",
		"Ё",
		"Ёж",
		"Москва (film)",
		"Ленинград№1",
		"",
	}
	for _, s := range invalid {
		assert.False(t, ValidTitle(s), s)
	}
}

func TestPhrase(t *testing.T) {
	assert.Equal(t, `"улица"`, Phrase("улица"))
	assert.Equal(t, `"a""b"`, Phrase(`a"b`))
}
