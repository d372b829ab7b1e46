package utils

import (
	"fmt"
	"strings"
)

// validator.go - валидация входных данных
//
// Назначение:
// Проверка корректности пар и таймфреймов на границах системы
// (конфигурация, HTTP запросы).
//
// Функции:
// - ValidatePairSymbol: проверка формата FX пары (EURUSD)
// - ValidateTimeframe: проверка таймфрейма (15m, 1h)
// - ValidateUniverse: проверка списка пар
// - NormalizePairSymbol: приведение к каноническому виду
//
// Возвращает error с описанием проблемы или nil

// ValidatePairSymbol проверяет формат FX пары: 6 латинских букв (EURUSD)
func ValidatePairSymbol(symbol string) error {
	if len(symbol) != 6 {
		return fmt.Errorf("pair symbol must be 6 letters, got %q", symbol)
	}
	for _, r := range symbol {
		if r < 'A' || r > 'Z' {
			return fmt.Errorf("pair symbol must be uppercase latin letters, got %q", symbol)
		}
	}
	return nil
}

// NormalizePairSymbol приводит пару к каноническому виду: обрезает пробелы,
// поднимает регистр и снимает префикс поставщика ("C:EURUSD" -> "EURUSD")
func NormalizePairSymbol(symbol string) string {
	s := strings.ToUpper(strings.TrimSpace(symbol))
	s = strings.TrimPrefix(s, "C:")
	return s
}

// ValidateTimeframe проверяет что таймфрейм поддерживается кэшем
func ValidateTimeframe(tf string) error {
	switch tf {
	case "15m", "1h":
		return nil
	}
	return fmt.Errorf("unsupported timeframe %q (want 15m or 1h)", tf)
}

// ValidateUniverse проверяет список пар: непустой, без дублей, каждая валидна
func ValidateUniverse(pairs []string) error {
	if len(pairs) == 0 {
		return fmt.Errorf("pair universe is empty")
	}
	seen := make(map[string]struct{}, len(pairs))
	for _, p := range pairs {
		if err := ValidatePairSymbol(p); err != nil {
			return err
		}
		if _, dup := seen[p]; dup {
			return fmt.Errorf("duplicate pair %q in universe", p)
		}
		seen[p] = struct{}{}
	}
	return nil
}
