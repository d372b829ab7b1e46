package models

import "time"

// Коды результата прогона целиком
const (
	RunCompleted   = "completed"
	RunSkipped     = "skipped_not_15m_close" // прогон не на границе 15m свечи
	RunRateLimited = "rate_limited"          // 429 от поставщика данных, прогон прерван
	RunForbidden   = "forbidden"             // 401/403 - проблема плана/ключа, требует вмешательства
)

// PairOutcome - результат обработки одной пары в прогоне
//
// Прогон всегда перечисляет результат по каждой паре, даже при частичных
// ошибках: частичный успех виден, а не скрыт за общим фейлом.
type PairOutcome struct {
	Pair    string   `json:"pair"`
	Actions []string `json:"actions"`
	Error   string   `json:"error,omitempty"`
}

// RunReport - итог одного прогона по вселенной пар
type RunReport struct {
	StartedAt  time.Time     `json:"started_at"`
	FinishedAt time.Time     `json:"finished_at"`
	Status     string        `json:"status"` // completed, skipped_*, rate_limited, forbidden
	Pairs      []PairOutcome `json:"pairs"`
}

// Outcome возвращает слот результата для пары, создавая его при необходимости
func (r *RunReport) Outcome(pair string) *PairOutcome {
	for i := range r.Pairs {
		if r.Pairs[i].Pair == pair {
			return &r.Pairs[i]
		}
	}
	r.Pairs = append(r.Pairs, PairOutcome{Pair: pair})
	return &r.Pairs[len(r.Pairs)-1]
}
