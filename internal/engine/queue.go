package engine

import (
	"github.com/Anhbaza/Bot-Binance/internal/models"
)

// Queue — буфер команд между сканером/телеграмом и движком.
// Единственный потребитель — командный цикл движка.
type Queue struct {
	ch chan models.Command
}

func NewQueue(capacity int) *Queue {
	if capacity <= 0 {
		capacity = 32
	}
	return &Queue{ch: make(chan models.Command, capacity)}
}

// Enqueue не блокирует: при переполнении команда отбрасывается,
// вызывающий решает что делать с false.
func (q *Queue) Enqueue(cmd models.Command) bool {
	select {
	case q.ch <- cmd:
		return true
	default:
		return false
	}
}

func (q *Queue) C() <-chan models.Command { return q.ch }
