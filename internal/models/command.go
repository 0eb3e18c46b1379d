package models

// Command — закрытый набор команд от презентационного слоя к движку.
// Вместо прямых вызовов и общих мутабельных объектов — очередь команд.
type Command interface{ isCommand() }

type AcceptSignal struct {
	Signal Signal
}

type CloseTrade struct {
	Symbol string
	Reason CloseReason
}

type CloseAll struct {
	Reason CloseReason
}

type CancelAllOrders struct {
	// пустой Symbol = по всем парам
	Symbol string
}

func (AcceptSignal) isCommand()    {}
func (CloseTrade) isCommand()      {}
func (CloseAll) isCommand()        {}
func (CancelAllOrders) isCommand() {}
